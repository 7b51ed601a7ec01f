package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/cloudbook/internal/handler"
	mid "github.com/suteetoe/cloudbook/internal/middleware"
	"github.com/suteetoe/cloudbook/pkg/config"
	"github.com/suteetoe/cloudbook/pkg/database"
	"github.com/suteetoe/cloudbook/pkg/jwtutil"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"github.com/suteetoe/cloudbook/pkg/mailer"
	"github.com/suteetoe/cloudbook/pkg/telemetry"
	"github.com/suteetoe/cloudbook/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.Options{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting cloudbook", appConfig.LogConfig()...)

	// Initialize tracing
	tp, err := telemetry.New(context.Background(), appConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey: appConfig.JWT.SigningKey,
		Expiration: appConfig.JWT.Expiration,
	})

	sender := mailer.NewSMTPSender(mailer.Config{
		Host:     appConfig.SMTP.Host,
		Port:     appConfig.SMTP.Port,
		User:     appConfig.SMTP.User,
		Password: appConfig.SMTP.Password,
		TTL:      appConfig.SMTP.OTPTTL,
	})

	h := handler.New(db, jwt, sender, handler.Options{
		UploadDir:       appConfig.Server.UploadDir,
		OTPTTL:          appConfig.SMTP.OTPTTL,
		MaxProductUnits: appConfig.Server.MaxProductUnits,
	})

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.TracingMiddleware(tp.Tracer()))
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Health check endpoint
	e.GET("/health", h.HealthCheck)

	// Uploaded profile images and logos
	e.Static("/api/uploads", appConfig.Server.UploadDir)

	auth := mid.NewAuth(jwt, db, appConfig.Server.AuthRequired)
	limiter := mid.NewRateLimiter(appConfig.Server.AuthRateLimit)
	h.RegisterRoutes(e.Group(""), auth, limiter)
	h.RegisterRoutes(e.Group("/api"), auth, limiter)

	// Start server
	go func() {
		port := appConfig.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
