package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the encoder and level of the process logger.
type Options struct {
	Level       string
	Environment string
	ServiceName string
}

var log *zap.Logger

// InitLogger builds the process logger and installs it as the zap global.
// Production writes JSON with ISO8601 timestamps; every other environment writes colored console lines.
func InitLogger(opts *Options) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.Environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	built, err := cfg.Build(zap.Fields(
		zap.String("service", opts.ServiceName),
		zap.String("environment", opts.Environment),
	))
	if err != nil {
		return err
	}

	log = built
	zap.ReplaceGlobals(log)
	return nil
}

// parseLevel falls back to info for empty or unknown names.
func parseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// GetLogger returns the process logger, or a no-op logger before InitLogger ran.
func GetLogger() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Middleware attaches a request-scoped logger carrying request_id and writes one line per request.
// Server errors log at error level, client errors at warn.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			reqLog := GetLogger().With(zap.String("request_id", requestID))
			c.Set(loggerKey, reqLog)
			c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), reqLog)))

			// rendered here so the logged status is the one the client sees
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			switch {
			case status >= 500:
				reqLog.Error("request", fields...)
			case status >= 400:
				reqLog.Warn("request", fields...)
			default:
				reqLog.Info("request", fields...)
			}
			return nil
		}
	}
}
