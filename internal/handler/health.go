package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cloudbook/pkg/database"
	"github.com/suteetoe/cloudbook/pkg/logger"
	"go.uber.org/zap"
)

// HealthCheck reports liveness. With ?check=db it also pings the database.
func (h *Handler) HealthCheck(c echo.Context) error {
	if c.QueryParam("check") != "db" {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := database.Ping(ctx, h.db); err != nil {
		logger.FromContext(c).Error("Database health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
