package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestGetLoggerBeforeInit(t *testing.T) {
	prev := log
	log = nil
	t.Cleanup(func() { log = prev })

	require.NotNil(t, GetLogger())
}

func TestMiddlewareLogsRenderedStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })

	e := echo.New()
	e.Use(Middleware())
	e.GET("/boom", func(c echo.Context) error {
		require.NotNil(t, FromContext(c))
		require.NotNil(t, FromStdContext(c.Request().Context()))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "down")
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, errors.New("nope").Error())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, int64(http.StatusServiceUnavailable), entries[0].ContextMap()["status"])
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	require.Equal(t, "/boom", entries[0].ContextMap()["route"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, zapcore.InfoLevel, entries[2].Level)
}
