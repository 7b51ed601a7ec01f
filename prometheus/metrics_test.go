package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddlewareCountsRenderedStatus(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/widgets/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no widget")
	})

	before := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/widgets/:id", http.MethodGet, "404"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/widgets/:id", http.MethodGet, "404"))
	require.Equal(t, before+1, after)
}

func TestRecordProductUnits(t *testing.T) {
	before := testutil.ToFloat64(ProductUnitsCounter.WithLabelValues("created"))
	RecordProductUnits("created", 3)
	RecordProductUnits("created", 0)
	require.Equal(t, before+3, testutil.ToFloat64(ProductUnitsCounter.WithLabelValues("created")))
}

func TestPrometheusHandlerExposesMetrics(t *testing.T) {
	RecordLogin("admin", "success")

	rec := httptest.NewRecorder()
	GetPrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "cloudbook_login_total"))
}

func TestStatusCategory(t *testing.T) {
	require.Equal(t, "2xx", statusCategory(201))
	require.Equal(t, "4xx", statusCategory(409))
	require.Equal(t, "5xx", statusCategory(500))
	require.Equal(t, "", statusCategory(302))
}
