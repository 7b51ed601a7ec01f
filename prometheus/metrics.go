package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// StatusCategoryCounter counts responses by 2xx/4xx/5xx
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "endpoint"},
	)

	// Login attempts by kind (admin, employee) and outcome
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"kind", "outcome"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "invalid_password", "user_not_found", "invalid_token", ...
	)

	// OTP requests and verifications
	OTPCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_otp_total",
			Help: "Total number of OTP operations",
		},
		[]string{"stage", "outcome"}, // stage is "request" or "verify"
	)

	// Product units created and deleted
	ProductUnitsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbook_product_units_total",
			Help: "Total number of product unit rows created or deleted",
		},
		[]string{"operation"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudbook_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudbook_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete", "upsert"
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudbook_info",
			Help: "Information about the service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(OTPCounter)
	prometheus.MustRegister(ProductUnitsCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations.
// Usage: defer prometheus.TrackDBOperation("insert")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			duration := time.Since(start).Seconds()
			status := c.Response().Status
			statusStr := strconv.Itoa(status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   statusStr,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   statusStr,
			}).Inc()

			if category := statusCategory(status); category != "" {
				StatusCategoryCounter.WithLabelValues(category, method, endpoint).Inc()
			}

			return nil
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// RecordLogin records a login attempt
func RecordLogin(kind, outcome string) {
	LoginCounter.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordOTP records an OTP request or verification outcome
func RecordOTP(stage, outcome string) {
	OTPCounter.With(prometheus.Labels{"stage": stage, "outcome": outcome}).Inc()
}

// RecordProductUnits adds n to the created/deleted product unit counter
func RecordProductUnits(operation string, n int) {
	if n <= 0 {
		return
	}
	ProductUnitsCounter.With(prometheus.Labels{"operation": operation}).Add(float64(n))
}
