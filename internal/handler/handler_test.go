package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cloudbook/internal/middleware"
	"github.com/suteetoe/cloudbook/pkg/config"
	"github.com/suteetoe/cloudbook/pkg/database"
	"github.com/suteetoe/cloudbook/pkg/jwtutil"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSigningKey = "test-signing-key"

type fakeMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[to] = code
	return nil
}

func (m *fakeMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

type testServer struct {
	t         *testing.T
	e         *echo.Echo
	db        *gorm.DB
	h         *Handler
	jwt       *jwtutil.JWTUtil
	mail      *fakeMailer
	uploadDir string
	now       time.Time
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithAuth(t, false)
}

func newTestServerWithAuth(t *testing.T, required bool) *testServer {
	t.Helper()

	db, err := database.InitDB(&config.DBConfig{
		Driver:   "sqlite",
		DBName:   filepath.Join(t.TempDir(), "cloudbook.db"),
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ts := &testServer{
		t:         t,
		db:        db,
		jwt:       jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: testSigningKey, Expiration: time.Hour}),
		mail:      &fakeMailer{codes: map[string]string{}},
		uploadDir: t.TempDir(),
		now:       time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC),
	}
	ts.h = New(db, ts.jwt, ts.mail, Options{
		UploadDir: ts.uploadDir,
		OTPTTL:    2 * time.Minute,
		Now:       func() time.Time { return ts.now },
	})

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.GET("/health", ts.h.HealthCheck)
	ts.h.RegisterRoutes(e.Group(""), middleware.NewAuth(ts.jwt, db, required), nil)
	ts.e = e
	return ts
}

// do sends body as JSON (or verbatim when it is a string). headers are key/value pairs.
func (ts *testServer) do(method, target string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	return decode(t, rec)
}

// signUp registers an admin and returns its id.
func (ts *testServer) signUp(email, role string) uint {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/auth/sign-up", map[string]interface{}{
		"name":      "Ada",
		"last_name": "Lovelace",
		"email":     email,
		"contact":   "0800000000",
		"company":   "Analytical Ltd",
		"address":   "12 Engine Way",
		"role":      role,
		"password":  "s3cret",
	})
	body := requireStatus(ts.t, rec, http.StatusCreated)
	return uint(body["userId"].(float64))
}

func (ts *testServer) login(path, email, pw string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, path, map[string]string{"email": email, "password": pw})
	body := requireStatus(ts.t, rec, http.StatusOK)
	return body["token"].(string)
}

func (ts *testServer) createProduct(userID uint, productID, name string, price float64, stock int) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/products", map[string]interface{}{
		"products": []map[string]interface{}{{
			"user_id":    userID,
			"product_id": productID,
			"name":       name,
			"price":      price,
			"category":   "Apparel",
			"stock":      stock,
			"unit":       "pcs",
		}},
	})
	requireStatus(ts.t, rec, http.StatusCreated)
}

func bearer(token string) []string {
	return []string{echo.HeaderAuthorization, "Bearer " + token}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, "ok", requireStatus(t, rec, http.StatusOK)["status"])

	rec = ts.do(http.MethodGet, "/health?check=db", nil)
	require.Equal(t, "up", requireStatus(t, rec, http.StatusOK)["database"])
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	ts := newTestServer(t)

	body := requireStatus(t, ts.do(http.MethodGet, "/nowhere", nil), http.StatusNotFound)
	require.Equal(t, false, body["success"])
	require.NotEmpty(t, body["message"])
}
