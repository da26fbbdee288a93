package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
	"github.com/v18mgazy/Ghazyy-sub002/internal/service"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "https://pos.example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodOptions, "/api/v1/reports", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"wrong-pass"}`))
		req.RemoteAddr = "127.0.0.1:5000"
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)

		if i < 5 {
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"admin","password":"admin-pass"}`))
	req.RemoteAddr = "10.0.0.9:5000"
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimitIgnoresForwardingHeaders(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"wrong-pass"}`))
		req.RemoteAddr = "127.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)

		if i < 5 {
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
	assert.Len(t, api.loginLimiter.entries, 1)
}

func TestAttemptLimiterWindowSlides(t *testing.T) {
	limiter := newAttemptLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("a"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := api.auth.sign("admin", RoleAdmin, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/v1/products", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCashierCannotReachAdminRoutes(t *testing.T) {
	api := newTestAPI(t)

	for _, tc := range []struct {
		method string
		target string
		body   any
	}{
		{http.MethodGet, "/api/v1/reports?type=daily", nil},
		{http.MethodGet, "/api/v1/reports/export?type=daily", nil},
		{http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{Name: "x"}},
		{http.MethodPost, "/api/v1/invoices/import", domain.InvoiceImportRequest{Total: 1}},
		{http.MethodGet, "/api/v1/expenses", nil},
		{http.MethodGet, "/api/v1/damaged-items", nil},
		{http.MethodGet, "/api/v1/users", nil},
	} {
		rec := api.do(t, tc.method, tc.target, api.cashier, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	api := newTestAPI(t)

	payload := fmt.Sprintf(`{"date":"2024-01-01","total":1,"productsData":%q}`, strings.Repeat("x", maxBodyBytes))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/import", bytes.NewBufferString(payload))
	req.Header.Set("Authorization", "Bearer "+api.admin)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/nope", api.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = api.do(t, http.MethodPut, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusForMapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", store.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", report.ErrInvalidOptions), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", store.ErrInsufficientStock), http.StatusConflict},
		{ErrUsernameTaken, http.StatusConflict},
		{service.ErrForbidden, http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestServerErrorsAreMasked(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusInternalServerError, errors.New("pq: relation \"invoices\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
