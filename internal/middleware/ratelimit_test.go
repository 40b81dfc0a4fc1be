package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_GeneralBudgetIsSeparate(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	// The default general budget comfortably covers a burst of reads.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedCredentials(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Burst is 1, so registration shares the spent credential budget.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/auth/registration", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))
	assert.Contains(t, rec2.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestRateLimitMiddleware_UnversionedCredentialPaths(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/auth/registration", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestRateLimitMiddleware_HealthAndMetricsAreExempt(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 1, false).Handler(okHandler())

	for i := 0; i < 5; i++ {
		for _, path := range []string{"/health", "/metrics"} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_ForwardedHeaders(t *testing.T) {
	login := func(handler http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("ignored unless trusted", func(t *testing.T) {
		handler := NewRateLimitMiddleware(0, 1, false).Handler(okHandler())
		assert.Equal(t, http.StatusOK, login(handler, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, login(handler, "203.0.113.2"))
	})

	t.Run("keys by first hop when trusted", func(t *testing.T) {
		handler := NewRateLimitMiddleware(0, 1, true).Handler(okHandler())
		assert.Equal(t, http.StatusOK, login(handler, "203.0.113.1, 10.0.0.1"))
		assert.Equal(t, http.StatusOK, login(handler, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, login(handler, "203.0.113.1"))
	})
}

func TestRateLimitMiddleware_Configuration(t *testing.T) {
	mw := NewRateLimitMiddleware(-1, 0, false)
	assert.Equal(t, 100, mw.generalRPM)
	assert.Equal(t, 10, mw.authRPM)
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delay time.Duration
		want  string
	}{
		{delay: 59*time.Second + 100*time.Millisecond, want: "60"},
		{delay: 6 * time.Second, want: "6"},
		{delay: 200 * time.Millisecond, want: "1"},
		{delay: 0, want: "60"},
		{delay: rate.InfDuration, want: "60"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfterSeconds(tt.delay), tt.delay.String())
	}
}
