package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/greenbite/internal/api/middleware"
	"github.com/Rrens/greenbite/internal/session"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := session.DeviceID(r.Context())
		w.Write([]byte(id))
	})
}

func TestDevice_IssuesCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.Device(true)(deviceEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, middleware.DeviceCookie, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, c.Value, rec.Body.String())

	_, err := uuid.Parse(c.Value)
	assert.NoError(t, err)
}

func TestDevice_ReusesCookie(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DeviceCookie, Value: id})

	rec := httptest.NewRecorder()
	middleware.Device(false)(deviceEcho()).ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, id, rec.Body.String())
}

func TestDevice_ReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DeviceCookie, Value: "../../etc"})

	rec := httptest.NewRecorder()
	middleware.Device(false)(deviceEcho()).ServeHTTP(rec, req)

	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "../../etc", rec.Body.String())
}

func TestLogger_PassesThrough(t *testing.T) {
	h := chimw.RequestID(middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	keys      []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.remaining, time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), s.err
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name       string
		limiter    *stubLimiter
		wantStatus int
		wantHeader string
	}{
		{"allowed", &stubLimiter{allowed: true, remaining: 12}, http.StatusOK, "12"},
		{"exceeded", &stubLimiter{allowed: false}, http.StatusTooManyRequests, "0"},
		{"limiter down", &stubLimiter{err: errors.New("redis down")}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.9:4000"
			req = req.WithContext(session.WithDevice(req.Context(), "dev-1"))
			rec := httptest.NewRecorder()

			middleware.NewRateLimitMiddleware(tt.limiter).Limit(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHeader, rec.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, []string{"10.0.0.9"}, tt.limiter.keys)
		})
	}
}

// countingLimiter allows the first max requests per key
type countingLimiter struct {
	max  int
	seen map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	c.seen[key]++
	remaining := c.max - c.seen[key]
	return remaining >= 0, max(remaining, 0), time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), nil
}

func TestRateLimit_CookielessRequestsShareClientBudget(t *testing.T) {
	limiter := &countingLimiter{max: 3, seen: map[string]int{}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := middleware.Device(false)(middleware.NewRateLimitMiddleware(limiter).Limit(ok))

	var codes []int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 429, 429, 429}, codes)
	assert.Equal(t, map[string]int{"10.0.0.7": 6}, limiter.seen)
}
