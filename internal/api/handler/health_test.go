package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", decodeData[map[string]string](t, env)["status"])
}

func TestReadyCheck(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := httptest.NewRecorder()
	ReadyCheck(map[string]Pinger{"sqlite": up})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadyCheck(map[string]Pinger{"sqlite": up, "redis": down})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env := decode(t, rec)
	body := env.Error.(map[string]any)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["sqlite"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestFlushCache(t *testing.T) {
	flusher := &fakeFlusher{}
	rec := httptest.NewRecorder()
	FlushCache(flusher)(rec, httptest.NewRequest(http.MethodPost, "/cache/flush", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, flusher.calls)
}
