package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(store *tokenstore.Store, decisions *[]session.State) *session.Guard {
	return session.NewGuard("/login", func(*http.Request) session.TokenReader {
		return store
	}, func(s session.State) {
		*decisions = append(*decisions, s)
	})
}

var protected = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("dashboard"))
})

func TestCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		setup  func(*tokenstore.Store)
		expect session.State
	}{
		{"absent token", func(*tokenstore.Store) {}, session.Unauthenticated},
		{"empty token", func(s *tokenstore.Store) { s.Save(ctx, "", "r") }, session.Unauthenticated},
		{"present token", func(s *tokenstore.Store) { s.Save(ctx, "a", "r") }, session.Authenticated},
		{"forged token accepted", func(s *tokenstore.Store) { s.Save(ctx, "forged", "") }, session.Authenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tokenstore.New(tokenstore.NewMemoryKV())
			tt.setup(store)
			assert.Equal(t, tt.expect, session.Check(ctx, store))
		})
	}
}

func TestGuard_RedirectsWithoutToken(t *testing.T) {
	var decisions []session.State
	store := tokenstore.New(tokenstore.NewMemoryKV())
	h := newGuard(store, &decisions).Require(protected)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, []session.State{session.Unauthenticated}, decisions)
}

func TestGuard_RendersWithToken(t *testing.T) {
	var decisions []session.State
	store := tokenstore.New(tokenstore.NewMemoryKV())
	require.NoError(t, store.Save(context.Background(), "access", "refresh"))
	h := newGuard(store, &decisions).Require(protected)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard", rec.Body.String())
	assert.Equal(t, []session.State{session.Authenticated}, decisions)
}

func TestGuard_ClearThenRecheckRedirects(t *testing.T) {
	var decisions []session.State
	ctx := context.Background()
	store := tokenstore.New(tokenstore.NewMemoryKV())
	require.NoError(t, store.Save(ctx, "access", "refresh"))
	h := newGuard(store, &decisions).Require(protected)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/testoo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, store.Clear(ctx))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/testoo", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "authenticated", session.Authenticated.String())
	assert.Equal(t, "unauthenticated", session.Unauthenticated.String())
}
