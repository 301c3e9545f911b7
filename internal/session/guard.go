package session

import (
	"context"
	"net/http"

	"github.com/Rrens/greenbite/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// State is the outcome of a guard check
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// TokenReader is the part of the token store the guard needs
type TokenReader interface {
	Tokens(ctx context.Context) tokenstore.Pair
}

// StoreResolver returns the token store of the device that issued r
type StoreResolver func(r *http.Request) TokenReader

// Observer is notified of every guard decision
type Observer func(State)

// Guard decides whether a protected region may render.
// It only checks presence of the access token; validity is the backend's concern.
type Guard struct {
	loginPath string
	resolve   StoreResolver
	observe   Observer
}

// NewGuard creates a guard that redirects unauthenticated requests to loginPath
func NewGuard(loginPath string, resolve StoreResolver, observe Observer) *Guard {
	if observe == nil {
		observe = func(State) {}
	}
	return &Guard{
		loginPath: loginPath,
		resolve:   resolve,
		observe:   observe,
	}
}

// Check evaluates the session state from the current token pair
func Check(ctx context.Context, tokens TokenReader) State {
	pair := tokens.Tokens(ctx)
	if pair.AccessToken != nil && *pair.AccessToken != "" {
		return Authenticated
	}
	return Unauthenticated
}

// Require serves next when the device is authenticated, otherwise redirects to the login view.
// The redirect is a 302 so the guarded URL is not kept in history.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := Check(r.Context(), g.resolve(r))
		g.observe(state)

		if state != Authenticated {
			log.Ctx(r.Context()).Debug().
				Str("path", r.URL.Path).
				Str("redirect", g.loginPath).
				Msg("guard redirect")
			http.Redirect(w, r, g.loginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}
