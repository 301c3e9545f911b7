package handler

import (
	"net/http"
	"time"

	"github.com/Rrens/greenbite/internal/api/response"
	"github.com/Rrens/greenbite/internal/security"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/rs/zerolog/log"
)

// DashboardSections lists the nested dashboard views in menu order
var DashboardSections = []string{"index", "marketplace", "testoo", "testooo"}

// Home is the public landing view
func Home(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"page":  "home",
		"login": "/login",
	})
}

// DashboardHandler renders the guarded dashboard views
type DashboardHandler struct {
	stores *session.Stores
	now    func() time.Time
}

func NewDashboardHandler(stores *session.Stores) *DashboardHandler {
	return &DashboardHandler{stores: stores, now: time.Now}
}

// Index shows the dashboard shell with the signed-in user's claims
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index")
}

// Page returns a handler for a static dashboard section
func (h *DashboardHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, name)
	}
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, page string) {
	view := map[string]any{
		"page":     page,
		"sections": DashboardSections,
	}

	// claims are for display only; the guard already let the request through
	token := h.stores.FromContext(r.Context()).AccessToken(r.Context())
	if claims, err := security.PeekClaims(token); err == nil {
		view["user"] = claims
		view["token_expired"] = claims.Expired(h.now())
	} else {
		log.Ctx(r.Context()).Debug().Err(err).Msg("access token has no readable claims")
	}

	response.OK(w, view)
}
