package handler

import (
	"net/http"
	"strings"

	"github.com/Rrens/greenbite/internal/api/response"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/validation"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles the login page and logout
type AuthHandler struct {
	stores        *session.Stores
	backend       BackendFactory
	registry      *marketplace.Registry
	dialogs       *listingform.Dialogs
	dashboardPath string
	loginPath     string
}

func NewAuthHandler(stores *session.Stores, backend BackendFactory, registry *marketplace.Registry, dialogs *listingform.Dialogs) *AuthHandler {
	return &AuthHandler{
		stores:        stores,
		backend:       backend,
		registry:      registry,
		dialogs:       dialogs,
		dashboardPath: "/dashboard",
		loginPath:     "/login",
	}
}

// LoginView reports whether the device is already signed in
func (h *AuthHandler) LoginView(w http.ResponseWriter, r *http.Request) {
	state := session.Check(r.Context(), h.stores.FromContext(r.Context()))

	view := map[string]any{"authenticated": state == session.Authenticated}
	if state == session.Authenticated {
		view["redirect"] = h.dashboardPath
	}
	response.OK(w, view)
}

// Login exchanges credentials with the backend and persists the token pair
// for this device. Form posts are redirected to the dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var input domain.UserLogin
	if isJSON(r) {
		if err := decodeJSON(w, r, &input); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		input.Email = r.PostFormValue("email")
		input.Password = r.PostFormValue("password")
	}
	input.Email = strings.TrimSpace(input.Email)

	if err := validation.Struct(input); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.backend("").Login(r.Context(), input)
	if err != nil {
		logger.Warn().Err(err).Msg("login rejected")
		response.Unauthorized(w, marketplace.ErrorMessage(err))
		return
	}

	if err := h.stores.FromContext(r.Context()).Save(r.Context(), pair.AccessToken, pair.RefreshToken); err != nil {
		logger.Error().Err(err).Msg("failed to persist tokens")
		response.InternalError(w, "failed to persist session")
		return
	}

	logger.Info().Msg("device signed in")

	if !isJSON(r) {
		http.Redirect(w, r, h.dashboardPath, http.StatusSeeOther)
		return
	}
	response.OK(w, map[string]any{
		"authenticated": true,
		"redirect":      h.dashboardPath,
	})
}

// Logout clears the device's tokens and forgets its marketplace state
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.FromContext(r.Context()).Clear(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to clear tokens")
		response.InternalError(w, "failed to clear session")
		return
	}

	if id := deviceID(r); id != "" {
		h.registry.Drop(id)
		h.dialogs.Forget(id)
	}

	response.OK(w, map[string]any{
		"authenticated": false,
		"redirect":      h.loginPath,
	})
}
