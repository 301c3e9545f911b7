package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/Rrens/greenbite/internal/api/response"
	"github.com/Rrens/greenbite/internal/checkout"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/validation"
	"github.com/go-chi/chi/v5"
)

// CheckoutHandler serves the order form of a listing
type CheckoutHandler struct {
	stores   *session.Stores
	backend  BackendFactory
	listings ListingLookup
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewCheckoutHandler(stores *session.Stores, backend BackendFactory, listings ListingLookup, m *metrics.Metrics) *CheckoutHandler {
	return &CheckoutHandler{
		stores:   stores,
		backend:  backend,
		listings: listings,
		metrics:  m,
		now:      time.Now,
	}
}

// View returns the listing being bought and an empty order form
func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")
	listing, err := h.listings.GetListing(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.now()
	form := checkout.NewForm()
	response.OK(w, map[string]any{
		"listing": listingView{
			Listing:         *listing,
			DaysRemaining:   listing.DaysRemaining(now),
			EffectiveStatus: listing.EffectiveStatus(now),
			Orderable:       listing.IsOrderable(now),
		},
		"form":           form,
		"payment_method": domain.PaymentMethodCOD,
		"can_submit":     checkout.CanSubmit(id, form),
	})
}

// Preview validates a form without placing the order
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeJSON(w, r, &form); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	order, err := checkout.Build(chi.URLParam(r, "listingID"), form)
	if err != nil {
		fe, ok := validation.AsFieldErrors(err)
		if !ok {
			writeError(w, r, err)
			return
		}
		response.OK(w, map[string]any{"can_submit": false, "errors": fe})
		return
	}
	response.OK(w, map[string]any{"can_submit": true, "order": order})
}

// Place submits the order with the device's access token
func (h *CheckoutHandler) Place(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeJSON(w, r, &form); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token := h.stores.FromContext(r.Context()).AccessToken(r.Context())
	svc := checkout.NewService(h.backend(token), h.listings, h.metrics)

	receipt, err := svc.Place(r.Context(), chi.URLParam(r, "listingID"), form)
	if errors.Is(err, checkout.ErrNotOrderable) {
		response.Conflict(w, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, receipt)
}
