package handler

import (
	"context"
	"encoding/json"
	"errors"
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

const maxBodyBytes = 10 << 20

// Backend is the slice of the GreenBite API the handlers call
type Backend interface {
	Login(ctx context.Context, creds domain.UserLogin) (*domain.TokenPair, error)
	CreateListing(ctx context.Context, p *listingform.Payload) (*domain.Listing, error)
	UpdateListing(ctx context.Context, id string, p *listingform.Payload) (*domain.Listing, error)
	DeleteListing(ctx context.Context, id string) error
	CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.OrderReceipt, error)
	SubmitReview(ctx context.Context, listingID string, review domain.ReviewCreate) error
	SubmitReport(ctx context.Context, report domain.ReportCreate) error
}

// BackendFactory returns a Backend authenticated with accessToken ("" for anonymous calls)
type BackendFactory func(accessToken string) Backend

// ListingLookup resolves a single listing
type ListingLookup interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

// CacheFlusher drops cached listing pages after a mutation
type CacheFlusher interface {
	FlushAll(ctx context.Context) (int64, error)
}

func deviceID(r *http.Request) string {
	id, _ := session.DeviceID(r.Context())
	return id
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// writeError maps a domain or collaborator error onto a response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		response.Invalid(w, fe)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		response.NotFound(w, "not found")
		return
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		response.Error(w, status, marketplace.ErrorMessage(err))
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		response.Error(w, http.StatusGatewayTimeout, marketplace.ErrorMessage(err))
		return
	}

	log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	response.InternalError(w, marketplace.ErrorMessage(err))
}
