package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/greenbite/internal/api/response"
	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MarketplaceHandler serves the listing view, its filters and the listing dialogs
type MarketplaceHandler struct {
	registry   *marketplace.Registry
	dialogs    *listingform.Dialogs
	stores     *session.Stores
	backend    BackendFactory
	listings   ListingLookup
	cache      CacheFlusher
	metrics    *metrics.Metrics
	settleWait time.Duration
	now        func() time.Time
}

// MarketplaceDeps wires a MarketplaceHandler. Cache may be nil.
type MarketplaceDeps struct {
	Registry   *marketplace.Registry
	Dialogs    *listingform.Dialogs
	Stores     *session.Stores
	Backend    BackendFactory
	Listings   ListingLookup
	Cache      CacheFlusher
	Metrics    *metrics.Metrics
	SettleWait time.Duration
}

func NewMarketplaceHandler(deps MarketplaceDeps) *MarketplaceHandler {
	return &MarketplaceHandler{
		registry:   deps.Registry,
		dialogs:    deps.Dialogs,
		stores:     deps.Stores,
		backend:    deps.Backend,
		listings:   deps.Listings,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		settleWait: deps.SettleWait,
		now:        time.Now,
	}
}

type listingView struct {
	domain.Listing
	DaysRemaining   int                  `json:"days_remaining"`
	EffectiveStatus domain.ListingStatus `json:"effective_status"`
	Orderable       bool                 `json:"orderable"`
}

type marketplaceView struct {
	Listings []listingView         `json:"listings"`
	Count    int                   `json:"count"`
	Loading  bool                  `json:"loading"`
	Error    *string               `json:"error"`
	Filters  domain.FilterCriteria `json:"filters"`
	Units    []string              `json:"units"`
}

func (h *MarketplaceHandler) toListingView(l domain.Listing, now time.Time) listingView {
	return listingView{
		Listing:         l,
		DaysRemaining:   l.DaysRemaining(now),
		EffectiveStatus: l.EffectiveStatus(now),
		Orderable:       l.IsOrderable(now),
	}
}

func (h *MarketplaceHandler) render(state marketplace.State) marketplaceView {
	now := h.now()
	items := make([]listingView, 0, len(state.Listings))
	for _, l := range state.Listings {
		items = append(items, h.toListingView(l, now))
	}
	return marketplaceView{
		Listings: items,
		Count:    state.Count,
		Loading:  state.Loading,
		Error:    state.Error,
		Filters:  state.Filters,
		Units:    listingform.Units,
	}
}

// settle waits briefly for the current fetch so most responses carry results
func (h *MarketplaceHandler) settle(ctx context.Context, c *marketplace.Controller) marketplace.State {
	if h.settleWait <= 0 {
		return c.Store().State()
	}
	ctx, cancel := context.WithTimeout(ctx, h.settleWait)
	defer cancel()
	state, _ := c.WaitSettled(ctx)
	return state
}

func (h *MarketplaceHandler) controller(r *http.Request) *marketplace.Controller {
	return h.registry.Get(deviceID(r))
}

func hasFilterParams(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("search") || q.Has("min_price") || q.Has("max_price")
}

// View renders the listing view. Filter query parameters, when present,
// replace the current filters first.
func (h *MarketplaceHandler) View(w http.ResponseWriter, r *http.Request) {
	c := h.controller(r)

	if hasFilterParams(r) {
		criteria, err := domain.ParseFilterCriteria(r.URL.Query())
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		c.Apply(r.Context(), marketplace.SetFilters{Filters: criteria})
	}

	c.Load(r.Context())
	response.OK(w, h.render(h.settle(r.Context(), c)))
}

// PatchFilters updates only the filters present in the body. A null price clears it.
func (h *MarketplaceHandler) PatchFilters(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	var actions []marketplace.Action
	errs := validation.FieldErrors{}

	if raw, ok := body["search"]; ok {
		var search string
		if err := json.Unmarshal(raw, &search); err != nil {
			errs.Add("search", "must be a string")
		}
		actions = append(actions, marketplace.SetSearch{Search: search})
	}
	if raw, ok := body["min_price"]; ok {
		v, err := decodePrice(raw)
		if err != nil {
			errs.Add("min_price", "must be a number")
		}
		actions = append(actions, marketplace.SetMinPrice{Value: v})
	}
	if raw, ok := body["max_price"]; ok {
		v, err := decodePrice(raw)
		if err != nil {
			errs.Add("max_price", "must be a number")
		}
		actions = append(actions, marketplace.SetMaxPrice{Value: v})
	}

	if err := errs.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	c := h.controller(r)
	for _, a := range actions {
		c.Apply(r.Context(), a)
	}
	response.OK(w, h.render(h.settle(r.Context(), c)))
}

// ReplaceFilters sets all filters at once
func (h *MarketplaceHandler) ReplaceFilters(w http.ResponseWriter, r *http.Request) {
	var criteria domain.FilterCriteria
	if err := decodeJSON(w, r, &criteria); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	c := h.controller(r)
	c.Apply(r.Context(), marketplace.SetFilters{Filters: criteria})
	response.OK(w, h.render(h.settle(r.Context(), c)))
}

// ResetFilters clears every filter
func (h *MarketplaceHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	c := h.controller(r)
	c.Apply(r.Context(), marketplace.ResetFilters{})
	response.OK(w, h.render(h.settle(r.Context(), c)))
}

// Refresh re-fetches with the current filters
func (h *MarketplaceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c := h.controller(r)
	c.Refresh(r.Context())
	response.OK(w, h.render(h.settle(r.Context(), c)))
}

// Listing renders one listing's detail
func (h *MarketplaceHandler) Listing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, h.toListingView(*listing, h.now()))
}

// DeleteListing removes a listing owned by the signed-in seller
func (h *MarketplaceHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")
	if err := h.authed(r).DeleteListing(r.Context(), id); err != nil {
		h.metrics.Submission("listing_delete", "error")
		writeError(w, r, err)
		return
	}
	h.metrics.Submission("listing_delete", "ok")
	h.afterMutation(r)
	response.NoContent(w)
}

// Review rates a listing
func (h *MarketplaceHandler) Review(w http.ResponseWriter, r *http.Request) {
	var review domain.ReviewCreate
	if err := decodeJSON(w, r, &review); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	review.Comment = strings.TrimSpace(review.Comment)
	if err := validation.Struct(review); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "listingID")
	if err := h.authed(r).SubmitReview(r.Context(), id, review); err != nil {
		h.metrics.Submission("review", "error")
		writeError(w, r, err)
		return
	}
	h.metrics.Submission("review", "ok")
	h.afterMutation(r)
	response.Created(w, map[string]any{"listing_id": id})
}

// Report flags a listing or user for moderation
func (h *MarketplaceHandler) Report(w http.ResponseWriter, r *http.Request) {
	var report domain.ReportCreate
	if err := decodeJSON(w, r, &report); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	report.TargetType = strings.ToUpper(strings.TrimSpace(report.TargetType))
	report.Reason = strings.TrimSpace(report.Reason)
	report.Details = strings.TrimSpace(report.Details)
	if err := validation.Struct(report); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.authed(r).SubmitReport(r.Context(), report); err != nil {
		h.metrics.Submission("report", "error")
		writeError(w, r, err)
		return
	}
	h.metrics.Submission("report", "ok")
	response.Created(w, map[string]any{"target_type": report.TargetType, "target_id": report.TargetID})
}

// OpenCreate opens the device's create dialog
func (h *MarketplaceHandler) OpenCreate(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.dialogs.Create(deviceID(r)).Open())
}

// CloseCreate closes the create dialog, keeping what was typed
func (h *MarketplaceHandler) CloseCreate(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.dialogs.Create(deviceID(r)).Close())
}

// SubmitCreate validates the create form and posts it to the backend
func (h *MarketplaceHandler) SubmitCreate(w http.ResponseWriter, r *http.Request) {
	form, err := readListingForm(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	backend := h.authed(r)
	dialog := h.dialogs.Create(deviceID(r))
	view, err := dialog.Submit(r.Context(), form, func(ctx context.Context, p *listingform.Payload) error {
		_, err := backend.CreateListing(ctx, p)
		return err
	})
	h.finishSubmit(w, r, "listing_create", view, err)
}

// OpenEdit opens the edit dialog for a listing, pre-filled from the listing
// as it is when the dialog opens
func (h *MarketplaceHandler) OpenEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")
	view, err := h.dialogs.OpenEdit(deviceID(r), id, h.prefill(r, id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, view)
}

func (h *MarketplaceHandler) CloseEdit(w http.ResponseWriter, r *http.Request) {
	dialog, err := h.editDialog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, dialog.Close())
}

// SubmitEdit validates the edit form and patches the listing
func (h *MarketplaceHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	dialog, err := h.editDialog(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := readListingForm(w, r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	id := chi.URLParam(r, "listingID")
	backend := h.authed(r)
	view, err := dialog.Submit(r.Context(), form, func(ctx context.Context, p *listingform.Payload) error {
		_, err := backend.UpdateListing(ctx, id, p)
		return err
	})
	h.finishSubmit(w, r, "listing_update", view, err)
}

func (h *MarketplaceHandler) editDialog(r *http.Request) (*listingform.Dialog, error) {
	id := chi.URLParam(r, "listingID")
	return h.dialogs.Edit(deviceID(r), id, h.prefill(r, id))
}

func (h *MarketplaceHandler) prefill(r *http.Request, id string) func() (listingform.Form, error) {
	return func() (listingform.Form, error) {
		listing, err := h.listings.GetListing(r.Context(), id)
		if err != nil {
			return listingform.Form{}, err
		}
		return listingform.FromListing(*listing), nil
	}
}

func (h *MarketplaceHandler) finishSubmit(w http.ResponseWriter, r *http.Request, kind string, view listingform.View, err error) {
	switch {
	case err == nil:
		h.metrics.Submission(kind, "ok")
		h.afterMutation(r)
		response.OK(w, view)
	case errors.Is(err, listingform.ErrClosed), errors.Is(err, listingform.ErrSubmitting):
		response.ErrorWith(w, http.StatusConflict, view, err.Error())
	default:
		if fe, ok := validation.AsFieldErrors(err); ok {
			h.metrics.Submission(kind, "invalid")
			response.InvalidWith(w, view, fe)
			return
		}
		h.metrics.Submission(kind, "error")
		status := http.StatusBadGateway
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
		response.ErrorWith(w, status, view, marketplace.ErrorMessage(err))
	}
}

// afterMutation drops cached pages and refreshes this device's listing view
func (h *MarketplaceHandler) afterMutation(r *http.Request) {
	if h.cache != nil {
		if _, err := h.cache.FlushAll(r.Context()); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("failed to flush listing cache")
		}
	}
	h.controller(r).Refresh(r.Context())
}

func (h *MarketplaceHandler) authed(r *http.Request) Backend {
	return h.backend(h.stores.FromContext(r.Context()).AccessToken(r.Context()))
}

func decodePrice(raw json.RawMessage) (*decimal.Decimal, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// readListingForm accepts either a JSON form or a multipart form with an
// optional featured_image file
func readListingForm(w http.ResponseWriter, r *http.Request) (listingform.Form, error) {
	var form listingform.Form
	if isJSON(r) {
		err := decodeJSON(w, r, &form)
		return form, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form, errors.New("invalid form body")
	}
	if r.MultipartForm == nil {
		if err := r.ParseForm(); err != nil {
			return form, errors.New("invalid form body")
		}
	}

	form = listingform.Form{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Price:          r.FormValue("price"),
		Currency:       r.FormValue("currency"),
		Quantity:       r.FormValue("quantity"),
		Unit:           r.FormValue("unit"),
		AvailableUntil: r.FormValue("available_until"),
	}

	file, header, err := r.FormFile("featured_image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return form, nil
	}
	if err != nil {
		return form, errors.New("invalid featured_image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return form, errors.New("invalid featured_image")
	}
	form.Image = &listingform.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return form, nil
}
