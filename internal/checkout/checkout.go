package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/Rrens/greenbite/internal/validation"
	"github.com/rs/zerolog/log"
)

// ErrNotOrderable is returned for listings that are expired or inactive
var ErrNotOrderable = errors.New("listing is not available for ordering")

// Form is the raw checkout input
type Form struct {
	Quantity  string                 `json:"quantity"`
	BuyerNote string                 `json:"buyer_note"`
	Address   domain.DeliveryAddress `json:"address"`
}

// NewForm returns the initial checkout form
func NewForm() Form {
	return Form{Quantity: "1"}
}

// Build turns the form into an order payload for listingID
func Build(listingID string, f Form) (*domain.OrderCreate, error) {
	errs := validation.FieldErrors{}

	marketID, err := strconv.Atoi(strings.TrimSpace(listingID))
	if err != nil {
		errs.Add("market_id", "must be a positive number")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(f.Quantity))
	if err != nil {
		errs.Add("quantity", "must be a whole number")
	}

	order := &domain.OrderCreate{
		MarketID:      marketID,
		Quantity:      qty,
		PaymentMethod: domain.PaymentMethodCOD,
		BuyerNote:     strings.TrimSpace(f.BuyerNote),
		Address: domain.DeliveryAddress{
			FullName:    strings.TrimSpace(f.Address.FullName),
			PhoneNumber: strings.TrimSpace(f.Address.PhoneNumber),
			Email:       strings.TrimSpace(f.Address.Email),
			AddressLine: strings.TrimSpace(f.Address.AddressLine),
			City:        strings.TrimSpace(f.Address.City),
			Notes:       strings.TrimSpace(f.Address.Notes),
		},
	}

	if fe, ok := validation.AsFieldErrors(validation.Struct(order)); ok {
		for field, msg := range fe {
			errs.Add(field, msg)
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// CanSubmit reports whether Build would succeed
func CanSubmit(listingID string, f Form) bool {
	_, err := Build(listingID, f)
	return err == nil
}

// OrderPlacer submits orders to the marketplace backend
type OrderPlacer interface {
	CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.OrderReceipt, error)
}

// ListingLookup resolves the listing being bought
type ListingLookup interface {
	GetListing(ctx context.Context, id string) (*domain.Listing, error)
}

// Service places orders
type Service struct {
	orders   OrderPlacer
	listings ListingLookup
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a checkout service. listings may be nil to skip
// availability checks.
func NewService(orders OrderPlacer, listings ListingLookup, m *metrics.Metrics) *Service {
	return &Service{orders: orders, listings: listings, metrics: m, now: time.Now}
}

// Place validates the form, checks the listing can be ordered and submits it
func (s *Service) Place(ctx context.Context, listingID string, f Form) (*domain.OrderReceipt, error) {
	logger := log.Ctx(ctx)

	order, err := Build(listingID, f)
	if err != nil {
		s.metrics.Submission("order", "invalid")
		return nil, err
	}

	if s.listings != nil {
		listing, err := s.listings.GetListing(ctx, listingID)
		if err != nil {
			s.metrics.Submission("order", "error")
			return nil, fmt.Errorf("failed to get listing: %w", err)
		}
		if !listing.IsOrderable(s.now()) {
			s.metrics.Submission("order", "invalid")
			return nil, ErrNotOrderable
		}
		if order.Quantity > listing.Quantity {
			s.metrics.Submission("order", "invalid")
			return nil, validation.FieldErrors{
				"quantity": fmt.Sprintf("must be at most %d", listing.Quantity),
			}
		}
	}

	receipt, err := s.orders.CreateOrder(ctx, *order)
	if err != nil {
		s.metrics.Submission("order", "error")
		logger.Error().Err(err).Int("market_id", order.MarketID).Msg("Failed to place order")
		return nil, err
	}

	s.metrics.Submission("order", "ok")
	logger.Info().Int("market_id", order.MarketID).Str("order_id", receipt.OrderID.String()).Msg("Order placed")
	return receipt, nil
}
