package listingform

import (
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/validation"
	"github.com/shopspring/decimal"
)

// Mode selects create or edit rules
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Units lists the accepted quantity units
var Units = []string{"kg", "g", "L", "ml", "piece", "pcs", "jar", "box", "dozen"}

const DefaultUnit = "kg"

// Image is an uploaded featured image
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Form is the raw, denormalized dialog input
type Form struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
	Quantity       string `json:"quantity"`
	Unit           string `json:"unit"`
	AvailableUntil string `json:"available_until"`
	Image          *Image `json:"-"`
}

// Empty returns the initial create form
func Empty() Form {
	return Form{Unit: DefaultUnit, Currency: domain.DefaultCurrency}
}

// FromListing pre-fills an edit form. The image is never carried over.
func FromListing(l domain.Listing) Form {
	currency := l.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	unit := l.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	return Form{
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price.String(),
		Currency:       currency,
		Quantity:       strconv.Itoa(l.Quantity),
		Unit:           unit,
		AvailableUntil: l.AvailableUntil,
	}
}

// Payload is the normalized submission
type Payload struct {
	Title          string          `json:"title" validate:"required,max=200"`
	Description    *string         `json:"description"`
	Price          decimal.Decimal `json:"price" validate:"gt=0"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	Quantity       int             `json:"quantity" validate:"gt=0"`
	Unit           string          `json:"unit" validate:"required,oneof=kg g L ml piece pcs jar box dozen"`
	AvailableUntil string          `json:"available_until" validate:"required,datetime=2006-01-02"`
	Image          *Image          `json:"-"`
}

// Normalize validates f and produces the payload to submit. Any failure is
// returned as validation.FieldErrors and nothing is submitted.
func Normalize(f Form, mode Mode, now time.Time) (*Payload, error) {
	errs := validation.FieldErrors{}

	p := &Payload{
		Title:          strings.TrimSpace(f.Title),
		Currency:       strings.ToUpper(strings.TrimSpace(f.Currency)),
		Unit:           strings.TrimSpace(f.Unit),
		AvailableUntil: strings.TrimSpace(f.AvailableUntil),
		Image:          f.Image,
	}

	if desc := strings.TrimSpace(f.Description); desc != "" {
		p.Description = &desc
	}
	if mode == ModeCreate || p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}

	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		errs.Add("price", "must be a number")
	}
	p.Price = price

	qty, err := strconv.Atoi(strings.TrimSpace(f.Quantity))
	if err != nil {
		errs.Add("quantity", "must be a whole number")
	}
	p.Quantity = qty

	if fe, ok := validation.AsFieldErrors(validation.Struct(p)); ok {
		for field, msg := range fe {
			errs.Add(field, msg)
		}
	}

	if _, dup := errs["available_until"]; !dup && mode == ModeCreate {
		until, _ := time.Parse(domain.DateLayout, p.AvailableUntil)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if until.Before(today) {
			errs.Add("available_until", "must not be in the past")
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
