package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of listing availability dates
const DateLayout = "2006-01-02"

// DefaultCurrency is applied to listings created through the marketplace
const DefaultCurrency = "EGP"

// ID is an opaque identifier that may arrive as a JSON string or number
type ID string

// UnmarshalJSON accepts both quoted and numeric identifiers
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Seller is the public profile attached to a listing
type Seller struct {
	ID         ID      `json:"id"`
	Name       string  `json:"name"`
	TrustScore float64 `json:"trust_score"`
}

// Listing is an immutable snapshot of a sellable marketplace item
type Listing struct {
	ID             ID              `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	Quantity       int             `json:"quantity"`
	Unit           string          `json:"unit"`
	Status         ListingStatus   `json:"status"`
	FeaturedImage  *string         `json:"featured_image"`
	AvailableUntil string          `json:"available_until"`
	Seller         Seller          `json:"seller"`
	AverageRating  *float64        `json:"average_rating"`
	ReviewCount    int             `json:"review_count"`
}

// AvailableUntilTime parses AvailableUntil as a UTC calendar date
func (l Listing) AvailableUntilTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, l.AvailableUntil)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid available_until %q: %w", l.AvailableUntil, err)
	}
	return t, nil
}

// DaysRemaining returns the number of whole days, rounded up, until the listing
// stops being available. Unparseable dates count as already expired.
func (l Listing) DaysRemaining(now time.Time) int {
	until, err := l.AvailableUntilTime()
	if err != nil {
		return 0
	}
	return int(math.Ceil(until.Sub(now).Hours() / 24))
}

// IsExpired reports whether the availability window has closed
func (l Listing) IsExpired(now time.Time) bool {
	return l.DaysRemaining(now) <= 0
}

// EffectiveStatus folds the derived expiry into the stored status
func (l Listing) EffectiveStatus(now time.Time) ListingStatus {
	if l.IsExpired(now) {
		return StatusExpired
	}
	return l.Status
}

// IsOrderable reports whether a buyer may place an order right now
func (l Listing) IsOrderable(now time.Time) bool {
	return l.EffectiveStatus(now) == StatusActive
}

// ListingPage is one result set delivered by a listing source
type ListingPage struct {
	Results []Listing `json:"results"`
	Count   int       `json:"count"`
}

// ListingSource delivers listings narrowed by filter criteria
type ListingSource interface {
	Name() string
	Fetch(ctx context.Context, criteria FilterCriteria) (*ListingPage, error)
}

// ListingRepository is the persistent catalog of listings
type ListingRepository interface {
	ListAll(ctx context.Context) ([]Listing, error)
	GetByID(ctx context.Context, id string) (*Listing, error)
}
