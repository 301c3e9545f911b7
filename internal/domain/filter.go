package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// FilterCriteria narrows the visible listing set
type FilterCriteria struct {
	Search   string           `json:"search"`
	MinPrice *decimal.Decimal `json:"min_price"`
	MaxPrice *decimal.Decimal `json:"max_price"`
}

// IsZero reports whether no constraint is set
func (f FilterCriteria) IsZero() bool {
	return f.Search == "" && f.MinPrice == nil && f.MaxPrice == nil
}

// Equal compares two criteria by value
func (f FilterCriteria) Equal(other FilterCriteria) bool {
	return f.Search == other.Search &&
		decimalPtrEqual(f.MinPrice, other.MinPrice) &&
		decimalPtrEqual(f.MaxPrice, other.MaxPrice)
}

// Clone returns a copy that shares no pointers with f
func (f FilterCriteria) Clone() FilterCriteria {
	return FilterCriteria{
		Search:   f.Search,
		MinPrice: cloneDecimal(f.MinPrice),
		MaxPrice: cloneDecimal(f.MaxPrice),
	}
}

// Key returns a stable string form, used for cache keys and logs
func (f FilterCriteria) Key() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.ToLower(f.Search))
	b.WriteString("&min=")
	if f.MinPrice != nil {
		b.WriteString(f.MinPrice.String())
	}
	b.WriteString("&max=")
	if f.MaxPrice != nil {
		b.WriteString(f.MaxPrice.String())
	}
	return b.String()
}

// Values encodes the criteria as URL query parameters
func (f FilterCriteria) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.MinPrice != nil {
		v.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("max_price", f.MaxPrice.String())
	}
	return v
}

// ParseFilterCriteria reads criteria from URL query parameters.
// Blank price parameters are treated as unset.
func ParseFilterCriteria(q url.Values) (FilterCriteria, error) {
	criteria := FilterCriteria{Search: q.Get("search")}

	minPrice, err := parseOptionalDecimal(q.Get("min_price"))
	if err != nil {
		return FilterCriteria{}, fmt.Errorf("invalid min_price: %w", err)
	}
	maxPrice, err := parseOptionalDecimal(q.Get("max_price"))
	if err != nil {
		return FilterCriteria{}, fmt.Errorf("invalid max_price: %w", err)
	}

	criteria.MinPrice = minPrice
	criteria.MaxPrice = maxPrice
	return criteria, nil
}

func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
