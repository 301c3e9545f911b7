package marketplace_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/source"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestReduce_Loading(t *testing.T) {
	s := marketplace.InitialState()
	s = marketplace.Reduce(s, marketplace.SetListings{Results: source.SampleListings(), Count: 3})
	s = marketplace.Reduce(s, marketplace.SetError{Message: "old"})

	s = marketplace.Reduce(s, marketplace.SetLoading{Loading: true})
	assert.True(t, s.Loading)
	assert.Len(t, s.Listings, 3)
	assert.Equal(t, "old", *s.Error)
}

func TestReduce_SetListingsClearsError(t *testing.T) {
	s := marketplace.Reduce(marketplace.InitialState(), marketplace.SetError{Message: "boom"})
	s = marketplace.Reduce(s, marketplace.SetLoading{Loading: true})

	s = marketplace.Reduce(s, marketplace.SetListings{Results: source.SampleListings()[:1], Count: 1})
	assert.False(t, s.Loading)
	assert.Nil(t, s.Error)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, "Homemade Chocolate Chip Cookies", s.Listings[0].Title)
}

func TestReduce_ErrorKeepsListings(t *testing.T) {
	s := marketplace.Reduce(marketplace.InitialState(), marketplace.SetListings{Results: source.SampleListings(), Count: 3})
	s = marketplace.Reduce(s, marketplace.SetLoading{Loading: true})

	s = marketplace.Reduce(s, marketplace.SetError{Message: "network down"})
	assert.False(t, s.Loading)
	assert.Equal(t, "network down", *s.Error)
	assert.Len(t, s.Listings, 3)
	assert.Equal(t, 3, s.Count)
}

func TestReduce_FilterActions(t *testing.T) {
	s := marketplace.InitialState()

	s = marketplace.Reduce(s, marketplace.SetSearch{Search: "jam"})
	s = marketplace.Reduce(s, marketplace.SetMinPrice{Value: dec(100)})
	s = marketplace.Reduce(s, marketplace.SetMaxPrice{Value: dec(130)})
	assert.Equal(t, "jam", s.Filters.Search)
	assert.True(t, s.Filters.MinPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.Filters.MaxPrice.Equal(decimal.NewFromInt(130)))

	s = marketplace.Reduce(s, marketplace.SetMinPrice{Value: nil})
	assert.Nil(t, s.Filters.MinPrice)
	assert.NotNil(t, s.Filters.MaxPrice)

	s = marketplace.Reduce(s, marketplace.SetFilters{Filters: domain.FilterCriteria{Search: "cookie"}})
	assert.Equal(t, domain.FilterCriteria{Search: "cookie"}, s.Filters)

	s = marketplace.Reduce(s, marketplace.ResetFilters{})
	assert.True(t, s.Filters.IsZero())
}

func TestReduce_FilterActionsDoNotTouchListings(t *testing.T) {
	s := marketplace.Reduce(marketplace.InitialState(), marketplace.SetListings{Results: source.SampleListings(), Count: 3})
	before := s

	s = marketplace.Reduce(s, marketplace.SetSearch{Search: "jam"})
	assert.Equal(t, before.Listings, s.Listings)
	assert.Equal(t, before.Loading, s.Loading)
	assert.Equal(t, before.Error, s.Error)
}

func TestReduce_DoesNotAliasInputs(t *testing.T) {
	results := source.SampleListings()
	lower := dec(50)

	s := marketplace.Reduce(marketplace.InitialState(), marketplace.SetListings{Results: results, Count: 3})
	s = marketplace.Reduce(s, marketplace.SetMinPrice{Value: lower})

	results[0].Title = "mutated"
	*lower = decimal.NewFromInt(999)

	assert.Equal(t, "Homemade Chocolate Chip Cookies", s.Listings[0].Title)
	assert.True(t, s.Filters.MinPrice.Equal(decimal.NewFromInt(50)))
}

func TestReduce_PreviousStateUnchanged(t *testing.T) {
	prev := marketplace.Reduce(marketplace.InitialState(), marketplace.SetMinPrice{Value: dec(10)})
	next := marketplace.Reduce(prev, marketplace.SetMinPrice{Value: dec(20)})

	assert.True(t, prev.Filters.MinPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, next.Filters.MinPrice.Equal(decimal.NewFromInt(20)))
}

func TestIsFilterAction(t *testing.T) {
	assert.True(t, marketplace.IsFilterAction(marketplace.SetSearch{}))
	assert.True(t, marketplace.IsFilterAction(marketplace.ResetFilters{}))
	assert.True(t, marketplace.IsFilterAction(marketplace.SetFilters{}))
	assert.False(t, marketplace.IsFilterAction(marketplace.SetLoading{}))
	assert.False(t, marketplace.IsFilterAction(marketplace.SetListings{}))
	assert.False(t, marketplace.IsFilterAction(marketplace.SetError{}))
}

func TestFilter(t *testing.T) {
	all := source.SampleListings()

	t.Run("empty criteria is identity", func(t *testing.T) {
		assert.Equal(t, all, marketplace.Filter(all, domain.FilterCriteria{}))
	})

	t.Run("results are a subsequence", func(t *testing.T) {
		got := marketplace.Filter(all, domain.FilterCriteria{Search: "homemade"})
		assert.Equal(t, []domain.Listing{all[0], all[2]}, got)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		got := marketplace.Filter(all, domain.FilterCriteria{MinPrice: dec(120), MaxPrice: dec(120)})
		assert.Len(t, got, 1)
		assert.Equal(t, "Homemade Jam", got[0].Title)
	})

	t.Run("inverted bounds match nothing", func(t *testing.T) {
		got := marketplace.Filter(all, domain.FilterCriteria{MinPrice: dec(200), MaxPrice: dec(100)})
		assert.Empty(t, got)
	})

	t.Run("fractional prices compare exactly", func(t *testing.T) {
		listings := []domain.Listing{{Title: "a", Price: decimal.RequireFromString("99.99")}}
		limit := decimal.RequireFromString("99.99")
		got := marketplace.Filter(listings, domain.FilterCriteria{MaxPrice: &limit})
		assert.Len(t, got, 1)
	})
}

type wrappedError struct{ err error }

func (w wrappedError) Error() string { return fmt.Sprintf("fetch: %v", w.err) }
func (w wrappedError) Unwrap() error { return w.err }

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect string
	}{
		{"detail wins", &domain.APIError{StatusCode: 400, Detail: "Invalid token", Message: "bad"}, "Invalid token"},
		{"message when no detail", &domain.APIError{StatusCode: 500, Message: "server exploded"}, "server exploded"},
		{"wrapped api error", wrappedError{&domain.APIError{Detail: "Not found."}}, "Not found."},
		{"generic error text", errors.New("dial tcp: refused"), "dial tcp: refused"},
		{"empty error text", errors.New(""), marketplace.UnknownErrorMessage},
		{"nil", nil, marketplace.UnknownErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, marketplace.ErrorMessage(tt.err))
		})
	}
}
