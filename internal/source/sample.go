package source

import (
	"context"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/shopspring/decimal"
)

const SampleName = "sample"

func ptr[T any](v T) *T { return &v }

// SampleListings returns a fresh copy of the demo catalog
func SampleListings() []domain.Listing {
	return []domain.Listing{
		{
			ID:             "1",
			Title:          "Homemade Chocolate Chip Cookies",
			Description:    "Delicious homemade cookies made with premium chocolate chips.",
			Price:          decimal.NewFromInt(150),
			Currency:       domain.DefaultCurrency,
			Quantity:       2,
			Unit:           "kg",
			Status:         domain.StatusActive,
			AvailableUntil: "2026-01-20",
			Seller:         domain.Seller{ID: "2", Name: "Fatma", TrustScore: 4.6},
			AverageRating:  ptr(4.5),
			ReviewCount:    12,
		},
		{
			ID:             "2",
			Title:          "Fresh Organic Vegetables",
			Description:    "Freshly picked organic vegetables from local farms.",
			Price:          decimal.NewFromInt(80),
			Currency:       domain.DefaultCurrency,
			Quantity:       5,
			Unit:           "kg",
			Status:         domain.StatusActive,
			AvailableUntil: "2026-01-15",
			Seller:         domain.Seller{ID: "3", Name: "Ahmed", TrustScore: 4.8},
			AverageRating:  ptr(4.8),
			ReviewCount:    24,
		},
		{
			ID:             "3",
			Title:          "Homemade Jam",
			Description:    "Traditional homemade jam with natural ingredients.",
			Price:          decimal.NewFromInt(120),
			Currency:       domain.DefaultCurrency,
			Quantity:       3,
			Unit:           "jar",
			Status:         domain.StatusActive,
			AvailableUntil: "2026-02-01",
			Seller:         domain.Seller{ID: "4", Name: "Sara", TrustScore: 4.2},
			AverageRating:  ptr(4.2),
			ReviewCount:    8,
		},
	}
}

// Sample serves a fixed in-memory catalog, filtered locally
type Sample struct {
	listings []domain.Listing
	delay    time.Duration
}

// NewSample builds a sample source. A positive delay simulates network latency.
func NewSample(listings []domain.Listing, delay time.Duration) *Sample {
	if listings == nil {
		listings = SampleListings()
	}
	return &Sample{listings: listings, delay: delay}
}

func (s *Sample) Name() string { return SampleName }

func (s *Sample) Fetch(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	results := marketplace.Filter(s.listings, criteria)
	return &domain.ListingPage{Results: results, Count: len(results)}, nil
}

// GetByID looks up one sample listing
func (s *Sample) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	for _, l := range s.listings {
		if string(l.ID) == id {
			found := l
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListAll returns the whole catalog
func (s *Sample) ListAll(context.Context) ([]domain.Listing, error) {
	out := make([]domain.Listing, len(s.listings))
	copy(out, s.listings)
	return out, nil
}

// GetListing looks up one sample listing for detail and checkout views
func (s *Sample) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return s.GetByID(ctx, id)
}
