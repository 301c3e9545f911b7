package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ListingRepository reads the marketplace catalog
type ListingRepository struct {
	db *DB
}

func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `
	l.id::text, l.title, l.description, l.price::text, l.currency, l.quantity, l.unit,
	l.status, l.featured_image, to_char(l.available_until, 'YYYY-MM-DD'),
	s.id::text, s.name, s.trust_score,
	r.average_rating, COALESCE(r.review_count, 0)
`

const listingFrom = `
	FROM listings l
	JOIN sellers s ON s.id = l.seller_id
	LEFT JOIN (
		SELECT listing_id, AVG(rating)::float8 AS average_rating, COUNT(*) AS review_count
		FROM listing_reviews
		GROUP BY listing_id
	) r ON r.listing_id = l.id
`

// ListAll returns every listing in catalog order
func (r *ListingRepository) ListAll(ctx context.Context) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` ORDER BY l.created_at, l.id`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// GetByID returns domain.ErrNotFound when the listing does not exist
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + listingFrom + ` WHERE l.id::text = $1`

	l, err := scanListing(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// GetListing adapts GetByID for the checkout availability check
func (r *ListingRepository) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var (
		l             domain.Listing
		id, sellerID  string
		price, status string
		description   *string
		averageRating *float64
		reviewCount   int64
	)

	err := row.Scan(
		&id, &l.Title, &description, &price, &l.Currency, &l.Quantity, &l.Unit,
		&status, &l.FeaturedImage, &l.AvailableUntil,
		&sellerID, &l.Seller.Name, &l.Seller.TrustScore,
		&averageRating, &reviewCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}

	l.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for listing %s: %w", price, id, err)
	}

	l.ID = domain.ID(id)
	l.Seller.ID = domain.ID(sellerID)
	l.Status = domain.ParseListingStatus(status)
	l.AverageRating = averageRating
	l.ReviewCount = int(reviewCount)
	if description != nil {
		l.Description = *description
	}
	return &l, nil
}
