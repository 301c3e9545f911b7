package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/shopspring/decimal"
)

// ListingRepository reads the marketplace catalog from MySQL
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingQuery = `
	SELECT
		CAST(l.id AS CHAR), l.title, l.description, CAST(l.price AS CHAR), l.currency,
		l.quantity, l.unit, l.status, l.featured_image,
		DATE_FORMAT(l.available_until, '%Y-%m-%d'),
		CAST(s.id AS CHAR), s.name, s.trust_score,
		r.average_rating, COALESCE(r.review_count, 0)
	FROM listings l
	JOIN sellers s ON s.id = l.seller_id
	LEFT JOIN (
		SELECT listing_id, AVG(rating) AS average_rating, COUNT(*) AS review_count
		FROM listing_reviews
		GROUP BY listing_id
	) r ON r.listing_id = l.id
`

// ListAll returns every listing in catalog order
func (r *ListingRepository) ListAll(ctx context.Context) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, listingQuery+` ORDER BY l.created_at, l.id`)
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
	l, err := scanListing(r.db.QueryRowContext(ctx, listingQuery+` WHERE CAST(l.id AS CHAR) = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *ListingRepository) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	return r.GetByID(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(row scanner) (*domain.Listing, error) {
	var (
		l                  domain.Listing
		id, sellerID       string
		price, status      string
		description, image sql.NullString
		averageRating      sql.NullFloat64
		reviewCount        int64
	)

	err := row.Scan(
		&id, &l.Title, &description, &price, &l.Currency,
		&l.Quantity, &l.Unit, &status, &image,
		&l.AvailableUntil,
		&sellerID, &l.Seller.Name, &l.Seller.TrustScore,
		&averageRating, &reviewCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	l.Description = description.String
	l.ReviewCount = int(reviewCount)
	if image.Valid {
		l.FeaturedImage = &image.String
	}
	if averageRating.Valid {
		l.AverageRating = &averageRating.Float64
	}
	return &l, nil
}
