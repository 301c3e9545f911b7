package postgres

import (
	"errors"
	"testing"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow feeds fixed values into Scan destinations
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case **string:
			*p, _ = r.values[i].(*string)
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *float64:
			*p = r.values[i].(float64)
		case **float64:
			*p, _ = r.values[i].(*float64)
		}
	}
	return nil
}

func row(price, status string, rating *float64) fakeRow {
	desc := "Traditional homemade jam"
	return fakeRow{values: []any{
		"3", "Homemade Jam", &desc, price, "EGP", 3, "jar",
		status, (*string)(nil), "2026-02-01",
		"4", "Sara", 4.2,
		rating, int64(8),
	}}
}

func TestScanListing(t *testing.T) {
	rating := 4.25
	l, err := scanListing(row("120.00", "Active", &rating))
	require.NoError(t, err)

	assert.Equal(t, domain.ID("3"), l.ID)
	assert.True(t, l.Price.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, domain.StatusActive, l.Status)
	assert.Equal(t, "Traditional homemade jam", l.Description)
	assert.Nil(t, l.FeaturedImage)
	assert.Equal(t, domain.ID("4"), l.Seller.ID)
	assert.Equal(t, 4.25, *l.AverageRating)
	assert.Equal(t, 8, l.ReviewCount)
}

func TestScanListing_StatusNormalized(t *testing.T) {
	for raw, want := range map[string]domain.ListingStatus{
		"ACTIVE":  domain.StatusActive,
		"expired": domain.StatusExpired,
		"paused":  domain.StatusOther,
	} {
		l, err := scanListing(row("1", raw, nil))
		require.NoError(t, err)
		assert.Equal(t, want, l.Status, raw)
		assert.Nil(t, l.AverageRating)
	}
}

func TestScanListing_BadPrice(t *testing.T) {
	_, err := scanListing(row("abc", "Active", nil))
	assert.ErrorContains(t, err, `invalid price "abc"`)
}

func TestScanListing_NoRows(t *testing.T) {
	_, err := scanListing(fakeRow{err: pgx.ErrNoRows})
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}
