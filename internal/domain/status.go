package domain

import (
	"encoding/json"
	"strings"
)

// ListingStatus is the normalized lifecycle state of a listing
type ListingStatus string

const (
	StatusActive  ListingStatus = "ACTIVE"
	StatusExpired ListingStatus = "EXPIRED"
	StatusOther   ListingStatus = "OTHER"
)

// ParseListingStatus maps a raw status from any source onto the enumerated set.
// Matching is case-insensitive; anything unrecognised becomes StatusOther.
func ParseListingStatus(raw string) ListingStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE":
		return StatusActive
	case "EXPIRED":
		return StatusExpired
	default:
		return StatusOther
	}
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// UnmarshalJSON normalizes the status while decoding
func (s *ListingStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseListingStatus(raw)
	return nil
}
