package marketplace

import (
	"errors"
	"strings"

	"github.com/Rrens/greenbite/internal/domain"
)

// Filter keeps the listings matching criteria. It only removes elements, so
// the relative order of the input is preserved.
func Filter(listings []domain.Listing, criteria domain.FilterCriteria) []domain.Listing {
	search := strings.ToLower(criteria.Search)

	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if search != "" && !strings.Contains(strings.ToLower(l.Title), search) {
			continue
		}
		if criteria.MinPrice != nil && l.Price.LessThan(*criteria.MinPrice) {
			continue
		}
		if criteria.MaxPrice != nil && l.Price.GreaterThan(*criteria.MaxPrice) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// UnknownErrorMessage is shown when a failure carries no usable text
const UnknownErrorMessage = "unknown error"

// ErrorMessage reduces a fetch or submit failure to a user-facing string.
// Priority: API error detail, API error message, generic error text, fallback.
func ErrorMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
