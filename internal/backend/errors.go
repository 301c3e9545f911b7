package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/Rrens/greenbite/internal/domain"
)

const maxErrorBody = 64 << 10

// decodeError maps a failed response onto domain.APIError. Bodies of the form
// {"detail": ...}, {"message": ...}, {"non_field_errors": [...]} and
// {"field": ["msg"]} are understood; anything else falls back to the status text.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			apiErr.Message = text
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	// non_field_errors, then message, then error: the first non-empty one wins
	for _, key := range []string{"non_field_errors", "message", "error"} {
		if apiErr.Message == "" {
			apiErr.Message = flatten(body[key])
		}
	}

	for key, val := range body {
		switch key {
		case "detail":
			apiErr.Detail = flatten(val)
		case "non_field_errors", "message", "error":
		default:
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string]any)
			}
			apiErr.Fields[key] = val
		}
	}

	if apiErr.Detail == "" && apiErr.Message == "" && len(apiErr.Fields) > 0 {
		apiErr.Message = summarizeFields(apiErr.Fields)
	}
	return apiErr
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func summarizeFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+flatten(fields[k]))
	}
	return strings.Join(parts, "; ")
}
