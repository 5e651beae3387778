package calcom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is returned when the API answers with an HTTP status >= 400.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FailureError is returned when the response envelope status is not "success".
type FailureError struct {
	Details string
}

func (e *FailureError) Error() string {
	return "API returned failure. Details: " + e.Details
}

// failureDetails renders the envelope error field. Strings are used as is,
// objects are kept as compact JSON.
func failureDetails(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "Unknown error"
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if s == "" {
			return "Unknown error"
		}
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
