package walletapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrEmptyResponse      = errors.New("wallet api returned an empty response")
	ErrMissingAccessToken = errors.New("wallet api response did not include an access token")

	ErrUnexpectedTransactionList = errors.New("wallet api transaction list is neither an array nor wrapped under transactions")
)

// APIError is a non-2xx response from the wallet backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wallet api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wallet api error (status %d)", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 that survived the session's
// refresh attempt.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsValidation reports whether err is a server-reported rejection of the
// request itself, such as insufficient balance or a wrong PIN.
func IsValidation(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusUnauthorized
}

// Message extracts the user-facing message of err, or fallback when err is
// not an APIError or carries no message.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    extractMessage(body),
		Body:       body,
	}
}

// extractMessage understands the error bodies the backend emits: message,
// detail, error, or a DRF-style errors list or field map.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"message", "detail", "error"} {
		if text, ok := payload[key].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	switch errs := payload["errors"].(type) {
	case string:
		return errs
	case []any:
		if len(errs) > 0 {
			return fmt.Sprint(errs[0])
		}
	case map[string]any:
		fields := make([]string, 0, len(errs))
		for field := range errs {
			fields = append(fields, field)
		}
		if len(fields) == 0 {
			break
		}
		sort.Strings(fields)
		field, value := fields[0], errs[fields[0]]
		if list, ok := value.([]any); ok && len(list) > 0 {
			return fmt.Sprintf("%s: %v", field, list[0])
		}
		return fmt.Sprintf("%s: %v", field, value)
	}
	return ""
}
