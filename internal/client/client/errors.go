package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// DefaultErrorMessage is used when a failed response carries no usable body.
const DefaultErrorMessage = "Request failed"

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is match status-derived sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAPIError reports whether err is (or wraps) an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// errorMessage extracts a human-readable message from an error body: the
// "detail" field (a string, or a list of validation items with "msg"),
// then "error" or "message". JSON without a usable field yields the
// fallback; only non-JSON text is shown raw.
func errorMessage(body []byte) string {
	if json.Valid(body) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err == nil {
			for _, key := range []string{"detail", "error", "message"} {
				if msg := rawMessage(fields[key]); msg != "" {
					return msg
				}
			}
		}
		return DefaultErrorMessage
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return DefaultErrorMessage
}

func rawMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
