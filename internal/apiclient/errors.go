package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any *Error for a 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a failed backend request.
type Error struct {
	// Status is the HTTP status code, or 0 when no response arrived.
	Status int

	// Message is the user-facing description.
	Message string

	// Err is the transport error when Status is 0.
	Err error
}

func (e *Error) Error() string {
	if e.Status == 0 && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error is a 401 when target is ErrUnauthorized.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message returns the user-facing text of err: the Message of an *Error,
// otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// DetailMessage extracts a user-facing message from an error response body.
//
// The backend reports failures as {"detail": ...} where detail is either a
// string, a list of validation entries carrying "msg", or an arbitrary
// object. Strings are returned as-is, list entries are joined with ", " and
// objects are returned as compact JSON. Anything else yields fallback.
func DetailMessage(body []byte, fallback string) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return fallback
	}

	var detail any
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return fallback
	}

	switch v := detail.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
		return fallback
	case []any:
		var messages []string
		for _, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if msg := truthyString(obj["msg"]); msg != "" {
				messages = append(messages, msg)
			}
		}
		if len(messages) > 0 {
			return strings.Join(messages, ", ")
		}
		return compactJSON(payload.Detail, fallback)
	case map[string]any:
		return compactJSON(payload.Detail, fallback)
	default:
		return fallback
	}
}

// truthyString renders a JSON scalar, returning "" for empty, zero, false or null.
func truthyString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == 0 {
			return ""
		}
		return fmt.Sprint(s)
	case bool:
		if !s {
			return ""
		}
		return "true"
	case nil:
		return ""
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// compactJSON keeps the backend's key order, which a map round trip would lose.
func compactJSON(raw json.RawMessage, fallback string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return fallback
	}
	return buf.String()
}
