package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// ErrTransport marks failures where no HTTP response was received:
// connection errors, timeouts, an open circuit or a local rate limit.
var ErrTransport = errors.New("backend unreachable")

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend error (status %d)", e.Status)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Detail)
}

// Unwrap maps status codes onto domain errors so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

// decodeError builds an *Error from a response body. The backend reports
// errors as {"detail": ...}, where detail is usually a string but is a list
// of objects for validation failures.
func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			e.Detail = s
			return e
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				e.Detail = strings.Join(msgs, "; ")
				return e
			}
		}
		e.Detail = string(payload.Detail)
		return e
	}

	e.Detail = strings.TrimSpace(string(body))
	if len(e.Detail) > 512 {
		e.Detail = e.Detail[:512]
	}
	return e
}
