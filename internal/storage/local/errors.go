package local

import "errors"

var (
	// ErrNotFound is returned when a key has no stored value
	ErrNotFound = errors.New("not found")

	// ErrInvalidOrigin is returned when a store is opened without an origin
	ErrInvalidOrigin = errors.New("invalid origin")
)
