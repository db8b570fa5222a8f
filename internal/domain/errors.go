package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors describe session-level failures shared by the token store,
// the backend client and the session manager.
// -----------------------------------------------------------------------------

// Session errors
var (
	ErrInvalidSessionID = errors.New("session id is empty")
	ErrMissingToken     = errors.New("session exchange returned no token")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Token storage errors
var (
	ErrTokenStoreUnavailable = errors.New("token store unavailable")
)

// Platform errors
var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrLoginCancelled  = errors.New("login cancelled")
)

// General errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)
