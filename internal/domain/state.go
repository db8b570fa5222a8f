package domain

import (
	"fmt"
	"strings"
)

// AuthState is the session manager's lifecycle state.
type AuthState int

const (
	StateUnknown AuthState = iota
	StateChecking
	StateAuthenticated
	StateUnauthenticated
)

// String returns the lowercase state name.
func (s AuthState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settled reports whether the state is a resting state (no check in flight).
func (s AuthState) Settled() bool {
	return s == StateAuthenticated || s == StateUnauthenticated
}

// PlatformKind identifies the hosting environment, which decides how the
// token is persisted and how the login redirect comes back.
type PlatformKind string

const (
	PlatformWeb    PlatformKind = "web"
	PlatformNative PlatformKind = "native"
)

// ParsePlatformKind parses "web" or "native" (case-insensitive).
func ParsePlatformKind(s string) (PlatformKind, error) {
	switch PlatformKind(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformWeb:
		return PlatformWeb, nil
	case PlatformNative:
		return PlatformNative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}
