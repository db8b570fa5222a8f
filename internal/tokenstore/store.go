// Package tokenstore persists the single session token. The variant is
// chosen once at startup from the platform kind.
package tokenstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// Store holds at most one bearer token.
type Store interface {
	// Get returns the token, or false when none is stored or the store
	// cannot be read.
	Get(ctx context.Context) (string, bool)

	// Set replaces the token. An empty token clears it.
	Set(ctx context.Context, token string) error

	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Kind reports the platform this store belongs to.
	Kind() domain.PlatformKind

	// Close releases any underlying handle.
	Close() error
}

// Options configures Open.
type Options struct {
	// Dir is the storage directory (~/.rizz/storage).
	Dir string

	// Origin scopes the web store, normally the backend base URL.
	Origin string

	// Key is the item name the token is stored under.
	Key string

	// SecretKey optionally overrides the secure store key file
	// (base64, 32 bytes).
	SecretKey string

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) key() string {
	if o.Key != "" {
		return o.Key
	}
	return DefaultKey
}

// DefaultKey is the item name used when Options.Key is empty.
const DefaultKey = "session_token"

// Open selects the store variant for kind.
func Open(ctx context.Context, kind domain.PlatformKind, opts Options) (Store, error) {
	switch kind {
	case domain.PlatformWeb:
		return NewWeb(opts)
	case domain.PlatformNative:
		return NewSecure(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, kind)
	}
}
