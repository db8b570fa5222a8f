package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/storage/local"
)

// Web keeps the token in the origin-scoped key/value store, the way a
// browser keeps it in local storage.
type Web struct {
	items  *local.Store
	key    string
	logger *slog.Logger
}

// NewWeb opens the web store under opts.Dir for opts.Origin.
func NewWeb(opts Options) (*Web, error) {
	items, err := local.NewStore(opts.Dir, opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	return &Web{items: items, key: opts.key(), logger: opts.logger()}, nil
}

func (w *Web) Get(_ context.Context) (string, bool) {
	token, err := w.items.GetItem(w.key)
	if err != nil {
		if !errors.Is(err, local.ErrNotFound) {
			w.logger.Warn("read token failed", "store", "web", "error", err)
		}
		return "", false
	}
	return token, token != ""
}

func (w *Web) Set(ctx context.Context, token string) error {
	if token == "" {
		return w.Clear(ctx)
	}
	if err := w.items.SetItem(w.key, token); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	return nil
}

func (w *Web) Clear(_ context.Context) error {
	if err := w.items.RemoveItem(w.key); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	return nil
}

func (w *Web) Kind() domain.PlatformKind { return domain.PlatformWeb }

func (w *Web) Close() error { return nil }
