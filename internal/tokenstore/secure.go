package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/storage/sqlite"
)

const (
	secureDBFile  = "secure.db"
	secureKeyFile = "secure.key"
)

// Secure keeps the token encrypted at rest in a SQLite item table.
type Secure struct {
	db     *sqlite.DB
	items  *sqlite.ItemStore
	sealer *sealer
	key    string
	logger *slog.Logger
}

// NewSecure opens (and migrates) the secure store under opts.Dir.
func NewSecure(ctx context.Context, opts Options) (*Secure, error) {
	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", domain.ErrTokenStoreUnavailable, err)
	}

	var (
		secret []byte
		err    error
	)
	if opts.SecretKey != "" {
		secret, err = decodeKey(opts.SecretKey)
	} else {
		secret, err = loadOrCreateKey(filepath.Join(opts.Dir, secureKeyFile))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	s, err := newSealer(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}

	db, err := sqlite.Open(filepath.Join(opts.Dir, secureDBFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}

	return &Secure{
		db:     db,
		items:  sqlite.NewItemStore(db),
		sealer: s,
		key:    opts.key(),
		logger: opts.logger(),
	}, nil
}

func (s *Secure) Get(ctx context.Context) (string, bool) {
	item, err := s.items.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, sqlite.ErrItemNotFound) {
			s.logger.Warn("read token failed", "store", "secure", "error", err)
		}
		return "", false
	}
	plaintext, err := s.sealer.open(s.key, item.Nonce, item.Ciphertext)
	if err != nil {
		// Wrong key or tampered row: treat as absent.
		s.logger.Warn("open token failed", "store", "secure", "error", err)
		return "", false
	}
	return string(plaintext), len(plaintext) > 0
}

func (s *Secure) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	nonce, ciphertext, err := s.sealer.seal(s.key, []byte(token))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	if err := s.items.Put(ctx, sqlite.Item{Name: s.key, Nonce: nonce, Ciphertext: ciphertext}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	return nil
}

func (s *Secure) Clear(ctx context.Context) error {
	if err := s.items.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenStoreUnavailable, err)
	}
	return nil
}

func (s *Secure) Kind() domain.PlatformKind { return domain.PlatformNative }

func (s *Secure) Close() error { return s.db.Close() }
