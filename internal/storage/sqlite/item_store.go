package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrItemNotFound is returned when no item exists under a name
var ErrItemNotFound = errors.New("secure item not found")

// Item is a sealed value. The store never sees plaintext.
type Item struct {
	Name       string
	Nonce      []byte
	Ciphertext []byte
	UpdatedAt  time.Time
}

// ItemStore persists sealed items keyed by name.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new SQLite-backed item store.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// Put inserts or replaces the item under item.Name.
func (s *ItemStore) Put(ctx context.Context, item Item) error {
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secure_items (name, nonce, ciphertext, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			nonce=excluded.nonce, ciphertext=excluded.ciphertext,
			updated_at=excluded.updated_at`,
		item.Name, item.Nonce, item.Ciphertext, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// Get retrieves an item by name.
func (s *ItemStore) Get(ctx context.Context, name string) (*Item, error) {
	item := &Item{}
	err := s.db.QueryRowContext(ctx,
		"SELECT name, nonce, ciphertext, updated_at FROM secure_items WHERE name = ?", name,
	).Scan(&item.Name, &item.Nonce, &item.Ciphertext, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (s *ItemStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM secure_items WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Names lists stored item names.
func (s *ItemStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM secure_items ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
