package local

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store is a synchronous key/value store scoped to one origin, persisted
// as a single JSON object per origin. It mirrors the browser's local
// storage: string keys, string values, no expiry.
type Store struct {
	basePath string
	origin   string
	mu       sync.RWMutex
}

// NewStore opens the store for origin under basePath
func NewStore(basePath, origin string) (*Store, error) {
	key, err := originKey(origin)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath, origin: key}, nil
}

// Origin returns the normalized origin the store is scoped to
func (s *Store) Origin() string {
	return s.origin
}

// GetItem returns the value stored under key
func (s *Store) GetItem(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.read()
	if err != nil {
		return "", err
	}
	value, ok := items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// SetItem stores value under key, replacing any previous value
func (s *Store) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return err
	}
	items[key] = value
	return s.write(items)
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.write(items)
}

// Keys returns all stored keys in sorted order
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every key for this origin
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.basePath, s.origin+".json")
}

// read must be called with mu held
func (s *Store) read() (map[string]string, error) {
	items := make(map[string]string)

	file, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return items, nil
}

// write must be called with mu held. The file is replaced atomically so a
// crash never leaves a half-written object behind.
func (s *Store) write(items map[string]string) error {
	tmp, err := os.CreateTemp(s.basePath, s.origin+".*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		tmp.Close()
		return fmt.Errorf("encode json: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// originKey turns "https://api.example.com:443/some/path" into a filename
// safe key "https_api.example.com_443". Path, query and fragment are not
// part of an origin.
func originKey(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}

	raw := strings.ToLower(u.Scheme + "_" + u.Host)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String(), nil
}
