package session

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/platform"
)

// memStore is an in-memory TokenStore.
type memStore struct {
	mu       sync.Mutex
	token    string
	setErr   error
	clearErr error
	clears   int
}

func (s *memStore) Get(context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *memStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.token = token
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.token = ""
	return nil
}

func (s *memStore) value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// fakeBackend records calls and the token each one carried.
type fakeBackend struct {
	mu sync.Mutex

	exchange func(ctx context.Context, id string) (*api.SessionResponse, error)
	me       func(ctx context.Context, token string) (*domain.User, error)
	logout   func(ctx context.Context, token string) error

	exchangeIDs  []string
	meTokens     []string
	logoutTokens []string
}

func (b *fakeBackend) ExchangeSession(ctx context.Context, id string) (*api.SessionResponse, error) {
	b.mu.Lock()
	b.exchangeIDs = append(b.exchangeIDs, id)
	fn := b.exchange
	b.mu.Unlock()
	if fn == nil {
		return nil, errors.New("exchange not configured")
	}
	return fn(ctx, id)
}

func (b *fakeBackend) Me(ctx context.Context) (*domain.User, error) {
	token, _ := api.TokenFromContext(ctx)
	b.mu.Lock()
	b.meTokens = append(b.meTokens, token)
	fn := b.me
	b.mu.Unlock()
	if fn == nil {
		return nil, &api.Error{Status: 401, Detail: "Not authenticated"}
	}
	return fn(ctx, token)
}

func (b *fakeBackend) Logout(ctx context.Context) error {
	token, _ := api.TokenFromContext(ctx)
	b.mu.Lock()
	b.logoutTokens = append(b.logoutTokens, token)
	fn := b.logout
	b.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, token)
}

func (b *fakeBackend) calls() (exchange, me, logout []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.exchangeIDs...),
		append([]string(nil), b.meTokens...),
		append([]string(nil), b.logoutTokens...)
}

// fakePlatform returns a canned authorization result.
type fakePlatform struct {
	kind     domain.PlatformKind
	redirect string
	result   platform.Result
	err      error

	gotAuthURL string
}

func (p *fakePlatform) Kind() domain.PlatformKind { return p.kind }

func (p *fakePlatform) RedirectURL(context.Context) (string, error) { return p.redirect, nil }

func (p *fakePlatform) Authorize(_ context.Context, authURL, _ string) (platform.Result, error) {
	p.gotAuthURL = authURL
	return p.result, p.err
}

func profileFor(token string) *domain.User {
	return &domain.User{ID: "u1", Email: "a@b.com", Name: "A B"}
}

func exchangeReturning(token string) func(context.Context, string) (*api.SessionResponse, error) {
	return func(context.Context, string) (*api.SessionResponse, error) {
		return &api.SessionResponse{
			SessionToken: token,
			User:         domain.User{ID: "u1", Email: "a@b.com", Name: "A B"},
		}, nil
	}
}
