package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// TokenSource supplies the current bearer token. tokenstore.Store
// satisfies it.
type TokenSource interface {
	Get(ctx context.Context) (string, bool)
}

// UnauthorizedHandler is told which token the backend rejected with 401.
type UnauthorizedHandler func(ctx context.Context, rejectedToken string)

type tokenOverrideKey struct{}

type tokenOverride struct {
	token string
}

// WithToken makes requests made with ctx carry token instead of the stored
// one. An empty token sends the request without Authorization.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey{}, tokenOverride{token: token})
}

// WithoutToken makes requests made with ctx anonymous.
func WithoutToken(ctx context.Context) context.Context {
	return WithToken(ctx, "")
}

// TokenFromContext returns the override set by WithToken, if any.
func TokenFromContext(ctx context.Context) (token string, ok bool) {
	o, ok := ctx.Value(tokenOverrideKey{}).(tokenOverride)
	return o.token, ok
}

// AuthTransport attaches the bearer token to outgoing requests and reports
// 401 responses for requests that carried one.
type AuthTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource

	mu           sync.RWMutex
	unauthorized UnauthorizedHandler
}

// OnUnauthorized installs the handler called on 401. Installing nil
// removes it.
func (t *AuthTransport) OnUnauthorized(h UnauthorizedHandler) {
	t.mu.Lock()
	t.unauthorized = h
	t.mu.Unlock()
}

func (t *AuthTransport) handler() UnauthorizedHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.unauthorized
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *AuthTransport) token(ctx context.Context) string {
	if tok, ok := TokenFromContext(ctx); ok {
		return tok
	}
	if t.Tokens == nil {
		return ""
	}
	tok, ok := t.Tokens.Get(ctx)
	if !ok {
		return ""
	}
	return tok
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token := t.token(ctx)

	out := req.Clone(ctx)
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.New().String())
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		if h := t.handler(); h != nil {
			h(ctx, token)
		}
	}
	return resp, nil
}
