package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// SessionResponse is the result of exchanging a session id.
type SessionResponse struct {
	SessionToken string `json:"session_token"`
	domain.User
}

// ExchangeSession trades a one-time session id for a bearer token. The
// request is sent without a token.
func (c *Client) ExchangeSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	var out SessionResponse
	in := map[string]string{"session_id": sessionID}
	if err := c.do(WithoutToken(ctx), http.MethodPost, "/auth/session", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile for the token on the request.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the token on the request server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Health checks backend liveness. It needs no token.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(WithoutToken(ctx), http.MethodGet, "/health", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
