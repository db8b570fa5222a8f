package platform

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// AuthSession is an in-app authentication session: it owns the redirect
// target and blocks until the provider returns or the user gives up.
type AuthSession interface {
	// Prepare readies the redirect target and returns its URL.
	Prepare(ctx context.Context) (string, error)

	// Run opens authURL and waits for the outcome.
	Run(ctx context.Context, authURL string) (Result, error)
}

// Native is an installed app that completes login inside an auth session.
type Native struct {
	Session AuthSession
}

func (n *Native) Kind() domain.PlatformKind { return domain.PlatformNative }

func (n *Native) RedirectURL(ctx context.Context) (string, error) {
	if n.Session == nil {
		return "", fmt.Errorf("native platform: no auth session")
	}
	return n.Session.Prepare(ctx)
}

func (n *Native) Authorize(ctx context.Context, authURL, _ string) (Result, error) {
	if n.Session == nil {
		return Result{}, fmt.Errorf("native platform: no auth session")
	}
	return n.Session.Run(ctx, authURL)
}
