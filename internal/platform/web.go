package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// Web is a browser-hosted app: login navigates the whole page away and the
// session id comes back on the app's own URL.
type Web struct {
	// AppURL is the app origin the provider returns to.
	AppURL    string
	Navigator Navigator
}

func (w *Web) Kind() domain.PlatformKind { return domain.PlatformWeb }

func (w *Web) RedirectURL(context.Context) (string, error) {
	if w.AppURL == "" {
		return "", fmt.Errorf("web platform: app URL not set")
	}
	return strings.TrimRight(w.AppURL, "/") + "/", nil
}

func (w *Web) Authorize(_ context.Context, authURL, _ string) (Result, error) {
	nav := w.Navigator
	if nav == nil {
		nav = SystemBrowser{}
	}
	if err := nav.Navigate(authURL); err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultNavigated}, nil
}
