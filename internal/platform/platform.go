// Package platform hides how the login redirect leaves and comes back on
// each hosting environment.
package platform

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pkg/browser"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// ResultKind is how an authorization attempt ended.
type ResultKind int

const (
	// ResultNavigated means control left the app; the outcome arrives
	// later as an inbound URL.
	ResultNavigated ResultKind = iota
	// ResultSuccess carries the return URL.
	ResultSuccess
	// ResultCancel means the user backed out.
	ResultCancel
	// ResultDismiss means the session was closed without an answer.
	ResultDismiss
)

func (k ResultKind) String() string {
	switch k {
	case ResultNavigated:
		return "navigated"
	case ResultSuccess:
		return "success"
	case ResultCancel:
		return "cancel"
	case ResultDismiss:
		return "dismiss"
	default:
		return fmt.Sprintf("result(%d)", int(k))
	}
}

// Result is the outcome of Authorize.
type Result struct {
	Kind ResultKind
	URL  string // set for ResultSuccess
}

// Platform is one hosting environment.
type Platform interface {
	Kind() domain.PlatformKind

	// RedirectURL is where the identity provider sends the user back to.
	RedirectURL(ctx context.Context) (string, error)

	// Authorize sends the user to authURL and reports how it ended.
	Authorize(ctx context.Context, authURL, redirectURL string) (Result, error)
}

// Detect resolves the configured kind. "auto" (or empty) picks web for
// browser-hosted builds and native otherwise.
func Detect(configured string) (domain.PlatformKind, error) {
	switch strings.ToLower(strings.TrimSpace(configured)) {
	case "", "auto":
		return detectRuntime(runtime.GOOS), nil
	default:
		return domain.ParsePlatformKind(configured)
	}
}

func detectRuntime(goos string) domain.PlatformKind {
	if goos == "js" || goos == "wasip1" {
		return domain.PlatformWeb
	}
	return domain.PlatformNative
}

// Navigator opens a URL outside the app.
type Navigator interface {
	Navigate(url string) error
}

// SystemBrowser opens URLs in the default browser.
type SystemBrowser struct{}

func (SystemBrowser) Navigate(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// IsDeepLink reports whether raw uses the app scheme.
func IsDeepLink(raw, scheme string) bool {
	prefix := strings.ToLower(strings.TrimSuffix(scheme, "://")) + "://"
	return len(raw) >= len(prefix) && strings.ToLower(raw[:len(prefix)]) == prefix
}
