package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		configured string
		want       domain.PlatformKind
		wantErr    bool
	}{
		{"web", domain.PlatformWeb, false},
		{"NATIVE", domain.PlatformNative, false},
		{" native ", domain.PlatformNative, false},
		{"tv", "", true},
	}
	for _, tt := range tests {
		got, err := Detect(tt.configured)
		if tt.wantErr {
			assert.ErrorIs(t, err, domain.ErrUnknownPlatform, "Detect(%q)", tt.configured)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Detect(%q)", tt.configured)
	}
}

func TestDetect_Auto(t *testing.T) {
	for _, configured := range []string{"", "auto", "AUTO"} {
		got, err := Detect(configured)
		require.NoError(t, err)
		assert.NotEmpty(t, got, "Detect(%q)", configured)
	}
}

func TestDetectRuntime(t *testing.T) {
	tests := map[string]domain.PlatformKind{
		"js":      domain.PlatformWeb,
		"wasip1":  domain.PlatformWeb,
		"linux":   domain.PlatformNative,
		"darwin":  domain.PlatformNative,
		"windows": domain.PlatformNative,
	}
	for goos, want := range tests {
		assert.Equal(t, want, detectRuntime(goos), "detectRuntime(%q)", goos)
	}
}

func TestIsDeepLink(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"rizzacademy://#session_id=abc", true},
		{"RizzAcademy://auth?session_id=abc", true},
		{"https://example.com/#session_id=abc", false},
		{"rizz", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDeepLink(tt.raw, "rizzacademy"), "IsDeepLink(%q)", tt.raw)
	}
}

func TestWeb(t *testing.T) {
	var opened string
	w := &Web{
		AppURL:    "https://app.rizz.example/",
		Navigator: NavigatorFunc(func(url string) error { opened = url; return nil }),
	}
	ctx := context.Background()

	assert.Equal(t, domain.PlatformWeb, w.Kind())

	redirect, err := w.RedirectURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://app.rizz.example/", redirect)

	res, err := w.Authorize(ctx, "https://auth.example/?redirect=x", redirect)
	require.NoError(t, err)
	assert.Equal(t, ResultNavigated, res.Kind)
	assert.Equal(t, "https://auth.example/?redirect=x", opened)
}

func TestWeb_NavigateError(t *testing.T) {
	w := &Web{AppURL: "https://app", Navigator: NavigatorFunc(func(string) error { return errors.New("no browser") })}
	_, err := w.Authorize(context.Background(), "https://auth", "")
	assert.Error(t, err, "navigation errors should surface")
}

func TestWeb_NoAppURL(t *testing.T) {
	_, err := (&Web{}).RedirectURL(context.Background())
	assert.Error(t, err)
}

type fakeSession struct {
	redirect string
	result   Result
	gotAuth  string
}

func (f *fakeSession) Prepare(context.Context) (string, error) { return f.redirect, nil }

func (f *fakeSession) Run(_ context.Context, authURL string) (Result, error) {
	f.gotAuth = authURL
	return f.result, nil
}

func TestNative(t *testing.T) {
	sess := &fakeSession{redirect: "http://127.0.0.1:5555/", result: Result{Kind: ResultCancel}}
	n := &Native{Session: sess}
	ctx := context.Background()

	assert.Equal(t, domain.PlatformNative, n.Kind())

	redirect, err := n.RedirectURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.redirect, redirect)

	res, err := n.Authorize(ctx, "https://auth", redirect)
	require.NoError(t, err)
	assert.Equal(t, ResultCancel, res.Kind)
	assert.Equal(t, "https://auth", sess.gotAuth)
}

func TestNative_NoSession(t *testing.T) {
	n := &Native{}
	_, err := n.RedirectURL(context.Background())
	assert.Error(t, err)
	_, err = n.Authorize(context.Background(), "x", "y")
	assert.Error(t, err)
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "result(42)", ResultKind(42).String())
}
