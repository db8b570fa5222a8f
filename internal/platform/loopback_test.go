package platform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browserVisiting simulates the identity provider sending the browser to
// the redirect target with the given suffix.
func browserVisiting(t *testing.T, redirect *string, suffix string) Navigator {
	t.Helper()
	return NavigatorFunc(func(string) error {
		go func() {
			resp, err := http.Get(*redirect + suffix)
			if !assert.NoError(t, err, "visit redirect") {
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()
		return nil
	})
}

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLoopbackSession_Prepare(t *testing.T) {
	s := &LoopbackSession{}
	redirect, err := s.Prepare(context.Background())
	require.NoError(t, err)
	defer s.listener.Close()

	assert.True(t, strings.HasPrefix(redirect, "http://127.0.0.1:"), "Prepare() = %q", redirect)
	assert.True(t, strings.HasSuffix(redirect, "/"), "Prepare() = %q", redirect)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.Trim(u.Path, "/")), 32, "want a random login path in %q", redirect)

	again, err := s.Prepare(context.Background())
	require.NoError(t, err)
	defer s.listener.Close()
	assert.NotEqual(t, redirect, again, "each Prepare should use a fresh login path")
}

func TestLoopbackSession_RejectsNonLoopback(t *testing.T) {
	s := &LoopbackSession{Addr: "0.0.0.0:0"}
	_, err := s.Prepare(context.Background())
	assert.Error(t, err)
}

func TestLoopbackSession_QueryReturn(t *testing.T) {
	var redirect string
	s := &LoopbackSession{Timeout: 5 * time.Second}
	s.Navigator = browserVisiting(t, &redirect, "?session_id=ABC123&foo=bar")

	var err error
	redirect, err = s.Prepare(context.Background())
	require.NoError(t, err)

	res, err := s.Run(context.Background(), "https://auth.example/")
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, res.Kind)
	assert.Equal(t, redirect+"?session_id=ABC123&foo=bar", res.URL)
}

func TestLoopbackSession_FragmentForwarded(t *testing.T) {
	var redirect string
	s := &LoopbackSession{Timeout: 5 * time.Second}

	// The page script would call complete with the full href.
	s.Navigator = NavigatorFunc(func(string) error {
		go func() {
			href := redirect + "#session_id=sess_99"
			resp, err := http.Get(redirect + "complete?u=" + url.QueryEscape(href))
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})

	var err error
	redirect, err = s.Prepare(context.Background())
	require.NoError(t, err)

	res, err := s.Run(context.Background(), "https://auth.example/")
	require.NoError(t, err)
	assert.Equal(t, Result{Kind: ResultSuccess, URL: redirect + "#session_id=sess_99"}, res)
}

func TestLoopbackSession_ForwardPage(t *testing.T) {
	s := &LoopbackSession{}
	base := "http://127.0.0.1:1/n0nce/"
	r := s.router(base, func(Result) { t.Error("bare visit must not finish the session") })

	rec := serve(r, base)
	assert.Contains(t, rec.Body.String(), `"complete?u="`)
}

func TestLoopbackSession_QueryReturnUnderLoginPath(t *testing.T) {
	s := &LoopbackSession{}
	base := "http://127.0.0.1:1/n0nce/"
	var got Result
	r := s.router(base, func(res Result) { got = res })

	serve(r, base+"?session_id=ABC")
	assert.Equal(t, Result{Kind: ResultSuccess, URL: base + "?session_id=ABC"}, got)
}

func TestLoopbackSession_IgnoresRequestsOutsideLoginPath(t *testing.T) {
	s := &LoopbackSession{}
	base := "http://127.0.0.1:1/n0nce/"
	r := s.router(base, func(Result) { t.Error("request outside the login path must not finish the session") })

	for _, target := range []string{
		"http://127.0.0.1:1/?session_id=attacker",
		"http://127.0.0.1:1/other/?session_id=attacker",
		"http://127.0.0.1:1/cancel",
		"http://127.0.0.1:1/complete?u=" + url.QueryEscape(base+"#session_id=attacker"),
	} {
		assert.Equal(t, http.StatusNotFound, serve(r, target).Code, "GET %s", target)
	}
}

func TestLoopbackSession_CompleteRejectsForeignURL(t *testing.T) {
	s := &LoopbackSession{}
	base := "http://127.0.0.1:1/n0nce/"
	r := s.router(base, func(Result) { t.Error("foreign URL must not finish the session") })

	rec := serve(r, base+"complete?u="+url.QueryEscape("https://evil.example/#session_id=x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoopbackSession_Cancel(t *testing.T) {
	var redirect string
	s := &LoopbackSession{Timeout: 5 * time.Second}
	s.Navigator = browserVisiting(t, &redirect, "cancel")

	var err error
	redirect, err = s.Prepare(context.Background())
	require.NoError(t, err)

	res, err := s.Run(context.Background(), "https://auth.example/")
	require.NoError(t, err)
	assert.Equal(t, ResultCancel, res.Kind)
}

func TestLoopbackSession_ContextCancelled(t *testing.T) {
	s := &LoopbackSession{Navigator: NavigatorFunc(func(string) error { return nil })}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := s.Prepare(ctx)
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := s.Run(ctx, "https://auth.example/")
	require.NoError(t, err)
	assert.Equal(t, ResultCancel, res.Kind)
}

func TestLoopbackSession_Timeout(t *testing.T) {
	s := &LoopbackSession{
		Timeout:   50 * time.Millisecond,
		Navigator: NavigatorFunc(func(string) error { return nil }),
	}

	res, err := s.Run(context.Background(), "https://auth.example/")
	require.NoError(t, err)
	assert.Equal(t, ResultCancel, res.Kind)
}
