package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	defaultLoopbackAddr    = "127.0.0.1:0"
	defaultLoopbackTimeout = 5 * time.Minute
)

// The provider may return the session id in the fragment, which browsers
// never send to a server. This page forwards the full URL to complete,
// relative to the per-login path.
const forwardPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Rizz Academy</title></head>
<body><p>Finishing sign-in&hellip;</p>
<script>
if (window.location.hash.indexOf("session_id=") >= 0) {
  window.location.replace("complete?u=" + encodeURIComponent(window.location.href));
} else {
  window.location.replace("cancel");
}
</script></body></html>
`

const donePage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Rizz Academy</title></head>
<body><p>%s You can close this window and return to the terminal.</p></body></html>
`

// LoopbackSession receives the login redirect on a local HTTP listener.
type LoopbackSession struct {
	Addr      string
	Timeout   time.Duration
	Navigator Navigator
	Logger    *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	base     string
}

func (s *LoopbackSession) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Prepare binds the listener and returns http://127.0.0.1:<port>/<nonce>/.
// Only requests under the random path can complete the login.
func (s *LoopbackSession) Prepare(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}

	addr := s.Addr
	if addr == "" {
		addr = defaultLoopbackAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("loopback address %q: %w", addr, err)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return "", fmt.Errorf("loopback address %q is not a loopback interface", addr)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.base = "http://" + ln.Addr().String() + "/" + uuid.NewString() + "/"
	return s.base, nil
}

// Run opens authURL in the browser and waits for the redirect, a cancel,
// the context or the timeout.
func (s *LoopbackSession) Run(ctx context.Context, authURL string) (Result, error) {
	s.mu.Lock()
	ln, base := s.listener, s.base
	s.listener = nil
	s.mu.Unlock()

	if ln == nil {
		if _, err := s.Prepare(ctx); err != nil {
			return Result{}, err
		}
		s.mu.Lock()
		ln, base = s.listener, s.base
		s.listener = nil
		s.mu.Unlock()
	}

	results := make(chan Result, 1)
	var once sync.Once
	finish := func(r Result) {
		once.Do(func() { results <- r })
	}

	srv := &http.Server{
		Handler:           s.router(base, finish),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger().Warn("loopback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	nav := s.Navigator
	if nav == nil {
		nav = SystemBrowser{}
	}
	if err := nav.Navigate(authURL); err != nil {
		return Result{}, err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultLoopbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		return r, nil
	case <-ctx.Done():
		return Result{Kind: ResultCancel}, nil
	case <-timer.C:
		s.logger().Info("login timed out", "timeout", timeout)
		return Result{Kind: ResultCancel}, nil
	}
}

func (s *LoopbackSession) router(base string, finish func(Result)) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverPanics(s.logger()), logRequests(s.logger()))

	u, err := url.Parse(base)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		// Without a login path nothing may complete.
		return r
	}
	origin := u.Scheme + "://" + u.Host
	login := r.PathPrefix(strings.TrimSuffix(u.Path, "/")).Subrouter()

	login.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.URL.RawQuery, "session_id=") {
			finish(Result{Kind: ResultSuccess, URL: origin + req.URL.RequestURI()})
			writePage(w, fmt.Sprintf(donePage, "Signed in."))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, forwardPage)
	}).Methods(http.MethodGet)

	login.HandleFunc("/complete", func(w http.ResponseWriter, req *http.Request) {
		u := req.URL.Query().Get("u")
		if !strings.HasPrefix(u, base) {
			http.Error(w, "unexpected return URL", http.StatusBadRequest)
			return
		}
		finish(Result{Kind: ResultSuccess, URL: u})
		writePage(w, fmt.Sprintf(donePage, "Signed in."))
	}).Methods(http.MethodGet)

	login.HandleFunc("/cancel", func(w http.ResponseWriter, req *http.Request) {
		finish(Result{Kind: ResultCancel})
		writePage(w, fmt.Sprintf(donePage, "Sign-in cancelled."))
	}).Methods(http.MethodGet)

	return r
}

func writePage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, body)
}
