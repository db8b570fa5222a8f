// Package session owns the authentication lifecycle: it obtains a bearer
// token through the redirect flow, keeps it in the token store and drops
// it on logout or when the backend rejects it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/platform"
)

// logoutNotifyTimeout bounds the detached backend logout call.
const logoutNotifyTimeout = 10 * time.Second

// TokenStore persists the bearer token. tokenstore.Store satisfies it.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Backend is the subset of the API client the manager uses.
type Backend interface {
	ExchangeSession(ctx context.Context, sessionID string) (*api.SessionResponse, error)
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
}

// Identity locates the external identity redirect endpoint.
type Identity struct {
	AuthorizeURL  string
	RedirectParam string
}

// Config wires a Manager.
type Config struct {
	Store    TokenStore
	Backend  Backend
	Platform platform.Platform
	Identity Identity
	Logger   *slog.Logger
}

// LoginOutcome is how Login ended.
type LoginOutcome int

const (
	// LoginAuthenticated means a session is established.
	LoginAuthenticated LoginOutcome = iota
	// LoginCancelled means the user backed out; nothing was stored.
	LoginCancelled
	// LoginRedirected means control left for the identity provider; the
	// result arrives as an inbound URL.
	LoginRedirected
	// LoginFailed means the provider answered but the exchange failed.
	LoginFailed
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginAuthenticated:
		return "authenticated"
	case LoginCancelled:
		return "cancelled"
	case LoginRedirected:
		return "redirected"
	case LoginFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State domain.AuthState
	User  *domain.User
}

// IsAuthenticated is true iff a profile is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// IsLoading is true until the state settles.
func (s Snapshot) IsLoading() bool {
	return !s.State.Settled()
}

// Manager is the single writer of authentication state. Readers use
// Snapshot or Subscribe.
type Manager struct {
	store    TokenStore
	backend  Backend
	platform platform.Platform
	identity Identity
	logger   *slog.Logger

	mu    sync.Mutex
	state domain.AuthState
	user  *domain.User
	// epoch increments on Logout; commits from an older epoch are dropped.
	epoch uint64

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	notify sync.WaitGroup
}

// NewManager creates a manager in the Unknown state.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    cfg.Store,
		backend:  cfg.Backend,
		platform: cfg.Platform,
		identity: cfg.Identity,
		logger:   logger,
		state:    domain.StateUnknown,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state and profile.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) State() domain.AuthState { return m.Snapshot().State }

func (m *Manager) User() *domain.User { return m.Snapshot().User }

func (m *Manager) IsAuthenticated() bool { return m.Snapshot().IsAuthenticated() }

// Subscribe registers fn to receive every state change. The returned
// function unregisters it.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

// Wait blocks until detached logout notifications have finished.
func (m *Manager) Wait() {
	m.notify.Wait()
}

// Resolve runs once at startup. A session id in inboundURL wins over a
// stored token; if its exchange fails the manager ends Unauthenticated and
// the stored token is not consulted. The exchange error is returned.
// Failures of the stored-token check only mean "not authenticated" and are
// logged.
func (m *Manager) Resolve(ctx context.Context, inboundURL string) error {
	epoch, prev := m.begin()

	if id, ok := ExtractSessionID(inboundURL); ok {
		m.logger.Info("session id found on inbound url", "url", StripSessionID(inboundURL))
		if _, err := m.processSessionID(ctx, epoch, prev, id); err != nil {
			m.logger.Warn("session exchange failed", "error", err)
			return err
		}
		return nil
	}

	if err := m.checkAuth(ctx, epoch); err != nil {
		m.logger.Info("stored session not valid", "error", err)
	}
	return nil
}

// HandleDeepLink processes a deep link received while running. It reports
// whether the link carried a session id. A failed exchange leaves an
// existing session in place.
func (m *Manager) HandleDeepLink(ctx context.Context, rawURL string) (bool, error) {
	id, ok := ExtractSessionID(rawURL)
	if !ok {
		m.logger.Debug("deep link without session id ignored", "url", StripSessionID(rawURL))
		return false, nil
	}
	_, err := m.ProcessSessionID(ctx, id)
	return true, err
}

// CheckAuth validates the stored token against the backend. Without a
// token it settles Unauthenticated and makes no request. A rejection
// clears the token; when the request never got an answer (transport
// failure, cancelled ctx) the token is kept for the next check. The error
// is returned for logging only.
func (m *Manager) CheckAuth(ctx context.Context) error {
	epoch, _ := m.begin()
	return m.checkAuth(ctx, epoch)
}

func (m *Manager) checkAuth(ctx context.Context, epoch uint64) error {
	token, ok := m.store.Get(ctx)
	if !ok {
		m.settle(epoch, domain.StateUnauthenticated, nil)
		return nil
	}

	user, err := m.backend.Me(api.WithToken(ctx, token))
	if err != nil {
		if ctx.Err() != nil {
			m.settle(epoch, domain.StateUnauthenticated, nil)
			return fmt.Errorf("check auth: %w", ctx.Err())
		}
		if errors.Is(err, api.ErrTransport) {
			m.settle(epoch, domain.StateUnauthenticated, nil)
			return fmt.Errorf("check auth: %w", err)
		}
		m.invalidate(ctx, epoch, token)
		return fmt.Errorf("check auth: %w", err)
	}

	if !m.settle(epoch, domain.StateAuthenticated, user) {
		return fmt.Errorf("check auth: %w", domain.ErrNotAuthenticated)
	}
	m.logger.Info("session restored", "user_id", user.ID)
	return nil
}

// ProcessSessionID exchanges a one-time session id for a token, stores it
// and loads the profile. It is not idempotent: the backend accepts each id
// once.
// A failed exchange restores a session that was already authenticated.
func (m *Manager) ProcessSessionID(ctx context.Context, sessionID string) (*domain.User, error) {
	epoch, prev := m.begin()
	return m.processSessionID(ctx, epoch, prev, sessionID)
}

func (m *Manager) processSessionID(ctx context.Context, epoch uint64, prev Snapshot, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		m.restore(epoch, prev)
		return nil, domain.ErrInvalidSessionID
	}

	resp, err := m.backend.ExchangeSession(ctx, sessionID)
	if err != nil {
		m.restore(epoch, prev)
		return nil, fmt.Errorf("exchange session: %w", err)
	}
	if resp.SessionToken == "" {
		m.restore(epoch, prev)
		return nil, domain.ErrMissingToken
	}

	user := resp.User
	if err := m.commitToken(ctx, epoch, resp.SessionToken, &user); err != nil {
		return nil, err
	}
	m.logger.Info("session established", "user_id", user.ID)
	return &user, nil
}

// Login starts the redirect flow. On web it navigates away and returns
// LoginRedirected; on native it blocks until the auth session finishes.
// Cancelling is not an error.
func (m *Manager) Login(ctx context.Context) (LoginOutcome, error) {
	if m.IsAuthenticated() {
		return LoginAuthenticated, nil
	}
	if m.platform == nil {
		return LoginFailed, fmt.Errorf("login: no platform configured")
	}

	epoch, prev := m.begin()

	redirect, err := m.platform.RedirectURL(ctx)
	if err != nil {
		m.settle(epoch, domain.StateUnauthenticated, nil)
		return LoginFailed, fmt.Errorf("login: redirect url: %w", err)
	}
	authURL := AuthorizeURL(m.identity.AuthorizeURL, m.identity.RedirectParam, redirect)

	m.logger.Info("starting login", "platform", m.platform.Kind(), "redirect", redirect)
	res, err := m.platform.Authorize(ctx, authURL, redirect)
	if err != nil {
		m.settle(epoch, domain.StateUnauthenticated, nil)
		return LoginFailed, fmt.Errorf("login: %w", err)
	}

	switch res.Kind {
	case platform.ResultNavigated:
		m.settle(epoch, domain.StateUnauthenticated, nil)
		return LoginRedirected, nil

	case platform.ResultSuccess:
		id, ok := ExtractSessionID(res.URL)
		if !ok {
			m.logger.Info("login returned without session id", "url", StripSessionID(res.URL))
			m.settle(epoch, domain.StateUnauthenticated, nil)
			return LoginCancelled, nil
		}
		if _, err := m.processSessionID(ctx, epoch, prev, id); err != nil {
			return LoginFailed, fmt.Errorf("login: %w", err)
		}
		return LoginAuthenticated, nil

	default:
		m.logger.Info("login cancelled", "result", res.Kind.String())
		m.settle(epoch, domain.StateUnauthenticated, nil)
		return LoginCancelled, nil
	}
}

// Logout clears the token and profile immediately, then tells the backend
// in the background. The backend's answer is only logged. The returned
// error reports a local store failure; state is Unauthenticated regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	token, had := m.store.Get(ctx)
	clearErr := m.store.Clear(ctx)
	m.state = domain.StateUnauthenticated
	m.user = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)

	if clearErr != nil {
		m.logger.Error("clear token failed", "error", clearErr)
	}
	m.logger.Info("logged out")

	if had {
		m.notify.Add(1)
		go func() {
			defer m.notify.Done()
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutNotifyTimeout)
			defer cancel()
			if err := m.backend.Logout(api.WithToken(nctx, token)); err != nil {
				m.logger.Warn("backend logout failed", "error", err)
				return
			}
			m.logger.Debug("backend logout acknowledged")
		}()
	}

	if clearErr != nil {
		return fmt.Errorf("logout: %w", clearErr)
	}
	return nil
}

// HandleAuthFailure is called when a request carrying rejectedToken was
// answered 401. If that token is still the stored one the session ends.
// A rejection of a token that has since been replaced is ignored.
func (m *Manager) HandleAuthFailure(ctx context.Context, rejectedToken string) {
	m.mu.Lock()
	stored, ok := m.store.Get(ctx)
	if !ok || stored != rejectedToken {
		m.mu.Unlock()
		m.logger.Debug("ignoring stale auth failure")
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("clear token failed", "error", err)
	}
	m.state = domain.StateUnauthenticated
	m.user = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Warn("session rejected by backend")
	m.publish(snap)
}

// begin moves to Checking and returns the epoch the operation runs under
// along with the state it replaced.
func (m *Manager) begin() (uint64, Snapshot) {
	m.mu.Lock()
	prev := m.snapshotLocked()
	m.state = domain.StateChecking
	epoch := m.epoch
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return epoch, prev
}

// restore settles after a failed exchange: back to the previous session if
// there was one, Unauthenticated otherwise.
func (m *Manager) restore(epoch uint64, prev Snapshot) {
	if prev.IsAuthenticated() {
		m.settle(epoch, domain.StateAuthenticated, prev.User)
		return
	}
	m.settle(epoch, domain.StateUnauthenticated, nil)
}

// settle commits a resting state unless a Logout happened since epoch.
func (m *Manager) settle(epoch uint64, state domain.AuthState, user *domain.User) bool {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return false
	}
	m.state = state
	m.user = user
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return true
}

// commitToken stores token and sets the profile atomically with respect to
// Logout.
func (m *Manager) commitToken(ctx context.Context, epoch uint64, token string, user *domain.User) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return fmt.Errorf("exchange session: %w", domain.ErrNotAuthenticated)
	}
	if err := m.store.Set(ctx, token); err != nil {
		m.state = domain.StateUnauthenticated
		m.user = nil
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.publish(snap)
		return fmt.Errorf("store token: %w", err)
	}
	m.state = domain.StateAuthenticated
	m.user = user
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return nil
}

// invalidate drops token and profile after a failed check, unless a newer
// token or a Logout has superseded it.
func (m *Manager) invalidate(ctx context.Context, epoch uint64, token string) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if stored, ok := m.store.Get(ctx); ok && stored == token {
		if err := m.store.Clear(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("clear token failed", "error", err)
		}
	}
	m.state = domain.StateUnauthenticated
	m.user = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	var user *domain.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return Snapshot{State: m.state, User: user}
}

func (m *Manager) publish(s Snapshot) {
	m.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
