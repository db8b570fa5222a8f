package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/session"
)

// mockSessions is a canned SessionManager
type mockSessions struct {
	snap       session.Snapshot
	outcome    session.LoginOutcome
	loginErr   error
	logoutErr  error
	loggedOut  bool
	loginCalls int
	linkErr    error
	links      []string
}

func (m *mockSessions) Snapshot() session.Snapshot { return m.snap }

func (m *mockSessions) Login(context.Context) (session.LoginOutcome, error) {
	m.loginCalls++
	if m.loginErr == nil && m.outcome == session.LoginAuthenticated {
		m.snap = signedIn()
	}
	return m.outcome, m.loginErr
}

func (m *mockSessions) Logout(context.Context) error {
	m.loggedOut = true
	m.snap = session.Snapshot{State: domain.StateUnauthenticated}
	return m.logoutErr
}

func (m *mockSessions) HandleDeepLink(_ context.Context, rawURL string) (bool, error) {
	m.links = append(m.links, rawURL)
	if _, ok := session.ExtractSessionID(rawURL); !ok {
		return false, nil
	}
	if m.linkErr != nil {
		return true, m.linkErr
	}
	m.snap = signedIn()
	return true, nil
}

// mockCoach is a canned Coach
type mockCoach struct {
	chatReq  api.ChatRequest
	entry    api.NewJournalEntry
	err      error
	progress *api.Progress
}

func (m *mockCoach) Progress(context.Context) (*api.Progress, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.progress, nil
}

func (m *mockCoach) DailyPrompts(context.Context) (*api.DailyPrompts, error) {
	return &api.DailyPrompts{Journal: []string{"j"}, Affirmation: []string{"a"}, Reflection: []string{"r"}}, nil
}

func (m *mockCoach) Scenarios(context.Context) ([]api.Scenario, error) {
	return []api.Scenario{{ID: "coffee_shop", Name: "Coffee Shop"}}, nil
}

func (m *mockCoach) Chat(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	m.chatReq = req
	return &api.ChatResponse{Response: "hey there", SessionID: "c1", Feedback: "nice"}, nil
}

func (m *mockCoach) CreateJournalEntry(_ context.Context, e api.NewJournalEntry) (*api.JournalEntry, error) {
	m.entry = e
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &api.JournalEntry{EntryID: "e1"}, nil
}

func signedIn() session.Snapshot {
	return session.Snapshot{
		State: domain.StateAuthenticated,
		User:  &domain.User{ID: "u1", Email: "a@b.com", Name: "A B"},
	}
}

func setupTestServer(t *testing.T, snap session.Snapshot) (*Server, *mockSessions, *mockCoach) {
	t.Helper()
	sessions := &mockSessions{snap: snap}
	coach := &mockCoach{progress: &api.Progress{XP: 120, Level: 1, StreakDays: 3}}
	return NewServer(Config{Sessions: sessions, Coach: coach, Version: "test"}), sessions, coach
}

func TestNewServer(t *testing.T) {
	server, _, _ := setupTestServer(t, session.Snapshot{})

	require.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.GetMCPServer())
}

func TestServerConfig(t *testing.T) {
	// Nil dependencies should not panic at construction
	assert.NotNil(t, NewServer(Config{}))
}

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name     string
		snap     session.Snapshot
		wantAuth bool
		wantName string
	}{
		{"signed in", signedIn(), true, "A B"},
		{"signed out", session.Snapshot{State: domain.StateUnauthenticated}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, _ := setupTestServer(t, tt.snap)

			out, err := server.handleStatus(context.Background(), EmptyInput{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, out.Authenticated)
			assert.Equal(t, tt.wantName, out.Name)
			assert.Equal(t, tt.snap.State.String(), out.State)
		})
	}
}

func TestHandleLogin(t *testing.T) {
	tests := []struct {
		outcome session.LoginOutcome
		want    string
	}{
		{session.LoginAuthenticated, "Signed in as A B"},
		{session.LoginRedirected, "Continue sign-in in the browser"},
		{session.LoginCancelled, "Sign-in cancelled"},
	}
	for _, tt := range tests {
		server, sessions, _ := setupTestServer(t, session.Snapshot{State: domain.StateUnauthenticated})
		sessions.outcome = tt.outcome

		out, err := server.handleLogin(context.Background(), EmptyInput{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out.Message)
		assert.Equal(t, tt.outcome.String(), out.Outcome)
	}
}

func TestHandleLogin_Error(t *testing.T) {
	server, sessions, _ := setupTestServer(t, session.Snapshot{})
	sessions.loginErr = errors.New("exchange failed")
	sessions.outcome = session.LoginFailed

	_, err := server.handleLogin(context.Background(), EmptyInput{})
	assert.Error(t, err)
}

func TestHandleLogout(t *testing.T) {
	server, sessions, _ := setupTestServer(t, signedIn())

	_, err := server.handleLogout(context.Background(), EmptyInput{})
	require.NoError(t, err)
	assert.True(t, sessions.loggedOut, "expected Logout to be called")
}

func TestHandleProgress(t *testing.T) {
	server, _, _ := setupTestServer(t, signedIn())

	out, err := server.handleProgress(context.Background(), EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, 120, out.XP)
	assert.Equal(t, 3, out.StreakDays)
}

func TestAuthenticatedTools_RequireSession(t *testing.T) {
	server, _, _ := setupTestServer(t, session.Snapshot{State: domain.StateUnauthenticated})
	ctx := context.Background()

	_, err := server.handleProgress(ctx, EmptyInput{})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = server.handleChat(ctx, ChatInput{Scenario: "x", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = server.handleJournal(ctx, JournalInput{Type: "journal", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestHandlePrompts(t *testing.T) {
	server, _, _ := setupTestServer(t, session.Snapshot{})
	ctx := context.Background()

	all, err := server.handlePrompts(ctx, PromptsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Prompts, 3)

	one, err := server.handlePrompts(ctx, PromptsInput{Type: "Affirmation"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, one.Prompts["affirmation"])

	_, err = server.handlePrompts(ctx, PromptsInput{Type: "poem"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleScenarios(t *testing.T) {
	server, _, _ := setupTestServer(t, session.Snapshot{})

	out, err := server.handleScenarios(context.Background(), EmptyInput{})
	require.NoError(t, err)
	require.Len(t, out.Scenarios, 1)
	assert.Equal(t, "coffee_shop", out.Scenarios[0].ID)
}

func TestHandleChat(t *testing.T) {
	server, _, coach := setupTestServer(t, signedIn())

	out, err := server.handleChat(context.Background(), ChatInput{Scenario: "coffee_shop", Message: "hi", SessionID: "c0"})
	require.NoError(t, err)
	assert.Equal(t, "hey there", out.Reply)
	assert.Equal(t, "c1", out.SessionID)
	assert.Equal(t, "nice", out.Feedback)
	assert.Equal(t, "c0", coach.chatReq.SessionID)
	assert.Equal(t, "coffee_shop", coach.chatReq.Scenario)
}

func TestHandleJournal(t *testing.T) {
	server, _, coach := setupTestServer(t, signedIn())
	ctx := context.Background()

	out, err := server.handleJournal(ctx, JournalInput{Type: " Journal ", Content: "today went well", Mood: "good"})
	require.NoError(t, err)
	assert.Equal(t, "e1", out.EntryID)
	assert.Equal(t, "journal", coach.entry.EntryType)

	_, err = server.handleJournal(ctx, JournalInput{Type: "diary", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleOpen(t *testing.T) {
	server, sessions, _ := setupTestServer(t, session.Snapshot{State: domain.StateUnauthenticated})
	ctx := context.Background()

	out, err := server.handleOpen(ctx, OpenInput{URL: "rizzacademy://auth#session_id=abc"})
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.True(t, out.Authenticated)
	assert.Equal(t, []string{"rizzacademy://auth#session_id=abc"}, sessions.links)

	out, err = server.handleOpen(ctx, OpenInput{URL: "rizzacademy://settings"})
	require.NoError(t, err)
	assert.False(t, out.Handled)

	_, err = server.handleOpen(ctx, OpenInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleOpen_ExchangeError(t *testing.T) {
	server, sessions, _ := setupTestServer(t, session.Snapshot{State: domain.StateUnauthenticated})
	sessions.linkErr = domain.ErrUnauthorized

	_, err := server.handleOpen(context.Background(), OpenInput{URL: "https://app.example/#session_id=x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
