package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/session"
)

// SessionManager is the part of session.Manager the tools use.
type SessionManager interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context) (session.LoginOutcome, error)
	Logout(ctx context.Context) error
	HandleDeepLink(ctx context.Context, rawURL string) (bool, error)
}

// Coach is the part of the backend client the tools use.
type Coach interface {
	Progress(ctx context.Context) (*api.Progress, error)
	DailyPrompts(ctx context.Context) (*api.DailyPrompts, error)
	Scenarios(ctx context.Context) ([]api.Scenario, error)
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	CreateJournalEntry(ctx context.Context, entry api.NewJournalEntry) (*api.JournalEntry, error)
}

// Server wraps the MCP server with Rizz Academy functionality
type Server struct {
	mcpServer *server.Server
	sessions  SessionManager
	coach     Coach
}

// Config contains configuration for the MCP server
type Config struct {
	Sessions SessionManager
	Coach    Coach
	Version  string
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		sessions: cfg.Sessions,
		coach:    cfg.Coach,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "rizz",
		Version: version,
	}, server.WithInstructions(`
Rizz Academy is a dating-confidence coaching service.
Most tools need a signed-in session; call rizz_status first and rizz_login if needed.

Available tools:
- rizz_status: Show whether a user is signed in
- rizz_login: Sign in through the browser
- rizz_logout: Sign out
- rizz_open: Finish sign-in from a redirect URL or rizzacademy:// link carrying a session_id
- rizz_progress: XP, level and streak
- rizz_prompts: Daily journal, affirmation and reflection prompts
- rizz_scenarios: Practice conversation scenarios
- rizz_chat: Send a message in a practice conversation
- rizz_journal: Save a journal entry
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("rizz_status").
		Description("Show the current sign-in state and user.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("rizz_login").
		Description("Sign in through the browser. Blocks until the user finishes or cancels.").
		Handler(s.handleLogin)

	s.mcpServer.Tool("rizz_logout").
		Description("Sign out and forget the stored session.").
		Handler(s.handleLogout)

	s.mcpServer.Tool("rizz_open").
		Description("Finish sign-in from a redirect URL or deep link that carries a session_id.").
		Handler(s.handleOpen)

	s.mcpServer.Tool("rizz_progress").
		Description("Get XP, level, streak and achievements.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("rizz_prompts").
		Description("Get today's journaling prompts.").
		Handler(s.handlePrompts)

	s.mcpServer.Tool("rizz_scenarios").
		Description("List practice conversation scenarios.").
		Handler(s.handleScenarios)

	s.mcpServer.Tool("rizz_chat").
		Description("Send a message in a practice conversation and get the coach's reply.").
		Handler(s.handleChat)

	s.mcpServer.Tool("rizz_journal").
		Description("Save a journal, affirmation or reflection entry.").
		Handler(s.handleJournal)
}

// Input/Output types for tools

type EmptyInput struct{}

type StatusOutput struct {
	State         string `json:"state"`
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
}

type LoginOutput struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

type MessageOutput struct {
	Message string `json:"message"`
}

type OpenInput struct {
	URL string `json:"url" jsonschema:"description=Redirect URL or rizzacademy:// deep link"`
}

type OpenOutput struct {
	Handled       bool   `json:"handled"`
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

type ProgressOutput struct {
	XP               int      `json:"xp"`
	Level            int      `json:"level"`
	StreakDays       int      `json:"streak_days"`
	CompletedModules []string `json:"completed_modules"`
	Achievements     []string `json:"achievements"`
}

type PromptsInput struct {
	Type string `json:"type,omitempty" jsonschema:"description=Prompt type,enum=journal,enum=affirmation,enum=reflection"`
}

type PromptsOutput struct {
	Prompts map[string][]string `json:"prompts"`
}

type ScenariosOutput struct {
	Scenarios []api.Scenario `json:"scenarios"`
}

type ChatInput struct {
	Scenario  string `json:"scenario" jsonschema:"description=Scenario ID from rizz_scenarios"`
	Message   string `json:"message" jsonschema:"description=What you say"`
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Conversation ID from a previous reply"`
}

type ChatOutput struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	Feedback  string `json:"feedback,omitempty"`
}

type JournalInput struct {
	Type    string `json:"type" jsonschema:"description=Entry type,enum=journal,enum=affirmation,enum=reflection"`
	Content string `json:"content" jsonschema:"description=Entry text"`
	Mood    string `json:"mood,omitempty" jsonschema:"description=Optional mood"`
}

type JournalOutput struct {
	EntryID string `json:"entry_id"`
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleStatus(ctx context.Context, _ EmptyInput) (StatusOutput, error) {
	snap := s.sessions.Snapshot()
	out := StatusOutput{
		State:         snap.State.String(),
		Authenticated: snap.IsAuthenticated(),
	}
	if snap.User != nil {
		out.UserID = snap.User.ID
		out.Name = snap.User.DisplayName()
		out.Email = snap.User.Email
	}
	return out, nil
}

func (s *Server) handleLogin(ctx context.Context, _ EmptyInput) (LoginOutput, error) {
	outcome, err := s.sessions.Login(ctx)
	if err != nil {
		return LoginOutput{}, fmt.Errorf("login failed: %w", err)
	}

	out := LoginOutput{Outcome: outcome.String()}
	switch outcome {
	case session.LoginAuthenticated:
		out.Message = "Signed in as " + s.sessions.Snapshot().User.DisplayName()
	case session.LoginRedirected:
		out.Message = "Continue sign-in in the browser"
	default:
		out.Message = "Sign-in cancelled"
	}
	return out, nil
}

func (s *Server) handleLogout(ctx context.Context, _ EmptyInput) (MessageOutput, error) {
	if err := s.sessions.Logout(ctx); err != nil {
		return MessageOutput{}, fmt.Errorf("logout: %w", err)
	}
	return MessageOutput{Message: "Signed out"}, nil
}

func (s *Server) handleOpen(ctx context.Context, input OpenInput) (OpenOutput, error) {
	if strings.TrimSpace(input.URL) == "" {
		return OpenOutput{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	handled, err := s.sessions.HandleDeepLink(ctx, input.URL)
	if err != nil {
		return OpenOutput{}, fmt.Errorf("open: %w", err)
	}

	snap := s.sessions.Snapshot()
	out := OpenOutput{Handled: handled, Authenticated: snap.IsAuthenticated()}
	switch {
	case !handled:
		out.Message = "No session_id in the URL; nothing to do"
	case snap.User != nil:
		out.Message = "Signed in as " + snap.User.DisplayName()
	default:
		out.Message = "Session id processed"
	}
	return out, nil
}

func (s *Server) handleProgress(ctx context.Context, _ EmptyInput) (ProgressOutput, error) {
	if err := s.requireAuth(); err != nil {
		return ProgressOutput{}, err
	}
	p, err := s.coach.Progress(ctx)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("get progress: %w", err)
	}
	return ProgressOutput{
		XP:               p.XP,
		Level:            p.Level,
		StreakDays:       p.StreakDays,
		CompletedModules: p.CompletedModules,
		Achievements:     p.Achievements,
	}, nil
}

func (s *Server) handlePrompts(ctx context.Context, input PromptsInput) (PromptsOutput, error) {
	p, err := s.coach.DailyPrompts(ctx)
	if err != nil {
		return PromptsOutput{}, fmt.Errorf("get prompts: %w", err)
	}

	all := map[string][]string{
		api.EntryJournal:     p.Journal,
		api.EntryAffirmation: p.Affirmation,
		api.EntryReflection:  p.Reflection,
	}
	kind := strings.ToLower(strings.TrimSpace(input.Type))
	if kind == "" {
		return PromptsOutput{Prompts: all}, nil
	}
	prompts, ok := all[kind]
	if !ok {
		return PromptsOutput{}, fmt.Errorf("%w: prompt type %q", domain.ErrInvalidInput, input.Type)
	}
	return PromptsOutput{Prompts: map[string][]string{kind: prompts}}, nil
}

func (s *Server) handleScenarios(ctx context.Context, _ EmptyInput) (ScenariosOutput, error) {
	scenarios, err := s.coach.Scenarios(ctx)
	if err != nil {
		return ScenariosOutput{}, fmt.Errorf("list scenarios: %w", err)
	}
	return ScenariosOutput{Scenarios: scenarios}, nil
}

func (s *Server) handleChat(ctx context.Context, input ChatInput) (ChatOutput, error) {
	if err := s.requireAuth(); err != nil {
		return ChatOutput{}, err
	}
	resp, err := s.coach.Chat(ctx, api.ChatRequest{
		Message:   input.Message,
		Scenario:  input.Scenario,
		SessionID: input.SessionID,
	})
	if err != nil {
		return ChatOutput{}, fmt.Errorf("chat: %w", err)
	}
	return ChatOutput{
		Reply:     resp.Response,
		SessionID: resp.SessionID,
		Feedback:  resp.Feedback,
	}, nil
}

func (s *Server) handleJournal(ctx context.Context, input JournalInput) (JournalOutput, error) {
	if err := s.requireAuth(); err != nil {
		return JournalOutput{}, err
	}
	entry, err := s.coach.CreateJournalEntry(ctx, api.NewJournalEntry{
		EntryType: strings.ToLower(strings.TrimSpace(input.Type)),
		Content:   input.Content,
		Mood:      input.Mood,
	})
	if err != nil {
		return JournalOutput{}, fmt.Errorf("save entry: %w", err)
	}
	return JournalOutput{EntryID: entry.EntryID, Message: "Entry saved"}, nil
}

func (s *Server) requireAuth() error {
	if !s.sessions.Snapshot().IsAuthenticated() {
		return fmt.Errorf("%w: call rizz_login first", domain.ErrNotAuthenticated)
	}
	return nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
