package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/rizz/internal/domain"
)

// QuizOption is one answer choice.
type QuizOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// QuizQuestion is one onboarding quiz question.
type QuizQuestion struct {
	ID       int          `json:"id"`
	Question string       `json:"question"`
	Options  []QuizOption `json:"options"`
}

// QuizAnswer pairs a question with the chosen option value.
type QuizAnswer struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuizResult is the archetype assessment.
type QuizResult struct {
	UserID               string   `json:"user_id"`
	Archetype            string   `json:"archetype"`
	ArchetypeTitle       string   `json:"archetype_title"`
	ArchetypeDescription string   `json:"archetype_description"`
	Strengths            []string `json:"strengths"`
	AreasToImprove       []string `json:"areas_to_improve"`
	RecommendedModules   []string `json:"recommended_modules"`
	Timestamp            Time     `json:"timestamp"`
}

// Progress is the user's XP, level and streak.
type Progress struct {
	UserID           string   `json:"user_id"`
	XP               int      `json:"xp"`
	Level            int      `json:"level"`
	StreakDays       int      `json:"streak_days"`
	LastActivity     Time     `json:"last_activity"`
	CompletedModules []string `json:"completed_modules"`
	Achievements     []string `json:"achievements"`
}

// XPUpdate is the result of awarding XP.
type XPUpdate struct {
	XP         int `json:"xp"`
	Level      int `json:"level"`
	StreakDays int `json:"streak_days"`
	XPEarned   int `json:"xp_earned"`
}

// Journal entry types accepted by the backend.
const (
	EntryJournal     = "journal"
	EntryAffirmation = "affirmation"
	EntryReflection  = "reflection"
)

// JournalEntry is one foundation-protocol entry.
type JournalEntry struct {
	EntryID   string `json:"entry_id"`
	UserID    string `json:"user_id"`
	EntryType string `json:"entry_type"`
	Content   string `json:"content"`
	Mood      string `json:"mood,omitempty"`
	Timestamp Time   `json:"timestamp"`
}

// NewJournalEntry is the body for CreateJournalEntry.
type NewJournalEntry struct {
	EntryType string `json:"entry_type"`
	Content   string `json:"content"`
	Mood      string `json:"mood,omitempty"`
}

// Validate checks the entry before it is sent.
func (e NewJournalEntry) Validate() error {
	switch e.EntryType {
	case EntryJournal, EntryAffirmation, EntryReflection:
	default:
		return fmt.Errorf("%w: entry type %q", domain.ErrInvalidInput, e.EntryType)
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}
	return nil
}

// DailyPrompts groups prompts by entry type.
type DailyPrompts struct {
	Journal     []string `json:"journal"`
	Affirmation []string `json:"affirmation"`
	Reflection  []string `json:"reflection"`
}

// Scenario is a practice conversation setting.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChatRequest sends one message in a practice conversation. An empty
// SessionID starts a new conversation.
type ChatRequest struct {
	Message   string `json:"message"`
	Scenario  string `json:"scenario"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the coach's reply.
type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Feedback  string `json:"feedback,omitempty"`
	Score     *int   `json:"score,omitempty"`
}

// ChatMessage is one turn in a conversation history.
type ChatMessage struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Scenario  string `json:"scenario"`
	Timestamp Time   `json:"timestamp"`
}

func (c *Client) QuizQuestions(ctx context.Context) ([]QuizQuestion, error) {
	var out struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/quiz/questions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func (c *Client) SubmitQuiz(ctx context.Context, answers []QuizAnswer) (*QuizResult, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no answers", domain.ErrInvalidInput)
	}
	in := struct {
		Answers []QuizAnswer `json:"answers"`
	}{Answers: answers}

	var out QuizResult
	if err := c.do(ctx, http.MethodPost, "/quiz/submit", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuizResult returns the stored result, or nil when the quiz was never taken.
func (c *Client) QuizResult(ctx context.Context) (*QuizResult, error) {
	var out *QuizResult
	if err := c.do(ctx, http.MethodGet, "/quiz/result", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, "/user/progress", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddXP awards xp to the user and returns the updated totals.
func (c *Client) AddXP(ctx context.Context, xp int) (*XPUpdate, error) {
	if xp < 0 {
		return nil, fmt.Errorf("%w: xp must not be negative", domain.ErrInvalidInput)
	}
	q := url.Values{"xp_earned": {strconv.Itoa(xp)}}

	var out XPUpdate
	if err := c.do(ctx, http.MethodPost, "/user/progress/update", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JournalEntries(ctx context.Context) ([]JournalEntry, error) {
	var out struct {
		Entries []JournalEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/foundation/entries", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) CreateJournalEntry(ctx context.Context, entry NewJournalEntry) (*JournalEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	var out JournalEntry
	if err := c.do(ctx, http.MethodPost, "/foundation/entries", nil, entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DailyPrompts(ctx context.Context) (*DailyPrompts, error) {
	var out DailyPrompts
	if err := c.do(ctx, http.MethodGet, "/foundation/prompts", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Scenarios(ctx context.Context) ([]Scenario, error) {
	var out struct {
		Scenarios []Scenario `json:"scenarios"`
	}
	if err := c.do(ctx, http.MethodGet, "/combat/scenarios", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Scenarios, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if req.Scenario == "" {
		return nil, fmt.Errorf("%w: scenario is required", domain.ErrInvalidInput)
	}
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/combat/chat", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	var out struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/combat/history/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// NewChatSession allocates a conversation id.
func (c *Client) NewChatSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/combat/new-session", nil, nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}
