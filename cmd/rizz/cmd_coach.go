package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/domain"
)

func newCoachCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Quiz, progress, journal and practice chat",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON")

	// authed runs fn after the stored session is validated.
	authed := func(fn func(ctx context.Context, cmd *cobra.Command, a *app) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, flags, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				v, err := fn(ctx, cmd, a)
				if err != nil || v == nil {
					return err
				}
				return render(cmd.OutOrStdout(), v, asJSON)
			})
		}
	}
	public := func(fn func(ctx context.Context, cmd *cobra.Command, a *app) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, flags, func(ctx context.Context, a *app) error {
				v, err := fn(ctx, cmd, a)
				if err != nil || v == nil {
					return err
				}
				return render(cmd.OutOrStdout(), v, asJSON)
			})
		}
	}

	quiz := &cobra.Command{Use: "quiz", Short: "Archetype quiz"}
	quiz.AddCommand(
		&cobra.Command{
			Use:   "questions",
			Short: "List the quiz questions",
			Args:  cobra.NoArgs,
			RunE: authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.QuizQuestions(ctx)
			}),
		},
		&cobra.Command{
			Use:   "submit <question_id=answer>...",
			Short: "Submit quiz answers",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				answers, err := parseAnswers(args)
				if err != nil {
					return err
				}
				return authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
					return a.client.SubmitQuiz(ctx, answers)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "result",
			Short: "Show the saved quiz result",
			Args:  cobra.NoArgs,
			RunE: authed(func(ctx context.Context, cmd *cobra.Command, a *app) (any, error) {
				res, err := a.client.QuizResult(ctx)
				if err != nil {
					return nil, err
				}
				if res == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No quiz result yet. Run 'rizz coach quiz questions'.")
					return nil, nil
				}
				return res, nil
			}),
		},
	)

	progress := &cobra.Command{
		Use:   "progress",
		Short: "Show XP, level and streak",
		Args:  cobra.NoArgs,
		RunE: authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
			return a.client.Progress(ctx)
		}),
	}

	xp := &cobra.Command{
		Use:   "xp <amount>",
		Short: "Award XP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: xp must be a number", domain.ErrInvalidInput)
			}
			return authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.AddXP(ctx, n)
			})(cmd, args)
		},
	}

	journal := &cobra.Command{Use: "journal", Short: "Foundation protocol journal"}
	journalAdd := &cobra.Command{
		Use:   "add <content>",
		Short: "Write a journal entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("type")
			mood, _ := cmd.Flags().GetString("mood")
			entry := api.NewJournalEntry{
				EntryType: kind,
				Content:   strings.Join(args, " "),
				Mood:      mood,
			}
			if err := entry.Validate(); err != nil {
				return err
			}
			return authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.CreateJournalEntry(ctx, entry)
			})(cmd, args)
		},
	}
	journalAdd.Flags().String("type", api.EntryJournal, "entry type: journal, affirmation or reflection")
	journalAdd.Flags().String("mood", "", "optional mood")
	journal.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List journal entries",
			Args:  cobra.NoArgs,
			RunE: authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.JournalEntries(ctx)
			}),
		},
		journalAdd,
	)

	prompts := &cobra.Command{
		Use:   "prompts",
		Short: "Show today's prompts",
		Args:  cobra.NoArgs,
		RunE: public(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
			return a.client.DailyPrompts(ctx)
		}),
	}

	scenarios := &cobra.Command{
		Use:   "scenarios",
		Short: "List practice scenarios",
		Args:  cobra.NoArgs,
		RunE: public(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
			return a.client.Scenarios(ctx)
		}),
	}

	chat := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message in a practice conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, _ := cmd.Flags().GetString("scenario")
			sessionID, _ := cmd.Flags().GetString("session")
			req := api.ChatRequest{
				Message:   strings.Join(args, " "),
				Scenario:  scenario,
				SessionID: sessionID,
			}
			return authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.Chat(ctx, req)
			})(cmd, args)
		},
	}
	chat.Flags().String("scenario", "coffee_shop", "scenario id (see 'rizz coach scenarios')")
	chat.Flags().String("session", "", "continue an existing conversation")

	history := &cobra.Command{
		Use:   "history <session_id>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return authed(func(ctx context.Context, _ *cobra.Command, a *app) (any, error) {
				return a.client.ChatHistory(ctx, args[0])
			})(cmd, args)
		},
	}

	newSession := &cobra.Command{
		Use:   "new-session",
		Short: "Start a new conversation and print its id",
		Args:  cobra.NoArgs,
		RunE: authed(func(ctx context.Context, cmd *cobra.Command, a *app) (any, error) {
			id, err := a.client.NewChatSession(ctx)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil, nil
		}),
	}

	health := &cobra.Command{
		Use:   "health",
		Short: "Check the backend",
		Args:  cobra.NoArgs,
		RunE: public(func(ctx context.Context, cmd *cobra.Command, a *app) (any, error) {
			status, err := a.client.Health(ctx)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.client.BaseURL(), status)
			return nil, nil
		}),
	}

	cmd.AddCommand(quiz, progress, xp, journal, prompts, scenarios, chat, history, newSession, health)
	return cmd
}

// parseAnswers reads "3=b" style arguments.
func parseAnswers(args []string) ([]api.QuizAnswer, error) {
	answers := make([]api.QuizAnswer, 0, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return nil, fmt.Errorf("%w: answer %q must look like <question_id>=<value>", domain.ErrInvalidInput, arg)
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("%w: question id %q", domain.ErrInvalidInput, id)
		}
		answers = append(answers, api.QuizAnswer{QuestionID: n, Answer: value})
	}
	return answers, nil
}

func render(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	switch v := v.(type) {
	case *api.Progress:
		fmt.Fprintf(w, "Level %d  XP %d  Streak %d days\n", v.Level, v.XP, v.StreakDays)
		if len(v.Achievements) > 0 {
			fmt.Fprintf(w, "Achievements: %s\n", strings.Join(v.Achievements, ", "))
		}
	case *api.XPUpdate:
		fmt.Fprintf(w, "+%d XP  (now %d, level %d)\n", v.XPEarned, v.XP, v.Level)
	case []api.QuizQuestion:
		for _, q := range v {
			fmt.Fprintf(w, "%d. %s\n", q.ID, q.Question)
			for _, o := range q.Options {
				fmt.Fprintf(w, "   %s) %s\n", o.Value, o.Text)
			}
		}
	case *api.QuizResult:
		fmt.Fprintf(w, "%s\n%s\n", v.ArchetypeTitle, v.ArchetypeDescription)
		if len(v.Strengths) > 0 {
			fmt.Fprintf(w, "Strengths: %s\n", strings.Join(v.Strengths, ", "))
		}
		if len(v.AreasToImprove) > 0 {
			fmt.Fprintf(w, "Work on: %s\n", strings.Join(v.AreasToImprove, ", "))
		}
	case []api.JournalEntry:
		if len(v) == 0 {
			fmt.Fprintln(w, "No entries yet.")
		}
		for _, e := range v {
			fmt.Fprintf(w, "[%s] %s  %s\n", e.EntryType, e.Timestamp.Format("2006-01-02"), e.Content)
		}
	case *api.JournalEntry:
		fmt.Fprintf(w, "Saved %s entry %s\n", v.EntryType, v.EntryID)
	case *api.DailyPrompts:
		printPromptGroup(w, "Journal", v.Journal)
		printPromptGroup(w, "Affirmation", v.Affirmation)
		printPromptGroup(w, "Reflection", v.Reflection)
	case []api.Scenario:
		for _, s := range v {
			fmt.Fprintf(w, "%-16s %s: %s\n", s.ID, s.Name, s.Description)
		}
	case *api.ChatResponse:
		fmt.Fprintln(w, v.Response)
		if v.Feedback != "" {
			fmt.Fprintf(w, "\nFeedback: %s\n", v.Feedback)
		}
		if v.Score != nil {
			fmt.Fprintf(w, "Score: %d/10\n", *v.Score)
		}
		fmt.Fprintf(w, "(session %s)\n", v.SessionID)
	case []api.ChatMessage:
		for _, m := range v {
			fmt.Fprintf(w, "%s: %s\n", m.Role, m.Content)
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return nil
}

func printPromptGroup(w io.Writer, title string, prompts []string) {
	if len(prompts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, p := range prompts {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
