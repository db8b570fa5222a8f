package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/mcp"
	"github.com/felixgeelhaar/rizz/internal/session"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the coaching tools over MCP",
		Long: `mcp starts an MCP server on stdio for use by AI assistants.
With --http it listens on the given address instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("http")
			return runApp(cmd, flags, func(ctx context.Context, a *app) error {
				stop := a.manager.Subscribe(logTransitions(a.logger))
				defer stop()

				// A stale token is dropped here; tools report signed-out.
				if err := a.manager.Resolve(ctx, ""); err != nil {
					a.logger.Warn("session check failed", "error", err)
				}

				srv := mcp.NewServer(mcp.Config{
					Sessions: a.manager,
					Coach:    a.client,
					Version:  Version,
				})

				if addr != "" {
					a.logger.Info("mcp server listening", "addr", addr)
					return srv.ServeHTTP(ctx, addr)
				}
				return srv.ServeStdio(ctx)
			})
		},
	}
	cmd.Flags().String("http", "", "serve over HTTP on this address instead of stdio")
	return cmd
}

// logTransitions logs settled state changes, skipping repeats and the
// Checking states in between.
func logTransitions(logger *slog.Logger) func(session.Snapshot) {
	var mu sync.Mutex
	last := domain.StateUnknown
	return func(snap session.Snapshot) {
		if !snap.State.Settled() {
			return
		}
		mu.Lock()
		changed := snap.State != last
		last = snap.State
		mu.Unlock()
		if !changed {
			return
		}
		attrs := []any{"state", snap.State.String()}
		if snap.User != nil {
			attrs = append(attrs, "user_id", snap.User.ID)
		}
		logger.Info("session state changed", attrs...)
	}
}
