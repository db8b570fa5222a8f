package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

type globalFlags struct {
	backend  string
	platform string
	logLevel string
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nInterrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "rizz",
		Short: "Rizz Academy from the terminal",
		Long: `rizz signs you in to Rizz Academy and talks to the coaching backend.

The session token is kept in an encrypted local store and sent with every
request. Run 'rizz auth login' to start.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", "", "backend base URL (overrides RIZZ_BACKEND_URL and config)")
	pf.StringVar(&flags.platform, "platform", "", "platform: auto, web or native")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "also print logs to stderr")

	root.AddCommand(
		newAuthCmd(flags),
		newCoachCmd(flags),
		newConfigCmd(flags),
		newMCPCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rizz %s\n", Version)
		},
	}
}
