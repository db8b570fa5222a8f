package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/platform"
	"github.com/felixgeelhaar/rizz/internal/session"
)

func newAuthCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and inspect the session",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "login",
			Short: "Sign in through the browser",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp(cmd, flags, func(ctx context.Context, a *app) error {
					return runLogin(ctx, cmd, a)
				})
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out and forget the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp(cmd, flags, func(ctx context.Context, a *app) error {
					if err := a.manager.Logout(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show who is signed in",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp(cmd, flags, func(ctx context.Context, a *app) error {
					if err := a.manager.Resolve(ctx, ""); err != nil {
						return err
					}
					printStatus(cmd, a.manager.Snapshot(), a)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "open <url>",
			Short: "Complete a login from a redirect or deep link URL",
			Long: `open hands a URL that carries a session_id (the identity provider's
redirect, or a rizzacademy:// deep link) to the session manager.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp(cmd, flags, func(ctx context.Context, a *app) error {
					if !acceptsInboundURL(args[0], a.settings.DeepLinkScheme) {
						return fmt.Errorf("%w: %s is not a deep link or http(s) URL", domain.ErrInvalidInput, session.StripSessionID(args[0]))
					}
					if err := a.manager.Resolve(ctx, args[0]); err != nil {
						return err
					}
					printStatus(cmd, a.manager.Snapshot(), a)
					return nil
				})
			},
		},
	)
	return cmd
}

func runLogin(ctx context.Context, cmd *cobra.Command, a *app) error {
	if err := a.manager.Resolve(ctx, ""); err != nil {
		return err
	}
	if a.manager.IsAuthenticated() {
		fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s.\n", a.manager.User().DisplayName())
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Opening the browser to sign in...")
	outcome, err := a.manager.Login(ctx)
	if err != nil {
		return err
	}

	switch outcome {
	case session.LoginAuthenticated:
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", a.manager.User().DisplayName())
	case session.LoginRedirected:
		fmt.Fprintln(cmd.OutOrStdout(), "Finish signing in in the browser, then run 'rizz auth open <redirect-url>'.")
	case session.LoginCancelled:
		fmt.Fprintln(cmd.OutOrStdout(), "Login cancelled.")
	}
	return nil
}

func printStatus(cmd *cobra.Command, snap session.Snapshot, a *app) {
	out := cmd.OutOrStdout()
	if !snap.IsAuthenticated() {
		fmt.Fprintf(out, "Not signed in (%s).\n", snap.State)
		return
	}
	u := snap.User
	fmt.Fprintf(out, "Signed in as %s\n", u.DisplayName())
	fmt.Fprintf(out, "  user:     %s\n", u.ID)
	fmt.Fprintf(out, "  email:    %s\n", u.Email)
	if u.HasPicture() {
		fmt.Fprintf(out, "  picture:  %s\n", u.Picture)
	}
	fmt.Fprintf(out, "  platform: %s\n", a.kind)
	fmt.Fprintf(out, "  backend:  %s\n", a.settings.BackendURL)
}

func acceptsInboundURL(raw, scheme string) bool {
	if platform.IsDeepLink(raw, scheme) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
