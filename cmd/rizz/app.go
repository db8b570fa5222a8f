package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rizz/internal/api"
	"github.com/felixgeelhaar/rizz/internal/config"
	"github.com/felixgeelhaar/rizz/internal/domain"
	"github.com/felixgeelhaar/rizz/internal/platform"
	"github.com/felixgeelhaar/rizz/internal/session"
	"github.com/felixgeelhaar/rizz/internal/tokenstore"
)

// app is the wired client: one token store, one backend client and the
// session manager that owns them.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	logFile  *os.File
	kind     domain.PlatformKind
	store    tokenstore.Store
	client   *api.Client
	manager  *session.Manager
}

// loadSettings resolves env, .env, config.yaml and flags.
func loadSettings(flags *globalFlags) (*config.Settings, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	home, err := config.EnsureRizzDir()
	if err != nil {
		return nil, err
	}

	local, err := config.LoadLocalConfigFrom(home)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.backend != "" {
		env.BackendURL = flags.backend
	}
	if flags.platform != "" {
		env.Platform = flags.platform
	}
	if flags.logLevel != "" {
		env.LogLevel = flags.logLevel
	}

	return config.Resolve(env, local, home)
}

func newApp(ctx context.Context, flags *globalFlags, stderr io.Writer) (*app, error) {
	settings, err := loadSettings(flags)
	if err != nil {
		return nil, err
	}

	logFile, logger, err := setupLogging(settings.Home, parseLogLevel(settings.LogLevel), flags.verbose, stderr)
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, logger: logger, logFile: logFile}

	a.kind, err = platform.Detect(settings.Platform)
	if err != nil {
		a.close()
		return nil, err
	}

	a.store, err = tokenstore.Open(ctx, a.kind, tokenstore.Options{
		Dir:       settings.StorageDir,
		Origin:    settings.Origin,
		Key:       settings.TokenKey,
		SecretKey: settings.StoreKey,
		Logger:    logger,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open token store: %w", err)
	}

	a.client, err = api.NewClient(api.ClientConfig{
		BaseURL: settings.BackendURL,
		Tokens:  a.store,
		Timeout: time.Duration(settings.RequestTimeout) * time.Second,
		Resilience: &api.ResilientConfig{
			EnableCircuitBreaker: settings.Resilience.CircuitBreaker,
			MaxConcurrent:        settings.Resilience.MaxConcurrent,
			RatePerSecond:        settings.Resilience.RatePerSecond,
		},
		Logger: logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.manager = session.NewManager(session.Config{
		Store:    a.store,
		Backend:  a.client,
		Platform: newPlatform(a.kind, settings, logger),
		Identity: session.Identity{
			AuthorizeURL:  settings.AuthorizeURL,
			RedirectParam: settings.RedirectParam,
		},
		Logger: logger,
	})
	a.client.OnUnauthorized(a.manager.HandleAuthFailure)

	logger.Debug("client ready",
		"backend", settings.BackendURL,
		"platform", a.kind,
		"store", a.store.Kind())
	return a, nil
}

func newPlatform(kind domain.PlatformKind, s *config.Settings, logger *slog.Logger) platform.Platform {
	if kind == domain.PlatformWeb {
		return &platform.Web{AppURL: s.Origin, Navigator: platform.SystemBrowser{}}
	}
	return &platform.Native{Session: &platform.LoopbackSession{
		Addr:      s.LoopbackAddr,
		Timeout:   time.Duration(s.LoginTimeout) * time.Second,
		Navigator: platform.SystemBrowser{},
		Logger:    logger,
	}}
}

// requireSession validates the stored token and fails when nobody is
// signed in.
func (a *app) requireSession(ctx context.Context) (*domain.User, error) {
	if err := a.manager.Resolve(ctx, ""); err != nil {
		return nil, err
	}
	snap := a.manager.Snapshot()
	if !snap.IsAuthenticated() {
		return nil, fmt.Errorf("%w: run 'rizz auth login'", domain.ErrNotAuthenticated)
	}
	return snap.User, nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Wait()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close token store", "error", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// runApp builds the app for one command run and tears it down after.
func runApp(cmd *cobra.Command, flags *globalFlags, run func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	return run(ctx, a)
}
