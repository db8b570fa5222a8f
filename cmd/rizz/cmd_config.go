package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rizz/internal/config"
	"github.com/felixgeelhaar/rizz/internal/tokenstore"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create ~/.rizz/config.yaml",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}
			return printSettings(cmd, s)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.yaml with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _ := cmd.Flags().GetString("backend-url")
			force, _ := cmd.Flags().GetBool("force")
			withKey, _ := cmd.Flags().GetBool("generate-key")
			return runConfigInit(cmd, backend, force, withKey)
		},
	}
	initCmd.Flags().String("backend-url", "", "backend base URL to write into config.yaml")
	initCmd.Flags().Bool("force", false, "overwrite an existing config.yaml")
	initCmd.Flags().Bool("generate-key", false, "also write a secure store key to secrets.yaml")

	cmd.AddCommand(show, initCmd)
	return cmd
}

func runConfigInit(cmd *cobra.Command, backend string, force, withKey bool) error {
	home, err := config.EnsureRizzDir()
	if err != nil {
		return err
	}

	path := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	cfg := config.DefaultLocalConfig()
	cfg.Backend.URL = backend
	if err := config.SaveLocalConfigTo(home, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	if withKey {
		key, err := tokenstore.GenerateKey()
		if err != nil {
			return err
		}
		if err := config.SaveStorageKey(home, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Join(home, "secrets.yaml"))
	}
	return nil
}

// settingsView is the printable form of Settings. The store key is never
// shown.
type settingsView struct {
	Backend        string `yaml:"backend"`
	AuthorizeURL   string `yaml:"authorize_url"`
	RedirectParam  string `yaml:"redirect_param"`
	Platform       string `yaml:"platform"`
	DeepLinkScheme string `yaml:"deep_link_scheme"`
	LoopbackAddr   string `yaml:"loopback_addr"`
	LoginTimeout   int    `yaml:"login_timeout_seconds"`
	Home           string `yaml:"home"`
	StorageDir     string `yaml:"storage_dir"`
	Origin         string `yaml:"origin"`
	TokenKey       string `yaml:"token_key"`
	StoreKeySet    bool   `yaml:"store_key_set"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	CircuitBreaker bool   `yaml:"circuit_breaker"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	RatePerSecond  int    `yaml:"rate_per_second"`
	LogLevel       string `yaml:"log_level"`
}

func printSettings(cmd *cobra.Command, s *config.Settings) error {
	v := settingsView{
		Backend:        s.BackendURL,
		AuthorizeURL:   s.AuthorizeURL,
		RedirectParam:  s.RedirectParam,
		Platform:       s.Platform,
		DeepLinkScheme: s.DeepLinkScheme,
		LoopbackAddr:   s.LoopbackAddr,
		LoginTimeout:   s.LoginTimeout,
		Home:           s.Home,
		StorageDir:     s.StorageDir,
		Origin:         s.Origin,
		TokenKey:       s.TokenKey,
		StoreKeySet:    s.StoreKey != "",
		RequestTimeout: s.RequestTimeout,
		CircuitBreaker: s.Resilience.CircuitBreaker,
		MaxConcurrent:  s.Resilience.MaxConcurrent,
		RatePerSecond:  s.Resilience.RatePerSecond,
		LogLevel:       s.LogLevel,
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}
