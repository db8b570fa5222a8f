package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Env holds the process-level settings read from the environment.
// Values here override config.yaml.
type Env struct {
	BackendURL string `env:"RIZZ_BACKEND_URL"`
	Platform   string `env:"RIZZ_PLATFORM"`
	Home       string `env:"RIZZ_HOME"`
	LogLevel   string `env:"RIZZ_LOG_LEVEL"`
}

// LoadEnv reads an optional .env file from the working directory and then
// parses the environment. A missing .env is not an error.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Settings is the resolved configuration the client runs with. It is
// built once at startup and not reloaded.
type Settings struct {
	BackendURL    string
	AuthorizeURL  string
	RedirectParam string

	Platform       string
	DeepLinkScheme string
	LoopbackAddr   string
	LoginTimeout   int // seconds

	Home       string
	StorageDir string
	Origin     string
	TokenKey   string
	StoreKey   string // secure store key override from secrets.yaml

	RequestTimeout int // seconds
	Resilience     ResilienceConfig

	LogLevel string
}

// Resolve merges env over the local file config and validates the result.
func Resolve(e *Env, local *LocalConfig, home string) (*Settings, error) {
	if local == nil {
		local = DefaultLocalConfig()
	}
	if e == nil {
		e = &Env{}
	}

	s := &Settings{
		BackendURL:     local.Backend.URL,
		AuthorizeURL:   local.Identity.AuthorizeURL,
		RedirectParam:  local.Identity.RedirectParam,
		Platform:       local.Platform.Kind,
		DeepLinkScheme: local.Platform.DeepLinkScheme,
		LoopbackAddr:   local.Platform.LoopbackAddr,
		LoginTimeout:   local.Platform.LoginTimeoutSeconds,
		Home:           home,
		Origin:         local.Storage.Origin,
		TokenKey:       local.Storage.TokenKey,
		StoreKey:       local.Storage.Key,
		RequestTimeout: local.Backend.TimeoutSeconds,
		Resilience:     local.Resilience,
		LogLevel:       local.LogLevel,
	}

	if e.BackendURL != "" {
		s.BackendURL = e.BackendURL
	}
	if e.Platform != "" {
		s.Platform = e.Platform
	}
	if e.LogLevel != "" {
		s.LogLevel = e.LogLevel
	}

	s.BackendURL = strings.TrimRight(s.BackendURL, "/")
	if err := validateBaseURL(s.BackendURL); err != nil {
		return nil, err
	}
	if s.AuthorizeURL == "" {
		return nil, fmt.Errorf("identity.authorize_url must be set")
	}
	if s.RedirectParam == "" {
		s.RedirectParam = "redirect"
	}
	if s.Origin == "" {
		s.Origin = s.BackendURL
	}
	if s.TokenKey == "" {
		s.TokenKey = DefaultTokenKey
	}
	s.StorageDir = storageDir(home)

	return s, nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("backend URL must be set (RIZZ_BACKEND_URL or backend.url)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend URL %q has no host", raw)
	}
	return nil
}
