package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTokenKey is the single key under which the bearer token is stored.
	DefaultTokenKey = "session_token"

	// DefaultAuthorizeURL is the identity endpoint the login redirect targets.
	DefaultAuthorizeURL = "https://auth.emergentagent.com/"
)

// LocalConfig holds configuration read from ~/.rizz/config.yaml
type LocalConfig struct {
	Backend    BackendConfig    `yaml:"backend"`
	Identity   IdentityConfig   `yaml:"identity"`
	Platform   PlatformConfig   `yaml:"platform"`
	Storage    StorageConfig    `yaml:"storage"`
	Resilience ResilienceConfig `yaml:"resilience"`
	LogLevel   string           `yaml:"log_level"`
}

// BackendConfig holds the coaching API settings
type BackendConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IdentityConfig holds the external identity redirect endpoint
type IdentityConfig struct {
	AuthorizeURL  string `yaml:"authorize_url"`
	RedirectParam string `yaml:"redirect_param"`
}

// PlatformConfig selects the hosting environment
type PlatformConfig struct {
	Kind                string `yaml:"kind"` // auto, web, native
	DeepLinkScheme      string `yaml:"deep_link_scheme"`
	LoopbackAddr        string `yaml:"loopback_addr"`
	LoginTimeoutSeconds int    `yaml:"login_timeout_seconds"`
}

// StorageConfig holds token persistence settings
type StorageConfig struct {
	Origin   string `yaml:"origin,omitempty"`
	TokenKey string `yaml:"token_key"`
	Key      string `yaml:"-"` // Loaded from secrets.yaml
}

// ResilienceConfig tunes the backend transport. There is no retry setting:
// a failed request is final for that attempt.
type ResilienceConfig struct {
	CircuitBreaker bool `yaml:"circuit_breaker"`
	MaxConcurrent  int  `yaml:"max_concurrent"`
	RatePerSecond  int  `yaml:"rate_per_second"`
}

// SecretsConfig holds values loaded from secrets.yaml
type SecretsConfig struct {
	Storage struct {
		Key string `yaml:"key"`
	} `yaml:"storage"`
}

// RizzDir returns the path to ~/.rizz, or $RIZZ_HOME when set
func RizzDir() (string, error) {
	if dir := os.Getenv("RIZZ_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".rizz"), nil
}

// EnsureRizzDir creates ~/.rizz and subdirectories if they don't exist
func EnsureRizzDir() (string, error) {
	dir, err := RizzDir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"storage",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0700); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

func storageDir(home string) string {
	return filepath.Join(home, "storage")
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Backend: BackendConfig{
			TimeoutSeconds: 30,
		},
		Identity: IdentityConfig{
			AuthorizeURL:  DefaultAuthorizeURL,
			RedirectParam: "redirect",
		},
		Platform: PlatformConfig{
			Kind:                "auto",
			DeepLinkScheme:      "rizzacademy",
			LoopbackAddr:        "127.0.0.1:0",
			LoginTimeoutSeconds: 300,
		},
		Storage: StorageConfig{
			TokenKey: DefaultTokenKey,
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: true,
			MaxConcurrent:  4,
			RatePerSecond:  5,
		},
		LogLevel: "info",
	}
}

// LoadLocalConfig loads configuration from ~/.rizz/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := RizzDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	configPath := filepath.Join(dir, "config.yaml")

	// If config doesn't exist, return defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultLocalConfig()
		if err := loadSecrets(dir, cfg); err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultLocalConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	return cfg, nil
}

// loadSecrets loads the storage key override from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	secretsPath := filepath.Join(dir, "secrets.yaml")

	if _, err := os.Stat(secretsPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(secretsPath)
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	cfg.Storage.Key = secrets.Storage.Key
	return nil
}

// SaveLocalConfig saves configuration to ~/.rizz/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureRizzDir()
	if err != nil {
		return err
	}
	return SaveLocalConfigTo(dir, cfg)
}

// SaveLocalConfigTo writes config.yaml into dir
func SaveLocalConfigTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveStorageKey writes the secure store key to secrets.yaml
func SaveStorageKey(dir, key string) error {
	var secrets SecretsConfig
	secrets.Storage.Key = key

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// Owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
