// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "KEYGATE_"

// Defaults shared by the server and the keycheck CLI.
const (
	DefaultListenAddr         = "127.0.0.1:8080"
	DefaultDBPath             = "keygate.db"
	DefaultProbeTimeout       = 10 * time.Second
	DefaultAnthropicModel     = "claude-3-haiku-20240307"
	DefaultAnthropicMaxTokens = 10
	DefaultLogFormat          = "text"

	// MaxAnthropicMaxTokens caps the output budget of a validation call.
	MaxAnthropicMaxTokens = 10
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	// SecretKey is the 32-byte AES-256 key for stored user keys; nil disables storage.
	SecretKey []byte

	ProbeTimeout       time.Duration
	AnthropicBaseURL   string
	AnthropicModel     string
	AnthropicMaxTokens int
	GitHubBaseURL      string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// HasSecretKey returns true when user key storage is enabled.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) == 32
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:         DefaultListenAddr,
		DBPath:             DefaultDBPath,
		ProbeTimeout:       DefaultProbeTimeout,
		AnthropicModel:     DefaultAnthropicModel,
		AnthropicMaxTokens: DefaultAnthropicMaxTokens,
		LogLevel:           slog.LevelInfo,
		LogFormat:          DefaultLogFormat,
	}
}

// CheckProbeTimeout rejects non-positive timeouts.
func CheckProbeTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

// CheckAnthropicMaxTokens rejects budgets outside 1..MaxAnthropicMaxTokens.
func CheckAnthropicMaxTokens(n int) error {
	if n < 1 || n > MaxAnthropicMaxTokens {
		return fmt.Errorf("must be between 1 and %d, got %d", MaxAnthropicMaxTokens, n)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional; unset ones keep the values from Default.
func Load() (*Config, error) {
	cfg := Default()

	if v, ok := lookup("LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookup("DB_PATH"); ok {
		cfg.DBPath = v
	}
	cfg.AnthropicBaseURL, _ = lookup("ANTHROPIC_BASE_URL")
	cfg.GitHubBaseURL, _ = lookup("GITHUB_BASE_URL")
	if v, ok := lookup("ANTHROPIC_MODEL"); ok {
		cfg.AnthropicModel = v
	}

	if v, ok := lookup("SECRET_KEY"); ok {
		key, err := ParseSecretKey(v)
		if err != nil {
			return nil, err
		}
		cfg.SecretKey = key
	}

	if v, ok := lookup("PROBE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%sPROBE_TIMEOUT has invalid duration %q: %w", envPrefix, v, err)
		}
		if err := CheckProbeTimeout(d); err != nil {
			return nil, fmt.Errorf("%sPROBE_TIMEOUT %w", envPrefix, err)
		}
		cfg.ProbeTimeout = d
	}

	if v, ok := lookup("ANTHROPIC_MAX_TOKENS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%sANTHROPIC_MAX_TOKENS has invalid integer %q: %w", envPrefix, v, err)
		}
		if err := CheckAnthropicMaxTokens(n); err != nil {
			return nil, fmt.Errorf("%sANTHROPIC_MAX_TOKENS %w", envPrefix, err)
		}
		cfg.AnthropicMaxTokens = n
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%sLOG_LEVEL has invalid level %q: %w", envPrefix, v, err)
		}
	}

	if v, ok := lookup("LOG_FORMAT"); ok {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return nil, fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", envPrefix, v)
		}
		cfg.LogFormat = v
	}

	return cfg, nil
}

// ParseSecretKey accepts either 64 hex characters or exactly 32 raw bytes.
func ParseSecretKey(v string) ([]byte, error) {
	if len(v) == 64 {
		if key, err := hex.DecodeString(v); err == nil {
			return key, nil
		}
	}
	if len(v) == 32 {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("%sSECRET_KEY must be 64 hex characters or 32 bytes, got %d characters", envPrefix, len(v))
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// lookup returns the trimmed value of KEYGATE_<name>; empty values count as unset.
func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
