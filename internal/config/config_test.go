package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every KEYGATE_ env var that Load() reads.
var allConfigKeys = []string{
	"KEYGATE_LISTEN_ADDR",
	"KEYGATE_DB_PATH",
	"KEYGATE_SECRET_KEY",
	"KEYGATE_PROBE_TIMEOUT",
	"KEYGATE_ANTHROPIC_BASE_URL",
	"KEYGATE_ANTHROPIC_MODEL",
	"KEYGATE_ANTHROPIC_MAX_TOKENS",
	"KEYGATE_GITHUB_BASE_URL",
	"KEYGATE_LOG_LEVEL",
	"KEYGATE_LOG_FORMAT",
}

// isolateConfigEnv saves and unsets all KEYGATE_ env vars so tests don't
// inherit values from the host environment.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "keygate.db", cfg.DBPath)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.AnthropicModel)
	assert.Equal(t, 10, cfg.AnthropicMaxTokens)
	assert.Empty(t, cfg.AnthropicBaseURL)
	assert.Empty(t, cfg.GitHubBaseURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.HasSecretKey())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("KEYGATE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("KEYGATE_DB_PATH", "/tmp/test.db")
	t.Setenv("KEYGATE_SECRET_KEY", strings.Repeat("ab", 32))
	t.Setenv("KEYGATE_PROBE_TIMEOUT", "3s")
	t.Setenv("KEYGATE_ANTHROPIC_BASE_URL", "http://proxy.local")
	t.Setenv("KEYGATE_ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	t.Setenv("KEYGATE_ANTHROPIC_MAX_TOKENS", "5")
	t.Setenv("KEYGATE_GITHUB_BASE_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("KEYGATE_LOG_LEVEL", "debug")
	t.Setenv("KEYGATE_LOG_FORMAT", "JSON")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.True(t, cfg.HasSecretKey())
	assert.Equal(t, byte(0xab), cfg.SecretKey[0])
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "http://proxy.local", cfg.AnthropicBaseURL)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.AnthropicModel)
	assert.Equal(t, 5, cfg.AnthropicMaxTokens)
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHubBaseURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("KEYGATE_LISTEN_ADDR", "   ")
	t.Setenv("KEYGATE_PROBE_TIMEOUT", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr string
	}{
		{"KEYGATE_PROBE_TIMEOUT", "soon", "invalid duration"},
		{"KEYGATE_PROBE_TIMEOUT", "-1s", "must be positive"},
		{"KEYGATE_PROBE_TIMEOUT", "0s", "must be positive"},
		{"KEYGATE_ANTHROPIC_MAX_TOKENS", "ten", "invalid integer"},
		{"KEYGATE_ANTHROPIC_MAX_TOKENS", "0", "between 1 and 10"},
		{"KEYGATE_ANTHROPIC_MAX_TOKENS", "11", "between 1 and 10"},
		{"KEYGATE_LOG_LEVEL", "verbose", "invalid level"},
		{"KEYGATE_LOG_FORMAT", "xml", "text or json"},
		{"KEYGATE_SECRET_KEY", "too-short", "64 hex characters or 32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_MatchesLoadWithoutEnv(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestCheckAnthropicMaxTokens(t *testing.T) {
	assert.NoError(t, CheckAnthropicMaxTokens(1))
	assert.NoError(t, CheckAnthropicMaxTokens(MaxAnthropicMaxTokens))
	assert.ErrorContains(t, CheckAnthropicMaxTokens(0), "between 1 and 10")
	assert.ErrorContains(t, CheckAnthropicMaxTokens(MaxAnthropicMaxTokens+1), "between 1 and 10")
}

func TestCheckProbeTimeout(t *testing.T) {
	assert.NoError(t, CheckProbeTimeout(time.Millisecond))
	assert.ErrorContains(t, CheckProbeTimeout(0), "must be positive")
}

func TestParseSecretKey(t *testing.T) {
	hexKey, err := ParseSecretKey(strings.Repeat("0f", 32))
	require.NoError(t, err)
	assert.Len(t, hexKey, 32)
	assert.Equal(t, byte(0x0f), hexKey[31])

	raw, err := ParseSecretKey(strings.Repeat("k", 32))
	require.NoError(t, err)
	assert.Equal(t, []byte(strings.Repeat("k", 32)), raw)

	// 64 characters that are not hex are rejected rather than truncated.
	_, err = ParseSecretKey(strings.Repeat("z", 64))
	assert.Error(t, err)
}

func TestNewLogger_Format(t *testing.T) {
	stderr := os.Stderr
	t.Cleanup(func() { os.Stderr = stderr })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w

	cfg := &Config{LogLevel: slog.LevelWarn, LogFormat: "json"}
	logger := cfg.NewLogger()
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}
