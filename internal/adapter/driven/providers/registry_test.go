package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/anthropic"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/github"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/config"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

func TestDefaultsAgreeWithAdapters(t *testing.T) {
	assert.Equal(t, anthropic.DefaultModel, config.DefaultAnthropicModel)
	assert.Equal(t, anthropic.DefaultMaxTokens, config.DefaultAnthropicMaxTokens)
	assert.Equal(t, anthropic.DefaultMaxTokens, config.MaxAnthropicMaxTokens)
	assert.Equal(t, anthropic.DefaultTimeout, config.DefaultProbeTimeout)
	assert.Equal(t, github.DefaultTimeout, config.DefaultProbeTimeout)
}

func TestNewRegistry_Defaults(t *testing.T) {
	registry, err := NewRegistry(config.Default())

	require.NoError(t, err)
	assert.Equal(t, []model.Provider{model.ProviderAnthropic, model.ProviderGitHub}, registry.Providers())
}

func TestNewRegistry_RejectsInvalidSettings(t *testing.T) {
	cfg := config.Default()
	cfg.AnthropicMaxTokens = 50
	_, err := NewRegistry(cfg)
	assert.ErrorContains(t, err, "anthropic max tokens must be between 1 and 10")

	cfg = config.Default()
	cfg.ProbeTimeout = 0
	_, err = NewRegistry(cfg)
	assert.ErrorContains(t, err, "probe timeout must be positive")
}

func TestNewRegistry_AnthropicSettingsReachRequest(t *testing.T) {
	var body struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hi"}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.AnthropicBaseURL = srv.URL
	cfg.AnthropicModel = "claude-3-5-haiku-latest"
	cfg.AnthropicMaxTokens = 3

	registry, err := NewRegistry(cfg)
	require.NoError(t, err)
	_, checker, err := registry.Lookup(model.ProviderAnthropic)
	require.NoError(t, err)

	res, err := checker.Probe(context.Background(), "sk-ant-REDACTED")

	require.NoError(t, err)
	assert.Equal(t, model.ProbeOK, res.Outcome)
	assert.Equal(t, "claude-3-5-haiku-latest", body.Model)
	assert.Equal(t, 3, body.MaxTokens)
}
