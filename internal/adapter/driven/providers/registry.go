// Package providers assembles the per-provider format rules and remote key
// checkers into the registry used by the server and the keycheck CLI.
package providers

import (
	"fmt"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/anthropic"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/github"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/config"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// NewRegistry registers Anthropic and GitHub using the provider settings in cfg.
func NewRegistry(cfg *config.Config) (*application.ProbeRegistry, error) {
	if err := config.CheckProbeTimeout(cfg.ProbeTimeout); err != nil {
		return nil, fmt.Errorf("probe timeout %w", err)
	}
	if err := config.CheckAnthropicMaxTokens(cfg.AnthropicMaxTokens); err != nil {
		return nil, fmt.Errorf("anthropic max tokens %w", err)
	}

	anthropicProbe := anthropic.NewProbe(
		anthropic.WithBaseURL(cfg.AnthropicBaseURL),
		anthropic.WithModel(cfg.AnthropicModel),
		anthropic.WithMaxTokens(cfg.AnthropicMaxTokens),
		anthropic.WithTimeout(cfg.ProbeTimeout),
	)
	githubProbe, err := github.NewProbe(
		github.WithBaseURL(cfg.GitHubBaseURL),
		github.WithTimeout(cfg.ProbeTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create github probe: %w", err)
	}

	registry := application.NewProbeRegistry()
	registry.Register(model.ProviderAnthropic, application.AnthropicFormat, anthropicProbe)
	registry.Register(model.ProviderGitHub, application.GitHubFormat, githubProbe)
	return registry, nil
}
