package application

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// ErrUnknownProvider is returned for providers with no registered probe.
var ErrUnknownProvider = errors.New("unknown provider")

type registryEntry struct {
	rule  FormatRule
	probe driven.KeyProbe
}

// ProbeRegistry holds the format rule and probe for each supported provider.
// Entries can be replaced at runtime (for example after a base URL change)
// without restarting; readers always see a complete entry.
type ProbeRegistry struct {
	mu      sync.RWMutex
	entries map[model.Provider]registryEntry
}

// NewProbeRegistry creates an empty registry.
func NewProbeRegistry() *ProbeRegistry {
	return &ProbeRegistry{entries: make(map[model.Provider]registryEntry)}
}

// Register adds or replaces the entry for provider.
func (r *ProbeRegistry) Register(provider model.Provider, rule FormatRule, probe driven.KeyProbe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[provider] = registryEntry{rule: rule, probe: probe}
}

// Lookup returns the rule and probe for provider, or ErrUnknownProvider.
func (r *ProbeRegistry) Lookup(provider model.Provider) (FormatRule, driven.KeyProbe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[provider]
	if !ok {
		return FormatRule{}, nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return e.rule, e.probe, nil
}

// Providers returns the registered providers in sorted order.
func (r *ProbeRegistry) Providers() []model.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Provider, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
