package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// --- mockProbe ---

type mockProbe struct {
	result model.ProbeResult
	err    error
	calls  atomic.Int32
	// block, when non-nil, holds every call until closed.
	block chan struct{}
	seen  []string
	mu    sync.Mutex
}

func (m *mockProbe) Probe(_ context.Context, candidate string) (model.ProbeResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, candidate)
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	return m.result, m.err
}

func newValidator(probe driven.KeyProbe) *CredentialValidationService {
	registry := NewProbeRegistry()
	registry.Register(model.ProviderAnthropic, AnthropicFormat, probe)
	return NewCredentialValidationService(registry)
}

// --- mockKeyStore ---

type storeKey struct {
	user     string
	provider model.Provider
}

type mockKeyStore struct {
	mu       sync.Mutex
	keys     map[storeKey]model.UserKey
	saveErr  error
	validErr error
}

func newMockKeyStore() *mockKeyStore {
	return &mockKeyStore{keys: make(map[storeKey]model.UserKey)}
}

func (m *mockKeyStore) Save(_ context.Context, key model.UserKey) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[storeKey{key.UserID, key.Provider}] = key
	return nil
}

func (m *mockKeyStore) Get(_ context.Context, userID string, provider model.Provider) (*model.UserKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[storeKey{userID, provider}]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (m *mockKeyStore) UpdateVerdict(_ context.Context, userID string, provider model.Provider, verdict model.ValidationVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[storeKey{userID, provider}]
	if !ok {
		return driven.ErrKeyNotFound
	}
	k.Verdict = verdict
	m.keys[storeKey{userID, provider}] = k
	return nil
}

func (m *mockKeyStore) HasValidKey(_ context.Context, userID string, provider model.Provider) (bool, error) {
	if m.validErr != nil {
		return false, m.validErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[storeKey{userID, provider}]
	return ok && k.Verdict.Valid, nil
}

func (m *mockKeyStore) Delete(_ context.Context, userID string, provider model.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[storeKey{userID, provider}]; !ok {
		return driven.ErrKeyNotFound
	}
	delete(m.keys, storeKey{userID, provider})
	return nil
}

// --- mockDecisionStore ---

type mockDecisionStore struct {
	mu        sync.Mutex
	records   []model.DecisionRecord
	appendErr error
	lastLimit int
}

func (m *mockDecisionStore) Append(_ context.Context, rec model.DecisionRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockDecisionStore) ListByUser(_ context.Context, userID string, limit int) ([]model.DecisionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []model.DecisionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}
