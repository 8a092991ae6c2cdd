package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/singleflight"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// ValidationOption configures a CredentialValidationService.
type ValidationOption func(*CredentialValidationService)

// WithClock overrides the clock used for CheckedAt.
func WithClock(now func() time.Time) ValidationOption {
	return func(s *CredentialValidationService) {
		s.now = now
	}
}

// CredentialValidationService runs the format check and, when it passes,
// exactly one remote probe, and folds both into a ValidationVerdict.
type CredentialValidationService struct {
	registry *ProbeRegistry
	now      func() time.Time
	inflight singleflight.Group
}

// NewCredentialValidationService creates a service resolving probes through registry.
func NewCredentialValidationService(registry *ProbeRegistry, opts ...ValidationOption) *CredentialValidationService {
	s := &CredentialValidationService{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate validates an Anthropic key.
func (s *CredentialValidationService) Validate(ctx context.Context, candidate string) (model.ValidationVerdict, error) {
	return s.ValidateFor(ctx, model.ProviderAnthropic, candidate)
}

// ValidateFor validates candidate for provider. Malformed or refused keys
// are reported in the verdict; the error is non-nil only for an unknown
// provider, an unreachable authority (*model.InfrastructureError) or caller
// cancellation.
func (s *CredentialValidationService) ValidateFor(ctx context.Context, provider model.Provider, candidate string) (model.ValidationVerdict, error) {
	rule, probe, err := s.registry.Lookup(provider)
	if err != nil {
		return model.ValidationVerdict{}, err
	}

	logger := slogctx.FromCtx(ctx).With("provider", provider)

	cred := rule.Inspect(candidate)
	if res := rule.Check(cred.Raw); res != model.FormatOK {
		logger.Info("key rejected by format check", "reason", res)
		return s.verdict(false, model.ValidationReason(res), model.VerdictFormat), nil
	}

	logger = logger.With("key", model.MaskKey(cred.Raw))

	result, err := s.probeOnce(ctx, provider, probe, cred.Raw)
	if err != nil {
		var infraErr *model.InfrastructureError
		if errors.As(err, &infraErr) {
			logger.Error("key probe could not reach authority", "error", err)
		}
		return model.ValidationVerdict{}, err
	}

	v := s.fromProbe(result)
	switch v.Outcome {
	case model.VerdictValid:
		logger.Info("key validated")
	case model.VerdictIndeterminate:
		logger.Warn("key validity indeterminate", "reason", v.Reason)
	default:
		logger.Info("key rejected by authority", "reason", v.Reason)
	}
	return v, nil
}

// probeOnce lets concurrent validations of the same key share one in-flight
// probe. The shared call is detached from any single caller's cancellation;
// the probe's own timeout bounds it.
func (s *CredentialValidationService) probeOnce(ctx context.Context, provider model.Provider, probe driven.KeyProbe, candidate string) (model.ProbeResult, error) {
	sum := sha256.Sum256([]byte(candidate))
	key := string(provider) + ":" + hex.EncodeToString(sum[:])

	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		return probe.Probe(detached, candidate)
	})

	select {
	case <-ctx.Done():
		return model.ProbeResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.ProbeResult{}, res.Err
		}
		return res.Val.(model.ProbeResult), nil
	}
}

func (s *CredentialValidationService) fromProbe(r model.ProbeResult) model.ValidationVerdict {
	msg := model.ValidationReason(r.Message)
	switch r.Outcome {
	case model.ProbeOK:
		return s.verdict(true, model.ReasonNone, model.VerdictValid)
	case model.ProbeInvalid:
		return s.verdict(false, model.ReasonUnauthorized, model.VerdictRejected)
	case model.ProbeRejected:
		if msg == "" {
			msg = model.ReasonEmptyResponse
		}
		return s.verdict(false, msg, model.VerdictRejected)
	default:
		// Indeterminate, and anything a probe failed to classify, is never accepted.
		if msg == "" {
			msg = model.ValidationReason(model.ProbeIndeterminate)
		}
		return s.verdict(false, msg, model.VerdictIndeterminate)
	}
}

func (s *CredentialValidationService) verdict(valid bool, reason model.ValidationReason, outcome model.VerdictOutcome) model.ValidationVerdict {
	return model.ValidationVerdict{
		Valid:     valid,
		Reason:    reason,
		Outcome:   outcome,
		CheckedAt: s.now().UTC(),
	}
}
