package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	slogctx "github.com/veqryn/slog-context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// DefaultHistoryLimit caps History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// AuthorizeRequest carries the scheduler's flags for one execution attempt.
// An empty UserID means an anonymous caller, which never has a stored key.
type AuthorizeRequest struct {
	UserID      string
	Provider    model.Provider
	IsScheduled bool
	IsRecurring bool
}

// AttributionService resolves HasStoredValidKey from the key store, applies
// Decide and records the outcome in the audit log.
type AttributionService struct {
	keys      driven.UserKeyStore
	decisions driven.DecisionStore
	now       func() time.Time
}

// NewAttributionService creates a new AttributionService with the required dependencies.
func NewAttributionService(keys driven.UserKeyStore, decisions driven.DecisionStore) *AttributionService {
	return &AttributionService{
		keys:      keys,
		decisions: decisions,
		now:       time.Now,
	}
}

// Authorize decides one execution attempt. Store failures are returned as
// errors so the caller fails closed; no decision is taken without the audit
// entry being written.
func (s *AttributionService) Authorize(ctx context.Context, req AuthorizeRequest) (model.PolicyDecision, error) {
	if req.Provider == "" {
		req.Provider = model.ProviderAnthropic
	}

	execCtx := model.ExecutionContext{
		IsScheduled: req.IsScheduled,
		IsRecurring: req.IsRecurring,
	}
	if req.UserID != "" {
		ok, err := s.keys.HasValidKey(ctx, req.UserID, req.Provider)
		if err != nil {
			return model.PolicyDecision{}, fmt.Errorf("lookup stored key for %q: %w", req.UserID, err)
		}
		execCtx.HasStoredValidKey = ok
	}

	decision := Decide(execCtx)

	rec := model.DecisionRecord{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Provider:  req.Provider,
		Context:   execCtx,
		Decision:  decision,
		DecidedAt: s.now().UTC(),
	}
	if err := s.decisions.Append(ctx, rec); err != nil {
		return model.PolicyDecision{}, fmt.Errorf("record decision: %w", err)
	}

	logger := slogctx.FromCtx(ctx)
	if decision.Permitted {
		logger.Info("execution permitted", "user", req.UserID, "quota_pool", decision.QuotaPool, "automated", execCtx.IsAutomated())
	} else {
		logger.Warn("execution denied", "user", req.UserID, "reason", decision.DenialReason)
	}

	return decision, nil
}

// History returns the newest decisions recorded for userID.
func (s *AttributionService) History(ctx context.Context, userID string, limit int) ([]model.DecisionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.decisions.ListByUser(ctx, userID, limit)
}
