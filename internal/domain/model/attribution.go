package model

import "time"

// ExecutionContext describes one execution attempt as seen by the scheduler.
type ExecutionContext struct {
	IsScheduled       bool
	IsRecurring       bool
	HasStoredValidKey bool
}

// IsAutomated reports whether the run was triggered without direct user action.
func (c ExecutionContext) IsAutomated() bool {
	return c.IsScheduled || c.IsRecurring
}

// PolicyDecision is produced fresh for every execution attempt and never cached.
type PolicyDecision struct {
	Permitted    bool
	QuotaPool    QuotaPool
	DenialReason string
}

// DecisionRecord is an append-only audit entry for a decision taken on
// behalf of a user.
type DecisionRecord struct {
	ID        string
	UserID    string
	Provider  Provider
	Context   ExecutionContext
	Decision  PolicyDecision
	DecidedAt time.Time
}
