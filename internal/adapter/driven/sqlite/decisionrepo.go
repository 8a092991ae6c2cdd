package sqlite

import (
	"context"
	"fmt"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DecisionStore = (*DecisionRepo)(nil)

// DecisionRepo is the SQLite implementation of the DecisionStore port interface.
type DecisionRepo struct {
	db *DB
}

// NewDecisionRepo creates a new DecisionRepo.
func NewDecisionRepo(db *DB) *DecisionRepo {
	return &DecisionRepo{db: db}
}

// Append inserts one audit record. Records are never updated.
func (r *DecisionRepo) Append(ctx context.Context, rec model.DecisionRecord) error {
	const query = `INSERT INTO policy_decisions
		(id, user_id, provider, is_scheduled, is_recurring, has_stored_valid_key, permitted, quota_pool, denial_reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		string(rec.Provider),
		boolToInt(rec.Context.IsScheduled),
		boolToInt(rec.Context.IsRecurring),
		boolToInt(rec.Context.HasStoredValidKey),
		boolToInt(rec.Decision.Permitted),
		string(rec.Decision.QuotaPool),
		rec.Decision.DenialReason,
		formatTime(rec.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("append decision %s: %w", rec.ID, err)
	}
	return nil
}

// ListByUser returns the newest records for userID first, at most limit of them.
func (r *DecisionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.DecisionRecord, error) {
	const query = `SELECT id, user_id, provider, is_scheduled, is_recurring, has_stored_valid_key,
			permitted, quota_pool, denial_reason, decided_at
		FROM policy_decisions
		WHERE user_id = ?
		ORDER BY decided_at DESC, id
		LIMIT ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions for %q: %w", userID, err)
	}
	defer rows.Close()

	recs := []model.DecisionRecord{}
	for rows.Next() {
		var (
			rec                                     model.DecisionRecord
			provider, quotaPool, decidedAt          string
			scheduled, recurring, hasKey, permitted int
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &provider, &scheduled, &recurring, &hasKey,
			&permitted, &quotaPool, &rec.Decision.DenialReason, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}

		rec.Provider = model.Provider(provider)
		rec.Context = model.ExecutionContext{
			IsScheduled:       scheduled == 1,
			IsRecurring:       recurring == 1,
			HasStoredValidKey: hasKey == 1,
		}
		rec.Decision.Permitted = permitted == 1
		rec.Decision.QuotaPool = model.QuotaPool(quotaPool)

		if rec.DecidedAt, err = parseTime(decidedAt); err != nil {
			return nil, fmt.Errorf("parse decided_at for decision %s: %w", rec.ID, err)
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return recs, nil
}
