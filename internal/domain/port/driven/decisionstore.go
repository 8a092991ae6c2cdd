package driven

import (
	"context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// DecisionStore defines the driven port for the append-only attribution audit log.
type DecisionStore interface {
	Append(ctx context.Context, rec model.DecisionRecord) error
	// ListByUser returns the newest records first, at most limit of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.DecisionRecord, error)
}
