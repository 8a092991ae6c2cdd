package driven

import (
	"context"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// KeyProbe issues one minimal, low-cost call to a provider's authority using
// the candidate credential and classifies the answer.
//
// Every classifiable answer is returned as a ProbeResult with a nil error.
// The error return is reserved for *model.InfrastructureError (the authority
// could not be reached) and for cancellation of ctx by the caller.
type KeyProbe interface {
	Probe(ctx context.Context, candidate string) (model.ProbeResult, error)
}
