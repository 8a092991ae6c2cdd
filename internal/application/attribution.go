package application

import "github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"

// DenialAutomatedWithoutKey is the denial reason for unattended runs that are
// not backed by a verified user-owned key.
const DenialAutomatedWithoutKey = "automated execution requires a verified user-owned key"

// Decide maps an execution context to a policy decision. Rows are evaluated
// top to bottom; the first match wins:
//
//	automated && no stored valid key -> denied, no quota pool
//	stored valid key                 -> permitted, user-owned quota
//	otherwise (manual, no key)       -> permitted, platform quota
func Decide(ctx model.ExecutionContext) model.PolicyDecision {
	switch {
	case ctx.IsAutomated() && !ctx.HasStoredValidKey:
		return model.PolicyDecision{
			Permitted:    false,
			QuotaPool:    model.QuotaNone,
			DenialReason: DenialAutomatedWithoutKey,
		}
	case ctx.HasStoredValidKey:
		return model.PolicyDecision{Permitted: true, QuotaPool: model.QuotaUserOwned}
	default:
		return model.PolicyDecision{Permitted: true, QuotaPool: model.QuotaPlatform}
	}
}
