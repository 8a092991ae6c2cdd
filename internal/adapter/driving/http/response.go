package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ValidateKeyRequest is the JSON body for the validation endpoint.
type ValidateKeyRequest struct {
	APIKey   string `json:"apiKey"`
	Provider string `json:"provider,omitempty"`
}

// StoreKeyRequest is the JSON body for storing a user's key.
type StoreKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKeyResponse is the JSON representation of a validation verdict.
// Reason and Outcome keep rejected and indeterminate results apart for
// diagnostics even though both are reported as invalid.
type ValidateKeyResponse struct {
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

// KeyStatusResponse is the JSON representation of a stored user key.
// The key itself is never returned; Hint shows its last characters.
type KeyStatusResponse struct {
	Provider  string `json:"provider"`
	Hint      string `json:"hint"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	Outcome   string `json:"outcome"`
	CheckedAt string `json:"checkedAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AuthorizeRequest is the JSON body sent by the scheduler for each run attempt.
type AuthorizeRequest struct {
	UserID      string `json:"userId"`
	Provider    string `json:"provider,omitempty"`
	IsScheduled bool   `json:"isScheduled"`
	IsRecurring bool   `json:"isRecurring"`
}

// DecideRequest is the JSON form of an ExecutionContext.
type DecideRequest struct {
	IsScheduled       bool `json:"isScheduled"`
	IsRecurring       bool `json:"isRecurring"`
	HasStoredValidKey bool `json:"hasStoredValidKey"`
}

// PolicyDecisionResponse is the JSON representation of a PolicyDecision.
type PolicyDecisionResponse struct {
	Permitted    bool   `json:"permitted"`
	QuotaPool    string `json:"quotaPool"`
	DenialReason string `json:"denialReason,omitempty"`
}

// DecisionRecordResponse is one audit log entry.
type DecisionRecordResponse struct {
	ID                string                 `json:"id"`
	Provider          string                 `json:"provider"`
	IsScheduled       bool                   `json:"isScheduled"`
	IsRecurring       bool                   `json:"isRecurring"`
	HasStoredValidKey bool                   `json:"hasStoredValidKey"`
	Decision          PolicyDecisionResponse `json:"decision"`
	DecidedAt         string                 `json:"decidedAt"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status    string   `json:"status"`
	Time      string   `json:"time"`
	Providers []string `json:"providers"`
}

// toValidateKeyResponse converts a verdict to its response body. successMsg
// is used for valid verdicts.
func toValidateKeyResponse(v model.ValidationVerdict, successMsg string) ValidateKeyResponse {
	resp := ValidateKeyResponse{
		Valid:     v.Valid,
		Reason:    string(v.Reason),
		Outcome:   string(v.Outcome),
		CheckedAt: v.CheckedAt.UTC().Format(time.RFC3339),
	}
	if v.Valid {
		resp.Message = successMsg
	} else {
		resp.Error = verdictMessage(v)
	}
	return resp
}

// verdictMessage is the user-facing explanation of an invalid verdict.
func verdictMessage(v model.ValidationVerdict) string {
	switch v.Outcome {
	case model.VerdictFormat:
		switch model.FormatResult(v.Reason) {
		case model.MissingKey:
			return "API key is required"
		case model.BadPrefix:
			return "Invalid API key format: unexpected prefix"
		case model.TooShort:
			return "Invalid API key format: key is too short"
		}
		return "Invalid API key format"
	case model.VerdictIndeterminate:
		if v.Reason == model.ReasonRateLimited {
			return "The provider is rate limiting requests; the API key could not be verified. Try again later."
		}
		return "The API key could not be verified: " + string(v.Reason)
	default:
		if v.Reason == model.ReasonUnauthorized {
			return "Invalid API key"
		}
		return "Invalid API key: " + string(v.Reason)
	}
}

func toKeyStatusResponse(k model.UserKey) KeyStatusResponse {
	return KeyStatusResponse{
		Provider:  string(k.Provider),
		Hint:      k.Hint(),
		Valid:     k.Verdict.Valid,
		Reason:    string(k.Verdict.Reason),
		Outcome:   string(k.Verdict.Outcome),
		CheckedAt: k.Verdict.CheckedAt.UTC().Format(time.RFC3339),
		UpdatedAt: k.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toPolicyDecisionResponse(d model.PolicyDecision) PolicyDecisionResponse {
	return PolicyDecisionResponse{
		Permitted:    d.Permitted,
		QuotaPool:    string(d.QuotaPool),
		DenialReason: d.DenialReason,
	}
}

func toDecisionRecordResponse(rec model.DecisionRecord) DecisionRecordResponse {
	return DecisionRecordResponse{
		ID:                rec.ID,
		Provider:          string(rec.Provider),
		IsScheduled:       rec.Context.IsScheduled,
		IsRecurring:       rec.Context.IsRecurring,
		HasStoredValidKey: rec.Context.HasStoredValidKey,
		Decision:          toPolicyDecisionResponse(rec.Decision),
		DecidedAt:         rec.DecidedAt.UTC().Format(time.RFC3339),
	}
}
