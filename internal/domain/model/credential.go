package model

import (
	"strings"
	"time"
)

// Credential is a candidate secret together with the results of its
// syntactic checks. Raw is never logged.
type Credential struct {
	Raw         string
	PrefixValid bool
	LengthValid bool
}

// ValidationReason explains a verdict. Format failures reuse the
// FormatResult text; probe failures carry the authority's message.
type ValidationReason string

const (
	ReasonNone          ValidationReason = ""
	ReasonUnauthorized  ValidationReason = "unauthorized"
	ReasonEmptyResponse ValidationReason = "empty response"
	ReasonRateLimited   ValidationReason = "rate-limited"
)

// ValidationVerdict is the immutable result of validating one candidate.
type ValidationVerdict struct {
	Valid     bool
	Reason    ValidationReason
	Outcome   VerdictOutcome
	CheckedAt time.Time
}

// UserKey is a user's stored provider key with the verdict it was saved under.
// Value is plaintext at the domain boundary; the store encrypts it.
type UserKey struct {
	UserID    string
	Provider  Provider
	Value     string
	Verdict   ValidationVerdict
	UpdatedAt time.Time
}

// Hint returns a masked form of the key that is safe to display and log.
func (k UserKey) Hint() string {
	return MaskKey(k.Value)
}

// MaskKey keeps the last four characters of a secret and masks the rest.
func MaskKey(raw string) string {
	const visible = 4
	if len(raw) <= visible {
		return strings.Repeat("*", len(raw))
	}
	return "..." + raw[len(raw)-visible:]
}
