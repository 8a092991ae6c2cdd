package model

// Provider identifies the external authority that issued a credential.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderGitHub    Provider = "github"
)

// FormatResult is the outcome of a purely syntactic credential check.
type FormatResult string

const (
	FormatOK   FormatResult = "ok"
	MissingKey FormatResult = "missing key"
	BadPrefix  FormatResult = "bad prefix"
	TooShort   FormatResult = "too short"
)

// ProbeOutcome classifies the authority's answer to a single probe call.
type ProbeOutcome string

const (
	ProbeOK            ProbeOutcome = "ok"
	ProbeRejected      ProbeOutcome = "rejected"      // Authority answered but the answer proves nothing usable.
	ProbeInvalid       ProbeOutcome = "invalid"       // Authority refused the credential.
	ProbeIndeterminate ProbeOutcome = "indeterminate" // Authority could not confirm or deny (rate limit, transient error).
)

// VerdictOutcome keeps the internal distinction between the ways a
// validation can end. Valid is false for every outcome except VerdictValid.
type VerdictOutcome string

const (
	VerdictValid         VerdictOutcome = "valid"
	VerdictFormat        VerdictOutcome = "format"
	VerdictRejected      VerdictOutcome = "rejected"
	VerdictIndeterminate VerdictOutcome = "indeterminate"
)

// QuotaPool is the billing bucket charged for an execution.
type QuotaPool string

const (
	QuotaUserOwned QuotaPool = "user-owned"
	QuotaPlatform  QuotaPool = "platform"
	QuotaNone      QuotaPool = "none"
)
