package model

import "fmt"

// ProbeResult is the classified answer of a RemoteKeyProbe call.
type ProbeResult struct {
	Outcome ProbeOutcome
	Message string
}

// NewProbeOK reports that the authority accepted the credential.
func NewProbeOK() ProbeResult {
	return ProbeResult{Outcome: ProbeOK}
}

// NewProbeRejected reports a successful call whose answer was unusable.
func NewProbeRejected(msg string) ProbeResult {
	return ProbeResult{Outcome: ProbeRejected, Message: msg}
}

// NewProbeInvalid reports that the authority refused the credential.
func NewProbeInvalid(msg string) ProbeResult {
	return ProbeResult{Outcome: ProbeInvalid, Message: msg}
}

// NewProbeIndeterminate reports that the call could neither confirm nor deny
// the credential.
func NewProbeIndeterminate(msg string) ProbeResult {
	return ProbeResult{Outcome: ProbeIndeterminate, Message: msg}
}

// InfrastructureError is returned when the authority could not be reached at
// all, so nothing can be said about the credential itself.
type InfrastructureError struct {
	Provider Provider
	Err      error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s authority unreachable: %v", e.Provider, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }
