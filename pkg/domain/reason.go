package domain

import (
	"errors"
	"strings"
)

// Reason classifies why a fallback path was taken.
type Reason string

const (
	ReasonUnitUnavailable Reason = "unit_unavailable"
	ReasonTimeout         Reason = "timeout"
	ReasonExecutionError  Reason = "execution_error"
	ReasonInvalidPayload  Reason = "invalid_payload"
)

// Reasons lists the full taxonomy, in a stable order for exporters.
func Reasons() []Reason {
	return []Reason{ReasonUnitUnavailable, ReasonTimeout, ReasonExecutionError, ReasonInvalidPayload}
}

// ClassifyFailure infers a Reason from an offload failure. Sentinel errors
// win; otherwise the message text decides ("timeout" and "invalid" are the
// recognized markers, anything else is an execution error).
func ClassifyFailure(err error) Reason {
	if err == nil {
		return ReasonExecutionError
	}
	switch {
	case errors.Is(err, ErrTaskTimeout):
		return ReasonTimeout
	case errors.Is(err, ErrExecutorUnavailable):
		return ReasonUnitUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ReasonTimeout
	case strings.Contains(msg, "invalid"):
		return ReasonInvalidPayload
	default:
		return ReasonExecutionError
	}
}
