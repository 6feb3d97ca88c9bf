package pipeline

import "fmt"

// ErrorKind classifies fatal stage failures.
type ErrorKind string

// Stage error kinds.
const (
	// ErrContractViolation means a stage received an artifact missing
	// declared required sources. This is a programming error in pipeline
	// wiring, not a runtime data-quality issue.
	ErrContractViolation ErrorKind = "contract_violation"
	// ErrProviderUnavailable means both provider endpoints failed.
	// Retryable by the caller.
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	// ErrInvalidGeneration means the provider responded but its output
	// could not be coerced into the required schema even after repair.
	// Retrying the same stage may succeed due to sampling variance.
	ErrInvalidGeneration ErrorKind = "invalid_generation"
)

// StageError is a fatal error produced by a stage. The orchestrator aborts
// the run at the first StageError.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Cause)
	}
	return fmt.Sprintf("stage %s failed (%s)", e.Stage, e.Kind)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
