package repair

import "fmt"

// UnparseableOutputError means the raw provider text could not be parsed as
// the expected structure even after recovery.
type UnparseableOutputError struct {
	Schema  string
	Message string
	Cause   error
}

func (e *UnparseableOutputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unparseable output for schema %s: %s: %v", e.Schema, e.Message, e.Cause)
	}
	return fmt.Sprintf("unparseable output for schema %s: %s", e.Schema, e.Message)
}

func (e *UnparseableOutputError) Unwrap() error {
	return e.Cause
}
