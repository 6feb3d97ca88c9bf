package pipeline

import (
	"context"

	"github.com/jonathan/cv-tailor/internal/artifact"
)

// Status is the terminal state of a pipeline run.
type Status string

// Run statuses.
const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Run is one complete execution record of a stage sequence. Created at
// invocation, returned to the caller, never shared across runs.
type Run struct {
	Results []StageResult
	Status  Status
	// FailedStage and Err are set only when Status is StatusAborted.
	FailedStage string
	Err         *StageError
	// Final is the merged artifact after the last successful stage.
	Final artifact.Artifact
}

// Warnings returns all non-fatal warnings accumulated across stages, in
// stage order.
func (r *Run) Warnings() []string {
	var all []string
	for _, res := range r.Results {
		all = append(all, res.Warnings...)
	}
	return all
}

// Execute runs stages strictly sequentially, threading the growing artifact
// forward. Each stage's produced fields are merged on top of (never
// deleting) prior fields, so late stages retain access to early-stage
// context. Aborts on the first stage error; no subsequent stage executes.
func Execute(ctx context.Context, stages []Stage, seed artifact.Artifact) *Run {
	run := &Run{Status: StatusCompleted}
	current := seed.Clone()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			run.Status = StatusAborted
			run.FailedStage = stage.Name()
			run.Err = &StageError{Stage: stage.Name(), Kind: ErrProviderUnavailable, Cause: err}
			break
		}

		result := stage.Run(ctx, current)
		run.Results = append(run.Results, result)

		if result.Err != nil {
			run.Status = StatusAborted
			run.FailedStage = stage.Name()
			run.Err = result.Err
			break
		}

		current = current.Merge(result.Artifact)
	}

	run.Final = current
	return run
}
