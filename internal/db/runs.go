package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/cv-tailor/internal/pipeline"
)

// CreateRun records the start of a pipeline run and returns its ID.
func (db *DB) CreateRun(ctx context.Context, workflow, company, roleTitle string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tailor_runs (id, workflow, company, role_title, status)
		 VALUES ($1, $2, $3, $4, 'running')`,
		id, workflow, company, roleTitle,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// FinishRun records a pipeline run's terminal state.
func (db *DB) FinishRun(ctx context.Context, id uuid.UUID, run *pipeline.Run) error {
	var failedStage, errText string
	if run.Err != nil {
		failedStage = run.FailedStage
		errText = run.Err.Error()
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE tailor_runs
		 SET status = $1, failed_stage = NULLIF($2, ''), error = NULLIF($3, ''), completed_at = NOW()
		 WHERE id = $4`,
		string(run.Status), failedStage, errText, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}
