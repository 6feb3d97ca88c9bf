package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/cv-tailor/internal/artifact"
)

// ErrSessionNotFound is returned when no session exists for an ID.
var ErrSessionNotFound = errors.New("session not found")

// Session statuses.
const (
	SessionAwaitingConfirmation = "awaiting_confirmation"
	SessionCompleted            = "completed"
)

// CreateSession persists an analyze-phase artifact and returns the session
// ID the caller hands back to resume tailoring.
func (db *DB) CreateSession(ctx context.Context, art artifact.Artifact) (uuid.UUID, error) {
	data, err := art.JSON()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode session artifact: %w", err)
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO tailor_sessions (id, artifact, status) VALUES ($1, $2, $3)`,
		id, data, SessionAwaitingConfirmation,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// GetSession loads a persisted session artifact.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (artifact.Artifact, string, error) {
	var data []byte
	var status string
	err := db.pool.QueryRow(ctx,
		`SELECT artifact, status FROM tailor_sessions WHERE id = $1`,
		id,
	).Scan(&data, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrSessionNotFound
		}
		return nil, "", fmt.Errorf("failed to get session: %w", err)
	}

	art, err := artifact.FromJSON(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode session artifact: %w", err)
	}
	return art, status, nil
}

// UpdateSession overwrites a session's artifact and status.
func (db *DB) UpdateSession(ctx context.Context, id uuid.UUID, art artifact.Artifact, status string) error {
	data, err := art.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode session artifact: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE tailor_sessions SET artifact = $1, status = $2, updated_at = NOW() WHERE id = $3`,
		data, status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
