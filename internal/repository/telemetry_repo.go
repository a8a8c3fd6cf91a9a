package repository

import (
	"database/sql"
	"fmt"

	"terratiles/internal/database"
	"terratiles/internal/models"
)

// TelemetryRepository handles the append-only telemetry table
type TelemetryRepository struct {
	db *database.DB
}

// NewTelemetryRepository creates a new telemetry repository
func NewTelemetryRepository(db *database.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Insert appends one event
func (r *TelemetryRepository) Insert(event *models.TelemetryEvent) error {
	query := `
		INSERT INTO telemetry (
			user_id, kind, message, context, severity, game_level, resolved,
			image_name, attempted_label, correct_label, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		event.UserID,
		event.Kind,
		event.Message,
		event.Context,
		event.Severity,
		event.GameLevel,
		event.Resolved,
		event.ImageName,
		event.AttemptedLabel,
		event.CorrectLabel,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry event: %w", err)
	}
	event.ID = id
	return nil
}

const telemetryColumns = `
	id, user_id, kind, message, COALESCE(context, ''), severity,
	COALESCE(game_level, 0), resolved, COALESCE(image_name, ''),
	COALESCE(attempted_label, ''), COALESCE(correct_label, ''), created_at
`

// RecentForUser returns a user's newest events, newest first
func (r *TelemetryRepository) RecentForUser(userID string, limit int) ([]models.TelemetryEvent, error) {
	query := "SELECT " + telemetryColumns + `
		FROM telemetry
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent telemetry: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentClassifications returns the newest classification events
func (r *TelemetryRepository) RecentClassifications(limit int) ([]models.TelemetryEvent, error) {
	query := "SELECT " + telemetryColumns + `
		FROM telemetry
		WHERE kind IN (?, ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, models.EventClassificationSuccess, models.EventClassificationFailure, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.TelemetryEvent, error) {
	var events []models.TelemetryEvent
	for rows.Next() {
		var e models.TelemetryEvent
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Kind,
			&e.Message,
			&e.Context,
			&e.Severity,
			&e.GameLevel,
			&e.Resolved,
			&e.ImageName,
			&e.AttemptedLabel,
			&e.CorrectLabel,
			&e.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
