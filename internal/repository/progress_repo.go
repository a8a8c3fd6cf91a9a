package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"terratiles/internal/database"
	"terratiles/internal/models"
)

// ProgressRepository handles the per-user progress blob
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get retrieves the stored progress for a user, or (nil, nil) when absent
func (r *ProgressRepository) Get(userID string) (*models.StoredProgress, error) {
	query := `
		SELECT user_id, game_progress, last_updated
		FROM progress
		WHERE user_id = ?
	`

	stored := &models.StoredProgress{}
	var blob []byte

	err := r.db.QueryRow(query, userID).Scan(&stored.UserID, &blob, &stored.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if err := json.Unmarshal(blob, &stored.Progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress blob: %w", err)
	}
	return stored, nil
}

// Upsert writes the full progress blob for a user, inserting or replacing
// the single row keyed on user id. Saving the same value twice leaves the
// stored state unchanged.
func (r *ProgressRepository) Upsert(userID string, progress models.GameProgress) error {
	blob, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress blob: %w", err)
	}
	if err := r.db.UpsertProgress(userID, blob); err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// Delete removes a user's progress row. Deleting absent progress is not an
// error.
func (r *ProgressRepository) Delete(userID string) error {
	if _, err := r.db.Exec("DELETE FROM progress WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}
