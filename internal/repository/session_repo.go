package repository

import (
	"fmt"
	"time"

	"terratiles/internal/database"
	"terratiles/internal/models"
)

// SessionRepository handles completed-level session records
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert appends a completed-level record
func (r *SessionRepository) Insert(session *models.GameSession) error {
	query := `
		INSERT INTO sessions (user_id, level, stars, score_gained, play_time_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		session.UserID,
		session.Level,
		session.Stars,
		session.ScoreGained,
		session.PlayTimeMinutes,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	session.ID = id
	return nil
}

// RecentForUser returns a user's newest sessions, newest first
func (r *SessionRepository) RecentForUser(userID string, limit int) ([]models.GameSession, error) {
	query := `
		SELECT id, user_id, level, stars, score_gained, play_time_minutes, created_at
		FROM sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.GameSession
	for rows.Next() {
		var s models.GameSession
		err := rows.Scan(&s.ID, &s.UserID, &s.Level, &s.Stars, &s.ScoreGained, &s.PlayTimeMinutes, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Count returns the total number of session rows
func (r *SessionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// DistinctUsers counts users with at least one session
func (r *SessionRepository) DistinctUsers() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(DISTINCT user_id) FROM sessions").Scan(&count)
	return count, err
}

// DistinctUsersSince counts users with a session after the cutoff
func (r *SessionRepository) DistinctUsersSince(cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(DISTINCT user_id) FROM sessions WHERE created_at >= ?", cutoff).Scan(&count)
	return count, err
}

// AveragePlayTime returns the mean play time across all sessions in minutes
func (r *SessionRepository) AveragePlayTime() (float64, error) {
	var avg float64
	err := r.db.QueryRow("SELECT COALESCE(AVG(play_time_minutes), 0) FROM sessions").Scan(&avg)
	return avg, err
}
