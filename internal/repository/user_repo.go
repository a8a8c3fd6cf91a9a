package repository

import (
	"database/sql"
	"fmt"
	"time"

	"terratiles/internal/database"
	"terratiles/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	user_id, username, email, display_name, age, COALESCE(school, ''),
	COALESCE(device_id, ''), user_type, registration_date, last_active,
	is_active, total_games_played, total_score, highest_level
`

// CreateUser inserts a new user record
func (r *UserRepository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (
			user_id, username, email, display_name, age, school, device_id,
			user_type, registration_date, last_active, is_active,
			total_games_played, total_score, highest_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		user.UserID,
		user.Username,
		user.Email,
		user.DisplayName,
		user.Age,
		user.School,
		user.DeviceID,
		user.UserType,
		user.RegistrationDate,
		user.LastActive,
		user.IsActive,
		user.TotalGamesPlayed,
		user.TotalScore,
		user.HighestLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id, or (nil, nil) when absent
func (r *UserRepository) GetByID(userID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE user_id = ?"

	user := &models.User{}
	var age sql.NullInt64
	var lastActive sql.NullTime

	err := r.db.QueryRow(query, userID).Scan(
		&user.UserID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&age,
		&user.School,
		&user.DeviceID,
		&user.UserType,
		&user.RegistrationDate,
		&lastActive,
		&user.IsActive,
		&user.TotalGamesPlayed,
		&user.TotalScore,
		&user.HighestLevel,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if age.Valid {
		a := int(age.Int64)
		user.Age = &a
	}
	if lastActive.Valid {
		user.LastActive = &lastActive.Time
	}
	return user, nil
}

// EnsureUser materialises a minimal user record for an id referenced by a
// telemetry or progress row before the user itself was created. Existing
// rows are left untouched. This is the orphan-healing operation; callers
// invoke it deliberately at the storage boundary.
func (r *UserRepository) EnsureUser(userID string) error {
	existing, err := r.GetByID(userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	user := &models.User{
		UserID:           userID,
		Username:         userID,
		Email:            userID + "@unknown.local",
		DisplayName:      userID,
		UserType:         models.UserTypeChild,
		RegistrationDate: now,
		LastActive:       &now,
		IsActive:         true,
	}
	return r.CreateUser(user)
}

// UpdateActivity bumps a user's last-active timestamp
func (r *UserRepository) UpdateActivity(userID string, lastActive time.Time) error {
	result, err := r.db.Exec("UPDATE users SET last_active = ? WHERE user_id = ?", lastActive, userID)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateScalarStats overwrites the derived scalar columns on the user row.
// Values come from the progress blob; this is the only write path for them.
func (r *UserRepository) UpdateScalarStats(userID string, gamesPlayed, totalScore, highestLevel int) error {
	query := `
		UPDATE users SET
			total_games_played = ?,
			total_score = ?,
			highest_level = ?,
			last_active = ?
		WHERE user_id = ?
	`
	_, err := r.db.Exec(query, gamesPlayed, totalScore, highestLevel, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update scalar stats: %w", err)
	}
	return nil
}

// Count returns the number of user rows
func (r *UserRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// DeactivateStale flags users inactive when their last activity predates
// the cutoff. Returns how many rows changed.
func (r *UserRepository) DeactivateStale(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(
		"UPDATE users SET is_active = ? WHERE is_active = ? AND last_active IS NOT NULL AND last_active < ?",
		false, true, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale users: %w", err)
	}
	return result.RowsAffected()
}
