package models

import "time"

// User types recognised by the backend
const (
	UserTypeChild   = "child"
	UserTypeTeacher = "teacher"
	UserTypeAdmin   = "admin"
)

// AnonymousUserID is the sentinel applied to telemetry events that arrive
// without a user reference.
const AnonymousUserID = "anonymous"

// User represents a player identity. The user id is an opaque string
// generated client-side, so the same record serves both server-created
// identities and lazily-healed orphan references.
type User struct {
	UserID           string     `json:"user_id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"display_name"`
	Age              *int       `json:"age,omitempty"`
	School           string     `json:"school,omitempty"`
	DeviceID         string     `json:"device_id"`
	UserType         string     `json:"user_type"`
	RegistrationDate time.Time  `json:"registration_date"`
	LastActive       *time.Time `json:"last_active,omitempty"`
	IsActive         bool       `json:"is_active"`

	// Scalar stats derived from the progress blob on every save
	TotalGamesPlayed int `json:"total_games_played"`
	TotalScore       int `json:"total_score"`
	HighestLevel     int `json:"highest_level"`
}

// GameSession is one completed-level record, appended when a player
// finishes a level. These rows feed the dashboard's total-games count and
// the per-user recent-session listing.
type GameSession struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	Level           int       `json:"level"`
	Stars           int       `json:"stars"`
	ScoreGained     int       `json:"score_gained"`
	PlayTimeMinutes int       `json:"play_time_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}
