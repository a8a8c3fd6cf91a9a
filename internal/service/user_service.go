package service

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"terratiles/internal/models"
	"terratiles/internal/repository"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameInvalid  = errors.New("username must be 2-32 letters, digits, spaces or hyphens")
	ErrUserNotFound     = errors.New("user not found")
	ErrStatsInvalid     = errors.New("invalid session stats")
)

var usernamePattern = regexp.MustCompile(`^[\p{L}0-9' -]{2,32}$`)

// UserService handles player identity business logic
type UserService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, sessionRepo *repository.SessionRepository) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// CreateChildRequest carries the fields a client sends when registering a
// new player identity. Only the username is mandatory.
type CreateChildRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Age         *int   `json:"age"`
	School      string `json:"school"`
	DeviceID    string `json:"device_id"`
}

// CreateChild registers a new child identity. The server mints the opaque
// user id; the synthetic email exists only to satisfy the unique column and
// is never mailed to.
func (s *UserService) CreateChild(req CreateChildRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	school := strings.TrimSpace(req.School)
	domain := slugify(school)
	if domain == "" {
		domain = "unknown"
	}

	now := time.Now().UTC()
	user := &models.User{
		UserID:           fmt.Sprintf("child_%s", uuid.NewString()),
		Username:         username,
		Email:            fmt.Sprintf("%s@%s.local", slugify(username), domain),
		DisplayName:      displayName,
		Age:              req.Age,
		School:           school,
		DeviceID:         strings.TrimSpace(req.DeviceID),
		UserType:         models.UserTypeChild,
		RegistrationDate: now,
		LastActive:       &now,
		IsActive:         true,
	}

	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by id
func (s *UserService) GetUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Ping records client activity. Unknown user ids are materialised first so
// that long-lived client identities survive a wiped server database.
func (s *UserService) Ping(userID string) error {
	if err := s.userRepo.EnsureUser(userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	if err := s.userRepo.UpdateActivity(userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	return nil
}

// SessionStatsRequest is one completed-level report from a client
type SessionStatsRequest struct {
	Level           int `json:"level"`
	Stars           int `json:"stars"`
	ScoreGained     int `json:"score_gained"`
	PlayTimeMinutes int `json:"play_time_minutes"`
}

// RecordSession appends a completed-level row and touches last-active.
// The scalar stats columns are not updated here; they are derived from the
// progress blob when the client saves it.
func (s *UserService) RecordSession(userID string, req SessionStatsRequest) (*models.GameSession, error) {
	if req.Level < 1 {
		return nil, fmt.Errorf("%w: level must be positive", ErrStatsInvalid)
	}
	if req.Stars < 0 || req.Stars > 3 {
		return nil, fmt.Errorf("%w: stars must be between 0 and 3", ErrStatsInvalid)
	}

	if err := s.userRepo.EnsureUser(userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	session := &models.GameSession{
		UserID:          userID,
		Level:           req.Level,
		Stars:           req.Stars,
		ScoreGained:     req.ScoreGained,
		PlayTimeMinutes: req.PlayTimeMinutes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.sessionRepo.Insert(session); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	if err := s.userRepo.UpdateActivity(userID, session.CreatedAt); err != nil {
		log.Printf("Warning: failed to touch last_active for %s: %v", userID, err)
	}
	return session, nil
}

// DeactivateStaleUsers flags users without recent activity as inactive
func (s *UserService) DeactivateStaleUsers(staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-staleAfter)
	return s.userRepo.DeactivateStale(cutoff)
}

// slugify lowercases and strips a name down to [a-z0-9-] for use in the
// synthetic email address.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
