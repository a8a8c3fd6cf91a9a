package service

import (
	"fmt"
	"log"
	"time"

	"terratiles/internal/models"
	"terratiles/internal/repository"
)

// AdminService assembles the dashboard views. Sub-metrics are computed
// independently; a failing aggregate is logged and left at its zero value
// so a partial dashboard still renders.
type AdminService struct {
	adminRepo     *repository.AdminRepository
	userRepo      *repository.UserRepository
	sessionRepo   *repository.SessionRepository
	telemetryRepo *repository.TelemetryRepository
}

// NewAdminService creates a new admin service
func NewAdminService(
	adminRepo *repository.AdminRepository,
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	telemetryRepo *repository.TelemetryRepository,
) *AdminService {
	return &AdminService{
		adminRepo:     adminRepo,
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		telemetryRepo: telemetryRepo,
	}
}

// DashboardMetrics computes the admin overview on demand
func (s *AdminService) DashboardMetrics() models.DashboardMetrics {
	var metrics models.DashboardMetrics

	userCount, err := s.userRepo.Count()
	if err != nil {
		log.Printf("Warning: user count failed: %v", err)
	}
	sessionUsers, err := s.sessionRepo.DistinctUsers()
	if err != nil {
		log.Printf("Warning: distinct session users failed: %v", err)
	}
	// Sessions may reference users healed after a database wipe, so the
	// larger of the two counts is the honest figure.
	metrics.TotalUsers = userCount
	if sessionUsers > metrics.TotalUsers {
		metrics.TotalUsers = sessionUsers
	}

	// Active users come from two signals: session rows written in the last
	// week, and last_active stamps bumped by activity pings. Players who
	// ping without finishing a level only show up in the second.
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	if active, err := s.sessionRepo.DistinctUsersSince(weekAgo); err != nil {
		log.Printf("Warning: active session users failed: %v", err)
	} else {
		metrics.ActiveUsers = active
	}
	if active, err := s.adminRepo.ActiveUsersSince(weekAgo); err != nil {
		log.Printf("Warning: active users failed: %v", err)
	} else if active > metrics.ActiveUsers {
		metrics.ActiveUsers = active
	}

	if games, err := s.sessionRepo.Count(); err != nil {
		log.Printf("Warning: session count failed: %v", err)
	} else {
		metrics.TotalGames = games
	}

	if avg, err := s.sessionRepo.AveragePlayTime(); err != nil {
		log.Printf("Warning: average play time failed: %v", err)
	} else {
		metrics.AverageSessionDuration = avg
	}

	if errs, err := s.adminRepo.TopErrors(5); err != nil {
		log.Printf("Warning: top errors failed: %v", err)
	} else {
		metrics.TopErrors = errs
	}

	if failures, err := s.adminRepo.TopImageFailures(10); err != nil {
		log.Printf("Warning: image failures failed: %v", err)
	} else {
		metrics.TopImageFailures = failures
	}

	if levels, err := s.adminRepo.LevelDifficulty(); err != nil {
		log.Printf("Warning: level difficulty failed: %v", err)
	} else {
		metrics.LevelDifficulty = levels
	}

	return metrics
}

// ListUsers returns one page of the user listing
func (s *AdminService) ListUsers(page, limit int, sortBy, sortOrder string) (*models.UserListing, error) {
	return s.adminRepo.ListUsers(page, limit, sortBy, sortOrder)
}

// UserDetail returns one user with their recent sessions and events
func (s *AdminService) UserDetail(userID string) (*models.UserDetail, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	detail := &models.UserDetail{User: *user}

	if sessions, err := s.sessionRepo.RecentForUser(userID, 10); err != nil {
		log.Printf("Warning: recent sessions for %s failed: %v", userID, err)
	} else {
		detail.RecentSessions = sessions
	}
	if events, err := s.telemetryRepo.RecentForUser(userID, 10); err != nil {
		log.Printf("Warning: recent events for %s failed: %v", userID, err)
	} else {
		detail.RecentEvents = events
	}
	return detail, nil
}

// ClassificationAnalytics assembles the misclassification report
func (s *AdminService) ClassificationAnalytics() models.ClassificationAnalytics {
	var analytics models.ClassificationAnalytics

	if logs, err := s.telemetryRepo.RecentClassifications(100); err != nil {
		log.Printf("Warning: recent classifications failed: %v", err)
	} else {
		analytics.Logs = logs
	}

	if summary, err := s.adminRepo.ClassificationSummary(); err != nil {
		log.Printf("Warning: classification summary failed: %v", err)
	} else {
		analytics.Summary = summary
	}

	if patterns, err := s.adminRepo.ConfusionPatterns(10); err != nil {
		log.Printf("Warning: confusion patterns failed: %v", err)
	} else {
		analytics.Patterns = patterns
	}

	if images, err := s.adminRepo.ProblemImages(10); err != nil {
		log.Printf("Warning: problem images failed: %v", err)
	} else {
		analytics.ProblemImages = images
	}

	return analytics
}
