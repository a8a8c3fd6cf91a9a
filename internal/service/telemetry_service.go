package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"terratiles/internal/game"
	"terratiles/internal/models"
	"terratiles/internal/repository"
)

var ErrEventInvalid = errors.New("invalid telemetry event")

// TelemetryService ingests gameplay and error events. Batches are
// best-effort: each event is validated and inserted independently so one
// malformed entry never blocks the rest of the batch.
type TelemetryService struct {
	telemetryRepo *repository.TelemetryRepository
	userRepo      *repository.UserRepository
}

// NewTelemetryService creates a new telemetry service
func NewTelemetryService(telemetryRepo *repository.TelemetryRepository, userRepo *repository.UserRepository) *TelemetryService {
	return &TelemetryService{
		telemetryRepo: telemetryRepo,
		userRepo:      userRepo,
	}
}

// BatchResult reports how a telemetry batch fared
type BatchResult struct {
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// IngestBatch stores a batch of events. Events without a user id are
// attributed to the anonymous sentinel; unknown user ids are materialised
// so the foreign key holds.
func (s *TelemetryService) IngestBatch(events []models.TelemetryEvent) BatchResult {
	var result BatchResult
	for i := range events {
		if err := s.ingestOne(&events[i]); err != nil {
			log.Printf("Warning: dropped telemetry event: %v", err)
			result.Failed++
			continue
		}
		result.Inserted++
	}
	return result
}

func (s *TelemetryService) ingestOne(event *models.TelemetryEvent) error {
	if err := normalizeEvent(event); err != nil {
		return err
	}
	if err := s.userRepo.EnsureUser(event.UserID); err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", event.UserID, err)
	}
	if err := s.telemetryRepo.Insert(event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// RecentForUser returns a user's most recent events
func (s *TelemetryService) RecentForUser(userID string, limit int) ([]models.TelemetryEvent, error) {
	return s.telemetryRepo.RecentForUser(userID, limit)
}

func normalizeEvent(event *models.TelemetryEvent) error {
	event.UserID = strings.TrimSpace(event.UserID)
	if event.UserID == "" {
		event.UserID = models.AnonymousUserID
	}

	switch event.Kind {
	case models.EventClassificationSuccess, models.EventClassificationFailure:
		if event.ImageName == "" || event.CorrectLabel == "" {
			return fmt.Errorf("%w: classification event missing image or label", ErrEventInvalid)
		}
		if !game.LandCover(event.CorrectLabel).Valid() {
			return fmt.Errorf("%w: unknown correct label %q", ErrEventInvalid, event.CorrectLabel)
		}
		if event.Kind == models.EventClassificationFailure && event.AttemptedLabel == "" {
			return fmt.Errorf("%w: failure event missing attempted label", ErrEventInvalid)
		}
	case models.EventGenericError, models.EventFreeform:
		if strings.TrimSpace(event.Message) == "" {
			return fmt.Errorf("%w: message is required", ErrEventInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrEventInvalid, event.Kind)
	}

	switch event.Severity {
	case models.SeverityError, models.SeverityWarning, models.SeverityInfo:
	case "":
		if event.Kind == models.EventGenericError {
			event.Severity = models.SeverityError
		} else {
			event.Severity = models.SeverityInfo
		}
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrEventInvalid, event.Severity)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return nil
}
