package service

import (
	"errors"
	"fmt"
	"log"

	"terratiles/internal/game"
	"terratiles/internal/models"
	"terratiles/internal/repository"
)

var (
	ErrProgressInvalid = errors.New("invalid progress data")
)

// ProgressService handles the save-game blob. The blob is the single source
// of truth for a player's progress; the scalar stats columns on the user row
// are recomputed from it on every save.
type ProgressService struct {
	progressRepo *repository.ProgressRepository
	userRepo     *repository.UserRepository
}

// NewProgressService creates a new progress service
func NewProgressService(progressRepo *repository.ProgressRepository, userRepo *repository.UserRepository) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		userRepo:     userRepo,
	}
}

// Load returns the stored progress for a user, or fresh default progress
// when none exists. The default is not persisted; a row appears only once
// the client saves.
func (s *ProgressService) Load(userID string) (models.GameProgress, error) {
	stored, err := s.progressRepo.Get(userID)
	if err != nil {
		return models.GameProgress{}, fmt.Errorf("failed to load progress: %w", err)
	}
	if stored == nil {
		return game.NewProgress(), nil
	}
	return stored.Progress, nil
}

// Save validates and persists a progress blob, then derives the user row's
// scalar stats from it. Derivation failures are logged, not surfaced: the
// blob write already succeeded and the columns converge on the next save.
func (s *ProgressService) Save(userID string, progress models.GameProgress) error {
	if err := validateProgress(&progress); err != nil {
		return err
	}

	// TotalStars is always recomputed; the client-sent value is advisory
	progress.TotalStars = progress.SumLevelStars()

	if err := s.userRepo.EnsureUser(userID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	if err := s.progressRepo.Upsert(userID, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	games := len(progress.LevelStars)
	score := progress.TotalStars * 100
	highest := progress.HighestLevel()
	if err := s.userRepo.UpdateScalarStats(userID, games, score, highest); err != nil {
		log.Printf("Warning: failed to update stats for %s: %v", userID, err)
	}
	return nil
}

// Reset deletes the stored blob and zeroes the derived stats. A missing
// blob is not an error; the next load simply serves defaults again.
func (s *ProgressService) Reset(userID string) error {
	if err := s.progressRepo.Delete(userID); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	if err := s.userRepo.UpdateScalarStats(userID, 0, 0, 0); err != nil {
		log.Printf("Warning: failed to zero stats for %s: %v", userID, err)
	}
	return nil
}

func validateProgress(p *models.GameProgress) error {
	if p.UnlockedLevels < 1 || p.UnlockedLevels > game.LevelCount() {
		return fmt.Errorf("%w: unlockedLevels out of range", ErrProgressInvalid)
	}
	for level, stars := range p.LevelStars {
		if level < 1 || level > game.LevelCount() {
			return fmt.Errorf("%w: unknown level %d", ErrProgressInvalid, level)
		}
		if stars < 0 || stars > 3 {
			return fmt.Errorf("%w: stars for level %d out of range", ErrProgressInvalid, level)
		}
	}
	if p.LevelStars == nil {
		p.LevelStars = map[int]int{}
	}
	if p.LevelStatistics == nil {
		p.LevelStatistics = map[int]models.LevelStatistics{}
	}
	if len(p.Badges) == 0 {
		p.Badges = game.InitialBadges()
	}
	return nil
}
