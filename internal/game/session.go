package game

import (
	"context"
	"errors"
	"fmt"

	"terratiles/internal/models"
)

// Screen identifies which view the session is on
type Screen string

const (
	ScreenHome        Screen = "home"
	ScreenLevelSelect Screen = "levelSelect"
	ScreenGame        Screen = "game"
	ScreenResults     Screen = "results"
	ScreenAbout       Screen = "about"
	ScreenAdmin       Screen = "admin"
)

var (
	ErrWrongScreen    = errors.New("operation not valid on current screen")
	ErrLevelLocked    = errors.New("level is not unlocked")
	ErrUnknownLevel   = errors.New("unknown level")
	ErrUnknownTile    = errors.New("unknown tile")
	ErrTileAssigned   = errors.New("tile already has a label")
	ErrLevelUnplayed  = errors.New("level has unassigned tiles")
	ErrUnknownLabel   = errors.New("unknown land-cover label")
	ErrLabelExcluded  = errors.New("label not available on this level")
)

// ProgressStore persists the progress blob for the current user
type ProgressStore interface {
	Load(ctx context.Context) models.GameProgress
	Save(ctx context.Context, progress models.GameProgress) bool
	Reset(ctx context.Context) bool
}

// TelemetryLogger records classification attempts and errors
type TelemetryLogger interface {
	LogClassificationSuccess(imageName string, label string, level int)
	LogClassificationFailure(imageName string, attempted, correct string, level int)
}

// SessionRecorder reports completed levels to the backend stats endpoint
type SessionRecorder interface {
	RecordCompletion(ctx context.Context, level, stars, scoreGained, playTimeMinutes int)
}

// Session is the client-side state machine driving one play session.
// It owns the current screen, the active level's tile assignments, and the
// in-memory progress, and calls into the progress store and telemetry
// logger at the points the game rules require.
//
// A session is not safe for concurrent use; one player drives it.
type Session struct {
	store     ProgressStore
	telemetry TelemetryLogger
	recorder  SessionRecorder

	screen       Screen
	levels       []Level
	currentLevel int
	progress     models.GameProgress
	saved        bool // last save round-trip succeeded

	assigned     map[string]LandCover
	correctCount int
	labelCorrect map[LandCover]int

	lastResult *CompletionResult
}

// NewSession builds a session on the home screen with progress loaded from
// the store (which itself never fails outward).
func NewSession(ctx context.Context, store ProgressStore, telemetry TelemetryLogger, recorder SessionRecorder) *Session {
	return &Session{
		store:        store,
		telemetry:    telemetry,
		recorder:     recorder,
		screen:       ScreenHome,
		levels:       Levels(),
		progress:     store.Load(ctx),
		saved:        true,
		labelCorrect: map[LandCover]int{},
	}
}

// Screen returns the current screen
func (s *Session) Screen() Screen { return s.screen }

// Progress returns the current in-memory progress
func (s *Session) Progress() models.GameProgress { return s.progress }

// Saved reports whether the latest progress save reached the server
func (s *Session) Saved() bool { return s.saved }

// LastResult returns the delta from the most recent level completion
func (s *Session) LastResult() *CompletionResult { return s.lastResult }

// CurrentLevel returns the active level, or nil outside a game
func (s *Session) CurrentLevel() *Level {
	if s.currentLevel == 0 {
		return nil
	}
	return LevelByID(s.currentLevel)
}

// Start moves from home into the first unlocked level without a star rating,
// falling back to level 1.
func (s *Session) Start() error {
	if s.screen != ScreenHome {
		return ErrWrongScreen
	}
	target := 1
	for _, level := range s.levels {
		if level.ID <= s.progress.UnlockedLevels && s.progress.LevelStars[level.ID] == 0 {
			target = level.ID
			break
		}
	}
	return s.enterLevel(target)
}

// OpenLevelSelect moves from home to the level picker
func (s *Session) OpenLevelSelect() error {
	if s.screen != ScreenHome {
		return ErrWrongScreen
	}
	s.screen = ScreenLevelSelect
	return nil
}

// SelectLevel enters a specific unlocked level from the picker
func (s *Session) SelectLevel(levelID int) error {
	if s.screen != ScreenLevelSelect {
		return ErrWrongScreen
	}
	if LevelByID(levelID) == nil {
		return ErrUnknownLevel
	}
	if levelID > s.progress.UnlockedLevels {
		return ErrLevelLocked
	}
	return s.enterLevel(levelID)
}

// OpenAbout and OpenAdmin are leaf screens reachable from home
func (s *Session) OpenAbout() error {
	if s.screen != ScreenHome {
		return ErrWrongScreen
	}
	s.screen = ScreenAbout
	return nil
}

func (s *Session) OpenAdmin() error {
	if s.screen != ScreenHome {
		return ErrWrongScreen
	}
	s.screen = ScreenAdmin
	return nil
}

// GoHome returns to the home screen from any screen
func (s *Session) GoHome() {
	s.screen = ScreenHome
	s.currentLevel = 0
	s.assigned = nil
}

// AssignLabel drops a label onto a tile. Exactly one telemetry event fires
// per drop, before any completion logic runs, so per-tile accuracy data
// survives even if the completion save later fails.
func (s *Session) AssignLabel(tileID string, label LandCover) (bool, error) {
	if s.screen != ScreenGame {
		return false, ErrWrongScreen
	}
	if !label.Valid() {
		return false, ErrUnknownLabel
	}
	level := s.CurrentLevel()
	if level == nil {
		return false, ErrUnknownLevel
	}
	if !labelAvailable(level, label) {
		return false, ErrLabelExcluded
	}

	tile := tileByID(level, tileID)
	if tile == nil {
		return false, ErrUnknownTile
	}
	if _, dropped := s.assigned[tileID]; dropped {
		return false, ErrTileAssigned
	}

	s.assigned[tileID] = label
	correct := tile.CorrectLabel == label
	if correct {
		s.correctCount++
		s.labelCorrect[label]++
		s.telemetry.LogClassificationSuccess(tile.ImageName, string(label), level.ID)
	} else {
		s.telemetry.LogClassificationFailure(tile.ImageName, string(label), string(tile.CorrectLabel), level.ID)
	}
	return correct, nil
}

// Remaining returns how many tiles still need a label
func (s *Session) Remaining() int {
	level := s.CurrentLevel()
	if level == nil {
		return 0
	}
	return len(level.Tiles) - len(s.assigned)
}

// CompleteLevel finishes the active level once every tile has a label.
// It computes the star rating, applies the completion to the progress,
// persists the blob, records the session, and moves to the results screen.
// A failed save degrades to local-only progress; it does not block play.
func (s *Session) CompleteLevel(ctx context.Context, playTimeMinutes int) (*CompletionResult, error) {
	if s.screen != ScreenGame {
		return nil, ErrWrongScreen
	}
	level := s.CurrentLevel()
	if level == nil {
		return nil, ErrUnknownLevel
	}
	if s.Remaining() > 0 {
		return nil, ErrLevelUnplayed
	}

	stars := CalculateStars(s.correctCount, len(level.Tiles))
	next, result := CompleteLevel(s.progress, level.ID, stars, playTimeMinutes, s.labelCorrect)

	s.progress = next
	s.saved = s.store.Save(ctx, next)
	s.recorder.RecordCompletion(ctx, level.ID, stars, result.ScoreGained, playTimeMinutes)

	s.lastResult = &result
	s.screen = ScreenResults
	return &result, nil
}

// Replay restarts the just-played level from the results screen
func (s *Session) Replay() error {
	if s.screen != ScreenResults {
		return ErrWrongScreen
	}
	return s.enterLevel(s.currentLevel)
}

// NextLevel advances from results to the following level if it is
// unlocked, otherwise returns home.
func (s *Session) NextLevel() error {
	if s.screen != ScreenResults {
		return ErrWrongScreen
	}
	nextID := s.currentLevel + 1
	if LevelByID(nextID) != nil && nextID <= s.progress.UnlockedLevels {
		return s.enterLevel(nextID)
	}
	s.GoHome()
	return nil
}

// ResetProgress wipes stored and in-memory progress back to defaults
func (s *Session) ResetProgress(ctx context.Context) bool {
	ok := s.store.Reset(ctx)
	s.progress = NewProgress()
	s.labelCorrect = map[LandCover]int{}
	s.GoHome()
	return ok
}

func (s *Session) enterLevel(levelID int) error {
	if LevelByID(levelID) == nil {
		return fmt.Errorf("%w: %d", ErrUnknownLevel, levelID)
	}
	s.currentLevel = levelID
	s.assigned = map[string]LandCover{}
	s.correctCount = 0
	s.screen = ScreenGame
	return nil
}

func labelAvailable(level *Level, label LandCover) bool {
	for _, l := range level.AvailableLabels {
		if l == label {
			return true
		}
	}
	return false
}

func tileByID(level *Level, tileID string) *Tile {
	for i := range level.Tiles {
		if level.Tiles[i].ID == tileID {
			return &level.Tiles[i]
		}
	}
	return nil
}
