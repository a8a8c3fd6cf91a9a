package service

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"terratiles/internal/database"
	"terratiles/internal/game"
	"terratiles/internal/models"
	"terratiles/internal/repository"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func newServices(t *testing.T) (*UserService, *ProgressService, *TelemetryService, *database.DB) {
	t.Helper()
	db := testDB(t)
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	return NewUserService(userRepo, sessionRepo),
		NewProgressService(progressRepo, userRepo),
		NewTelemetryService(telemetryRepo, userRepo),
		db
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Riverside Primary", "riverside-primary"},
		{"punctuation stripped", "St. Mary's!", "st-marys"},
		{"already clean", "hilltop", "hilltop"},
		{"empty", "", ""},
		{"only punctuation", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slugify(tt.input); got != tt.expected {
				t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCreateChildValidation(t *testing.T) {
	users, _, _, _ := newServices(t)

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{"empty", "", ErrUsernameRequired},
		{"whitespace only", "   ", ErrUsernameRequired},
		{"too short", "a", ErrUsernameInvalid},
		{"control characters", "bad\nname", ErrUsernameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.CreateChild(CreateChildRequest{Username: tt.username})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateChild(%q) err = %v, want %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestCreateChildDerivedFields(t *testing.T) {
	users, _, _, _ := newServices(t)

	user, err := users.CreateChild(CreateChildRequest{
		Username: "Maple Explorer",
		School:   "Riverside Primary",
	})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}

	if !strings.HasPrefix(user.UserID, "child_") {
		t.Errorf("user id %q lacks child_ prefix", user.UserID)
	}
	if user.Email != "maple-explorer@riverside-primary.local" {
		t.Errorf("derived email = %q", user.Email)
	}
	if user.DisplayName != "Maple Explorer" {
		t.Errorf("display name should default to username, got %q", user.DisplayName)
	}
	if user.UserType != models.UserTypeChild {
		t.Errorf("user type = %q", user.UserType)
	}

	// Missing school falls back to a neutral domain
	other, err := users.CreateChild(CreateChildRequest{Username: "Solo Player"})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	if other.Email != "solo-player@unknown.local" {
		t.Errorf("fallback email = %q", other.Email)
	}
}

func TestCreateChildAllowsDuplicateNames(t *testing.T) {
	users, _, _, _ := newServices(t)

	// Two children at the same school can share a name. The derived email
	// collides, which is fine: only the user id identifies a player.
	first, err := users.CreateChild(CreateChildRequest{Username: "Alex", School: "Riverside"})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	second, err := users.CreateChild(CreateChildRequest{Username: "Alex", School: "Riverside"})
	if err != nil {
		t.Fatalf("duplicate name rejected: %v", err)
	}

	if first.UserID == second.UserID {
		t.Errorf("both registrations got user id %q", first.UserID)
	}
	if first.Email != second.Email {
		t.Errorf("emails diverged: %q vs %q", first.Email, second.Email)
	}

	for _, id := range []string{first.UserID, second.UserID} {
		if _, err := users.GetUser(id); err != nil {
			t.Errorf("GetUser(%q): %v", id, err)
		}
	}
}

func TestRecordSessionAndPing(t *testing.T) {
	users, _, _, db := newServices(t)

	// Unknown id gets healed rather than rejected
	session, err := users.RecordSession("child_ghost", SessionStatsRequest{Level: 1, Stars: 3, ScoreGained: 310, PlayTimeMinutes: 2})
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if session.ID == 0 {
		t.Error("session id not assigned")
	}

	healed, err := users.GetUser("child_ghost")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if healed.LastActive == nil {
		t.Error("last_active not touched")
	}

	if _, err := users.RecordSession("child_ghost", SessionStatsRequest{Level: 0}); !errors.Is(err, ErrStatsInvalid) {
		t.Errorf("expected ErrStatsInvalid for level 0, got %v", err)
	}
	if _, err := users.RecordSession("child_ghost", SessionStatsRequest{Level: 1, Stars: 4}); !errors.Is(err, ErrStatsInvalid) {
		t.Errorf("expected ErrStatsInvalid for 4 stars, got %v", err)
	}

	if err := users.Ping("child_other"); err != nil {
		t.Fatalf("Ping on unknown user: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 healed users, got %d", count)
	}
}

func TestProgressLoadDefaultsWithoutPersisting(t *testing.T) {
	_, progress, _, db := newServices(t)

	loaded, err := progress.Load("child_new")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.UnlockedLevels != 1 || len(loaded.Badges) != 7 {
		t.Errorf("expected fresh defaults, got %+v", loaded)
	}

	// Serving a default must not create a row
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM progress").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("default progress was persisted on load")
	}
}

func TestProgressSaveDerivesScalarStats(t *testing.T) {
	users, progress, _, _ := newServices(t)

	p := game.NewProgress()
	p.UnlockedLevels = 4
	p.LevelStars = map[int]int{1: 3, 2: 2, 3: 1}
	p.TotalStars = 42 // client-sent total is advisory and wrong here

	if err := progress.Save("child_1", p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := progress.Load("child_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TotalStars != 6 {
		t.Errorf("TotalStars not recomputed: %d", loaded.TotalStars)
	}

	user, err := users.GetUser("child_1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.TotalGamesPlayed != 3 {
		t.Errorf("games played = %d, want 3", user.TotalGamesPlayed)
	}
	if user.TotalScore != 600 {
		t.Errorf("total score = %d, want 600", user.TotalScore)
	}
	if user.HighestLevel != 3 {
		t.Errorf("highest level = %d, want 3", user.HighestLevel)
	}
}

func TestProgressSaveRejectsInvalid(t *testing.T) {
	_, progress, _, _ := newServices(t)

	tests := []struct {
		name  string
		build func() models.GameProgress
	}{
		{"zero unlocked", func() models.GameProgress {
			p := game.NewProgress()
			p.UnlockedLevels = 0
			return p
		}},
		{"unlocked beyond catalogue", func() models.GameProgress {
			p := game.NewProgress()
			p.UnlockedLevels = game.LevelCount() + 1
			return p
		}},
		{"unknown level key", func() models.GameProgress {
			p := game.NewProgress()
			p.LevelStars = map[int]int{99: 3}
			return p
		}},
		{"stars out of range", func() models.GameProgress {
			p := game.NewProgress()
			p.LevelStars = map[int]int{1: 4}
			return p
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := progress.Save("child_1", tt.build()); !errors.Is(err, ErrProgressInvalid) {
				t.Errorf("expected ErrProgressInvalid, got %v", err)
			}
		})
	}
}

func TestProgressResetRestoresDefaults(t *testing.T) {
	users, progress, _, _ := newServices(t)

	p := game.NewProgress()
	p.LevelStars = map[int]int{1: 3}
	if err := progress.Save("child_1", p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := progress.Reset("child_1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	loaded, err := progress.Load("child_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.UnlockedLevels != 1 || loaded.TotalStars != 0 || len(loaded.LevelStars) != 0 {
		t.Errorf("reset did not restore defaults: %+v", loaded)
	}

	user, err := users.GetUser("child_1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.TotalScore != 0 || user.TotalGamesPlayed != 0 || user.HighestLevel != 0 {
		t.Errorf("scalar stats not zeroed: %+v", user)
	}
}

func TestTelemetryBatchBestEffort(t *testing.T) {
	_, _, telemetry, _ := newServices(t)

	events := []models.TelemetryEvent{
		{UserID: "child_1", Kind: models.EventClassificationSuccess, ImageName: "forest_1.jpg", CorrectLabel: "forest", GameLevel: 1},
		{Kind: models.EventGenericError, Message: "renderer crashed"},
		{UserID: "child_1", Kind: "mystery_kind", Message: "nope"},
		{UserID: "child_1", Kind: models.EventClassificationFailure, ImageName: "water_1.jpg", CorrectLabel: "water"}, // missing attempted label
	}

	result := telemetry.IngestBatch(events)
	if result.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", result.Inserted)
	}
	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}

	// The anonymous event is attributed to the sentinel user
	anon, err := telemetry.RecentForUser(models.AnonymousUserID, 10)
	if err != nil {
		t.Fatalf("RecentForUser: %v", err)
	}
	if len(anon) != 1 || anon[0].Message != "renderer crashed" {
		t.Errorf("anonymous attribution failed: %+v", anon)
	}
	if anon[0].Severity != models.SeverityError {
		t.Errorf("generic error should default to error severity, got %s", anon[0].Severity)
	}
}

func TestNormalizeEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   models.TelemetryEvent
		wantErr bool
	}{
		{"valid success", models.TelemetryEvent{Kind: models.EventClassificationSuccess, ImageName: "a.jpg", CorrectLabel: "forest"}, false},
		{"valid failure", models.TelemetryEvent{Kind: models.EventClassificationFailure, ImageName: "a.jpg", AttemptedLabel: "water", CorrectLabel: "forest"}, false},
		{"failure without attempt", models.TelemetryEvent{Kind: models.EventClassificationFailure, ImageName: "a.jpg", CorrectLabel: "forest"}, true},
		{"classification without image", models.TelemetryEvent{Kind: models.EventClassificationSuccess, CorrectLabel: "forest"}, true},
		{"bogus label", models.TelemetryEvent{Kind: models.EventClassificationSuccess, ImageName: "a.jpg", CorrectLabel: "lava"}, true},
		{"unknown kind", models.TelemetryEvent{Kind: "other", Message: "m"}, true},
		{"freeform needs message", models.TelemetryEvent{Kind: models.EventFreeform}, true},
		{"valid freeform", models.TelemetryEvent{Kind: models.EventFreeform, Message: "note"}, false},
		{"bad severity", models.TelemetryEvent{Kind: models.EventFreeform, Message: "note", Severity: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizeEvent(&tt.event)
			if (err != nil) != tt.wantErr {
				t.Errorf("normalizeEvent() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if tt.event.UserID == "" {
					t.Error("missing user id not coerced to anonymous")
				}
				if tt.event.Timestamp.IsZero() {
					t.Error("zero timestamp not filled")
				}
			}
		})
	}
}

func TestDeactivateStaleUsersThroughService(t *testing.T) {
	users, _, _, db := newServices(t)

	if _, err := users.CreateChild(CreateChildRequest{Username: "fresh kid"}); err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	stale, err := users.CreateChild(CreateChildRequest{Username: "gone kid"})
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	if _, err := db.Exec("UPDATE users SET last_active = ? WHERE user_id = ?", old, stale.UserID); err != nil {
		t.Fatalf("age user: %v", err)
	}

	n, err := users.DeactivateStaleUsers(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("DeactivateStaleUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("deactivated %d users, want 1", n)
	}
}

func TestDashboardActiveUsersCountsPingOnlyPlayers(t *testing.T) {
	users, _, _, db := newServices(t)
	admin := NewAdminService(
		repository.NewAdminRepository(db),
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		repository.NewTelemetryRepository(db),
	)

	// One player finished a level, one only pinged. Both are active.
	if _, err := users.RecordSession("child_finisher", SessionStatsRequest{Level: 1, Stars: 2, PlayTimeMinutes: 3}); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if err := users.Ping("child_lurker"); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	metrics := admin.DashboardMetrics()
	if metrics.ActiveUsers != 2 {
		t.Errorf("ActiveUsers = %d, want 2", metrics.ActiveUsers)
	}
}
