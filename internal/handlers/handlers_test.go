package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"terratiles/internal/database"
	"terratiles/internal/repository"
	"terratiles/internal/service"
)

func testRouter(t *testing.T) http.Handler {
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

	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	userService := service.NewUserService(userRepo, sessionRepo)
	progressService := service.NewProgressService(progressRepo, userRepo)
	telemetryService := service.NewTelemetryService(telemetryRepo, userRepo)
	adminService := service.NewAdminService(adminRepo, userRepo, sessionRepo, telemetryRepo)

	return NewRouter(
		[]string{"http://localhost:3000"},
		NewUserHandler(userService),
		NewProgressHandler(progressService),
		NewTelemetryHandler(telemetryService),
		NewAdminHandler(adminService),
	)
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (int, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, env
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	code, env := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if code != http.StatusOK || !env.Success {
		t.Errorf("health: code=%d success=%v", code, env.Success)
	}
}

func TestCreateUserEndpoint(t *testing.T) {
	router := testRouter(t)

	code, env := doJSON(t, router, http.MethodPost, "/api/users", map[string]string{"username": "explorer"})
	if code != http.StatusCreated || !env.Success {
		t.Fatalf("create: code=%d env=%+v", code, env)
	}
	var user struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.UserID == "" || user.Username != "explorer" {
		t.Errorf("unexpected user payload: %+v", user)
	}

	// Validation failure keeps to the envelope contract
	code, env = doJSON(t, router, http.MethodPost, "/api/users", map[string]string{"username": ""})
	if code != http.StatusBadRequest || env.Success || env.Error == "" {
		t.Errorf("invalid create: code=%d env=%+v", code, env)
	}

	// Malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: code=%d", rec.Code)
	}
}

func TestGetUserNotFound(t *testing.T) {
	router := testRouter(t)

	code, env := doJSON(t, router, http.MethodGet, "/api/users/child_nobody", nil)
	if code != http.StatusNotFound || env.Success {
		t.Errorf("missing user: code=%d env=%+v", code, env)
	}
}

func TestProgressEndpoints(t *testing.T) {
	router := testRouter(t)

	// Fresh user gets defaults, not a 404
	code, env := doJSON(t, router, http.MethodGet, "/api/users/child_1/progress", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("default progress: code=%d env=%+v", code, env)
	}
	var progress struct {
		UnlockedLevels int `json:"unlockedLevels"`
		TotalStars     int `json:"totalStars"`
	}
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.UnlockedLevels != 1 {
		t.Errorf("default unlocked = %d", progress.UnlockedLevels)
	}

	// Save, reload, reset
	payload := map[string]interface{}{
		"unlockedLevels": 2,
		"levelStars":     map[string]int{"1": 3},
		"totalStars":     3,
	}
	code, env = doJSON(t, router, http.MethodPost, "/api/users/child_1/progress", payload)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("save progress: code=%d env=%+v", code, env)
	}

	code, env = doJSON(t, router, http.MethodGet, "/api/users/child_1/progress", nil)
	if code != http.StatusOK {
		t.Fatalf("reload: code=%d", code)
	}
	if err := json.Unmarshal(env.Data, &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.TotalStars != 3 || progress.UnlockedLevels != 2 {
		t.Errorf("saved progress not served back: %+v", progress)
	}

	// Invalid blob is rejected with 400
	payload["unlockedLevels"] = 0
	code, env = doJSON(t, router, http.MethodPost, "/api/users/child_1/progress", payload)
	if code != http.StatusBadRequest || env.Success {
		t.Errorf("invalid save: code=%d env=%+v", code, env)
	}

	code, env = doJSON(t, router, http.MethodPost, "/api/users/child_1/progress/reset", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("reset: code=%d env=%+v", code, env)
	}
	code, env = doJSON(t, router, http.MethodGet, "/api/users/child_1/progress", nil)
	_ = json.Unmarshal(env.Data, &progress)
	if code != http.StatusOK || progress.UnlockedLevels != 1 || progress.TotalStars != 0 {
		t.Errorf("post-reset progress: %+v", progress)
	}
}

func TestTelemetryBatchEndpoint(t *testing.T) {
	router := testRouter(t)

	code, env := doJSON(t, router, http.MethodPost, "/api/telemetry/batch", map[string]interface{}{"events": []interface{}{}})
	if code != http.StatusBadRequest || env.Success {
		t.Errorf("empty batch: code=%d env=%+v", code, env)
	}

	batch := map[string]interface{}{
		"events": []map[string]interface{}{
			{"userId": "child_1", "kind": "classification_success", "imageName": "forest_1.jpg", "correctLabel": "forest", "gameLevel": 1},
			{"kind": "bogus"},
		},
	}
	code, env = doJSON(t, router, http.MethodPost, "/api/telemetry/batch", batch)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("batch: code=%d env=%+v", code, env)
	}
	var result struct {
		Inserted int `json:"inserted"`
		Failed   int `json:"failed"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Inserted != 1 || result.Failed != 1 {
		t.Errorf("batch result %+v, want 1/1", result)
	}
}

func TestAdminEndpoints(t *testing.T) {
	router := testRouter(t)

	code, env := doJSON(t, router, http.MethodGet, "/api/admin/dashboard/metrics", nil)
	if code != http.StatusOK || !env.Success {
		t.Errorf("metrics: code=%d env=%+v", code, env)
	}

	// A hostile sort key falls back instead of failing
	code, env = doJSON(t, router, http.MethodGet, "/api/admin/users?sortBy=;DROP%20TABLE%20users&sortOrder=asc", nil)
	if code != http.StatusOK || !env.Success {
		t.Errorf("listing with bad sort: code=%d env=%+v", code, env)
	}

	code, env = doJSON(t, router, http.MethodGet, "/api/admin/users/child_nobody", nil)
	if code != http.StatusNotFound || env.Success {
		t.Errorf("missing detail: code=%d env=%+v", code, env)
	}

	code, env = doJSON(t, router, http.MethodGet, "/api/admin/classifications", nil)
	if code != http.StatusOK || !env.Success {
		t.Errorf("classifications: code=%d env=%+v", code, env)
	}
}
