// Package client is the game-side SDK for the backend API. It wraps the
// HTTP surface with typed calls and layers the offline behaviour the game
// needs on top: local identity fallback, cached progress, and a telemetry
// queue that survives a dead server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"terratiles/internal/models"
	"terratiles/internal/service"
)

// ErrServerRejected is returned when the server answered with a failure
// envelope rather than a transport error.
var ErrServerRejected = errors.New("server rejected request")

const defaultTimeout = 20 * time.Second

// API is a thin typed wrapper over the backend's HTTP surface
type API struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPI creates an API client for the given base URL, e.g.
// "http://localhost:8080".
func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// envelope mirrors the server's uniform response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%w: %s", ErrServerRejected, env.Error)
		}
		return fmt.Errorf("%w: status %d", ErrServerRejected, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Health checks server liveness
func (a *API) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// CreateUser registers a new child identity on the server
func (a *API) CreateUser(ctx context.Context, req service.CreateChildRequest) (*models.User, error) {
	var user models.User
	if err := a.do(ctx, http.MethodPost, "/api/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user record
func (a *API) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := a.do(ctx, http.MethodGet, "/api/users/"+userID, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Ping reports client activity for the given user
func (a *API) Ping(ctx context.Context, userID string) error {
	return a.do(ctx, http.MethodPost, "/api/users/"+userID+"/activity", nil, nil)
}

// RecordStats reports one completed level
func (a *API) RecordStats(ctx context.Context, userID string, stats service.SessionStatsRequest) error {
	return a.do(ctx, http.MethodPost, "/api/users/"+userID+"/stats", stats, nil)
}

// GetProgress loads the user's stored progress
func (a *API) GetProgress(ctx context.Context, userID string) (models.GameProgress, error) {
	var progress models.GameProgress
	err := a.do(ctx, http.MethodGet, "/api/users/"+userID+"/progress", nil, &progress)
	return progress, err
}

// SaveProgress stores the user's progress
func (a *API) SaveProgress(ctx context.Context, userID string, progress models.GameProgress) error {
	return a.do(ctx, http.MethodPost, "/api/users/"+userID+"/progress", progress, nil)
}

// ResetProgress wipes the user's stored progress
func (a *API) ResetProgress(ctx context.Context, userID string) error {
	return a.do(ctx, http.MethodPost, "/api/users/"+userID+"/progress/reset", nil, nil)
}

// SendTelemetryBatch submits a batch of telemetry events
func (a *API) SendTelemetryBatch(ctx context.Context, events []models.TelemetryEvent) (*service.BatchResult, error) {
	var result service.BatchResult
	payload := struct {
		Events []models.TelemetryEvent `json:"events"`
	}{Events: events}
	if err := a.do(ctx, http.MethodPost, "/api/telemetry/batch", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
