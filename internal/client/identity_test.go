package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terratiles/internal/models"
)

func identityServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
		created++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    models.User{UserID: "child_abc123", Username: "explorer"},
		})
	})
	mux.HandleFunc("POST /api/users/{userID}/activity", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]string{"status": "ok"}})
	})
	return httptest.NewServer(mux), &created
}

func TestIdentityGetOrCreateFromServer(t *testing.T) {
	ts, created := identityServer(t)
	defer ts.Close()

	provider := NewIdentityProvider(NewAPI(ts.URL), t.TempDir(), 8*time.Hour)

	userID, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)
	assert.Equal(t, "child_abc123", userID)
	assert.Equal(t, 1, *created)
	assert.False(t, IsLocal(userID))

	// Inside the window the cached id is reused without another request
	again, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)
	assert.Equal(t, userID, again)
	assert.Equal(t, 1, *created)
}

func TestIdentityStatePersistsAcrossProviders(t *testing.T) {
	ts, created := identityServer(t)
	defer ts.Close()

	dir := t.TempDir()
	first := NewIdentityProvider(NewAPI(ts.URL), dir, 8*time.Hour)
	userID, err := first.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)

	// A fresh provider over the same state dir finds the same identity
	second := NewIdentityProvider(NewAPI(ts.URL), dir, 8*time.Hour)
	again, err := second.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)
	assert.Equal(t, userID, again)
	assert.Equal(t, 1, *created, "restart must not create a duplicate user")
}

func TestIdentityFallsBackToLocalID(t *testing.T) {
	// Closed server: every request fails
	ts := httptest.NewServer(nil)
	ts.Close()

	provider := NewIdentityProvider(NewAPI(ts.URL), t.TempDir(), 8*time.Hour)

	userID, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err, "identity must never block gameplay")
	assert.True(t, IsLocal(userID))

	// The local id is stable for the session
	again, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)
	assert.Equal(t, userID, again)
}

func TestIdentitySessionWindow(t *testing.T) {
	ts, _ := identityServer(t)
	defer ts.Close()

	provider := NewIdentityProvider(NewAPI(ts.URL), t.TempDir(), time.Hour)

	_, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, provider.SessionValid(now))
	assert.True(t, provider.SessionValid(now.Add(59*time.Minute)))
	assert.False(t, provider.SessionValid(now.Add(61*time.Minute)))
}

func TestIdentityInvalidate(t *testing.T) {
	ts, created := identityServer(t)
	defer ts.Close()

	provider := NewIdentityProvider(NewAPI(ts.URL), t.TempDir(), 8*time.Hour)

	_, err := provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)

	provider.Invalidate()
	assert.False(t, provider.SessionValid(time.Now()))

	_, err = provider.GetOrCreate(context.Background(), "explorer")
	require.NoError(t, err)
	assert.Equal(t, 2, *created, "invalidate must force a fresh registration")
}
