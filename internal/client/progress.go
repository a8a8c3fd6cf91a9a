package client

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"terratiles/internal/game"
	"terratiles/internal/models"
)

// Cache is local storage for the last known-good progress blob. It stands
// in for the server while offline; Clear is called when the identity is
// invalidated so one player's save never leaks to the next.
type Cache interface {
	Get() (models.GameProgress, bool)
	Put(progress models.GameProgress)
	Clear()
}

// FileCache is the default Cache, one JSON file per install
type FileCache struct {
	path string
}

// NewFileCache creates a file-backed progress cache under dir
func NewFileCache(dir string) *FileCache {
	return &FileCache{path: filepath.Join(dir, "progress.json")}
}

func (c *FileCache) Get() (models.GameProgress, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return models.GameProgress{}, false
	}
	var progress models.GameProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		log.Printf("Warning: corrupt progress cache, discarding: %v", err)
		return models.GameProgress{}, false
	}
	return progress, true
}

func (c *FileCache) Put(progress models.GameProgress) {
	data, err := json.Marshal(progress)
	if err != nil {
		log.Printf("Warning: failed to encode progress cache: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		log.Printf("Warning: failed to create cache dir: %v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		log.Printf("Warning: failed to write progress cache: %v", err)
	}
}

func (c *FileCache) Clear() {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to clear progress cache: %v", err)
	}
}

// ProgressStore loads and saves progress with graceful degradation: the
// server is authoritative, the cache covers outages, and a fresh default
// covers a cold start. Load never fails outward.
type ProgressStore struct {
	api    *API
	cache  Cache
	userID func() string
}

// NewProgressStore creates a store bound to the current identity. userID
// is a function so the store always follows identity changes.
func NewProgressStore(api *API, cache Cache, userID func() string) *ProgressStore {
	return &ProgressStore{api: api, cache: cache, userID: userID}
}

// Load returns server progress when reachable, cached progress otherwise,
// and fresh default progress as the last resort.
func (s *ProgressStore) Load(ctx context.Context) models.GameProgress {
	userID := s.userID()
	if userID != "" && !IsLocal(userID) {
		progress, err := s.api.GetProgress(ctx, userID)
		if err == nil {
			s.cache.Put(progress)
			return progress
		}
		log.Printf("Warning: server progress unavailable, trying cache: %v", err)
	}
	if progress, ok := s.cache.Get(); ok {
		return progress
	}
	return game.NewProgress()
}

// Save persists progress to cache and server. The cache write always
// happens; the return value reports whether the server round-trip landed.
func (s *ProgressStore) Save(ctx context.Context, progress models.GameProgress) bool {
	s.cache.Put(progress)

	userID := s.userID()
	if userID == "" || IsLocal(userID) {
		return false
	}
	if err := s.api.SaveProgress(ctx, userID, progress); err != nil {
		log.Printf("Warning: failed to save progress to server: %v", err)
		return false
	}
	return true
}

// Reset wipes progress locally and on the server. Returns whether the
// server reset landed; local state is cleared regardless.
func (s *ProgressStore) Reset(ctx context.Context) bool {
	s.cache.Clear()

	userID := s.userID()
	if userID == "" || IsLocal(userID) {
		return false
	}
	if err := s.api.ResetProgress(ctx, userID); err != nil {
		log.Printf("Warning: failed to reset progress on server: %v", err)
		return false
	}
	return true
}
