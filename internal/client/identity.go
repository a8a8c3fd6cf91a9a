package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"terratiles/internal/service"
)

// localIDPrefix marks identities minted without server help. Local ids are
// stored and played against, but never sent to identity endpoints, so a
// later server recovery heals them through telemetry orphan handling.
const localIDPrefix = "local_"

// identityState is the on-disk identity file
type identityState struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	ValidatedAt time.Time `json:"validated_at"`
}

// IdentityProvider hands out a stable user id for the running game. An id
// is revalidated against the server once per session window; between
// validations the cached id is trusted so play works offline.
type IdentityProvider struct {
	api           *API
	statePath     string
	sessionWindow time.Duration

	mu    sync.Mutex
	state *identityState
}

// NewIdentityProvider creates a provider persisting state under dir
func NewIdentityProvider(api *API, dir string, sessionWindow time.Duration) *IdentityProvider {
	return &IdentityProvider{
		api:           api,
		statePath:     filepath.Join(dir, "identity.json"),
		sessionWindow: sessionWindow,
	}
}

// GetOrCreate returns the current user id, creating one if needed. When
// the server is unreachable the id is minted locally; gameplay never
// blocks on identity.
func (p *IdentityProvider) GetOrCreate(ctx context.Context, username string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == nil {
		p.state = p.loadState()
	}
	if p.state != nil && p.sessionValidLocked(time.Now()) {
		return p.state.UserID, nil
	}

	// Revalidate a known id instead of creating a duplicate user
	if p.state != nil && p.state.UserID != "" {
		if strings.HasPrefix(p.state.UserID, localIDPrefix) {
			p.state.ValidatedAt = time.Now()
			p.saveState()
			return p.state.UserID, nil
		}
		if err := p.api.Ping(ctx, p.state.UserID); err == nil {
			p.state.ValidatedAt = time.Now()
			p.saveState()
			return p.state.UserID, nil
		}
	}

	user, err := p.api.CreateUser(ctx, service.CreateChildRequest{Username: username})
	if err != nil {
		// Server down: mint a local id so the game still runs
		log.Printf("Warning: server identity unavailable, using local id: %v", err)
		p.state = &identityState{
			UserID:      localIDPrefix + uuid.NewString(),
			Username:    username,
			ValidatedAt: time.Now(),
		}
		p.saveState()
		return p.state.UserID, nil
	}

	p.state = &identityState{
		UserID:      user.UserID,
		Username:    user.Username,
		ValidatedAt: time.Now(),
	}
	p.saveState()
	return p.state.UserID, nil
}

// SessionValid reports whether the cached identity is inside its window
func (p *IdentityProvider) SessionValid(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		p.state = p.loadState()
	}
	return p.sessionValidLocked(now)
}

func (p *IdentityProvider) sessionValidLocked(now time.Time) bool {
	return p.state != nil &&
		p.state.UserID != "" &&
		now.Sub(p.state.ValidatedAt) < p.sessionWindow
}

// Invalidate discards the cached identity, forcing a fresh GetOrCreate
func (p *IdentityProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = nil
	if err := os.Remove(p.statePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to remove identity state: %v", err)
	}
}

// IsLocal reports whether the id was minted without the server
func IsLocal(userID string) bool {
	return strings.HasPrefix(userID, localIDPrefix)
}

// StartActivityPinger reports activity on a fixed cadence until ctx ends.
// Local identities are never pinged; the server has no row for them.
func (p *IdentityProvider) StartActivityPinger(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.mu.Lock()
				state := p.state
				p.mu.Unlock()
				if state == nil || state.UserID == "" || IsLocal(state.UserID) {
					continue
				}
				if err := p.api.Ping(ctx, state.UserID); err != nil {
					log.Printf("Warning: activity ping failed: %v", err)
				}
			}
		}
	}()
}

func (p *IdentityProvider) loadState() *identityState {
	data, err := os.ReadFile(p.statePath)
	if err != nil {
		return nil
	}
	var state identityState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("Warning: corrupt identity state, discarding: %v", err)
		return nil
	}
	return &state
}

func (p *IdentityProvider) saveState() {
	data, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to encode identity state: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.statePath), 0o755); err != nil {
		log.Printf("Warning: failed to create state dir: %v", err)
		return
	}
	if err := os.WriteFile(p.statePath, data, 0o644); err != nil {
		log.Printf("Warning: failed to write identity state: %v", err)
	}
}

// String implements fmt.Stringer for debug logging without exposing the file path
func (s *identityState) String() string {
	return fmt.Sprintf("identity(%s, validated %s)", s.UserID, s.ValidatedAt.Format(time.RFC3339))
}
