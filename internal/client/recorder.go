package client

import (
	"context"
	"log"

	"terratiles/internal/service"
)

// StatsRecorder reports completed levels to the stats endpoint. Failures
// are logged and dropped; the progress blob carries the authoritative
// numbers, so a lost session row only thins the admin listings.
type StatsRecorder struct {
	api    *API
	userID func() string
}

// NewStatsRecorder creates a recorder bound to the current identity
func NewStatsRecorder(api *API, userID func() string) *StatsRecorder {
	return &StatsRecorder{api: api, userID: userID}
}

// RecordCompletion reports one finished level
func (r *StatsRecorder) RecordCompletion(ctx context.Context, level, stars, scoreGained, playTimeMinutes int) {
	userID := r.userID()
	if userID == "" || IsLocal(userID) {
		return
	}
	err := r.api.RecordStats(ctx, userID, service.SessionStatsRequest{
		Level:           level,
		Stars:           stars,
		ScoreGained:     scoreGained,
		PlayTimeMinutes: playTimeMinutes,
	})
	if err != nil {
		log.Printf("Warning: failed to record session stats: %v", err)
	}
}
