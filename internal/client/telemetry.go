package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"terratiles/internal/models"
)

// fallbackCapacity bounds the retained backlog when the server is down.
// The buffer keeps the newest events; old ones roll off.
const fallbackCapacity = 100

// TelemetryRecorder queues gameplay events and flushes them to the server
// in the background. At most one flush is in flight at a time; events
// recorded during a flush are queued for the next one. When a flush fails
// its events are folded into a bounded fallback buffer and retried on the
// next flush, so a dead server costs memory, never gameplay.
type TelemetryRecorder struct {
	api    *API
	userID func() string

	mu       sync.Mutex
	queue    []models.TelemetryEvent
	fallback []models.TelemetryEvent
	flushing bool
}

// NewTelemetryRecorder creates a recorder bound to the current identity
func NewTelemetryRecorder(api *API, userID func() string) *TelemetryRecorder {
	return &TelemetryRecorder{api: api, userID: userID}
}

// LogClassificationSuccess records a correct tile labelling
func (t *TelemetryRecorder) LogClassificationSuccess(imageName, label string, level int) {
	t.record(models.TelemetryEvent{
		Kind:         models.EventClassificationSuccess,
		Message:      fmt.Sprintf("correctly labelled %s as %s", imageName, label),
		Severity:     models.SeverityInfo,
		GameLevel:    level,
		ImageName:    imageName,
		CorrectLabel: label,
	})
}

// LogClassificationFailure records an incorrect tile labelling
func (t *TelemetryRecorder) LogClassificationFailure(imageName, attempted, correct string, level int) {
	t.record(models.TelemetryEvent{
		Kind:           models.EventClassificationFailure,
		Message:        fmt.Sprintf("labelled %s as %s, should be %s", imageName, attempted, correct),
		Severity:       models.SeverityWarning,
		GameLevel:      level,
		ImageName:      imageName,
		AttemptedLabel: attempted,
		CorrectLabel:   correct,
	})
}

// LogError records a client-side error event
func (t *TelemetryRecorder) LogError(message, context string) {
	t.record(models.TelemetryEvent{
		Kind:     models.EventGenericError,
		Message:  message,
		Context:  context,
		Severity: models.SeverityError,
	})
}

func (t *TelemetryRecorder) record(event models.TelemetryEvent) {
	event.UserID = t.userID()
	event.Timestamp = time.Now().UTC()

	t.mu.Lock()
	t.queue = append(t.queue, event)
	shouldFlush := !t.flushing
	if shouldFlush {
		t.flushing = true
	}
	t.mu.Unlock()

	if shouldFlush {
		go t.flush()
	}
}

// RetryFlush kicks a flush of any backlog. A no-op while a flush is
// already in flight.
func (t *TelemetryRecorder) RetryFlush() {
	t.mu.Lock()
	if t.flushing || (len(t.queue) == 0 && len(t.fallback) == 0) {
		t.mu.Unlock()
		return
	}
	t.flushing = true
	t.mu.Unlock()

	go t.flush()
}

// Pending returns how many events await delivery
func (t *TelemetryRecorder) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue) + len(t.fallback)
}

// flush drains the queue and fallback buffer in batches until both are
// empty or a send fails. Runs on its own goroutine; the flushing flag
// guarantees a single flight.
func (t *TelemetryRecorder) flush() {
	for {
		t.mu.Lock()
		batch := append(t.fallback, t.queue...)
		t.fallback = nil
		t.queue = nil
		if len(batch) == 0 {
			t.flushing = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		_, err := t.api.SendTelemetryBatch(ctx, batch)
		cancel()
		if err != nil {
			log.Printf("Warning: telemetry flush failed, buffering %d events: %v", len(batch), err)
			t.mu.Lock()
			// The retry backlog is bounded at fallbackCapacity, matching
			// the browser client's local-storage cap. An unreachable
			// server sheds the oldest events rather than growing memory.
			t.fallback = capTail(append(batch, t.fallback...), fallbackCapacity)
			t.flushing = false
			t.mu.Unlock()
			return
		}
	}
}

// capTail keeps the newest n events
func capTail(events []models.TelemetryEvent, n int) []models.TelemetryEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
