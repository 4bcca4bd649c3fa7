// Package events publishes table activity to other processes.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lox/holdemtable/internal/game"
)

// Type names the kind of event.
type Type string

const (
	ActionTaken   Type = "action"
	HandStarted   Type = "hand_started"
	HandCompleted Type = "hand_completed"
	SeatChanged   Type = "seat"
	LevelChanged  Type = "level"
)

// Event is one notification about a table.
type Event struct {
	Type       Type                  `json:"type"`
	TableID    string                `json:"table_id"`
	HandNumber int                   `json:"hand_number,omitempty"`
	Version    int64                 `json:"version"`
	Action     *game.ActionRecord    `json:"action,omitempty"`
	Phase      game.Phase            `json:"phase"`
	Pot        int                   `json:"pot"`
	Winners    []string              `json:"winners,omitempty"`
	Results    []game.ShowdownResult `json:"results,omitempty"`
	PlayerID   string                `json:"player_id,omitempty"`
	Seat       int                   `json:"seat,omitempty"`
	Level      *game.BlindLevel      `json:"level,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// Subject is the NATS subject an event is published on.
func (e Event) Subject() string {
	return fmt.Sprintf("holdem.table.%s.%s", e.TableID, e.Type)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
