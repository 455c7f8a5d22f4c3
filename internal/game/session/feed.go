package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// Feed routes batches of battle events to a Go channel, bridging a battle
// session to a streaming consumer such as the gRPC watch stream.
type Feed struct {
	battleID string
	events   chan []battle.Event
	mu       sync.Mutex
	closed   bool
}

// NewFeed creates a Feed for the given battle.
//
// Precondition: battleID must be non-empty.
// Postcondition: Returns a Feed with an open events channel.
func NewFeed(battleID string, bufferSize int) *Feed {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Feed{
		battleID: battleID,
		events:   make(chan []battle.Event, bufferSize),
	}
}

// BattleID returns the battle the feed follows.
func (f *Feed) BattleID() string {
	return f.battleID
}

// Push enqueues a batch of events.
//
// Postcondition: evs is enqueued, or an error if the feed is closed or full.
func (f *Feed) Push(evs []battle.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("feed %s is closed", f.battleID)
	}
	select {
	case f.events <- evs:
		return nil
	default:
		return fmt.Errorf("feed %s event buffer full", f.battleID)
	}
}

// Events returns the read-only events channel. It is closed when the battle
// is finished or abandoned, or the feed is cancelled.
func (f *Feed) Events() <-chan []battle.Event {
	return f.events
}

// Close marks the feed as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// IsClosed reports whether the feed has been closed.
func (f *Feed) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
