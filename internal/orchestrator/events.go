package orchestrator

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"warden/internal/decision"
)

// GateEvent is emitted once per audit row so observers can follow a run live.
type GateEvent struct {
	Seq          uint64
	Timestamp    time.Time
	RunID        string
	TaskID       string
	Layer        decision.Layer
	Decision     decision.Decision
	ReasonCode   string
	Sealed       bool
	FinalDecider decision.Decider
}

// EventBus fans gate events out to subscribers over buffered channels.
// Emit never blocks; a slow subscriber drops events rather than stalling
// the pipeline.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan GateEvent
	sequence    atomic.Uint64
}

// NewEventBus creates an event bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe returns a buffered channel of events.
func (b *EventBus) Subscribe() <-chan GateEvent {
	ch := make(chan GateEvent, 64)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *EventBus) Unsubscribe(ch <-chan GateEvent) {
	if ch == nil {
		return
	}
	target := reflect.ValueOf(ch).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if reflect.ValueOf(sub).Pointer() == target {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Emit assigns a sequence number and dispatches to all subscribers.
// Safe to call from any goroutine.
func (b *EventBus) Emit(event GateEvent) {
	event.Seq = b.sequence.Add(1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default: // Drop if channel full
		}
	}
	b.mu.RUnlock()
}

// Emitted returns the total number of events emitted so far.
func (b *EventBus) Emitted() uint64 {
	return b.sequence.Load()
}

// Close shuts down the bus and closes every subscriber channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}
