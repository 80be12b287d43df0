package orchestrator

import (
	"testing"
	"time"

	"warden/internal/decision"
)

func TestEventBus_SequencesEvents(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Emit(GateEvent{Layer: decision.LayerMeaning, Decision: decision.Run})
	bus.Emit(GateEvent{Layer: decision.LayerConsistency, Decision: decision.Run})

	first := <-ch
	second := <-ch
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seqs = %d, %d; want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Error("expected timestamp to be assigned")
	}
	if bus.Emitted() != 2 {
		t.Errorf("Emitted() = %d, want 2", bus.Emitted())
	}
}

func TestEventBus_FanOut(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()
	bus.Emit(GateEvent{Layer: decision.LayerRFL, Decision: decision.PauseForHITL})

	for _, ch := range []<-chan GateEvent{a, b} {
		select {
		case ev := <-ch:
			if ev.Layer != decision.LayerRFL {
				t.Errorf("layer = %q, want rfl", ev.Layer)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestEventBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	bus.Subscribe() // Never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ { // Exceeds channel buffer
			bus.Emit(GateEvent{Layer: decision.LayerMeaning, Decision: decision.Run})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("expected unsubscribed channel to be closed")
	}

	// Emitting after unsubscribe must not panic.
	bus.Emit(GateEvent{Layer: decision.LayerMeaning, Decision: decision.Run})
}

func TestEventBus_CloseClosesSubscribers(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	ch := bus.Subscribe()
	bus.Close()

	if _, open := <-ch; open {
		t.Error("expected channel to be closed after bus close")
	}
}
