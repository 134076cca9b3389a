package party

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dreamconnectxr/Headphone-Party/internal/broadcast"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"github.com/jonboulle/clockwork"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan broadcast.Event, within time.Duration) broadcast.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return broadcast.Event{} // unreachable
	}
}

func recvNoEvent(t *testing.T, ch <-chan broadcast.Event, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no event within %v, but got: %+v", within, ev)
	case <-time.After(within):
		// good: nothing broadcast
	}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	store := NewStore(clock)
	hub := broadcast.New(ctx, func() broadcast.Event {
		return broadcast.Event{Name: broadcast.EventState, Data: store.Snapshot().Payload()}
	}, time.Hour, clock, nil)
	return NewGateway(store, hub, nil)
}

func statePayload(t *testing.T, ev broadcast.Event) types.StatePayload {
	t.Helper()
	if ev.Name != broadcast.EventState {
		t.Fatalf("want %q event, got %q", broadcast.EventState, ev.Name)
	}
	payload, ok := ev.Data.(types.StatePayload)
	if !ok {
		t.Fatalf("want StatePayload, got %T", ev.Data)
	}
	return payload
}

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool     { return &v }

func TestGateway_Mutate_BroadcastsInVersionOrder(t *testing.T) {
	gw := newTestGateway(t)

	_, out := gw.Subscribe()
	first := statePayload(t, recvEvent(t, out, 100*time.Millisecond))
	if first.MessageID != 0 {
		t.Fatalf("after subscribe: want messageId=0, got %d", first.MessageID)
	}

	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncUpdate, BPM: f64(120)}); err != nil {
		t.Fatalf("sync-update: %v", err)
	}
	next := statePayload(t, recvEvent(t, out, 100*time.Millisecond))
	if next.MessageID != 1 || next.BPM == nil || *next.BPM != 120 {
		t.Fatalf("after update: want messageId=1 bpm=120, got %+v", next)
	}

	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncClear}); err != nil {
		t.Fatalf("sync-clear: %v", err)
	}
	next = statePayload(t, recvEvent(t, out, 100*time.Millisecond))
	if next.MessageID != 2 || next.BPM != nil || next.BeatTimestamp != nil {
		t.Fatalf("after clear: want messageId=2 with null tempo, got %+v", next)
	}
}

func TestGateway_HostStatus_EdgeTriggered(t *testing.T) {
	gw := newTestGateway(t)

	_, out := gw.Subscribe()
	_ = recvEvent(t, out, 100*time.Millisecond) // drain join snapshot

	if _, err := gw.Mutate(types.SyncMessage{Type: types.HostStatus, Connected: boolp(true)}); err != nil {
		t.Fatalf("host-status: %v", err)
	}
	ev := recvEvent(t, out, 100*time.Millisecond)
	if ev.Name != broadcast.EventHost {
		t.Fatalf("want host event, got %q", ev.Name)
	}
	if payload := ev.Data.(types.HostPayload); !payload.Connected {
		t.Fatalf("want connected=true, got %+v", payload)
	}

	// Redundant heartbeat: no broadcast, no version change.
	if _, err := gw.Mutate(types.SyncMessage{Type: types.HostStatus, Connected: boolp(true)}); err != nil {
		t.Fatalf("redundant host-status: %v", err)
	}
	recvNoEvent(t, out, 100*time.Millisecond)
	if snap := gw.ReadSnapshot(); snap.Version != 1 {
		t.Fatalf("redundant heartbeat bumped version to %d", snap.Version)
	}

	if _, err := gw.Mutate(types.SyncMessage{Type: types.HostStatus, Connected: boolp(false)}); err != nil {
		t.Fatalf("host-status: %v", err)
	}
	ev = recvEvent(t, out, 100*time.Millisecond)
	if payload := ev.Data.(types.HostPayload); payload.Connected {
		t.Fatalf("want connected=false, got %+v", payload)
	}
}

func TestGateway_Mutate_RejectsMalformedCommands(t *testing.T) {
	gw := newTestGateway(t)

	_, out := gw.Subscribe()
	_ = recvEvent(t, out, 100*time.Millisecond)

	if _, err := gw.Mutate(types.SyncMessage{Type: "dance-party"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("unknown type: want ErrInvalidRequest, got %v", err)
	}
	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncUpdate}); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("missing bpm: want ErrInvalidValue, got %v", err)
	}
	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncUpdate, BPM: f64(-1)}); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("negative bpm: want ErrInvalidValue, got %v", err)
	}
	if _, err := gw.Mutate(types.SyncMessage{Type: types.HostStatus}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing connected: want ErrInvalidRequest, got %v", err)
	}

	recvNoEvent(t, out, 100*time.Millisecond)
	if snap := gw.ReadSnapshot(); snap.Version != 0 {
		t.Fatalf("rejected commands must not mutate, version=%d", snap.Version)
	}
}

func TestGateway_SubscribeAfterMutations_FirstEventIsLatest(t *testing.T) {
	gw := newTestGateway(t)

	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncUpdate, BPM: f64(100)}); err != nil {
		t.Fatalf("sync-update: %v", err)
	}
	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncUpdate, BPM: f64(140)}); err != nil {
		t.Fatalf("sync-update: %v", err)
	}
	if _, err := gw.Mutate(types.SyncMessage{Type: types.SyncClear}); err != nil {
		t.Fatalf("sync-clear: %v", err)
	}

	_, out := gw.Subscribe()
	first := statePayload(t, recvEvent(t, out, 100*time.Millisecond))
	if first.MessageID != 3 || first.BPM != nil {
		t.Fatalf("late subscriber must see the latest state, got %+v", first)
	}
}
