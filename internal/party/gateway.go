package party

import (
	"fmt"
	"sync"

	"github.com/Dreamconnectxr/Headphone-Party/internal/broadcast"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// outboxSize bounds how far a subscriber may fall behind before the
// broadcaster drops it.
const outboxSize = 8

// Gateway is the request-facing surface of the sync engine. The mutate
// path is serialized so version increments and broadcasts stay in the
// same order; reads and subscriptions never take the mutate lock.
type Gateway struct {
	mu    sync.Mutex
	store *Store
	hub   *broadcast.Broadcaster
	log   *zap.Logger
}

func NewGateway(store *Store, hub *broadcast.Broadcaster, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{store: store, hub: hub, log: log}
}

// Mutate validates and applies one sync command, then publishes the
// resulting event. Redundant host-status updates publish nothing.
func (g *Gateway) Mutate(msg types.SyncMessage) (Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch msg.Type {
	case types.SyncUpdate:
		if msg.BPM == nil {
			return Snapshot{}, fmt.Errorf("%w: missing bpm", ErrInvalidValue)
		}
		snap, err := g.store.SetTempo(*msg.BPM)
		if err != nil {
			return Snapshot{}, err
		}
		g.publishState(snap)
		g.log.Info("tempo updated",
			zap.Float64("bpm", *msg.BPM),
			zap.Uint64("version", snap.Version))
		return snap, nil

	case types.SyncClear:
		snap := g.store.Clear()
		g.publishState(snap)
		g.log.Info("tempo cleared", zap.Uint64("version", snap.Version))
		return snap, nil

	case types.HostStatus:
		if msg.Connected == nil {
			return Snapshot{}, fmt.Errorf("%w: missing connected flag", ErrInvalidRequest)
		}
		snap, changed := g.store.SetHostConnected(*msg.Connected)
		if changed {
			g.hub.Inbox() <- broadcast.Publish{Event: broadcast.Event{
				Name: broadcast.EventHost,
				Data: types.HostPayload{Connected: *msg.Connected},
			}}
			g.log.Info("host status changed", zap.Bool("connected", *msg.Connected))
		}
		return snap, nil

	default:
		return Snapshot{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, msg.Type)
	}
}

func (g *Gateway) publishState(snap Snapshot) {
	g.hub.Inbox() <- broadcast.Publish{Event: broadcast.Event{
		Name: broadcast.EventState,
		Data: snap.Payload(),
	}}
}

// Subscribe registers a new subscriber channel. The first event on the
// returned channel is always the current state snapshot.
func (g *Gateway) Subscribe() (string, <-chan broadcast.Event) {
	id := uuid.NewString()
	out := make(chan broadcast.Event, outboxSize)
	g.hub.Inbox() <- broadcast.Join{ID: id, Outbox: out}
	return id, out
}

// Unsubscribe removes a subscriber channel. Safe to call after the
// broadcaster has already dropped it.
func (g *Gateway) Unsubscribe(id string) {
	g.hub.Inbox() <- broadcast.Leave{ID: id}
}

// ReadSnapshot returns a point-in-time snapshot without touching the
// mutate lock.
func (g *Gateway) ReadSnapshot() Snapshot {
	return g.store.Snapshot()
}
