package party

import (
	"errors"
	"math"
	"sync"

	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalidValue means a BPM was not finite and positive.
	ErrInvalidValue = errors.New("invalid BPM value")

	// ErrInvalidRequest means a sync message was malformed or had an
	// unknown type tag.
	ErrInvalidRequest = errors.New("invalid sync request")
)

// Snapshot is an immutable copy of the party state plus the server-clock
// instant it was produced. BPM and BeatOriginMs are both set or both nil.
type Snapshot struct {
	BPM           *float64
	BeatOriginMs  *int64
	Version       uint64
	HostConnected bool
	ServerTimeMs  int64
}

// Payload converts the snapshot to its wire shape.
func (s Snapshot) Payload() types.StatePayload {
	return types.StatePayload{
		BPM:           s.BPM,
		BeatTimestamp: s.BeatOriginMs,
		MessageID:     s.Version,
		HostConnected: s.HostConnected,
		ServerTime:    s.ServerTimeMs,
	}
}

// Store holds the single authoritative party state. Mutations are atomic:
// a concurrent reader never observes a tempo without its beat origin.
type Store struct {
	mu    sync.Mutex
	clock clockwork.Clock

	bpm           *float64
	beatOriginMs  *int64
	version       uint64
	hostConnected bool
}

func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{clock: clock}
}

// SetTempo records a new shared tempo. The beat origin is pinned to the
// current server time, so the instant of the call is a beat boundary.
func (s *Store) SetTempo(bpm float64) (Snapshot, error) {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return Snapshot{}, ErrInvalidValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	origin := s.clock.Now().UnixMilli()
	s.bpm = &bpm
	s.beatOriginMs = &origin
	s.version++
	return s.snapshotLocked(), nil
}

// Clear drops the tempo and beat origin together.
func (s *Store) Clear() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = nil
	s.beatOriginMs = nil
	s.version++
	return s.snapshotLocked()
}

// SetHostConnected updates the host liveness flag. It is edge-triggered:
// the second return value is false when the flag did not change, so
// redundant heartbeats produce no version bump and no broadcast.
func (s *Store) SetHostConnected(connected bool) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostConnected == connected {
		return s.snapshotLocked(), false
	}
	s.hostConnected = connected
	s.version++
	return s.snapshotLocked(), true
}

// Snapshot returns the current state stamped with the server time.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:       s.version,
		HostConnected: s.hostConnected,
		ServerTimeMs:  s.clock.Now().UnixMilli(),
	}
	if s.bpm != nil {
		bpm := *s.bpm
		origin := *s.beatOriginMs
		snap.BPM = &bpm
		snap.BeatOriginMs = &origin
	}
	return snap
}
