// Package beat holds the guest-side math: estimating the offset between
// the local clock and the server clock, deriving the playback delay that
// lands the next beat on the host's grid, and tap-tempo BPM estimation.
package beat

import "github.com/jonboulle/clockwork"

// ClockSync estimates serverClock - localClock from each received
// snapshot's embedded server timestamp. No round-trip correction is
// attempted; one-way push latency is accepted as noise, and the estimate
// self-corrects because it is refreshed on every snapshot.
type ClockSync struct {
	clock    clockwork.Clock
	offsetMs int64
	synced   bool
}

func NewClockSync(clock clockwork.Clock) *ClockSync {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockSync{clock: clock}
}

// Observe re-estimates the offset from a snapshot's server timestamp and
// returns the new estimate.
func (c *ClockSync) Observe(serverTimeMs int64) int64 {
	c.offsetMs = serverTimeMs - c.clock.Now().UnixMilli()
	c.synced = true
	return c.offsetMs
}

// Offset reports the current estimate. ok is false until the first
// snapshot has been observed.
func (c *ClockSync) Offset() (offsetMs int64, ok bool) {
	return c.offsetMs, c.synced
}

// NowOnServerMs translates the local clock into the server's clock.
func (c *ClockSync) NowOnServerMs() (int64, bool) {
	if !c.synced {
		return 0, false
	}
	return c.clock.Now().UnixMilli() + c.offsetMs, true
}
