package beat

import "math"

const defaultTapCapacity = 10

// TapTempo converts a sequence of tap timestamps into a smoothed BPM
// estimate: 60000 over the mean of the consecutive inter-tap intervals.
// Only the most recent taps are kept; the oldest is overwritten when the
// ring is full.
type TapTempo struct {
	taps  []int64
	head  int
	count int

	bpm       float64
	estimated bool
}

// NewTapTempo creates an estimator keeping the last capacity taps.
// Capacities below 2 fall back to the default.
func NewTapTempo(capacity int) *TapTempo {
	if capacity < 2 {
		capacity = defaultTapCapacity
	}
	return &TapTempo{taps: make([]int64, capacity)}
}

// Tap records one tap at the given millisecond timestamp and returns the
// current estimate. ok is false while fewer than two taps are recorded.
// A non-finite result (zero mean interval from a double-fire) is
// discarded and the previous estimate kept.
func (t *TapTempo) Tap(nowMs int64) (bpm float64, ok bool) {
	idx := (t.head + t.count) % len(t.taps)
	t.taps[idx] = nowMs
	if t.count == len(t.taps) {
		t.head = (t.head + 1) % len(t.taps)
	} else {
		t.count++
	}

	if t.count < 2 {
		return 0, false
	}

	var totalMs int64
	prev := t.taps[t.head]
	for i := 1; i < t.count; i++ {
		cur := t.taps[(t.head+i)%len(t.taps)]
		totalMs += cur - prev
		prev = cur
	}
	meanMs := float64(totalMs) / float64(t.count-1)

	estimate := 60000 / meanMs
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return t.bpm, t.estimated
	}

	t.bpm = estimate
	t.estimated = true
	return estimate, true
}

// Estimate returns the last accepted BPM, if any.
func (t *TapTempo) Estimate() (float64, bool) {
	return t.bpm, t.estimated
}

// Reset empties the tap history and clears the displayed estimate.
func (t *TapTempo) Reset() {
	t.head = 0
	t.count = 0
	t.bpm = 0
	t.estimated = false
}
