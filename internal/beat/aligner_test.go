package beat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignDelay(t *testing.T) {
	tests := []struct {
		name                  string
		bpm                   float64
		origin, offset, nowMs int64
		want                  float64
	}{
		{"mid beat", 120, 0, 0, 1250, 250},
		{"on boundary gets a full beat", 120, 0, 0, 1000, 500},
		{"beat origin in the future", 120, 10_000, 0, 9_750, 250},
		{"offset translates to server clock", 120, 0, 1_000, 9_000, 500},
		{"slow tempo", 60, 0, 0, 250, 750},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AlignDelay(tc.bpm, tc.origin, tc.offset, tc.nowMs)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestAlignDelay_AlwaysWithinOneBeat(t *testing.T) {
	for now := int64(-3000); now <= 3000; now += 73 {
		got := AlignDelay(120, 500, -250, now)
		assert.Greater(t, got, 0.0, "now=%d", now)
		assert.LessOrEqual(t, got, 500.0, "now=%d", now)
	}
}

func TestClampDelay(t *testing.T) {
	assert.Equal(t, 0.0, ClampDelay(-5))
	assert.Equal(t, 300.0, ClampDelay(300))
	assert.Equal(t, float64(MaxDelayMs), ClampDelay(2500))
}
