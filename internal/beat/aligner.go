package beat

import "math"

// MaxDelayMs is the largest playback delay the audio engine supports.
// Recommendations beyond it mean the stream is more than one delay-window
// out of phase and only partial correction is possible.
const MaxDelayMs = 2000

// AlignDelay computes the additional output delay, in milliseconds, that
// makes the next perceived beat land on a boundary of the host's beat
// grid. Callers must have a tempo and beat origin; clamp the result with
// ClampDelay before handing it to the audio engine.
func AlignDelay(bpm float64, beatOriginMs, offsetMs, localNowMs int64) float64 {
	beatDurationMs := 60000 / bpm
	nowOnServer := float64(localNowMs + offsetMs)
	elapsed := math.Mod(nowOnServer-float64(beatOriginMs), beatDurationMs)
	if elapsed < 0 {
		elapsed += beatDurationMs
	}
	return beatDurationMs - elapsed
}

// ClampDelay limits a recommendation to the supported delay range.
func ClampDelay(delayMs float64) float64 {
	return math.Max(0, math.Min(MaxDelayMs, delayMs))
}
