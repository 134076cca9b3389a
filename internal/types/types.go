package types

import "encoding/json"

// Sync message tags accepted by POST /api/sync.
const (
	SyncUpdate = "sync-update"
	SyncClear  = "sync-clear"
	HostStatus = "host-status"
)

// SyncMessage is the body of a POST /api/sync request.
type SyncMessage struct {
	Type      string   `json:"type"`
	BPM       *float64 `json:"bpm,omitempty"`
	Connected *bool    `json:"connected,omitempty"`
}

// StatePayload is the full party snapshot as sent to every subscriber.
// BPM and BeatTimestamp are both null until a tempo is set.
type StatePayload struct {
	BPM           *float64 `json:"bpm"`
	BeatTimestamp *int64   `json:"beatTimestamp"`
	MessageID     uint64   `json:"messageId"`
	HostConnected bool     `json:"hostConnected"`
	ServerTime    int64    `json:"serverTime"`
}

// HostPayload is the edge-triggered host connectivity event.
type HostPayload struct {
	Connected bool `json:"connected"`
}

// StreamFrame wraps a named event for the WebSocket transport, mirroring
// the SSE "event:"/"data:" framing.
type StreamFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
