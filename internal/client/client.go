// Package client is the guest-side subscriber: it keeps a long-lived
// connection to the control server's event stream, feeds every snapshot
// into the clock-offset estimate, and exposes the numbers the audio layer
// needs (current state, offset, recommended playback delay).
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Dreamconnectxr/Headphone-Party/internal/beat"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const reconnectDelay = 2 * time.Second

// Client subscribes to a party control server. Set OnState/OnHost before
// calling Run.
type Client struct {
	baseURL string
	httpc   *http.Client
	clock   clockwork.Clock
	log     *zap.Logger
	offsets *beat.ClockSync

	mu       sync.Mutex
	state    *types.StatePayload
	lastSeen time.Time

	// OnState is invoked with every applied snapshot and the refreshed
	// clock offset. OnHost fires on edge-triggered host events.
	OnState func(state types.StatePayload, offsetMs int64)
	OnHost  func(connected bool)
}

func New(baseURL string, log *zap.Logger) *Client {
	return newClient(baseURL, log, clockwork.NewRealClock())
}

func newClient(baseURL string, log *zap.Logger, clock clockwork.Clock) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		clock:   clock,
		log:     log,
		offsets: beat.NewClockSync(clock),
	}
}

// Run subscribes and re-subscribes until the context is cancelled.
// Reconnection resets nothing locally; the first snapshot of the fresh
// stream re-seeds the clock offset.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.subscribeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("event stream closed, reconnecting", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(reconnectDelay):
		}
	}
}

func (c *Client) subscribeOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: unexpected status %d", resp.StatusCode)
	}

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" {
				c.dispatch(ctx, event, data)
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("event stream ended")
}

func (c *Client) dispatch(ctx context.Context, event, data string) {
	switch event {
	case "state":
		var payload types.StatePayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			c.log.Warn("malformed state event, refetching snapshot", zap.Error(err))
			c.refetch(ctx)
			return
		}
		c.apply(payload)

	case "host":
		var payload types.HostPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			c.log.Warn("malformed host event, refetching snapshot", zap.Error(err))
			c.refetch(ctx)
			return
		}
		c.mu.Lock()
		if c.state != nil {
			c.state.HostConnected = payload.Connected
		}
		c.mu.Unlock()
		if c.OnHost != nil {
			c.OnHost(payload.Connected)
		}
	}
}

// refetch pulls a point-in-time snapshot after a payload we could not
// parse, instead of silently waiting for the next broadcast.
func (c *Client) refetch(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/state", nil)
	if err != nil {
		return
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("snapshot refetch failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	var payload types.StatePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warn("snapshot refetch failed", zap.Error(err))
		return
	}
	c.apply(payload)
}

func (c *Client) apply(payload types.StatePayload) {
	offset := c.offsets.Observe(payload.ServerTime)

	c.mu.Lock()
	snapshot := payload
	c.state = &snapshot
	c.lastSeen = c.clock.Now()
	c.mu.Unlock()

	if c.OnState != nil {
		c.OnState(payload, offset)
	}
}

// State returns the last received snapshot, if any.
func (c *Client) State() (types.StatePayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return types.StatePayload{}, false
	}
	return *c.state, true
}

// Offset returns the current clock-offset estimate, if any.
func (c *Client) Offset() (int64, bool) {
	return c.offsets.Offset()
}

// LastSeen reports when the last snapshot arrived, local clock.
func (c *Client) LastSeen() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen, c.state != nil
}

// RecommendedDelay computes the clamped playback delay that aligns the
// local stream to the host's beat grid. ok is false while no tempo is
// set or no snapshot has arrived.
func (c *Client) RecommendedDelay() (delayMs float64, ok bool) {
	state, haveState := c.State()
	offset, haveOffset := c.Offset()
	if !haveState || !haveOffset || state.BPM == nil || state.BeatTimestamp == nil {
		return 0, false
	}
	raw := beat.AlignDelay(*state.BPM, *state.BeatTimestamp, offset, c.clock.Now().UnixMilli())
	return beat.ClampDelay(raw), true
}
