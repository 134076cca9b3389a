package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dreamconnectxr/Headphone-Party/internal/broadcast"
	"github.com/Dreamconnectxr/Headphone-Party/internal/party"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection and streams the same named events as
// the SSE endpoint, framed as JSON. Guests never send commands over the
// socket; mutations go through POST /api/sync.
func Handler(gw *party.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id, out := gw.Subscribe()
		defer gw.Unsubscribe(id)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer writeCancel()
			for ev := range out {
				if err := writeFrame(writeCtx, conn, ev); err != nil {
					return
				}
			}
		}()

		// Reader loop: guests only listen, so reads just watch for the
		// peer going away. writeCtx ends when the broadcaster drops us,
		// which unblocks the read as well.
		for {
			if _, _, err := conn.Read(writeCtx); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				log.Debug("websocket subscriber gone", zap.String("subscriber_id", id))
				return
			}
		}
	}
}

func writeFrame(parent context.Context, conn *websocket.Conn, ev broadcast.Event) error {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()

	if ev.Name == broadcast.EventKeepAlive {
		return conn.Ping(ctx)
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(types.StreamFrame{Event: ev.Name, Data: data})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
