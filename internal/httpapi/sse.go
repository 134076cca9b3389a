package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Dreamconnectxr/Headphone-Party/internal/broadcast"
	"github.com/Dreamconnectxr/Headphone-Party/internal/party"
	"go.uber.org/zap"
)

// Events serves the long-lived push channel as a server-sent event stream.
// The first frame is always the current state snapshot; keep-alives go out
// as comment lines so proxies do not reap the idle connection.
func Events(gw *party.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		id, out := gw.Subscribe()
		defer gw.Unsubscribe(id)
		log.Debug("subscriber joined", zap.String("subscriber_id", id))

		for {
			select {
			case <-r.Context().Done():
				return

			case ev, open := <-out:
				if !open {
					// Dropped by the broadcaster or server shutdown.
					return
				}
				if err := writeEvent(w, ev); err != nil {
					log.Debug("subscriber write failed",
						zap.String("subscriber_id", id), zap.Error(err))
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w io.Writer, ev broadcast.Event) error {
	if ev.Name == broadcast.EventKeepAlive {
		_, err := io.WriteString(w, ": keep-alive\n\n")
		return err
	}

	data, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
