package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/Dreamconnectxr/Headphone-Party/internal/party"
	"github.com/Dreamconnectxr/Headphone-Party/internal/types"
	"go.uber.org/zap"
)

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, msg string) {
	sendJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// Sync applies one mutation command and reports ok/error. All state
// changes flow through here.
func Sync(gw *party.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg types.SyncMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&msg); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if _, err := gw.Mutate(msg); err != nil {
			switch {
			case errors.Is(err, party.ErrInvalidValue):
				sendError(w, http.StatusBadRequest, "Invalid BPM value")
			case errors.Is(err, party.ErrInvalidRequest):
				sendError(w, http.StatusBadRequest, "Unknown sync message type")
			default:
				log.Error("sync mutation failed", zap.Error(err))
				sendError(w, http.StatusInternalServerError, "Server Error")
			}
			return
		}

		sendJSON(w, http.StatusOK, struct {
			OK bool `json:"ok"`
		}{OK: true})
	}
}

// State returns a point-in-time snapshot for clients that want to poll or
// resync outside the event stream.
func State(gw *party.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, http.StatusOK, gw.ReadSnapshot().Payload())
	}
}

type interfaceAddr struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

type infoResponse struct {
	Name          string          `json:"name"`
	LocalIPs      []interfaceAddr `json:"localIPs"`
	BPM           *float64        `json:"bpm"`
	BeatTimestamp *int64          `json:"beatTimestamp"`
	HostConnected bool            `json:"hostConnected"`
}

// Info describes the party and the host machine's LAN addresses so guests
// can be pointed at the right URL.
func Info(gw *party.Gateway, partyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := gw.ReadSnapshot()
		sendJSON(w, http.StatusOK, infoResponse{
			Name:          partyName,
			LocalIPs:      localIPs(),
			BPM:           snap.BPM,
			BeatTimestamp: snap.BeatOriginMs,
			HostConnected: snap.HostConnected,
		})
	}
}

func localIPs() []interfaceAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var out []interfaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				out = append(out, interfaceAddr{Interface: iface.Name, Address: ip4.String()})
			}
		}
	}
	return out
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
