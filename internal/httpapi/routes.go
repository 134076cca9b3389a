package httpapi

import (
	"net/http"

	"github.com/Dreamconnectxr/Headphone-Party/internal/party"
	"github.com/Dreamconnectxr/Headphone-Party/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func SetupRoutes(gw *party.Gateway, partyName string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/api/sync", Sync(gw, log))
	r.Get("/api/state", State(gw))
	r.Get("/api/info", Info(gw, partyName))
	r.Get("/api/events", Events(gw, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(gw, log))

	return cors.AllowAll().Handler(r)
}
