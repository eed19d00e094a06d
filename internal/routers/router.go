package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gaetan1303/JDR-test/internal/handlers"
	relay_handler "github.com/Gaetan1303/JDR-test/internal/handlers/relay-handler"
	"github.com/Gaetan1303/JDR-test/internal/middleware"
	"github.com/Gaetan1303/JDR-test/internal/room"
	"github.com/Gaetan1303/JDR-test/internal/websocket"
)

func NewRouter(registry *room.Registry, hub *websocket.Hub, wsHandler *websocket.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)

	relayHandler := relay_handler.NewRelayHandler(hub, registry)

	r.Get("/healthz", relayHandler.HandleHealth)
	r.Get("/stats", handlers.WrapHandler(relayHandler.HandleGetStats))
	r.Handle("/metrics", promhttp.Handler())

	// read-only discovery mirror, the ws events are the source of truth
	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", handlers.WrapHandler(relayHandler.HandleListRooms))
		r.Get("/rooms/{roomId}", handlers.WrapHandler(relayHandler.HandleGetRoom))
	})

	r.Get("/ws", wsHandler.HandleWS)

	return r
}
