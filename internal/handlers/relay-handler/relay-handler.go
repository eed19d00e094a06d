package relay_handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	app_error "github.com/Gaetan1303/JDR-test/internal/errors"
	"github.com/Gaetan1303/JDR-test/internal/handlers"
	"github.com/Gaetan1303/JDR-test/internal/middleware"
	"github.com/Gaetan1303/JDR-test/internal/room"
	"github.com/Gaetan1303/JDR-test/internal/websocket"
)

// RelayHandler is the operator/debug HTTP surface next to the ws relay:
// health, hub stats and a read-only mirror of room discovery. The ws
// events stay the source of truth for clients.
type RelayHandler struct {
	Hub      *websocket.Hub
	Registry *room.Registry
}

func NewRelayHandler(hub *websocket.Hub, registry *room.Registry) *RelayHandler {
	return &RelayHandler{
		Hub:      hub,
		Registry: registry,
	}
}

func (h *RelayHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "gm-session-relay",
	})
}

func (h *RelayHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats := h.Hub.Stats()
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	resp := map[string]any{
		"hub":         stats,
		"total_rooms": h.Registry.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("get relay stats", resp, reqID))
	return nil
}

func (h *RelayHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	rooms := h.Registry.ListPublic()
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	resp := map[string]any{
		"count": len(rooms),
		"rooms": rooms,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("successfully list public rooms", resp, reqID))
	return nil
}

func (h *RelayHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")

	found, err := h.Registry.Get(roomID)
	if err != nil {
		return app_error.NewAppError(http.StatusNotFound, "session not found", "roomId")
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("successfully get room", found, reqID))
	return nil
}
