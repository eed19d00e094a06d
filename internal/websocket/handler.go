package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: limit your cors, don't get true so easy in production
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to relay connections. Identity comes
// from the external auth layer as user_id/user_name query params; the
// relay trusts those values verbatim.
type Handler struct {
	Hub        *Hub
	Dispatcher *Dispatcher

	MaxConnections int
	SendBufferSize int
}

func NewHandler(hub *Hub, dispatcher *Dispatcher, maxConnections, sendBufferSize int) *Handler {
	return &Handler{
		Hub:            hub,
		Dispatcher:     dispatcher,
		MaxConnections: maxConnections,
		SendBufferSize: sendBufferSize,
	}
}

func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	userName := r.URL.Query().Get("user_name")
	if userID == "" || userName == "" {
		http.Error(w, "user_id and user_name are required", http.StatusBadRequest)
		return
	}

	if h.MaxConnections > 0 && h.Hub.ConnectionCount() >= h.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	client := NewClient(conn, userID, userName, uuid.New().String(), h.SendBufferSize)

	h.Hub.Add(client)
	client.Start(h.Dispatcher)
}
