package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Hub owns the broadcast subscriber groups: which connections currently
// receive a given room's fire-and-forget events, plus the global set
// every connection sits in for discovery broadcasts. Membership here is
// transport bookkeeping only; the room registry owns the seats, and the
// dispatcher keeps the two in lockstep.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{} // room id -> subscribers
	conns  map[*Client]struct{}            // every live connection

	// sendMu serializes fan-out so every subscriber sees one room's
	// broadcasts in the same order the dispatcher produced them
	sendMu sync.Mutex

	statsMu sync.RWMutex
	stats   HubStats
}

type HubStats struct {
	SubscriberGroups int       `json:"subscriber_groups"`
	OpenConnections  int       `json:"open_connections"`
	TotalConnections int64     `json:"total_connections"`
	EventsRelayed    int64     `json:"events_relayed"`
	StartedAt        time.Time `json:"started_at"`
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		conns:  make(map[*Client]struct{}),
		stats:  HubStats{StartedAt: time.Now()},
	}
}

// Add puts a fresh connection on the global discovery feed.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.updateStats(func(s *HubStats) {
		s.TotalConnections++
	})
	incConnections()

	log.Info().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: client connected")
}

// Remove drops a connection from the global feed and from any group it
// still sits in.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	delete(h.conns, c)
	for roomID, group := range h.groups {
		if _, ok := group[c]; ok {
			delete(group, c)
			if len(group) == 0 {
				delete(h.groups, roomID)
			}
		}
	}
	h.mu.Unlock()

	decConnections()
	log.Info().Str("clientID", c.ID).Str("userID", c.UserID).Msg("ws: client disconnected")
}

// Subscribe adds a connection to a room's broadcast group. Re-subscribing
// is a no-op, which keeps rejoin idempotent at this layer too.
func (h *Hub) Subscribe(roomID string, c *Client) {
	h.mu.Lock()
	if h.groups[roomID] == nil {
		h.groups[roomID] = make(map[*Client]struct{})
	}
	h.groups[roomID][c] = struct{}{}
	groupCount := len(h.groups)
	h.mu.Unlock()

	setGroups(groupCount)
	log.Debug().Str("roomID", roomID).Str("clientID", c.ID).Msg("ws: subscribed to room group")
}

// Unsubscribe removes a connection from a room's broadcast group.
func (h *Hub) Unsubscribe(roomID string, c *Client) {
	h.mu.Lock()
	if group, ok := h.groups[roomID]; ok {
		delete(group, c)
		if len(group) == 0 {
			delete(h.groups, roomID)
		}
	}
	groupCount := len(h.groups)
	h.mu.Unlock()

	setGroups(groupCount)
	log.Debug().Str("roomID", roomID).Str("clientID", c.ID).Msg("ws: unsubscribed from room group")
}

// IsSubscribed reports whether a connection sits in a room's group.
func (h *Hub) IsSubscribed(roomID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[roomID][c]
	return ok
}

// BroadcastToRoom fans an event out to one room's subscriber group,
// sender included if subscribed.
func (h *Hub) BroadcastToRoom(roomID string, env Envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[roomID]))
	for c := range h.groups[roomID] {
		if c.IsActive() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.send(targets, env, roomID)
}

// BroadcastAll fans an event out to every live connection, joined or
// not. This is the global discovery feed (room-created).
func (h *Hub) BroadcastAll(env Envelope) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		if c.IsActive() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.send(targets, env, "")
}

func (h *Hub) send(targets []*Client, env Envelope, roomID string) {
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Str("type", env.Type).Msg("ws: failed to marshal broadcast")
		return
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(data) {
			delivered++
		}
	}

	h.updateStats(func(s *HubStats) {
		s.EventsRelayed++
	})
	addDelivered(delivered)

	log.Debug().Str("roomID", roomID).Str("type", env.Type).Int("targets", len(targets)).Int("delivered", delivered).Msg("ws: broadcast completed")
}

// Stats returns a copy with the live counts filled in.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	groups := len(h.groups)
	conns := len(h.conns)
	h.mu.RUnlock()

	h.statsMu.RLock()
	defer h.statsMu.RUnlock()

	stats := h.stats
	stats.SubscriberGroups = groups
	stats.OpenConnections = conns
	return stats
}

// ConnectionCount reports live connections, used to enforce the
// max-connections limit at upgrade time.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

// Close shuts every client down, used on process shutdown.
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	h.mu.RLock()
	allClients := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		allClients = append(allClients, c)
	}
	h.mu.RUnlock()

	for _, c := range allClients {
		c.Close()
	}

	log.Info().Int("clients", len(allClients)).Msg("ws: hub shutdown completed")
}
