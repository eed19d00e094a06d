package room

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound      = errors.New("room not found")
	ErrFull          = errors.New("room full")
	ErrAlreadyExists = errors.New("room already exists")
)

// Registry owns every room for the life of the process. All membership
// mutations go through it so the capacity check-then-append stays atomic
// under one lock. Rooms are never deleted, only players come and go.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string // room ids in creation order, drives listing order
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create inserts a new empty room. A colliding id is rejected instead of
// overwriting the existing room.
func (reg *Registry) Create(spec Spec) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[spec.ID]; exists {
		return nil, ErrAlreadyExists
	}

	r := &Room{
		ID:         spec.ID,
		Name:       spec.Name,
		GMID:       spec.GMID,
		GMName:     spec.GMName,
		MaxPlayers: spec.MaxPlayers,
		IsPublic:   spec.IsPublic,
		Players:    []Player{},
		CreatedAt:  time.Now(),
	}

	reg.rooms[spec.ID] = r
	reg.order = append(reg.order, spec.ID)

	log.Info().Str("roomID", r.ID).Str("name", r.Name).Str("gm", r.GMName).Int("maxPlayers", r.MaxPlayers).Msg("registry: room created")
	return r.snapshot(), nil
}

// Get returns a copy of the room, callers never see live state.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.snapshot(), nil
}

// ListPublic returns every public room in creation order.
func (reg *Registry) ListPublic() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]*Room, 0, len(reg.order))
	for _, id := range reg.order {
		if r := reg.rooms[id]; r.IsPublic {
			rooms = append(rooms, r.snapshot())
		}
	}
	return rooms
}

// AddPlayer seats a player. Re-joining with an id already seated is a
// success without touching the list (reconnects), a full room is an
// ErrFull, both reported to the caller rather than fatal.
func (reg *Registry) AddPlayer(id string, p Player) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}

	for _, existing := range r.Players {
		if existing.ID == p.ID {
			return r.snapshot(), nil
		}
	}

	if len(r.Players) >= r.MaxPlayers {
		return nil, ErrFull
	}

	r.Players = append(r.Players, p)
	log.Info().Str("roomID", id).Str("userID", p.ID).Int("seated", len(r.Players)).Msg("registry: player joined")
	return r.snapshot(), nil
}

// RemovePlayer unseats a player. Unknown room or player is a no-op.
func (reg *Registry) RemovePlayer(id, playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[id]
	if !ok {
		return
	}

	for i, p := range r.Players {
		if p.ID == playerID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			log.Info().Str("roomID", id).Str("userID", playerID).Msg("registry: player left")
			return
		}
	}
}

// Count reports how many rooms exist, public or not.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
