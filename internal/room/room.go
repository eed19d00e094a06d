package room

import "time"

// Player is one seat at the table. CharacterName is optional, players
// can join the lobby before picking a sheet.
type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CharacterName string `json:"characterName,omitempty"`
}

// Room is a live play session: one game master, up to MaxPlayers
// players. The GM owns the room but is not counted in Players.
type Room struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	GMID       string    `json:"gmId"`
	GMName     string    `json:"gmName"`
	MaxPlayers int       `json:"maxPlayers"`
	IsPublic   bool      `json:"isPublic"`
	Players    []Player  `json:"players"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Spec carries the creator-supplied fields of a new room.
type Spec struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	GMID       string `json:"gmId" validate:"required"`
	GMName     string `json:"gmName" validate:"required"`
	MaxPlayers int    `json:"maxPlayers" validate:"required,gt=0"`
	IsPublic   bool   `json:"isPublic"`
}

func (r *Room) snapshot() *Room {
	players := make([]Player, len(r.Players))
	copy(players, r.Players)

	cp := *r
	cp.Players = players
	return &cp
}
