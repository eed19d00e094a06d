package websocket

import (
	"encoding/json"
	"time"

	"github.com/Gaetan1303/JDR-test/internal/room"
)

// Inbound event types. create-room, list-rooms, join-room and find-room
// are request/response (the envelope carries a correlation id and the
// relay answers with an ack); leave-room, chat and dice are
// fire-and-forget.
const (
	EventCreateRoom = "create-room"
	EventListRooms  = "list-rooms"
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventChat       = "chat"
	EventDice       = "dice"
	EventFindRoom   = "find-room"
)

// Outbound event types.
const (
	EventAck         = "ack"
	EventRoomCreated = "room-created"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
)

// Envelope is one frame on the wire, in both directions.
// Data stays raw until the event type tells us what to decode.
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Ack is the direct answer to a request/response event. Exactly one of
// Room/Rooms is set on success, Error on failure.
type Ack struct {
	OK    bool         `json:"ok"`
	Error string       `json:"error,omitempty"`
	Room  *room.Room   `json:"room,omitempty"`
	Rooms []*room.Room `json:"rooms,omitempty"`
}

const (
	UserTypePlayer = "player"
	UserTypeGM     = "gm"
)

type JoinRoomRequest struct {
	RoomID        string `json:"roomId" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	UserName      string `json:"userName" validate:"required"`
	UserType      string `json:"userType" validate:"required,oneof=player gm"`
	CharacterName string `json:"characterName,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type FindRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// ChatMessage is relayed verbatim, the relay never stores or interprets
// it. Timestamp stays a string for the same reason.
type ChatMessage struct {
	ID        string `json:"id" validate:"required"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId" validate:"required"`
	UserName  string `json:"userName" validate:"required"`
	Text      string `json:"text" validate:"required"`
	Timestamp string `json:"timestamp"`
}

type ChatRequest struct {
	RoomID  string      `json:"roomId" validate:"required"`
	Message ChatMessage `json:"message" validate:"required"`
}

// DiceRequest asks the relay to roll. Die values are always generated
// server side; anything else a client puts in the payload is discarded
// so nobody can forge a roll.
type DiceRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Rolled int    `json:"rolled" validate:"required"`
	Kept   int    `json:"kept" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

type DiceRoll struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rolled    int       `json:"rolled"`
	Kept      int       `json:"kept"`
	Dice      []int     `json:"dice"`
	KeptDice  []int     `json:"keptDice"`
	Total     int       `json:"total"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type UserJoined struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserType      string `json:"userType"`
	CharacterName string `json:"characterName,omitempty"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

func newEnvelope(eventType, id string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: eventType, ID: id, Data: raw}, nil
}
