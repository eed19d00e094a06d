package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Gaetan1303/JDR-test/internal/dice"
	"github.com/Gaetan1303/JDR-test/internal/room"
)

// Error strings surfaced to clients in failure acks. The UI shows them
// inline, so they stay short.
const (
	errRoomNotFound    = "room not found"
	errRoomFull        = "room full"
	errRoomExists      = "room already exists"
	errSessionNotFound = "session not found"
	errBadRequest      = "bad request"
)

// Dispatcher is the relay's protocol state machine. Every inbound frame
// from any connection lands here; the dispatcher validates it, mutates
// the room registry when needed, acks request/response events back to
// the sender and fans fire-and-forget events out to the right
// subscriber group.
type Dispatcher struct {
	hub      *Hub
	registry *room.Registry
	roller   *dice.Roller
	validate *validator.Validate

	// joinMu serializes membership changes so the registry's seat list
	// and the hub's subscriber groups never drift apart.
	joinMu sync.Mutex
}

func NewDispatcher(hub *Hub, registry *room.Registry, roller *dice.Roller) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		registry: registry,
		roller:   roller,
		validate: validator.New(),
	}
}

// Dispatch handles one inbound frame to completion. A bad frame from
// one connection must never take the relay down, so every failure is
// converted into an error ack (when there is an ack channel) or dropped
// with a log line (when there is not).
func (d *Dispatcher) Dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().Err(err).Str("clientID", c.ID).Msg("relay: unparseable frame")
		return
	}

	switch env.Type {
	case EventCreateRoom:
		d.handleCreateRoom(c, env)
	case EventListRooms:
		d.handleListRooms(c, env)
	case EventJoinRoom:
		d.handleJoinRoom(c, env)
	case EventLeaveRoom:
		d.handleLeaveRoom(c, env)
	case EventChat:
		d.handleChat(c, env)
	case EventDice:
		d.handleDice(c, env)
	case EventFindRoom:
		d.handleFindRoom(c, env)
	default:
		// label only known types, inbound frames are untrusted
		countEvent("unknown")
		log.Warn().Str("clientID", c.ID).Str("type", env.Type).Msg("relay: unknown event type")
		d.nack(c, env, errBadRequest)
		return
	}

	countEvent(env.Type)
}

// Disconnect reconciles state after the transport drops a connection:
// the equivalent of leave-room for the room the connection sat in, so
// no phantom members linger. The room itself lives on.
func (d *Dispatcher) Disconnect(c *Client) {
	d.joinMu.Lock()
	defer d.joinMu.Unlock()

	if js, ok := c.Joined(); ok {
		if js.userType == UserTypePlayer {
			d.registry.RemovePlayer(js.roomID, js.userID)
		}
		d.hub.Unsubscribe(js.roomID, c)
		c.setUnjoined()
		d.broadcastToRoom(js.roomID, EventUserLeft, UserLeft{UserID: js.userID})
		log.Info().Str("clientID", c.ID).Str("roomID", js.roomID).Msg("relay: membership reconciled after disconnect")
	}

	d.hub.Remove(c)
}

func (d *Dispatcher) handleCreateRoom(c *Client, env Envelope) {
	var spec room.Spec
	if !d.decode(c, env, &spec) {
		return
	}

	created, err := d.registry.Create(spec)
	if err != nil {
		d.nack(c, env, errRoomExists)
		return
	}

	d.ack(c, env, Ack{OK: true, Room: created})

	// global discovery feed, every connection hears about new rooms
	d.broadcastAll(EventRoomCreated, created)
}

func (d *Dispatcher) handleListRooms(c *Client, env Envelope) {
	d.ack(c, env, Ack{OK: true, Rooms: d.registry.ListPublic()})
}

func (d *Dispatcher) handleJoinRoom(c *Client, env Envelope) {
	var req JoinRoomRequest
	if !d.decode(c, env, &req) {
		return
	}

	d.joinMu.Lock()
	defer d.joinMu.Unlock()

	// seat the target room first: a refused join must leave the
	// sender's current membership untouched
	var snapshot *room.Room
	var err error

	if req.UserType == UserTypePlayer {
		snapshot, err = d.registry.AddPlayer(req.RoomID, room.Player{
			ID:            req.UserID,
			Name:          req.UserName,
			CharacterName: req.CharacterName,
		})
	} else {
		// the GM owns the room and is not seated in players
		snapshot, err = d.registry.Get(req.RoomID)
	}

	if err != nil {
		switch {
		case errors.Is(err, room.ErrFull):
			d.nack(c, env, errRoomFull)
		case errors.Is(err, room.ErrNotFound):
			d.nack(c, env, errRoomNotFound)
		default:
			d.nack(c, env, errBadRequest)
		}
		return
	}

	// one active room at a time: only a successful switch leaves the
	// previous room
	if js, ok := c.Joined(); ok && js.roomID != req.RoomID {
		d.leaveLocked(c, js)
	}

	d.hub.Subscribe(req.RoomID, c)
	c.setJoined(req.RoomID, req.UserID, req.UserType)

	d.ack(c, env, Ack{OK: true, Room: snapshot})

	// sender included: it is already subscribed at this point
	d.broadcastToRoom(req.RoomID, EventUserJoined, UserJoined{
		UserID:        req.UserID,
		UserName:      req.UserName,
		UserType:      req.UserType,
		CharacterName: req.CharacterName,
	})

	log.Info().Str("roomID", req.RoomID).Str("userID", req.UserID).Str("userType", req.UserType).Msg("relay: user joined room")
}

func (d *Dispatcher) handleLeaveRoom(c *Client, env Envelope) {
	var req LeaveRoomRequest
	if !d.decode(c, env, &req) {
		return
	}

	d.joinMu.Lock()
	defer d.joinMu.Unlock()

	js, ok := c.Joined()
	if !ok {
		// invalid transition, detectable instead of silently ignored
		log.Warn().Str("clientID", c.ID).Str("roomID", req.RoomID).Msg("relay: leave-room while unjoined")
		return
	}
	if js.roomID != req.RoomID {
		log.Warn().Str("clientID", c.ID).Str("joined", js.roomID).Str("requested", req.RoomID).Msg("relay: leave-room for a room the connection is not in")
		return
	}

	js.userID = req.UserID
	d.leaveLocked(c, js)
}

// leaveLocked does the shared leave work: registry seat, subscriber
// group and connection state together, then tells the remaining
// subscribers. Callers hold joinMu.
func (d *Dispatcher) leaveLocked(c *Client, js joinState) {
	if js.userType == UserTypePlayer {
		d.registry.RemovePlayer(js.roomID, js.userID)
	}
	d.hub.Unsubscribe(js.roomID, c)
	c.setUnjoined()

	d.broadcastToRoom(js.roomID, EventUserLeft, UserLeft{UserID: js.userID})
}

func (d *Dispatcher) handleChat(c *Client, env Envelope) {
	var req ChatRequest
	if !d.decode(c, env, &req) {
		return
	}

	// no registry mutation, no storage: relay once and forget
	req.Message.RoomID = req.RoomID
	d.broadcastToRoom(req.RoomID, EventChat, req.Message)

	log.Debug().Str("roomID", req.RoomID).Str("userID", req.Message.UserID).Msg("relay: chat relayed")
}

func (d *Dispatcher) handleDice(c *Client, env Envelope) {
	var req DiceRequest
	if !d.decode(c, env, &req) {
		return
	}

	rolled, kept := dice.Clamp(req.Rolled, req.Kept)
	res := d.roller.Roll(rolled, kept)

	roll := DiceRoll{
		ID:        uuid.New().String(),
		RoomID:    req.RoomID,
		UserID:    c.UserID,
		UserName:  c.UserName,
		Rolled:    rolled,
		Kept:      kept,
		Dice:      res.Dice,
		KeptDice:  res.KeptDice,
		Total:     res.Total,
		Reason:    req.Reason,
		Timestamp: time.Now(),
	}

	d.broadcastToRoom(req.RoomID, EventDice, roll)

	log.Debug().Str("roomID", req.RoomID).Str("userID", c.UserID).Int("rolled", rolled).Int("kept", kept).Int("total", roll.Total).Msg("relay: dice rolled")
}

func (d *Dispatcher) handleFindRoom(c *Client, env Envelope) {
	var req FindRoomRequest
	if !d.decode(c, env, &req) {
		return
	}

	r, err := d.registry.Get(req.RoomID)
	if err != nil {
		d.nack(c, env, errSessionNotFound)
		return
	}

	d.ack(c, env, Ack{OK: true, Room: r})
}

// decode unmarshals and validates an inbound payload. Malformed frames
// become a bad-request ack when the event expects one, and are dropped
// otherwise.
func (d *Dispatcher) decode(c *Client, env Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		log.Warn().Err(err).Str("clientID", c.ID).Str("type", env.Type).Msg("relay: malformed payload")
		d.nack(c, env, errBadRequest)
		return false
	}
	if err := d.validate.Struct(dst); err != nil {
		log.Warn().Err(err).Str("clientID", c.ID).Str("type", env.Type).Msg("relay: invalid payload")
		d.nack(c, env, errBadRequest)
		return false
	}
	return true
}

func (d *Dispatcher) ack(c *Client, env Envelope, ack Ack) {
	if env.ID == "" {
		// fire-and-forget events have no ack channel
		return
	}

	out, err := newEnvelope(EventAck, env.ID, ack)
	if err != nil {
		log.Error().Err(err).Str("clientID", c.ID).Msg("relay: failed to marshal ack")
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("clientID", c.ID).Msg("relay: failed to marshal ack envelope")
		return
	}

	c.enqueue(data)
}

func (d *Dispatcher) nack(c *Client, env Envelope, msg string) {
	d.ack(c, env, Ack{OK: false, Error: msg})
}

func (d *Dispatcher) broadcastToRoom(roomID, eventType string, payload any) {
	env, err := newEnvelope(eventType, "", payload)
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Str("type", eventType).Msg("relay: failed to marshal broadcast")
		return
	}
	d.hub.BroadcastToRoom(roomID, env)
}

func (d *Dispatcher) broadcastAll(eventType string, payload any) {
	env, err := newEnvelope(eventType, "", payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("relay: failed to marshal broadcast")
		return
	}
	d.hub.BroadcastAll(env)
}
