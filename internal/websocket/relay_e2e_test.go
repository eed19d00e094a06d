package websocket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gaetan1303/JDR-test/internal/dice"
	"github.com/Gaetan1303/JDR-test/internal/room"
	"github.com/Gaetan1303/JDR-test/internal/websocket"
)

func startRelay(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()

	hub := websocket.NewHub()
	registry := room.NewRegistry()
	dispatcher := websocket.NewDispatcher(hub, registry, dice.NewSeededRoller(7))
	handler := websocket.NewHandler(hub, dispatcher, 100, 32)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleWS)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server, userID, userName string) *gws.Conn {
	t.Helper()

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws?user_id=" + userID + "&user_name=" + userName
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *gws.Conn, eventType, id string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	env := websocket.Envelope{Type: eventType, ID: id, Data: raw}
	require.NoError(t, conn.WriteJSON(env))
}

func recv(t *testing.T, conn *gws.Conn) websocket.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env websocket.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func recvAck(t *testing.T, conn *gws.Conn) websocket.Ack {
	t.Helper()

	env := recv(t, conn)
	require.Equal(t, "ack", env.Type)
	var ack websocket.Ack
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	return ack
}

func TestRelay_SessionFlow(t *testing.T) {
	srv, _ := startRelay(t)

	gm := dial(t, srv, "gm1", "GM")

	send(t, gm, "create-room", "c1", room.Spec{
		ID:         "r1",
		Name:       "Winter Court",
		GMID:       "gm1",
		GMName:     "GM",
		MaxPlayers: 2,
		IsPublic:   true,
	})
	ack := recvAck(t, gm)
	require.True(t, ack.OK)
	require.NotNil(t, ack.Room)
	assert.Equal(t, "Winter Court", ack.Room.Name)

	// the creator also hears the discovery broadcast
	env := recv(t, gm)
	assert.Equal(t, "room-created", env.Type)

	send(t, gm, "join-room", "j0", websocket.JoinRoomRequest{
		RoomID:   "r1",
		UserID:   "gm1",
		UserName: "GM",
		UserType: "gm",
	})
	ack = recvAck(t, gm)
	require.True(t, ack.OK)
	assert.Empty(t, ack.Room.Players)

	env = recv(t, gm) // own user-joined
	assert.Equal(t, "user-joined", env.Type)

	player := dial(t, srv, "p1", "Hida")
	send(t, player, "join-room", "j1", websocket.JoinRoomRequest{
		RoomID:        "r1",
		UserID:        "p1",
		UserName:      "Hida",
		UserType:      "player",
		CharacterName: "Hida Toshiro",
	})
	ack = recvAck(t, player)
	require.True(t, ack.OK)
	require.Len(t, ack.Room.Players, 1)
	assert.Equal(t, "Hida Toshiro", ack.Room.Players[0].CharacterName)

	env = recv(t, player) // own user-joined
	assert.Equal(t, "user-joined", env.Type)

	env = recv(t, gm) // player's user-joined reaches the GM
	require.Equal(t, "user-joined", env.Type)
	var joined websocket.UserJoined
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "p1", joined.UserID)
	assert.Equal(t, "player", joined.UserType)

	// chat reaches both subscribers
	send(t, player, "chat", "", websocket.ChatRequest{
		RoomID: "r1",
		Message: websocket.ChatMessage{
			ID:       "m1",
			UserID:   "p1",
			UserName: "Hida",
			Text:     "ready",
		},
	})
	for _, conn := range []*gws.Conn{gm, player} {
		env = recv(t, conn)
		require.Equal(t, "chat", env.Type)
		var msg websocket.ChatMessage
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "ready", msg.Text)
	}

	// dice are rolled by the relay and broadcast to the table
	send(t, player, "dice", "", websocket.DiceRequest{RoomID: "r1", Rolled: 5, Kept: 3, Reason: "attack"})
	for _, conn := range []*gws.Conn{gm, player} {
		env = recv(t, conn)
		require.Equal(t, "dice", env.Type)
		var roll websocket.DiceRoll
		require.NoError(t, json.Unmarshal(env.Data, &roll))
		assert.Equal(t, "p1", roll.UserID)
		require.Len(t, roll.Dice, 5)
		require.Len(t, roll.KeptDice, 3)
		sum := 0
		for _, v := range roll.KeptDice {
			sum += v
		}
		assert.Equal(t, sum, roll.Total)
	}
}

func TestRelay_DisconnectCleansUpMembership(t *testing.T) {
	srv, registry := startRelay(t)

	gm := dial(t, srv, "gm1", "GM")
	send(t, gm, "create-room", "c1", room.Spec{
		ID: "r1", Name: "Table", GMID: "gm1", GMName: "GM", MaxPlayers: 4, IsPublic: true,
	})
	require.True(t, recvAck(t, gm).OK)
	recv(t, gm) // room-created

	send(t, gm, "join-room", "j0", websocket.JoinRoomRequest{RoomID: "r1", UserID: "gm1", UserName: "GM", UserType: "gm"})
	require.True(t, recvAck(t, gm).OK)
	recv(t, gm) // own user-joined

	player := dial(t, srv, "p1", "Hida")
	send(t, player, "join-room", "j1", websocket.JoinRoomRequest{RoomID: "r1", UserID: "p1", UserName: "Hida", UserType: "player"})
	require.True(t, recvAck(t, player).OK)
	recv(t, gm) // player's user-joined

	// abrupt close, no leave-room frame
	player.Close()

	env := recv(t, gm)
	require.Equal(t, "user-left", env.Type)
	var left websocket.UserLeft
	require.NoError(t, json.Unmarshal(env.Data, &left))
	assert.Equal(t, "p1", left.UserID)

	// the room survives with the seat freed
	r, err := registry.Get("r1")
	require.NoError(t, err)
	assert.Empty(t, r.Players)
}

func TestRelay_RejectsMissingIdentity(t *testing.T) {
	srv, _ := startRelay(t)

	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
