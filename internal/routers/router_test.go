package routers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gaetan1303/JDR-test/internal/dice"
	"github.com/Gaetan1303/JDR-test/internal/dtos"
	"github.com/Gaetan1303/JDR-test/internal/room"
	"github.com/Gaetan1303/JDR-test/internal/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()

	registry := room.NewRegistry()
	hub := websocket.NewHub()
	dispatcher := websocket.NewDispatcher(hub, registry, dice.NewRoller())
	wsHandler := websocket.NewHandler(hub, dispatcher, 100, 32)

	srv := httptest.NewServer(NewRouter(registry, hub, wsHandler))
	t.Cleanup(srv.Close)
	return srv, registry
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestListRooms_MirrorsPublicRoomsOnly(t *testing.T) {
	srv, registry := newTestServer(t)

	_, err := registry.Create(room.Spec{ID: "pub", Name: "Open Table", GMID: "gm1", GMName: "GM", MaxPlayers: 4, IsPublic: true})
	require.NoError(t, err)
	_, err = registry.Create(room.Spec{ID: "priv", Name: "Closed Table", GMID: "gm1", GMName: "GM", MaxPlayers: 4, IsPublic: false})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Count int         `json:"count"`
			Rooms []room.Room `json:"rooms"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Data.Count)
	assert.Equal(t, "pub", body.Data.Rooms[0].ID)
}

func TestGetRoom(t *testing.T) {
	srv, registry := newTestServer(t)

	_, err := registry.Create(room.Spec{ID: "r1", Name: "Table 1", GMID: "gm1", GMName: "GM", MaxPlayers: 4, IsPublic: true})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/rooms/r1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/rooms/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body dtos.Response[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Errors)
	assert.Equal(t, http.StatusNotFound, body.Errors.Code)
	assert.Equal(t, "session not found", body.Errors.Message)
	assert.NotEmpty(t, body.RequestID)
}

func TestStatsAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/stats", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
