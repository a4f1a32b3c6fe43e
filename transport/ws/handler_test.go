package ws_test

import (
	"community-pulse/auth"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/runtime"
	"community-pulse/transport/ws"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *runtime.Registry
	tokens   *auth.Tokens
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry(log)
	tokens := auth.NewTokens("test-secret", "community-pulse")
	server := httptest.NewServer(ws.NewHandler(log, registry, tokens, ws.DefaultOptions()))
	t.Cleanup(server.Close)
	return &fixture{registry: registry, tokens: tokens, server: server}
}

func (f *fixture) dial(t *testing.T, userID string) *websocket.Conn {
	token, err := f.tokens.GenerateToken(userID, []string{auth.RoleSubscriber}, time.Minute)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) event.Frame {
	var frame event.Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandler_RefusesMissingToken(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Zero(f.registry.ConnectionCount())
}

func TestHandler_JoinAckAndDelivery(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t, "42")

	// When the client joins a sector
	req.NoError(conn.WriteJSON(event.JoinFrame(domain.SectorRoom("fiqh"))))

	// Then the server acknowledges it
	ack := readFrame(t, conn)
	req.Equal(event.OpAck, ack.Op)
	req.Equal(event.Type(event.OpJoin), ack.Type)
	req.Equal(domain.SectorRoom("fiqh"), ack.Room)

	// And routed events reach the socket
	payload, err := event.EncodeFrame(event.Announcement("Fiqh circle moved", "fiqh"), domain.SectorRoom("fiqh"), time.Now())
	req.NoError(err)
	req.Equal(1, f.registry.Route(domain.SectorRoom("fiqh"), payload))

	frame := readFrame(t, conn)
	received, err := event.DecodeFrame(frame)
	req.NoError(err)
	req.Equal(event.AnnouncementReceived{Title: "Fiqh circle moved", Audience: "fiqh"}, received.Payload)
}

func TestHandler_ForeignUserRoom_ErrorFrame(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conn := f.dial(t, "42")

	req.NoError(conn.WriteJSON(event.JoinFrame(domain.UserRoom("7"))))

	frame := readFrame(t, conn)
	req.Equal(event.OpError, frame.Op)
	req.Equal(domain.UserRoom("7"), frame.Room)
	req.NotEmpty(frame.Error)
	req.Nil(f.registry.Members(domain.UserRoom("7")))
}

func TestHandler_ClientClose_Disconnects(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "42")
	require.Eventually(t, func() bool { return f.registry.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	require.Eventually(t, func() bool {
		return f.registry.ConnectionCount() == 0 && f.registry.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
