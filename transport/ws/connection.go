// Package ws is the server side websocket transport: it authenticates the upgrade,
// registers each socket as a contract.Conn and pumps frames in both directions.
package ws

import (
	"community-pulse/contract"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var _ contract.Conn = (*Connection)(nil)

type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func DefaultOptions() Options {
	pongWait := 60 * time.Second
	return Options{
		SendBuffer:     256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
	}
}

// Connection is one authenticated socket. Outbound payloads go through a bounded
// queue drained by writePump, so Send never waits on the network.
type Connection struct {
	id          string
	userID      string
	connectedAt time.Time
	log         *slog.Logger
	ws          *websocket.Conn
	opts        Options
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
}

func newConnection(log *slog.Logger, ws *websocket.Conn, userID string, opts Options) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:          id,
		userID:      userID,
		connectedAt: time.Now().UTC(),
		log:         log.With("conn_id", id, "user_id", userID),
		ws:          ws,
		opts:        opts,
		send:        make(chan []byte, opts.SendBuffer),
		done:        make(chan struct{}),
	}
}

func (c *Connection) ID() string             { return c.id }
func (c *Connection) UserID() string         { return c.userID }
func (c *Connection) ConnectedAt() time.Time { return c.connectedAt }

// Send queues payload for the write pump. A full queue means the client cannot
// keep up: it is disconnected rather than allowed to stall the fan-out.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
		c.log.Warn("Send queue full, closing slow consumer", "capacity", cap(c.send))
		c.Close()
		return errors.ErrSlowConsumer
	}
}

// Close is idempotent. The pumps notice and release the socket.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) reply(f event.Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		c.log.Error("Cannot encode reply frame", "op", f.Op, "error", err)
		return
	}
	if err = c.Send(payload); err != nil {
		c.log.Debug("Reply dropped", "op", f.Op, "error", err)
	}
}

// readPump handles join and leave requests until the socket fails or the peer goes away.
// Disconnecting from the router happens here, exactly once per connection.
func (c *Connection) readPump(router contract.IRouter) {
	defer func() {
		router.Disconnect(c.id)
		c.Close()
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Connection lost", "error", err)
			}
			return
		}

		var frame event.Frame
		if err = json.Unmarshal(msg, &frame); err != nil {
			c.log.Debug("Malformed frame dropped", "error", err)
			c.reply(event.ErrorFrame("", errors.ErrMalformedFrame))
			continue
		}

		switch frame.Op {
		case event.OpJoin, event.OpLeave:
			c.handleMembership(router, frame)
		default:
			c.log.Debug("Unsupported client frame dropped", "op", frame.Op)
		}
	}
}

func (c *Connection) handleMembership(router contract.IRouter, frame event.Frame) {
	room, err := domain.ParseRoom(frame.Room.String())
	if err == nil {
		if frame.Op == event.OpJoin {
			err = router.Join(c.id, room)
		} else {
			err = router.Leave(c.id, room)
		}
	}
	if err != nil {
		c.log.Warn("Membership change refused", "op", frame.Op, "room", frame.Room, "error", err)
		c.reply(event.ErrorFrame(frame.Room, err))
		return
	}
	c.reply(event.AckFrame(frame.Op, room))
}

// writePump writes queued payloads in order, one websocket message each,
// and keeps the peer alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write failed", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			err := c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteWait))
			if err != nil && !stderrors.Is(err, websocket.ErrCloseSent) {
				c.log.Debug("Close frame not sent", "error", err)
			}
			return
		}
	}
}
