package client

import (
	"community-pulse/domain/event"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one established connection to the server.
type Transport interface {
	WriteFrame(f event.Frame) error
	ReadFrame() (event.Frame, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// WSDialer connects to the server websocket endpoint with a bearer token.
type WSDialer struct {
	URL       string
	Token     string
	WriteWait time.Duration
	dialer    *websocket.Dialer
}

func NewWSDialer(url, token string) *WSDialer {
	return &WSDialer{
		URL:       url,
		Token:     token,
		WriteWait: 10 * time.Second,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (d *WSDialer) Dial(ctx context.Context) (Transport, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.Token)
	conn, resp, err := d.dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", d.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	// Server pings are answered by the default ping handler while ReadFrame runs
	return &wsTransport{conn: conn, writeWait: d.WriteWait}, nil
}

// wsTransport serializes writes: gorilla allows one concurrent writer only.
type wsTransport struct {
	conn      *websocket.Conn
	writeWait time.Duration
	writeMu   sync.Mutex
}

func (t *wsTransport) WriteFrame(f event.Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	return t.conn.WriteJSON(f)
}

func (t *wsTransport) ReadFrame() (event.Frame, error) {
	var f event.Frame
	err := t.conn.ReadJSON(&f)
	return f, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
