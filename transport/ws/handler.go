package ws

import (
	"community-pulse/auth"
	"community-pulse/contract"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler authenticates the websocket handshake and hands the socket to the router.
type Handler struct {
	log      *slog.Logger
	router   contract.IRouter
	tokens   *auth.Tokens
	upgrader websocket.Upgrader
	opts     Options
}

func NewHandler(log *slog.Logger, router contract.IRouter, tokens *auth.Tokens, opts Options) *Handler {
	return &Handler{
		log:    log,
		router: router,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts: opts,
	}
}

// ServeHTTP refuses the upgrade without a valid token: the user id it carries
// decides which user room the connection is bound to.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := auth.BearerToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(raw)
	if err != nil {
		h.log.Debug("Websocket handshake refused", "error", err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(h.log, ws, claims.UserID, h.opts)
	h.router.Register(conn)
	h.log.Info("Subscriber connected", "conn_id", conn.ID(), "user_id", conn.UserID())

	go conn.writePump()
	go conn.readPump(h.router)
}
