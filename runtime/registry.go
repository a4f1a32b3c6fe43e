package runtime

import (
	"community-pulse/contract"
	"community-pulse/domain"
	"community-pulse/errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.IRouter = (*Registry)(nil)

type connection struct {
	conn        contract.Conn
	userRoom    domain.RoomID
	rooms       map[domain.RoomID]struct{}
	connectedAt time.Time
}

// room owns a weak reference to its members: it never closes them.
type room struct {
	mu      sync.Mutex
	members map[string]contract.Conn
}

// Registry tracks active connections and their room memberships, and routes payloads to rooms.
//
// Two levels of locking:
//  1. mu guards the directory (connections and the room map).
//  2. each room has its own mutex guarding its member set.
//
// Route takes the member snapshot under the room mutex, the same one Join/Leave mutate,
// and performs the sends after releasing every lock so a slow client cannot stall the room.
type Registry struct {
	mu    sync.RWMutex
	log   *slog.Logger
	conns map[string]*connection
	rooms map[domain.RoomID]*room
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: make(map[string]*connection),
		rooms: make(map[domain.RoomID]*room),
	}
}

// Register records a new connection and joins it to its own user room.
func (r *Registry) Register(conn contract.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID()]; ok {
		r.log.Warn("Connection already registered", "conn_id", conn.ID())
		return
	}
	c := &connection{
		conn:        conn,
		userRoom:    domain.UserRoom(conn.UserID()),
		rooms:       make(map[domain.RoomID]struct{}),
		connectedAt: time.Now().UTC(),
	}
	r.conns[conn.ID()] = c
	r.joinLocked(c, c.userRoom)
	r.log.Debug("Connection registered", "conn_id", conn.ID(), "user_id", conn.UserID())
}

// Join is idempotent. An unknown connection is a no-op: it may have disconnected mid-operation.
func (r *Registry) Join(connID string, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		r.log.Debug("Join on unknown connection ignored", "conn_id", connID, "room", roomID)
		return nil
	}
	if roomID.Kind() == domain.UserRoomKind && roomID != c.userRoom {
		return fmt.Errorf("%w: %s", errors.ErrForeignUserRoom, roomID)
	}
	r.joinLocked(c, roomID)
	return nil
}

func (r *Registry) joinLocked(c *connection, roomID domain.RoomID) {
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]contract.Conn)}
		r.rooms[roomID] = rm
	}
	rm.mu.Lock()
	rm.members[c.conn.ID()] = c.conn
	rm.mu.Unlock()
	c.rooms[roomID] = struct{}{}
}

// Leave removes a connection from one topic room. The user room is left only by disconnecting.
func (r *Registry) Leave(connID string, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	if roomID == c.userRoom {
		return errors.ErrOwnUserRoom
	}
	r.leaveLocked(c, roomID)
	return nil
}

func (r *Registry) leaveLocked(c *connection, roomID domain.RoomID) {
	delete(c.rooms, roomID)
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	rm.mu.Lock()
	delete(rm.members, c.conn.ID())
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	// No one is left: drop the room entry to prevent leaks over time
	if empty {
		delete(r.rooms, roomID)
	}
}

// Disconnect removes the connection from every room it belongs to. Safe to call twice.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	for roomID := range c.rooms {
		r.leaveLocked(c, roomID)
	}
	delete(r.conns, connID)
	r.log.Debug("Connection removed", "conn_id", connID,
		"connected_for", time.Since(c.connectedAt).Round(time.Second))
}

// Route delivers payload to every member of roomID at the time of the call and returns
// how many sends succeeded. A failing member is logged and skipped.
func (r *Registry) Route(roomID domain.RoomID, payload []byte) int {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.Lock()
	members := lo.Values(rm.members)
	rm.mu.Unlock()

	delivered := 0
	for _, member := range members {
		if err := member.Send(payload); err != nil {
			r.log.Warn("Delivery to connection failed",
				"conn_id", member.ID(),
				"room", roomID,
				"error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Rooms lists the rooms of a connection, sorted. Nil for unknown connections.
func (r *Registry) Rooms(connID string) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := lo.Keys(c.rooms)
	slices.Sort(rooms)
	return rooms
}

// Members lists the connection ids currently joined to a room, sorted.
func (r *Registry) Members(roomID domain.RoomID) []string {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rm.mu.Lock()
	ids := lo.Keys(rm.members)
	rm.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
