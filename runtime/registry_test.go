package runtime

import (
	"community-pulse/domain"
	"community-pulse/errors"
	"community-pulse/mocks"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeConn struct {
	id     string
	userID string
	mu     sync.Mutex
	got    [][]byte
	err    error
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{id: uuid.NewString(), userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }
func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, payload)
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.got...)
}

func TestRegistry_Register_JoinsUserRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := newFakeConn("42")

	// When a connection registers
	registry.Register(conn)

	// Then it belongs to its user room only
	req.Equal(1, registry.ConnectionCount())
	req.Equal([]domain.RoomID{"user:42"}, registry.Rooms(conn.ID()))
	req.Equal([]string{conn.ID()}, registry.Members(domain.UserRoom("42")))
}

func TestRegistry_Join_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := newFakeConn("42")
	registry.Register(conn)

	// When the same room is joined twice
	req.NoError(registry.Join(conn.ID(), domain.SectorRoom("tajweed")))
	req.NoError(registry.Join(conn.ID(), domain.SectorRoom("tajweed")))

	// Then the membership is recorded once
	req.Len(registry.Members(domain.SectorRoom("tajweed")), 1)
	req.Equal(1, registry.Route(domain.SectorRoom("tajweed"), []byte("x")))
	req.Len(conn.received(), 1)
}

func TestRegistry_UnknownConnection_IsNoop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	req.NoError(registry.Join("ghost", domain.SectorRoom("fiqh")))
	req.NoError(registry.Leave("ghost", domain.SectorRoom("fiqh")))
	registry.Disconnect("ghost")

	req.Zero(registry.RoomCount())
	req.Nil(registry.Rooms("ghost"))
}

func TestRegistry_Join_ForeignUserRoom_Refused(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := newFakeConn("42")
	registry.Register(conn)

	err := registry.Join(conn.ID(), domain.UserRoom("7"))

	req.True(stderrors.Is(err, errors.ErrForeignUserRoom))
	req.Nil(registry.Members(domain.UserRoom("7")))
}

func TestRegistry_Leave_OwnUserRoom_Refused(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := newFakeConn("42")
	registry.Register(conn)

	err := registry.Leave(conn.ID(), domain.UserRoom("42"))

	req.True(stderrors.Is(err, errors.ErrOwnUserRoom))
	req.Equal([]domain.RoomID{"user:42"}, registry.Rooms(conn.ID()))
}

func TestRegistry_Disconnect_RemovesEveryMembership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := newFakeConn("42")
	other := newFakeConn("7")
	registry.Register(conn)
	registry.Register(other)
	req.NoError(registry.Join(conn.ID(), domain.SectorRoom("fiqh")))
	req.NoError(registry.Join(conn.ID(), domain.BroadcastRoom))
	req.NoError(registry.Join(other.ID(), domain.BroadcastRoom))

	// When the connection disconnects
	registry.Disconnect(conn.ID())

	// Then no room references it anymore and empty rooms are dropped
	req.Nil(registry.Rooms(conn.ID()))
	req.Nil(registry.Members(domain.SectorRoom("fiqh")))
	req.Nil(registry.Members(domain.UserRoom("42")))
	req.Equal([]string{other.ID()}, registry.Members(domain.BroadcastRoom))
	req.Equal(2, registry.RoomCount())
	req.Zero(registry.Route(domain.SectorRoom("fiqh"), []byte("x")))
	req.Empty(conn.received())
}

func TestRegistry_Route_RoomIsolation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	inX := newFakeConn("1")
	inY := newFakeConn("2")
	registry.Register(inX)
	registry.Register(inY)
	req.NoError(registry.Join(inX.ID(), domain.SectorRoom("X")))
	req.NoError(registry.Join(inY.ID(), domain.SectorRoom("Y")))

	// When an event is routed to sector:X
	delivered := registry.Route(domain.SectorRoom("X"), []byte("for X"))

	// Then only its members receive it
	req.Equal(1, delivered)
	req.Equal([][]byte{[]byte("for X")}, inX.received())
	req.Empty(inY.received())
}

func TestRegistry_Route_EmptyRoom(t *testing.T) {
	registry := NewRegistry(slog.Default())
	require.Zero(t, registry.Route(domain.SectorRoom("nobody"), []byte("x")))
}

func TestRegistry_Route_FailingMember_DoesNotAbortFanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry(slog.Default())

	// Given a closed connection and a healthy one in the same room
	broken := mocks.NewMockConn(ctrl)
	broken.EXPECT().ID().Return("broken").AnyTimes()
	broken.EXPECT().UserID().Return("1").AnyTimes()
	broken.EXPECT().Send(gomock.Any()).Return(errors.ErrConnectionClosed).Times(1)
	healthy := newFakeConn("2")
	registry.Register(broken)
	registry.Register(healthy)
	req.NoError(registry.Join("broken", domain.BroadcastRoom))
	req.NoError(registry.Join(healthy.ID(), domain.BroadcastRoom))

	// When a payload is routed
	delivered := registry.Route(domain.BroadcastRoom, []byte("salam"))

	// Then the healthy member still gets it
	req.Equal(1, delivered)
	req.Len(healthy.received(), 1)
}

func TestRegistry_ConcurrentLeaveDuringFanout(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	room := domain.SectorRoom("halaqa")

	// Given ten stable members and one member that keeps leaving and rejoining
	var stable []*fakeConn
	for i := 0; i < 10; i++ {
		c := newFakeConn(fmt.Sprint(i))
		registry.Register(c)
		req.NoError(registry.Join(c.ID(), room))
		stable = append(stable, c)
	}
	flaky := newFakeConn("flaky")
	registry.Register(flaky)

	const messages = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < messages; i++ {
			_ = registry.Join(flaky.ID(), room)
			_ = registry.Leave(flaky.ID(), room)
		}
		registry.Disconnect(flaky.ID())
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < messages; i++ {
			registry.Route(room, []byte(fmt.Sprint(i)))
		}
	}()
	wg.Wait()

	// Then no stable member was skipped and order is preserved
	for _, c := range stable {
		got := c.received()
		req.Len(got, messages)
		for i, payload := range got {
			req.Equal(fmt.Sprint(i), string(payload))
		}
	}
	req.LessOrEqual(len(flaky.received()), messages)
	req.Nil(registry.Rooms(flaky.ID()))
}
