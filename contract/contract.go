//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"community-pulse/domain"
	"community-pulse/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is the server-side handle of one connected client.
// Send must not block: the transport queues or fails immediately.
type Conn interface {
	ID() string
	UserID() string
	Send(payload []byte) error
}

type IRouter interface {
	Register(conn Conn)
	Join(connID string, roomID domain.RoomID) error
	Leave(connID string, roomID domain.RoomID) error
	Disconnect(connID string)
	Route(roomID domain.RoomID, payload []byte) int
}

type IDispatcher interface {
	Dispatch(evt event.DomainEvent) error
}
