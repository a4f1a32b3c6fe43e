package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrAlreadyRunning  = fmt.Errorf("already running")
	ErrInvalidRoom     = fmt.Errorf("invalid room")
	ErrForeignUserRoom = fmt.Errorf("cannot join another user's room")
	ErrOwnUserRoom     = fmt.Errorf("cannot leave own user room")

	ErrUnknownEventType  = fmt.Errorf("unknown event type")
	ErrInvalidPayload    = fmt.Errorf("invalid payload")
	ErrInvalidScope      = fmt.Errorf("invalid scope for event type")
	ErrMalformedEvent    = fmt.Errorf("malformed event")
	ErrMalformedFrame    = fmt.Errorf("malformed frame")
	ErrDispatchQueueFull = fmt.Errorf("dispatch queue full")

	ErrInvalidSchedule = fmt.Errorf("invalid daily schedule")
	ErrInvalidClock    = fmt.Errorf("invalid clock time")

	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrSlowConsumer     = fmt.Errorf("connection send queue full")
	ErrHandshakeTimeout = fmt.Errorf("join handshake timed out")
	ErrJoinRefused      = fmt.Errorf("join refused by server")

	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrForbidden    = fmt.Errorf("forbidden")
	ErrInvalidToken = fmt.Errorf("invalid or expired token")

	ErrInvalidConfig = fmt.Errorf("invalid configuration")
)
