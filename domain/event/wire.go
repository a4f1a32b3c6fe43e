package event

import (
	"community-pulse/domain"
	"community-pulse/errors"
	"encoding/json"
	"fmt"
	"time"
)

type Op string

const (
	OpJoin  Op = "join"
	OpLeave Op = "leave"
	OpAck   Op = "ack"
	OpEvent Op = "event"
	OpError Op = "error"
)

// Frame is the single JSON message shape exchanged over the websocket, in both directions.
type Frame struct {
	Op      Op              `json:"op"`
	Room    domain.RoomID   `json:"room,omitempty"`
	Type    Type            `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      *time.Time      `json:"at,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func JoinFrame(room domain.RoomID) Frame  { return Frame{Op: OpJoin, Room: room} }
func LeaveFrame(room domain.RoomID) Frame { return Frame{Op: OpLeave, Room: room} }
func AckFrame(op Op, room domain.RoomID) Frame {
	return Frame{Op: OpAck, Room: room, Type: Type(op)}
}
func ErrorFrame(room domain.RoomID, err error) Frame {
	return Frame{Op: OpError, Room: room, Error: err.Error()}
}

// EncodeFrame serializes an event frame once, so fan-out writes the same bytes to every member.
func EncodeFrame(evt DomainEvent, room domain.RoomID, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return json.Marshal(Frame{Op: OpEvent, Room: room, Type: evt.Type, Payload: payload, At: &at})
}

// DecodePayload builds the typed payload of a frame and validates its fields.
func DecodePayload(t Type, raw json.RawMessage) (Payload, error) {
	var (
		payload Payload
		err     error
	)
	switch t {
	case HabitUpdatedType:
		payload, err = unmarshal[HabitUpdated](raw)
	case ProgressUpdatedType:
		payload, err = unmarshal[ProgressUpdated](raw)
	case AnnouncementReceivedType:
		payload, err = unmarshal[AnnouncementReceived](raw)
	case PrayerTimeUpdatedType:
		payload, err = unmarshal[PrayerTimeUpdated](raw)
	case MessageReceivedType:
		payload, err = unmarshal[MessageReceived](raw)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, t)
	}
	if err != nil {
		return nil, err
	}
	if err = ValidatePayload(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshal[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return p, nil
}

// Received is an event as seen by a subscriber: the typed payload plus its delivery metadata.
type Received struct {
	Type    Type
	Room    domain.RoomID
	Payload Payload
	At      time.Time
}

// DecodeFrame turns an inbound "event" frame into a Received event.
func DecodeFrame(f Frame) (Received, error) {
	if f.Op != OpEvent {
		return Received{}, fmt.Errorf("%w: op %q is not an event", errors.ErrMalformedFrame, f.Op)
	}
	payload, err := DecodePayload(f.Type, f.Payload)
	if err != nil {
		return Received{}, err
	}
	at := time.Now().UTC()
	if f.At != nil {
		at = *f.At
	}
	return Received{Type: f.Type, Room: f.Room, Payload: payload, At: at}, nil
}

// Inbound is the body an external collaborator posts to publish an event.
type Inbound struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Scope   Scope           `json:"scope"`
}

func (in Inbound) ToDomainEvent() (DomainEvent, error) {
	payload, err := DecodePayload(in.Type, in.Payload)
	if err != nil {
		return DomainEvent{}, err
	}
	evt := DomainEvent{Type: in.Type, Payload: payload, Scope: in.Scope}
	if err = evt.Validate(); err != nil {
		return DomainEvent{}, err
	}
	return evt, nil
}
