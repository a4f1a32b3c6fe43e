// Package domain contains core concepts of the event distribution system.
// This file defines rooms: named groups of connections receiving the same fan-out.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"community-pulse/errors"
	"fmt"
	"strings"
)

type RoomKind string

const (
	UserRoomKind      RoomKind = "user"
	SectorRoomKind    RoomKind = "sector"
	BroadcastRoomKind RoomKind = "broadcast"
)

// RoomID is the wire identifier of a room: "user:<id>", "sector:<name>" or "broadcast".
type RoomID string

const BroadcastRoom RoomID = "broadcast"

func UserRoom(userID string) RoomID {
	return RoomID(fmt.Sprintf("%s:%s", UserRoomKind, userID))
}

func SectorRoom(name string) RoomID {
	return RoomID(fmt.Sprintf("%s:%s", SectorRoomKind, name))
}

// ParseRoom validates a raw room identifier received from a client or a collaborator.
func ParseRoom(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == string(BroadcastRoom) {
		return BroadcastRoom, nil
	}
	kind, name, ok := strings.Cut(raw, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidRoom, raw)
	}
	switch RoomKind(kind) {
	case UserRoomKind, SectorRoomKind:
		return RoomID(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", errors.ErrInvalidRoom, kind)
	}
}

func (r RoomID) Kind() RoomKind {
	if r == BroadcastRoom {
		return BroadcastRoomKind
	}
	kind, _, _ := strings.Cut(string(r), ":")
	return RoomKind(kind)
}

// Name returns the part after the kind prefix, empty for the broadcast room.
func (r RoomID) Name() string {
	_, name, _ := strings.Cut(string(r), ":")
	return name
}

func (r RoomID) String() string {
	return string(r)
}
