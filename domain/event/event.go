// Package event defines the domain events fanned out to connected clients,
// the scopes they target and their wire representation.
package event

import (
	"community-pulse/domain"
	"community-pulse/errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

type Type string

const (
	HabitUpdatedType         Type = "habit-updated"
	ProgressUpdatedType      Type = "progress-updated"
	AnnouncementReceivedType Type = "announcement-received"
	PrayerTimeUpdatedType    Type = "prayer-time-updated"
	MessageReceivedType      Type = "message-received"
)

// Payload is implemented by every typed event body.
type Payload interface {
	EventType() Type
}

type HabitUpdated struct {
	UserID  string  `json:"userId" validate:"required"`
	HabitID string  `json:"habitId" validate:"required"`
	Value   float64 `json:"value"`
}

func (HabitUpdated) EventType() Type { return HabitUpdatedType }

type ProgressUpdated struct {
	UserID  string  `json:"userId" validate:"required"`
	Sector  string  `json:"sector" validate:"required"`
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

func (ProgressUpdated) EventType() Type { return ProgressUpdatedType }

// AnnouncementReceived targets the Audience topic, or everybody when Audience is empty.
type AnnouncementReceived struct {
	Title    string `json:"title" validate:"required"`
	Audience string `json:"audience"`
}

func (AnnouncementReceived) EventType() Type { return AnnouncementReceivedType }

type PrayerTimeUpdated struct {
	domain.DailySchedule
}

func (PrayerTimeUpdated) EventType() Type { return PrayerTimeUpdatedType }

type MessageReceived struct {
	SenderName string `json:"senderName" validate:"required"`
	Preview    string `json:"preview"`
}

func (MessageReceived) EventType() Type { return MessageReceivedType }

type ScopeKind string

const (
	ScopeUser  ScopeKind = "user"
	ScopeTopic ScopeKind = "topic"
	ScopeAll   ScopeKind = "all"
)

// Scope identifies who an event is for: one user, one topic, or everybody.
type Scope struct {
	Kind  ScopeKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

func UserScope(userID string) Scope { return Scope{Kind: ScopeUser, Value: userID} }
func TopicScope(topic string) Scope { return Scope{Kind: ScopeTopic, Value: topic} }
func AllScope() Scope               { return Scope{Kind: ScopeAll} }

// Room resolves the scope to the room whose members receive the event.
func (s Scope) Room() (domain.RoomID, error) {
	switch s.Kind {
	case ScopeAll:
		return domain.BroadcastRoom, nil
	case ScopeUser:
		if s.Value == "" {
			return "", fmt.Errorf("%w: empty user id", errors.ErrInvalidScope)
		}
		return domain.UserRoom(s.Value), nil
	case ScopeTopic:
		if s.Value == "" {
			return "", fmt.Errorf("%w: empty topic", errors.ErrInvalidScope)
		}
		return domain.SectorRoom(s.Value), nil
	default:
		return "", fmt.Errorf("%w: unknown scope kind %q", errors.ErrInvalidScope, s.Kind)
	}
}

// DomainEvent is immutable once handed to the dispatcher.
type DomainEvent struct {
	Type    Type
	Payload Payload
	Scope   Scope
}

func New(payload Payload, scope Scope) DomainEvent {
	return DomainEvent{Type: payload.EventType(), Payload: payload, Scope: scope}
}

// Announcement picks the topic scope from the audience, falling back to everybody.
func Announcement(title, audience string) DomainEvent {
	scope := AllScope()
	if audience != "" && audience != "all" {
		scope = TopicScope(audience)
	}
	return New(AnnouncementReceived{Title: title, Audience: audience}, scope)
}

// allowedScopes is the routing table: which scope kinds each event type may target.
var allowedScopes = map[Type][]ScopeKind{
	HabitUpdatedType:         {ScopeUser},
	ProgressUpdatedType:      {ScopeUser},
	AnnouncementReceivedType: {ScopeTopic, ScopeAll},
	PrayerTimeUpdatedType:    {ScopeAll},
	MessageReceivedType:      {ScopeUser},
}

func Known(t Type) bool {
	_, ok := allowedScopes[t]
	return ok
}

func Types() []Type {
	return []Type{
		HabitUpdatedType,
		ProgressUpdatedType,
		AnnouncementReceivedType,
		PrayerTimeUpdatedType,
		MessageReceivedType,
	}
}

var validate = validator.New()

// Validate checks the type, the payload fields and the scope against the routing table.
func (e DomainEvent) Validate() error {
	scopes, ok := allowedScopes[e.Type]
	if !ok {
		return fmt.Errorf("%w: %q", errors.ErrUnknownEventType, e.Type)
	}
	if e.Payload == nil || e.Payload.EventType() != e.Type {
		return fmt.Errorf("%w: payload does not match %q", errors.ErrInvalidPayload, e.Type)
	}
	if err := ValidatePayload(e.Payload); err != nil {
		return err
	}
	if !slices.Contains(scopes, e.Scope.Kind) {
		return fmt.Errorf("%w: %q cannot target %q", errors.ErrInvalidScope, e.Type, e.Scope.Kind)
	}
	if _, err := e.Scope.Room(); err != nil {
		return err
	}
	if target, ok := payloadTarget(e.Payload); ok && target != e.Scope {
		return fmt.Errorf("%w: %q addressed to %s:%s but scoped to %s:%s",
			errors.ErrInvalidScope, e.Type, target.Kind, target.Value, e.Scope.Kind, e.Scope.Value)
	}
	return nil
}

// payloadTarget returns the scope implied by the payload's own recipient field.
func payloadTarget(p Payload) (Scope, bool) {
	switch p := p.(type) {
	case HabitUpdated:
		return UserScope(p.UserID), true
	case ProgressUpdated:
		return UserScope(p.UserID), true
	case AnnouncementReceived:
		if p.Audience == "" || p.Audience == "all" {
			return AllScope(), true
		}
		return TopicScope(p.Audience), true
	default:
		return Scope{}, false
	}
}

func ValidatePayload(p Payload) error {
	if schedule, ok := p.(PrayerTimeUpdated); ok {
		if err := schedule.Validate(); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
		}
		return nil
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
