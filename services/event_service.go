package services

import (
	"community-pulse/contract"
	"community-pulse/domain/event"
	"community-pulse/errors"
	"community-pulse/moderation"
	"fmt"
	"log/slog"
)

type IEventService interface {
	Publish(in event.Inbound) error
}

// EventService is the entry point of external collaborators emitting domain events.
type EventService struct {
	log        *slog.Logger
	dispatcher contract.IDispatcher
	schedules  IScheduleService
	moderator  *moderation.Moderator
}

// NewEventService accepts a nil moderator, in which case text is forwarded as is.
func NewEventService(log *slog.Logger, dispatcher contract.IDispatcher, schedules IScheduleService,
	moderator *moderation.Moderator) *EventService {
	return &EventService{log: log, dispatcher: dispatcher, schedules: schedules, moderator: moderator}
}

// Publish decodes and validates the inbound event before handing it to the dispatcher.
// A schedule change goes through the schedule service so the stored one stays in sync.
func (s *EventService) Publish(in event.Inbound) error {
	evt, err := in.ToDomainEvent()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrMalformedEvent, err)
	}
	if updated, ok := evt.Payload.(event.PrayerTimeUpdated); ok {
		return s.schedules.Publish(updated.DailySchedule)
	}
	s.log.Debug("Event accepted", "type", evt.Type, "scope", evt.Scope.Kind)
	return s.dispatcher.Dispatch(s.moderator.Moderate(evt))
}
