package services

import (
	"community-pulse/contract"
	"community-pulse/domain"
	"community-pulse/domain/event"
	"community-pulse/repositories"
	"log/slog"
	"time"
)

type IScheduleService interface {
	Current() (domain.DailySchedule, error)
	Publish(schedule domain.DailySchedule) error
	History(limit int) ([]repositories.ScheduleRecord, error)
}

// ScheduleService is the server side owner of the daily prayer schedule.
type ScheduleService struct {
	log        *slog.Logger
	repository repositories.IScheduleRepository
	dispatcher contract.IDispatcher
	now        func() time.Time
}

func NewScheduleService(log *slog.Logger, repository repositories.IScheduleRepository,
	dispatcher contract.IDispatcher) *ScheduleService {
	return &ScheduleService{
		log:        log,
		repository: repository,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Current never leaves subscribers without a schedule: the default one is served
// until something is published.
func (s *ScheduleService) Current() (domain.DailySchedule, error) {
	schedule, found, err := s.repository.Current()
	if err != nil {
		return domain.DailySchedule{}, err
	}
	if !found {
		return domain.DefaultSchedule(), nil
	}
	return schedule, nil
}

// Publish stores the schedule and notifies every subscriber.
// The schedule stays stored when the notification cannot be queued.
func (s *ScheduleService) Publish(schedule domain.DailySchedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	if err := s.repository.Save(schedule, s.now()); err != nil {
		return err
	}
	s.log.Info("Schedule published", "location", schedule.Location)
	return s.dispatcher.Dispatch(event.New(event.PrayerTimeUpdated{DailySchedule: schedule}, event.AllScope()))
}

func (s *ScheduleService) History(limit int) ([]repositories.ScheduleRecord, error) {
	return s.repository.History(limit)
}
