// Package prayer derives the next prayer and its countdown from a daily schedule.
// Computing the schedule itself is left to whoever publishes it.
package prayer

import (
	"community-pulse/domain"
	"time"
)

// MinuteOfDay converts a wall-clock time to minutes since its local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Next returns the first instant strictly after minute, scanning the instants in
// their fixed order. Past the last one it wraps to the first instant of the next day.
// An invalid schedule is replaced by the default one.
func Next(schedule domain.DailySchedule, minute int) domain.NextEventState {
	if schedule.Validate() != nil {
		schedule = domain.DefaultSchedule()
	}
	minute = ((minute % domain.MinutesPerDay) + domain.MinutesPerDay) % domain.MinutesPerDay

	instants := schedule.Instants()
	for _, instant := range instants {
		if int(instant.At) > minute {
			return domain.NextEventState{Name: instant.Name, MinutesRemaining: int(instant.At) - minute}
		}
	}
	first := instants[0]
	return domain.NextEventState{
		Name:             first.Name,
		MinutesRemaining: (domain.MinutesPerDay - minute) + int(first.At),
	}
}
