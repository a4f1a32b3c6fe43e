package domain

import (
	"community-pulse/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const MinutesPerDay = 24 * 60

// Clock is a time of day expressed in minutes since midnight.
// It is serialized as "HH:MM".
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidClock, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return FormatClock(int(c))
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidClock, string(data))
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Prayer names, in the fixed order the calculator scans them.
const (
	Fajr    = "fajr"
	Dhuhr   = "dhuhr"
	Asr     = "asr"
	Maghrib = "maghrib"
	Isha    = "isha"
)

// DailySchedule holds the five daily instants for a location.
// The astronomical computation producing it lives outside this system.
type DailySchedule struct {
	Location string `json:"location"`
	Fajr     Clock  `json:"fajr" validate:"gte=0,lt=1440"`
	Dhuhr    Clock  `json:"dhuhr" validate:"gte=0,lt=1440"`
	Asr      Clock  `json:"asr" validate:"gte=0,lt=1440"`
	Maghrib  Clock  `json:"maghrib" validate:"gte=0,lt=1440"`
	Isha     Clock  `json:"isha" validate:"gte=0,lt=1440"`
}

type Instant struct {
	Name string
	At   Clock
}

func (s DailySchedule) Instants() [5]Instant {
	return [5]Instant{
		{Fajr, s.Fajr},
		{Dhuhr, s.Dhuhr},
		{Asr, s.Asr},
		{Maghrib, s.Maghrib},
		{Isha, s.Isha},
	}
}

// IsZero reports a schedule that was never supplied.
func (s DailySchedule) IsZero() bool {
	return s == DailySchedule{}
}

func (s DailySchedule) Validate() error {
	if s.IsZero() {
		return fmt.Errorf("%w: empty schedule", errors.ErrInvalidSchedule)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidSchedule, err)
	}
	return nil
}

// DefaultSchedule is the deterministic fallback used when no valid schedule is available.
func DefaultSchedule() DailySchedule {
	return DailySchedule{
		Location: "default",
		Fajr:     5*60 + 30,
		Dhuhr:    12*60 + 15,
		Asr:      15*60 + 45,
		Maghrib:  18*60 + 20,
		Isha:     19*60 + 45,
	}
}

// NextEventState is derived from (DailySchedule, current minute) and never persisted.
type NextEventState struct {
	Name             string `json:"name"`
	MinutesRemaining int    `json:"minutesRemaining"`
}

// Countdown renders the remaining time as whole hours and minutes, e.g. "2h 45m".
func (s NextEventState) Countdown() string {
	return fmt.Sprintf("%dh %dm", s.MinutesRemaining/60, s.MinutesRemaining%60)
}
