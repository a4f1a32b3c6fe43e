package event

import (
	"fmt"
)

// Template is the UI notification shape of an event type.
type Template struct {
	Title   string
	Message func(p Payload) string
}

// templates maps each event type to its notification shape.
// Adding an event type means adding a row here, not a branch elsewhere.
var templates = map[Type]Template{
	HabitUpdatedType: {
		Title: "Habit updated",
		Message: func(p Payload) string {
			h := p.(HabitUpdated)
			return fmt.Sprintf("Habit %s is now at %g", h.HabitID, h.Value)
		},
	},
	ProgressUpdatedType: {
		Title: "Progress updated",
		Message: func(p Payload) string {
			pr := p.(ProgressUpdated)
			return fmt.Sprintf("%s progress: %.0f%%", pr.Sector, pr.Percent)
		},
	},
	AnnouncementReceivedType: {
		Title: "New announcement",
		Message: func(p Payload) string {
			return p.(AnnouncementReceived).Title
		},
	},
	PrayerTimeUpdatedType: {
		Title: "Prayer times updated",
		Message: func(p Payload) string {
			s := p.(PrayerTimeUpdated)
			return fmt.Sprintf("%s: fajr %s, dhuhr %s, asr %s, maghrib %s, isha %s",
				s.Location, s.Fajr, s.Dhuhr, s.Asr, s.Maghrib, s.Isha)
		},
	},
	MessageReceivedType: {
		Title: "New message",
		Message: func(p Payload) string {
			m := p.(MessageReceived)
			return fmt.Sprintf("%s: %s", m.SenderName, m.Preview)
		},
	},
}

// Render returns the title and message for a payload, false for unknown types.
func Render(p Payload) (title, message string, ok bool) {
	tpl, ok := templates[p.EventType()]
	if !ok {
		return "", "", false
	}
	return tpl.Title, tpl.Message(p), true
}
