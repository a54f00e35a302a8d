package models

import "time"

// CalendarEvent is one scheduled entry on the shared calendar.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	StartsAt time.Time `json:"startsAt,omitzero"`
	EndsAt   time.Time `json:"endsAt,omitzero"`
	AllDay   bool      `json:"allDay,omitempty"`
}
