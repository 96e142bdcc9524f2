package domain

import "time"

// DateLayout is the calendar date format events are scheduled with.
const DateLayout = "2006-01-02"

// Event is a ticketed event; Tickets holds the remaining inventory.
type Event struct {
	ID          int64
	Name        string
	Date        string
	Tickets     int
	Location    string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}
