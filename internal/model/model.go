// Package model defines the core domain types for the campus event registration system.
package model

// Event is a scheduled campus activity with a participant quota.
type Event struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Date     Date   `json:"date"`
	Location string `json:"location"`
	Quota    int    `json:"quota"`
}

// IsFull reports whether taken seats have reached the quota.
func (e *Event) IsFull(taken int) bool {
	return taken >= e.Quota
}

// Participant is a registrant attached to exactly one event. The event is
// referenced by id only; listing an event's participants is a query.
type Participant struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	EventID int64  `json:"event_id"`
}

// EventInput carries the client-supplied fields of an event, used for both
// create and full-replace update.
type EventInput struct {
	Title    string
	Date     Date
	Location string
	Quota    int
}

// ParticipantInput carries the client-supplied fields of a registration.
type ParticipantInput struct {
	Name    string
	Email   string
	EventID int64
}

// Default paging values applied when the client omits skip/limit.
const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

// Page is a simple offset/limit window over a listing.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage returns the window used when no query parameters are given.
func DefaultPage() Page {
	return Page{Skip: DefaultSkip, Limit: DefaultLimit}
}

// ErrorResponse is the JSON error envelope. Detail is always set; Errors holds
// field-level messages for validation failures.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}
