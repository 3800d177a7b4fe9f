// Package events publishes ticket lifecycle events to the message broker.
package events

import "time"

type EventType string

const (
	TicketPurchased   EventType = "ticket.purchased"
	TicketSeatChanged EventType = "ticket.seat_changed"
	TicketReleased    EventType = "ticket.released"
)

// TicketEvent is published after a purchase, seat change or release
// succeeds. Consumers get enough to log or notify without calling back.
type TicketEvent struct {
	Type         EventType `json:"type"`
	TicketID     string    `json:"ticket_id,omitempty"`
	UserID       int       `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	SeatID       string    `json:"seat"`
	PreviousSeat string    `json:"previous_seat,omitempty"`
	Amount       int64     `json:"amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}
