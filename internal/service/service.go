package service

import (
	"context"
	"errors"

	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadyTicketed  = errors.New("user already holds a ticket")
	ErrSeatNotReleased  = errors.New("seat could not be released")
	ErrSeatChangeFailed = errors.New("seat change could not be completed")
)

// TicketService defines the ticket service interface
type TicketService interface {
	PurchaseTicket(ctx context.Context, req models.TicketRequest) (*models.TicketResponse, error)
	ModifySeat(ctx context.Context, userID int, seatID string) (*models.TicketResponse, error)
	Receipt(ctx context.Context, userID int) (*models.Ticket, error)
	GetUser(ctx context.Context, userID int) (*models.User, error)
	ListUsers(ctx context.Context) []*models.User
	ListSeats(ctx context.Context, section string) []*models.Seat
	DeleteUser(ctx context.Context, userID int) error
	History(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error)
}

// SeatBooker exposes the single-seat primitives seat changes are built from.
// Neither call takes the per-user lock, so they are safe to run while a
// seat change for the same user is in flight.
type SeatBooker interface {
	BookSeat(ctx context.Context, userID int, seatID string) booking.Outcome
	ReleaseSeat(ctx context.Context, userID int, seatID string, refund int64) booking.Outcome
}

// SeatChange moves a user from one seat to another
type SeatChange struct {
	UserID   int    `json:"userId"`
	FromSeat string `json:"fromSeat"`
	ToSeat   string `json:"toSeat"`
	Refund   int64  `json:"refund"`
}

// SeatChangeResult is a serializable booking outcome
type SeatChangeResult struct {
	Success bool     `json:"success"`
	Kind    string   `json:"kind,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Amount  int64    `json:"amount"`
	Seats   []string `json:"seats,omitempty"`
}

// ResultFromOutcome converts an engine outcome for transport
func ResultFromOutcome(o booking.Outcome) SeatChangeResult {
	return SeatChangeResult{
		Success: o.Success(),
		Kind:    string(o.Kind()),
		Reason:  o.Reason(),
		Amount:  o.Amount(),
		Seats:   o.Seats(),
	}
}

// Outcome converts the result back into an engine outcome
func (r SeatChangeResult) Outcome() booking.Outcome {
	if !r.Success {
		return booking.Failed(booking.Kind(r.Kind), r.Reason)
	}
	if len(r.Seats) == 0 {
		return booking.Success()
	}
	return booking.Booked(r.Amount, r.Seats[0])
}

// SeatChanger books the new seat, then releases the old one with a refund.
// The old seat is kept when the new booking fails.
type SeatChanger interface {
	ChangeSeat(ctx context.Context, change SeatChange) (SeatChangeResult, error)
}
