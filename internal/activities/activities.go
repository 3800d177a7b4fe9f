package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

// Activity names used when registering and scheduling
const (
	BookSeatName    = "BookSeat"
	ReleaseSeatName = "ReleaseSeat"
)

// BookSeatInput is the input for BookSeat
type BookSeatInput struct {
	UserID int    `json:"userId"`
	SeatID string `json:"seatId"`
}

// ReleaseSeatInput is the input for ReleaseSeat
type ReleaseSeatInput struct {
	UserID int    `json:"userId"`
	SeatID string `json:"seatId"`
	Refund int64  `json:"refund"`
}

// Activities holds dependencies for seat change activities
type Activities struct {
	seats service.SeatBooker
}

// NewActivities creates activities over the seat primitives
func NewActivities(seats service.SeatBooker) *Activities {
	return &Activities{seats: seats}
}

// BookSeat charges the user and reserves a seat. A failed booking is a
// result, not an error, so the workflow decides what happens next.
func (a *Activities) BookSeat(ctx context.Context, input BookSeatInput) (service.SeatChangeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Booking seat", "userId", input.UserID, "seatId", input.SeatID)

	out := a.seats.BookSeat(ctx, input.UserID, input.SeatID)
	if !out.Success() {
		logger.Info("Seat booking failed", "seatId", input.SeatID, "kind", out.Kind(), "reason", out.Reason())
	}
	return service.ResultFromOutcome(out), nil
}

// ReleaseSeat frees a seat and credits the refund. Busy or interrupted
// releases come back as retryable errors so the retry policy applies.
func (a *Activities) ReleaseSeat(ctx context.Context, input ReleaseSeatInput) (service.SeatChangeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Releasing seat", "userId", input.UserID, "seatId", input.SeatID, "refund", input.Refund)

	out := a.seats.ReleaseSeat(ctx, input.UserID, input.SeatID, input.Refund)
	if out.Retryable() {
		return service.SeatChangeResult{}, temporal.NewApplicationError(
			fmt.Sprintf("release of seat %s: %s", input.SeatID, out.Reason()), string(out.Kind()))
	}
	if !out.Success() {
		logger.Warn("Seat release failed", "seatId", input.SeatID, "kind", out.Kind(), "reason", out.Reason())
	}
	return service.ResultFromOutcome(out), nil
}
