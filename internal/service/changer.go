package service

import (
	"context"
	"fmt"

	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
)

// LocalChanger runs a seat change in process: book the new seat, then
// release the old one with a refund. If the old seat cannot be released
// the new booking is undone so the user never holds two seats.
type LocalChanger struct {
	seats SeatBooker
}

// NewLocalChanger creates a changer over seats
func NewLocalChanger(seats SeatBooker) *LocalChanger {
	return &LocalChanger{seats: seats}
}

func (c *LocalChanger) ChangeSeat(ctx context.Context, change SeatChange) (SeatChangeResult, error) {
	booked := c.seats.BookSeat(ctx, change.UserID, change.ToSeat)
	if !booked.Success() {
		return ResultFromOutcome(booked), nil
	}

	released := c.seats.ReleaseSeat(ctx, change.UserID, change.FromSeat, change.Refund)
	if !released.Success() && released.Kind() != booking.KindNotHeld {
		undo := c.seats.ReleaseSeat(context.WithoutCancel(ctx), change.UserID, change.ToSeat, booked.Amount())
		if !undo.Success() {
			return SeatChangeResult{}, fmt.Errorf("seat %s booked but neither %s nor %s could be released: %s",
				change.ToSeat, change.FromSeat, change.ToSeat, undo.Reason())
		}
		return ResultFromOutcome(booking.Failed(released.Kind(),
			fmt.Sprintf("failed to release seat %s: %s", change.FromSeat, released.Reason()))), nil
	}
	return ResultFromOutcome(booked), nil
}
