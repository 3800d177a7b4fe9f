package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
)

// LedgerRow is a booking_ledger row
type LedgerRow struct {
	ID           uuid.UUID
	UserID       int
	Action       string
	SeatID       string
	PreviousSeat string
	Success      bool
	Kind         string
	Reason       string
	Amount       int64
	CreatedAt    time.Time
}

func rowFromEntry(e models.LedgerEntry) (LedgerRow, error) {
	id := uuid.New()
	if e.ID != "" {
		parsed, err := uuid.Parse(e.ID)
		if err != nil {
			return LedgerRow{}, fmt.Errorf("%w: bad id %q", ErrInvalidEntry, e.ID)
		}
		id = parsed
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return LedgerRow{
		ID:           id,
		UserID:       e.UserID,
		Action:       string(e.Action),
		SeatID:       e.SeatID,
		PreviousSeat: e.PreviousSeat,
		Success:      e.Success,
		Kind:         e.Kind,
		Reason:       e.Reason,
		Amount:       e.Amount,
		CreatedAt:    createdAt,
	}, nil
}

// Entry converts the row to its API view
func (r LedgerRow) Entry() models.LedgerEntry {
	return models.LedgerEntry{
		ID:           r.ID.String(),
		UserID:       r.UserID,
		Action:       models.LedgerAction(r.Action),
		SeatID:       r.SeatID,
		PreviousSeat: r.PreviousSeat,
		Success:      r.Success,
		Kind:         r.Kind,
		Reason:       r.Reason,
		Amount:       r.Amount,
		CreatedAt:    r.CreatedAt,
	}
}
