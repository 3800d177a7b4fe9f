package models

import "time"

type LedgerAction string

const (
	LedgerPurchase   LedgerAction = "purchase"
	LedgerSeatChange LedgerAction = "seat_change"
	LedgerRelease    LedgerAction = "release"
)

// LedgerEntry records one booking attempt for a user
type LedgerEntry struct {
	ID           string       `json:"id"`
	UserID       int          `json:"userId"`
	Action       LedgerAction `json:"action"`
	SeatID       string       `json:"seatId"`
	PreviousSeat string       `json:"previousSeat,omitempty"`
	Success      bool         `json:"success"`
	Kind         string       `json:"kind,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Amount       int64        `json:"amount"`
	CreatedAt    time.Time    `json:"createdAt"`
}
