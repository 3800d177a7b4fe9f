package models

import "time"

const (
	DefaultFrom = "London"
	DefaultTo   = "France"
)

// Ticket is issued to a user after a successful purchase
type Ticket struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Price      int64     `json:"price"`
	SeatNumber string    `json:"seatNumber"`
	Section    string    `json:"section"`
	UserID     int       `json:"userId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	IssuedAt   time.Time `json:"issuedAt"`
}

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// TicketRequest represents a purchase or seat change request
type TicketRequest struct {
	UserID int    `json:"userId"`
	SeatID string `json:"seatId"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// TicketResponse is returned by purchase and seat change
type TicketResponse struct {
	TransactionStatus TransactionStatus `json:"transactionStatus"`
	Message           string            `json:"message,omitempty"`
	Kind              string            `json:"kind,omitempty"`
	Retryable         bool              `json:"retryable,omitempty"`
	Ticket            *Ticket           `json:"ticket,omitempty"`
	User              *User             `json:"user,omitempty"`
}

// ModifySeatRequest is the body of a seat change request
type ModifySeatRequest struct {
	SeatID string `json:"seatId"`
}
