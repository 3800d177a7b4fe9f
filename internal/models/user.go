package models

// User is the public view of a passenger and their wallet
type User struct {
	ID         int    `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Balance    int64  `json:"balance"`
	SeatNumber string `json:"seatNumber,omitempty"`
}

// Seat is the public view of a seat
type Seat struct {
	ID         string `json:"id"`
	Section    string `json:"section"`
	Available  bool   `json:"available"`
	ReservedBy int    `json:"reservedBy,omitempty"`
}
