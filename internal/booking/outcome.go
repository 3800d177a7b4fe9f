package booking

// Kind classifies a booking outcome.
type Kind string

const (
	KindNone                Kind = ""
	KindNotFound            Kind = "not_found"
	KindBusy                Kind = "busy"
	KindAlreadyBooked       Kind = "already_booked"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindReservationFailed   Kind = "reservation_failed"
	KindTimedOut            Kind = "timed_out"
	KindInterrupted         Kind = "interrupted"
	KindNotHeld             Kind = "not_held"
	KindInternal            Kind = "internal"
)

// Outcome is the immutable result of one booking attempt. Expected
// failures (contention, lost races, funds) are outcomes, not errors.
type Outcome struct {
	success bool
	kind    Kind
	reason  string
	amount  int64
	seats   []string
}

// Success returns a successful outcome with no amount or seats attached.
func Success() Outcome {
	return Outcome{success: true}
}

// Booked returns a successful outcome carrying the charged amount and seat.
func Booked(amount int64, seatID string) Outcome {
	return Outcome{success: true, amount: amount, seats: []string{seatID}}
}

// Failed returns a failed outcome with the given classification and reason.
func Failed(kind Kind, reason string) Outcome {
	if kind == KindNone {
		kind = KindInternal
	}
	return Outcome{kind: kind, reason: reason}
}

func (o Outcome) Success() bool  { return o.success }
func (o Outcome) Kind() Kind     { return o.kind }
func (o Outcome) Reason() string { return o.reason }
func (o Outcome) Amount() int64  { return o.amount }

// Seats returns a copy of the affected seat identifiers.
func (o Outcome) Seats() []string {
	if len(o.seats) == 0 {
		return nil
	}
	out := make([]string, len(o.seats))
	copy(out, o.seats)
	return out
}

// Retryable reports whether the same request may succeed if tried again.
func (o Outcome) Retryable() bool {
	switch o.kind {
	case KindBusy, KindTimedOut, KindInterrupted:
		return true
	}
	return false
}

func (o Outcome) String() string {
	if o.success {
		return "booking successful"
	}
	return o.reason
}
