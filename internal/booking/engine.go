package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	// DefaultLockWait is how long an attempt waits for a busy seat.
	DefaultLockWait = 2 * time.Second
	// DefaultTimeout bounds a whole booking attempt.
	DefaultTimeout = 5 * time.Second
)

// SeatFinder resolves seats by identifier.
type SeatFinder interface {
	Seat(id string) (*Seat, bool)
}

// Engine books seats against accounts: seat lock, availability check,
// debit, reservation, and credit-back when the reservation cannot complete.
type Engine struct {
	seats    SeatFinder
	price    int64
	lockWait time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	// reserve is swapped in tests to inject reservation faults.
	reserve func(*Seat, *Account) bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockWait overrides the default seat lock wait.
func WithLockWait(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockWait = d
		}
	}
}

// WithTimeout overrides the default overall booking deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for booking outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine charging price per booking. It panics if
// price is negative.
func NewEngine(seats SeatFinder, price int64, opts ...Option) *Engine {
	if price < 0 {
		panic(fmt.Sprintf("booking: negative ticket price %d", price))
	}
	e := &Engine{
		seats:    seats,
		price:    price,
		lockWait: DefaultLockWait,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		reserve:  (*Seat).tryReserve,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Price returns the flat ticket price charged per booking
func (e *Engine) Price() int64 {
	return e.price
}

// Book runs a booking attempt with the engine's default bounds.
func (e *Engine) Book(ctx context.Context, account *Account, seatID string) Outcome {
	return e.BookWithin(ctx, account, seatID, e.lockWait, e.timeout)
}

// BookWithin books seatID for account, waiting at most lockWait for the
// seat lock and at most overall for the whole attempt. Once the attempt
// starts charging the account it runs to completion, so a deadline is
// only ever reported before any funds move.
func (e *Engine) BookWithin(ctx context.Context, account *Account, seatID string, lockWait, overall time.Duration) Outcome {
	log := e.logger.With("seat", seatID)
	if account == nil {
		return Failed(KindNotFound, "account not found")
	}
	log = log.With("account", account.ID())

	seat, ok := e.seats.Seat(seatID)
	if !ok {
		log.Info("seat not found")
		return Failed(KindNotFound, "seat not found: "+seatID)
	}
	if overall <= 0 {
		overall = e.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	g := &gate{}
	done := make(chan Outcome, 1)
	go func() {
		done <- e.attempt(ctx, g, account, seat, lockWait)
	}()

	var out Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		if g.abandon() {
			out = stopped(ctx, seatID)
		} else {
			// past the commit gate: the attempt's own result stands
			out = <-done
		}
	}

	if out.Success() {
		log.Info("seat booked", "amount", out.Amount())
	} else {
		log.Info("booking failed", "kind", out.Kind(), "reason", out.Reason())
	}
	return out
}

func (e *Engine) attempt(ctx context.Context, g *gate, account *Account, seat *Seat, lockWait time.Duration) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during booking", "seat", seat.ID(), "account", account.ID(), "panic", r)
			out = Failed(KindInternal, fmt.Sprintf("unexpected error during booking: %v", r))
		}
	}()

	if err := seat.acquire(ctx, lockWait); err != nil {
		if errors.Is(err, errSeatBusy) {
			return Failed(KindBusy, fmt.Sprintf("seat %s is busy, try again later", seat.ID()))
		}
		return stopped(ctx, seat.ID())
	}
	defer seat.unlock()

	if !seat.Available() {
		return Failed(KindAlreadyBooked, fmt.Sprintf("seat %s is already booked", seat.ID()))
	}
	if !g.commit() {
		return stopped(ctx, seat.ID())
	}
	return e.chargeAndReserve(account, seat)
}

// chargeAndReserve runs with the seat lock held. Every exit after a
// successful debit either reserves the seat or credits the debit back.
func (e *Engine) chargeAndReserve(account *Account, seat *Seat) (out Outcome) {
	if !account.Debit(e.price) {
		return Failed(KindInsufficientBalance, "insufficient balance")
	}

	defer func() {
		if r := recover(); r != nil {
			account.Credit(e.price)
			e.logger.Error("panic during seat reservation, payment refunded",
				"seat", seat.ID(), "account", account.ID(), "panic", r)
			out = Failed(KindReservationFailed, fmt.Sprintf("error during seat reservation: %v", r))
		}
	}()

	if !e.reserve(seat, account) {
		account.Credit(e.price)
		e.logger.Warn("reservation failed after debit, payment refunded", "seat", seat.ID(), "account", account.ID())
		return Failed(KindReservationFailed, "failed to reserve seat "+seat.ID())
	}
	return Booked(e.price, seat.ID())
}

// Release frees seatID if account holds it. It takes the same seat lock
// as booking, so it cannot interleave with an in-flight attempt.
func (e *Engine) Release(ctx context.Context, account *Account, seatID string) Outcome {
	if account == nil {
		return Failed(KindNotFound, "account not found")
	}
	seat, ok := e.seats.Seat(seatID)
	if !ok {
		return Failed(KindNotFound, "seat not found: "+seatID)
	}

	if err := seat.acquire(ctx, e.lockWait); err != nil {
		if errors.Is(err, errSeatBusy) {
			return Failed(KindBusy, fmt.Sprintf("seat %s is busy, try again later", seatID))
		}
		return stopped(ctx, seatID)
	}
	defer seat.unlock()

	if seat.Holder() != account {
		return Failed(KindNotHeld, fmt.Sprintf("seat %s is not held by account %d", seatID, account.ID()))
	}
	seat.release()
	e.logger.Info("seat released", "seat", seatID, "account", account.ID())
	return Success()
}

// stopped maps a finished context to a timeout or interruption outcome.
func stopped(ctx context.Context, seatID string) Outcome {
	if errors.Is(ctx.Err(), context.Canceled) {
		return Failed(KindInterrupted, fmt.Sprintf("booking of seat %s was interrupted", seatID))
	}
	return Failed(KindTimedOut, "booking operation timed out, please try again")
}

const (
	gatePending int32 = iota
	gateCommitted
	gateAbandoned
)

// gate decides, exactly once, whether an attempt proceeds to charge the
// account or is abandoned by a caller that stopped waiting.
type gate struct {
	state atomic.Int32
}

func (g *gate) commit() bool {
	return g.state.CompareAndSwap(gatePending, gateCommitted)
}

func (g *gate) abandon() bool {
	return g.state.CompareAndSwap(gatePending, gateAbandoned)
}
