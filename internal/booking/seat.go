package booking

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errSeatBusy = errors.New("seat lock busy")

// Seat is a bookable seat with its own exclusive lock. The lock is held
// for the whole booking transaction; state fields are additionally
// guarded by mu so listings can read them without contending for it.
type Seat struct {
	id      string
	section string

	// lock has capacity 1; holding the token means holding the seat.
	lock chan struct{}

	mu        sync.RWMutex
	available bool
	holder    *Account
}

// SeatView is a point-in-time copy of a seat's state.
type SeatView struct {
	ID        string
	Section   string
	Available bool
	HolderID  int
}

// NewSeat creates an available seat
func NewSeat(id, section string) *Seat {
	return &Seat{
		id:        id,
		section:   section,
		lock:      make(chan struct{}, 1),
		available: true,
	}
}

// ID returns the seat identifier
func (s *Seat) ID() string {
	return s.id
}

// Section returns the section the seat belongs to
func (s *Seat) Section() string {
	return s.section
}

// Available reports whether the seat is free
func (s *Seat) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// Holder returns the account holding the seat, or nil
func (s *Seat) Holder() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holder
}

// Snapshot returns a copy of the seat's current state
func (s *Seat) Snapshot() SeatView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := SeatView{ID: s.id, Section: s.section, Available: s.available}
	if s.holder != nil {
		view.HolderID = s.holder.ID()
	}
	return view
}

// acquire takes the seat lock, waiting at most wait. It returns errSeatBusy
// when the wait elapses and the context error when ctx ends first.
func (s *Seat) acquire(ctx context.Context, wait time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.lock <- struct{}{}:
		return nil
	default:
	}
	if wait <= 0 {
		return errSeatBusy
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return errSeatBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Seat) unlock() {
	<-s.lock
}

// tryReserve must be called with the seat lock held.
func (s *Seat) tryReserve(account *Account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return false
	}
	s.available = false
	s.holder = account
	return true
}

// release must be called with the seat lock held.
func (s *Seat) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = true
	s.holder = nil
}
