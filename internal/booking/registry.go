package booking

import (
	"sort"
	"strconv"
	"sync"
)

// DefaultSections are the train sections seats are created in.
var DefaultSections = []string{"A", "B"}

// Registry owns every seat and account for the lifetime of the process.
// The seat set is fixed at construction; accounts may be removed.
type Registry struct {
	seats   map[string]*Seat
	seatIDs []string

	mu       sync.RWMutex
	accounts map[int]*Account
}

// NewRegistry creates a registry from pre-built seats and accounts.
// Seat order is preserved for listings.
func NewRegistry(seats []*Seat, accounts []*Account) *Registry {
	r := &Registry{
		seats:    make(map[string]*Seat, len(seats)),
		seatIDs:  make([]string, 0, len(seats)),
		accounts: make(map[int]*Account, len(accounts)),
	}
	for _, s := range seats {
		if _, dup := r.seats[s.ID()]; dup {
			continue
		}
		r.seats[s.ID()] = s
		r.seatIDs = append(r.seatIDs, s.ID())
	}
	for _, a := range accounts {
		r.accounts[a.ID()] = a
	}
	return r
}

// Bootstrap creates seatsPerSection seats in every section (A1..An, B1..Bn)
// and accounts 1..accountCount with the starting balance.
func Bootstrap(sections []string, seatsPerSection, accountCount int, startingBalance int64) *Registry {
	seats := make([]*Seat, 0, len(sections)*seatsPerSection)
	for _, section := range sections {
		for i := 1; i <= seatsPerSection; i++ {
			seats = append(seats, NewSeat(section+strconv.Itoa(i), section))
		}
	}
	accounts := make([]*Account, 0, accountCount)
	for i := 1; i <= accountCount; i++ {
		accounts = append(accounts, NewAccount(i, startingBalance))
	}
	return NewRegistry(seats, accounts)
}

// Seat looks up a seat by exact identifier
func (r *Registry) Seat(id string) (*Seat, bool) {
	s, ok := r.seats[id]
	return s, ok
}

// Seats returns all seats in bootstrap order
func (r *Registry) Seats() []*Seat {
	out := make([]*Seat, 0, len(r.seatIDs))
	for _, id := range r.seatIDs {
		out = append(out, r.seats[id])
	}
	return out
}

// Account looks up an account by identifier
func (r *Registry) Account(id int) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	return a, ok
}

// Accounts returns all accounts ordered by identifier
func (r *Registry) Accounts() []*Account {
	r.mu.RLock()
	out := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RemoveAccount deletes an account and reports whether it existed.
func (r *Registry) RemoveAccount(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return false
	}
	delete(r.accounts, id)
	return true
}
