package booking

import "sync/atomic"

// Account holds a user's wallet balance in the smallest currency unit.
type Account struct {
	id      int
	balance atomic.Int64
}

// NewAccount creates an account with a starting balance
func NewAccount(id int, balance int64) *Account {
	if balance < 0 {
		balance = 0
	}
	a := &Account{id: id}
	a.balance.Store(balance)
	return a
}

// ID returns the account identifier
func (a *Account) ID() int {
	return a.id
}

// Balance returns the current balance
func (a *Account) Balance() int64 {
	return a.balance.Load()
}

// Debit subtracts amount if the balance covers it. Insufficient funds is a
// normal outcome: the balance is left untouched and false is returned.
func (a *Account) Debit(amount int64) bool {
	if amount < 0 {
		return false
	}
	for {
		current := a.balance.Load()
		if current < amount {
			return false
		}
		if a.balance.CompareAndSwap(current, current-amount) {
			return true
		}
	}
}

// Credit adds amount to the balance. Non-positive amounts are ignored.
func (a *Account) Credit(amount int64) {
	if amount <= 0 {
		return
	}
	a.balance.Add(amount)
}
