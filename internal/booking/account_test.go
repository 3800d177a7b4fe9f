package booking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccount_Debit(t *testing.T) {
	tests := []struct {
		name        string
		balance     int64
		amount      int64
		wantOK      bool
		wantBalance int64
	}{
		{name: "sufficient funds", balance: 100, amount: 40, wantOK: true, wantBalance: 60},
		{name: "exact funds", balance: 40, amount: 40, wantOK: true, wantBalance: 0},
		{name: "insufficient funds", balance: 30, amount: 40, wantOK: false, wantBalance: 30},
		{name: "negative amount", balance: 30, amount: -5, wantOK: false, wantBalance: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccount(1, tt.balance)
			assert.Equal(t, tt.wantOK, a.Debit(tt.amount))
			assert.Equal(t, tt.wantBalance, a.Balance())
		})
	}
}

func TestAccount_Credit(t *testing.T) {
	a := NewAccount(1, 10)
	a.Credit(15)
	a.Credit(0)
	a.Credit(-3)
	assert.Equal(t, int64(25), a.Balance())
}

func TestAccount_ConcurrentDebitNeverOverdraws(t *testing.T) {
	a := NewAccount(1, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Debit(7) {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 14, succeeded)
	assert.Equal(t, int64(100-14*7), a.Balance())
}
