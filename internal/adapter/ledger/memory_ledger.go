// Package ledger: in-memory леджер платёжной валюты.
package ledger

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/example/nft-listing-service/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrOverflow          = errors.New("ledger: balance overflow")
)

type MemoryLedger struct {
	mu       sync.Mutex
	balances map[domain.AccountID]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[domain.AccountID]uint64)}
}

func (l *MemoryLedger) Credit(account domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[account] > math.MaxUint64-amount {
		return ErrOverflow
	}
	l.balances[account] += amount
	return nil
}

func (l *MemoryLedger) BalanceOf(account domain.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer списывает и зачисляет одной операцией; при отказе балансы не меняются.
func (l *MemoryLedger) Transfer(_ context.Context, from, to domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	if l.balances[to] > math.MaxUint64-amount {
		return ErrOverflow
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

var _ domain.PaymentLedger = (*MemoryLedger)(nil)
