// Package fees collects the mint fee. NoFee is used when minting is free;
// Ledger keeps per-address balances in memory.
package fees

import (
	"context"
	"fmt"
	"math"
	"sync"

	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
)

// NoFee charges nothing.
type NoFee struct{}

func (NoFee) ChargeMintFee(context.Context, id.Address) error { return nil }

// Ledger debits a fixed mint fee from credited balances.
type Ledger struct {
	mu       sync.Mutex
	fee      uint64
	balances map[id.Address]uint64
}

func NewLedger(fee uint64) *Ledger {
	return &Ledger{fee: fee, balances: make(map[id.Address]uint64)}
}

// Fee returns the configured mint fee.
func (l *Ledger) Fee() uint64 { return l.fee }

// Credit adds amount to address and returns the new balance.
func (l *Ledger) Credit(_ context.Context, address id.Address, amount uint64) (uint64, error) {
	if address.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if amount == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[address]
	if balance > math.MaxUint64-amount {
		return 0, dErrors.New(dErrors.CodeValidation, "balance would overflow")
	}
	l.balances[address] = balance + amount
	return balance + amount, nil
}

func (l *Ledger) Balance(_ context.Context, address id.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address], nil
}

// ChargeMintFee debits the fee or fails with CodeInsufficientFunds leaving
// the balance untouched.
func (l *Ledger) ChargeMintFee(_ context.Context, owner id.Address) error {
	if l.fee == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[owner]
	if balance < l.fee {
		return dErrors.New(dErrors.CodeInsufficientFunds,
			fmt.Sprintf("balance %d is below the mint fee %d", balance, l.fee))
	}
	l.balances[owner] = balance - l.fee
	return nil
}

// RefundMintFee returns a previously charged fee.
func (l *Ledger) RefundMintFee(_ context.Context, owner id.Address) error {
	if l.fee == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] += l.fee
	return nil
}
