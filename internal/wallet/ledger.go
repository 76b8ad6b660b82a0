package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"pulsepact/internal/domain"
)

// DefaultInitialBalance is the balance of a fresh workspace wallet.
var DefaultInitialBalance = decimal.NewFromInt(10000)

var ErrNegativeAmount = errors.New("amount must not be negative")

// Ledger holds the simulated wallet balance. Debits are not checked against
// the balance; callers gate with Covers first.
type Ledger struct {
	balance decimal.Decimal
}

func NewLedger(w domain.Wallet) *Ledger {
	return &Ledger{balance: w.Balance}
}

func (l *Ledger) Balance() decimal.Decimal { return l.balance }

func (l *Ledger) Covers(amount decimal.Decimal) bool {
	return l.balance.GreaterThanOrEqual(amount)
}

func (l *Ledger) Credit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit %s: %w", amount, ErrNegativeAmount)
	}
	l.balance = l.balance.Add(amount)
	return nil
}

func (l *Ledger) Debit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("debit %s: %w", amount, ErrNegativeAmount)
	}
	l.balance = l.balance.Sub(amount)
	return nil
}

func (l *Ledger) Snapshot() domain.Wallet {
	return domain.Wallet{Balance: l.balance}
}
