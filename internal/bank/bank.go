// Package bank provides an in-memory account ledger implementing the
// engine's value-transfer port. It is the default backend for the daemon and
// the test double for the settlement paths; a real payment backend can be
// injected in its place.
package bank

import (
	"sync"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"
)

const codespace = "bank"

var (
	ErrInvalidAmount     = sdkerrors.Register(codespace, 2, "transfer amount must be positive")
	ErrInsufficientFunds = sdkerrors.Register(codespace, 3, "insufficient funds")
)

// Ledger is a thread-safe map of account balances.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]math.Int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]math.Int)}
}

// Mint credits amount to account out of thin air. Used to seed balances.
func (l *Ledger) Mint(account string, amount math.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balance(account).Add(amount)
}

// Transfer moves amount from one account to another, failing without any
// effect when the payer cannot cover it.
func (l *Ledger) Transfer(from, to string, amount math.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return sdkerrors.Wrapf(ErrInvalidAmount, "got %s", amount)
	}
	fromBal := l.balance(from)
	if fromBal.LT(amount) {
		return sdkerrors.Wrapf(ErrInsufficientFunds, "account %s has %s, needs %s", from, fromBal, amount)
	}

	l.balances[from] = fromBal.Sub(amount)
	l.balances[to] = l.balance(to).Add(amount)
	return nil
}

// Balance returns the current balance of account (zero for unknown accounts).
func (l *Ledger) Balance(account string) math.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance(account)
}

func (l *Ledger) balance(account string) math.Int {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return math.ZeroInt()
}
