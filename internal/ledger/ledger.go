/*

This file contains the mint/burn/transfer bookkeeping of ownership shares,
plus the delegated-burn allowance table. The ledger holds the invariant
sum(balances) == totalShares after every operation. It performs no locking of
its own; the vault serializes access under its single writer mutex.

*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidHolder         = errors.New("holder address is invalid")
	ErrInvalidAmount         = errors.New("share amount is invalid")
	ErrInsufficientShares    = errors.New("insufficient share balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

type allowanceEntry struct {
	amount    sdkmath.Int
	unlimited bool
}

// Ledger tracks share balances and allowances per holder.
type Ledger struct {
	balances    map[string]sdkmath.Int
	allowances  map[string]map[string]allowanceEntry // owner -> spender
	totalShares sdkmath.Int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:    make(map[string]sdkmath.Int),
		allowances:  make(map[string]map[string]allowanceEntry),
		totalShares: sdkmath.ZeroInt(),
	}
}

// TotalShares returns the sum of all minted shares.
func (l *Ledger) TotalShares() sdkmath.Int {
	return l.totalShares
}

// BalanceOf returns the holder's share balance, zero for unknown holders.
func (l *Ledger) BalanceOf(holder string) sdkmath.Int {
	bal, ok := l.balances[holder]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

// HolderCount returns the number of holders with a live position.
func (l *Ledger) HolderCount() int {
	return len(l.balances)
}

// Mint creates shares for the holder. A position entry is created on first
// mint.
func (l *Ledger) Mint(holder string, shares sdkmath.Int) error {
	if holder == "" {
		return ErrInvalidHolder
	}
	if err := validateShares(shares); err != nil {
		return err
	}

	l.balances[holder] = l.BalanceOf(holder).Add(shares)
	l.totalShares = l.totalShares.Add(shares)
	return nil
}

// Burn destroys shares held by the holder. The position entry is removed
// entirely on full burn; identities are never reused for stale entries.
func (l *Ledger) Burn(holder string, shares sdkmath.Int) error {
	if holder == "" {
		return ErrInvalidHolder
	}
	if err := validateShares(shares); err != nil {
		return err
	}

	bal := l.BalanceOf(holder)
	if bal.LT(shares) {
		return fmt.Errorf("%w: holder %s has %s, burning %s", ErrInsufficientShares, holder, bal, shares)
	}

	remaining := bal.Sub(shares)
	if remaining.IsZero() {
		delete(l.balances, holder)
	} else {
		l.balances[holder] = remaining
	}
	l.totalShares = l.totalShares.Sub(shares)
	return nil
}

// Transfer moves shares between holders without changing totalShares.
func (l *Ledger) Transfer(from, to string, shares sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidHolder
	}
	if err := validateShares(shares); err != nil {
		return err
	}

	bal := l.BalanceOf(from)
	if bal.LT(shares) {
		return fmt.Errorf("%w: holder %s has %s, transferring %s", ErrInsufficientShares, from, bal, shares)
	}

	remaining := bal.Sub(shares)
	if remaining.IsZero() {
		delete(l.balances, from)
	} else {
		l.balances[from] = remaining
	}
	if shares.IsPositive() {
		l.balances[to] = l.BalanceOf(to).Add(shares)
	}
	return nil
}

// Approve grants spender a capped delegated-burn capacity over owner's shares.
func (l *Ledger) Approve(owner, spender string, shares sdkmath.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidHolder
	}
	if err := validateShares(shares); err != nil {
		return err
	}

	l.setAllowance(owner, spender, allowanceEntry{amount: shares})
	return nil
}

// ApproveUnlimited grants spender an allowance that is never decremented.
func (l *Ledger) ApproveUnlimited(owner, spender string) error {
	if owner == "" || spender == "" {
		return ErrInvalidHolder
	}

	l.setAllowance(owner, spender, allowanceEntry{amount: sdkmath.ZeroInt(), unlimited: true})
	return nil
}

// Allowance reports spender's remaining capacity over owner's shares and
// whether it is unlimited.
func (l *Ledger) Allowance(owner, spender string) (sdkmath.Int, bool) {
	entry, ok := l.allowances[owner][spender]
	if !ok {
		return sdkmath.ZeroInt(), false
	}
	return entry.amount, entry.unlimited
}

// SpendAllowance decrements spender's capacity over owner's shares, unless
// the allowance is unlimited. Insufficient allowance is a rejection, not a
// partial spend.
func (l *Ledger) SpendAllowance(owner, spender string, shares sdkmath.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidHolder
	}
	if err := validateShares(shares); err != nil {
		return err
	}

	entry, ok := l.allowances[owner][spender]
	if !ok {
		return fmt.Errorf("%w: %s has no allowance from %s", ErrInsufficientAllowance, spender, owner)
	}
	if entry.unlimited {
		return nil
	}
	if entry.amount.LT(shares) {
		return fmt.Errorf("%w: %s has %s from %s, spending %s",
			ErrInsufficientAllowance, spender, entry.amount, owner, shares)
	}

	entry.amount = entry.amount.Sub(shares)
	l.setAllowance(owner, spender, entry)
	return nil
}

// CheckAllowance verifies spender could burn the given shares without
// mutating the allowance. The vault uses this to reject before any fund
// movement; the actual decrement happens at burn time.
func (l *Ledger) CheckAllowance(owner, spender string, shares sdkmath.Int) error {
	if owner == spender {
		return nil
	}
	entry, ok := l.allowances[owner][spender]
	if !ok {
		return fmt.Errorf("%w: %s has no allowance from %s", ErrInsufficientAllowance, spender, owner)
	}
	if entry.unlimited {
		return nil
	}
	if entry.amount.LT(shares) {
		return fmt.Errorf("%w: %s has %s from %s, needs %s",
			ErrInsufficientAllowance, spender, entry.amount, owner, shares)
	}
	return nil
}

func (l *Ledger) setAllowance(owner, spender string, entry allowanceEntry) {
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]allowanceEntry)
	}
	l.allowances[owner][spender] = entry
}

func validateShares(shares sdkmath.Int) error {
	if shares.IsNil() {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if shares.IsNegative() {
		return fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	return nil
}
