package source

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// MemorySource is a deterministic in-memory Source used in sim mode and in
// tests. It supports injecting yield drift (balance changes outside the
// vault's control) and forced failures on any operation.
type MemorySource struct {
	mu       sync.Mutex
	id       string
	denom    string
	balances map[string]sdkmath.Int

	// Forced failure switches for exercising abort paths.
	FailQuery    bool
	FailDeposit  bool
	FailWithdraw bool
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource(id, denom string) (*MemorySource, error) {
	if id == "" {
		return nil, ErrInvalidSourceID
	}
	if denom == "" {
		return nil, fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	return &MemorySource{
		id:       id,
		denom:    denom,
		balances: make(map[string]sdkmath.Int),
	}, nil
}

func (m *MemorySource) ID() string { return m.id }

func (m *MemorySource) Deposit(ctx context.Context, assets sdk.Coin, beneficiary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDeposit {
		return fmt.Errorf("%w: source %s: forced failure", ErrDepositFailed, m.id)
	}
	if beneficiary == "" {
		return fmt.Errorf("%w: empty beneficiary", ErrInvalidHolder)
	}
	if assets.Denom != m.denom {
		return fmt.Errorf("%w: source %s accepts %s, got %s", ErrInvalidAmount, m.id, m.denom, assets.Denom)
	}
	if assets.Amount.IsNil() || assets.Amount.IsNegative() {
		return fmt.Errorf("%w: source %s: bad amount", ErrInvalidAmount, m.id)
	}

	m.credit(beneficiary, assets.Amount)
	return nil
}

func (m *MemorySource) Withdraw(ctx context.Context, assets sdk.Coin, receiver, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWithdraw {
		return fmt.Errorf("%w: source %s: forced failure", ErrWithdrawFailed, m.id)
	}
	if receiver == "" || owner == "" {
		return fmt.Errorf("%w: empty receiver or owner", ErrInvalidHolder)
	}
	if assets.Denom != m.denom {
		return fmt.Errorf("%w: source %s holds %s, got %s", ErrInvalidAmount, m.id, m.denom, assets.Denom)
	}

	bal, ok := m.balances[owner]
	if !ok || bal.LT(assets.Amount) {
		return fmt.Errorf("%w: source %s: owner %s has %s, requested %s",
			ErrWithdrawFailed, m.id, owner, bal, assets.Amount)
	}

	m.balances[owner] = bal.Sub(assets.Amount)
	return nil
}

func (m *MemorySource) AssetsOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailQuery {
		return sdkmath.Int{}, fmt.Errorf("%w: source %s: forced failure", ErrQueryFailed, m.id)
	}
	if holder == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: empty holder", ErrInvalidHolder)
	}

	bal, ok := m.balances[holder]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return bal, nil
}

// Drift adjusts a holder's balance outside of any vault operation, modeling
// yield accrual (positive) or loss (negative). Panics on nil delta; this is
// a test/sim hook, not a production path.
func (m *MemorySource) Drift(holder string, delta sdkmath.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credit(holder, delta)
	if m.balances[holder].IsNegative() {
		m.balances[holder] = sdkmath.ZeroInt()
	}
}

func (m *MemorySource) credit(holder string, delta sdkmath.Int) {
	bal, ok := m.balances[holder]
	if !ok {
		bal = sdkmath.ZeroInt()
	}
	m.balances[holder] = bal.Add(delta)
}
