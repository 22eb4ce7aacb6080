package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAccount    = errors.New("account address is invalid")
	ErrInvalidAmount     = errors.New("transfer amount is invalid")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Transport is the fungible-asset mover the vault relies on. Standard
// transfer/transfer-from/approve semantics; a transfer either succeeds in
// full or returns an error with nothing moved.
type Transport interface {
	// Transfer moves assets from the vault's own account to receiver.
	Transfer(ctx context.Context, receiver string, assets sdk.Coin) error

	// TransferFrom moves assets from owner into the vault's account, within
	// a previously granted approval.
	TransferFrom(ctx context.Context, owner string, assets sdk.Coin) error

	// Approve grants spender capacity over the vault's account. The vault
	// issues one unlimited approval per source at construction.
	Approve(ctx context.Context, spender string, unlimited bool) error
}

// MemoryTransport is an in-memory Transport for sim mode and tests. Accounts
// are created on first credit.
type MemoryTransport struct {
	mu        sync.Mutex
	denom     string
	vaultAddr string
	balances  map[string]sdkmath.Int
	approvals map[string]bool

	// Forced failure switch for exercising abort paths.
	FailTransfer bool
}

// NewMemoryTransport creates a transport custodying the given denom, with
// the vault's account pre-created at zero.
func NewMemoryTransport(denom, vaultAddr string) (*MemoryTransport, error) {
	if denom == "" {
		return nil, fmt.Errorf("%w: empty denom", ErrInvalidAmount)
	}
	if vaultAddr == "" {
		return nil, ErrInvalidAccount
	}
	return &MemoryTransport{
		denom:     denom,
		vaultAddr: vaultAddr,
		balances:  map[string]sdkmath.Int{vaultAddr: sdkmath.ZeroInt()},
		approvals: make(map[string]bool),
	}, nil
}

func (m *MemoryTransport) Transfer(ctx context.Context, receiver string, assets sdk.Coin) error {
	return m.move(m.vaultAddr, receiver, assets)
}

func (m *MemoryTransport) TransferFrom(ctx context.Context, owner string, assets sdk.Coin) error {
	return m.move(owner, m.vaultAddr, assets)
}

func (m *MemoryTransport) Approve(ctx context.Context, spender string, unlimited bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if spender == "" {
		return ErrInvalidAccount
	}
	m.approvals[spender] = unlimited
	return nil
}

// Credit funds an account directly, for test and sim setup.
func (m *MemoryTransport) Credit(account string, amount sdkmath.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[account]
	if !ok {
		bal = sdkmath.ZeroInt()
	}
	m.balances[account] = bal.Add(amount)
}

// BalanceOf reports an account's balance, zero for unknown accounts.
func (m *MemoryTransport) BalanceOf(account string) sdkmath.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.balances[account]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return bal
}

// Approved reports whether spender holds an approval and whether it is
// unlimited.
func (m *MemoryTransport) Approved(spender string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	unlimited, ok := m.approvals[spender]
	return ok, unlimited
}

func (m *MemoryTransport) move(from, to string, assets sdk.Coin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTransfer {
		return fmt.Errorf("%w: forced failure", ErrTransferFailed)
	}
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if assets.Denom != m.denom {
		return fmt.Errorf("%w: transport carries %s, got %s", ErrInvalidAmount, m.denom, assets.Denom)
	}
	if assets.Amount.IsNil() || assets.Amount.IsNegative() {
		return fmt.Errorf("%w: bad amount", ErrInvalidAmount)
	}

	bal, ok := m.balances[from]
	if !ok || bal.LT(assets.Amount) {
		return fmt.Errorf("%w: account %s has %s, moving %s", ErrInsufficientFunds, from, bal, assets.Amount)
	}

	m.balances[from] = bal.Sub(assets.Amount)
	toBal, ok := m.balances[to]
	if !ok {
		toBal = sdkmath.ZeroInt()
	}
	m.balances[to] = toBal.Add(assets.Amount)
	return nil
}
