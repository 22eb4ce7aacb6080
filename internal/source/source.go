package source

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidSourceID = errors.New("source ID is invalid")
	ErrInvalidAmount   = errors.New("amount is invalid")
	ErrInvalidHolder   = errors.New("holder address is invalid")
	ErrQueryFailed     = errors.New("balance query failed")
	ErrDepositFailed   = errors.New("source deposit failed")
	ErrWithdrawFailed  = errors.New("source withdraw failed")
)

// Source is one of the N independently-managed venues the vault allocates
// assets into. The vault treats each source as an opaque, trusted
// balance-and-transfer provider: reported balances are taken as-is and a
// source is trusted not to call back into the vault during a query.
type Source interface {
	// ID returns a stable identifier for this source, used in receipts and
	// allocation records.
	ID() string

	// Deposit moves assets from the vault's account into this source,
	// credited to beneficiary. Either the full amount lands or an error is
	// returned and nothing moved.
	Deposit(ctx context.Context, assets sdk.Coin, beneficiary string) error

	// Withdraw moves assets out of this source to receiver, drawing down
	// owner's balance. All-or-nothing, same as Deposit.
	Withdraw(ctx context.Context, assets sdk.Coin, receiver, owner string) error

	// AssetsOf reports the asset balance this source holds for the given
	// holder. Read-only; safe to call nested inside a mutating vault
	// operation.
	AssetsOf(ctx context.Context, holder string) (sdkmath.Int, error)
}

// Grant records the one-time unlimited transfer approval the vault issues to
// a source at construction, so the authorization is auditable rather than
// implicit.
type Grant struct {
	SourceID  string `json:"source_id"`
	Spender   string `json:"spender"`
	Unlimited bool   `json:"unlimited"`
}
