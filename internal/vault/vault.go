/*

This file contains the deposit/mint/withdraw/redeem state machine over the
conversion engine, the position ledger, and the underlying sources. Every
mutating entry point follows the same fixed order:

	Quote -> Cap-check (deposit path) -> Transfer/Allocate -> Mint/Burn -> Notify

Totals are snapshotted exactly once per operation, before any
balance-mutating side effect; all downstream allocation math runs against
that snapshot. Operations are serialized by a single writer mutex per vault
instance; every operation needs a consistent full-aggregate view, so there
is no per-source locking.

*/

package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"

	"github.com/elys-network/mvault/internal/aggregator"
	"github.com/elys-network/mvault/internal/conversion"
	"github.com/elys-network/mvault/internal/ledger"
	"github.com/elys-network/mvault/internal/logger"
	"github.com/elys-network/mvault/internal/source"
	"github.com/elys-network/mvault/internal/transport"
	"github.com/elys-network/mvault/internal/types"
)

var vaultLogger = logger.GetForComponent("vault")

// Config carries everything a Vault needs at construction. Sources and the
// asset denom are fixed for the vault's lifetime.
type Config struct {
	// AssetDenom is the fungible unit being accounted. Required.
	AssetDenom string
	// Address is the vault's own custody account on the host ledger. Required.
	Address string
	// Sources is the fixed, ordered list of underlying sources. Required,
	// every entry non-nil.
	Sources []source.Source
	// Transport moves the asset between accounts. Required.
	Transport transport.Transport
	// Authorizer guards the administrative surface. Defaults to deny-all.
	Authorizer Authorizer
	// Notifier receives events. Defaults to LogNotifier.
	Notifier Notifier
	// ReceiptSink persists receipts, rate snapshots, and cap changes.
	// Optional.
	ReceiptSink ReceiptSink
	// AssetsCap is the initial ceiling on aggregate assets. Nil disables it.
	AssetsCap *sdkmath.Int
	// StartSequence seeds the operation counter, so audit sequence numbers
	// survive restarts.
	StartSequence uint64
}

// Vault aggregates deposits across a fixed set of underlying sources and
// mints/burns proportional ownership shares.
type Vault struct {
	mu sync.Mutex

	denom   string
	address string

	agg       *aggregator.Aggregator
	engine    *conversion.Engine
	book      *ledger.Ledger
	transport transport.Transport
	auth      Authorizer
	notifier  Notifier
	sink      ReceiptSink

	// assetsCap, when non-nil, strictly bounds aggregate assets.
	assetsCap *sdkmath.Int

	// unallocated holds the truncated remainders of even-split deposits.
	// Retained in the vault, not distributed, and excluded from TotalAssets.
	unallocated sdkmath.Int

	// opSeq is the operation sequence number; bumped once per committed
	// mutating operation.
	opSeq uint64

	grants []source.Grant
}

// New validates the configuration, grants each source a one-time unlimited
// transfer approval (recorded so the grant is auditable), and returns a
// vault ready for its first deposit.
func New(ctx context.Context, cfg Config) (*Vault, error) {
	if cfg.AssetDenom == "" {
		return nil, fmt.Errorf("%w: asset denom is required", ErrInvalidConfig)
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: vault address is required", ErrInvalidConfig)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("%w: at least one underlying source is required", ErrInvalidConfig)
	}
	for i, s := range cfg.Sources {
		if s == nil {
			return nil, fmt.Errorf("%w: source at index %d is nil", ErrInvalidConfig, i)
		}
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}
	if cfg.AssetsCap != nil && cfg.AssetsCap.IsNegative() {
		return nil, fmt.Errorf("%w: assets cap cannot be negative", ErrInvalidConfig)
	}

	agg, err := aggregator.New(cfg.Sources, cfg.Address)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	book := ledger.New()
	engine, err := conversion.New(agg, book.TotalShares)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	auth := cfg.Authorizer
	if auth == nil {
		auth = DenyAllAuthorizer{}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}

	v := &Vault{
		denom:       cfg.AssetDenom,
		address:     cfg.Address,
		agg:         agg,
		engine:      engine,
		book:        book,
		transport:   cfg.Transport,
		auth:        auth,
		notifier:    notifier,
		sink:        cfg.ReceiptSink,
		unallocated: sdkmath.ZeroInt(),
		opSeq:       cfg.StartSequence,
	}
	if cfg.AssetsCap != nil {
		capCopy := *cfg.AssetsCap
		v.assetsCap = &capCopy
	}

	// One-time capability grant: each source may pull from the vault's
	// account without per-call re-approval.
	for _, s := range cfg.Sources {
		if err := cfg.Transport.Approve(ctx, s.ID(), true); err != nil {
			return nil, fmt.Errorf("%w: approving source %s: %w", ErrTransportFailure, s.ID(), err)
		}
		v.grants = append(v.grants, source.Grant{SourceID: s.ID(), Spender: s.ID(), Unlimited: true})
	}

	vaultLogger.Info().
		Str("denom", cfg.AssetDenom).
		Str("address", cfg.Address).
		Int("sources", len(cfg.Sources)).
		Bool("capped", v.assetsCap != nil).
		Msg("Vault initialized")

	return v, nil
}

// Deposit takes assets from caller and mints shares to receiver. Quote,
// cap-check, transfer-in, even-split allocation, mint, notify, in that
// order, all-or-nothing.
func (v *Vault) Deposit(ctx context.Context, caller string, assets sdkmath.Int, receiver string) (types.OperationReceipt, error) {
	if err := validateParties(caller, receiver); err != nil {
		return types.OperationReceipt{}, err
	}
	if err := validatePositiveAmount(assets); err != nil {
		return types.OperationReceipt{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return v.reject(types.OpDeposit, caller, receiver, assets, errors.Join(ErrSourceFailure, err))
	}

	shares, err := v.engine.SharesForAssets(assets, totals)
	if err != nil {
		return v.reject(types.OpDeposit, caller, receiver, assets, errors.Join(ErrInvalidArgument, err))
	}
	if shares.IsZero() {
		return v.reject(types.OpDeposit, caller, receiver, assets, ErrAmountTooSmall)
	}

	// Cap check happens strictly after quoting live totals and strictly
	// before any fund movement.
	if err := v.checkCap(totals.TotalAssets, assets); err != nil {
		return v.reject(types.OpDeposit, caller, receiver, assets, err)
	}

	receipt, err := v.commitDeposit(ctx, types.OpDeposit, caller, receiver, assets, shares, totals)
	if err != nil {
		return v.reject(types.OpDeposit, caller, receiver, assets, err)
	}
	return receipt, nil
}

// Mint deposits whatever assets the requested exact share count is worth at
// the current rate, and mints exactly that share count to receiver.
func (v *Vault) Mint(ctx context.Context, caller string, shares sdkmath.Int, receiver string) (types.OperationReceipt, error) {
	if err := validateParties(caller, receiver); err != nil {
		return types.OperationReceipt{}, err
	}
	if err := validatePositiveAmount(shares); err != nil {
		return types.OperationReceipt{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return v.reject(types.OpMint, caller, receiver, sdkmath.ZeroInt(), errors.Join(ErrSourceFailure, err))
	}

	// Share-driven path goes through the explicit rate: the caller is
	// requesting an exact share count and the rate is the contractual price.
	// The cost rounds up so minting never pays less than the shares' value.
	assets, err := v.engine.AssetsForSharesUp(shares, totals)
	if err != nil {
		return v.reject(types.OpMint, caller, receiver, sdkmath.ZeroInt(), errors.Join(ErrInvalidArgument, err))
	}
	if assets.IsZero() {
		return v.reject(types.OpMint, caller, receiver, assets, ErrAmountTooSmall)
	}

	if err := v.checkCap(totals.TotalAssets, assets); err != nil {
		return v.reject(types.OpMint, caller, receiver, assets, err)
	}

	receipt, err := v.commitDeposit(ctx, types.OpMint, caller, receiver, assets, shares, totals)
	if err != nil {
		return v.reject(types.OpMint, caller, receiver, assets, err)
	}
	return receipt, nil
}

// Withdraw pays out the requested assets to receiver, burning the equivalent
// shares from owner. A caller other than owner spends delegated allowance.
func (v *Vault) Withdraw(ctx context.Context, caller string, assets sdkmath.Int, receiver, owner string) (types.OperationReceipt, error) {
	if err := validateParties(caller, receiver); err != nil {
		return types.OperationReceipt{}, err
	}
	if owner == "" {
		return types.OperationReceipt{}, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}
	if err := validatePositiveAmount(assets); err != nil {
		return types.OperationReceipt{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return v.reject(types.OpWithdraw, caller, receiver, assets, errors.Join(ErrSourceFailure, err))
	}

	shares, err := v.engine.SharesForAssets(assets, totals)
	if err != nil {
		return v.reject(types.OpWithdraw, caller, receiver, assets, errors.Join(ErrInvalidArgument, err))
	}
	if shares.IsZero() {
		return v.reject(types.OpWithdraw, caller, receiver, assets, ErrAmountTooSmall)
	}

	receipt, err := v.commitWithdraw(ctx, types.OpWithdraw, caller, receiver, owner, assets, shares, totals)
	if err != nil {
		return v.reject(types.OpWithdraw, caller, receiver, assets, err)
	}
	return receipt, nil
}

// Redeem burns exactly the requested share count from owner and pays out
// their current asset value to receiver.
func (v *Vault) Redeem(ctx context.Context, caller string, shares sdkmath.Int, receiver, owner string) (types.OperationReceipt, error) {
	if err := validateParties(caller, receiver); err != nil {
		return types.OperationReceipt{}, err
	}
	if owner == "" {
		return types.OperationReceipt{}, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}
	if err := validatePositiveAmount(shares); err != nil {
		return types.OperationReceipt{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return v.reject(types.OpRedeem, caller, receiver, sdkmath.ZeroInt(), errors.Join(ErrSourceFailure, err))
	}

	assets, err := v.engine.AssetsForShares(shares, totals)
	if err != nil {
		return v.reject(types.OpRedeem, caller, receiver, sdkmath.ZeroInt(), errors.Join(ErrInvalidArgument, err))
	}
	if assets.IsZero() {
		return v.reject(types.OpRedeem, caller, receiver, assets, ErrAmountTooSmall)
	}

	receipt, err := v.commitWithdraw(ctx, types.OpRedeem, caller, receiver, owner, assets, shares, totals)
	if err != nil {
		return v.reject(types.OpRedeem, caller, receiver, assets, err)
	}
	return receipt, nil
}

// commitDeposit executes the side-effecting tail of the deposit path against
// an already-validated quote. Funds move first; shares are minted only after
// every transfer succeeded, so no partial mint is ever observable.
func (v *Vault) commitDeposit(ctx context.Context, kind types.OperationKind, caller, receiver string, assets, shares sdkmath.Int, totals conversion.Totals) (types.OperationReceipt, error) {
	if err := v.transport.TransferFrom(ctx, caller, sdk.NewCoin(v.denom, assets)); err != nil {
		return types.OperationReceipt{}, errors.Join(ErrTransportFailure, err)
	}

	// Even split by count; the truncated remainder stays in the vault's
	// unallocated buffer.
	sources := v.agg.Sources()
	n := sdkmath.NewInt(int64(len(sources)))
	perSource := assets.Quo(n)
	remainder := assets.Sub(perSource.Mul(n))

	allocations := make([]types.SourceAllocation, 0, len(sources))
	deposited := make([]source.Source, 0, len(sources))
	if perSource.IsPositive() {
		for _, s := range sources {
			if err := s.Deposit(ctx, sdk.NewCoin(v.denom, perSource), v.address); err != nil {
				v.unwindDeposits(ctx, deposited, perSource)
				v.refund(ctx, caller, assets)
				return types.OperationReceipt{}, fmt.Errorf("%w: source %s: %w", ErrSourceFailure, s.ID(), err)
			}
			deposited = append(deposited, s)
			allocations = append(allocations, types.SourceAllocation{SourceID: s.ID(), Assets: perSource})
		}
	}
	v.unallocated = v.unallocated.Add(remainder)

	if err := v.book.Mint(receiver, shares); err != nil {
		v.unwindDeposits(ctx, deposited, perSource)
		v.refund(ctx, caller, assets)
		return types.OperationReceipt{}, err
	}

	allocated := assets.Sub(remainder)
	rate, seq := v.commitRate(totals.TotalAssets.Add(allocated), totals.TotalShares.Add(shares))

	receipt := v.writeReceipt(types.OperationReceipt{
		Sequence:    seq,
		Kind:        kind,
		Caller:      caller,
		Receiver:    receiver,
		Assets:      assets,
		Shares:      shares,
		Rate:        rate,
		Allocations: allocations,
		Success:     true,
	})

	v.notifier.Notify(types.Event{
		Kind: types.EventDepositCompleted, Sequence: seq,
		Caller: caller, Receiver: receiver,
		Assets: assets, Shares: shares, Rate: rate,
		Timestamp: receipt.Timestamp,
	})

	return receipt, nil
}

// commitWithdraw executes the side-effecting tail of the withdraw path.
// Per-source allocations are proportional to the balance snapshot taken at
// quote time; shares are burned only after every source withdrawal and the
// payout transfer succeeded.
func (v *Vault) commitWithdraw(ctx context.Context, kind types.OperationKind, caller, receiver, owner string, assets, shares sdkmath.Int, totals conversion.Totals) (types.OperationReceipt, error) {
	// All rejections precede any fund movement.
	if caller != owner {
		if err := v.book.CheckAllowance(owner, caller, shares); err != nil {
			return types.OperationReceipt{}, err
		}
	}
	if v.book.BalanceOf(owner).LT(shares) {
		return types.OperationReceipt{}, fmt.Errorf("%w: owner %s has %s, needs %s",
			ledger.ErrInsufficientShares, owner, v.book.BalanceOf(owner), shares)
	}
	if totals.TotalAssets.IsZero() {
		return types.OperationReceipt{}, ErrNothingToWithdraw
	}

	// Proportional-by-current-balance split, every term computed from the
	// same snapshot. Truncation per source; the payout is the allocation
	// sum, never more than requested.
	allocations := make([]types.SourceAllocation, 0, len(totals.Balances))
	payout := sdkmath.ZeroInt()
	for _, b := range totals.Balances {
		alloc := assets.Mul(b.Assets).Quo(totals.TotalAssets)
		allocations = append(allocations, types.SourceAllocation{SourceID: b.SourceID, Assets: alloc})
		payout = payout.Add(alloc)
	}
	if payout.IsZero() {
		return types.OperationReceipt{}, ErrAmountTooSmall
	}

	sources := v.agg.Sources()
	withdrawn := make([]int, 0, len(sources))
	for i, s := range sources {
		alloc := allocations[i].Assets
		if alloc.IsZero() {
			continue
		}
		if err := s.Withdraw(ctx, sdk.NewCoin(v.denom, alloc), v.address, v.address); err != nil {
			v.unwindWithdrawals(ctx, sources, allocations, withdrawn)
			return types.OperationReceipt{}, fmt.Errorf("%w: source %s: %w", ErrSourceFailure, s.ID(), err)
		}
		withdrawn = append(withdrawn, i)
	}

	if err := v.transport.Transfer(ctx, receiver, sdk.NewCoin(v.denom, payout)); err != nil {
		v.unwindWithdrawals(ctx, sources, allocations, withdrawn)
		return types.OperationReceipt{}, errors.Join(ErrTransportFailure, err)
	}

	// Fund movement is done; the ledger commit cannot fail after the checks
	// above, and happens transactionally with it from the caller's view.
	if caller != owner {
		if err := v.book.SpendAllowance(owner, caller, shares); err != nil {
			return types.OperationReceipt{}, err
		}
	}
	if err := v.book.Burn(owner, shares); err != nil {
		return types.OperationReceipt{}, err
	}

	rate, seq := v.commitRate(totals.TotalAssets.Sub(payout), totals.TotalShares.Sub(shares))

	receipt := v.writeReceipt(types.OperationReceipt{
		Sequence:    seq,
		Kind:        kind,
		Caller:      caller,
		Owner:       owner,
		Receiver:    receiver,
		Assets:      payout,
		Shares:      shares,
		Rate:        rate,
		Allocations: allocations,
		Success:     true,
	})

	v.notifier.Notify(types.Event{
		Kind: types.EventWithdrawCompleted, Sequence: seq,
		Caller: caller, Owner: owner, Receiver: receiver,
		Assets: payout, Shares: shares, Rate: rate,
		Timestamp: receipt.Timestamp,
	})

	return receipt, nil
}

// PreviewDeposit quotes the shares a deposit of assets would mint, with no
// side effects.
func (v *Vault) PreviewDeposit(ctx context.Context, assets sdkmath.Int) (sdkmath.Int, error) {
	if err := validatePositiveAmount(assets); err != nil {
		return sdkmath.Int{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrSourceFailure, err)
	}
	return v.engine.SharesForAssets(assets, totals)
}

// PreviewMint quotes the assets required to mint an exact share count.
func (v *Vault) PreviewMint(ctx context.Context, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := validatePositiveAmount(shares); err != nil {
		return sdkmath.Int{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrSourceFailure, err)
	}
	return v.engine.AssetsForSharesUp(shares, totals)
}

// PreviewWithdraw quotes the shares a withdrawal of assets would burn.
func (v *Vault) PreviewWithdraw(ctx context.Context, assets sdkmath.Int) (sdkmath.Int, error) {
	return v.PreviewDeposit(ctx, assets)
}

// PreviewRedeem quotes the assets redeeming an exact share count would pay.
func (v *Vault) PreviewRedeem(ctx context.Context, shares sdkmath.Int) (sdkmath.Int, error) {
	return v.PreviewMint(ctx, shares)
}

// MaxDeposit reports the headroom under the assets cap. With no cap active,
// unlimited is true and the amount is zero.
func (v *Vault) MaxDeposit(ctx context.Context) (sdkmath.Int, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.assetsCap == nil {
		return sdkmath.ZeroInt(), true, nil
	}

	total, err := v.agg.TotalAssets(ctx)
	if err != nil {
		return sdkmath.Int{}, false, errors.Join(ErrSourceFailure, err)
	}
	headroom := v.assetsCap.Sub(total)
	if headroom.IsNegative() {
		headroom = sdkmath.ZeroInt()
	}
	return headroom, false, nil
}

// MaxMint reports the cap headroom converted to shares at live totals. With
// no cap active, unlimited is true and the amount is zero.
func (v *Vault) MaxMint(ctx context.Context) (sdkmath.Int, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.assetsCap == nil {
		return sdkmath.ZeroInt(), true, nil
	}

	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return sdkmath.Int{}, false, errors.Join(ErrSourceFailure, err)
	}
	headroom := v.assetsCap.Sub(totals.TotalAssets)
	if headroom.IsNegative() {
		return sdkmath.ZeroInt(), false, nil
	}
	shares, err := v.engine.SharesForAssets(headroom, totals)
	if err != nil {
		return sdkmath.Int{}, false, err
	}
	return shares, false, nil
}

// MaxWithdraw reports the asset value of the owner's own position, never
// more than they hold, regardless of per-source liquidity.
func (v *Vault) MaxWithdraw(ctx context.Context, owner string) (sdkmath.Int, error) {
	if owner == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	balance := v.book.BalanceOf(owner)
	if balance.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	totals, err := v.engine.Snapshot(ctx)
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrSourceFailure, err)
	}
	return v.engine.AssetsForShares(balance, totals)
}

// MaxRedeem reports the owner's share balance.
func (v *Vault) MaxRedeem(owner string) (sdkmath.Int, error) {
	if owner == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.BalanceOf(owner), nil
}

// SetAssetsCap updates the administrative ceiling. Nil disables the cap.
// Guarded by the external authorizer; the vault defines no role model of its
// own.
func (v *Vault) SetAssetsCap(actor string, newCap *sdkmath.Int) (types.CapChange, error) {
	if actor == "" {
		return types.CapChange{}, fmt.Errorf("%w: actor is required", ErrInvalidArgument)
	}
	if newCap != nil && newCap.IsNegative() {
		return types.CapChange{}, fmt.Errorf("%w: cap cannot be negative", ErrInvalidArgument)
	}
	if !v.auth.CanSetCap(actor) {
		return types.CapChange{}, fmt.Errorf("%w: %s may not set the cap", ErrUnauthorized, actor)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	oldCap := sdkmath.ZeroInt()
	if v.assetsCap != nil {
		oldCap = *v.assetsCap
	}
	applied := sdkmath.ZeroInt()
	if newCap == nil {
		v.assetsCap = nil
	} else {
		capCopy := *newCap
		v.assetsCap = &capCopy
		applied = capCopy
	}

	v.opSeq++
	change := types.CapChange{Actor: actor, OldCap: oldCap, NewCap: applied, Timestamp: time.Now().UTC()}

	if v.sink != nil {
		if err := v.sink.SaveCapChange(change); err != nil {
			vaultLogger.Error().Err(err).Str("actor", actor).Msg("Failed to persist cap change")
		}
	}

	v.writeReceipt(types.OperationReceipt{
		Sequence: v.opSeq,
		Kind:     types.OpSetCap,
		Caller:   actor,
		Assets:   applied,
		Shares:   sdkmath.ZeroInt(),
		Rate:     v.cachedRate(),
		Success:  true,
	})
	v.notifier.Notify(types.Event{
		Kind: types.EventCapUpdated, Sequence: v.opSeq,
		Caller: actor, Cap: applied, Timestamp: change.Timestamp,
	})

	vaultLogger.Info().
		Str("actor", actor).
		Str("oldCap", oldCap.String()).
		Str("newCap", applied.String()).
		Bool("disabled", newCap == nil).
		Msg("Assets cap updated")

	return change, nil
}

// TotalAssets returns the live aggregate across all sources. The unallocated
// buffer is deliberately excluded.
func (v *Vault) TotalAssets(ctx context.Context) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	total, err := v.agg.TotalAssets(ctx)
	if err != nil {
		return sdkmath.Int{}, errors.Join(ErrSourceFailure, err)
	}
	return total, nil
}

// TotalShares returns the current minted share supply.
func (v *Vault) TotalShares() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.TotalShares()
}

// BalanceOf returns a holder's share balance.
func (v *Vault) BalanceOf(holder string) sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.BalanceOf(holder)
}

// AssetsPerShare returns the cached rate and the operation sequence it was
// last refreshed at. It is a snapshot at that boundary, not a live value.
func (v *Vault) AssetsPerShare() (sdkmath.LegacyDec, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.engine.CachedRate()
}

// UnallocatedBuffer returns the accumulated even-split remainders retained
// in the vault.
func (v *Vault) UnallocatedBuffer() sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unallocated
}

// AssetsCap returns the active cap, or nil when uncapped.
func (v *Vault) AssetsCap() *sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.assetsCap == nil {
		return nil
	}
	capCopy := *v.assetsCap
	return &capCopy
}

// Approve grants spender a capped delegated-withdrawal capacity over the
// caller's shares.
func (v *Vault) Approve(owner, spender string, shares sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.Approve(owner, spender, shares)
}

// ApproveUnlimited grants spender an allowance that is never decremented.
func (v *Vault) ApproveUnlimited(owner, spender string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.ApproveUnlimited(owner, spender)
}

// Allowance reports spender's remaining capacity over owner's shares.
func (v *Vault) Allowance(owner, spender string) (sdkmath.Int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.Allowance(owner, spender)
}

// TransferShares moves shares between holders.
func (v *Vault) TransferShares(from, to string, shares sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.book.Transfer(from, to, shares)
}

// Grants returns the capability grants issued to sources at construction.
func (v *Vault) Grants() []source.Grant {
	grants := make([]source.Grant, len(v.grants))
	copy(grants, v.grants)
	return grants
}

// AssetDenom returns the accounted denom.
func (v *Vault) AssetDenom() string { return v.denom }

// Address returns the vault's custody address.
func (v *Vault) Address() string { return v.address }

// SourceIDs returns the ordered source identifiers.
func (v *Vault) SourceIDs() []string {
	ids := make([]string, 0, v.agg.Count())
	for _, s := range v.agg.Sources() {
		ids = append(ids, s.ID())
	}
	return ids
}

// Sequence returns the last committed operation sequence number.
func (v *Vault) Sequence() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opSeq
}

// checkCap rejects a deposit that would push aggregate assets above the cap.
func (v *Vault) checkCap(totalAssets, incoming sdkmath.Int) error {
	if v.assetsCap == nil {
		return nil
	}
	if totalAssets.Add(incoming).GT(*v.assetsCap) {
		return fmt.Errorf("%w: total %s + deposit %s > cap %s",
			ErrCapacityExceeded, totalAssets, incoming, *v.assetsCap)
	}
	return nil
}

// commitRate bumps the operation sequence and refreshes the cached rate from
// snapshot-derived post-operation totals. Totals are never re-queried here.
func (v *Vault) commitRate(totalAssets, totalShares sdkmath.Int) (sdkmath.LegacyDec, uint64) {
	v.opSeq++
	rate, err := v.engine.Commit(totalAssets, totalShares, v.opSeq)
	if err != nil {
		// Both inputs were validated snapshots; a failure here means a bug,
		// not an operational condition.
		vaultLogger.Error().Err(err).Msg("Rate commit failed on validated totals")
		rate, _ = v.engine.CachedRate()
	}

	if v.sink != nil {
		snapErr := v.sink.SaveRateSnapshot(types.RateSnapshot{
			Sequence:       v.opSeq,
			AssetsPerShare: rate,
			TotalAssets:    totalAssets,
			TotalShares:    totalShares,
			Timestamp:      time.Now().UTC(),
		})
		if snapErr != nil {
			vaultLogger.Error().Err(snapErr).Msg("Failed to persist rate snapshot")
		}
	}

	v.notifier.Notify(types.Event{
		Kind: types.EventRateUpdated, Sequence: v.opSeq,
		Rate: rate, Timestamp: time.Now().UTC(),
	})

	return rate, v.opSeq
}

// writeReceipt stamps and persists a receipt. Persistence is best-effort and
// never fails the operation.
func (v *Vault) writeReceipt(receipt types.OperationReceipt) types.OperationReceipt {
	receipt.ID = uuid.New()
	receipt.Timestamp = time.Now().UTC()
	if v.sink != nil {
		if err := v.sink.SaveReceipt(receipt); err != nil {
			vaultLogger.Error().Err(err).Str("kind", string(receipt.Kind)).Msg("Failed to persist receipt")
		}
	}
	return receipt
}

// reject records a failed receipt for diagnosis and returns the cause. A
// rejected operation leaves all balances, the rate, and the cap exactly as
// they were.
func (v *Vault) reject(kind types.OperationKind, caller, receiver string, assets sdkmath.Int, cause error) (types.OperationReceipt, error) {
	v.writeReceipt(types.OperationReceipt{
		Sequence: v.opSeq,
		Kind:     kind,
		Caller:   caller,
		Receiver: receiver,
		Assets:   assets,
		Shares:   sdkmath.ZeroInt(),
		Rate:     v.cachedRate(),
		Success:  false,
		Message:  cause.Error(),
	})
	vaultLogger.Warn().
		Str("kind", string(kind)).
		Str("caller", caller).
		Err(cause).
		Msg("Operation rejected")
	return types.OperationReceipt{}, cause
}

func (v *Vault) cachedRate() sdkmath.LegacyDec {
	rate, _ := v.engine.CachedRate()
	return rate
}

// unwindDeposits reverses the source deposits of an aborted operation. The
// unwind is best-effort; failures are logged loudly because they mean funds
// are stranded in a source pending operator action.
func (v *Vault) unwindDeposits(ctx context.Context, deposited []source.Source, perSource sdkmath.Int) {
	for _, s := range deposited {
		if err := s.Withdraw(ctx, sdk.NewCoin(v.denom, perSource), v.address, v.address); err != nil {
			vaultLogger.Error().Err(err).
				Str("sourceId", s.ID()).
				Str("amount", perSource.String()).
				Msg("UNWIND FAILED: funds stranded in source, operator action required")
		}
	}
}

// refund returns the transferred-in assets of an aborted deposit to the
// caller.
func (v *Vault) refund(ctx context.Context, caller string, assets sdkmath.Int) {
	if err := v.transport.Transfer(ctx, caller, sdk.NewCoin(v.denom, assets)); err != nil {
		vaultLogger.Error().Err(err).
			Str("caller", caller).
			Str("amount", assets.String()).
			Msg("UNWIND FAILED: refund transfer failed, operator action required")
	}
}

// unwindWithdrawals re-deposits the source withdrawals of an aborted
// operation, indexed by the positions that succeeded.
func (v *Vault) unwindWithdrawals(ctx context.Context, sources []source.Source, allocations []types.SourceAllocation, withdrawn []int) {
	for _, i := range withdrawn {
		s := sources[i]
		alloc := allocations[i].Assets
		if err := s.Deposit(ctx, sdk.NewCoin(v.denom, alloc), v.address); err != nil {
			vaultLogger.Error().Err(err).
				Str("sourceId", s.ID()).
				Str("amount", alloc.String()).
				Msg("UNWIND FAILED: funds stranded outside source, operator action required")
		}
	}
}

func validateParties(caller, receiver string) error {
	if caller == "" {
		return fmt.Errorf("%w: caller is required", ErrInvalidArgument)
	}
	if receiver == "" {
		return fmt.Errorf("%w: receiver is required", ErrInvalidArgument)
	}
	return nil
}

func validatePositiveAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: amount is nil", ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	return nil
}
