/*

This file wraps the ratio arithmetic and the aggregator into the two
conversion directions the vault needs: "how many shares for X assets" and
"how many assets for Y shares". Every mutating operation takes exactly one
totals snapshot up front and runs all of its math against it; totals are
never re-queried mid-operation. The cached assetsPerShare is refreshed only
by Commit and carries the operation sequence it was computed at.

*/

package conversion

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/mvault/internal/aggregator"
	"github.com/elys-network/mvault/internal/ratio"
)

// Error definitions
var (
	ErrNilAggregator  = errors.New("aggregator is nil")
	ErrNilShareSupply = errors.New("share supply function is nil")
	ErrSnapshotFailed = errors.New("totals snapshot failed")
)

// ShareSupplyFn reports the current total minted shares. The ledger's
// TotalShares method satisfies it.
type ShareSupplyFn func() sdkmath.Int

// Totals is one consistent view of the vault's aggregate state, captured
// before any balance-mutating side effect of an operation.
type Totals struct {
	Balances    []aggregator.SourceBalance
	TotalAssets sdkmath.Int
	TotalShares sdkmath.Int
}

// Engine answers share/asset conversions against totals snapshots and owns
// the cached exchange rate.
type Engine struct {
	agg         *aggregator.Aggregator
	shareSupply ShareSupplyFn

	// Cached snapshot of the rate, meaningful only at the operation
	// boundary recorded in lastRefreshedOp.
	assetsPerShare  sdkmath.LegacyDec
	lastRefreshedOp uint64
}

// New creates a conversion engine. The initial cached rate is the bootstrap
// 1:1 rate at sequence zero.
func New(agg *aggregator.Aggregator, shareSupply ShareSupplyFn) (*Engine, error) {
	if agg == nil {
		return nil, ErrNilAggregator
	}
	if shareSupply == nil {
		return nil, ErrNilShareSupply
	}
	return &Engine{
		agg:            agg,
		shareSupply:    shareSupply,
		assetsPerShare: sdkmath.LegacyOneDec(),
	}, nil
}

// Snapshot captures totals in one aggregator pass. Shares are read after the
// balance pass; the host serializes operations, so both reads see the same
// operation boundary.
func (e *Engine) Snapshot(ctx context.Context) (Totals, error) {
	balances, total, err := e.agg.Balances(ctx)
	if err != nil {
		return Totals{}, errors.Join(ErrSnapshotFailed, err)
	}
	return Totals{
		Balances:    balances,
		TotalAssets: total,
		TotalShares: e.shareSupply(),
	}, nil
}

// SharesForAssets quotes shares for an asset amount against the snapshot,
// using live totals directly rather than the cached rate.
func (e *Engine) SharesForAssets(assets sdkmath.Int, totals Totals) (sdkmath.Int, error) {
	return ratio.SharesForAssets(assets, totals.TotalAssets, totals.TotalShares)
}

// AssetsForShares quotes assets for an exact share count. The rate is
// recomputed from the snapshot, not taken from the cache, so the quote
// reflects the operation's own consistent view.
func (e *Engine) AssetsForShares(shares sdkmath.Int, totals Totals) (sdkmath.Int, error) {
	rate, err := ratio.Rate(totals.TotalAssets, totals.TotalShares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return ratio.AssetsForShares(shares, rate)
}

// AssetsForSharesUp quotes the asset cost of minting an exact share count,
// rounded up so the cost never understates share value. Payout quotes use
// AssetsForShares instead.
func (e *Engine) AssetsForSharesUp(shares sdkmath.Int, totals Totals) (sdkmath.Int, error) {
	rate, err := ratio.Rate(totals.TotalAssets, totals.TotalShares)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return ratio.AssetsForSharesUp(shares, rate)
}

// Commit recomputes and persists the cached rate from post-operation totals,
// tagging it with the committing operation's sequence number.
func (e *Engine) Commit(totalAssets, totalShares sdkmath.Int, seq uint64) (sdkmath.LegacyDec, error) {
	rate, err := ratio.Rate(totalAssets, totalShares)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("rate recompute failed: %w", err)
	}
	e.assetsPerShare = rate
	e.lastRefreshedOp = seq
	return rate, nil
}

// CachedRate returns the last committed rate and the operation sequence it
// was refreshed at. Callers must not assume it is fresher than that.
func (e *Engine) CachedRate() (sdkmath.LegacyDec, uint64) {
	return e.assetsPerShare, e.lastRefreshedOp
}
