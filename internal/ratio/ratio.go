/*

This file contains the pure exchange-rate arithmetic between vault shares and
underlying assets. Nothing here touches vault state; callers pass in the
totals they snapshotted and get a rate back.

The rate carries a virtual offset of one asset unit and one share on the
totals: rate = (totalAssets + 1) / (totalShares + 1), truncated at 18
decimals. The offset defines a 1:1 bootstrap rate for an empty vault, removes
the divide-by-zero at zero shares outstanding, and hardens the first deposit
against inflation attacks.

Rounding always biases the vault. Quotes that credit the holder truncate
toward zero (SharesForAssets for deposits, AssetsForShares for payouts); the
asset cost of minting an exact share count rounds up (AssetsForSharesUp), so
a minter never pays less than the shares are worth.

*/

package ratio

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
)

// Virtual offsets applied to totals in every conversion. One base unit of
// the asset and one share.
var (
	VirtualAssets = sdkmath.OneInt()
	VirtualShares = sdkmath.OneInt()
)

// Rate computes assetsPerShare from a consistent snapshot of totals.
// Defined for every non-negative input, including the empty vault, where it
// returns exactly one.
func Rate(totalAssets, totalShares sdkmath.Int) (sdkmath.LegacyDec, error) {
	if err := validateAmount("totalAssets", totalAssets); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := validateAmount("totalShares", totalShares); err != nil {
		return sdkmath.LegacyDec{}, err
	}

	ta := totalAssets.Add(VirtualAssets)
	ts := totalShares.Add(VirtualShares)

	return sdkmath.LegacyNewDecFromInt(ta).QuoTruncate(sdkmath.LegacyNewDecFromInt(ts)), nil
}

// SharesForAssets computes the shares minted for a deposit of the given
// asset amount, from live totals: shares = assets * (ts+1) / (ta+1),
// truncated. Live totals are used directly rather than an intermediate rate
// so the deposit path does not compound rounding error.
func SharesForAssets(assets, totalAssets, totalShares sdkmath.Int) (sdkmath.Int, error) {
	if err := validateAmount("assets", assets); err != nil {
		return sdkmath.Int{}, err
	}
	if err := validateAmount("totalAssets", totalAssets); err != nil {
		return sdkmath.Int{}, err
	}
	if err := validateAmount("totalShares", totalShares); err != nil {
		return sdkmath.Int{}, err
	}

	ta := totalAssets.Add(VirtualAssets)
	ts := totalShares.Add(VirtualShares)

	return assets.Mul(ts).Quo(ta), nil
}

// AssetsForShares converts an exact share count to assets at the given rate,
// fixed-point multiply then truncate. The rate is the contractual price for
// share-driven operations; callers must pass a rate computed from the same
// snapshot the operation commits against.
func AssetsForShares(shares sdkmath.Int, rate sdkmath.LegacyDec) (sdkmath.Int, error) {
	if err := validateAmount("shares", shares); err != nil {
		return sdkmath.Int{}, err
	}
	if rate.IsNil() {
		return sdkmath.Int{}, fmt.Errorf("%w: rate", ErrAmountNil)
	}
	if rate.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: rate", ErrAmountNegative)
	}

	return rate.MulInt(shares).TruncateInt(), nil
}

// AssetsForSharesUp converts an exact share count to assets at the given
// rate, rounding the fractional remainder up. Used on the mint path, where
// the result is the price the caller pays rather than a payout.
func AssetsForSharesUp(shares sdkmath.Int, rate sdkmath.LegacyDec) (sdkmath.Int, error) {
	if err := validateAmount("shares", shares); err != nil {
		return sdkmath.Int{}, err
	}
	if rate.IsNil() {
		return sdkmath.Int{}, fmt.Errorf("%w: rate", ErrAmountNil)
	}
	if rate.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("%w: rate", ErrAmountNegative)
	}

	return rate.MulInt(shares).Ceil().TruncateInt(), nil
}

func validateAmount(name string, amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: %s", ErrAmountNil, name)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrAmountNegative, name)
	}
	return nil
}
