package ratio

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate_EmptyVaultIsOneToOne(t *testing.T) {
	rate, err := Rate(sdkmath.ZeroInt(), sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.True(t, rate.Equal(sdkmath.LegacyOneDec()), "empty vault must quote 1:1, got %s", rate)
}

func TestRate_SingleShareOutstanding(t *testing.T) {
	// The original denominator offset of -1 divided by zero here. The virtual
	// offset must keep this defined.
	rate, err := Rate(sdkmath.NewInt(1000), sdkmath.NewInt(1))
	require.NoError(t, err)
	expected := sdkmath.LegacyNewDec(1001).QuoTruncate(sdkmath.LegacyNewDec(2))
	assert.True(t, rate.Equal(expected), "got %s, want %s", rate, expected)
}

func TestRate_Truncates(t *testing.T) {
	// (10+1)/(3+1) = 2.75 exactly; (10+1)/(6+1) truncates.
	rate, err := Rate(sdkmath.NewInt(10), sdkmath.NewInt(3))
	require.NoError(t, err)
	assert.True(t, rate.Equal(sdkmath.LegacyMustNewDecFromStr("2.75")))

	rate, err = Rate(sdkmath.NewInt(10), sdkmath.NewInt(6))
	require.NoError(t, err)
	exact := sdkmath.LegacyNewDec(11).Quo(sdkmath.LegacyNewDec(7))
	assert.True(t, rate.LTE(exact), "truncation must never round up")
}

func TestRate_RejectsNegative(t *testing.T) {
	_, err := Rate(sdkmath.NewInt(-1), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = Rate(sdkmath.ZeroInt(), sdkmath.NewInt(-5))
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestRate_RejectsNil(t *testing.T) {
	_, err := Rate(sdkmath.Int{}, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrAmountNil)
}

func TestSharesForAssets_Bootstrap(t *testing.T) {
	// First-ever deposit into an empty vault mints 1:1.
	shares, err := SharesForAssets(sdkmath.NewInt(1000), sdkmath.ZeroInt(), sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.True(t, shares.Equal(sdkmath.NewInt(1000)), "bootstrap deposit of 1000 must mint 1000 shares, got %s", shares)
}

func TestSharesForAssets_ProRata(t *testing.T) {
	tests := []struct {
		name        string
		assets      int64
		totalAssets int64
		totalShares int64
		want        int64
	}{
		{"even pool", 500, 1000, 1000, 500},
		{"appreciated pool", 500, 2000, 1000, 250}, // 500*1001/2001 = 250.1... -> 250
		{"depreciated pool", 500, 500, 1000, 999},  // 500*1001/501 = 999.0...
		{"zero deposit", 0, 1000, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SharesForAssets(sdkmath.NewInt(tt.assets), sdkmath.NewInt(tt.totalAssets), sdkmath.NewInt(tt.totalShares))
			require.NoError(t, err)
			assert.True(t, shares.Equal(sdkmath.NewInt(tt.want)), "got %s, want %d", shares, tt.want)
		})
	}
}

func TestAssetsForShares_TruncatesTowardVault(t *testing.T) {
	rate := sdkmath.LegacyMustNewDecFromStr("1.5")
	assets, err := AssetsForShares(sdkmath.NewInt(3), rate)
	require.NoError(t, err)
	// 3 * 1.5 = 4.5 -> 4
	assert.True(t, assets.Equal(sdkmath.NewInt(4)))
}

func TestAssetsForShares_RejectsNilRate(t *testing.T) {
	_, err := AssetsForShares(sdkmath.NewInt(1), sdkmath.LegacyDec{})
	require.ErrorIs(t, err, ErrAmountNil)
}

func TestAssetsForSharesUp_RoundsFractionsUp(t *testing.T) {
	rate := sdkmath.LegacyMustNewDecFromStr("1.5")

	// 3 * 1.5 = 4.5 -> 5 on the mint path.
	cost, err := AssetsForSharesUp(sdkmath.NewInt(3), rate)
	require.NoError(t, err)
	assert.True(t, cost.Equal(sdkmath.NewInt(5)))

	// The mint cost never undercuts the payout quote for the same shares.
	payout, err := AssetsForShares(sdkmath.NewInt(3), rate)
	require.NoError(t, err)
	assert.True(t, cost.GTE(payout))

	// An exact product must not be bumped.
	cost, err = AssetsForSharesUp(sdkmath.NewInt(4), rate)
	require.NoError(t, err)
	assert.True(t, cost.Equal(sdkmath.NewInt(6)))
}

func TestAssetsForSharesUp_Validation(t *testing.T) {
	_, err := AssetsForSharesUp(sdkmath.NewInt(1), sdkmath.LegacyDec{})
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = AssetsForSharesUp(sdkmath.NewInt(-1), sdkmath.LegacyOneDec())
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestRoundTrip_NeverProfits(t *testing.T) {
	// Deposit A, receive S, immediately convert S back at the post-deposit
	// rate. The result must never exceed A.
	cases := []struct {
		assets      int64
		totalAssets int64
		totalShares int64
	}{
		{1000, 0, 0},
		{1000, 3333, 1000},
		{7, 13, 11},
		{999999, 123456789, 98765432},
		{1, 2, 3},
	}

	for _, c := range cases {
		deposited := sdkmath.NewInt(c.assets)
		ta := sdkmath.NewInt(c.totalAssets)
		ts := sdkmath.NewInt(c.totalShares)

		shares, err := SharesForAssets(deposited, ta, ts)
		require.NoError(t, err)

		rateAfter, err := Rate(ta.Add(deposited), ts.Add(shares))
		require.NoError(t, err)

		back, err := AssetsForShares(shares, rateAfter)
		require.NoError(t, err)

		assert.True(t, back.LTE(deposited),
			"round trip created value: deposited %s, got back %s (ta=%s ts=%s)", deposited, back, ta, ts)
	}
}
