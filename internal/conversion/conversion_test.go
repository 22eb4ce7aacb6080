package conversion

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/mvault/internal/aggregator"
	"github.com/elys-network/mvault/internal/source"
)

const (
	testDenom  = "uusdc"
	testHolder = "mvault1custody"
)

func newEngine(t *testing.T, balances []int64, shares int64) *Engine {
	t.Helper()
	sources := make([]source.Source, 0, len(balances))
	for i, bal := range balances {
		ms, err := source.NewMemorySource(string(rune('a'+i)), testDenom)
		require.NoError(t, err)
		ms.Drift(testHolder, sdkmath.NewInt(bal))
		sources = append(sources, ms)
	}
	agg, err := aggregator.New(sources, testHolder)
	require.NoError(t, err)

	supply := sdkmath.NewInt(shares)
	eng, err := New(agg, func() sdkmath.Int { return supply })
	require.NoError(t, err)
	return eng
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, func() sdkmath.Int { return sdkmath.ZeroInt() })
	require.ErrorIs(t, err, ErrNilAggregator)

	eng := newEngine(t, []int64{0}, 0)
	_, err = New(eng.agg, nil)
	require.ErrorIs(t, err, ErrNilShareSupply)
}

func TestSnapshot_OneConsistentView(t *testing.T) {
	eng := newEngine(t, []int64{100, 200, 300}, 500)

	totals, err := eng.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, totals.TotalAssets.Equal(sdkmath.NewInt(600)))
	assert.True(t, totals.TotalShares.Equal(sdkmath.NewInt(500)))
	require.Len(t, totals.Balances, 3)
}

func TestSnapshot_PropagatesSourceFailure(t *testing.T) {
	eng := newEngine(t, []int64{100}, 100)
	eng.agg.Sources()[0].(*source.MemorySource).FailQuery = true

	_, err := eng.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrSnapshotFailed)
}

func TestPreviewIdempotence(t *testing.T) {
	// Two consecutive quotes with no intervening mutation must be identical.
	eng := newEngine(t, []int64{1000, 2000, 333}, 2500)
	ctx := context.Background()

	totals1, err := eng.Snapshot(ctx)
	require.NoError(t, err)
	totals2, err := eng.Snapshot(ctx)
	require.NoError(t, err)

	q1, err := eng.SharesForAssets(sdkmath.NewInt(777), totals1)
	require.NoError(t, err)
	q2, err := eng.SharesForAssets(sdkmath.NewInt(777), totals2)
	require.NoError(t, err)
	assert.True(t, q1.Equal(q2), "quotes diverged: %s vs %s", q1, q2)
}

func TestConversionAsymmetry(t *testing.T) {
	// Asset-driven quotes use live totals; share-driven quotes go through the
	// explicit rate. Both truncate toward the vault.
	eng := newEngine(t, []int64{1000, 1000, 1000}, 2000)
	totals, err := eng.Snapshot(context.Background())
	require.NoError(t, err)

	shares, err := eng.SharesForAssets(sdkmath.NewInt(900), totals)
	require.NoError(t, err)
	// 900 * 2001 / 3001 = 600.1... -> 600
	assert.True(t, shares.Equal(sdkmath.NewInt(600)), "got %s", shares)

	assets, err := eng.AssetsForShares(sdkmath.NewInt(600), totals)
	require.NoError(t, err)
	// rate = 3001/2001 = 1.4997...; 600 * rate = 899.8... -> 899
	assert.True(t, assets.Equal(sdkmath.NewInt(899)), "got %s", assets)
}

func TestCommit_RefreshesCachedRate(t *testing.T) {
	eng := newEngine(t, []int64{0, 0, 0}, 0)

	rate, seq := eng.CachedRate()
	assert.True(t, rate.Equal(sdkmath.LegacyOneDec()))
	assert.Equal(t, uint64(0), seq)

	committed, err := eng.Commit(sdkmath.NewInt(3000), sdkmath.NewInt(2000), 7)
	require.NoError(t, err)

	cached, seq := eng.CachedRate()
	assert.True(t, cached.Equal(committed))
	assert.Equal(t, uint64(7), seq)

	expected := sdkmath.LegacyNewDec(3001).QuoTruncate(sdkmath.LegacyNewDec(2001))
	assert.True(t, cached.Equal(expected))
}
