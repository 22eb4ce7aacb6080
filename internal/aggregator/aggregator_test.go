package aggregator

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/mvault/internal/source"
)

const (
	testDenom  = "uusdc"
	testHolder = "mvault1custody"
)

func newTestSources(t *testing.T, balances []int64) []source.Source {
	t.Helper()
	sources := make([]source.Source, 0, len(balances))
	for i, bal := range balances {
		ms, err := source.NewMemorySource(string(rune('a'+i)), testDenom)
		require.NoError(t, err)
		ms.Drift(testHolder, sdkmath.NewInt(bal))
		sources = append(sources, ms)
	}
	return sources
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, testHolder)
	require.ErrorIs(t, err, ErrNoSources)

	_, err = New([]source.Source{nil}, testHolder)
	require.ErrorIs(t, err, ErrNilSource)

	srcs := newTestSources(t, []int64{1})
	_, err = New(srcs, "")
	require.ErrorIs(t, err, ErrInvalidHolder)
}

func TestTotalAssets_SumsAllSources(t *testing.T) {
	agg, err := New(newTestSources(t, []int64{100, 250, 650}), testHolder)
	require.NoError(t, err)

	total, err := agg.TotalAssets(context.Background())
	require.NoError(t, err)
	assert.True(t, total.Equal(sdkmath.NewInt(1000)), "got %s", total)
}

func TestTotalAssets_EmptyVault(t *testing.T) {
	agg, err := New(newTestSources(t, []int64{0, 0, 0}), testHolder)
	require.NoError(t, err)

	total, err := agg.TotalAssets(context.Background())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestBalances_ConsistentVector(t *testing.T) {
	agg, err := New(newTestSources(t, []int64{10, 20, 30}), testHolder)
	require.NoError(t, err)

	balances, total, err := agg.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 3)

	sum := sdkmath.ZeroInt()
	for _, b := range balances {
		sum = sum.Add(b.Assets)
	}
	assert.True(t, sum.Equal(total), "vector sum %s != total %s", sum, total)
}

func TestTotalAssets_SingleFailureFailsWhole(t *testing.T) {
	srcs := newTestSources(t, []int64{100, 200, 300})
	srcs[1].(*source.MemorySource).FailQuery = true

	agg, err := New(srcs, testHolder)
	require.NoError(t, err)

	_, err = agg.TotalAssets(context.Background())
	require.ErrorIs(t, err, ErrSourceQuery, "a single source failure must fail the whole aggregate")
}
