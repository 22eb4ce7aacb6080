package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintBurn_Conservation(t *testing.T) {
	l := New()

	require.NoError(t, l.Mint("alice", sdkmath.NewInt(100)))
	require.NoError(t, l.Mint("bob", sdkmath.NewInt(250)))
	require.NoError(t, l.Burn("alice", sdkmath.NewInt(40)))
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(10)))
	require.NoError(t, l.Burn("bob", sdkmath.NewInt(250)))

	sum := l.BalanceOf("alice").Add(l.BalanceOf("bob"))
	assert.True(t, sum.Equal(l.TotalShares()), "sum of balances %s != totalShares %s", sum, l.TotalShares())
	assert.True(t, l.TotalShares().Equal(sdkmath.NewInt(70)))
}

func TestBurn_FullBurnRemovesPosition(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(100)))
	require.Equal(t, 1, l.HolderCount())

	require.NoError(t, l.Burn("alice", sdkmath.NewInt(100)))
	assert.Equal(t, 0, l.HolderCount())
	assert.True(t, l.BalanceOf("alice").IsZero())
}

func TestBurn_InsufficientRejected(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(10)))

	err := l.Burn("alice", sdkmath.NewInt(11))
	require.ErrorIs(t, err, ErrInsufficientShares)
	// Rejection leaves the balance untouched.
	assert.True(t, l.BalanceOf("alice").Equal(sdkmath.NewInt(10)))
	assert.True(t, l.TotalShares().Equal(sdkmath.NewInt(10)))
}

func TestTransfer_PreservesTotal(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(100)))

	require.NoError(t, l.Transfer("alice", "bob", sdkmath.NewInt(60)))
	assert.True(t, l.BalanceOf("alice").Equal(sdkmath.NewInt(40)))
	assert.True(t, l.BalanceOf("bob").Equal(sdkmath.NewInt(60)))
	assert.True(t, l.TotalShares().Equal(sdkmath.NewInt(100)))

	err := l.Transfer("bob", "carol", sdkmath.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientShares)
}

func TestAllowance_Lifecycle(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("holder", sdkmath.NewInt(1000)))
	require.NoError(t, l.Approve("holder", "spender", sdkmath.NewInt(500)))

	require.NoError(t, l.CheckAllowance("holder", "spender", sdkmath.NewInt(500)))
	require.NoError(t, l.SpendAllowance("holder", "spender", sdkmath.NewInt(500)))

	remaining, unlimited := l.Allowance("holder", "spender")
	assert.False(t, unlimited)
	assert.True(t, remaining.IsZero())

	err := l.CheckAllowance("holder", "spender", sdkmath.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestAllowance_UnlimitedNeverDecrements(t *testing.T) {
	l := New()
	require.NoError(t, l.ApproveUnlimited("holder", "spender"))

	require.NoError(t, l.SpendAllowance("holder", "spender", sdkmath.NewInt(1_000_000)))
	_, unlimited := l.Allowance("holder", "spender")
	assert.True(t, unlimited)

	require.NoError(t, l.CheckAllowance("holder", "spender", sdkmath.NewInt(1_000_000)))
}

func TestAllowance_OwnerBypassesOwnAllowance(t *testing.T) {
	l := New()
	// An owner acting on their own position needs no allowance entry.
	require.NoError(t, l.CheckAllowance("holder", "holder", sdkmath.NewInt(100)))
}

func TestValidation(t *testing.T) {
	l := New()

	require.ErrorIs(t, l.Mint("", sdkmath.NewInt(1)), ErrInvalidHolder)
	require.ErrorIs(t, l.Mint("alice", sdkmath.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, l.Mint("alice", sdkmath.Int{}), ErrInvalidAmount)
	require.ErrorIs(t, l.Approve("alice", "", sdkmath.NewInt(1)), ErrInvalidHolder)
}
