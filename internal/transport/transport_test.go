package transport

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

func coin(denom string, amount int64) sdk.Coin {
	return sdk.Coin{Denom: denom, Amount: sdkmath.NewInt(amount)}
}

func TestNewMemoryTransportValidation(t *testing.T) {
	_, err := NewMemoryTransport("", "vault")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewMemoryTransport("uusdc", "")
	require.ErrorIs(t, err, ErrInvalidAccount)

	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	require.True(t, m.BalanceOf("vault").IsZero())
}

func TestMemoryTransportTransferFrom(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	m.Credit("alice", sdkmath.NewInt(1000))

	require.NoError(t, m.TransferFrom(ctx, "alice", coin("uusdc", 400)))

	require.Equal(t, sdkmath.NewInt(600), m.BalanceOf("alice"))
	require.Equal(t, sdkmath.NewInt(400), m.BalanceOf("vault"))
}

func TestMemoryTransportTransfer(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	m.Credit("vault", sdkmath.NewInt(500))

	require.NoError(t, m.Transfer(ctx, "bob", coin("uusdc", 200)))

	require.Equal(t, sdkmath.NewInt(300), m.BalanceOf("vault"))
	require.Equal(t, sdkmath.NewInt(200), m.BalanceOf("bob"))
}

func TestMemoryTransportInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	m.Credit("alice", sdkmath.NewInt(100))

	err = m.TransferFrom(ctx, "alice", coin("uusdc", 101))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moved on failure.
	require.Equal(t, sdkmath.NewInt(100), m.BalanceOf("alice"))
	require.True(t, m.BalanceOf("vault").IsZero())
}

func TestMemoryTransportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	m.Credit("vault", sdkmath.NewInt(100))

	require.ErrorIs(t, m.Transfer(ctx, "", coin("uusdc", 10)), ErrInvalidAccount)
	require.ErrorIs(t, m.Transfer(ctx, "bob", coin("uatom", 10)), ErrInvalidAmount)
	require.ErrorIs(t, m.Transfer(ctx, "bob", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(-1)}), ErrInvalidAmount)
}

func TestMemoryTransportForcedFailure(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)
	m.Credit("alice", sdkmath.NewInt(100))

	m.FailTransfer = true
	require.ErrorIs(t, m.TransferFrom(ctx, "alice", coin("uusdc", 10)), ErrTransferFailed)

	m.FailTransfer = false
	require.NoError(t, m.TransferFrom(ctx, "alice", coin("uusdc", 10)))
}

func TestMemoryTransportApprovals(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryTransport("uusdc", "vault")
	require.NoError(t, err)

	ok, unlimited := m.Approved("src-a")
	require.False(t, ok)

	require.NoError(t, m.Approve(ctx, "src-a", true))
	ok, unlimited = m.Approved("src-a")
	require.True(t, ok)
	require.True(t, unlimited)

	require.ErrorIs(t, m.Approve(ctx, "", false), ErrInvalidAccount)
}
