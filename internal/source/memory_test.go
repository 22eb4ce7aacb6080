package source

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

func TestNewMemorySourceValidation(t *testing.T) {
	_, err := NewMemorySource("", "uusdc")
	require.ErrorIs(t, err, ErrInvalidSourceID)

	_, err = NewMemorySource("src-a", "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)
	require.Equal(t, "src-a", s.ID())
}

func TestMemorySourceDepositWithdrawRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)

	require.NoError(t, s.Deposit(ctx, coin("uusdc", 500), "vault"))

	bal, err := s.AssetsOf(ctx, "vault")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), bal)

	require.NoError(t, s.Withdraw(ctx, coin("uusdc", 200), "alice", "vault"))

	bal, err = s.AssetsOf(ctx, "vault")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(300), bal)
}

func TestMemorySourceUnknownHolderIsZero(t *testing.T) {
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)

	bal, err := s.AssetsOf(context.Background(), "stranger")
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestMemorySourceRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)

	require.ErrorIs(t, s.Deposit(ctx, coin("uatom", 100), "vault"), ErrInvalidAmount)
	require.ErrorIs(t, s.Deposit(ctx, coin("uusdc", 100), ""), ErrInvalidHolder)
	require.ErrorIs(t, s.Deposit(ctx, sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(-1)}, "vault"), ErrInvalidAmount)

	_, err = s.AssetsOf(ctx, "")
	require.ErrorIs(t, err, ErrInvalidHolder)
}

func TestMemorySourceOverdraftFails(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)

	require.NoError(t, s.Deposit(ctx, coin("uusdc", 100), "vault"))

	err = s.Withdraw(ctx, coin("uusdc", 101), "alice", "vault")
	require.ErrorIs(t, err, ErrWithdrawFailed)

	// Balance untouched by the failed withdrawal.
	bal, err := s.AssetsOf(ctx, "vault")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), bal)
}

func TestMemorySourceForcedFailures(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)
	require.NoError(t, s.Deposit(ctx, coin("uusdc", 100), "vault"))

	s.FailQuery = true
	_, err = s.AssetsOf(ctx, "vault")
	require.ErrorIs(t, err, ErrQueryFailed)
	s.FailQuery = false

	s.FailDeposit = true
	require.ErrorIs(t, s.Deposit(ctx, coin("uusdc", 1), "vault"), ErrDepositFailed)
	s.FailDeposit = false

	s.FailWithdraw = true
	require.ErrorIs(t, s.Withdraw(ctx, coin("uusdc", 1), "alice", "vault"), ErrWithdrawFailed)
}

func TestMemorySourceDrift(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemorySource("src-a", "uusdc")
	require.NoError(t, err)
	require.NoError(t, s.Deposit(ctx, coin("uusdc", 100), "vault"))

	s.Drift("vault", sdkmath.NewInt(50))
	bal, err := s.AssetsOf(ctx, "vault")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(150), bal)

	// Negative drift floors at zero.
	s.Drift("vault", sdkmath.NewInt(-1000))
	bal, err = s.AssetsOf(ctx, "vault")
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}
