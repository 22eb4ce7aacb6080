package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKIntToFloat64(t *testing.T) {
	// 1500000 base units at 6 decimals is 1.5 whole tokens.
	v, err := SDKIntToFloat64(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)

	v, err = SDKIntToFloat64(sdkmath.NewInt(42), 0)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, v, 1e-9)
}

func TestSDKIntToFloat64_Validation(t *testing.T) {
	_, err := SDKIntToFloat64(sdkmath.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = SDKIntToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = SDKIntToFloat64(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestParseSDKInt(t *testing.T) {
	v, err := ParseSDKInt("12345")
	require.NoError(t, err)
	assert.True(t, v.Equal(sdkmath.NewInt(12345)))

	_, err = ParseSDKInt("not-a-number")
	require.ErrorIs(t, err, ErrConversionFailed)

	_, err = ParseSDKInt("-5")
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestDecToFloat64(t *testing.T) {
	v, err := DecToFloat64(sdkmath.LegacyMustNewDecFromStr("1.25"))
	require.NoError(t, err)
	assert.InDelta(t, 1.25, v, 1e-9)

	_, err = DecToFloat64(sdkmath.LegacyDec{})
	require.ErrorIs(t, err, ErrAmountNil)
}
