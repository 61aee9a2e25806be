package math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnits(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"TestPow10", testPow10},
		{"TestParseUnits", testParseUnits},
		{"TestParseUnitsTruncates", testParseUnitsTruncates},
		{"TestParseUnitsRejectsNaN", testParseUnitsRejectsNaN},
		{"TestFormatUnits", testFormatUnits},
		{"TestMulDiv", testMulDiv},
		{"TestApplyBps", testApplyBps},
		{"TestGweiToWei", testGweiToWei},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testPow10(t *testing.T) {
	assert.Equal(t, "1", Pow10(0).String())
	assert.Equal(t, "1000000", Pow10(6).String())
	assert.Equal(t, "1000000000000000000", Pow10(18).String())
}

func testParseUnits(t *testing.T) {
	raw, err := ParseUnits(1.5, 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", raw.String())

	raw, err = ParseUnits(100, 6)
	require.NoError(t, err)
	assert.Equal(t, "100000000", raw.String())
}

func testParseUnitsTruncates(t *testing.T) {
	raw, err := ParseUnits(0.1234567, 6)
	require.NoError(t, err)
	assert.Equal(t, "123456", raw.String())
}

func testParseUnitsRejectsNaN(t *testing.T) {
	_, err := ParseUnits(nan(), 18)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func testFormatUnits(t *testing.T) {
	assert.Equal(t, "2.5", FormatUnits(big.NewInt(2500000), 6))
	assert.Equal(t, "-0.000001", FormatUnits(big.NewInt(-1), 6))
	assert.Equal(t, "0", FormatUnits(nil, 6))
}

func testMulDiv(t *testing.T) {
	assert.Equal(t, "33", MulDiv(big.NewInt(10), big.NewInt(10), big.NewInt(3)).String())
	// truncation is toward zero for negative values
	assert.Equal(t, "-33", MulDiv(big.NewInt(-10), big.NewInt(10), big.NewInt(3)).String())
}

func testApplyBps(t *testing.T) {
	amount := big.NewInt(1000000)
	assert.Equal(t, "1000000", ApplyBps(amount, 0).String())
	assert.Equal(t, "995000", ApplyBps(amount, 50).String())
	assert.Equal(t, "0", ApplyBps(amount, 10000).String())
	assert.Equal(t, "1000000", amount.String(), "input must not be mutated")
}

func testGweiToWei(t *testing.T) {
	wei, err := GweiToWei(20)
	require.NoError(t, err)
	assert.Equal(t, "20000000000", wei.String())

	wei, err = GweiToWei(0.5)
	require.NoError(t, err)
	assert.Equal(t, "500000000", wei.String())

	_, err = GweiToWei(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
