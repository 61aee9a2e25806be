package math

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% expressed in basis points
const BpsDenominator = 10000

var ErrInvalidAmount = errors.New("invalid amount")

// Pow10 returns 10^n as a new big.Int
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseUnits scales a human-readable amount into raw units.
// Digits beyond the token's precision are truncated.
func ParseUnits(amount float64, decimals uint8) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return decimal.NewFromFloat(amount).Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits renders a raw amount as a decimal string at the given precision
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return ToDecimal(raw, decimals).String()
}

// ToDecimal converts a raw amount into its decimal value
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// MulDiv returns x*y/z truncated toward zero
func MulDiv(x, y, z *big.Int) *big.Int {
	out := new(big.Int).Mul(x, y)
	return out.Quo(out, z)
}

// ApplyBps reduces amount by bps basis points: amount*(10000-bps)/10000.
func ApplyBps(amount *big.Int, bps uint32) *big.Int {
	if bps == 0 {
		return new(big.Int).Set(amount)
	}
	if bps >= BpsDenominator {
		return new(big.Int)
	}
	return MulDiv(amount, big.NewInt(int64(BpsDenominator-bps)), big.NewInt(BpsDenominator))
}

// GweiToWei converts a gwei amount into wei
func GweiToWei(gwei float64) (*big.Int, error) {
	if math.IsNaN(gwei) || math.IsInf(gwei, 0) || gwei < 0 {
		return nil, fmt.Errorf("%w: %v gwei", ErrInvalidAmount, gwei)
	}
	return decimal.NewFromFloat(gwei).Shift(9).BigInt(), nil
}
