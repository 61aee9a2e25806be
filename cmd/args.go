package cmd

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/michaelpento.lv/tradesim/optimizer"
)

// validateSlippage converts the --slippage-bps values, rejecting a full haircut
func validateSlippage(bps []uint) ([]uint32, error) {
	var out []uint32
	for _, v := range bps {
		if v >= 10000 {
			return nil, fmt.Errorf("slippageBps must be below 10000, got %d", v)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// validateGas rejects negative or non-finite --gas-gwei values
func validateGas(gwei []float64) error {
	for _, v := range gwei {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("gasGwei must be non-negative numbers, got %v", v)
		}
	}
	return nil
}

// validateSweep checks the size range and caps its point count
func validateSweep(minSize, maxSize, stepSize float64, maxPoints int) error {
	count, err := optimizer.PointCount(minSize, maxSize, stepSize)
	if err != nil {
		return err
	}
	if count.GreaterThan(decimal.NewFromInt(int64(maxPoints))) {
		return fmt.Errorf("%w: %s sizes exceeds the limit of %d", optimizer.ErrInvalidRange, count.String(), maxPoints)
	}
	return nil
}

// validateTradeSize rejects non-positive or non-finite sizes
func validateTradeSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return fmt.Errorf("tradeSize must be a positive number")
	}
	return nil
}
