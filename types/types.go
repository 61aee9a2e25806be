package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDValue is a fixed-point USD amount. Raw and Decimals always travel together.
type USDValue struct {
	Raw      *big.Int
	Decimals uint8
}

// Decimal returns the value as a decimal number
func (v USDValue) Decimal() decimal.Decimal {
	if v.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.Raw, -int32(v.Decimals))
}

// String renders the value at its own precision
func (v USDValue) String() string {
	return v.Decimal().String()
}

// SimulationResult is the outcome of one simulated round trip.
// ProfitUSD is nil when no USD price was available for the input token.
type SimulationResult struct {
	AmountIn        *big.Int
	TokenInDecimals uint8
	BuyOut          *big.Int
	SellOut         *big.Int
	GasBuy          uint64
	GasSell         uint64
	GasPrice        *big.Int
	GasCostWei      *big.Int
	GasCostInToken  *big.Int
	ProfitRaw       *big.Int
	ProfitUSD       *USDValue
}

// OptimizationPoint is one sweep sample
type OptimizationPoint struct {
	Size           float64
	ProfitTokenRaw *big.Int
	ProfitUSD      string
	USD            USDValue
}

// Profit returns the USD profit as a decimal for comparisons
func (p OptimizationPoint) Profit() decimal.Decimal {
	return p.USD.Decimal()
}

// Scenario is one slippage/gas combination. A nil GasGwei means live network gas.
type Scenario struct {
	SlippageBps uint32
	GasGwei     *float64
}

func (s Scenario) String() string {
	if s.GasGwei == nil {
		return fmt.Sprintf("slippage=%dbps gas=live", s.SlippageBps)
	}
	return fmt.Sprintf("slippage=%dbps gas=%sgwei", s.SlippageBps, decimal.NewFromFloat(*s.GasGwei).String())
}

// BreakEven marks the first negative to non-negative crossing of a sweep
type BreakEven struct {
	Scenario Scenario
	FromSize float64
	ToSize   float64
}

// BestResult is the point with the strictly greatest USD profit in a scenario
type BestResult struct {
	Scenario Scenario
	Point    OptimizationPoint
}

// ScenarioResult summarizes one scenario sweep
type ScenarioResult struct {
	Scenario  Scenario
	Points    []OptimizationPoint
	Best      *BestResult
	BreakEven *BreakEven
	Skipped   int
}

// IsViable reports whether the sweep crossed into profit
func (r ScenarioResult) IsViable() bool {
	return r.BreakEven != nil
}

// PeakProfitUSD returns the best point's USD profit, or "" when no point was priced
func (r ScenarioResult) PeakProfitUSD() string {
	if r.Best == nil {
		return ""
	}
	return r.Best.Point.ProfitUSD
}

// OptimalSize returns the best point's size, or 0 when no point was priced
func (r ScenarioResult) OptimalSize() float64 {
	if r.Best == nil {
		return 0
	}
	return r.Best.Point.Size
}

// Report is the aggregate output of one optimizer run
type Report struct {
	TokenIn    common.Address
	TokenOut   common.Address
	RouterBuy  common.Address
	RouterSell common.Address
	Scenarios  []ScenarioResult
	// Viability is the share of scenarios with a break-even
	Viability float64
	// PriceUnavailable is set when no point in any scenario could be priced in USD
	PriceUnavailable bool
}
