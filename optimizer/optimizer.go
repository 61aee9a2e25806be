package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelpento.lv/tradesim/dex"
	"github.com/michaelpento.lv/tradesim/simulator"
	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
)

var ErrInvalidRange = errors.New("invalid size range")

// Simulator runs one trade simulation
type Simulator interface {
	Simulate(ctx context.Context, req simulator.Request) (*types.SimulationResult, error)
}

// Params describes one optimizer run
type Params struct {
	TokenIn    common.Address
	TokenOut   common.Address
	RouterBuy  dex.Router
	RouterSell dex.Router
	MinSize    float64
	MaxSize    float64
	StepSize   float64
	// MaxPoints caps the sizes per scenario, 0 for no cap
	MaxPoints int
	// Empty axes default to [0] bps and live network gas
	SlippageBps []uint32
	GasGwei     []float64
}

// Optimizer sweeps trade sizes across slippage/gas scenarios
type Optimizer struct {
	sim     Simulator
	workers int
	logger  *zap.Logger
	metrics *metrics.SweepMetrics
}

// New creates an optimizer running up to workers simulations at once
func New(sim Simulator, workers int, logger *zap.Logger, m *metrics.SweepMetrics) *Optimizer {
	if workers <= 0 {
		workers = 1
	}
	return &Optimizer{
		sim:     sim,
		workers: workers,
		logger:  utils.OrNop(logger),
		metrics: m,
	}
}

type slot struct {
	point   *types.OptimizationPoint
	skipped bool
}

// Optimize runs the full scenario x size grid. Points without a USD price are
// skipped; any other simulation error aborts the run.
func (o *Optimizer) Optimize(ctx context.Context, p Params) (*types.Report, error) {
	sizes, err := Sizes(p.MinSize, p.MaxSize, p.StepSize, p.MaxPoints)
	if err != nil {
		return nil, err
	}
	scenarios, err := Scenarios(p.SlippageBps, p.GasGwei)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Starting trade size sweep",
		zap.String("token_in", p.TokenIn.Hex()),
		zap.String("token_out", p.TokenOut.Hex()),
		zap.Int("sizes", len(sizes)),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("workers", o.workers),
	)

	slots := make([][]slot, len(scenarios))
	for i := range slots {
		slots[i] = make([]slot, len(sizes))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for si, sc := range scenarios {
		si, sc := si, sc
		for zi, size := range sizes {
			zi, size := zi, size
			g.Go(func() error {
				started := time.Now()
				res, err := o.sim.Simulate(gctx, simulator.Request{
					Size:        size,
					TokenIn:     p.TokenIn,
					TokenOut:    p.TokenOut,
					RouterBuy:   p.RouterBuy,
					RouterSell:  p.RouterSell,
					SlippageBps: sc.SlippageBps,
					GasGwei:     sc.GasGwei,
				})
				switch {
				case errors.Is(err, simulator.ErrPriceUnavailable):
					o.metrics.ObserveSimulation(metrics.OutcomeSkipped, time.Since(started))
					o.logger.Warn("Skipping point without USD price",
						zap.Float64("size", size),
						zap.String("scenario", sc.String()),
					)
					slots[si][zi] = slot{skipped: true}
					return nil
				case err != nil:
					o.metrics.ObserveSimulation(metrics.OutcomeFailed, time.Since(started))
					return fmt.Errorf("simulation failed at size %v (%s): %w", size, sc, err)
				case res.ProfitUSD == nil:
					o.metrics.ObserveSimulation(metrics.OutcomeSkipped, time.Since(started))
					slots[si][zi] = slot{skipped: true}
					return nil
				}

				o.metrics.ObserveSimulation(metrics.OutcomeOK, time.Since(started))
				slots[si][zi] = slot{point: &types.OptimizationPoint{
					Size:           size,
					ProfitTokenRaw: res.ProfitRaw,
					ProfitUSD:      res.ProfitUSD.String(),
					USD:            *res.ProfitUSD,
				}}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &types.Report{
		TokenIn:          p.TokenIn,
		TokenOut:         p.TokenOut,
		PriceUnavailable: true,
	}
	if p.RouterBuy != nil {
		report.RouterBuy = p.RouterBuy.GetRouterAddress()
	}
	if p.RouterSell != nil {
		report.RouterSell = p.RouterSell.GetRouterAddress()
	}

	for si, sc := range scenarios {
		result := summarize(sc, slots[si])
		if len(result.Points) > 0 {
			report.PriceUnavailable = false
		}
		if result.Best != nil {
			f, _ := result.Best.Point.Profit().Float64()
			o.metrics.SetBestProfit(sc.String(), f)
		}
		report.Scenarios = append(report.Scenarios, result)
	}
	report.Viability = Viability(report.Scenarios)

	o.logger.Info("Trade size sweep finished",
		zap.Float64("viability", report.Viability),
		zap.Bool("price_unavailable", report.PriceUnavailable),
	)
	return report, nil
}

func summarize(sc types.Scenario, slots []slot) types.ScenarioResult {
	result := types.ScenarioResult{Scenario: sc}
	for _, s := range slots {
		if s.skipped || s.point == nil {
			result.Skipped++
			continue
		}
		result.Points = append(result.Points, *s.point)
	}

	if best, ok := BestPoint(result.Points); ok {
		result.Best = &types.BestResult{Scenario: sc, Point: best}
	}
	if from, to, ok := FindBreakEven(result.Points); ok {
		result.BreakEven = &types.BreakEven{Scenario: sc, FromSize: from, ToSize: to}
	}
	return result
}

// PointCount returns how many sizes the range min..max by step holds
func PointCount(minSize, maxSize, stepSize float64) (decimal.Decimal, error) {
	for _, v := range []float64{minSize, maxSize, stepSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("%w: sizes must be finite", ErrInvalidRange)
		}
	}
	if minSize <= 0 || maxSize <= 0 || stepSize <= 0 {
		return decimal.Zero, fmt.Errorf("%w: minSize, maxSize and stepSize must be positive", ErrInvalidRange)
	}
	if minSize >= maxSize {
		return decimal.Zero, fmt.Errorf("%w: minSize must be < maxSize", ErrInvalidRange)
	}

	lo := decimal.NewFromFloat(minSize)
	hi := decimal.NewFromFloat(maxSize)
	step := decimal.NewFromFloat(stepSize)
	return hi.Sub(lo).Div(step).Floor().Add(decimal.NewFromInt(1)), nil
}

// Sizes returns minSize, minSize+step, ... up to and including maxSize. Sizes are
// computed as min + i*step in decimal arithmetic so they do not drift. A positive
// maxPoints rejects ranges holding more sizes than that.
func Sizes(minSize, maxSize, stepSize float64, maxPoints int) ([]float64, error) {
	count, err := PointCount(minSize, maxSize, stepSize)
	if err != nil {
		return nil, err
	}

	capacity := 0
	if maxPoints > 0 {
		if count.GreaterThan(decimal.NewFromInt(int64(maxPoints))) {
			return nil, fmt.Errorf("%w: %s points exceeds the limit of %d", ErrInvalidRange, count.String(), maxPoints)
		}
		capacity = int(count.IntPart())
	}

	lo := decimal.NewFromFloat(minSize)
	hi := decimal.NewFromFloat(maxSize)
	step := decimal.NewFromFloat(stepSize)

	sizes := make([]float64, 0, capacity)
	for i := int64(0); ; i++ {
		s := lo.Add(step.Mul(decimal.NewFromInt(i)))
		if s.GreaterThan(hi) {
			break
		}
		f, _ := s.Float64()
		sizes = append(sizes, f)
	}
	return sizes, nil
}

// Scenarios returns the cross product of the slippage and gas axes, slippage outer
func Scenarios(slippageBps []uint32, gasGwei []float64) ([]types.Scenario, error) {
	if len(slippageBps) == 0 {
		slippageBps = []uint32{0}
	}

	var gasAxis []*float64
	if len(gasGwei) == 0 {
		gasAxis = []*float64{nil}
	}
	for _, g := range gasGwei {
		g := g
		if math.IsNaN(g) || math.IsInf(g, 0) || g < 0 {
			return nil, fmt.Errorf("gas scenarios must be non-negative, got %v", g)
		}
		gasAxis = append(gasAxis, &g)
	}

	scenarios := make([]types.Scenario, 0, len(slippageBps)*len(gasAxis))
	for _, bps := range slippageBps {
		if bps >= 10000 {
			return nil, fmt.Errorf("slippage scenarios must be below 10000 bps, got %d", bps)
		}
		for _, g := range gasAxis {
			scenarios = append(scenarios, types.Scenario{SlippageBps: bps, GasGwei: g})
		}
	}
	return scenarios, nil
}

// BestPoint returns the point with the strictly greatest USD profit. Ties keep
// the earlier, smaller-size point.
func BestPoint(points []types.OptimizationPoint) (types.OptimizationPoint, bool) {
	if len(points) == 0 {
		return types.OptimizationPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Profit().GreaterThan(best.Profit()) {
			best = p
		}
	}
	return best, true
}

// FindBreakEven returns the sizes of the first adjacent pair where profit goes
// from negative to non-negative.
func FindBreakEven(points []types.OptimizationPoint) (from, to float64, ok bool) {
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1].Profit(), points[i].Profit()
		if prev.IsNegative() && !curr.IsNegative() {
			return points[i-1].Size, points[i].Size, true
		}
	}
	return 0, 0, false
}

// Viability is the share of scenarios that reached a break-even
func Viability(results []types.ScenarioResult) float64 {
	if len(results) == 0 {
		return 0
	}
	viable := 0
	for _, r := range results {
		if r.IsViable() {
			viable++
		}
	}
	return float64(viable) / float64(len(results))
}
