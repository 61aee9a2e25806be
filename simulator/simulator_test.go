package simulator

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/tradesim/dex"
	"github.com/michaelpento.lv/tradesim/dex/uniswap"
	"github.com/michaelpento.lv/tradesim/gas"
	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
	"github.com/michaelpento.lv/tradesim/utils/testutils"
)

var (
	tokenA = testutils.Addr(0x0a) // 18 decimals, $2000
	tokenB = testutils.Addr(0x0b) // 6 decimals
	native = testutils.Addr(0xee)
)

type staticFees struct {
	fd  *gas.FeeData
	err error
}

func (s staticFees) CurrentFeeData(ctx context.Context) (*gas.FeeData, error) {
	return s.fd, s.err
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, s)
	return v
}

func floatPtr(f float64) *float64 {
	return &f
}

// buyQuote pays 2000 B per A and 2 A per native unit
func buyQuote(amountIn *big.Int, path []common.Address) (*big.Int, error) {
	switch {
	case path[0] == tokenA && path[1] == tokenB:
		out := new(big.Int).Mul(amountIn, big.NewInt(2000))
		return out.Quo(out, big.NewInt(1e12)), nil
	case path[0] == native && path[1] == tokenA:
		return new(big.Int).Mul(amountIn, big.NewInt(2)), nil
	}
	return nil, dex.ErrQuoteFailed
}

// sellQuote pays 1.01 A per 2000 B
func sellQuote(amountIn *big.Int, path []common.Address) (*big.Int, error) {
	out := new(big.Int).Mul(amountIn, big.NewInt(1e12))
	out.Mul(out, big.NewInt(101))
	return out.Quo(out, big.NewInt(200000)), nil
}

type harness struct {
	sim     *Simulator
	buy     *testutils.StubRouter
	sell    *testutils.StubRouter
	metrics *metrics.SweepMetrics
}

func newHarness(t *testing.T, prices testutils.Prices, fees FeeSource) *harness {
	t.Helper()
	m := metrics.NewSweepMetrics(prometheus.NewRegistry(), "test")
	decimals := testutils.Decimals{tokenA: 18, tokenB: 6, native: 18}
	cfg := DefaultSimConfig()
	cfg.Native = native

	return &harness{
		sim:     NewSimulator(decimals, prices, fees, cfg, zaptest.NewLogger(t), m),
		buy:     testutils.NewStubRouter("buy", buyQuote, 100000),
		sell:    testutils.NewStubRouter("sell", sellQuote, 80000),
		metrics: m,
	}
}

func (h *harness) request(size float64, bps uint32, gasGwei *float64) Request {
	return Request{
		Size:        size,
		TokenIn:     tokenA,
		TokenOut:    tokenB,
		RouterBuy:   h.buy,
		RouterSell:  h.sell,
		SlippageBps: bps,
		GasGwei:     gasGwei,
	}
}

var usd2000 = testutils.Prices{tokenA: {Raw: big.NewInt(200000000000), Decimals: 8}}

func TestSimulate(t *testing.T) {
	ctx := context.Background()

	t.Run("full pipeline", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		require.NoError(t, err)

		assert.Equal(t, 0, mustBig(t, "1000000000000000000").Cmp(res.AmountIn))
		assert.Equal(t, 0, mustBig(t, "2000000000").Cmp(res.BuyOut))
		assert.Equal(t, 0, mustBig(t, "1010000000000000000").Cmp(res.SellOut))
		assert.Equal(t, uint64(100000), res.GasBuy)
		assert.Equal(t, uint64(80000), res.GasSell)
		assert.Equal(t, 0, mustBig(t, "10000000000").Cmp(res.GasPrice))
		assert.Equal(t, 0, mustBig(t, "1800000000000000").Cmp(res.GasCostWei))
		assert.Equal(t, 0, mustBig(t, "3600000000000000").Cmp(res.GasCostInToken))
		assert.Equal(t, 0, mustBig(t, "6400000000000000").Cmp(res.ProfitRaw))

		require.NotNil(t, res.ProfitUSD)
		assert.Equal(t, uint8(8), res.ProfitUSD.Decimals)
		assert.Equal(t, "12.8", res.ProfitUSD.String())
	})

	t.Run("slippage haircuts both legs", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		res, err := h.sim.Simulate(ctx, h.request(1, 100, floatPtr(10)))
		require.NoError(t, err)

		assert.Equal(t, 0, mustBig(t, "1980000000").Cmp(res.BuyOut))
		assert.Equal(t, 0, mustBig(t, "989901000000000000").Cmp(res.SellOut))
		assert.True(t, res.ProfitRaw.Sign() < 0)
		assert.True(t, res.ProfitUSD.Decimal().IsNegative())
	})

	t.Run("gas estimate failure uses fallback units", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		h.buy.GasErr = errors.New("execution reverted: TRANSFER_FROM_FAILED")

		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		require.NoError(t, err)
		assert.Equal(t, DefaultFallbackGasUnits, res.GasBuy)
		assert.Equal(t, uint64(80000), res.GasSell)
		assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.GasFallbacks))
	})

	t.Run("zero gas estimate uses fallback units", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		h.sell.GasUnits = 0

		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		require.NoError(t, err)
		assert.Equal(t, DefaultFallbackGasUnits, res.GasSell)
	})

	t.Run("live gas price", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{fd: &gas.FeeData{GasPrice: big.NewInt(30e9), MaxFeePerGas: big.NewInt(50e9)}})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(30e9).Cmp(res.GasPrice))
	})

	t.Run("max fee when no legacy price", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{fd: &gas.FeeData{MaxFeePerGas: big.NewInt(50e9)}})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(50e9).Cmp(res.GasPrice))
	})

	t.Run("fee data failure uses fallback price", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{err: errors.New("rpc down")})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, gas.DefaultFallbackGasPrice.Cmp(res.GasPrice))
		assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.GasPriceFallbacks))
	})

	t.Run("override beats live price", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{fd: &gas.FeeData{GasPrice: big.NewInt(30e9)}})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(1.5)))
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(1500000000).Cmp(res.GasPrice))
	})

	t.Run("zero gas override costs nothing", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{fd: &gas.FeeData{GasPrice: big.NewInt(30e9)}})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(0)))
		require.NoError(t, err)
		assert.Equal(t, 0, res.GasCostWei.Sign())
		assert.Equal(t, 0, res.GasCostInToken.Sign())
		// buy leg only; no native conversion quote
		assert.Equal(t, 1, h.buy.QuoteCalls())
	})

	t.Run("native input needs no conversion", func(t *testing.T) {
		h := newHarness(t, testutils.Prices{native: {Raw: big.NewInt(2000e6), Decimals: 6}}, staticFees{})
		h.buy.QuoteFn = testutils.Ratio(1, 1)
		h.sell.QuoteFn = testutils.Ratio(1, 1)

		req := h.request(1, 0, floatPtr(10))
		req.TokenIn = native
		res, err := h.sim.Simulate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 0, res.GasCostWei.Cmp(res.GasCostInToken))
		assert.Equal(t, 1, h.buy.QuoteCalls())
		assert.Equal(t, 0, new(big.Int).Neg(res.GasCostWei).Cmp(res.ProfitRaw))
	})

	t.Run("missing price keeps raw figures", func(t *testing.T) {
		h := newHarness(t, testutils.Prices{}, staticFees{})
		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPriceUnavailable)
		require.NotNil(t, res)
		assert.Nil(t, res.ProfitUSD)
		assert.Equal(t, 0, mustBig(t, "6400000000000000").Cmp(res.ProfitRaw))
	})

	t.Run("quote failure is fatal", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		h.sell.QuoteFn = func(*big.Int, []common.Address) (*big.Int, error) {
			return nil, dex.ErrQuoteFailed
		}

		res, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		assert.Nil(t, res)
		assert.ErrorIs(t, err, dex.ErrQuoteFailed)
		assert.False(t, errors.Is(err, ErrPriceUnavailable))
	})

	t.Run("zero buy output is fatal", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		h.buy.QuoteFn = testutils.Ratio(0, 1)

		_, err := h.sim.Simulate(ctx, h.request(1, 0, floatPtr(10)))
		assert.ErrorIs(t, err, dex.ErrQuoteFailed)
	})

	t.Run("unknown decimals are fatal", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		req := h.request(1, 0, floatPtr(10))
		req.TokenOut = testutils.Addr(0x99)

		_, err := h.sim.Simulate(ctx, req)
		assert.Error(t, err)
		assert.Equal(t, 0, h.buy.QuoteCalls())
	})

	t.Run("invalid sizes", func(t *testing.T) {
		h := newHarness(t, usd2000, staticFees{})
		for _, size := range []float64{0, -1} {
			_, err := h.sim.Simulate(ctx, h.request(size, 0, nil))
			assert.Error(t, err)
		}

		req := h.request(1e-7, 0, nil)
		req.TokenIn, req.TokenOut = tokenB, tokenA
		_, err := h.sim.Simulate(ctx, req)
		assert.Error(t, err)
	})
}

func TestSimConfigDefaults(t *testing.T) {
	cfg := DefaultSimConfig()
	assert.Equal(t, uniswap.WETHAddress, cfg.Native)
	assert.Equal(t, DefaultFallbackGasUnits, cfg.FallbackGasUnits)

	sim := NewSimulator(testutils.Decimals{}, testutils.Prices{}, staticFees{}, Config{}, nil, nil)
	assert.Equal(t, uniswap.WETHAddress, sim.cfg.Native)
	assert.Equal(t, 0, gas.DefaultFallbackGasPrice.Cmp(sim.cfg.FallbackGasPrice))
}

func TestProfitToUSD(t *testing.T) {
	price := types.USDValue{Raw: big.NewInt(200000000000), Decimals: 8}

	tests := []struct {
		name   string
		profit *big.Int
		want   string
	}{
		{name: "gain", profit: big.NewInt(15e17), want: "3000"},
		{name: "loss", profit: big.NewInt(-15e17), want: "-3000"},
		{name: "dust truncates toward zero", profit: big.NewInt(-1), want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitToUSD(tt.profit, 18, price)
			assert.Equal(t, uint8(8), got.Decimals)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
