package oracle

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

	"github.com/michaelpento.lv/tradesim/utils/metrics"
	"github.com/michaelpento.lv/tradesim/utils/testutils"
)

var (
	feedToken  = testutils.Addr(0x10)
	feedAddr   = testutils.Addr(0x11)
	plainToken = testutils.Addr(0x20)
	stable     = testutils.Addr(0x30)
)

type fixture struct {
	backend *testutils.Backend
	router  *testutils.StubRouter
	oracle  *Oracle
	metrics *metrics.SweepMetrics
}

// newFixture wires a Chainlink tier over an in-memory feed and a DEX tier over a
// stub router paying 2.5 stable units per whole token
func newFixture(t *testing.T, answer func() (*big.Int, error)) *fixture {
	t.Helper()

	backend := testutils.NewBackend()
	backend.Handle(t, feedAddr, aggregatorABIJson, "decimals", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{uint8(8)}, nil
	})
	backend.Handle(t, feedAddr, aggregatorABIJson, "latestRoundData", func(args []interface{}) ([]interface{}, error) {
		a, err := answer()
		if err != nil {
			return nil, err
		}
		return []interface{}{big.NewInt(1), a, big.NewInt(0), big.NewInt(0), big.NewInt(1)}, nil
	})

	registry := NewFeedRegistry()
	registry.Register(feedToken, feedAddr)

	reader, err := NewAggregatorReader(backend)
	require.NoError(t, err)

	router := testutils.NewStubRouter("ref", func(amountIn *big.Int, path []common.Address) (*big.Int, error) {
		if path[1] != stable {
			return nil, errors.New("unexpected path")
		}
		return big.NewInt(2500000), nil
	}, 0)

	m := metrics.NewSweepMetrics(prometheus.NewRegistry(), "test")
	log := zaptest.NewLogger(t)
	decimals := testutils.Decimals{feedToken: 18, plainToken: 18}

	return &fixture{
		backend: backend,
		router:  router,
		metrics: m,
		oracle: New(log, m,
			NewChainlinkStrategy(registry, reader, log),
			NewDEXStrategy(router, decimals, stable, 6, log),
		),
	}
}

func TestOracleLookup(t *testing.T) {
	ctx := context.Background()
	ethUSD := big.NewInt(250000000000) // 2500 at 8 decimals

	t.Run("chainlink answers without touching the dex", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return ethUSD, nil })

		p, ok := f.oracle.Lookup(ctx, feedToken)
		require.True(t, ok)
		assert.Equal(t, TierChainlink, p.Source)
		assert.Equal(t, 0, ethUSD.Cmp(p.Raw))
		assert.Equal(t, uint8(8), p.Decimals)
		assert.Equal(t, "2500", p.String())
		assert.Equal(t, 0, f.router.QuoteCalls())
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OracleLookups.WithLabelValues(TierChainlink)))
	})

	t.Run("unregistered token uses one dex quote", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return ethUSD, nil })

		p, ok := f.oracle.Lookup(ctx, plainToken)
		require.True(t, ok)
		assert.Equal(t, TierDEX, p.Source)
		assert.Equal(t, 0, big.NewInt(2500000).Cmp(p.Raw))
		assert.Equal(t, uint8(6), p.Decimals)
		assert.Equal(t, "2.5", p.String())
		assert.Equal(t, 1, f.router.QuoteCalls())
		assert.Equal(t, 0, f.backend.Calls("latestRoundData"))
	})

	t.Run("failing feed falls through to the dex", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return nil, errors.New("execution reverted") })

		p, ok := f.oracle.Lookup(ctx, feedToken)
		require.True(t, ok)
		assert.Equal(t, TierDEX, p.Source)
		assert.Equal(t, 1, f.router.QuoteCalls())
	})

	t.Run("non-positive answer falls through to the dex", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return big.NewInt(-1), nil })

		p, ok := f.oracle.Lookup(ctx, feedToken)
		require.True(t, ok)
		assert.Equal(t, TierDEX, p.Source)
	})

	t.Run("no tier answers", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return ethUSD, nil })
		f.router.QuoteFn = nil

		_, ok := f.oracle.Lookup(ctx, plainToken)
		assert.False(t, ok)
		_, ok = f.oracle.ValueInUSD(ctx, plainToken)
		assert.False(t, ok)
		assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.OracleLookups.WithLabelValues(TierNone)))
	})

	t.Run("token without decimals has no dex price", func(t *testing.T) {
		f := newFixture(t, func() (*big.Int, error) { return ethUSD, nil })

		_, ok := f.oracle.Lookup(ctx, testutils.Addr(0x40))
		assert.False(t, ok)
		assert.Equal(t, 0, f.router.QuoteCalls())
	})
}

func TestDEXStrategyQuotesOneWholeToken(t *testing.T) {
	var seen *big.Int
	router := testutils.NewStubRouter("ref", func(amountIn *big.Int, path []common.Address) (*big.Int, error) {
		seen = amountIn
		return big.NewInt(1), nil
	}, 0)

	s := NewDEXStrategy(router, testutils.Decimals{plainToken: 8}, stable, 6, nil)
	_, ok := s.Price(context.Background(), plainToken)
	require.True(t, ok)
	assert.Equal(t, 0, big.NewInt(100000000).Cmp(seen))
}

func TestFeedRegistry(t *testing.T) {
	r := MainnetFeeds()
	assert.Equal(t, 21, r.Len())

	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	feed, ok := r.Lookup(weth)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419"), feed)

	_, ok = r.Lookup(testutils.Addr(0x01))
	assert.False(t, ok)

	override := testutils.Addr(0x77)
	r.Register(weth, override)
	feed, _ = r.Lookup(weth)
	assert.Equal(t, override, feed)
	assert.Equal(t, 21, r.Len())
}
