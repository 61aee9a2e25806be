package uniswap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/tradesim/utils/testutils"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
)

var (
	weth = testutils.Addr(0x01)
	usdc = testutils.Addr(0x02)
	pair = testutils.Addr(0x99)
)

func newTestFactory(t *testing.T, pairAddr common.Address, reserve0, reserve1 *big.Int) *Factory {
	t.Helper()
	backend := testutils.NewBackend()

	backend.Handle(t, MainnetFactory, factoryABIJson, "getPair", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{pairAddr}, nil
	})
	backend.Handle(t, pair, pairABIJson, "getReserves", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{reserve0, reserve1, uint32(0)}, nil
	})
	backend.Handle(t, pair, pairABIJson, "token0", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{weth}, nil
	})
	backend.Handle(t, pair, pairABIJson, "token1", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{usdc}, nil
	})

	f, err := NewFactory(MainnetFactory, backend)
	require.NoError(t, err)
	return f
}

func TestPoolPrice(t *testing.T) {
	ctx := context.Background()
	decimals := testutils.Decimals{weth: 18, usdc: 6}

	// 100 WETH against 250,000 USDC
	reserveWETH := new(big.Int).Mul(big.NewInt(100), tmath.Pow10(18))
	reserveUSDC := new(big.Int).Mul(big.NewInt(250000), tmath.Pow10(6))

	tests := []struct {
		name string
		base common.Address
		want decimal.Decimal
	}{
		{name: "token0 base", base: weth, want: decimal.NewFromInt(2500)},
		{name: "token1 base", base: usdc, want: decimal.RequireFromString("0.0004")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFactory(t, pair, reserveWETH, reserveUSDC)
			price, err := f.PoolPrice(ctx, decimals, weth, usdc, tt.base)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(price), "got %s", price)
		})
	}

	t.Run("missing pair", func(t *testing.T) {
		f := newTestFactory(t, common.Address{}, reserveWETH, reserveUSDC)
		_, err := f.PoolPrice(ctx, decimals, weth, usdc, weth)
		assert.ErrorIs(t, err, ErrPairNotFound)
	})

	t.Run("base outside the pair", func(t *testing.T) {
		f := newTestFactory(t, pair, reserveWETH, reserveUSDC)
		_, err := f.PoolPrice(ctx, decimals, weth, usdc, testutils.Addr(0x03))
		assert.Error(t, err)
	})

	t.Run("empty pool", func(t *testing.T) {
		f := newTestFactory(t, pair, big.NewInt(0), reserveUSDC)
		_, err := f.PoolPrice(ctx, decimals, weth, usdc, weth)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient liquidity")
	})
}

func TestGetReserves(t *testing.T) {
	f := newTestFactory(t, pair, big.NewInt(11), big.NewInt(22))

	got, err := f.GetPair(context.Background(), weth, usdc)
	require.NoError(t, err)
	assert.Equal(t, pair, got)

	reserves, err := f.GetReserves(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(11), reserves.Reserve0)
	assert.Equal(t, big.NewInt(22), reserves.Reserve1)
	assert.Equal(t, weth, reserves.Token0)
	assert.Equal(t, usdc, reserves.Token1)
}
