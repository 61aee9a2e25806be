package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/dex"
	"github.com/michaelpento.lv/tradesim/dex/uniswap"
	"github.com/michaelpento.lv/tradesim/gas"
	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
)

// ErrPriceUnavailable means no oracle tier could price the input token in USD
var ErrPriceUnavailable = errors.New("USD price unavailable")

const (
	DefaultFallbackGasUnits uint64 = 180000
	DefaultSwapDeadline            = 600 * time.Second
)

// DecimalsResolver resolves ERC-20 decimals
type DecimalsResolver interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// PriceOracle values one unit of a token in USD
type PriceOracle interface {
	ValueInUSD(ctx context.Context, token common.Address) (types.USDValue, bool)
}

// FeeSource reports the network's current fee data
type FeeSource interface {
	CurrentFeeData(ctx context.Context) (*gas.FeeData, error)
}

// Config holds the simulator's constants
type Config struct {
	FallbackGasUnits uint64
	FallbackGasPrice *big.Int
	SwapDeadline     time.Duration
	// Sender is the from address for gas estimation
	Sender common.Address
	// Native is the wrapped native token used to price gas in the input token
	Native common.Address
}

// DefaultSimConfig returns mainnet defaults
func DefaultSimConfig() Config {
	return Config{
		FallbackGasUnits: DefaultFallbackGasUnits,
		FallbackGasPrice: new(big.Int).Set(gas.DefaultFallbackGasPrice),
		SwapDeadline:     DefaultSwapDeadline,
		Native:           uniswap.WETHAddress,
	}
}

// Request describes one simulated round trip
type Request struct {
	Size       float64
	TokenIn    common.Address
	TokenOut   common.Address
	RouterBuy  dex.Router
	RouterSell dex.Router
	// SlippageBps haircuts each leg's quoted output
	SlippageBps uint32
	// GasGwei overrides the network gas price when set
	GasGwei *float64
}

// Simulator composes router quotes, gas estimates and a USD price into a net profit
type Simulator struct {
	decimals DecimalsResolver
	oracle   PriceOracle
	fees     FeeSource
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.SweepMetrics
	now      func() time.Time
}

// NewSimulator creates a new trade simulator
func NewSimulator(decimals DecimalsResolver, oracle PriceOracle, fees FeeSource, cfg Config, logger *zap.Logger, m *metrics.SweepMetrics) *Simulator {
	if cfg.FallbackGasUnits == 0 {
		cfg.FallbackGasUnits = DefaultFallbackGasUnits
	}
	if cfg.FallbackGasPrice == nil {
		cfg.FallbackGasPrice = new(big.Int).Set(gas.DefaultFallbackGasPrice)
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = DefaultSwapDeadline
	}
	if cfg.Native == (common.Address{}) {
		cfg.Native = uniswap.WETHAddress
	}

	return &Simulator{
		decimals: decimals,
		oracle:   oracle,
		fees:     fees,
		cfg:      cfg,
		logger:   utils.OrNop(logger),
		metrics:  m,
		now:      time.Now,
	}
}

// Simulate runs one buy-on-RouterBuy, sell-on-RouterSell round trip.
//
// Quote and decimals failures are returned as errors. Gas estimation and fee data
// failures fall back to fixed values. When the input token has no USD price the
// result carries raw figures only and the error wraps ErrPriceUnavailable.
func (s *Simulator) Simulate(ctx context.Context, req Request) (*types.SimulationResult, error) {
	if req.RouterBuy == nil || req.RouterSell == nil {
		return nil, fmt.Errorf("buy and sell routers are required")
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("trade size must be positive, got %v", req.Size)
	}

	decIn, err := s.decimals.Decimals(ctx, req.TokenIn)
	if err != nil {
		return nil, err
	}
	// tokenOut decimals are not needed for the arithmetic but an unresolvable
	// token is not simulatable
	if _, err := s.decimals.Decimals(ctx, req.TokenOut); err != nil {
		return nil, err
	}

	amountIn, err := tmath.ParseUnits(req.Size, decIn)
	if err != nil {
		return nil, err
	}
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("trade size %v is below the token's precision", req.Size)
	}

	buyPath := []common.Address{req.TokenIn, req.TokenOut}
	sellPath := []common.Address{req.TokenOut, req.TokenIn}

	quotedBuy, err := req.RouterBuy.Quote(ctx, amountIn, buyPath)
	if err != nil {
		return nil, fmt.Errorf("buy leg: %w", err)
	}
	buyOut := tmath.ApplyBps(quotedBuy, req.SlippageBps)
	if buyOut.Sign() <= 0 {
		return nil, fmt.Errorf("buy leg: %w: zero output for %s", dex.ErrQuoteFailed, amountIn)
	}

	quotedSell, err := req.RouterSell.Quote(ctx, buyOut, sellPath)
	if err != nil {
		return nil, fmt.Errorf("sell leg: %w", err)
	}
	sellOut := tmath.ApplyBps(quotedSell, req.SlippageBps)

	deadline := big.NewInt(s.now().Add(s.cfg.SwapDeadline).Unix())
	gasBuy := s.estimateLeg(ctx, req.RouterBuy, amountIn, buyPath, deadline)
	gasSell := s.estimateLeg(ctx, req.RouterSell, buyOut, sellPath, deadline)

	gasPrice, err := s.gasPrice(ctx, req.GasGwei)
	if err != nil {
		return nil, err
	}

	gasCostWei := gas.EstimateGasCost(gasBuy+gasSell, gasPrice)

	gasCostInToken, err := s.nativeToToken(ctx, req.RouterBuy, req.TokenIn, decIn, gasCostWei)
	if err != nil {
		return nil, err
	}

	profit := new(big.Int).Sub(sellOut, amountIn)
	profit.Sub(profit, gasCostInToken)

	res := &types.SimulationResult{
		AmountIn:        amountIn,
		TokenInDecimals: decIn,
		BuyOut:          buyOut,
		SellOut:         sellOut,
		GasBuy:          gasBuy,
		GasSell:         gasSell,
		GasPrice:        gasPrice,
		GasCostWei:      gasCostWei,
		GasCostInToken:  gasCostInToken,
		ProfitRaw:       profit,
	}

	price, ok := s.oracle.ValueInUSD(ctx, req.TokenIn)
	if !ok {
		return res, fmt.Errorf("%w for %s", ErrPriceUnavailable, req.TokenIn.Hex())
	}
	usd := ProfitToUSD(profit, decIn, price)
	res.ProfitUSD = &usd

	s.logger.Debug("Simulated trade",
		zap.Float64("size", req.Size),
		zap.Uint32("slippage_bps", req.SlippageBps),
		zap.String("amount_in", amountIn.String()),
		zap.String("sell_out", sellOut.String()),
		zap.Uint64("gas_units", gasBuy+gasSell),
		zap.String("gas_price", gasPrice.String()),
		zap.String("profit_raw", profit.String()),
		zap.String("profit_usd", usd.String()),
	)

	return res, nil
}

// estimateLeg builds the swap call with a zero output guard and estimates it.
// Any failure yields the fallback unit count.
func (s *Simulator) estimateLeg(ctx context.Context, router dex.Router, amountIn *big.Int, path []common.Address, deadline *big.Int) uint64 {
	call, err := router.BuildSwapCall(amountIn, big.NewInt(0), path, s.cfg.Sender, deadline)
	if err == nil {
		var units uint64
		units, err = router.EstimateGas(ctx, call, s.cfg.Sender)
		if err == nil && units > 0 {
			return units
		}
		if err == nil {
			err = fmt.Errorf("estimate returned zero gas")
		}
	}

	s.metrics.GasFallback()
	s.logger.Warn("Gas estimation failed, using fallback units",
		zap.String("router", router.GetName()),
		zap.Uint64("fallback_units", s.cfg.FallbackGasUnits),
		zap.Error(err),
	)
	return s.cfg.FallbackGasUnits
}

// gasPrice applies override > network gas price > maxFeePerGas > fallback
func (s *Simulator) gasPrice(ctx context.Context, gasGwei *float64) (*big.Int, error) {
	if gasGwei != nil {
		override, err := tmath.GweiToWei(*gasGwei)
		if err != nil {
			return nil, fmt.Errorf("invalid gas override: %w", err)
		}
		return override, nil
	}

	fd, err := s.fees.CurrentFeeData(ctx)
	if err != nil {
		s.logger.Warn("Fee data unavailable, using fallback gas price",
			zap.String("fallback_wei", s.cfg.FallbackGasPrice.String()),
			zap.Error(err),
		)
	}
	price, fellBack := gas.SelectGasPrice(fd, nil, s.cfg.FallbackGasPrice)
	if fellBack {
		s.metrics.GasPriceFallback()
	}
	return price, nil
}

// nativeToToken converts a wei amount into tokenIn raw units using the price of
// one whole native unit on router.
func (s *Simulator) nativeToToken(ctx context.Context, router dex.Router, tokenIn common.Address, decIn uint8, wei *big.Int) (*big.Int, error) {
	if tokenIn == s.cfg.Native {
		return new(big.Int).Set(wei), nil
	}
	if wei.Sign() == 0 {
		return new(big.Int), nil
	}

	oneNative := tmath.Pow10(18)
	perNative, err := router.Quote(ctx, oneNative, []common.Address{s.cfg.Native, tokenIn})
	if err != nil {
		return nil, fmt.Errorf("gas conversion: %w", err)
	}
	return tmath.MulDiv(wei, perNative, oneNative), nil
}

// ProfitToUSD converts a raw token profit into USD at the price's precision:
// profitRaw * price.Raw / 10^tokenDecimals.
func ProfitToUSD(profitRaw *big.Int, tokenDecimals uint8, price types.USDValue) types.USDValue {
	return types.USDValue{
		Raw:      tmath.MulDiv(profitRaw, price.Raw, tmath.Pow10(tokenDecimals)),
		Decimals: price.Decimals,
	}
}
