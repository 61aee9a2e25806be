package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/chain"
	"github.com/michaelpento.lv/tradesim/config"
	"github.com/michaelpento.lv/tradesim/dex"
	"github.com/michaelpento.lv/tradesim/dex/uniswap"
	"github.com/michaelpento.lv/tradesim/gas"
	"github.com/michaelpento.lv/tradesim/oracle"
	"github.com/michaelpento.lv/tradesim/simulator"
	"github.com/michaelpento.lv/tradesim/token"
	"github.com/michaelpento.lv/tradesim/utils"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
)

// app holds the wired components for one command invocation
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	eth      *ethclient.Client
	client   *chain.Client
	tokens   *token.Resolver
	fees     *gas.Estimator
	oracle   *oracle.Oracle
	sim      *simulator.Simulator
	registry *prometheus.Registry
	metrics  *metrics.SweepMetrics
}

func newApp(ctx context.Context) (*app, error) {
	log := utils.GetLogger()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	client, eth, err := chain.Dial(ctx, cfg.RPCEndpoint, chain.Options{
		RequestsPerSecond: cfg.RPCRateLimit.RequestsPerSecond,
		BurstSize:         cfg.RPCRateLimit.BurstSize,
		WaitTimeout:       cfg.RPCRateLimit.WaitTimeout,
		CallTimeout:       cfg.Sweep.CallTimeout,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		eth:      eth,
		client:   client,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.NewSweepMetrics(a.registry, "tradesim")

	a.tokens, err = token.NewResolver(client, cfg.Cache.DecimalsSize, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.fees = gas.NewEstimator(client, log)

	a.oracle, err = a.newOracle()
	if err != nil {
		a.close()
		return nil, err
	}

	fallbackPrice, err := tmath.GweiToWei(cfg.Gas.FallbackGwei)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sim = simulator.NewSimulator(a.tokens, a.oracle, a.fees, simulator.Config{
		FallbackGasUnits: cfg.Gas.FallbackUnits,
		FallbackGasPrice: fallbackPrice,
		SwapDeadline:     cfg.Gas.SwapDeadline,
		Sender:           cfg.Gas.SenderAddress(),
		Native:           common.HexToAddress(cfg.Tokens["WETH"]),
	}, log, a.metrics)

	return a, nil
}

func (a *app) newOracle() (*oracle.Oracle, error) {
	registry := oracle.MainnetFeeds()
	for tok, feed := range a.cfg.Oracle.Feeds {
		registry.Register(common.HexToAddress(tok), common.HexToAddress(feed))
	}
	a.log.Debug("Chainlink feeds registered", zap.Int("feeds", registry.Len()))

	reader, err := oracle.NewAggregatorReader(a.client)
	if err != nil {
		return nil, err
	}
	reference, err := a.router(a.cfg.Oracle.ReferenceRouter)
	if err != nil {
		return nil, err
	}

	return oracle.New(a.log, a.metrics,
		oracle.NewChainlinkStrategy(registry, reader, a.log),
		oracle.NewDEXStrategy(reference, a.tokens,
			common.HexToAddress(a.cfg.Oracle.ReferenceStable), a.cfg.Oracle.StableDecimals, a.log),
	), nil
}

// router resolves a router symbol or address and binds it
func (a *app) router(input string) (dex.Router, error) {
	addr, err := config.ResolveAddress(a.cfg.Routers, input)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve router: %w", err)
	}

	r, err := uniswap.NewV2Router(config.SymbolFor(a.cfg.Routers, addr), addr, a.client)
	if err != nil {
		return nil, err
	}
	if a.cfg.Cache.QuoteSize == 0 {
		return r, nil
	}
	cached, err := dex.NewCachedRouter(r, a.cfg.Cache.QuoteSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// token resolves a token symbol or address
func (a *app) token(input string) (common.Address, error) {
	addr, err := config.ResolveAddress(a.cfg.Tokens, input)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve token: %w", err)
	}
	return addr, nil
}

func (a *app) tokenLabel(ctx context.Context, addr common.Address) string {
	return labelFor(ctx, a.cfg.Tokens, a.tokens, addr)
}

type symbolSource interface {
	Symbol(ctx context.Context, token common.Address) (string, error)
}

// labelFor names a token from the address book, then from its ERC-20 symbol,
// and finally by its hex address
func labelFor(ctx context.Context, book map[string]string, src symbolSource, addr common.Address) string {
	if label := config.SymbolFor(book, addr); label != addr.Hex() {
		return label
	}
	if symbol, err := src.Symbol(ctx, addr); err == nil && symbol != "" {
		return symbol
	}
	return addr.Hex()
}

func (a *app) close() {
	if a.eth != nil {
		a.eth.Close()
	}
}
