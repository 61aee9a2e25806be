package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
)

// Pricing tiers
const (
	TierChainlink = "chainlink"
	TierDEX       = "dex"
	TierNone      = "none"
)

// Strategy is one pricing tier. Price returns false when the tier cannot price token.
type Strategy interface {
	Name() string
	Price(ctx context.Context, token common.Address) (types.USDValue, bool)
}

// Price is a USD value and the tier that produced it
type Price struct {
	types.USDValue
	Source string
}

// Oracle tries its strategies in order and returns the first price found
type Oracle struct {
	strategies []Strategy
	logger     *zap.Logger
	metrics    *metrics.SweepMetrics
}

// New creates an oracle over strategies, highest priority first
func New(logger *zap.Logger, m *metrics.SweepMetrics, strategies ...Strategy) *Oracle {
	return &Oracle{
		strategies: strategies,
		logger:     utils.OrNop(logger),
		metrics:    m,
	}
}

// Lookup returns the first available price for token
func (o *Oracle) Lookup(ctx context.Context, token common.Address) (Price, bool) {
	for _, s := range o.strategies {
		if v, ok := s.Price(ctx, token); ok {
			o.metrics.OracleLookup(s.Name())
			o.logger.Debug("Resolved USD price",
				zap.String("token", token.Hex()),
				zap.String("tier", s.Name()),
				zap.String("usd", v.String()),
			)
			return Price{USDValue: v, Source: s.Name()}, true
		}
	}

	o.metrics.OracleLookup(TierNone)
	o.logger.Warn("No USD price available", zap.String("token", token.Hex()))
	return Price{}, false
}

// ValueInUSD returns the USD value of one unit of token
func (o *Oracle) ValueInUSD(ctx context.Context, token common.Address) (types.USDValue, bool) {
	p, ok := o.Lookup(ctx, token)
	if !ok {
		return types.USDValue{}, false
	}
	return p.USDValue, true
}
