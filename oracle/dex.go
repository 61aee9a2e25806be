package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/dex"
	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
)

// DecimalsResolver resolves ERC-20 decimals
type DecimalsResolver interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// DEXStrategy prices a token by quoting one whole unit into a reference stablecoin
type DEXStrategy struct {
	quoter         dex.Quoter
	decimals       DecimalsResolver
	stable         common.Address
	stableDecimals uint8
	logger         *zap.Logger
}

// NewDEXStrategy creates the quote-backed pricing tier. stableDecimals is fixed
// by the reference stablecoin and never queried.
func NewDEXStrategy(quoter dex.Quoter, decimals DecimalsResolver, stable common.Address, stableDecimals uint8, logger *zap.Logger) *DEXStrategy {
	return &DEXStrategy{
		quoter:         quoter,
		decimals:       decimals,
		stable:         stable,
		stableDecimals: stableDecimals,
		logger:         utils.OrNop(logger),
	}
}

func (d *DEXStrategy) Name() string {
	return TierDEX
}

// Price quotes 10^decimals(token) of token into the stablecoin
func (d *DEXStrategy) Price(ctx context.Context, token common.Address) (types.USDValue, bool) {
	decimals, err := d.decimals.Decimals(ctx, token)
	if err != nil {
		d.logger.Warn("DEX-derived USD price unavailable",
			zap.String("token", token.Hex()),
			zap.Error(err),
		)
		return types.USDValue{}, false
	}

	out, err := d.quoter.Quote(ctx, tmath.Pow10(decimals), []common.Address{token, d.stable})
	if err != nil {
		d.logger.Warn("DEX-derived USD price unavailable",
			zap.String("token", token.Hex()),
			zap.Error(err),
		)
		return types.USDValue{}, false
	}

	return types.USDValue{Raw: out, Decimals: d.stableDecimals}, true
}
