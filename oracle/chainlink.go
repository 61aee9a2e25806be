package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/types"
	"github.com/michaelpento.lv/tradesim/utils"
)

const aggregatorABIJson = `[{
	"inputs": [],
	"name": "decimals",
	"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"inputs": [],
	"name": "latestRoundData",
	"outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	],
	"stateMutability": "view",
	"type": "function"
}]`

// FeedReader reads a price feed contract
type FeedReader interface {
	Decimals(ctx context.Context, feed common.Address) (uint8, error)
	LatestAnswer(ctx context.Context, feed common.Address) (*big.Int, error)
}

// AggregatorReader reads Chainlink AggregatorV3 contracts
type AggregatorReader struct {
	backend bind.ContractCaller
	feedABI abi.ABI
}

// NewAggregatorReader creates a reader over backend
func NewAggregatorReader(backend bind.ContractCaller) (*AggregatorReader, error) {
	parsedABI, err := abi.JSON(strings.NewReader(aggregatorABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	return &AggregatorReader{backend: backend, feedABI: parsedABI}, nil
}

// Decimals returns the feed's reporting decimals
func (a *AggregatorReader) Decimals(ctx context.Context, feed common.Address) (uint8, error) {
	var out []interface{}
	contract := bind.NewBoundContract(feed, a.feedABI, a.backend, nil, nil)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("failed to get feed decimals: %w", err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("failed to parse feed decimals")
	}
	return decimals, nil
}

// LatestAnswer returns the answer of the feed's latest round
func (a *AggregatorReader) LatestAnswer(ctx context.Context, feed common.Address) (*big.Int, error) {
	var out []interface{}
	contract := bind.NewBoundContract(feed, a.feedABI, a.backend, nil, nil)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "latestRoundData"); err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("failed to parse latest round")
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse answer")
	}
	return answer, nil
}

// ChainlinkStrategy prices tokens that have a registered feed
type ChainlinkStrategy struct {
	registry *FeedRegistry
	reader   FeedReader
	logger   *zap.Logger
}

// NewChainlinkStrategy creates the feed-backed pricing tier
func NewChainlinkStrategy(registry *FeedRegistry, reader FeedReader, logger *zap.Logger) *ChainlinkStrategy {
	return &ChainlinkStrategy{
		registry: registry,
		reader:   reader,
		logger:   utils.OrNop(logger),
	}
}

func (c *ChainlinkStrategy) Name() string {
	return TierChainlink
}

// Price returns the feed's latest answer at the feed's decimals.
// Unregistered tokens, failed calls and non-positive answers are absent.
func (c *ChainlinkStrategy) Price(ctx context.Context, token common.Address) (types.USDValue, bool) {
	feed, ok := c.registry.Lookup(token)
	if !ok {
		return types.USDValue{}, false
	}

	answer, err := c.reader.LatestAnswer(ctx, feed)
	if err != nil {
		c.logger.Warn("Chainlink price feed fetch failed",
			zap.String("token", token.Hex()),
			zap.String("feed", feed.Hex()),
			zap.Error(err),
		)
		return types.USDValue{}, false
	}
	if answer.Sign() <= 0 {
		c.logger.Warn("Chainlink feed returned a non-positive answer",
			zap.String("token", token.Hex()),
			zap.String("answer", answer.String()),
		)
		return types.USDValue{}, false
	}

	decimals, err := c.reader.Decimals(ctx, feed)
	if err != nil {
		c.logger.Warn("Chainlink feed decimals fetch failed",
			zap.String("token", token.Hex()),
			zap.String("feed", feed.Hex()),
			zap.Error(err),
		)
		return types.USDValue{}, false
	}

	return types.USDValue{Raw: answer, Decimals: decimals}, true
}
