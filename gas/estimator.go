package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/utils"
)

// DefaultFallbackGasPrice is used when the network reports no fee data (20 gwei)
var DefaultFallbackGasPrice = big.NewInt(20_000_000_000)

// FeeBackend is the fee-related part of an Ethereum client
type FeeBackend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// FeeData is the network's current fee view. Any field may be nil.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Estimator provides gas price data
type Estimator struct {
	client FeeBackend
	logger *zap.Logger
}

// NewEstimator creates a new gas estimator
func NewEstimator(client FeeBackend, logger *zap.Logger) *Estimator {
	return &Estimator{
		client: client,
		logger: utils.OrNop(logger),
	}
}

// CurrentFeeData fetches the legacy gas price and, on EIP-1559 chains, derives
// maxFeePerGas = 2*baseFee + tip. It only fails when neither is available.
func (e *Estimator) CurrentFeeData(ctx context.Context) (*FeeData, error) {
	fd := &FeeData{}

	gasPrice, priceErr := e.client.SuggestGasPrice(ctx)
	if priceErr == nil {
		fd.GasPrice = gasPrice
	}

	maxFee, tip, feeErr := e.eip1559Fees(ctx)
	if feeErr == nil {
		fd.MaxFeePerGas = maxFee
		fd.MaxPriorityFeePerGas = tip
	}

	if fd.GasPrice == nil && fd.MaxFeePerGas == nil {
		return nil, fmt.Errorf("failed to get fee data: %w", errors.Join(priceErr, feeErr))
	}
	return fd, nil
}

func (e *Estimator) eip1559Fees(ctx context.Context) (*big.Int, *big.Int, error) {
	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, nil, fmt.Errorf("latest header has no base fee")
	}

	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get priority fee: %w", err)
	}

	maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	return maxFee, tip, nil
}

// SelectGasPrice applies the gas price precedence to already fetched fee data
func SelectGasPrice(fd *FeeData, override, fallback *big.Int) (*big.Int, bool) {
	switch {
	case override != nil:
		return new(big.Int).Set(override), false
	case fd != nil && fd.GasPrice != nil && fd.GasPrice.Sign() > 0:
		return new(big.Int).Set(fd.GasPrice), false
	case fd != nil && fd.MaxFeePerGas != nil && fd.MaxFeePerGas.Sign() > 0:
		return new(big.Int).Set(fd.MaxFeePerGas), false
	default:
		return new(big.Int).Set(fallback), true
	}
}

// EstimateGasCost returns gasUnits * gasPrice in wei
func EstimateGasCost(gasUnits uint64, gasPrice *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)
}
