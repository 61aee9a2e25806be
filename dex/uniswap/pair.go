package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/michaelpento.lv/tradesim/dex"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
)

var ErrPairNotFound = errors.New("pair does not exist")

// DecimalsResolver resolves ERC-20 decimals
type DecimalsResolver interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Factory reads pairs from a V2 factory
type Factory struct {
	address  common.Address
	backend  bind.ContractCaller
	contract *bind.BoundContract
	pairABI  abi.ABI
}

// NewFactory binds the factory at address
func NewFactory(address common.Address, backend bind.ContractCaller) (*Factory, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(pairABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	return &Factory{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, factoryABI, backend, nil, nil),
		pairABI:  pairABI,
	}, nil
}

// GetPair returns the pair address for two tokens
func (f *Factory) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	var out []interface{}
	if err := f.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getPair", tokenA, tokenB); err != nil {
		return common.Address{}, fmt.Errorf("failed to get pair: %w", err)
	}
	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("failed to parse pair address")
	}
	if pair == (common.Address{}) {
		return common.Address{}, ErrPairNotFound
	}
	return pair, nil
}

// GetReserves reads token0, token1 and the reserves of pair
func (f *Factory) GetReserves(ctx context.Context, pair common.Address) (*dex.Reserves, error) {
	contract := bind.NewBoundContract(pair, f.pairABI, f.backend, nil, nil)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := contract.Call(opts, &out, "getReserves"); err != nil {
		return nil, fmt.Errorf("failed to get reserves: %w", err)
	}
	reserve0, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse reserve0")
	}
	reserve1, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse reserve1")
	}

	token0, err := callAddress(contract, opts, "token0")
	if err != nil {
		return nil, err
	}
	token1, err := callAddress(contract, opts, "token1")
	if err != nil {
		return nil, err
	}

	return &dex.Reserves{
		Reserve0: reserve0,
		Reserve1: reserve1,
		Token0:   token0,
		Token1:   token1,
	}, nil
}

func callAddress(contract *bind.BoundContract, opts *bind.CallOpts, method string) (common.Address, error) {
	var out []interface{}
	if err := contract.Call(opts, &out, method); err != nil {
		return common.Address{}, fmt.Errorf("failed to call %s: %w", method, err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("failed to parse %s", method)
	}
	return addr, nil
}

// PoolPrice returns the spot price of one unit of base in the pair's other token,
// from reserves scaled by each token's decimals.
func (f *Factory) PoolPrice(ctx context.Context, decimals DecimalsResolver, tokenA, tokenB, base common.Address) (decimal.Decimal, error) {
	if base != tokenA && base != tokenB {
		return decimal.Zero, fmt.Errorf("base token %s is not part of the pair", base.Hex())
	}

	pair, err := f.GetPair(ctx, tokenA, tokenB)
	if err != nil {
		return decimal.Zero, err
	}
	reserves, err := f.GetReserves(ctx, pair)
	if err != nil {
		return decimal.Zero, err
	}

	dec0, err := decimals.Decimals(ctx, reserves.Token0)
	if err != nil {
		return decimal.Zero, err
	}
	dec1, err := decimals.Decimals(ctx, reserves.Token1)
	if err != nil {
		return decimal.Zero, err
	}

	r0 := tmath.ToDecimal(reserves.Reserve0, dec0)
	r1 := tmath.ToDecimal(reserves.Reserve1, dec1)

	baseReserve, otherReserve := r0, r1
	if reserves.Token0 != base {
		baseReserve, otherReserve = r1, r0
	}
	if baseReserve.IsZero() {
		return decimal.Zero, fmt.Errorf("insufficient liquidity")
	}

	return otherReserve.DivRound(baseReserve, 18), nil
}
