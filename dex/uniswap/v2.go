package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/tradesim/dex"
)

// Contract addresses
var (
	MainnetRouter  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	WETHAddress    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// Backend is what a V2 router client needs from the chain
type Backend interface {
	bind.ContractCaller
	ethereum.GasEstimator
}

// V2Router implements dex.Router against a Uniswap V2 compatible router contract
type V2Router struct {
	name      string
	router    common.Address
	backend   Backend
	contract  *bind.BoundContract
	routerABI abi.ABI
}

var _ dex.Router = (*V2Router)(nil)

// NewV2Router binds the router at address
func NewV2Router(name string, address common.Address, backend Backend) (*V2Router, error) {
	parsedABI, err := abi.JSON(strings.NewReader(routerABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &V2Router{
		name:      name,
		router:    address,
		backend:   backend,
		contract:  bind.NewBoundContract(address, parsedABI, backend, nil, nil),
		routerABI: parsedABI,
	}, nil
}

// GetName returns the exchange name
func (r *V2Router) GetName() string {
	return r.name
}

// GetRouterAddress returns the router contract address
func (r *V2Router) GetRouterAddress() common.Address {
	return r.router
}

// Quote calls getAmountsOut and returns the last amount
func (r *V2Router) Quote(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	if err := dex.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("%w: %w", dex.ErrQuoteFailed, err)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount in must be positive", dex.ErrQuoteFailed)
	}

	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s getAmountsOut: %w", dex.ErrQuoteFailed, r.name, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no amounts", dex.ErrQuoteFailed, r.name)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("%w: %s returned malformed amounts", dex.ErrQuoteFailed, r.name)
	}

	return amounts[len(amounts)-1], nil
}

// BuildSwapCall packs swapExactTokensForTokens
func (r *V2Router) BuildSwapCall(amountIn, minOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) (*dex.SwapCall, error) {
	data, err := r.routerABI.Pack("swapExactTokensForTokens", amountIn, minOut, path, recipient, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap call: %w", err)
	}

	return &dex.SwapCall{
		To:    r.router,
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}

// EstimateGas estimates the swap call from sender
func (r *V2Router) EstimateGas(ctx context.Context, call *dex.SwapCall, sender common.Address) (uint64, error) {
	to := call.To
	gas, err := r.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  sender,
		To:    &to,
		Value: call.Value,
		Data:  call.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas on %s: %w", r.name, err)
	}
	return gas, nil
}
