package dex

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrQuoteFailed = errors.New("router quote failed")
	ErrInvalidPath = errors.New("invalid path")
)

// Quoter prices a swap along a two-token path
type Quoter interface {
	// Quote returns the output amount of path[1] for amountIn of path[0]
	Quote(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error)
}

// Router is a V2-style swap router
type Router interface {
	Quoter
	RouterProvider

	// GetName returns the exchange name
	GetName() string

	// BuildSwapCall packs a swapExactTokensForTokens call without submitting it
	BuildSwapCall(amountIn, minOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) (*SwapCall, error)

	// EstimateGas estimates the gas units call would consume when sent by sender
	EstimateGas(ctx context.Context, call *SwapCall, sender common.Address) (uint64, error)
}

// RouterProvider defines an interface for exchanges that provide router contracts
type RouterProvider interface {
	GetRouterAddress() common.Address
}

// SwapCall is a transaction descriptor that is never signed or sent
type SwapCall struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Reserves represents token pair reserves
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
	Token0   common.Address
	Token1   common.Address
}

// ValidatePath checks that path is a direct two-token hop
func ValidatePath(path []common.Address) error {
	if len(path) != 2 {
		return ErrInvalidPath
	}
	if path[0] == path[1] {
		return ErrInvalidPath
	}
	return nil
}
