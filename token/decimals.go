package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/utils"
)

var ErrDecimals = errors.New("failed to resolve token decimals")

const erc20ABIJson = `[{
	"constant": true,
	"inputs": [],
	"name": "decimals",
	"outputs": [{"name": "", "type": "uint8"}],
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "symbol",
	"outputs": [{"name": "", "type": "string"}],
	"stateMutability": "view",
	"type": "function"
}]`

// Resolver reads ERC-20 metadata and caches decimals, which never change
type Resolver struct {
	backend  bind.ContractCaller
	erc20ABI abi.ABI
	cache    *lru.Cache
	logger   *zap.Logger
}

// NewResolver creates a resolver holding up to cacheSize decimals entries
func NewResolver(backend bind.ContractCaller, cacheSize int, logger *zap.Logger) (*Resolver, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create decimals cache: %w", err)
	}

	return &Resolver{
		backend:  backend,
		erc20ABI: parsedABI,
		cache:    cache,
		logger:   utils.OrNop(logger),
	}, nil
}

// Decimals returns the token's decimals exponent
func (r *Resolver) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if v, ok := r.cache.Get(token); ok {
		return v.(uint8), nil
	}

	var out []interface{}
	contract := bind.NewBoundContract(token, r.erc20ABI, r.backend, nil, nil)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDecimals, token.Hex(), err)
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: %s: unexpected type %T", ErrDecimals, token.Hex(), out[0])
	}

	r.cache.Add(token, decimals)
	r.logger.Debug("Resolved token decimals",
		zap.String("token", token.Hex()),
		zap.Uint8("decimals", decimals),
	)
	return decimals, nil
}

// Symbol returns the token's symbol
func (r *Resolver) Symbol(ctx context.Context, token common.Address) (string, error) {
	var out []interface{}
	contract := bind.NewBoundContract(token, r.erc20ABI, r.backend, nil, nil)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", fmt.Errorf("failed to get symbol of %s: %w", token.Hex(), err)
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("failed to parse symbol of %s", token.Hex())
	}
	return symbol, nil
}
