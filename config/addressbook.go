package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/michaelpento.lv/tradesim/dex/sushiswap"
	"github.com/michaelpento.lv/tradesim/dex/uniswap"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// Mainnet address book
var (
	DefaultTokens = map[string]string{
		"WETH": uniswap.WETHAddress.Hex(),
		"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"WBTC": "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
		"LINK": "0x514910771AF9Ca656af840dff83E8264EcF986CA",
		"UNI":  "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		"AAVE": "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9",
		"MKR":  "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2",
		"CRV":  "0xD533a949740bb3306d119CC777fa900bA034cd52",
	}

	DefaultRouters = map[string]string{
		"UNISWAP":   uniswap.MainnetRouter.Hex(),
		"SUSHISWAP": sushiswap.MainnetRouter.Hex(),
	}

	DefaultFactories = map[string]string{
		"UNISWAP":   uniswap.MainnetFactory.Hex(),
		"SUSHISWAP": sushiswap.MainnetFactory.Hex(),
	}
)

// ResolveAddress returns input when it is a hex address, otherwise looks up
// its upper-cased form in book.
func ResolveAddress(book map[string]string, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("missing address or symbol")
	}
	if common.IsHexAddress(input) {
		return common.HexToAddress(input), nil
	}

	resolved, ok := book[strings.ToUpper(input)]
	if !ok || !common.IsHexAddress(resolved) {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, input)
	}
	return common.HexToAddress(resolved), nil
}

// SymbolFor is the reverse lookup of ResolveAddress. It returns the hex address
// when the book has no entry.
func SymbolFor(book map[string]string, addr common.Address) string {
	for symbol, hex := range book {
		if common.IsHexAddress(hex) && common.HexToAddress(hex) == addr {
			return symbol
		}
	}
	return addr.Hex()
}
