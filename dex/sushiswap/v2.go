package sushiswap

import (
	"github.com/ethereum/go-ethereum/common"
)

// Mainnet deployments. Sushiswap is a Uniswap V2 fork, so these bind with the
// uniswap package's router and factory clients.
var (
	MainnetFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	MainnetRouter  = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
)
