package oracle

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// mainnetFeeds maps lower-cased token addresses to Chainlink USD feeds
var mainnetFeeds = map[string]string{
	// WETH (ETH/USD)
	"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": "0x5f4ec3df9cbd43714fe2740f5e3616155c5b8419",
	// WBTC (BTC/USD)
	"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599": "0xf4030086522a5beea4988f8ca5b36dbc97bee88c",
	// USDC
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": "0x8fffffd4afb6115b954bd326cbe7b4ba576818f6",
	// USDT
	"0xdac17f958d2ee523a2206206994597c13d831ec7": "0x3e7d1eab13ad0104d2750b8863b489d65364e32d",
	// DAI
	"0x6b175474e89094c44da98b954eedeac495271d0f": "0xaed0c38402a5d19df6e4c03f4e2dced6e29c1ee9",
	// LINK
	"0x514910771af9ca656af840dff83e8264ecf986ca": "0x2c1d072e956affc0d435cb7ac38ef18d24d9127c",
	// UNI
	"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984": "0xd6aa3d7bd6a8f90b0745b3d435e2c5ea91238c8c",
	// AAVE
	"0x7fc66500c84a76ad7e9c93437bfc5ac33e2ddae9": "0x547a514d5e3769680ce22b2361c10ea13619e8a9",
	// COMP
	"0xc00e94cb662c3520282e6f5717214004a7f26888": "0xdbd020caef83efd542f4de03e3c5f8b84e5d9b03",
	// MKR
	"0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2": "0xec1d1b3b0c44d12f93c57d683f5bd7d728063d7e",
	// SNX
	"0xc011a73ee8576fb46f5e1c5751ca3b9fe0af2a6f": "0x79291a9d692df95334b1a0b3b4ae6bbca8c9045c",
	// CRV
	"0xd533a949740bb3306d119cc777fa900ba034cd52": "0xcd627aa160a6fa45eb793d19ef54f5062f20f33f",
	// YFI
	"0x0bc529c00c6401aef6d220be8c6ea1667f6ad93e": "0x7ba6a8abf0f1ad15ab4b6e5f0bb7f297cce7fb8f",
	// MATIC
	"0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0": "0xab594600376ec9fd91f8e885dadf0ce036862de0",
	// ARB
	"0x912ce59144191c1204e64559fe8253a0e49e6548": "0x7fca7afb2e71c6c3d04fce68ad39445fdcb0a0b8",
	// OP
	"0x4200000000000000000000000000000000000042": "0x0d79df66be487753b02c7d35a3c8a2a5298a6c2e",
	// BAL
	"0xba100000625a3754423978a60c9317c58a424e3d": "0x3ea86fd83f8d3818b48a7b0c71f84c928cd6e273",
	// 1INCH
	"0x111111111117dc0aa78b770fa6a738034120c302": "0xc929ad75b72593967de83e7f7cda0493458261d9",
	// SUSHI
	"0x6b3595068778dd592e39a122f4f5a5cf09c90fe2": "0xe572ce20c2f5b949fbb73b2a0aebecdacbbd8dc8",
	// ENS
	"0xc18360217d8f7ab5e7c516566761ea12ce7f9d72": "0x2c79a31c839a8ce8ab226a9a38eb39f5b7d87d7b",
	// LDO
	"0x5a98fcbea516cf06857215779fd812ca3bef1b32": "0x620cf5f2d0d614b58bafc6c999a07039bcb35edb",
}

// FeedRegistry maps tokens to their USD price feeds
type FeedRegistry struct {
	feeds map[string]common.Address
}

// NewFeedRegistry returns an empty registry
func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{feeds: make(map[string]common.Address)}
}

// MainnetFeeds returns the built-in mainnet registry
func MainnetFeeds() *FeedRegistry {
	r := NewFeedRegistry()
	for token, feed := range mainnetFeeds {
		r.feeds[token] = common.HexToAddress(feed)
	}
	return r
}

// Register adds or replaces the feed for token
func (r *FeedRegistry) Register(token, feed common.Address) {
	r.feeds[key(token)] = feed
}

// Lookup returns the feed registered for token
func (r *FeedRegistry) Lookup(token common.Address) (common.Address, bool) {
	feed, ok := r.feeds[key(token)]
	return feed, ok
}

// Len returns the number of registered feeds
func (r *FeedRegistry) Len() int {
	return len(r.feeds)
}

func key(token common.Address) string {
	return strings.ToLower(token.Hex())
}
