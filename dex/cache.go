package dex

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// CachedRouter memoizes quotes of an underlying router for the lifetime of a run
type CachedRouter struct {
	Router
	cache *lru.Cache
}

// NewCachedRouter wraps router with an LRU quote cache holding up to size entries
func NewCachedRouter(router Router, size int) (*CachedRouter, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}
	return &CachedRouter{Router: router, cache: cache}, nil
}

// Quote returns a cached quote when the same amount and path were seen before.
// Failed quotes are not cached.
func (c *CachedRouter) Quote(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	key := quoteKey(c.GetRouterAddress(), amountIn, path)
	if v, ok := c.cache.Get(key); ok {
		return new(big.Int).Set(v.(*big.Int)), nil
	}

	out, err := c.Router.Quote(ctx, amountIn, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, new(big.Int).Set(out))
	return out, nil
}

func quoteKey(router common.Address, amountIn *big.Int, path []common.Address) uint64 {
	d := xxhash.New()
	_, _ = d.Write(router.Bytes())

	amount := amountIn.Bytes()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(amount)))
	_, _ = d.Write(n[:])
	_, _ = d.Write(amount)

	for _, p := range path {
		_, _ = d.Write(p.Bytes())
	}
	return d.Sum64()
}
