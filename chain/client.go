package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// Backend is the subset of an Ethereum client the engine needs
type Backend interface {
	bind.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.GasPricer1559
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Client wraps a Backend with a shared rate limiter and a per-call timeout
type Client struct {
	backend     Backend
	limiter     *rate.Limiter
	callTimeout time.Duration
	waitTimeout time.Duration
}

// Options configures a Client
type Options struct {
	RequestsPerSecond float64
	BurstSize         int
	WaitTimeout       time.Duration
	CallTimeout       time.Duration
}

// NewClient creates a rate-limited client around backend
func NewClient(backend Backend, opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		backend:     backend,
		limiter:     rate.NewLimiter(limit, burst),
		callTimeout: opts.CallTimeout,
		waitTimeout: opts.WaitTimeout,
	}
}

// Dial connects to rpcURL and wraps the connection
func Dial(ctx context.Context, rpcURL string, opts Options) (*Client, *ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	return NewClient(ec, opts), ec, nil
}

// acquire waits for a limiter token and returns the context for the call itself
func (c *Client) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	waitCtx := ctx
	if c.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.waitTimeout)
		defer cancel()
	}
	if err := c.limiter.Wait(waitCtx); err != nil {
		return nil, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if c.callTimeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		return callCtx, cancel, nil
	}
	return ctx, func() {}, nil
}

func (c *Client) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.backend.CodeAt(ctx, contract, blockNumber)
}

func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.backend.CallContract(ctx, call, blockNumber)
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	return c.backend.EstimateGas(ctx, call)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.backend.SuggestGasPrice(ctx)
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.backend.SuggestGasTipCap(ctx)
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	ctx, cancel, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.backend.HeaderByNumber(ctx, number)
}
