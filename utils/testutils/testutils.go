package testutils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/tradesim/dex"
	simtypes "github.com/michaelpento.lv/tradesim/types"
)

// Handler serves one contract method. args are the unpacked inputs and the
// returned values are packed as the method outputs.
type Handler func(args []interface{}) ([]interface{}, error)

type mockContract struct {
	abi      abi.ABI
	handlers map[string]Handler
}

// Backend is an in-memory chain that dispatches eth_call by method selector
type Backend struct {
	mu        sync.Mutex
	contracts map[common.Address]*mockContract
	calls     map[string]int

	GasUnits     uint64
	EstimateErr  error
	LastEstimate ethereum.CallMsg

	GasPrice    *big.Int
	GasPriceErr error
	TipCap      *big.Int
	TipCapErr   error
	Header      *types.Header
	HeaderErr   error
}

// NewBackend returns an empty backend
func NewBackend() *Backend {
	return &Backend{
		contracts: make(map[common.Address]*mockContract),
		calls:     make(map[string]int),
	}
}

// Handle registers h for method on the contract at addr, described by abiJSON
func (b *Backend) Handle(t testing.TB, addr common.Address, abiJSON, method string, h Handler) {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.contracts[addr]
	if !ok {
		parsed, err := abi.JSON(strings.NewReader(abiJSON))
		require.NoError(t, err)
		c = &mockContract{abi: parsed, handlers: make(map[string]Handler)}
		b.contracts[addr] = c
	}
	_, ok = c.abi.Methods[method]
	require.True(t, ok, "unknown method %s", method)
	c.handlers[method] = h
}

// Calls returns how many times method was called across all contracts
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.contracts[contract]; ok {
		return []byte{0x60}, nil
	}
	return nil, nil
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.To == nil || len(call.Data) < 4 {
		return nil, errors.New("malformed call")
	}

	b.mu.Lock()
	c, ok := b.contracts[*call.To]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("no contract at %s", call.To.Hex())
	}
	method, err := c.abi.MethodById(call.Data[:4])
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	h, ok := c.handlers[method.Name]
	b.calls[method.Name]++
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("execution reverted: %s not handled", method.Name)
	}

	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	outs, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(outs...)
}

func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastEstimate = call
	if b.EstimateErr != nil {
		return 0, b.EstimateErr
	}
	return b.GasUnits, nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if b.GasPriceErr != nil {
		return nil, b.GasPriceErr
	}
	if b.GasPrice == nil {
		return nil, errors.New("gas price not set")
	}
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if b.TipCapErr != nil {
		return nil, b.TipCapErr
	}
	if b.TipCap == nil {
		return nil, errors.New("tip cap not set")
	}
	return new(big.Int).Set(b.TipCap), nil
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if b.HeaderErr != nil {
		return nil, b.HeaderErr
	}
	if b.Header == nil {
		return nil, errors.New("header not set")
	}
	return b.Header, nil
}

// QuoteFunc prices amountIn along path
type QuoteFunc func(amountIn *big.Int, path []common.Address) (*big.Int, error)

// StubRouter is a dex.Router with scripted quotes and gas estimates
type StubRouter struct {
	Name     string
	Address  common.Address
	QuoteFn  QuoteFunc
	GasUnits uint64
	GasErr   error

	mu        sync.Mutex
	quotes    int
	estimates int
}

var _ dex.Router = (*StubRouter)(nil)

// NewStubRouter returns a router quoting with fn and estimating gasUnits per swap
func NewStubRouter(name string, fn QuoteFunc, gasUnits uint64) *StubRouter {
	return &StubRouter{
		Name:     name,
		Address:  common.BytesToAddress([]byte(name)),
		QuoteFn:  fn,
		GasUnits: gasUnits,
	}
}

func (r *StubRouter) GetName() string {
	return r.Name
}

func (r *StubRouter) GetRouterAddress() common.Address {
	return r.Address
}

func (r *StubRouter) Quote(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	r.mu.Lock()
	r.quotes++
	r.mu.Unlock()

	if r.QuoteFn == nil {
		return nil, dex.ErrQuoteFailed
	}
	return r.QuoteFn(amountIn, path)
}

func (r *StubRouter) BuildSwapCall(amountIn, minOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) (*dex.SwapCall, error) {
	return &dex.SwapCall{To: r.Address, Value: big.NewInt(0)}, nil
}

func (r *StubRouter) EstimateGas(ctx context.Context, call *dex.SwapCall, sender common.Address) (uint64, error) {
	r.mu.Lock()
	r.estimates++
	r.mu.Unlock()

	if r.GasErr != nil {
		return 0, r.GasErr
	}
	return r.GasUnits, nil
}

// QuoteCalls returns the number of Quote calls
func (r *StubRouter) QuoteCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quotes
}

// EstimateCalls returns the number of EstimateGas calls
func (r *StubRouter) EstimateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.estimates
}

// Ratio returns a QuoteFunc paying amountIn * num / den on every path
func Ratio(num, den int64) QuoteFunc {
	return func(amountIn *big.Int, path []common.Address) (*big.Int, error) {
		out := new(big.Int).Mul(amountIn, big.NewInt(num))
		return out.Quo(out, big.NewInt(den)), nil
	}
}

// Decimals is a fixed decimals table. Unknown tokens are an error.
type Decimals map[common.Address]uint8

func (d Decimals) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	v, ok := d[token]
	if !ok {
		return 0, fmt.Errorf("no decimals for %s", token.Hex())
	}
	return v, nil
}

// Prices is a fixed USD price table. Unknown tokens have no price.
type Prices map[common.Address]simtypes.USDValue

func (p Prices) ValueInUSD(ctx context.Context, token common.Address) (simtypes.USDValue, bool) {
	v, ok := p[token]
	return v, ok
}

// Addr returns a deterministic address for tests
func Addr(n byte) common.Address {
	return common.BytesToAddress([]byte{n})
}
