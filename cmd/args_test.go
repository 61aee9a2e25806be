package cmd

import (
	"math"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/tradesim/optimizer"
)

func TestScenarioFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantBps   []uint32
		wantGwei  []float64
		wantErr   bool
		wantParse bool
	}{
		{name: "unset", args: nil},
		{name: "single", args: []string{"--slippage-bps=50"}, wantBps: []uint32{50}},
		{
			name:     "lists",
			args:     []string{"--slippage-bps=0,25,100", "--gas-gwei=0,1.5,30"},
			wantBps:  []uint32{0, 25, 100},
			wantGwei: []float64{0, 1.5, 30},
		},
		{name: "repeated flag", args: []string{"--gas-gwei=1", "--gas-gwei=2"}, wantGwei: []float64{1, 2}},
		{name: "full haircut", args: []string{"--slippage-bps=10000"}, wantErr: true},
		{name: "negative gas", args: []string{"--gas-gwei=-1"}, wantErr: true},
		{name: "nan gas", args: []string{"--gas-gwei=NaN"}, wantErr: true},
		{name: "fractional bps", args: []string{"--slippage-bps=1.5"}, wantParse: true},
		{name: "negative bps", args: []string{"--slippage-bps=-1"}, wantParse: true},
		{name: "garbage gas", args: []string{"--gas-gwei=x"}, wantParse: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bps []uint
			var gwei []float64
			f := pflag.NewFlagSet("optimize", pflag.ContinueOnError)
			f.UintSliceVar(&bps, "slippage-bps", nil, "")
			f.Float64SliceVar(&gwei, "gas-gwei", nil, "")

			err := f.Parse(tt.args)
			if tt.wantParse {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			slippage, err := validateSlippage(bps)
			if err == nil {
				err = validateGas(gwei)
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBps, slippage)
			assert.Equal(t, tt.wantGwei, gwei)
		})
	}
}

func TestValidateSweep(t *testing.T) {
	assert.NoError(t, validateSweep(100, 500, 100, 5))

	err := validateSweep(100, 600, 100, 5)
	assert.ErrorIs(t, err, optimizer.ErrInvalidRange)

	err = validateSweep(1, 2, 1e-19, 100000)
	assert.ErrorIs(t, err, optimizer.ErrInvalidRange)

	err = validateSweep(2, 1, 1, 100000)
	assert.ErrorIs(t, err, optimizer.ErrInvalidRange)
}

func TestValidateTradeSize(t *testing.T) {
	assert.NoError(t, validateTradeSize(0.5))
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Error(t, validateTradeSize(bad))
	}
}
