package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/report"
	"github.com/michaelpento.lv/tradesim/simulator"
	"github.com/michaelpento.lv/tradesim/utils"
)

var simulateOpts struct {
	tokenIn     string
	tokenOut    string
	routerBuy   string
	routerSell  string
	size        float64
	slippageBps uint32
	gasGwei     float64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate one buy/sell round trip at a fixed trade size",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		ctx := cmd.Context()

		if err := validateTradeSize(simulateOpts.size); err != nil {
			log.Fatal("Invalid arguments", zap.Error(err))
		}
		if simulateOpts.slippageBps >= 10000 {
			log.Fatal("Invalid arguments", zap.Uint32("slippage_bps", simulateOpts.slippageBps))
		}

		a, err := newApp(ctx)
		if err != nil {
			log.Fatal("Failed to initialize", zap.Error(err))
		}
		defer a.close()

		tokenIn, err := a.token(simulateOpts.tokenIn)
		if err != nil {
			log.Fatal("Invalid token in", zap.Error(err))
		}
		tokenOut, err := a.token(simulateOpts.tokenOut)
		if err != nil {
			log.Fatal("Invalid token out", zap.Error(err))
		}
		routerBuy, err := a.router(simulateOpts.routerBuy)
		if err != nil {
			log.Fatal("Invalid buy router", zap.Error(err))
		}
		routerSell, err := a.router(simulateOpts.routerSell)
		if err != nil {
			log.Fatal("Invalid sell router", zap.Error(err))
		}

		req := simulator.Request{
			Size:        simulateOpts.size,
			TokenIn:     tokenIn,
			TokenOut:    tokenOut,
			RouterBuy:   routerBuy,
			RouterSell:  routerSell,
			SlippageBps: simulateOpts.slippageBps,
		}
		if cmd.Flags().Changed("gas-gwei") {
			g := simulateOpts.gasGwei
			req.GasGwei = &g
		}

		res, err := a.sim.Simulate(ctx, req)
		if err != nil && !errors.Is(err, simulator.ErrPriceUnavailable) {
			log.Fatal("Simulation failed", zap.Error(err))
		}

		report.WriteSimulation(cmd.OutOrStdout(), report.Labels{
			TokenIn:    a.tokenLabel(ctx, tokenIn),
			TokenOut:   a.tokenLabel(ctx, tokenOut),
			RouterBuy:  routerBuy.GetName(),
			RouterSell: routerSell.GetName(),
		}, simulateOpts.size, res)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	f := simulateCmd.Flags()
	f.StringVar(&simulateOpts.tokenIn, "token-in", "", "input token symbol or address")
	f.StringVar(&simulateOpts.tokenOut, "token-out", "", "intermediate token symbol or address")
	f.StringVar(&simulateOpts.routerBuy, "router-buy", "", "router to buy token-out on")
	f.StringVar(&simulateOpts.routerSell, "router-sell", "", "router to sell token-out on")
	f.Float64Var(&simulateOpts.size, "size", 0, "trade size in whole units of token-in")
	f.Uint32Var(&simulateOpts.slippageBps, "slippage-bps", 0, "expected slippage per leg in basis points")
	f.Float64Var(&simulateOpts.gasGwei, "gas-gwei", 0, "gas price override in gwei")

	for _, name := range []string{"token-in", "token-out", "router-buy", "router-sell", "size"} {
		_ = simulateCmd.MarkFlagRequired(name)
	}
}
