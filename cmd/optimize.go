package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/optimizer"
	"github.com/michaelpento.lv/tradesim/report"
	"github.com/michaelpento.lv/tradesim/utils"
	"github.com/michaelpento.lv/tradesim/utils/metrics"
	"github.com/michaelpento.lv/tradesim/utils/monitor"
)

var optimizeOpts struct {
	tokenIn     string
	tokenOut    string
	routerBuy   string
	routerSell  string
	minSize     float64
	maxSize     float64
	stepSize    float64
	slippageBps []uint
	gasGwei     []float64
	curve       bool
	score       bool
	metricsAddr string
	workers     int
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep trade sizes to find the most profitable size and the break-even range",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		ctx := cmd.Context()

		slippage, err := validateSlippage(optimizeOpts.slippageBps)
		if err != nil {
			log.Fatal("Invalid arguments", zap.Error(err))
		}
		if err := validateGas(optimizeOpts.gasGwei); err != nil {
			log.Fatal("Invalid arguments", zap.Error(err))
		}

		a, err := newApp(ctx)
		if err != nil {
			log.Fatal("Failed to initialize", zap.Error(err))
		}
		defer a.close()

		if err := validateSweep(optimizeOpts.minSize, optimizeOpts.maxSize, optimizeOpts.stepSize, a.cfg.Sweep.MaxPoints); err != nil {
			log.Fatal("Invalid arguments", zap.Error(err))
		}

		tokenIn, err := a.token(optimizeOpts.tokenIn)
		if err != nil {
			log.Fatal("Invalid token in", zap.Error(err))
		}
		tokenOut, err := a.token(optimizeOpts.tokenOut)
		if err != nil {
			log.Fatal("Invalid token out", zap.Error(err))
		}
		routerBuy, err := a.router(optimizeOpts.routerBuy)
		if err != nil {
			log.Fatal("Invalid buy router", zap.Error(err))
		}
		routerSell, err := a.router(optimizeOpts.routerSell)
		if err != nil {
			log.Fatal("Invalid sell router", zap.Error(err))
		}

		addr := optimizeOpts.metricsAddr
		if addr == "" && a.cfg.Metrics.Enabled {
			addr = a.cfg.Metrics.ListenAddr
		}
		if addr != "" {
			stop := serveMetrics(ctx, log, addr, a)
			defer stop()
		}

		workers := a.cfg.Sweep.Workers
		if optimizeOpts.workers > 0 {
			workers = optimizeOpts.workers
		}

		opt := optimizer.New(a.sim, workers, log, a.metrics)
		rep, err := opt.Optimize(ctx, optimizer.Params{
			TokenIn:     tokenIn,
			TokenOut:    tokenOut,
			RouterBuy:   routerBuy,
			RouterSell:  routerSell,
			MinSize:     optimizeOpts.minSize,
			MaxSize:     optimizeOpts.maxSize,
			StepSize:    optimizeOpts.stepSize,
			MaxPoints:   a.cfg.Sweep.MaxPoints,
			SlippageBps: slippage,
			GasGwei:     optimizeOpts.gasGwei,
		})
		if err != nil {
			log.Fatal("Optimization failed", zap.Error(err))
		}

		report.WriteReport(cmd.OutOrStdout(), report.Labels{
			TokenIn:    a.tokenLabel(ctx, tokenIn),
			TokenOut:   a.tokenLabel(ctx, tokenOut),
			RouterBuy:  routerBuy.GetName(),
			RouterSell: routerSell.GetName(),
		}, rep, report.Options{
			Curve: optimizeOpts.curve,
			Score: optimizeOpts.score,
		})
	},
}

// serveMetrics exposes the sweep and runtime metrics until the returned stop func
// is called
func serveMetrics(ctx context.Context, log *zap.Logger, addr string, a *app) func() {
	mon := monitor.NewRuntimeMonitor(ctx, a.registry, "tradesim", monitor.DefaultInterval, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	log.Info("Serving metrics", zap.String("addr", addr))

	return func() {
		mon.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	f := optimizeCmd.Flags()
	f.StringVar(&optimizeOpts.tokenIn, "token-in", "", "input token symbol or address")
	f.StringVar(&optimizeOpts.tokenOut, "token-out", "", "intermediate token symbol or address")
	f.StringVar(&optimizeOpts.routerBuy, "router-buy", "", "router to buy token-out on")
	f.StringVar(&optimizeOpts.routerSell, "router-sell", "", "router to sell token-out on")
	f.Float64Var(&optimizeOpts.minSize, "min-size", 0, "smallest trade size")
	f.Float64Var(&optimizeOpts.maxSize, "max-size", 0, "largest trade size")
	f.Float64Var(&optimizeOpts.stepSize, "step-size", 0, "trade size increment")
	f.UintSliceVar(&optimizeOpts.slippageBps, "slippage-bps", nil, "comma separated slippage scenarios in basis points")
	f.Float64SliceVar(&optimizeOpts.gasGwei, "gas-gwei", nil, "comma separated gas price scenarios in gwei")
	f.BoolVar(&optimizeOpts.curve, "curve", false, "plot the profit curve")
	f.BoolVar(&optimizeOpts.score, "score", false, "print the opportunity score")
	f.StringVar(&optimizeOpts.metricsAddr, "metrics", "", "serve prometheus metrics on this address during the sweep")
	f.IntVar(&optimizeOpts.workers, "workers", 0, "concurrent simulations (default from config)")

	for _, name := range []string{"token-in", "token-out", "router-buy", "router-sell", "min-size", "max-size", "step-size"} {
		_ = optimizeCmd.MarkFlagRequired(name)
	}
}
