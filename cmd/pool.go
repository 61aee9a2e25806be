package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/config"
	"github.com/michaelpento.lv/tradesim/dex/uniswap"
	"github.com/michaelpento.lv/tradesim/utils"
)

var poolOpts struct {
	factory string
	tokenA  string
	tokenB  string
	base    string
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show the reserve-implied spot price of a V2 pair",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			log.Fatal("Failed to initialize", zap.Error(err))
		}
		defer a.close()

		factoryAddr, err := config.ResolveAddress(a.cfg.Factories, poolOpts.factory)
		if err != nil {
			log.Fatal("Invalid factory", zap.Error(err))
		}
		tokenA, err := a.token(poolOpts.tokenA)
		if err != nil {
			log.Fatal("Invalid token a", zap.Error(err))
		}
		tokenB, err := a.token(poolOpts.tokenB)
		if err != nil {
			log.Fatal("Invalid token b", zap.Error(err))
		}
		base := tokenA
		if poolOpts.base != "" {
			if base, err = a.token(poolOpts.base); err != nil {
				log.Fatal("Invalid base token", zap.Error(err))
			}
		}

		factory, err := uniswap.NewFactory(factoryAddr, a.client)
		if err != nil {
			log.Fatal("Failed to bind factory", zap.Error(err))
		}
		price, err := factory.PoolPrice(ctx, a.tokens, tokenA, tokenB, base)
		if err != nil {
			log.Fatal("Failed to get pool price", zap.Error(err))
		}

		quote := tokenB
		if base == tokenB {
			quote = tokenA
		}
		fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s\n", a.tokenLabel(ctx, base), price.String(), a.tokenLabel(ctx, quote))
	},
}

func init() {
	rootCmd.AddCommand(poolCmd)

	f := poolCmd.Flags()
	f.StringVar(&poolOpts.factory, "factory", "UNISWAP", "factory symbol or address")
	f.StringVar(&poolOpts.tokenA, "token-a", "", "first token of the pair")
	f.StringVar(&poolOpts.tokenB, "token-b", "", "second token of the pair")
	f.StringVar(&poolOpts.base, "base", "", "token to price (default token-a)")
	_ = poolCmd.MarkFlagRequired("token-a")
	_ = poolCmd.MarkFlagRequired("token-b")
}
