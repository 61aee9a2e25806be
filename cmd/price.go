package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/utils"
)

var priceToken string

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show a token's USD value and which oracle tier produced it",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			log.Fatal("Failed to initialize", zap.Error(err))
		}
		defer a.close()

		tok, err := a.token(priceToken)
		if err != nil {
			log.Fatal("Invalid token", zap.Error(err))
		}

		out := cmd.OutOrStdout()
		p, ok := a.oracle.Lookup(ctx, tok)
		if !ok {
			fmt.Fprintf(out, "%s: USD price unavailable\n", a.tokenLabel(ctx, tok))
			return
		}
		fmt.Fprintf(out, "%s: $%s (raw %s, decimals %d, source %s)\n",
			a.tokenLabel(ctx, tok), p.String(), p.Raw.String(), p.Decimals, p.Source)
	},
}

func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringVar(&priceToken, "token", "", "token symbol or address")
	_ = priceCmd.MarkFlagRequired("token")
}
