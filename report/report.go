package report

import (
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/michaelpento.lv/tradesim/types"
	tmath "github.com/michaelpento.lv/tradesim/utils/math"
)

// Labels carries display names for addresses in a report
type Labels struct {
	TokenIn    string
	TokenOut   string
	RouterBuy  string
	RouterSell string
}

// Options selects optional report sections
type Options struct {
	Curve bool
	Score bool
}

// WriteSimulation renders a single simulation
func WriteSimulation(w io.Writer, l Labels, size float64, res *types.SimulationResult) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Simulation: %s %s -> %s on %s, back on %s",
		formatSize(size), l.TokenIn, l.TokenOut, l.RouterBuy, l.RouterSell)))

	dec := res.TokenInDecimals
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoFormatHeaders(false)
	table.Append([]string{"Amount in", tmath.FormatUnits(res.AmountIn, dec) + " " + l.TokenIn})
	table.Append([]string{"Buy leg out (raw)", res.BuyOut.String()})
	table.Append([]string{"Sell leg out", tmath.FormatUnits(res.SellOut, dec) + " " + l.TokenIn})
	table.Append([]string{"Gas units", strconv.FormatUint(res.GasBuy+res.GasSell, 10)})
	table.Append([]string{"Gas price (gwei)", tmath.FormatUnits(res.GasPrice, 9)})
	table.Append([]string{"Gas cost (ETH)", tmath.FormatUnits(res.GasCostWei, 18)})
	table.Append([]string{"Gas cost", tmath.FormatUnits(res.GasCostInToken, dec) + " " + l.TokenIn})
	table.Append([]string{"Net profit", tmath.FormatUnits(res.ProfitRaw, dec) + " " + l.TokenIn})
	table.Render()

	if res.ProfitUSD == nil {
		fmt.Fprintln(w, lossStyle.Render("USD price unavailable for "+l.TokenIn+": profit cannot be valued in USD"))
		return
	}
	fmt.Fprintf(w, "Net profit (USD): %s\n", signed(res.ProfitUSD.String()))
}

// WriteReport renders an optimizer report
func WriteReport(w io.Writer, l Labels, r *types.Report, opts Options) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Trade size sweep: %s -> %s, buy on %s, sell on %s",
		l.TokenIn, l.TokenOut, l.RouterBuy, l.RouterSell)))

	if r.PriceUnavailable {
		fmt.Fprintln(w, lossStyle.Render("USD price unavailable for "+l.TokenIn+": USD optimization is not possible for this token"))
		return
	}

	for _, sc := range r.Scenarios {
		writeScenario(w, l, sc, opts)
	}

	if opts.Score {
		fmt.Fprintf(w, "Opportunity score: %s (%d scenarios)\n",
			titleStyle.Render(strconv.FormatFloat(r.Viability, 'f', 2, 64)), len(r.Scenarios))
	}
}

func writeScenario(w io.Writer, l Labels, sc types.ScenarioResult, opts Options) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Scenario "+sc.Scenario.String()))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Size", "Profit (" + l.TokenIn + " raw)", "Profit (USD)"})
	table.SetAutoFormatHeaders(false)
	for _, p := range sc.Points {
		table.Append([]string{formatSize(p.Size), rawString(p.ProfitTokenRaw), p.ProfitUSD})
	}
	table.Render()

	if sc.Skipped > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d points skipped: no USD price", sc.Skipped)))
	}
	if sc.Best != nil {
		fmt.Fprintf(w, "Best size: %s (profit %s USD)\n", formatSize(sc.OptimalSize()), signed(sc.PeakProfitUSD()))
	}
	if sc.BreakEven != nil {
		fmt.Fprintf(w, "Break-even between %s and %s\n", formatSize(sc.BreakEven.FromSize), formatSize(sc.BreakEven.ToSize))
	} else {
		fmt.Fprintln(w, mutedStyle.Render("No break-even in range"))
	}

	if opts.Curve && len(sc.Points) > 0 {
		PlotCurve(w, sc.Points)
	}
}

func formatSize(size float64) string {
	return strconv.FormatFloat(size, 'f', -1, 64)
}

func rawString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
