package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/michaelpento.lv/tradesim/types"
)

// CurveWidth is the bar length of the largest |profit|
const CurveWidth = 50

// PlotCurve draws a horizontal bar chart of USD profit by size. Losses are drawn
// with '-' and gains with '#'.
func PlotCurve(w io.Writer, points []types.OptimizationPoint) {
	fmt.Fprintln(w, "Profit Curve")

	maxAbs := decimal.Zero
	labelWidth := 0
	for _, p := range points {
		if a := p.Profit().Abs(); a.GreaterThan(maxAbs) {
			maxAbs = a
		}
		if n := len(formatSize(p.Size)); n > labelWidth {
			labelWidth = n
		}
	}

	for _, p := range points {
		fmt.Fprintf(w, "%*s | %s $%s\n", labelWidth, formatSize(p.Size), bar(p.Profit(), maxAbs), p.ProfitUSD)
	}
}

func bar(v, maxAbs decimal.Decimal) string {
	if maxAbs.IsZero() {
		return ""
	}
	n := int(v.Abs().Mul(decimal.NewFromInt(CurveWidth)).Div(maxAbs).Round(0).IntPart())
	if n == 0 && !v.IsZero() {
		n = 1
	}
	if v.IsNegative() {
		return strings.Repeat("-", n)
	}
	return strings.Repeat("#", n)
}
