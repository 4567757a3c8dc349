package summary

import (
	"fmt"
	"math"
	"strings"

	"github.com/BayesianBoi/methods-2-course/pkg/loo"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	nameStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = cellStyle.Foreground(lipgloss.Color("#F4D03F"))
)

func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return nameStyle
			}
			return cellStyle
		})
}

func withTitle(title, body string) string {
	if title == "" {
		return body
	}
	return titleStyle.Render(title) + "\n" + body
}

// Render draws the table as text.
func (t *Table) Render() string {
	pct := int(math.Round(t.Prob * 100))
	lo := fmt.Sprintf("%g%%", float64(100-pct)/2)
	hi := fmt.Sprintf("%g%%", 100-float64(100-pct)/2)
	tb := newTable("", "mean", "sd", "median", "mad_sd", lo, hi, "rhat", "n_eff")
	rhatCol := 7
	for _, r := range t.Rows {
		ess := "-"
		if !math.IsNaN(r.ESS) {
			ess = fmt.Sprintf("%.0f", r.ESS)
		}
		tb.Row(r.Name, num(r.Mean, 2), num(r.SD, 2), num(r.Median, 2), num(r.MADSD, 2),
			num(r.Lo, 2), num(r.Hi, 2), num(r.Rhat, 3), ess)
	}
	rows := t.Rows
	tb.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col == 0:
			return nameStyle
		case col == rhatCol && row >= 0 && row < len(rows) && rows[row].Rhat > 1.1:
			return warnStyle
		}
		return cellStyle
	})
	return withTitle(t.Title, tb.String())
}

// RenderEstimate draws an elpd estimate in the loo print layout.
func RenderEstimate(e *loo.Estimate) string {
	tb := newTable("", "Estimate", "SE")
	tb.Row("elpd_"+e.Method, num(e.Elpd, 1), num(e.ElpdSE, 1))
	tb.Row("p_"+e.Method, num(e.P, 1), num(e.PSE, 1))
	tb.Row(e.Method+"ic", num(e.IC, 1), num(e.ICSE, 1))
	var b strings.Builder
	b.WriteString(withTitle(fmt.Sprintf("%s (%d observations, %d draws)", e.Name, e.NObs, e.NDraws), tb.String()))
	if e.ParetoK != nil {
		bad := e.BadK()
		if len(bad) == 0 {
			fmt.Fprintf(&b, "\nAll Pareto k estimates are below %.2f.", e.KThreshold)
		} else {
			fmt.Fprintf(&b, "\n%d of %d Pareto k estimates exceed %.2f.", len(bad), e.NObs, e.KThreshold)
		}
	}
	return b.String()
}

// RenderComparison draws a loo_compare style table.
func RenderComparison(c *loo.Comparison) string {
	tb := newTable("", "elpd_diff", "se_diff", "elpd", "se_elpd", "p", "ic")
	for _, r := range c.Rows {
		e := r.Estimate
		tb.Row(r.Name, num(r.ElpdDiff, 1), num(r.SEDiff, 1), num(e.Elpd, 1), num(e.ElpdSE, 1), num(e.P, 1), num(e.IC, 1))
	}
	return tb.String()
}
