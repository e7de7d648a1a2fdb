// Package report renders backtest results as terminal tables.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("9"))
	errStyle    = cellStyle.Foreground(lipgloss.Color("9"))
)

// Row is one line of a results table. Err, when set, replaces the metrics.
type Row struct {
	Symbol   string
	Strategy string
	Report   domain.Report
	Elapsed  time.Duration
	Err      error
}

// Columns of a results table, in order.
var Columns = []string{"SYMBOL", "STRATEGY", "RETURN", "SHARPE", "MAX DD", "VAR 95", "CVAR 95", "WIN RATE", "TRADES", "TIME"}

// Cells formats r for the results table.
func Cells(r Row) []string {
	if r.Err != nil {
		return []string{r.Symbol, r.Strategy, "error: " + r.Err.Error(), "", "", "", "", "", "", ""}
	}
	rep := r.Report
	return []string{
		r.Symbol,
		r.Strategy,
		Percent(rep.TotalReturn),
		strconv.FormatFloat(rep.SharpeRatio, 'f', 2, 64),
		Percent(rep.MaxDrawdown),
		Percent(rep.VaR95),
		Percent(rep.CVaR95),
		Percent(rep.WinRate),
		strconv.Itoa(rep.TotalTrades),
		r.Elapsed.Round(time.Millisecond).String(),
	}
}

// Table renders rows with a header, colouring returns by sign.
func Table(rows []Row) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = Cells(r)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Columns...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(rows) {
				return cellStyle
			}
			r := rows[row]
			switch {
			case r.Err != nil && col == 2:
				return errStyle
			case r.Err == nil && col == 2 && r.Report.TotalReturn > 0:
				return gainStyle
			case r.Err == nil && col == 2 && r.Report.TotalReturn < 0:
				return lossStyle
			}
			return cellStyle
		})
	return t.String()
}

// Summary renders a single report as a two-column table.
func Summary(title string, rep domain.Report, finalCash float64) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(title, "").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Row("Total return", Percent(rep.TotalReturn)).
		Row("Sharpe ratio", strconv.FormatFloat(rep.SharpeRatio, 'f', 4, 64)).
		Row("Max drawdown", Percent(rep.MaxDrawdown)).
		Row("VaR 95%", Percent(rep.VaR95)).
		Row("CVaR 95%", Percent(rep.CVaR95)).
		Row("Win rate", Percent(rep.WinRate)).
		Row("Trades", strconv.Itoa(rep.TotalTrades)).
		Row("Final cash", strconv.FormatFloat(finalCash, 'f', 2, 64))
	return t.String()
}

// Percent formats a fraction as a percentage with two decimals.
func Percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
