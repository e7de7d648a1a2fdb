package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// WriteTradesCSV writes the trade log with a header row.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "action", "price", "quantity"})
	for _, t := range trades {
		_ = cw.Write([]string{
			t.Timestamp.Format(time.RFC3339),
			string(t.Action),
			formatF(t.Price),
			strconv.FormatInt(t.Quantity, 10),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV writes the equity curve with a header row.
func WriteEquityCSV(w io.Writer, equity []domain.EquityPoint) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "equity"})
	for _, p := range equity {
		_ = cw.Write([]string{p.Timestamp.Format(time.RFC3339), formatF(p.Equity)})
	}
	cw.Flush()
	return cw.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
