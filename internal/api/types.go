package api

import (
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
)

// BacktestRequest is the body of POST /api/v1/backtests and the fields of
// the gRPC RunBacktest message. Dates are YYYY-MM-DD or RFC 3339.
type BacktestRequest struct {
	Symbol      string  `json:"symbol"`
	Strategy    string  `json:"strategy"`
	Start       string  `json:"start,omitempty"`
	End         string  `json:"end,omitempty"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	Quantity    int64   `json:"quantity,omitempty"`
}

// TradeJSON is one executed trade.
type TradeJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
}

// EquityJSON is one point of the equity curve.
type EquityJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// RunJSON describes a stored or freshly computed run. Trades and Equity are
// omitted from listings.
type RunJSON struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Strategy    string        `json:"strategy"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	InitialCash float64       `json:"initial_cash"`
	FinalCash   float64       `json:"final_cash"`
	Report      domain.Report `json:"report"`
	CreatedAt   time.Time     `json:"created_at"`
	Trades      []TradeJSON   `json:"trades,omitempty"`
	Equity      []EquityJSON  `json:"equity,omitempty"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// RunsResponse is the body of GET /api/v1/backtests.
type RunsResponse struct {
	Runs []RunJSON `json:"runs"`
}

func convertRun(r *store.Run, equity []domain.EquityPoint) RunJSON {
	out := RunJSON{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Strategy:    r.Strategy,
		Start:       r.Start,
		End:         r.End,
		InitialCash: r.InitialCash,
		FinalCash:   r.FinalCash,
		Report:      r.Report,
		CreatedAt:   r.CreatedAt,
	}
	for _, t := range r.Trades {
		out.Trades = append(out.Trades, TradeJSON{
			Timestamp: t.Timestamp,
			Action:    string(t.Action),
			Price:     t.Price,
			Quantity:  t.Quantity,
		})
	}
	for _, p := range equity {
		out.Equity = append(out.Equity, EquityJSON{Timestamp: p.Timestamp, Equity: p.Equity})
	}
	return out
}
