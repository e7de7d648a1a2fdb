// Package backtest replays a bar series against a signal map, keeps the
// simulated position, and derives performance and risk metrics from the
// resulting equity curve and trade log.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// Result is the outcome of one completed run.
type Result struct {
	Report      domain.Report
	Trades      []domain.Trade
	Equity      []domain.EquityPoint
	FinalCash   float64
	FinalShares int64
}

// Engine runs single backtests. It holds no per-run state, so one Engine
// may serve concurrent runs.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an Engine that logs through log.
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log.With("component", "backtest-engine")}
}

// Run walks series in order. For each bar it executes the signal stored at
// the bar's timestamp (if any) at the bar's close, then records the
// mark-to-market equity. A BUY whose cost exceeds cash and a SELL of more
// shares than held are skipped without error.
//
// Run fails with ErrNoBarsProcessed on an empty series and with
// ErrRunAborted if ctx ends before the last bar; no Result is returned in
// either case.
func (e *Engine) Run(ctx context.Context, series domain.Series, initialCash float64, signals domain.SignalMap) (*Result, error) {
	if len(series) == 0 {
		return nil, ErrNoBarsProcessed
	}

	pos := newPosition(initialCash)
	trades := make([]domain.Trade, 0, len(signals))
	equity := make([]domain.EquityPoint, 0, len(series))
	skipped := 0

	for i, bar := range series {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d bars: %w", ErrRunAborted, i, len(series), err)
		}

		if sig, ok := signals.Lookup(bar.Timestamp); ok {
			if e.execute(pos, bar, sig) {
				trades = append(trades, domain.Trade{
					Timestamp: bar.Timestamp,
					Action:    sig.Action,
					Price:     bar.Close,
					Quantity:  sig.Quantity,
				})
			} else {
				skipped++
			}
		}

		equity = append(equity, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    pos.equity(bar.Close),
		})
	}

	e.log.Debug("run complete",
		"bars", len(series),
		"signals", len(signals),
		"trades", len(trades),
		"skipped", skipped,
	)

	return &Result{
		Report:      ComputeMetrics(equity, trades, initialCash),
		Trades:      trades,
		Equity:      equity,
		FinalCash:   pos.cashFloat(),
		FinalShares: pos.shares,
	}, nil
}

// execute applies sig at the bar's close and reports whether it filled.
func (e *Engine) execute(pos *position, bar domain.Bar, sig domain.Signal) bool {
	if sig.Quantity <= 0 {
		return false
	}
	var filled bool
	switch sig.Action {
	case domain.ActionBuy:
		filled = pos.buy(bar.Close, sig.Quantity)
	case domain.ActionSell:
		filled = pos.sell(bar.Close, sig.Quantity)
	}
	if !filled && e.log.Enabled(context.Background(), slog.LevelDebug) {
		e.log.Debug("order skipped",
			"timestamp", bar.Timestamp,
			"action", sig.Action,
			"qty", sig.Quantity,
			"price", bar.Close,
			"cash", pos.cashFloat(),
			"shares", pos.shares,
		)
	}
	return filled
}
