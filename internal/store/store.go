// Package store persists historical bars, equity curves and completed
// backtest runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market. Bars that
	// share a symbol and timestamp with stored ones replace them.
	WriteBars(ctx context.Context, market string, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], in timestamp order.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) (domain.Series, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// EquityStore keeps the full equity curve of a run, keyed by run ID.
type EquityStore interface {
	WriteEquity(ctx context.Context, runID string, equity []domain.EquityPoint) error
	ReadEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}

// Run is a completed backtest as persisted. Trades is empty in listings.
type Run struct {
	ID          string
	Symbol      string
	Strategy    string
	Start       time.Time
	End         time.Time
	InitialCash float64
	FinalCash   float64
	Report      domain.Report
	Trades      []domain.Trade
	CreatedAt   time.Time
}

// RunStore persists run summaries and their trade logs.
type RunStore interface {
	// SaveRun inserts run. An empty ID is filled with a fresh UUID and a
	// zero CreatedAt with the current time; both are written back to run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun returns the run with its trade log, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns up to limit of the most recent runs, newest first.
	// An empty symbol matches every symbol.
	ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error)
}
