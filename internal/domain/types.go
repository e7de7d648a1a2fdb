// Package domain holds the value types shared by the backtesting engine,
// the signal generators, and the storage and API layers.
package domain

import (
	"math"
	"time"
)

// Market identifies the exchange group a symbol trades on.
type Market string

const (
	MarketUS     Market = "us"
	MarketCrypto Market = "crypto"
)

// ---------------------------------------------------------------------------
// Bars
// ---------------------------------------------------------------------------

// Bar is one OHLCV observation. Prices are expected to be positive and
// low <= min(open, close) <= max(open, close) <= high, but nothing in the
// engine relies on the latter.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Series is a sequence of bars in strictly increasing timestamp order.
// Consumers treat it as read-only.
type Series []Bar

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the bar volumes as float64 in bar order.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Volume)
	}
	return out
}

// Timestamps returns the bar timestamps in order.
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Timestamp
	}
	return out
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Action is the direction of a trading signal or an executed trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// Signal is a request to trade Quantity shares at the bar with the given
// timestamp.
type Signal struct {
	Timestamp time.Time
	Action    Action
	Quantity  int64
}

// SignalMap holds at most one Signal per instant. Keys are Unix nanoseconds
// so the same instant expressed in different locations maps to one entry.
type SignalMap map[int64]Signal

// NewSignalMap builds a SignalMap from signals. A later signal for the same
// instant replaces an earlier one.
func NewSignalMap(signals []Signal) SignalMap {
	m := make(SignalMap, len(signals))
	for _, s := range signals {
		m.Put(s)
	}
	return m
}

// Put stores s, replacing any signal at the same instant. It reports whether
// an existing signal was replaced.
func (m SignalMap) Put(s Signal) bool {
	k := s.Timestamp.UnixNano()
	_, replaced := m[k]
	m[k] = s
	return replaced
}

// Lookup returns the signal for instant t, if any.
func (m SignalMap) Lookup(t time.Time) (Signal, bool) {
	s, ok := m[t.UnixNano()]
	return s, ok
}

// ---------------------------------------------------------------------------
// Backtest output
// ---------------------------------------------------------------------------

// Trade is an executed order. Trades are only ever appended.
type Trade struct {
	Timestamp time.Time
	Action    Action
	Price     float64
	Quantity  int64
}

// EquityPoint is the mark-to-market account value after a bar.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// Report is the summary of a completed backtest.
type Report struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	VaR95       float64 `json:"var_95"`
	CVaR95      float64 `json:"cvar_95"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
}

// Finite reports whether every real-valued field is a finite number.
func (r Report) Finite() bool {
	for _, v := range []float64{r.TotalReturn, r.SharpeRatio, r.MaxDrawdown, r.VaR95, r.CVaR95, r.WinRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
