package builtins

import (
	"fmt"
	"math"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

var _ strategy.Strategy = (*WickRejection)(nil)

// WickRejection flags bars whose high-low range is large relative to the
// candle body and emits a direct BUY or SELL at the close.
type WickRejection struct {
	threshold float64
}

// WickReading is one bar's range-to-body ratio.
type WickReading struct {
	Timestamp time.Time
	Ratio     float64
	Flagged   bool
}

// NewWickRejection creates a wick strategy that fires above threshold.
func NewWickRejection(threshold float64) (*WickRejection, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("wick-rejection: threshold must be positive, got %v", threshold)
	}
	return &WickRejection{threshold: threshold}, nil
}

// Name returns "wick-rejection".
func (w *WickRejection) Name() string { return "wick-rejection" }

// MinBars is 1; every bar is scored on its own.
func (w *WickRejection) MinBars() int { return 1 }

// wickRatio is (high-low)/|close-open|. A doji with a range is +Inf and
// always fires; a bar with no range and no body is NaN and never fires.
func wickRatio(b domain.Bar) float64 {
	rng := b.High - b.Low
	body := math.Abs(b.Close - b.Open)
	if body == 0 {
		if rng == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return rng / body
}

// Ratios scores every bar.
func (w *WickRejection) Ratios(series domain.Series) []WickReading {
	out := make([]WickReading, len(series))
	for i, b := range series {
		r := wickRatio(b)
		out[i] = WickReading{Timestamp: b.Timestamp, Ratio: r, Flagged: r > w.threshold}
	}
	return out
}

// Flags returns a BUY for flagged up bars (close > open) and a SELL for
// every other flagged bar.
func (w *WickRejection) Flags(series domain.Series) []strategy.Flag {
	var flags []strategy.Flag
	for i, r := range w.Ratios(series) {
		if !r.Flagged {
			continue
		}
		b := series[i]
		action := domain.ActionSell
		if b.Close > b.Open {
			action = domain.ActionBuy
		}
		flags = append(flags, strategy.Flag{
			Timestamp: b.Timestamp,
			Price:     b.Close,
			Action:    action,
			Value:     r.Ratio,
		})
	}
	return flags
}
