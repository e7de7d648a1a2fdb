// Package builtins provides the signal generators that ship with protrader.
package builtins

import (
	"fmt"
	"math"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It emits a
// BUY when the fast SMA crosses above the slow SMA and a SELL when it crosses
// below.
type SMACross struct {
	fast int
	slow int
}

// CrossReading is one bar's pair of moving averages. Valid is false until
// the slow window is full.
type CrossReading struct {
	Timestamp time.Time
	Fast      float64
	Slow      float64
	Valid     bool
}

// NewSMACross creates a new SMACross strategy with the given fast and slow
// moving average windows.
func NewSMACross(fast, slow int) (*SMACross, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("sma-cross: windows must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("sma-cross: fast window %d must be shorter than slow window %d", fast, slow)
	}
	return &SMACross{fast: fast, slow: slow}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// MinBars is the slow window.
func (s *SMACross) MinBars() int {
	return s.slow
}

// Lines computes the fast and slow moving averages for every bar.
func (s *SMACross) Lines(series domain.Series) []CrossReading {
	closes := series.Closes()
	fast := trailingMean(s.fast, closes)
	slow := trailingMean(s.slow, closes)

	out := make([]CrossReading, len(series))
	for i, b := range series {
		out[i] = CrossReading{
			Timestamp: b.Timestamp,
			Fast:      fast[i],
			Slow:      slow[i],
			Valid:     !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]),
		}
	}
	return out
}

// Flags returns one flag per crossover. Both the crossing bar and the bar
// before it need full windows.
func (s *SMACross) Flags(series domain.Series) []strategy.Flag {
	lines := s.Lines(series)

	var flags []strategy.Flag
	for i := 1; i < len(lines); i++ {
		prev, cur := lines[i-1], lines[i]
		if !prev.Valid || !cur.Valid {
			continue
		}

		var action domain.Action
		switch {
		case prev.Fast <= prev.Slow && cur.Fast > cur.Slow:
			action = domain.ActionBuy
		case prev.Fast >= prev.Slow && cur.Fast < cur.Slow:
			action = domain.ActionSell
		default:
			continue
		}
		flags = append(flags, strategy.Flag{
			Timestamp: cur.Timestamp,
			Price:     series[i].Close,
			Action:    action,
			Value:     cur.Fast,
		})
	}
	return flags
}
