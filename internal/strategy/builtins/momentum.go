package builtins

import (
	"fmt"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

var _ strategy.Strategy = (*Momentum)(nil)

// Momentum flags bars where the RSI leaves the [oversold, overbought] range.
// It reports the zone only; the direction of any trade is a Policy decision.
type Momentum struct {
	period     int
	oversold   float64
	overbought float64
}

// RSIReading is one bar's RSI with the averages it was built from.
type RSIReading struct {
	Timestamp time.Time
	AvgGain   float64
	AvgLoss   float64
	RSI       float64
	Valid     bool
}

// NewMomentum creates an RSI strategy over period close-to-close changes.
func NewMomentum(period int, oversold, overbought float64) (*Momentum, error) {
	if period <= 0 {
		return nil, fmt.Errorf("momentum: period must be positive, got %d", period)
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("momentum: oversold %v must be below overbought %v", oversold, overbought)
	}
	return &Momentum{period: period, oversold: oversold, overbought: overbought}, nil
}

// Name returns "momentum".
func (m *Momentum) Name() string { return "momentum" }

// MinBars is period changes, i.e. period+1 bars.
func (m *Momentum) MinBars() int { return m.period + 1 }

// RSI computes the indicator for every bar using plain trailing means of the
// gains and losses over the last period changes. With no losses the RSI
// saturates at 100; with neither gains nor losses it sits at the neutral 50.
func (m *Momentum) RSI(series domain.Series) []RSIReading {
	out := make([]RSIReading, len(series))
	for i, b := range series {
		out[i].Timestamp = b.Timestamp
		if i < m.period {
			continue
		}

		var gain, loss float64
		for j := i - m.period + 1; j <= i; j++ {
			d := series[j].Close - series[j-1].Close
			if d > 0 {
				gain += d
			} else if d < 0 {
				loss -= d
			}
		}
		gain /= float64(m.period)
		loss /= float64(m.period)

		out[i].AvgGain = gain
		out[i].AvgLoss = loss
		out[i].RSI = rsi(gain, loss)
		out[i].Valid = true
	}
	return out
}

func rsi(gain, loss float64) float64 {
	switch {
	case loss == 0 && gain == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// Flags marks oversold bars as ZoneLow and overbought bars as ZoneHigh.
func (m *Momentum) Flags(series domain.Series) []strategy.Flag {
	var flags []strategy.Flag
	for i, r := range m.RSI(series) {
		if !r.Valid {
			continue
		}
		var zone strategy.Zone
		switch {
		case r.RSI < m.oversold:
			zone = strategy.ZoneLow
		case r.RSI > m.overbought:
			zone = strategy.ZoneHigh
		default:
			continue
		}
		flags = append(flags, strategy.Flag{
			Timestamp: r.Timestamp,
			Price:     series[i].Close,
			Zone:      zone,
			Value:     r.RSI,
		})
	}
	return flags
}
