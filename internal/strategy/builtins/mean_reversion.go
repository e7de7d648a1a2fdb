package builtins

import (
	"fmt"
	"math"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

var _ strategy.Strategy = (*MeanReversion)(nil)

// MeanReversion flags closes outside Bollinger bands.
type MeanReversion struct {
	window     int
	multiplier float64
}

// BandReading is one bar's Bollinger bands.
type BandReading struct {
	Timestamp time.Time
	Close     float64
	Mean      float64
	Upper     float64
	Lower     float64
	Valid     bool
}

// NewMeanReversion creates a Bollinger band strategy with bands at
// mean ± multiplier × sample standard deviation over window closes.
func NewMeanReversion(window int, multiplier float64) (*MeanReversion, error) {
	if window <= 0 {
		return nil, fmt.Errorf("mean-reversion: window must be positive, got %d", window)
	}
	if multiplier <= 0 {
		return nil, fmt.Errorf("mean-reversion: std-dev multiplier must be positive, got %v", multiplier)
	}
	return &MeanReversion{window: window, multiplier: multiplier}, nil
}

// Name returns "mean-reversion".
func (m *MeanReversion) Name() string { return "mean-reversion" }

// MinBars is the band window.
func (m *MeanReversion) MinBars() int { return m.window }

// Bands computes the bands for every bar.
func (m *MeanReversion) Bands(series domain.Series) []BandReading {
	closes := series.Closes()
	mean := trailingMean(m.window, closes)
	std := trailingStd(m.window, closes)

	out := make([]BandReading, len(series))
	for i, b := range series {
		out[i] = BandReading{Timestamp: b.Timestamp, Close: b.Close}
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) {
			continue
		}
		out[i].Mean = mean[i]
		out[i].Upper = mean[i] + m.multiplier*std[i]
		out[i].Lower = mean[i] - m.multiplier*std[i]
		out[i].Valid = true
	}
	return out
}

// Flags marks closes below the lower band as ZoneLow and above the upper
// band as ZoneHigh.
func (m *MeanReversion) Flags(series domain.Series) []strategy.Flag {
	var flags []strategy.Flag
	for _, r := range m.Bands(series) {
		if !r.Valid {
			continue
		}
		var zone strategy.Zone
		switch {
		case r.Close < r.Lower:
			zone = strategy.ZoneLow
		case r.Close > r.Upper:
			zone = strategy.ZoneHigh
		default:
			continue
		}
		flags = append(flags, strategy.Flag{
			Timestamp: r.Timestamp,
			Price:     r.Close,
			Zone:      zone,
			Value:     r.Mean,
		})
	}
	return flags
}
