package backtest

import (
	"math"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// ValidateSeries is the caller-side check run before handing a series to
// the engine. It rejects an empty series, a series shorter than minBars,
// missing (zero, negative or NaN) prices, negative volume, and timestamps
// that do not strictly increase. OHLC ordering (low <= open/close <= high)
// is deliberately not checked.
func ValidateSeries(series domain.Series, minBars int) error {
	if len(series) == 0 {
		return ErrNoData
	}
	if len(series) < minBars {
		return &InsufficientDataError{Have: len(series), Need: minBars}
	}

	for i, b := range series {
		for _, p := range [...]struct {
			name string
			v    float64
		}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}} {
			if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
				return &InvalidBarError{Index: i, Reason: "missing or non-positive " + p.name + " price"}
			}
		}
		if b.Volume < 0 {
			return &InvalidBarError{Index: i, Reason: "negative volume"}
		}
		if i > 0 && !b.Timestamp.After(series[i-1].Timestamp) {
			return &InvalidBarError{Index: i, Reason: "timestamp not after previous bar"}
		}
	}
	return nil
}
