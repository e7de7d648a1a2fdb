package builtins

import (
	"math"

	"github.com/cinar/indicator"
	"gonum.org/v1/gonum/stat"
)

// trailingMean returns the simple moving average of values over period,
// with NaN for indices that do not yet have a full window.
func trailingMean(period int, values []float64) []float64 {
	out := indicator.Sma(period, values)
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// trailingStd returns the sample (n-1) standard deviation over period, NaN
// before the window is full. A window of one has no spread and yields 0.
func trailingStd(period int, values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		if period < 2 {
			out[i] = 0
			continue
		}
		out[i] = stat.StdDev(values[i-period+1:i+1], nil)
	}
	return out
}
