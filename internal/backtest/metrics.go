package backtest

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// TradingDaysPerYear annualizes Sharpe ratios regardless of the bar
// interval.
const TradingDaysPerYear = 252

// tailProbability is the left-tail mass used for VaR / CVaR.
const tailProbability = 0.05

// ComputeMetrics derives the report from an equity curve and trade log.
func ComputeMetrics(equity []domain.EquityPoint, trades []domain.Trade, initialCash float64) domain.Report {
	r := domain.Report{TotalTrades: len(trades)}
	if len(equity) == 0 {
		return r
	}

	r.TotalReturn = (equity[len(equity)-1].Equity - initialCash) / initialCash

	returns := PeriodReturns(equity)
	r.SharpeRatio = Sharpe(returns)
	r.MaxDrawdown = MaxDrawdown(equity)
	r.VaR95, r.CVaR95 = TailRisk(returns, tailProbability)
	r.WinRate = WinRate(trades)
	return r
}

// PeriodReturns returns e[i]/e[i-1] - 1 for consecutive points. A step whose
// previous equity is zero has no defined return and is left out.
func PeriodReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

// Sharpe is mean/stddev × √252 using the sample standard deviation. It is 0
// with fewer than two returns or when every return is the same.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 || floats.Max(returns) == floats.Min(returns) {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if !(std > 0) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

// ExcessSharpe is the Sharpe ratio of returns in excess of an annual
// risk-free rate spread evenly over 252 periods.
func ExcessSharpe(returns []float64, riskFreeRate float64) float64 {
	daily := riskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}
	return Sharpe(excess)
}

// MaxDrawdown is the largest fractional fall from a running peak, as a
// positive number. Points under a non-positive peak are ignored.
func MaxDrawdown(equity []domain.EquityPoint) float64 {
	var peak, worst float64
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// TailRisk returns the p-quantile of returns (VaR) and the mean of the
// returns at or below it (CVaR). The quantile interpolates linearly between
// closest ranks: h = (n-1)p, q = x[⌊h⌋] + (h-⌊h⌋)(x[⌊h⌋+1]-x[⌊h⌋]).
// Both values are 0 for an empty series; an empty tail is defined as 0.
func TailRisk(returns []float64, p float64) (valueAtRisk, conditional float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	valueAtRisk = quantile(sorted, p)

	var sum float64
	n := 0
	for _, r := range sorted {
		if r > valueAtRisk {
			break
		}
		sum += r
		n++
	}
	if n == 0 {
		return valueAtRisk, 0
	}
	return valueAtRisk, sum / float64(n)
}

// quantile expects sorted input.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// WinRate is the share of SELL trades priced above the trade immediately
// before them in the log. That neighbour is usually, but not necessarily,
// the BUY the SELL closes.
func WinRate(trades []domain.Trade) float64 {
	sells, wins := 0, 0
	for i, t := range trades {
		if t.Action != domain.ActionSell {
			continue
		}
		sells++
		if i > 0 && t.Price > trades[i-1].Price {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}

// StressTest scales every return by (1 + shock); a shock of -0.2 shrinks
// each move by a fifth. The input is not modified.
func StressTest(returns []float64, shock float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r * (1 + shock)
	}
	return out
}
