package strategy

import (
	"github.com/cinar/indicator"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// ConfirmVolume keeps only the flags that land on a volume surge: bar volume
// greater than multiple times the mean volume of the trailing window ending
// at that bar. Bars without a full window never confirm.
func ConfirmVolume(series domain.Series, flags []Flag, window int, multiple float64) []Flag {
	if window <= 0 || len(flags) == 0 {
		return nil
	}

	volumes := series.Volumes()
	avg := indicator.Sma(window, volumes)
	surge := make(map[int64]bool, len(series))
	for i := window - 1; i < len(series); i++ {
		if volumes[i] > multiple*avg[i] {
			surge[series[i].Timestamp.UnixNano()] = true
		}
	}

	var out []Flag
	for _, f := range flags {
		if surge[f.Timestamp.UnixNano()] {
			out = append(out, f)
		}
	}
	return out
}
