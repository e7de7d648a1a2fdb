package builtins

import (
	"fmt"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

// NewDefaultRegistry registers the four built-in strategies with the
// configured parameters.
func NewDefaultRegistry(cfg config.Strategies) (*strategy.Registry, error) {
	sma, err := NewSMACross(cfg.SMACross.Fast, cfg.SMACross.Slow)
	if err != nil {
		return nil, err
	}
	mom, err := NewMomentum(cfg.Momentum.Period, cfg.Momentum.Oversold, cfg.Momentum.Overbought)
	if err != nil {
		return nil, err
	}
	mr, err := NewMeanReversion(cfg.MeanReversion.Window, cfg.MeanReversion.StdDev)
	if err != nil {
		return nil, err
	}
	wick, err := NewWickRejection(cfg.Wick.Threshold)
	if err != nil {
		return nil, err
	}

	r := strategy.NewRegistry()
	for _, s := range []strategy.Strategy{sma, mom, mr, wick} {
		if err := r.Register(s); err != nil {
			return nil, fmt.Errorf("registering builtins: %w", err)
		}
	}
	return r, nil
}

// PolicyFor returns the stock policy for a built-in strategy: crossover and
// wick strategies trade their own actions, oscillator and band strategies
// buy low and sell high.
func PolicyFor(s strategy.Strategy, qty int64) strategy.Policy {
	switch s.(type) {
	case *Momentum, *MeanReversion:
		return strategy.MeanRevertingPolicy(qty)
	default:
		return strategy.ActionPolicy(qty)
	}
}
