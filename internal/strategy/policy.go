package strategy

import (
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// Policy converts flags into a SignalMap of fixed-size orders.
//
// A flag that carries its own Action is used as is. Otherwise the flag's Zone
// is mapped through OnLow / OnHigh; an empty mapping drops the flag.
type Policy struct {
	Quantity int64
	OnLow    domain.Action
	OnHigh   domain.Action
}

// MeanRevertingPolicy buys oversold / below-band bars and sells overbought /
// above-band bars.
func MeanRevertingPolicy(qty int64) Policy {
	return Policy{Quantity: qty, OnLow: domain.ActionBuy, OnHigh: domain.ActionSell}
}

// ActionPolicy only honours flags that already carry an Action.
func ActionPolicy(qty int64) Policy {
	return Policy{Quantity: qty}
}

// Action resolves the action for f, or "" when the flag is dropped.
func (p Policy) Action(f Flag) domain.Action {
	if f.Action.Valid() {
		return f.Action
	}
	switch f.Zone {
	case ZoneLow:
		return p.OnLow
	case ZoneHigh:
		return p.OnHigh
	}
	return ""
}

// Signals builds the signal map for flags. Flags are expected in bar order;
// for two flags on the same instant the later one wins.
func (p Policy) Signals(flags []Flag) domain.SignalMap {
	m := make(domain.SignalMap, len(flags))
	if p.Quantity <= 0 {
		return m
	}
	for _, f := range flags {
		a := p.Action(f)
		if !a.Valid() {
			continue
		}
		m.Put(domain.Signal{Timestamp: f.Timestamp, Action: a, Quantity: p.Quantity})
	}
	return m
}
