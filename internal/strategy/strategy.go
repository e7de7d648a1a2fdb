// Package strategy defines the Strategy interface for signal generators,
// the Policy that turns their flags into executable signals, and a Registry
// for looking strategies up by name.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
)

// Strategy is implemented by every signal generator. Implementations are
// pure: Flags reads the series and returns new values, never mutating
// shared state.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// MinBars is the number of bars needed before the first valid reading.
	MinBars() int

	// Flags scans the whole series once and returns the bars the strategy
	// fires on, in bar order.
	Flags(series domain.Series) []Flag
}

// Zone is the side of an oscillator or band a flagged bar sits on.
type Zone int

const (
	ZoneNone Zone = iota
	// ZoneLow is oversold / below the lower band.
	ZoneLow
	// ZoneHigh is overbought / above the upper band.
	ZoneHigh
)

func (z Zone) String() string {
	switch z {
	case ZoneLow:
		return "low"
	case ZoneHigh:
		return "high"
	default:
		return "none"
	}
}

// Flag marks a bar a strategy fired on. Crossover and wick strategies set
// Action directly; oscillator and band strategies only report the Zone and
// leave the direction to a Policy.
type Flag struct {
	Timestamp time.Time
	Price     float64
	Action    domain.Action
	Zone      Zone
	// Value is the indicator reading that caused the flag (RSI, wick ratio,
	// fast SMA, ...).
	Value float64
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name(). Registering
// the same name twice is an error.
func (r *Registry) Register(s Strategy) error {
	if _, dup := r.strategies[s.Name()]; dup {
		return fmt.Errorf("strategy %q already registered", s.Name())
	}
	r.strategies[s.Name()] = s
	return nil
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
