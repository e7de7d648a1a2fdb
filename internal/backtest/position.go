package backtest

import (
	"github.com/shopspring/decimal"
)

// position is the simulated account for one run. Cash is kept as a decimal
// so a long run of fills does not accumulate binary rounding error.
type position struct {
	cash   decimal.Decimal
	shares int64
}

func newPosition(initialCash float64) *position {
	return &position{cash: decimal.NewFromFloat(initialCash)}
}

// buy fills qty shares at price if the cash covers the full cost.
func (p *position) buy(price float64, qty int64) bool {
	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(p.cash) {
		return false
	}
	p.cash = p.cash.Sub(cost)
	p.shares += qty
	return true
}

// sell fills qty shares at price if that many shares are held.
func (p *position) sell(price float64, qty int64) bool {
	if p.shares < qty {
		return false
	}
	p.shares -= qty
	p.cash = p.cash.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty)))
	return true
}

// equity marks the position to market at price.
func (p *position) equity(price float64) float64 {
	return p.cash.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(p.shares))).InexactFloat64()
}

func (p *position) cashFloat() float64 {
	return p.cash.InexactFloat64()
}
