package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
)

var _ Provider = (*CachingProvider)(nil)

// edgeSlack is how far the first or last stored bar may sit from the
// requested bounds and still count as covering them: a long weekend plus a
// holiday.
const edgeSlack = 4 * 24 * time.Hour

// span is a range already fetched from upstream.
type span struct{ start, end time.Time }

// CachingProvider serves bars from the local store when the stored series
// covers the requested range, and otherwise fetches the range from upstream
// and writes it through.
type CachingProvider struct {
	local    *StoreProvider
	bars     store.BarStore
	market   string
	upstream Provider
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	fetched map[string][]span
}

// NewCachingProvider layers bars in front of upstream.
func NewCachingProvider(bars store.BarStore, market string, upstream Provider, log *slog.Logger) *CachingProvider {
	if log == nil {
		log = slog.Default()
	}
	return &CachingProvider{
		local:    NewStoreProvider(bars, market),
		bars:     bars,
		market:   market,
		upstream: upstream,
		log:      log.With("provider", "cached"),
		now:      time.Now,
		fetched:  make(map[string][]span),
	}
}

func (p *CachingProvider) Name() string { return "cached(" + p.upstream.Name() + ")" }

// Bars returns stored bars when they cover [start, end], otherwise fetches
// the whole range from upstream and writes it through. A failed
// write-through is logged and does not fail the request.
func (p *CachingProvider) Bars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	symbol = strings.ToUpper(symbol)
	series, err := p.local.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if p.covers(symbol, series, start, end) {
		p.log.Debug("cache hit", "symbol", symbol, "bars", len(series))
		return series, nil
	}

	cached := len(series)
	series, err = p.upstream.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("cache miss for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return series, nil
	}
	if err := p.bars.WriteBars(ctx, p.market, series); err != nil {
		p.log.Warn("write-through failed", "symbol", symbol, "error", err)
	} else {
		p.remember(symbol, start, end)
		p.log.Info("cached bars", "symbol", symbol, "bars", len(series), "previouslyCached", cached)
	}
	return series, nil
}

// covers reports whether series, read from the store, can stand in for an
// upstream fetch of [start, end]. Either its first and last bars reach the
// bounds, or the range lies inside one this provider already fetched.
func (p *CachingProvider) covers(symbol string, series domain.Series, start, end time.Time) bool {
	if len(series) == 0 {
		return false
	}
	if now := p.now(); end.After(now) {
		end = now
	}
	first, last := series[0].Timestamp, series[len(series)-1].Timestamp
	if !first.After(start.Add(edgeSlack)) && !last.Before(end.Add(-edgeSlack)) {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.fetched[symbol] {
		if !start.Before(s.start) && !end.After(s.end) {
			return true
		}
	}
	return false
}

func (p *CachingProvider) remember(symbol string, start, end time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched[symbol] = append(p.fetched[symbol], span{start: start, end: end})
}
