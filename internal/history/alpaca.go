package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/config"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/util"
)

var _ Provider = (*AlpacaProvider)(nil)

// barsClient is the subset of *marketdata.Client the provider uses.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaProvider fetches daily bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client     barsClient
	feed       string
	limiter    *util.RateLimiter
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewAlpacaProvider creates a provider using the given credentials and
// request pacing.
func NewAlpacaProvider(creds config.Alpaca, hist config.History, log *slog.Logger) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
	}
	if creds.DataURL != "" {
		opts.BaseURL = creds.DataURL
	}
	return newAlpacaProvider(marketdata.NewClient(opts), creds.Feed, hist, log)
}

func newAlpacaProvider(client barsClient, feed string, hist config.History, log *slog.Logger) *AlpacaProvider {
	if log == nil {
		log = slog.Default()
	}
	perMin := hist.RateLimitPerMin
	if perMin <= 0 {
		perMin = 200
	}
	retries := hist.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &AlpacaProvider{
		client:     client,
		feed:       feed,
		limiter:    util.NewRateLimiter(perMin, max(1, perMin/10)),
		maxRetries: retries,
		retryDelay: time.Second,
		log:        log.With("provider", "alpaca"),
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// Bars requests daily bars for symbol, waiting on the rate limiter before
// each attempt.
func (p *AlpacaProvider) Bars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error) {
	symbol = strings.ToUpper(symbol)
	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	}
	if p.feed != "" {
		req.Feed = marketdata.Feed(p.feed)
	}

	var raw []marketdata.Bar
	err := util.Retry(ctx, p.log, "GetBars "+symbol, p.maxRetries, p.retryDelay, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		bars, err := p.client.GetBars(symbol, req)
		if err != nil {
			if !retryable(err) {
				return util.Permanent(err)
			}
			return err
		}
		raw = bars
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s from alpaca: %w", symbol, err)
	}

	p.log.Debug("fetched bars", "symbol", symbol, "count", len(raw))
	return normalize(fromAlpacaBars(symbol, raw)), nil
}

// retryable reports whether a failed request is worth another attempt.
// Everything except cancellation is treated as transient.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// fromAlpacaBars converts API bars to domain bars.
func fromAlpacaBars(symbol string, raw []marketdata.Bar) domain.Series {
	out := make(domain.Series, 0, len(raw))
	for _, ab := range raw {
		out = append(out, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp.UTC(),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return out
}
