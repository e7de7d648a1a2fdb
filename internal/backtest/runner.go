package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
)

// BarSource supplies the historical series for a run.
type BarSource interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) (domain.Series, error)
}

// VolumeFilter restricts flags to volume surges; see strategy.ConfirmVolume.
type VolumeFilter struct {
	Window   int
	Multiple float64
}

// Job is one backtest: a symbol and date range run through one strategy.
type Job struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Strategy strategy.Strategy
	Policy   strategy.Policy

	// InitialCash overrides RunnerConfig.InitialCash when positive.
	InitialCash float64
	// Confirm, when set, drops flags not backed by a volume surge.
	Confirm *VolumeFilter
}

// Outcome pairs a Job with its result or failure.
type Outcome struct {
	Job     Job
	Result  *Result
	Err     error
	Elapsed time.Duration
}

// RunnerConfig holds the parameters shared by every job.
type RunnerConfig struct {
	InitialCash float64
	// MinBars is the floor on series length; a strategy needing more bars
	// raises it.
	MinBars    int
	Workers    int
	RunTimeout time.Duration
}

// Runner fetches history, generates signals, and drives the Engine.
type Runner struct {
	source BarSource
	engine *Engine
	cfg    RunnerConfig
	log    *slog.Logger
}

// NewRunner creates a Runner reading bars from source.
func NewRunner(source BarSource, engine *Engine, cfg RunnerConfig, log *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		source: source,
		engine: engine,
		cfg:    cfg,
		log:    log.With("component", "backtest-runner"),
	}
}

// Run fetches the job's bars and runs it under the configured timeout.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	series, err := r.source.Bars(ctx, job.Symbol, job.Start, job.End)
	if err != nil {
		return nil, fmt.Errorf("loading bars for %s: %w", job.Symbol, err)
	}
	return r.RunSeries(ctx, series, job)
}

// RunSeries runs job over an already loaded series.
func (r *Runner) RunSeries(ctx context.Context, series domain.Series, job Job) (*Result, error) {
	if job.Strategy == nil {
		return nil, fmt.Errorf("job for %s has no strategy", job.Symbol)
	}
	name := job.Strategy.Name()

	need := max(r.cfg.MinBars, job.Strategy.MinBars())
	if err := ValidateSeries(series, need); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", job.Symbol, name, err)
	}

	flags := job.Strategy.Flags(series)
	if job.Confirm != nil {
		flags = strategy.ConfirmVolume(series, flags, job.Confirm.Window, job.Confirm.Multiple)
	}
	signals := job.Policy.Signals(flags)

	cash := r.cfg.InitialCash
	if job.InitialCash > 0 {
		cash = job.InitialCash
	}

	res, err := r.engine.Run(ctx, series, cash, signals)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", job.Symbol, name, err)
	}
	if !res.Report.Finite() {
		return nil, fmt.Errorf("%s/%s: %w: %+v", job.Symbol, name, ErrComputation, res.Report)
	}

	r.log.Info("backtest finished",
		"symbol", job.Symbol,
		"strategy", name,
		"bars", len(series),
		"flags", len(flags),
		"trades", res.Report.TotalTrades,
		"totalReturn", res.Report.TotalReturn,
	)
	return res, nil
}

// Sweep runs jobs on up to Workers goroutines. Each job has its own engine
// state and timeout; a failed job is recorded in its Outcome and does not
// stop the others. Outcomes are returned in job order.
func (r *Runner) Sweep(ctx context.Context, jobs []Job) []Outcome {
	out := make([]Outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			start := time.Now()
			res, err := r.Run(ctx, job)
			out[i] = Outcome{Job: job, Result: res, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				r.log.Warn("backtest failed", "symbol", job.Symbol, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
