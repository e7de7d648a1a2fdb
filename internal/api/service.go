package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/backtest"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/store"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy"
	"github.com/Protrader1988/protrader-terminal-fullstack/internal/strategy/builtins"
)

// errBadRequest marks caller mistakes: missing fields, bad dates, unknown
// strategies.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Defaults fill in request fields the caller leaves out.
type Defaults struct {
	InitialCash float64
	Quantity    int64
	// Lookback is the range used when no start date is given.
	Lookback time.Duration
	Confirm  *backtest.VolumeFilter
}

// Service runs and looks up backtests. It backs both the HTTP and the gRPC
// front ends. runs and equity may be nil, in which case nothing is
// persisted and lookups report not found.
type Service struct {
	registry *strategy.Registry
	runner   *backtest.Runner
	runs     store.RunStore
	equity   store.EquityStore
	defaults Defaults
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires a Service.
func NewService(registry *strategy.Registry, runner *backtest.Runner, runs store.RunStore, equity store.EquityStore, defaults Defaults, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if defaults.Lookback <= 0 {
		defaults.Lookback = 365 * 24 * time.Hour
	}
	return &Service{
		registry: registry,
		runner:   runner,
		runs:     runs,
		equity:   equity,
		defaults: defaults,
		log:      log.With("component", "api"),
		now:      time.Now,
	}
}

// Strategies returns the registered strategy names, sorted.
func (s *Service) Strategies() []string { return s.registry.List() }

// RunBacktest validates req, runs it, and persists the result.
func (s *Service) RunBacktest(ctx context.Context, req BacktestRequest) (*RunJSON, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, badRequest("symbol is required")
	}
	strat, ok := s.registry.Get(req.Strategy)
	if !ok {
		return nil, badRequest("unknown strategy %q", req.Strategy)
	}
	if req.InitialCash < 0 || req.Quantity < 0 {
		return nil, badRequest("initial_cash and quantity must not be negative")
	}

	end := s.now().UTC()
	if req.End != "" {
		t, err := parseDate(req.End)
		if err != nil {
			return nil, badRequest("end: %v", err)
		}
		end = t
	}
	start := end.Add(-s.defaults.Lookback)
	if req.Start != "" {
		t, err := parseDate(req.Start)
		if err != nil {
			return nil, badRequest("start: %v", err)
		}
		start = t
	}
	if !start.Before(end) {
		return nil, badRequest("start %s is not before end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	qty := req.Quantity
	if qty == 0 {
		qty = s.defaults.Quantity
	}
	cash := req.InitialCash
	if cash == 0 {
		cash = s.defaults.InitialCash
	}

	res, err := s.runner.Run(ctx, backtest.Job{
		Symbol:      symbol,
		Start:       start,
		End:         end,
		Strategy:    strat,
		Policy:      builtins.PolicyFor(strat, qty),
		InitialCash: cash,
		Confirm:     s.defaults.Confirm,
	})
	if err != nil {
		return nil, err
	}

	run := &store.Run{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Strategy:    strat.Name(),
		Start:       start,
		End:         end,
		InitialCash: cash,
		FinalCash:   res.FinalCash,
		Report:      res.Report,
		Trades:      res.Trades,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.persist(ctx, run, res.Equity); err != nil {
		return nil, err
	}

	out := convertRun(run, res.Equity)
	return &out, nil
}

// persist writes the equity curve first; a run is only listed once its curve
// is stored.
func (s *Service) persist(ctx context.Context, run *store.Run, equity []domain.EquityPoint) error {
	if s.equity != nil {
		if err := s.equity.WriteEquity(ctx, run.ID, equity); err != nil {
			return fmt.Errorf("saving equity curve: %w", err)
		}
	}
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
	}
	return nil
}

// GetRun returns a stored run with its trades and, when stored, its equity
// curve.
func (s *Service) GetRun(ctx context.Context, id string) (*RunJSON, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	var equity []domain.EquityPoint
	if s.equity != nil {
		equity, err = s.equity.ReadEquity(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("reading equity curve", "run", id, "error", err)
		}
	}
	out := convertRun(run, equity)
	return &out, nil
}

// ListRuns returns recent run summaries.
func (s *Service) ListRuns(ctx context.Context, symbol string, limit int) ([]RunJSON, error) {
	if s.runs == nil {
		return []RunJSON{}, nil
	}
	runs, err := s.runs.ListRuns(ctx, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunJSON, 0, len(runs))
	for i := range runs {
		out = append(out, convertRun(&runs[i], nil))
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t.UTC(), nil
}

// httpStatus maps a service error to its HTTP status.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, backtest.ErrNoData), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backtest.ErrInsufficientData), errors.Is(err, backtest.ErrInvalidBar):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
