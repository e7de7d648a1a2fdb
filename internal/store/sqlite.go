package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Protrader1988/protrader-terminal-fullstack/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	symbol       TEXT    NOT NULL,
	strategy     TEXT    NOT NULL,
	start_ns     INTEGER NOT NULL,
	end_ns       INTEGER NOT NULL,
	initial_cash REAL    NOT NULL,
	final_cash   REAL    NOT NULL,
	total_return REAL    NOT NULL,
	sharpe_ratio REAL    NOT NULL,
	max_drawdown REAL    NOT NULL,
	var_95       REAL    NOT NULL,
	cvar_95      REAL    NOT NULL,
	win_rate     REAL    NOT NULL,
	total_trades INTEGER NOT NULL,
	created_ns   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_symbol_created ON runs (symbol, created_ns);
CREATE TABLE IF NOT EXISTS run_trades (
	run_id   TEXT    NOT NULL REFERENCES runs (id),
	seq      INTEGER NOT NULL,
	ts_ns    INTEGER NOT NULL,
	action   TEXT    NOT NULL,
	price    REAL    NOT NULL,
	quantity INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps an in-memory database on a single
	// connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run summary and its trades in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r := run.Report
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, symbol, strategy, start_ns, end_ns, initial_cash, final_cash,
		total_return, sharpe_ratio, max_drawdown, var_95, cvar_95, win_rate,
		total_trades, created_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Strategy, run.Start.UnixNano(), run.End.UnixNano(),
		run.InitialCash, run.FinalCash,
		r.TotalReturn, r.SharpeRatio, r.MaxDrawdown, r.VaR95, r.CVaR95, r.WinRate,
		r.TotalTrades, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_trades (run_id, seq, ts_ns, action, price, quantity) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, t := range run.Trades {
		if _, err := stmt.ExecContext(ctx, run.ID, i, t.Timestamp.UnixNano(), string(t.Action), t.Price, t.Quantity); err != nil {
			return fmt.Errorf("inserting trade %d of run %s: %w", i, run.ID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, symbol, strategy, start_ns, end_ns, initial_cash, final_cash,
	total_return, sharpe_ratio, max_drawdown, var_95, cvar_95, win_rate,
	total_trades, created_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                        Run
		startNs, endNs, createdNs int64
	)
	err := row.Scan(
		&run.ID, &run.Symbol, &run.Strategy, &startNs, &endNs, &run.InitialCash, &run.FinalCash,
		&run.Report.TotalReturn, &run.Report.SharpeRatio, &run.Report.MaxDrawdown,
		&run.Report.VaR95, &run.Report.CVaR95, &run.Report.WinRate,
		&run.Report.TotalTrades, &createdNs,
	)
	if err != nil {
		return Run{}, err
	}
	run.Start = time.Unix(0, startNs).UTC()
	run.End = time.Unix(0, endNs).UTC()
	run.CreatedAt = time.Unix(0, createdNs).UTC()
	return run, nil
}

// GetRun returns the run with its trade log, or ErrNotFound.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ts_ns, action, price, quantity FROM run_trades WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading trades for run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t      domain.Trade
			tsNs   int64
			action string
		)
		if err := rows.Scan(&tsNs, &action, &t.Price, &t.Quantity); err != nil {
			return nil, err
		}
		t.Timestamp = time.Unix(0, tsNs).UTC()
		t.Action = domain.Action(action)
		run.Trades = append(run.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit run summaries, newest first. Trades are not
// loaded. A non-positive limit defaults to 50.
func (s *SQLiteStore) ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_ns DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
