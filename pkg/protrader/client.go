// Package protrader is a Go client for the protrader-server HTTP API.
package protrader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Report holds the performance and risk metrics of a run.
type Report struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	VaR95       float64 `json:"var_95"`
	CVaR95      float64 `json:"cvar_95"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
}

// Trade is an executed order.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
}

// EquityPoint is the account value after one bar.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Run is a backtest result. Trades and Equity are empty in listings.
type Run struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Strategy    string        `json:"strategy"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	InitialCash float64       `json:"initial_cash"`
	FinalCash   float64       `json:"final_cash"`
	Report      Report        `json:"report"`
	CreatedAt   time.Time     `json:"created_at"`
	Trades      []Trade       `json:"trades,omitempty"`
	Equity      []EquityPoint `json:"equity,omitempty"`
}

// BacktestRequest describes a run. Zero Start/End, InitialCash and Quantity
// fall back to server defaults.
type BacktestRequest struct {
	Symbol      string
	Strategy    string
	Start       time.Time
	End         time.Time
	InitialCash float64
	Quantity    int64
}

type backtestBody struct {
	Symbol      string  `json:"symbol"`
	Strategy    string  `json:"strategy"`
	Start       string  `json:"start,omitempty"`
	End         string  `json:"end,omitempty"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	Quantity    int64   `json:"quantity,omitempty"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("protrader api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Client provides a Go SDK for interacting with the protrader-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new protrader API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// ListStrategies returns the names of the strategies the server can run.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var resp struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// RunBacktest runs a backtest on the server and returns the stored run.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*Run, error) {
	body := backtestBody{
		Symbol:      req.Symbol,
		Strategy:    req.Strategy,
		InitialCash: req.InitialCash,
		Quantity:    req.Quantity,
	}
	if !req.Start.IsZero() {
		body.Start = req.Start.Format(time.DateOnly)
	}
	if !req.End.IsZero() {
		body.End = req.End.Format(time.DateOnly)
	}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtests", body, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches a stored run by ID.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/api/v1/backtests/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns recent runs, optionally for one symbol. A zero limit uses
// the server default.
func (c *Client) ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/backtests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Runs []Run `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
