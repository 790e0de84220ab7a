// Package scanner runs one analysis pass over a ticker list.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/session"
	"BreakoutScanner/internal/strategy"
)

const (
	DefaultConsolidationPct = 2.5
	DefaultLookback         = 15
)

// DailySource supplies daily series for a batch of tickers.
type DailySource interface {
	Load(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error)
}

// Options configures the consolidation screen.
type Options struct {
	ConsolidationPct float64
	Lookback         int
}

// Row is one ticker's outcome. Err is set when the ticker could not be scored;
// the other rows of the pass are unaffected.
type Row struct {
	Ticker        string
	Score         *model.Score
	LastDayChange *float64
	Consolidating bool
	Breaking      bool
	Err           error
}

// Scanner scores, screens and ranks tickers.
type Scanner struct {
	source  DailySource
	cutover session.Cutover
	clock   session.Clock
	opts    Options
	logger  *zap.Logger
}

func New(source DailySource, cutover session.Cutover, clock session.Clock, opts Options, logger *zap.Logger) *Scanner {
	if clock == nil {
		clock = session.SystemClock
	}
	return &Scanner{source: source, cutover: cutover, clock: clock, opts: opts, logger: logger}
}

func (o Options) validate() error {
	if math.IsNaN(o.ConsolidationPct) || o.ConsolidationPct < 0 {
		return fmt.Errorf("%w: consolidation percentage %v", model.ErrInvalidInput, o.ConsolidationPct)
	}
	if o.Lookback < 1 {
		return fmt.Errorf("%w: lookback %d", model.ErrInvalidInput, o.Lookback)
	}
	return nil
}

// Run loads the tickers and returns rows ordered by score, highest first.
// Rows that could not be scored sort last, by ticker.
func (s *Scanner) Run(ctx context.Context, tickers []string) ([]Row, error) {
	if err := s.opts.validate(); err != nil {
		return nil, err
	}
	series, err := s.source.Load(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("load daily bars: %w", err)
	}

	now := s.clock()
	rows := make([]Row, 0, len(series))
	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		if seen[t] {
			continue
		}
		seen[t] = true
		ps, ok := series[t]
		if !ok {
			rows = append(rows, Row{Ticker: t, Err: fmt.Errorf("%w: no bars for %s", model.ErrDataUnavailable, t)})
			continue
		}
		rows = append(rows, s.analyze(ps, now))
	}

	sortRows(rows)
	s.logger.Info("scan complete", zap.Int("tickers", len(rows)))
	return rows, nil
}

func (s *Scanner) analyze(ps *model.PriceSeries, now time.Time) Row {
	row := Row{Ticker: ps.Symbol}

	score, err := strategy.Evaluate(ps)
	if err != nil {
		s.logger.Debug("ticker not scored", zap.String("ticker", ps.Symbol), zap.Error(err))
		row.Err = err
	} else {
		row.Score = score
	}

	if chg, err := calculator.LastDayChangePercent(ps, s.cutover, now); err == nil {
		row.LastDayChange = &chg
	}

	cons, err := calculator.IsConsolidating(ps, s.opts.ConsolidationPct, s.opts.Lookback)
	if err == nil {
		row.Consolidating = cons
	} else if !errors.Is(err, model.ErrInsufficientHistory) {
		s.logger.Warn("consolidation check failed", zap.String("ticker", ps.Symbol), zap.Error(err))
	}

	brk, err := calculator.IsBreakingConsolidation(ps, s.opts.ConsolidationPct, s.opts.Lookback)
	if err == nil {
		row.Breaking = brk
	} else if !errors.Is(err, model.ErrInsufficientHistory) {
		s.logger.Warn("breakout check failed", zap.String("ticker", ps.Symbol), zap.Error(err))
	}
	return row
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && a.Score.Value != b.Score.Value:
			return a.Score.Value > b.Score.Value
		}
		return a.Ticker < b.Ticker
	})
}

// Detail is the per-ticker SMA listing.
type Detail struct {
	Ticker        string
	LastClose     float64
	SMAs          map[int]float64 // windows without enough history are absent
	LastDayChange *float64
}

// Detail loads one ticker and lists its SMAs and last-day change.
func (s *Scanner) Detail(ctx context.Context, ticker string) (*Detail, error) {
	series, err := s.source.Load(ctx, []string{ticker})
	if err != nil {
		return nil, fmt.Errorf("load daily bars: %w", err)
	}
	ps, ok := series[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: no bars for %s", model.ErrDataUnavailable, ticker)
	}
	last, err := ps.LastClose()
	if err != nil {
		return nil, err
	}

	d := &Detail{Ticker: ticker, LastClose: last, SMAs: make(map[int]float64, len(calculator.SMAPeriods))}
	for _, p := range calculator.SMAPeriods {
		if v, err := calculator.SMA(ps, p); err == nil {
			d.SMAs[p] = v
		}
	}
	if chg, err := calculator.LastDayChangePercent(ps, s.cutover, s.clock()); err == nil {
		d.LastDayChange = &chg
	}
	return d, nil
}
