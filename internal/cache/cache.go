// Package cache serves daily bars per ticker, refreshing from the market data
// source at most once per calendar day.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"BreakoutScanner/internal/collector"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/session"
	"BreakoutScanner/internal/store"
)

// DefaultPeriodDays is how much daily history a refresh requests.
const DefaultPeriodDays = 365

// ProgressFunc is called after each ticker is read or persisted.
type ProgressFunc func(done, total int)

// Cache decides whether stored bars are fresh and refreshes them as one batch.
type Cache struct {
	fetcher    collector.Fetcher
	store      store.Store
	cutover    session.Cutover
	clock      session.Clock
	periodDays int
	progress   ProgressFunc
	logger     *zap.Logger

	hot *gocache.Cache
	mu  sync.Mutex
}

type Option func(*Cache)

func WithClock(clock session.Clock) Option { return func(c *Cache) { c.clock = clock } }

func WithPeriodDays(days int) Option { return func(c *Cache) { c.periodDays = days } }

func WithProgress(fn ProgressFunc) Option { return func(c *Cache) { c.progress = fn } }

func WithLogger(logger *zap.Logger) Option { return func(c *Cache) { c.logger = logger } }

// New creates a Cache over fetcher and st.
func New(fetcher collector.Fetcher, st store.Store, cutover session.Cutover, opts ...Option) *Cache {
	c := &Cache{
		fetcher:    fetcher,
		store:      st,
		cutover:    cutover,
		clock:      session.SystemClock,
		periodDays: DefaultPeriodDays,
		progress:   func(int, int) {},
		logger:     zap.NewNop(),
		hot:        gocache.New(12*time.Hour, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func hotKey(day, ticker string) string { return day + "|" + ticker }

// Load returns one series per ticker. It refreshes every requested ticker in a
// single batch when any of them was never refreshed, was last refreshed before
// today, or has nothing stored; otherwise it reads from storage without touching
// the network. Refresh dates are kept per ticker, so loading a subset today does
// not make the rest of the list look fresh.
func (c *Cache) Load(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tickers = dedupe(tickers)
	today := c.cutover.Today(c.clock()).Format(store.DateLayout)

	out, reason := c.readFresh(ctx, tickers, today)
	if out != nil {
		return out, nil
	}
	c.logger.Info("refreshing daily bars",
		zap.String("reason", reason), zap.Int("tickers", len(tickers)), zap.String("source", c.fetcher.Name()))
	return c.refresh(ctx, tickers, today)
}

// Refresh fetches and persists every ticker regardless of freshness.
func (c *Cache) Refresh(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx, dedupe(tickers), c.cutover.Today(c.clock()).Format(store.DateLayout))
}

// LoadStored returns whatever a previous refresh left in storage, ignoring its age.
// Tickers with nothing stored are omitted.
func (c *Cache) LoadStored(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error) {
	out := make(map[string]*model.PriceSeries, len(tickers))
	for _, t := range dedupe(tickers) {
		ps, err := c.store.ReadSeries(ctx, t)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[t] = ps
	}
	return out, nil
}

// readFresh returns nil and the reason when a refresh is needed.
func (c *Cache) readFresh(ctx context.Context, tickers []string, today string) (map[string]*model.PriceSeries, string) {
	out := make(map[string]*model.PriceSeries, len(tickers))
	for i, t := range tickers {
		if v, found := c.hot.Get(hotKey(today, t)); found {
			out[t] = v.(*model.PriceSeries)
			c.progress(i+1, len(tickers))
			continue
		}
		last, ok, err := c.store.RefreshDate(ctx, t)
		switch {
		case err != nil:
			c.logger.Warn("read refresh date failed", zap.String("ticker", t), zap.Error(err))
			return nil, t + " refresh date unreadable"
		case !ok:
			return nil, t + " never refreshed"
		case last.Format(store.DateLayout) != today:
			return nil, t + " refreshed on " + last.Format(store.DateLayout)
		}
		ps, err := c.store.ReadSeries(ctx, t)
		if errors.Is(err, model.ErrNotFound) {
			return nil, t + " has no stored bars"
		}
		if err != nil {
			c.logger.Warn("read stored bars failed", zap.String("ticker", t), zap.Error(err))
			return nil, t + " unreadable"
		}
		c.hot.SetDefault(hotKey(today, t), ps)
		out[t] = ps
		c.progress(i+1, len(tickers))
	}
	return out, ""
}

func (c *Cache) refresh(ctx context.Context, tickers []string, today string) (map[string]*model.PriceSeries, error) {
	if len(tickers) == 0 {
		return map[string]*model.PriceSeries{}, nil
	}
	fetched, err := c.fetcher.FetchDailyBars(ctx, tickers, c.periodDays)
	if err != nil {
		if !errors.Is(err, model.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
		}
		return nil, err
	}

	batch := make(map[string]*model.PriceSeries, len(tickers))
	var missing []string
	for _, t := range tickers {
		ps, ok := fetched[t]
		if !ok || ps.Len() == 0 {
			missing = append(missing, t)
			continue
		}
		batch[t] = model.NewPriceSeries(t, ps.Bars())
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: partial batch, no bars for %v", model.ErrDataUnavailable, missing)
	}

	day, err := time.Parse(store.DateLayout, today)
	if err != nil {
		return nil, err
	}
	if err := c.store.ReplaceAll(ctx, batch, day); err != nil {
		c.logger.Error("persist daily bars failed", zap.String("store", c.store.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrCacheWriteFailed, err)
	}

	c.hot.Flush()
	for i, t := range tickers {
		c.hot.SetDefault(hotKey(today, t), batch[t])
		c.progress(i+1, len(tickers))
	}
	c.logger.Info("daily bars refreshed", zap.Int("tickers", len(batch)), zap.String("date", today))
	return batch, nil
}

func dedupe(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
