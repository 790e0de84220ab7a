package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"BreakoutScanner/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooOptions tunes the Yahoo fetcher.
type YahooOptions struct {
	BaseURL           string
	ProxyURL          string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxConcurrency    int
}

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// The chart endpoint serves one symbol per call, so a batch is a bounded fan-out
// behind a shared rate limiter that commits only when every symbol succeeded.
type YahooFetcher struct {
	BaseURL        string
	Client         *http.Client
	SymbolMap      map[string]string // maps internal symbol to Yahoo ticker
	limiter        *rate.Limiter
	maxConcurrency int
	logger         *zap.Logger
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts YahooOptions, logger *zap.Logger) *YahooFetcher {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = yahooBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &YahooFetcher{
		BaseURL: strings.TrimRight(opts.BaseURL, "/"),
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		limiter:        rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxConcurrency: opts.MaxConcurrency,
		logger:         logger,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) interface{} {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("yahoo rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if at(quote.Close, i) == nil {
			continue // no settled close (holidays, in-progress session)
		}
		o := toFloat(at(quote.Open, i))
		h := toFloat(at(quote.High, i))
		l := toFloat(at(quote.Low, i))
		c := toFloat(at(quote.Close, i))
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toFloat(at(quote.Volume, i)),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// dailyRange picks the smallest Yahoo range that covers the requested calendar days.
func dailyRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

// FetchDailyBars fetches all tickers concurrently and fails the whole batch on the first error.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, tickers []string, periodDays int) (map[string]*model.PriceSeries, error) {
	if len(tickers) == 0 {
		return map[string]*model.PriceSeries{}, nil
	}
	rng := dailyRange(periodDays)

	var mu sync.Mutex
	out := make(map[string]*model.PriceSeries, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrency)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			bars, err := f.fetchChart(gctx, ticker, "1d", rng)
			if err != nil {
				return fmt.Errorf("%s: %w", ticker, err)
			}
			mu.Lock()
			out[ticker] = model.NewPriceSeries(ticker, bars)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Warn("daily batch fetch failed", zap.Int("tickers", len(tickers)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	return out, nil
}

func (f *YahooFetcher) FetchIntraday(ctx context.Context, ticker string, intervalMinutes int) (*model.PriceSeries, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("%w: interval %d minutes", model.ErrInvalidInput, intervalMinutes)
	}
	bars, err := f.fetchChart(ctx, ticker, fmt.Sprintf("%dm", intervalMinutes), "1d")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

func (f *YahooFetcher) FetchCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	bars, err := f.fetchChart(ctx, ticker, "1d", "1d")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: yahoo: no price data for %s", model.ErrDataUnavailable, ticker)
	}
	return bars[len(bars)-1].Close, nil
}

// Ping checks that the Yahoo host answers at all.
func (f *YahooFetcher) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.BaseURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	resp.Body.Close()
	return nil
}
