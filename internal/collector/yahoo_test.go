package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BreakoutScanner/internal/model"
)

const chartTemplate = `{"chart":{"result":[{"timestamp":[%d,%d,%d],
"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],"close":[10.5,null,12.5],"volume":[100,null,300]}]}}],"error":null}}`

func newTestServer(t *testing.T, fail map[string]bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		if fail[symbol] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		// newest first on purpose; the fetcher sorts
		fmt.Fprintf(w, chartTemplate, base+2*86400, base+86400, base)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestFetcher(url string) *YahooFetcher {
	return NewYahooFetcher(YahooOptions{BaseURL: url, RequestsPerSecond: 1000, MaxConcurrency: 2}, zap.NewNop())
}

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	srv, hits := newTestServer(t, nil)
	f := newTestFetcher(srv.URL)

	got, err := f.FetchDailyBars(context.Background(), []string{"AAPL", "MSFT", "NFLX"}, 365)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 3, hits.Load())

	s := got["MSFT"]
	require.Equal(t, 2, s.Len(), "null bar skipped")
	bars := s.Bars()
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	// with sorted timestamps the surviving bars map to the non-null quote slots
	assert.Equal(t, "MSFT", s.Symbol)
}

func TestYahooFetcher_BarWithoutCloseIsSkipped(t *testing.T) {
	base := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d],
"indicators":{"quote":[{"open":[10,10,11],"high":[11,11,12],"low":[9,9,10],"close":[10,10,null],"volume":[100,200,50]}]}}],"error":null}}`,
			base, base+86400, base+2*86400)
	}))
	t.Cleanup(srv.Close)

	got, err := newTestFetcher(srv.URL).FetchDailyBars(context.Background(), []string{"AAPL"}, 365)
	require.NoError(t, err)
	s := got["AAPL"]
	require.Equal(t, 2, s.Len())
	last, err := s.LastClose()
	require.NoError(t, err)
	assert.Equal(t, 10.0, last, "a bar with open/high/low but no close must not become a zero close")
}

func TestYahooFetcher_BatchIsAllOrNothing(t *testing.T) {
	srv, _ := newTestServer(t, map[string]bool{"BAD": true})
	f := newTestFetcher(srv.URL)

	got, err := f.FetchDailyBars(context.Background(), []string{"AAPL", "BAD"}, 365)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestYahooFetcher_CurrentPriceAndIntraday(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	f := newTestFetcher(srv.URL)

	p, err := f.FetchCurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10.5, p, "newest timestamp maps to the first quote slot")

	s, err := f.FetchIntraday(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	_, err = f.FetchIntraday(context.Background(), "AAPL", 0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestYahooFetcher_ContextCancelled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	f := newTestFetcher(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchDailyBars(ctx, []string{"AAPL"}, 30)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestDailyRange(t *testing.T) {
	assert.Equal(t, "1mo", dailyRange(30))
	assert.Equal(t, "1y", dailyRange(365))
	assert.Equal(t, "2y", dailyRange(400))
}

func TestYahooFetcher_SymbolMap(t *testing.T) {
	f := newTestFetcher("http://unused")
	assert.Equal(t, "^GSPC", f.yahooSymbol("SPX500"))
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL"))
}
