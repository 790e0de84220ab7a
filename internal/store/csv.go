package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"BreakoutScanner/internal/model"
)

const refreshFile = "refresh.json"

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// CSVStore writes one <TICKER>.csv per ticker plus a refresh.json record of
// each ticker's refresh date.
type CSVStore struct {
	dir    string
	mu     sync.Mutex
	rename func(oldpath, newpath string) error
}

type refreshState struct {
	Dates     map[string]string `json:"dates"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: csv dir is empty", model.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &CSVStore{dir: dir, rename: os.Rename}, nil
}

func (c *CSVStore) Name() string { return "csv" }

func (c *CSVStore) path(ticker string) string {
	return filepath.Join(c.dir, strings.ToUpper(ticker)+".csv")
}

func (c *CSVStore) ReadSeries(_ context.Context, ticker string) (*model.PriceSeries, error) {
	file, err := os.Open(c.path(ticker))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) <= 1 {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}

	bars := make([]model.OHLCV, 0, len(records)-1)
	for i, rec := range records[1:] {
		b, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ticker, i+1, err)
		}
		bars = append(bars, b)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

func parseRow(rec []string) (model.OHLCV, error) {
	if len(rec) < len(csvHeader) {
		return model.OHLCV{}, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(rec))
	}
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return model.OHLCV{}, err
	}
	vals := make([]float64, 5)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return model.OHLCV{}, err
		}
	}
	return model.OHLCV{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

func writeCSV(path string, ps *model.PriceSeries) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		file.Close()
		return err
	}
	for _, b := range ps.Bars() {
		row := []string{
			b.Time.Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			file.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// fileSwap is one staged file and how far its commit got.
type fileSwap struct {
	tmp, final string
	backedUp   bool
	placed     bool
}

// ReplaceAll stages every <TICKER>.csv and the updated refresh.json as .tmp
// files, then commits them together.
func (c *CSVStore) ReplaceAll(ctx context.Context, series map[string]*model.PriceSeries, refreshed time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(series) == 0 {
		return nil
	}

	state, err := c.readState()
	if err != nil {
		return err
	}
	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var swaps []fileSwap
	discard := func() {
		for _, sw := range swaps {
			os.Remove(sw.tmp)
		}
	}
	day := refreshed.Format(DateLayout)
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			discard()
			return err
		}
		sw := fileSwap{tmp: c.path(ticker) + ".tmp", final: c.path(ticker)}
		swaps = append(swaps, sw)
		if err := writeCSV(sw.tmp, series[ticker]); err != nil {
			discard()
			return fmt.Errorf("write %s: %w", ticker, err)
		}
		state.Dates[strings.ToUpper(ticker)] = day
	}

	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		discard()
		return err
	}
	record := filepath.Join(c.dir, refreshFile)
	swaps = append(swaps, fileSwap{tmp: record + ".tmp", final: record})
	if err := os.WriteFile(record+".tmp", data, 0o644); err != nil {
		discard()
		return fmt.Errorf("write refresh record: %w", err)
	}
	return c.commit(swaps)
}

// commit moves existing files aside to .bak, renames the staged files into
// place and drops the backups. Any failure restores the backups, so the
// directory holds either every new file or none of them.
func (c *CSVStore) commit(swaps []fileSwap) error {
	rollback := func() {
		for i := len(swaps) - 1; i >= 0; i-- {
			sw := swaps[i]
			if sw.placed {
				os.Remove(sw.final)
			}
			if sw.backedUp {
				os.Rename(sw.final+".bak", sw.final)
			}
			os.Remove(sw.tmp)
		}
	}

	for i := range swaps {
		sw := &swaps[i]
		_, err := os.Stat(sw.final)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err == nil {
			err = c.rename(sw.final, sw.final+".bak")
		}
		if err != nil {
			rollback()
			return fmt.Errorf("back up %s: %w", filepath.Base(sw.final), err)
		}
		sw.backedUp = true
	}
	for i := range swaps {
		sw := &swaps[i]
		if err := c.rename(sw.tmp, sw.final); err != nil {
			rollback()
			return fmt.Errorf("rename %s: %w", filepath.Base(sw.final), err)
		}
		sw.placed = true
	}
	for _, sw := range swaps {
		if sw.backedUp {
			os.Remove(sw.final + ".bak")
		}
	}
	return nil
}

func (c *CSVStore) readState() (refreshState, error) {
	st := refreshState{Dates: map[string]string{}}
	data, err := os.ReadFile(filepath.Join(c.dir, refreshFile))
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("decode refresh state: %w", err)
	}
	if st.Dates == nil {
		st.Dates = map[string]string{}
	}
	return st, nil
}

func (c *CSVStore) RefreshDate(_ context.Context, ticker string) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.readState()
	if err != nil {
		return time.Time{}, false, err
	}
	raw, ok := st.Dates[strings.ToUpper(ticker)]
	if !ok || raw == "" {
		return time.Time{}, false, nil
	}
	d, err := parseDate(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse refresh date %q: %w", raw, err)
	}
	return d, true, nil
}

func (c *CSVStore) Close() error { return nil }
