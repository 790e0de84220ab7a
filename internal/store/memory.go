package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BreakoutScanner/internal/model"
)

// MemoryStore is a process-local Store. FailWrites makes ReplaceAll fail without
// touching stored data.
type MemoryStore struct {
	mu        sync.RWMutex
	series    map[string]*model.PriceSeries
	refreshed map[string]time.Time

	FailWrites error
	Writes     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		series:    make(map[string]*model.PriceSeries),
		refreshed: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) ReadSeries(_ context.Context, ticker string) (*model.PriceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps, ok := m.series[ticker]
	if !ok || ps.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}
	return ps, nil
}

func (m *MemoryStore) ReplaceAll(_ context.Context, series map[string]*model.PriceSeries, refreshed time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	day, err := parseDate(refreshed.Format(DateLayout))
	if err != nil {
		return err
	}
	for t, ps := range series {
		m.series[t] = ps
		m.refreshed[t] = day
	}
	m.Writes++
	return nil
}

func (m *MemoryStore) RefreshDate(_ context.Context, ticker string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.refreshed[ticker]
	return d, ok, nil
}

// Delete drops a ticker's series, emulating an emptied storage location.
func (m *MemoryStore) Delete(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.series, ticker)
}

func (m *MemoryStore) Close() error { return nil }
