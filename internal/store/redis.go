package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"BreakoutScanner/internal/model"
)

const (
	redisKeyBars         = "bars:daily:%s"
	redisKeyRefreshDates = "bars:refresh_dates" // hash: ticker -> date
)

// RedisStore keeps each ticker's bars as one JSON value.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

func barsKey(ticker string) string {
	return fmt.Sprintf(redisKeyBars, strings.ToUpper(ticker))
}

func (r *RedisStore) ReadSeries(ctx context.Context, ticker string) (*model.PriceSeries, error) {
	raw, err := r.client.Get(ctx, barsKey(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", ticker, err)
	}
	var bars []model.OHLCV
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrNotFound)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

// ReplaceAll encodes everything up front, then writes bars and refresh dates
// in one MULTI/EXEC.
func (r *RedisStore) ReplaceAll(ctx context.Context, series map[string]*model.PriceSeries, refreshed time.Time) error {
	encoded := make(map[string][]byte, len(series))
	dates := make(map[string]interface{}, len(series))
	day := refreshed.Format(DateLayout)
	for ticker, ps := range series {
		data, err := json.Marshal(ps.Bars())
		if err != nil {
			return fmt.Errorf("encode %s: %w", ticker, err)
		}
		encoded[barsKey(ticker)] = data
		dates[strings.ToUpper(ticker)] = day
	}
	if len(encoded) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, key, data, 0)
		}
		pipe.HSet(ctx, redisKeyRefreshDates, dates)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi: %w", err)
	}
	return nil
}

func (r *RedisStore) RefreshDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	raw, err := r.client.HGet(ctx, redisKeyRefreshDates, strings.ToUpper(ticker)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get refresh date of %s: %w", ticker, err)
	}
	d, err := parseDate(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse refresh date %q: %w", raw, err)
	}
	return d, true, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
