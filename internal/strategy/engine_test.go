package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScanner/internal/model"
)

func seriesWithLast(n int, base, last float64) *model.PriceSeries {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := base
		if i == n-1 {
			c = last
		}
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return model.NewPriceSeries("T", bars)
}

func TestTrendScore_AboveAllSMAs(t *testing.T) {
	s := seriesWithLast(250, 100, 120)
	got, err := TrendScore(s)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestTrendScore_NeedsTwoHundredBars(t *testing.T) {
	_, err := TrendScore(seriesWithLast(199, 100, 100))
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)

	_, err = TrendScore(model.NewPriceSeries("E", nil))
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}

func TestTrendScore_FlatSeriesIsAtEverySMA(t *testing.T) {
	got, err := TrendScore(seriesWithLast(200, 50, 50))
	require.NoError(t, err)
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestEvaluateSMAs_MixedFactors(t *testing.T) {
	smas := map[int]float64{20: 90, 50: 100, 100: 110, 200: 95}
	s := EvaluateSMAs("MIX", 100, smas)
	require.Len(t, s.Factors, 4)

	// 0.4*1 + 0.1*0.8 + 0.2*0.5 + 0.3*1
	assert.InDelta(t, 88.0, s.Value, 1e-9)
	assert.Equal(t, "SMA20", s.Factors[0].Name)
	assert.Equal(t, 0.8, s.Factors[1].RawScore)
	assert.Equal(t, 0.5, s.Factors[2].RawScore)
}

func TestProximityScore_PinnedTiers(t *testing.T) {
	tests := []struct {
		name       string
		price, sma float64
		want       float64
	}{
		{"above", 101, 100, 1.0},
		{"equal", 100, 100, 0.8},
		// below the SMA the distance metric is negative, so the first tier matches
		{"slightly below", 99.99, 100, 0.5},
		{"far below", 10, 100, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := proximityScore(tt.price, tt.sma, 0.4)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProximityScore_DistanceTierTable(t *testing.T) {
	// The distance tiers are only reachable with a negative price, where
	// (price-sma)*price is positive. This pins the table ordering, including the
	// unreachable < 0.04 branch: 0.045 lands in the < 0.05 tier.
	tests := []struct {
		distance float64
		want     float64
	}{
		{0.005, 0.5},
		{0.015, 0.4},
		{0.035, 0.3},
		{0.045, 0.3},
		{0.07, 0.2},
		{0.5, 0.1},
	}
	for _, tt := range tests {
		price, sma := priceForDistance(tt.distance)
		got, _ := proximityScore(price, sma, 1)
		assert.Equal(t, tt.want, got, "distance %v", tt.distance)
	}
}

// priceForDistance picks price=-1 and solves ((p-sma)*p)/100 = d for sma.
func priceForDistance(d float64) (price, sma float64) {
	price = -1
	// (p - sma) * p = 100d  =>  sma = p - 100d/p
	sma = price - 100*d/price
	return price, sma
}
