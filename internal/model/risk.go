package model

// Direction is the trade side implied by the risk candle sign.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// RiskCandleSource records which measurement served as the risk candle.
type RiskCandleSource string

const (
	SourceGap         RiskCandleSource = "GAP"
	SourceFirstCandle RiskCandleSource = "FIRST_CANDLE"
	SourceManual      RiskCandleSource = "MANUAL"
)

// RiskResult is the position sizing outcome for one request.
// CurrentPrice and every price-derived field are nil together.
type RiskResult struct {
	Ticker      string
	Source      RiskCandleSource
	RiskCandle  float64 // signed
	RiskDollars float64
	ShareCount  float64
	Direction   Direction

	CurrentPrice    *float64
	TransactionSize *float64
	StopLoss        *float64
	ProfitTargets   *[3]float64 // 1x, 2x, 3x the risk candle
}

// RiskCandleSize is the unsigned risk candle magnitude.
func (r *RiskResult) RiskCandleSize() float64 {
	if r.RiskCandle < 0 {
		return -r.RiskCandle
	}
	return r.RiskCandle
}

// HasPrice reports whether price-derived fields are populated.
func (r *RiskResult) HasPrice() bool {
	return r.CurrentPrice != nil
}
