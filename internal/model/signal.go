package model

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string
	SMA        float64
	RawScore   float64 // fraction of the weight awarded, 0.1 ~ 1.0
	Weight     float64
	Weighted   float64
	Commentary string
}

// Score is a ticker's trend score for one pass, 0 ~ 100.
type Score struct {
	Symbol       string
	CurrentPrice float64
	Factors      []FactorScore
	Value        float64
}
