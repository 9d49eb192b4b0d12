package risk

import (
	"math"

	"github.com/rustyeddy/goldtrader/market"
)

// Inputs describe a stop-based sizing request.
type Inputs struct {
	Equity         float64
	RiskPct        float64 // 0.02
	EntryPrice     float64
	StopPrice      float64
	QuoteToAccount float64 // XAUUSD in a USD account -> 1.0
	Instrument     market.InstrumentMeta
}

type Result struct {
	Lots       float64
	StopPoints float64
	RiskAmount float64
}

// SizeForStop sizes a position so that hitting the stop loses RiskPct of
// equity. Lots are floored to the instrument lot step.
func SizeForStop(in Inputs) Result {
	meta := in.Instrument
	stopPoints := math.Abs(in.EntryPrice-in.StopPrice) / meta.PointValue
	riskAmt := in.Equity * in.RiskPct

	perLot := RiskPerLot(stopPoints, meta, in.QuoteToAccount)
	if perLot <= 0 {
		return Result{StopPoints: stopPoints, RiskAmount: riskAmt}
	}

	return Result{
		Lots:       floorLot(riskAmt/perLot, meta.LotStep),
		StopPoints: stopPoints,
		RiskAmount: riskAmt,
	}
}
