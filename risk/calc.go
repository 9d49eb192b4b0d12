package risk

import (
	"math"

	"github.com/rustyeddy/goldtrader/market"
)

// PlannedRisk computes the account-currency loss of lots if stop is hit.
func PlannedRisk(lots, entry, stop float64, meta market.InstrumentMeta, quoteToAccount float64) float64 {
	move := math.Abs(entry - stop)
	return math.Abs(lots) * move * meta.ContractSize * quoteToAccount
}

// RiskPerLot is the loss of one lot over stopPoints points.
func RiskPerLot(stopPoints float64, meta market.InstrumentMeta, quoteToAccount float64) float64 {
	return stopPoints * meta.PointValue * meta.ContractSize * quoteToAccount
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}

// TradePlan is the money at stake on an executed order. Risk fields are
// zero without a stop, and RewardRisk is zero without both a stop and a
// target.
type TradePlan struct {
	Lots        float64 `json:"lots"`
	Entry       float64 `json:"entry"`
	StopLoss    float64 `json:"stop_loss,omitempty"`
	TakeProfit  float64 `json:"take_profit,omitempty"`
	PlannedRisk float64 `json:"planned_risk"`
	RiskPct     float64 `json:"risk_pct"`
	RewardRisk  float64 `json:"reward_risk"`
}

func PlanTrade(lots, entry, stop, takeProfit float64, meta market.InstrumentMeta, quoteToAccount, equity float64) TradePlan {
	tp := TradePlan{Lots: lots, Entry: entry, StopLoss: stop, TakeProfit: takeProfit}
	if stop <= 0 {
		return tp
	}
	tp.PlannedRisk = PlannedRisk(lots, entry, stop, meta, quoteToAccount)
	if equity > 0 {
		tp.RiskPct = RiskPct(tp.PlannedRisk, equity)
	}
	if takeProfit > 0 {
		tp.RewardRisk = RR(entry, stop, takeProfit)
	}
	return tp
}
