package risk

import (
	"fmt"
	"math"
)

// limitDecision collects what the limit pass did to a lot size.
type limitDecision struct {
	Lots     float64
	Ceiling  float64 // margin/risk/absolute ceiling in force
	Warnings []Warning
}

func (d *limitDecision) add(code, msg string) {
	d.Warnings = append(d.Warnings, Warning{Code: code, Msg: msg})
}

// applyLimits clamps lots to the minimum lot, free margin, remaining daily
// risk and the absolute maximum, then rounds to the lot step without
// crossing the ceiling. The result is never below MinLot; when the ceiling
// itself is below MinLot a MARGIN_INSUFFICIENT warning is attached.
func applyLimits(lots float64, p SizingParameters, pol Policy) limitDecision {
	original := lots
	d := limitDecision{Lots: lots, Ceiling: pol.MaxLot}

	if d.Lots < pol.MinLot {
		d.Lots = pol.MinLot
		d.add(WarnMinLot, fmt.Sprintf("raised to minimum lot %.2f", pol.MinLot))
	}

	marginCap := math.Max(0, p.FreeMargin) / p.MarginPerLot
	d.Ceiling = math.Min(d.Ceiling, marginCap)
	if d.Lots > marginCap {
		d.Lots = marginCap
		d.add(WarnMarginLimit, fmt.Sprintf("limited by free margin: %.2f lots", marginCap))
	}

	remaining := p.MaxDailyRisk - p.CurrentDailyRisk
	if remaining > 0 {
		riskCap := math.Max(0, remaining*p.AccountEquity) / pol.RiskPerLot
		d.Ceiling = math.Min(d.Ceiling, riskCap)
		if d.Lots > riskCap {
			d.Lots = riskCap
			d.add(WarnDailyRiskLimit, fmt.Sprintf("limited by daily risk: %.2f lots", riskCap))
		}
	} else {
		d.Lots = pol.MinLot
		d.Ceiling = math.Min(d.Ceiling, pol.MinLot)
		d.add(WarnDailyRiskExhausted, "daily risk used up - minimum lot only")
	}

	if d.Lots > pol.MaxLot {
		d.Lots = pol.MaxLot
		d.add(WarnAbsoluteMax, fmt.Sprintf("limited by absolute maximum: %.2f lots", pol.MaxLot))
	}

	d.Lots = roundLot(d.Lots, pol.LotStep)
	if d.Lots > d.Ceiling {
		d.Lots = floorLot(d.Ceiling, pol.LotStep)
	}
	if d.Lots < pol.MinLot {
		d.Lots = pol.MinLot
		if d.Ceiling < pol.MinLot {
			d.add(WarnMarginInsufficient, fmt.Sprintf("ceiling %.4f lots is below the minimum lot", d.Ceiling))
		}
	}

	if math.Abs(d.Lots-original) > 1e-9 {
		d.Warnings = append([]Warning{{
			Code: WarnAdjusted,
			Msg:  fmt.Sprintf("adjusted from %.2f to %.2f lots", original, d.Lots),
		}}, d.Warnings...)
	}
	return d
}
