package risk

import "github.com/shopspring/decimal"

// Lot arithmetic goes through decimal so 0.07 stays 0.07. Inputs are first
// rounded to 8 places to shed float noise such as 0.19999999999999998.

func stepCount(lots, step float64) decimal.Decimal {
	return decimal.NewFromFloat(lots).Round(8).Div(decimal.NewFromFloat(step))
}

// roundLot rounds half-up to the nearest lot step.
func roundLot(lots, step float64) float64 {
	if step <= 0 {
		return lots
	}
	v, _ := stepCount(lots, step).Round(0).Mul(decimal.NewFromFloat(step)).Float64()
	return v
}

// floorLot rounds down to the lot step.
func floorLot(lots, step float64) float64 {
	if step <= 0 {
		return lots
	}
	v, _ := stepCount(lots, step).Floor().Mul(decimal.NewFromFloat(step)).Float64()
	return v
}

func round(x float64, places int32) float64 {
	v, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
