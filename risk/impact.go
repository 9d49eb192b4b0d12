package risk

import "github.com/rustyeddy/goldtrader/market"

// MarketImpactCalculator buckets how much a lot size would move the market,
// given session liquidity and volatility.
type MarketImpactCalculator struct {
	// Upper bounds, in liquidity-adjusted lots, for each bucket below VERY_HIGH.
	Thresholds []impactThreshold
	Liquidity  map[market.Session]float64
	VolFactor  map[market.VolatilityLevel]float64
}

type impactThreshold struct {
	Below float64
	Level ImpactLevel
}

func NewMarketImpactCalculator() MarketImpactCalculator {
	return MarketImpactCalculator{
		Thresholds: []impactThreshold{
			{0.1, ImpactVeryLow},
			{0.5, ImpactLow},
			{2.0, ImpactModerate},
			{5.0, ImpactHigh},
		},
		Liquidity: map[market.Session]float64{
			market.Asian:   0.7,
			market.London:  1.0,
			market.NewYork: 1.2,
			market.Overlap: 1.5,
		},
		VolFactor: map[market.VolatilityLevel]float64{
			market.VolVeryLow:  1.2,
			market.VolLow:      1.1,
			market.VolModerate: 1.0,
			market.VolHigh:     0.9,
			market.VolVeryHigh: 0.8,
		},
	}
}

// Impact returns the bucket for lots.
func (m MarketImpactCalculator) Impact(lots float64, session market.Session, vol market.VolatilityLevel) ImpactLevel {
	liquidity := lookupSession(m.Liquidity, session, 1.0)
	adjusted := lots / liquidity * lookupVol(m.VolFactor, vol, 1.0)

	for _, th := range m.Thresholds {
		if adjusted < th.Below {
			return th.Level
		}
	}
	return ImpactVeryHigh
}

var impactScores = map[ImpactLevel]float64{
	ImpactVeryLow:  0.1,
	ImpactLow:      0.3,
	ImpactModerate: 0.5,
	ImpactHigh:     0.7,
	ImpactVeryHigh: 0.9,
}

// Score is the numeric impact in [0, 1].
func (l ImpactLevel) Score() float64 {
	if s, ok := impactScores[l]; ok {
		return s
	}
	return 0.5
}

// lookupSession reads a session table; QUIET and unknown sessions use the
// ASIAN row, and def applies when neither is present.
func lookupSession(table map[market.Session]float64, s market.Session, def float64) float64 {
	if v, ok := table[s]; ok {
		return v
	}
	if v, ok := table[market.Asian]; ok {
		return v
	}
	return def
}

func lookupVol(table map[market.VolatilityLevel]float64, v market.VolatilityLevel, def float64) float64 {
	if f, ok := table[v]; ok {
		return f
	}
	return def
}
