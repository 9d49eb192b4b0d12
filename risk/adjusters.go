package risk

import (
	"fmt"

	"github.com/rustyeddy/goldtrader/market"
)

// VolatilityAdjuster shrinks size in volatile markets and grows it in calm ones.
type VolatilityAdjuster struct {
	Multipliers  map[market.VolatilityLevel]float64
	ATRReference float64
}

func NewVolatilityAdjuster(atrReference float64) VolatilityAdjuster {
	return VolatilityAdjuster{
		Multipliers: map[market.VolatilityLevel]float64{
			market.VolVeryLow:  1.5,
			market.VolLow:      1.2,
			market.VolModerate: 1.0,
			market.VolHigh:     0.8,
			market.VolVeryHigh: 0.6,
		},
		ATRReference: atrReference,
	}
}

func (a VolatilityAdjuster) Adjust(lots float64, vol market.VolatilityLevel, atr float64) (float64, string) {
	m := lookupVol(a.Multipliers, vol, 1.0)
	if atr > 0 {
		m *= clamp(a.ATRReference/atr, 0.5, 2.0)
	}

	reason := fmt.Sprintf("%s volatility (ATR %.1f)", vol, atr)
	switch {
	case m > 1:
		reason += fmt.Sprintf(" - size up %.2fx", m)
	case m < 1:
		reason += fmt.Sprintf(" - size down %.2fx", m)
	}
	return lots * m, reason
}

// SessionProfile is the per-session sizing row.
type SessionProfile struct {
	BaseMultiplier float64
	MaxLotPerTrade float64
	VolumeShare    float64 // share of the daily volume target
}

// SessionSizer scales size by session liquidity and volume-target progress.
type SessionSizer struct {
	Profiles map[market.Session]SessionProfile
}

func NewSessionSizer() SessionSizer {
	return SessionSizer{
		Profiles: map[market.Session]SessionProfile{
			market.Asian:   {BaseMultiplier: 0.8, MaxLotPerTrade: 1.0, VolumeShare: 0.20},
			market.London:  {BaseMultiplier: 1.2, MaxLotPerTrade: 3.0, VolumeShare: 0.40},
			market.NewYork: {BaseMultiplier: 1.0, MaxLotPerTrade: 2.0, VolumeShare: 0.35},
			market.Overlap: {BaseMultiplier: 1.5, MaxLotPerTrade: 5.0, VolumeShare: 0.25},
		},
	}
}

func (s SessionSizer) Profile(session market.Session) SessionProfile {
	if p, ok := s.Profiles[session]; ok {
		return p
	}
	return s.Profiles[market.Asian]
}

func (s SessionSizer) Adjust(lots float64, session market.Session, dailyTarget, dailyVolume float64) (float64, string) {
	p := s.Profile(session)

	sized := lots * p.BaseMultiplier
	if sized > p.MaxLotPerTrade {
		sized = p.MaxLotPerTrade
	}

	sessionTarget := dailyTarget * p.VolumeShare
	remaining := sessionTarget - dailyVolume
	if sessionTarget > 0 && remaining > 0 {
		sized *= clamp(remaining/sessionTarget, 0, 2.0)
	} else {
		// Session volume already done.
		sized *= 0.5
	}

	return sized, fmt.Sprintf("%s session - %.1fx multiplier", session, p.BaseMultiplier)
}

// MaxRecoveryCount caps the recovery position count used for lookups.
const MaxRecoveryCount = 4

// RecoveryAdjuster shrinks new exposure while recoveries are open.
type RecoveryAdjuster struct {
	Multipliers   map[int]float64
	MethodFactors map[RecoveryMethod]float64
}

func NewRecoveryAdjuster() RecoveryAdjuster {
	return RecoveryAdjuster{
		Multipliers: map[int]float64{
			0: 1.0,
			1: 0.9,
			2: 0.8,
			3: 0.7,
			4: 0.6,
		},
		MethodFactors: map[RecoveryMethod]float64{
			// Martingale needs spare capital, grid needs many legs,
			// hedging needs paired legs.
			MartingaleSmart: 0.8,
			GridIntelligent: 0.9,
			HedgingAdvanced: 0.85,
		},
	}
}

// Multiplier returns the count multiplier for n recovery positions.
func (r RecoveryAdjuster) Multiplier(n int) float64 {
	if n < 0 {
		n = 0
	}
	if n > MaxRecoveryCount {
		n = MaxRecoveryCount
	}
	if m, ok := r.Multipliers[n]; ok {
		return m
	}
	return 0.5
}

func (r RecoveryAdjuster) Adjust(lots float64, positions int, method RecoveryMethod) (float64, string) {
	m := r.Multiplier(positions)
	if f, ok := r.MethodFactors[method]; ok {
		m *= f
	}
	return lots * m, fmt.Sprintf("recovery: %d positions, %.2fx multiplier", positions, m)
}
