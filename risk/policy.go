package risk

// Hard lot bounds. No policy can size outside them.
const (
	MinLotFloor   = 0.01
	MaxLotCeiling = 10.0
)

// Policy holds the sizer's fixed constants. They come from config and do not
// change between refreshes.
type Policy struct {
	DefaultStrategy SizingStrategy

	FixedLot float64 // FIXED_LOT size and base for table-driven strategies
	MinLot   float64
	MaxLot   float64 // absolute ceiling
	LotStep  float64

	// RiskPerLot is the account-currency loss of one lot at the assumed stop
	// distance. 1000 points on XAUUSD is $1000 per lot.
	RiskPerLot float64

	// VOLATILITY_BASED sizes to VolatilityBudget / ATR.
	VolatilityBudget float64
	// The volatility adjuster scales by ATRReference / ATR.
	ATRReference float64

	// VOLUME_TARGET is picked while more than this share of the daily
	// target is still open.
	VolumeTargetShare float64

	// MaxSuggestedLot caps the upper bound reported with a result.
	MaxSuggestedLot float64
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultStrategy:   MarketConditionsS,
		FixedLot:          0.1,
		MinLot:            0.01,
		MaxLot:            10.0,
		LotStep:           0.01,
		RiskPerLot:        1000,
		VolatilityBudget:  200,
		ATRReference:      20,
		VolumeTargetShare: 0.8,
		MaxSuggestedLot:   5.0,
	}
}

// Bounded returns the policy with its lot limits pulled inside
// [MinLotFloor, MaxLotCeiling].
func (p Policy) Bounded() Policy {
	p.MinLot = clamp(p.MinLot, MinLotFloor, MaxLotCeiling)
	p.MaxLot = clamp(p.MaxLot, p.MinLot, MaxLotCeiling)
	if p.LotStep <= 0 {
		p.LotStep = MinLotFloor
	}
	if p.MaxSuggestedLot <= 0 || p.MaxSuggestedLot > p.MaxLot {
		p.MaxSuggestedLot = p.MaxLot
	}
	return p
}
