package risk

import "time"

// Warning is a coded note attached to a result when a limit changed the size.
type Warning struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

const (
	WarnAdjusted           = "ADJUSTED"
	WarnMinLot             = "MIN_LOT"
	WarnMarginLimit        = "MARGIN_LIMIT"
	WarnMarginInsufficient = "MARGIN_INSUFFICIENT"
	WarnDailyRiskLimit     = "DAILY_RISK_LIMIT"
	WarnDailyRiskExhausted = "DAILY_RISK_EXHAUSTED"
	WarnAbsoluteMax        = "ABSOLUTE_MAX"
	WarnFallback           = "FALLBACK"
)

// SizingResult is the sizer's recommendation. It is a value; callers get
// their own copy.
type SizingResult struct {
	Time          time.Time      `json:"time"`
	EntryStrategy EntryStrategy  `json:"entry_strategy"`
	Method        SizingStrategy `json:"sizing_method"`

	RecommendedLotSize float64 `json:"recommended_lot_size"`
	MaxLotSize         float64 `json:"max_lot_size"`
	MinLotSize         float64 `json:"min_lot_size"`

	RiskAmount     float64 `json:"risk_amount"`
	MarginRequired float64 `json:"margin_required"`

	ConfidenceScore float64 `json:"confidence_score"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`

	Reasoning         string      `json:"reasoning"`
	Warnings          []Warning   `json:"warnings"`
	MarketImpact      ImpactLevel `json:"market_impact"`
	MarketImpactScore float64     `json:"market_impact_score"`

	SuggestedSlippage float64 `json:"suggested_slippage"`
	UrgencyLevel      int     `json:"urgency_level"`

	Fallback bool `json:"fallback"`
}

// HasWarning reports whether a warning with code is attached.
func (r SizingResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

const (
	FallbackLotSize    = 0.1
	FallbackConfidence = 30.0
)

func fallbackResult(now time.Time, entry EntryStrategy) SizingResult {
	return SizingResult{
		Time:               now,
		EntryStrategy:      entry,
		Method:             FixedLot,
		RecommendedLotSize: FallbackLotSize,
		MaxLotSize:         0.2,
		MinLotSize:         0.01,
		RiskAmount:         100,
		MarginRequired:     100,
		ConfidenceScore:    FallbackConfidence,
		RiskRewardRatio:    1.0,
		Reasoning:          "fallback sizing due to calculation error",
		Warnings:           []Warning{{Code: WarnFallback, Msg: "using default size after an error"}},
		MarketImpact:       ImpactModerate,
		MarketImpactScore:  ImpactModerate.Score(),
		SuggestedSlippage:  2.0,
		UrgencyLevel:       1,
		Fallback:           true,
	}
}
