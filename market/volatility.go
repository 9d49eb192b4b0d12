package market

import (
	"fmt"
	"strings"
)

// VolatilityLevel buckets ATR (in points) for XAUUSD.
type VolatilityLevel string

const (
	VolVeryLow  VolatilityLevel = "VERY_LOW"
	VolLow      VolatilityLevel = "LOW"
	VolModerate VolatilityLevel = "MODERATE"
	VolHigh     VolatilityLevel = "HIGH"
	VolVeryHigh VolatilityLevel = "VERY_HIGH"
)

func ParseVolatility(s string) (VolatilityLevel, error) {
	v := VolatilityLevel(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case VolVeryLow, VolLow, VolModerate, VolHigh, VolVeryHigh:
		return v, nil
	}
	return "", fmt.Errorf("unknown volatility level %q", s)
}

// IsHigh reports HIGH or VERY_HIGH.
func (v VolatilityLevel) IsHigh() bool {
	return v == VolHigh || v == VolVeryHigh
}

// ClassifyATR maps an ATR value to a volatility bucket:
// <5 very low, <10 low, <20 moderate, <30 high, otherwise very high.
func ClassifyATR(atr float64) VolatilityLevel {
	switch {
	case atr < 5:
		return VolVeryLow
	case atr < 10:
		return VolLow
	case atr < 20:
		return VolModerate
	case atr < 30:
		return VolHigh
	default:
		return VolVeryHigh
	}
}
