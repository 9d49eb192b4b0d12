package risk

import (
	"fmt"
	"strings"
)

// SizingStrategy picks how the base lot size is derived.
type SizingStrategy string

const (
	FixedLot          SizingStrategy = "FIXED_LOT"
	CapitalPercentage SizingStrategy = "CAPITAL_PERCENTAGE"
	VolatilityBased   SizingStrategy = "VOLATILITY_BASED"
	VolumeTarget      SizingStrategy = "VOLUME_TARGET"
	SessionBased      SizingStrategy = "SESSION_BASED"
	RecoveryAdaptive  SizingStrategy = "RECOVERY_ADAPTIVE"
	MarketConditionsS SizingStrategy = "MARKET_CONDITIONS"
)

var SizingStrategies = []SizingStrategy{
	FixedLot, CapitalPercentage, VolatilityBased, VolumeTarget,
	SessionBased, RecoveryAdaptive, MarketConditionsS,
}

func ParseSizingStrategy(s string) (SizingStrategy, error) {
	v := SizingStrategy(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range SizingStrategies {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown sizing strategy %q", s)
}

// EntryStrategy tags the signal engine asking for a size.
type EntryStrategy string

const (
	EntryTrendFollowing EntryStrategy = "TREND_FOLLOWING"
	EntryMeanReversion  EntryStrategy = "MEAN_REVERSION"
	EntryBreakoutFalse  EntryStrategy = "BREAKOUT_FALSE"
	EntryNewsReaction   EntryStrategy = "NEWS_REACTION"
	EntryScalpingFast   EntryStrategy = "SCALPING_FAST"
	EntryGrid           EntryStrategy = "GRID_ENTRY"
	EntryAutoSelect     EntryStrategy = "AUTO_SELECT"
)

var EntryStrategies = []EntryStrategy{
	EntryTrendFollowing, EntryMeanReversion, EntryBreakoutFalse, EntryNewsReaction,
	EntryScalpingFast, EntryGrid, EntryAutoSelect,
}

func ParseEntryStrategy(s string) (EntryStrategy, error) {
	v := EntryStrategy(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EntryStrategies {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown entry strategy %q", s)
}

// RecoveryMethod is the loss-mitigation technique an active recovery uses.
type RecoveryMethod string

const (
	RecoveryNone         RecoveryMethod = ""
	MartingaleSmart      RecoveryMethod = "MARTINGALE_SMART"
	GridIntelligent      RecoveryMethod = "GRID_INTELLIGENT"
	HedgingAdvanced      RecoveryMethod = "HEDGING_ADVANCED"
	AveragingIntelligent RecoveryMethod = "AVERAGING_INTELLIGENT"
	CorrelationRecovery  RecoveryMethod = "CORRELATION_RECOVERY"
	QuickRecovery        RecoveryMethod = "QUICK_RECOVERY"
	ConservativeRecovery RecoveryMethod = "CONSERVATIVE_RECOVERY"
)

var RecoveryMethods = []RecoveryMethod{
	MartingaleSmart, GridIntelligent, HedgingAdvanced, AveragingIntelligent,
	CorrelationRecovery, QuickRecovery, ConservativeRecovery,
}

func ParseRecoveryMethod(s string) (RecoveryMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RecoveryNone, nil
	}
	v := RecoveryMethod(strings.ToUpper(s))
	for _, known := range RecoveryMethods {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown recovery method %q", s)
}

// ImpactLevel is the qualitative market-impact bucket of a lot size.
type ImpactLevel string

const (
	ImpactVeryLow  ImpactLevel = "VERY_LOW"
	ImpactLow      ImpactLevel = "LOW"
	ImpactModerate ImpactLevel = "MODERATE"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactVeryHigh ImpactLevel = "VERY_HIGH"
)

// Category and Severity tag log events; they carry no control flow.
type Category string

const (
	CategorySizing     Category = "SIZING"
	CategoryMarketData Category = "MARKET_DATA"
	CategoryRecovery   Category = "RECOVERY"
	CategoryData       Category = "DATA"
	CategorySystem     Category = "SYSTEM"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)
