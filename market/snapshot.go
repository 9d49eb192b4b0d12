package market

import (
	"strings"
	"time"
)

type TrendStrength string

const (
	TrendStrong   TrendStrength = "STRONG"
	TrendModerate TrendStrength = "MODERATE"
	TrendWeak     TrendStrength = "WEAK"
)

func ParseTrendStrength(s string) TrendStrength {
	switch TrendStrength(strings.ToUpper(strings.TrimSpace(s))) {
	case TrendStrong:
		return TrendStrong
	case TrendWeak:
		return TrendWeak
	}
	return TrendModerate
}

type State string

const (
	StateTrending State = "TRENDING"
	StateRanging  State = "RANGING"
	StateVolatile State = "VOLATILE"
)

func ParseState(s string) State {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateTrending:
		return StateTrending
	case StateVolatile:
		return StateVolatile
	}
	return StateRanging
}

// Snapshot is the analyzer's current read of the market.
type Snapshot struct {
	Instrument    string
	Time          time.Time
	Price         float64
	ATR           float64
	ADX           float64
	Volatility    VolatilityLevel
	Session       Session
	TrendStrength TrendStrength
	State         State
	NearKeyLevel  bool
}
