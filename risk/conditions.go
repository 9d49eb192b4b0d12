package risk

import (
	"github.com/rustyeddy/goldtrader/market"
	"github.com/spf13/cast"
)

// MarketConditions is what the caller knows about the market when it asks
// for a size.
type MarketConditions struct {
	TrendStrength market.TrendStrength   `json:"trend_strength"`
	MarketState   market.State           `json:"market_state"`
	Volatility    market.VolatilityLevel `json:"volatility_level"`
	ATR           float64                `json:"atr_value"`
	NearKeyLevel  bool                   `json:"near_key_level"`
}

func DefaultConditions() MarketConditions {
	return MarketConditions{
		TrendStrength: market.TrendModerate,
		MarketState:   market.StateRanging,
		Volatility:    market.VolModerate,
	}
}

// ParseConditions reads the loosely typed mapping signal engines produce.
// Unknown or malformed values fall back to the defaults.
func ParseConditions(m map[string]any) MarketConditions {
	c := DefaultConditions()
	if m == nil {
		return c
	}
	if v, ok := m["trend_strength"]; ok {
		c.TrendStrength = market.ParseTrendStrength(cast.ToString(v))
	}
	if v, ok := m["market_state"]; ok {
		c.MarketState = market.ParseState(cast.ToString(v))
	}
	if v, ok := m["volatility_level"]; ok {
		if lvl, err := market.ParseVolatility(cast.ToString(v)); err == nil {
			c.Volatility = lvl
		}
	}
	if v, ok := m["atr_value"]; ok {
		if f, err := cast.ToFloat64E(v); err == nil {
			c.ATR = f
		}
	}
	if v, ok := m["near_key_level"]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			c.NearKeyLevel = b
		}
	}
	return c
}

// ConditionsFromSnapshot converts an analyzer snapshot.
func ConditionsFromSnapshot(s market.Snapshot) MarketConditions {
	c := MarketConditions{
		TrendStrength: s.TrendStrength,
		MarketState:   s.State,
		Volatility:    s.Volatility,
		ATR:           s.ATR,
		NearKeyLevel:  s.NearKeyLevel,
	}
	if c.TrendStrength == "" {
		c.TrendStrength = market.TrendModerate
	}
	if c.MarketState == "" {
		c.MarketState = market.StateRanging
	}
	if c.Volatility == "" {
		c.Volatility = market.ClassifyATR(s.ATR)
	}
	return c
}

// RecoveryContext describes an in-flight recovery the new position belongs to.
type RecoveryContext struct {
	Positions    int            `json:"recovery_positions"`
	Method       RecoveryMethod `json:"recovery_method,omitempty"`
	OriginalLoss float64        `json:"original_loss,omitempty"`
	TaskID       string         `json:"recovery_task_id,omitempty"`
}

func (rc *RecoveryContext) active() bool {
	return rc != nil && rc.Positions > 0
}

// ParseRecoveryContext reads the mapping form; nil in, nil out.
func ParseRecoveryContext(m map[string]any) *RecoveryContext {
	if m == nil {
		return nil
	}
	rc := &RecoveryContext{
		Positions:    cast.ToInt(m["recovery_positions"]),
		OriginalLoss: cast.ToFloat64(m["original_loss"]),
		TaskID:       cast.ToString(m["recovery_task_id"]),
	}
	if method, err := ParseRecoveryMethod(cast.ToString(m["recovery_method"])); err == nil {
		rc.Method = method
	}
	return rc
}
