package risk

import (
	"testing"

	"github.com/rustyeddy/goldtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   map[string]any
		want MarketConditions
	}{
		{
			name: "nil",
			in:   nil,
			want: DefaultConditions(),
		},
		{
			name: "typed values",
			in: map[string]any{
				"trend_strength":   "STRONG",
				"market_state":     "TRENDING",
				"volatility_level": "HIGH",
				"atr_value":        22.5,
				"near_key_level":   true,
			},
			want: MarketConditions{
				TrendStrength: market.TrendStrong,
				MarketState:   market.StateTrending,
				Volatility:    market.VolHigh,
				ATR:           22.5,
				NearKeyLevel:  true,
			},
		},
		{
			name: "loose values",
			in: map[string]any{
				"trend_strength":   "weak",
				"market_state":     "volatile",
				"volatility_level": "very_low",
				"atr_value":        "12",
				"near_key_level":   1,
			},
			want: MarketConditions{
				TrendStrength: market.TrendWeak,
				MarketState:   market.StateVolatile,
				Volatility:    market.VolVeryLow,
				ATR:           12,
				NearKeyLevel:  true,
			},
		},
		{
			name: "garbage keeps defaults",
			in: map[string]any{
				"trend_strength":   42,
				"market_state":     "sideways",
				"volatility_level": "extreme",
				"atr_value":        "n/a",
				"near_key_level":   "maybe",
			},
			want: DefaultConditions(),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseConditions(tt.in))
		})
	}
}

func TestConditionsFromSnapshot(t *testing.T) {
	t.Parallel()

	c := ConditionsFromSnapshot(market.Snapshot{ATR: 7})
	assert.Equal(t, market.TrendModerate, c.TrendStrength)
	assert.Equal(t, market.StateRanging, c.MarketState)
	assert.Equal(t, market.VolLow, c.Volatility)
	assert.InDelta(t, 7, c.ATR, 1e-12)

	c = ConditionsFromSnapshot(market.Snapshot{
		ATR: 7, Volatility: market.VolHigh, TrendStrength: market.TrendStrong,
		State: market.StateTrending, NearKeyLevel: true,
	})
	assert.Equal(t, market.VolHigh, c.Volatility)
	assert.True(t, c.NearKeyLevel)
}

func TestParseRecoveryContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseRecoveryContext(nil))

	rc := ParseRecoveryContext(map[string]any{
		"recovery_positions": "3",
		"recovery_method":    "grid_intelligent",
		"original_loss":      150,
		"recovery_task_id":   "t-9",
	})
	require.NotNil(t, rc)
	assert.Equal(t, 3, rc.Positions)
	assert.Equal(t, GridIntelligent, rc.Method)
	assert.InDelta(t, 150, rc.OriginalLoss, 1e-12)
	assert.Equal(t, "t-9", rc.TaskID)
	assert.True(t, rc.active())

	rc = ParseRecoveryContext(map[string]any{"recovery_method": "unknown"})
	assert.Equal(t, RecoveryNone, rc.Method)
	assert.False(t, rc.active())
}
