package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/goldtrader/market"
)

// SizingParameters is the account/market snapshot the sizer works from. It is
// replaced wholesale on every refresh.
type SizingParameters struct {
	// Account
	AccountBalance float64 `json:"account_balance" yaml:"account_balance"`
	AccountEquity  float64 `json:"account_equity" yaml:"account_equity"`
	FreeMargin     float64 `json:"free_margin" yaml:"free_margin"`

	// Risk, as fractions of equity
	MaxRiskPerTrade  float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxDailyRisk     float64 `json:"max_daily_risk" yaml:"max_daily_risk"`
	CurrentDailyRisk float64 `json:"current_daily_risk" yaml:"current_daily_risk"`

	// Volume, in lots
	DailyVolumeTarget     float64 `json:"daily_volume_target" yaml:"daily_volume_target"`
	CurrentDailyVolume    float64 `json:"current_daily_volume" yaml:"current_daily_volume"`
	RemainingVolumeTarget float64 `json:"remaining_volume_target" yaml:"remaining_volume_target"`

	// Market
	Volatility market.VolatilityLevel `json:"volatility" yaml:"volatility"`
	ATR        float64                `json:"atr" yaml:"atr"`
	Session    market.Session         `json:"session" yaml:"session"`

	// Positions
	OpenPositions       int     `json:"open_positions" yaml:"open_positions"`
	RecoveryPositions   int     `json:"recovery_positions" yaml:"recovery_positions"`
	LargestPositionSize float64 `json:"largest_position_size" yaml:"largest_position_size"`

	// Symbol
	Symbol       string  `json:"symbol" yaml:"symbol"`
	PointValue   float64 `json:"point_value" yaml:"point_value"`
	TickSize     float64 `json:"tick_size" yaml:"tick_size"`
	ContractSize float64 `json:"contract_size" yaml:"contract_size"`
	MarginPerLot float64 `json:"margin_per_lot" yaml:"margin_per_lot"`
}

func DefaultParameters() SizingParameters {
	meta := market.Instruments[market.Gold]
	return SizingParameters{
		AccountBalance:        10000,
		AccountEquity:         10000,
		FreeMargin:            10000,
		MaxRiskPerTrade:       0.02,
		MaxDailyRisk:          0.10,
		DailyVolumeTarget:     75,
		RemainingVolumeTarget: 75,
		Volatility:            market.VolModerate,
		ATR:                   15,
		Session:               market.Asian,
		Symbol:                meta.Name,
		PointValue:            meta.PointValue,
		TickSize:              meta.TickSize,
		ContractSize:          meta.ContractSize,
		MarginPerLot:          1000,
	}
}

// Validate rejects snapshots the sizing chain cannot divide through.
func (p SizingParameters) Validate() error {
	fields := map[string]float64{
		"account_balance":         p.AccountBalance,
		"account_equity":          p.AccountEquity,
		"free_margin":             p.FreeMargin,
		"max_risk_per_trade":      p.MaxRiskPerTrade,
		"max_daily_risk":          p.MaxDailyRisk,
		"current_daily_risk":      p.CurrentDailyRisk,
		"daily_volume_target":     p.DailyVolumeTarget,
		"current_daily_volume":    p.CurrentDailyVolume,
		"remaining_volume_target": p.RemainingVolumeTarget,
		"atr":                     p.ATR,
		"margin_per_lot":          p.MarginPerLot,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParameters, name)
		}
	}
	if p.MarginPerLot <= 0 {
		return fmt.Errorf("%w: margin_per_lot must be positive", ErrInvalidParameters)
	}
	if p.MaxDailyRisk <= 0 {
		return fmt.Errorf("%w: max_daily_risk must be positive", ErrInvalidParameters)
	}
	if p.DailyVolumeTarget <= 0 {
		return fmt.Errorf("%w: daily_volume_target must be positive", ErrInvalidParameters)
	}
	if p.RecoveryPositions < 0 || p.OpenPositions < 0 {
		return fmt.Errorf("%w: position counts must not be negative", ErrInvalidParameters)
	}
	return nil
}
