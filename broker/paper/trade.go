package paper

import (
	"time"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/market"
)

type Trade struct {
	ID           string
	Instrument   string
	Lots         float64
	EntryPrice   float64
	OpenTime     time.Time
	RecoveryTask string

	// Zero means unset.
	StopLoss   float64
	TakeProfit float64

	// Realized
	ClosePrice  float64
	CloseTime   time.Time
	CloseReason string
	RealizedPL  float64 // account currency
	Open        bool
}

func (t *Trade) Position() broker.Position {
	return broker.Position{
		ID:           t.ID,
		Instrument:   t.Instrument,
		Lots:         t.Lots,
		EntryPrice:   t.EntryPrice,
		StopLoss:     t.StopLoss,
		TakeProfit:   t.TakeProfit,
		OpenTime:     t.OpenTime,
		RecoveryTask: t.RecoveryTask,
	}
}

// markPrice is the side a position would close on.
func (t *Trade) markPrice(p market.Tick) float64 {
	if t.Lots < 0 {
		return p.Ask
	}
	return p.Bid
}

func (t *Trade) hitStopLoss(price float64) bool {
	if t.StopLoss == 0 {
		return false
	}
	if t.Lots > 0 {
		return price <= t.StopLoss
	}
	return price >= t.StopLoss
}

func (t *Trade) hitTakeProfit(price float64) bool {
	if t.TakeProfit == 0 {
		return false
	}
	if t.Lots > 0 {
		return price >= t.TakeProfit
	}
	return price <= t.TakeProfit
}

// UnrealizedPL is the account-currency P/L if closed at currentPrice.
func (t *Trade) UnrealizedPL(currentPrice, quoteToAccount float64) float64 {
	contract := 1.0
	if meta, err := market.Lookup(t.Instrument); err == nil {
		contract = meta.ContractSize
	}
	return t.Lots * contract * (currentPrice - t.EntryPrice) * quoteToAccount
}
