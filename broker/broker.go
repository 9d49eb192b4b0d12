package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/goldtrader/market"
)

// Broker is the read side of an account the sizer needs, plus order entry
// for the paper account.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	OpenPositions(ctx context.Context) ([]Position, error)
	GetTick(ctx context.Context, instrument string) (market.Tick, error)
	CreateMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderFill, error)
}

type Account struct {
	ID          string
	Currency    string
	Balance     float64
	Equity      float64
	MarginUsed  float64
	FreeMargin  float64
	MarginLevel float64
}

// Position is an open trade. Lots are positive for longs, negative for shorts.
type Position struct {
	ID         string
	Instrument string
	Lots       float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	// RecoveryTask links legs opened by a recovery run.
	RecoveryTask string
}

// Volume is the absolute lot size.
func (p Position) Volume() float64 {
	if p.Lots < 0 {
		return -p.Lots
	}
	return p.Lots
}

type MarketOrderRequest struct {
	Instrument   string
	Lots         float64
	StopLoss     float64
	TakeProfit   float64
	RecoveryTask string
}

type OrderFill struct {
	TradeID    string
	Instrument string
	Lots       float64
	Price      float64
}

// LargestPosition returns the count of positions and the largest volume among them.
func LargestPosition(positions []Position) (int, float64) {
	var largest float64
	for _, p := range positions {
		if v := p.Volume(); v > largest {
			largest = v
		}
	}
	return len(positions), largest
}
