package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/pkg/id"
)

var (
	ErrTradeNotFound      = errors.New("trade not found")
	ErrTradeAlreadyClosed = errors.New("trade already closed")
	ErrInsufficientMargin = errors.New("insufficient free margin")
	ErrInvalidLots        = errors.New("invalid lot size")
	ErrRecoveryExists     = errors.New("recovery task already active")
	ErrRecoveryNotFound   = errors.New("recovery task not found")
)

// FillFunc is called, outside the engine lock, after every fill.
type FillFunc func(fill broker.OrderFill)

// Engine is a deterministic in-memory account. Orders fill at the last tick,
// stops and targets trigger on UpdatePrice, and margin is recomputed at mid.
type Engine struct {
	mu         sync.Mutex
	acct       broker.Account
	ticks      *market.TickStore
	trades     map[string]*Trade
	recoveries map[string]Recovery
	onFill     FillFunc
	now        func() time.Time
}

type Option func(*Engine)

// WithFillHook registers fn to observe fills.
func WithFillHook(fn FillFunc) Option {
	return func(e *Engine) { e.onFill = fn }
}

// WithClock sets the engine clock, used when a tick carries no time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(acct broker.Account, opts ...Option) *Engine {
	if acct.Currency == "" {
		acct.Currency = "USD"
	}
	if acct.Equity == 0 {
		acct.Equity = acct.Balance
	}
	if acct.FreeMargin == 0 && acct.MarginUsed == 0 {
		acct.FreeMargin = acct.Equity
	}
	e := &Engine{
		acct:       acct,
		ticks:      market.NewTickStore(),
		trades:     make(map[string]*Trade),
		recoveries: make(map[string]Recovery),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct, nil
}

func (e *Engine) GetTick(ctx context.Context, instr string) (market.Tick, error) {
	return e.ticks.Get(instr)
}

// OpenPositions lists open trades ordered by open time, then id.
func (e *Engine) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Position, 0, len(e.trades))
	for _, t := range e.trades {
		if t.Open {
			out = append(out, t.Position())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenTime.Equal(out[j].OpenTime) {
			return out[i].OpenTime.Before(out[j].OpenTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e *Engine) CreateMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderFill, error) {
	fill, err := e.createMarketOrder(ctx, req)
	if err != nil {
		return broker.OrderFill{}, err
	}
	if e.onFill != nil {
		e.onFill(fill)
	}
	return fill, nil
}

func (e *Engine) createMarketOrder(ctx context.Context, req broker.MarketOrderRequest) (broker.OrderFill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Lots == 0 {
		return broker.OrderFill{}, fmt.Errorf("create order: %w: 0", ErrInvalidLots)
	}
	meta, err := market.Lookup(req.Instrument)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("create order: %w", err)
	}
	p, err := e.ticks.Get(req.Instrument)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("create order: no price for %q: %w", req.Instrument, err)
	}

	fillPrice := p.Ask
	if req.Lots < 0 {
		fillPrice = p.Bid
	}

	rate, err := market.QuoteToAccountRate(ctx, req.Instrument, e.acct.Currency, e.ticks)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("create order: %w", err)
	}
	if need := market.LotMargin(req.Lots, p.Mid(), meta, rate); need > e.acct.FreeMargin {
		return broker.OrderFill{}, fmt.Errorf("create order: %w: need %.2f, free %.2f",
			ErrInsufficientMargin, need, e.acct.FreeMargin)
	}

	openTime := p.Time
	if openTime.IsZero() {
		openTime = e.now()
	}

	tradeID := id.New()
	e.trades[tradeID] = &Trade{
		ID:           tradeID,
		Instrument:   req.Instrument,
		Lots:         req.Lots,
		EntryPrice:   fillPrice,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		OpenTime:     openTime,
		RecoveryTask: req.RecoveryTask,
		Open:         true,
	}

	// A failed revaluation leaves no trace of the order.
	acct := e.acct
	if err := e.revalueLocked(ctx); err != nil {
		delete(e.trades, tradeID)
		e.acct = acct
		return broker.OrderFill{}, fmt.Errorf("create order: %w", err)
	}
	if err := e.recomputeMarginLocked(ctx); err != nil {
		delete(e.trades, tradeID)
		e.acct = acct
		return broker.OrderFill{}, fmt.Errorf("create order: %w", err)
	}

	return broker.OrderFill{
		TradeID:    tradeID,
		Instrument: req.Instrument,
		Lots:       req.Lots,
		Price:      fillPrice,
	}, nil
}

// CloseTrade closes an open trade at the current price: longs on the bid,
// shorts on the ask.
func (e *Engine) CloseTrade(ctx context.Context, tradeID string, reason string) error {
	if reason == "" {
		reason = "ManualClose"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[tradeID]
	if !ok {
		return fmt.Errorf("close trade: %w: %q", ErrTradeNotFound, tradeID)
	}
	if !t.Open {
		return fmt.Errorf("close trade: %w: %q", ErrTradeAlreadyClosed, tradeID)
	}

	p, err := e.ticks.Get(t.Instrument)
	if err != nil {
		return fmt.Errorf("close trade: no price for %q: %w", t.Instrument, err)
	}

	closeTime := p.Time
	if closeTime.IsZero() {
		closeTime = e.now()
	}
	if err := e.closeTradeLocked(ctx, t, t.markPrice(p), closeTime, reason); err != nil {
		return err
	}
	if err := e.revalueLocked(ctx); err != nil {
		return err
	}
	return e.recomputeMarginLocked(ctx)
}

// UpdatePrice stores p, triggers stops and targets, then revalues the account.
func (e *Engine) UpdatePrice(ctx context.Context, p market.Tick) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ticks.Set(p)

	for _, t := range e.trades {
		if !t.Open || t.Instrument != p.Instrument {
			continue
		}

		mark := t.markPrice(p)
		reason := ""
		switch {
		case t.hitStopLoss(mark):
			reason = "StopLoss"
		case t.hitTakeProfit(mark):
			reason = "TakeProfit"
		}
		if reason != "" {
			if err := e.closeTradeLocked(ctx, t, mark, p.Time, reason); err != nil {
				return err
			}
		}
	}

	if err := e.revalueLocked(ctx); err != nil {
		return err
	}
	return e.recomputeMarginLocked(ctx)
}

// Trade returns a copy of the trade with id.
func (e *Engine) Trade(tradeID string) (Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trades[tradeID]
	if !ok {
		return Trade{}, false
	}
	return *t, true
}

func (e *Engine) closeTradeLocked(ctx context.Context, t *Trade, closePrice float64, closeTime time.Time, reason string) error {
	rate, err := market.QuoteToAccountRate(ctx, t.Instrument, e.acct.Currency, e.ticks)
	if err != nil {
		return err
	}

	pl := t.UnrealizedPL(closePrice, rate)

	t.ClosePrice = closePrice
	t.CloseTime = closeTime
	t.CloseReason = reason
	t.RealizedPL = pl
	t.Open = false

	e.acct.Balance += pl
	return nil
}

func (e *Engine) revalueLocked(ctx context.Context) error {
	equity := e.acct.Balance

	for _, t := range e.trades {
		if !t.Open {
			continue
		}

		p, err := e.ticks.Get(t.Instrument)
		if err != nil {
			return err
		}
		rate, err := market.QuoteToAccountRate(ctx, t.Instrument, e.acct.Currency, e.ticks)
		if err != nil {
			return err
		}
		equity += t.UnrealizedPL(t.markPrice(p), rate)
	}

	e.acct.Equity = equity
	return nil
}

func (e *Engine) recomputeMarginLocked(ctx context.Context) error {
	var used float64

	for _, t := range e.trades {
		if !t.Open {
			continue
		}

		p, err := e.ticks.Get(t.Instrument)
		if err != nil {
			return err
		}
		meta, err := market.Lookup(t.Instrument)
		if err != nil {
			return err
		}
		rate, err := market.QuoteToAccountRate(ctx, t.Instrument, e.acct.Currency, e.ticks)
		if err != nil {
			return err
		}

		// margin uses mid
		used += market.LotMargin(t.Lots, p.Mid(), meta, rate)
	}

	e.acct.MarginUsed = used
	e.acct.FreeMargin = e.acct.Equity - used

	if used > 0 {
		e.acct.MarginLevel = e.acct.Equity / used
	} else {
		e.acct.MarginLevel = 0
	}
	return nil
}
