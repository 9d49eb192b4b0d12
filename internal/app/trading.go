package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/broker/paper"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/risk"
)

// Plan prices the money at stake on a paper fill against current equity.
func (a *App) Plan(ctx context.Context, fill broker.OrderFill) (risk.TradePlan, error) {
	t, ok := a.Paper.Trade(fill.TradeID)
	if !ok {
		return risk.TradePlan{}, fmt.Errorf("plan: %w: %q", paper.ErrTradeNotFound, fill.TradeID)
	}
	meta, err := market.Lookup(t.Instrument)
	if err != nil {
		return risk.TradePlan{}, fmt.Errorf("plan: %w", err)
	}
	acct, err := a.Paper.GetAccount(ctx)
	if err != nil {
		return risk.TradePlan{}, fmt.Errorf("plan: %w", err)
	}
	rate, err := market.QuoteToAccountRate(ctx, t.Instrument, acct.Currency, a.Paper)
	if err != nil {
		return risk.TradePlan{}, fmt.Errorf("plan: %w", err)
	}
	return risk.PlanTrade(t.Lots, t.EntryPrice, t.StopLoss, t.TakeProfit, meta, rate, a.Store.Get().AccountEquity), nil
}

// CloseTrade closes a paper trade and refreshes the parameters.
func (a *App) CloseTrade(ctx context.Context, tradeID, reason string) error {
	if err := a.Paper.CloseTrade(ctx, tradeID, reason); err != nil {
		return err
	}
	a.refresh(ctx)
	return nil
}

// StartRecovery registers a recovery task on the paper account.
func (a *App) StartRecovery(ctx context.Context, taskID string, method risk.RecoveryMethod, originalLoss float64) error {
	if method == risk.RecoveryNone {
		return errors.New("start recovery: method is required")
	}
	if err := a.Paper.StartRecovery(taskID, string(method), originalLoss); err != nil {
		return err
	}
	a.log.Info().
		Str("category", string(risk.CategoryRecovery)).
		Str("task_id", taskID).
		Str("method", string(method)).
		Float64("original_loss", originalLoss).
		Msg("recovery started")
	a.refresh(ctx)
	return nil
}

func (a *App) EndRecovery(ctx context.Context, taskID string) error {
	if err := a.Paper.EndRecovery(taskID); err != nil {
		return err
	}
	a.log.Info().Str("category", string(risk.CategoryRecovery)).Str("task_id", taskID).Msg("recovery ended")
	a.refresh(ctx)
	return nil
}

func (a *App) Recoveries() []paper.Recovery {
	return a.Paper.Recoveries()
}

// RiskReport measures the paper account's realized equity path and its
// running recoveries. Each leg opened for a task counts as one attempt.
func (a *App) RiskReport(ctx context.Context) risk.Report {
	h := a.Paper.History(ctx)
	recs := a.Paper.Recoveries()
	tasks := make([]risk.RecoveryExposure, 0, len(recs))
	for _, r := range recs {
		method, err := risk.ParseRecoveryMethod(r.Method)
		if err != nil {
			a.log.Warn().Err(err).Str("task_id", r.TaskID).Msg("unknown recovery method")
		}
		tasks = append(tasks, risk.RecoveryExposure{
			TaskID:       r.TaskID,
			Method:       method,
			OriginalLoss: r.OriginalLoss,
			Attempts:     r.Legs,
		})
	}
	return risk.BuildReport(a.now(), h.Equity, h.Returns, tasks)
}

func (a *App) refresh(ctx context.Context) {
	if err := a.Refresher.Refresh(ctx); err != nil {
		a.log.Warn().Err(err).Msg("parameter refresh incomplete")
	}
}

// bookDay copies the ledger's totals into the parameters so the next sizing
// sees the fill without waiting for a refresh.
func (a *App) bookDay(day risk.DayTotals) error {
	return a.Store.Update(func(p *risk.SizingParameters) error {
		p.CurrentDailyVolume = day.Volume
		p.CurrentDailyRisk = day.Risk
		p.RemainingVolumeTarget = math.Max(0, p.DailyVolumeTarget-day.Volume)
		return nil
	})
}
