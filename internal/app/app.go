// Package app wires the sizer to its collaborators from a Config: the paper
// account, the candle analyzer, the daily ledger, the journal and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/broker/paper"
	"github.com/rustyeddy/goldtrader/config"
	"github.com/rustyeddy/goldtrader/internal/api"
	"github.com/rustyeddy/goldtrader/internal/metrics"
	"github.com/rustyeddy/goldtrader/journal"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/market/analysis"
	"github.com/rustyeddy/goldtrader/pkg/id"
	"github.com/rustyeddy/goldtrader/risk"
)

type App struct {
	Config    *config.Config
	Clock     *market.SessionClock
	Paper     *paper.Engine
	Analyzer  *analysis.Analyzer
	Ledger    *risk.DailyLedger
	Store     *risk.Store
	Refresher *risk.Refresher
	Sizer     *risk.Sizer
	Journal   journal.Journal
	Metrics   *metrics.Recorder

	log zerolog.Logger
	now func() time.Time
}

type Option func(*App)

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithJournal replaces the journal named in the config.
func WithJournal(j journal.Journal) Option {
	return func(a *App) { a.Journal = j }
}

func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		log:    log.With().Str("component", "app").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	clock, err := market.NewSessionClock(cfg.Sessions.Timezone)
	if err != nil {
		return nil, err
	}
	a.Clock = clock

	a.Paper = paper.NewEngine(broker.Account{
		ID:       cfg.Account.ID,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
	}, paper.WithClock(a.now), paper.WithFillHook(a.onFill))
	if cfg.Instrument.Price > 0 {
		half := cfg.Instrument.Spread / 2
		err := a.Paper.UpdatePrice(context.Background(), market.Tick{
			Instrument: cfg.Instrument.Symbol,
			Time:       a.now(),
			Bid:        cfg.Instrument.Price - half,
			Ask:        cfg.Instrument.Price + half,
		})
		if err != nil {
			return nil, fmt.Errorf("seed paper price: %w", err)
		}
	}

	a.Analyzer = analysis.New(cfg.Instrument.Symbol, clock, cfg.Analysis())
	a.Analyzer.SetNow(a.now)
	var marketSrc risk.MarketSource
	if cfg.Market.CandlesFile != "" {
		candles, err := market.LoadCandlesCSV(cfg.Market.CandlesFile)
		if err != nil {
			return nil, err
		}
		a.Analyzer.Load(candles)
		if len(candles) > 0 {
			marketSrc = a.Analyzer
		}
		a.log.Info().Int("candles", len(candles)).Str("file", cfg.Market.CandlesFile).Msg("candles loaded")
	}

	a.Ledger = risk.NewDailyLedger(clock, cfg.Refresh.LedgerFile)
	if err := a.Ledger.Load(a.now()); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	if a.Journal == nil {
		j, err := journal.Open(cfg.Journal.Type, cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.Journal = j
	}
	a.Metrics = metrics.New()
	a.Store = risk.NewStore(cfg.Parameters())

	a.Refresher = risk.NewRefresher(a.Store, risk.Sources{
		Accounts:   a.Paper,
		Market:     marketSrc,
		Positions:  a.Paper,
		Recoveries: a.Paper,
		Ledger:     a.Ledger,
		Clock:      clock,
	}, cfg.RefreshSettings(), log)
	a.Refresher.SetClock(a.now)
	a.Refresher.SetObserver(a.Metrics)

	sizerOpts := []risk.Option{
		risk.WithLogger(log),
		risk.WithClock(a.now),
		risk.WithSessionClock(clock),
		risk.WithRefresher(a.Refresher),
		risk.WithObserver(risk.MultiObserver(
			a.Metrics,
			journal.NewObserver(a.Journal, a.Store.Get, log),
		)),
	}
	if marketSrc != nil {
		sizerOpts = append(sizerOpts, risk.WithMarketSource(marketSrc))
	}
	a.Sizer = risk.NewSizer(cfg.Policy(), a.Store, sizerOpts...)
	return a, nil
}

func (a *App) Close() error {
	return a.Journal.Close()
}

// Execute places res on the paper account. A stop of zero means none.
func (a *App) Execute(ctx context.Context, res risk.SizingResult, long bool, stop, takeProfit float64, recoveryTask string) (broker.OrderFill, error) {
	if res.Fallback {
		return broker.OrderFill{}, errors.New("refusing to execute a fallback size")
	}
	lots := res.RecommendedLotSize
	if !long {
		lots = -lots
	}
	return a.Paper.CreateMarketOrder(ctx, broker.MarketOrderRequest{
		Instrument:   a.Config.Instrument.Symbol,
		Lots:         lots,
		StopLoss:     stop,
		TakeProfit:   takeProfit,
		RecoveryTask: recoveryTask,
	})
}

// onFill books paper fills against the day. The risk share comes from the
// trade's stop when it has one and from the policy's per-lot risk otherwise.
func (a *App) onFill(fill broker.OrderFill) {
	now := a.now()
	lots := math.Abs(fill.Lots)
	p := a.Store.Get()

	var errs error
	var riskFraction float64
	if p.AccountEquity > 0 {
		riskFraction = lots * a.Sizer.Policy().RiskPerLot / p.AccountEquity
	}
	plan, err := a.Plan(context.Background(), fill)
	errs = multierr.Append(errs, err)
	if err == nil && plan.PlannedRisk > 0 && plan.RiskPct > 0 {
		riskFraction = plan.RiskPct
	}

	errs = multierr.Append(errs, a.Ledger.Record(now, lots, riskFraction))
	errs = multierr.Append(errs, a.Journal.RecordFill(journal.FillRecord{
		ID:           id.At(now),
		Time:         now.UTC(),
		Lots:         lots,
		RiskFraction: riskFraction,
		Source:       "paper:" + fill.TradeID,
	}))
	day := a.Ledger.Totals(now)
	errs = multierr.Append(errs, a.bookDay(day))
	if errs != nil {
		a.log.Warn().Err(errs).Str("trade_id", fill.TradeID).Msg("book fill")
	}
	a.Metrics.FillRecorded(day.Volume)
}

// API builds the HTTP server over this app.
func (a *App) API() (*api.Server, error) {
	return api.New(api.Deps{
		Sizer:     a.Sizer,
		Refresher: a.Refresher,
		Ledger:    a.Ledger,
		Journal:   a.Journal,
		Metrics:   a.Metrics,
		Trader:    a,
		Log:       a.log,
		Now:       a.now,
	})
}

// Serve runs the refresher and the HTTP server until ctx is cancelled or
// either fails.
func (a *App) Serve(ctx context.Context) error {
	srv, err := a.API()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Refresher.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, a.Config.Server.Addr) })
	return g.Wait()
}
