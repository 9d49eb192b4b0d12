package risk

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/rustyeddy/goldtrader/broker"
	"github.com/rustyeddy/goldtrader/market"
)

// Sources are the optional collaborators a Refresher reads from.
type Sources struct {
	Accounts   AccountSource
	Market     MarketSource
	Positions  PositionSource
	Recoveries RecoverySource
	Ledger     *DailyLedger
	Clock      *market.SessionClock
}

type RefreshConfig struct {
	Interval      time.Duration
	RetryInterval time.Duration
	// The daily volume target is the midpoint of these, in lots.
	DailyVolumeMin float64
	DailyVolumeMax float64
}

func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:       30 * time.Second,
		RetryInterval:  60 * time.Second,
		DailyVolumeMin: 50,
		DailyVolumeMax: 100,
	}
}

// Refresher keeps a Store current by polling its sources.
type Refresher struct {
	store    *Store
	src      Sources
	cfg      RefreshConfig
	log      zerolog.Logger
	now      func() time.Time
	observer Observer
	active   atomic.Bool
}

func NewRefresher(store *Store, src Sources, cfg RefreshConfig, log zerolog.Logger) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshConfig().Interval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = cfg.Interval
	}
	return &Refresher{
		store:    store,
		src:      src,
		cfg:      cfg,
		log:      log.With().Str("component", "refresher").Logger(),
		now:      time.Now,
		observer: nopObserver{},
	}
}

// SetClock replaces the wall clock.
func (r *Refresher) SetClock(now func() time.Time) { r.now = now }

// SetObserver registers o for refresh failures.
func (r *Refresher) SetObserver(o Observer) {
	if o != nil {
		r.observer = o
	}
}

// Active reports whether Run is looping.
func (r *Refresher) Active() bool { return r.active.Load() }

// DailyTarget is the configured daily volume target.
func (r *Refresher) DailyTarget() float64 {
	if r.cfg.DailyVolumeMin <= 0 || r.cfg.DailyVolumeMax <= 0 {
		return 0
	}
	return (r.cfg.DailyVolumeMin + r.cfg.DailyVolumeMax) / 2
}

// Refresh reads every configured source once and stores the merged
// snapshot. Fields whose source failed keep their previous values; the
// failures are returned together.
func (r *Refresher) Refresh(ctx context.Context) error {
	now := r.now()
	next := r.store.Get()
	var errs error

	if r.src.Clock != nil {
		next.Session = r.src.Clock.SessionAt(now)
	}

	if r.src.Accounts != nil {
		acct, err := r.src.Accounts.GetAccount(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account: %w", err))
		} else {
			next.AccountBalance = acct.Balance
			next.AccountEquity = acct.Equity
			next.FreeMargin = acct.FreeMargin
		}
	}

	if r.src.Market != nil {
		snap, err := r.src.Market.Snapshot(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("market: %w", err))
		} else {
			if snap.ATR > 0 {
				next.ATR = snap.ATR
			}
			if snap.Session != "" {
				next.Session = snap.Session
			}
		}
	}
	next.Volatility = market.ClassifyATR(next.ATR)

	if r.src.Positions != nil {
		positions, err := r.src.Positions.OpenPositions(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("positions: %w", err))
		} else {
			next.OpenPositions, next.LargestPositionSize = broker.LargestPosition(positions)
		}
	}

	if r.src.Recoveries != nil {
		n, err := r.src.Recoveries.ActiveRecoveries(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("recoveries: %w", err))
		} else {
			next.RecoveryPositions = n
		}
	}

	if r.src.Ledger != nil {
		day := r.src.Ledger.Totals(now)
		next.CurrentDailyVolume = day.Volume
		next.CurrentDailyRisk = day.Risk
	}

	if target := r.DailyTarget(); target > 0 {
		next.DailyVolumeTarget = target
	}
	next.RemainingVolumeTarget = next.DailyVolumeTarget - next.CurrentDailyVolume
	if next.RemainingVolumeTarget < 0 {
		next.RemainingVolumeTarget = 0
	}

	if err := r.store.Set(next); err != nil {
		errs = multierr.Append(errs, err)
	}

	if errs == nil {
		r.log.Debug().
			Str("session", string(next.Session)).
			Float64("atr", next.ATR).
			Float64("equity", next.AccountEquity).
			Float64("free_margin", next.FreeMargin).
			Float64("daily_volume", next.CurrentDailyVolume).
			Msg("parameters refreshed")
	}
	return errs
}

// Run refreshes now and then every Interval until ctx is done. After a
// failed refresh it waits RetryInterval instead.
func (r *Refresher) Run(ctx context.Context) error {
	if !r.active.CompareAndSwap(false, true) {
		return fmt.Errorf("refresher already running")
	}
	defer r.active.Store(false)

	r.log.Info().Dur("interval", r.cfg.Interval).Msg("parameter refresh started")
	for {
		wait := r.cfg.Interval
		if err := r.Refresh(ctx); err != nil {
			r.log.Error().Err(err).
				Str("category", string(CategoryData)).
				Str("severity", string(SeverityMedium)).
				Msg("parameter refresh failed")
			r.observer.RefreshFailed(err)
			wait = r.cfg.RetryInterval
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			r.log.Info().Msg("parameter refresh stopped")
			return nil
		case <-t.C:
		}
	}
}
