// Package analysis turns a candle feed into the market snapshot the sizer
// consumes: ATR, volatility bucket, trend strength, market state and
// proximity to recent support/resistance.
package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rustyeddy/goldtrader/indicators"
	"github.com/rustyeddy/goldtrader/market"
)

var ErrNoData = errors.New("analyzer has no candles")

type Config struct {
	ATRPeriod  int
	ADXPeriod  int
	FastEMA    int
	SlowEMA    int
	MaxCandles int

	// Lookback for support/resistance and how close (in ATRs) price must be
	// to count as near a key level.
	LevelLookback int
	LevelATRs     float64
}

func DefaultConfig() Config {
	return Config{
		ATRPeriod:     14,
		ADXPeriod:     14,
		FastEMA:       20,
		SlowEMA:       50,
		MaxCandles:    300,
		LevelLookback: 50,
		LevelATRs:     0.25,
	}
}

// Analyzer keeps a rolling candle window. It is safe for concurrent use.
type Analyzer struct {
	mu         sync.RWMutex
	cfg        Config
	instrument string
	clock      *market.SessionClock
	atr        *indicators.ATR
	adx        *indicators.ADX
	fast, slow *indicators.EMA
	candles    []market.Candle
	now        func() time.Time
}

func New(instrument string, clock *market.SessionClock, cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = def.ADXPeriod
	}
	if cfg.FastEMA <= 0 || cfg.SlowEMA <= 0 {
		cfg.FastEMA, cfg.SlowEMA = def.FastEMA, def.SlowEMA
	}
	if cfg.MaxCandles <= 0 {
		cfg.MaxCandles = def.MaxCandles
	}
	return &Analyzer{
		cfg:        cfg,
		instrument: instrument,
		clock:      clock,
		atr:        indicators.NewATR(cfg.ATRPeriod),
		adx:        indicators.NewADX(cfg.ADXPeriod),
		fast:       indicators.NewEMA(cfg.FastEMA),
		slow:       indicators.NewEMA(cfg.SlowEMA),
		now:        time.Now,
	}
}

// SetNow overrides the wall clock used to pick the session.
func (a *Analyzer) SetNow(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Update consumes the next closed candle.
func (a *Analyzer) Update(c market.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, ind := range a.streams() {
		ind.Update(c)
	}
	a.candles = append(a.candles, c)
	if n := len(a.candles); n > a.cfg.MaxCandles {
		a.candles = a.candles[n-a.cfg.MaxCandles:]
	}
}

func (a *Analyzer) streams() []indicators.Indicator {
	return []indicators.Indicator{a.atr, a.adx, a.fast, a.slow}
}

// Reset drops the candle window and the indicator state.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ind := range a.streams() {
		ind.Reset()
	}
	a.candles = nil
}

func (a *Analyzer) Load(candles []market.Candle) {
	for _, c := range candles {
		a.Update(c)
	}
}

// Snapshot satisfies risk.MarketSource.
func (a *Analyzer) Snapshot(_ context.Context) (market.Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.candles) == 0 {
		return market.Snapshot{}, ErrNoData
	}

	last := a.candles[len(a.candles)-1]
	snap := market.Snapshot{
		Instrument:    a.instrument,
		Time:          a.now(),
		Price:         last.Close,
		TrendStrength: market.TrendModerate,
		State:         market.StateRanging,
	}
	if a.clock != nil {
		snap.Session = a.clock.SessionAt(snap.Time)
	}

	snap.ATR = a.atr.Value()
	if !a.atr.Ready() {
		// Not warmed up: average the true ranges we have.
		snap.ATR = a.candles[0].Range()
		if n := len(a.candles); n > 1 {
			snap.ATR, _ = indicators.ATRFunc(a.candles, n-1)
		}
	}
	snap.Volatility = market.ClassifyATR(snap.ATR)

	if a.adx.Ready() {
		snap.ADX = a.adx.Value()
		snap.TrendStrength = trendStrength(snap.ADX)
	}

	trending := false
	if a.fast.Ready() && a.slow.Ready() {
		gap := math.Abs(a.fast.Value() - a.slow.Value())
		trending = snap.ADX >= 25 && gap > 0.5*snap.ATR
	}

	switch {
	case snap.Volatility.IsHigh():
		snap.State = market.StateVolatile
	case trending:
		snap.State = market.StateTrending
	}

	snap.NearKeyLevel = a.nearKeyLevel(snap.Price, snap.ATR)
	return snap, nil
}

// nearKeyLevel checks price against the highest high and lowest low of the
// lookback window, excluding the current candle.
func (a *Analyzer) nearKeyLevel(price, atr float64) bool {
	n := len(a.candles)
	if n < 3 || atr <= 0 {
		return false
	}
	period := a.cfg.LevelLookback
	if period > n-1 || period < 2 {
		period = n - 1
	}
	prior := a.candles[:n-1]
	highs := make([]float64, len(prior))
	lows := make([]float64, len(prior))
	for i, c := range prior {
		highs[i] = c.High
		lows[i] = c.Low
	}
	hi := talib.Max(highs, period)
	lo := talib.Min(lows, period)

	band := a.cfg.LevelATRs * atr
	return math.Abs(price-hi[len(hi)-1]) <= band || math.Abs(price-lo[len(lo)-1]) <= band
}

func trendStrength(adx float64) market.TrendStrength {
	switch {
	case adx > 25:
		return market.TrendStrong
	case adx < 20:
		return market.TrendWeak
	}
	return market.TrendModerate
}
