package risk

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/goldtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 10:00 UTC leaves 14 hours in the day for VOLUME_TARGET sizing.
var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestSizer(t *testing.T, p SizingParameters, opts ...Option) *Sizer {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock(testNow))}, opts...)
	return NewSizer(DefaultPolicy(), NewStore(p), opts...)
}

// midDay is a snapshot with the volume target partly met, so selection
// falls through to the later rules.
func midDay() SizingParameters {
	p := DefaultParameters()
	p.CurrentDailyVolume = 45
	p.RemainingVolumeTarget = 30
	return p
}

type recordingObserver struct {
	results []SizingResult
	errs    []error
}

func (o *recordingObserver) SizingCalculated(r SizingResult) { o.results = append(o.results, r) }
func (o *recordingObserver) RefreshFailed(err error)         { o.errs = append(o.errs, err) }

type fakeMarket struct {
	snap market.Snapshot
	err  error
}

func (f fakeMarket) Snapshot(context.Context) (market.Snapshot, error) { return f.snap, f.err }

func TestCalculateDefaults(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, DefaultParameters())
	res := s.Calculate(EntryTrendFollowing, DefaultConditions(), nil)

	// 75 lots left over 14h caps the base at 2.0; the Asian session caps at
	// 1.0, volatility lifts it to 1.33 and daily risk brings it back to 1.0.
	assert.Equal(t, VolumeTarget, res.Method)
	assert.Equal(t, EntryTrendFollowing, res.EntryStrategy)
	assert.InDelta(t, 1.0, res.RecommendedLotSize, 1e-9)
	assert.InDelta(t, 2.0, res.MaxLotSize, 1e-9)
	assert.InDelta(t, 0.5, res.MinLotSize, 1e-9)
	assert.InDelta(t, 1000, res.RiskAmount, 1e-9)
	assert.InDelta(t, 1000, res.MarginRequired, 1e-9)
	assert.Equal(t, ImpactModerate, res.MarketImpact)
	assert.InDelta(t, 85, res.ConfidenceScore, 1e-9)
	assert.InDelta(t, 2.0, res.RiskRewardRatio, 1e-9)
	assert.InDelta(t, 2.0, res.SuggestedSlippage, 1e-9)
	assert.Equal(t, 1, res.UrgencyLevel)
	assert.True(t, res.HasWarning(WarnDailyRiskLimit))
	assert.True(t, res.HasWarning(WarnAdjusted))
	assert.False(t, res.Fallback)
	assert.Equal(t, testNow, res.Time)
	assert.NotEmpty(t, res.Reasoning)
}

func TestCalculateMarketConditionsChain(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.Session = market.London
	p.ATR = 20

	cond := MarketConditions{
		TrendStrength: market.TrendStrong,
		MarketState:   market.StateTrending,
		Volatility:    market.VolModerate,
		NearKeyLevel:  true,
	}
	res := newTestSizer(t, p).Calculate(EntryBreakoutFalse, cond, nil)

	// 0.1 * 1.2 * 1.1 * 0.85 * 1.2 (London) * 0.5 (session volume done) = 0.0673
	assert.Equal(t, MarketConditionsS, res.Method)
	assert.InDelta(t, 0.07, res.RecommendedLotSize, 1e-9)
	assert.InDelta(t, 0.14, res.MaxLotSize, 1e-9)
	assert.LessOrEqual(t, res.MinLotSize, res.RecommendedLotSize)
	assert.Equal(t, ImpactVeryLow, res.MarketImpact)
	assert.InDelta(t, 0.1, res.MarketImpactScore, 1e-9)
	assert.InDelta(t, 100, res.ConfidenceScore, 1e-9)
	assert.Contains(t, res.Reasoning, "near key level")
}

func TestCalculateVolatilityBased(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.Session = market.NewYork
	p.ATR = 40
	p.Volatility = market.VolVeryHigh

	cond := DefaultConditions()
	cond.Volatility = market.VolVeryHigh
	res := newTestSizer(t, p).Calculate(EntryNewsReaction, cond, nil)

	// 200/40 = 5, New York caps at 2, halved for the session, then 0.6 * 0.5.
	assert.Equal(t, VolatilityBased, res.Method)
	assert.InDelta(t, 0.3, res.RecommendedLotSize, 1e-9)
	assert.Equal(t, ImpactLow, res.MarketImpact)
}

func TestCalculateStoredVolatilitySizes(t *testing.T) {
	t.Parallel()

	// The condition label stays MODERATE; only the stored bucket moves.
	tests := []struct {
		stored market.VolatilityLevel
		want   float64
	}{
		// 0.1 * 1.5 * 1.2 (London) * 0.5 (session volume done) * 1.5 * 0.8 (20/25 ATR)
		{market.VolVeryLow, 0.11},
		{market.VolModerate, 0.05},
		{market.VolHigh, 0.03},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.stored), func(t *testing.T) {
			t.Parallel()
			p := midDay()
			p.Session = market.London
			p.ATR = 25
			p.Volatility = tt.stored

			res := newTestSizer(t, p).Calculate(EntryTrendFollowing, DefaultConditions(), nil)
			assert.Equal(t, MarketConditionsS, res.Method)
			assert.InDelta(t, tt.want, res.RecommendedLotSize, 1e-9)
			assert.Contains(t, res.Reasoning, "market conditions: "+string(tt.stored))
		})
	}
}

func TestCalculateConditionLabelSelectsMethod(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.Session = market.London
	p.ATR = 25

	cond := DefaultConditions()
	cond.Volatility = market.VolVeryHigh
	res := newTestSizer(t, p).Calculate(EntryTrendFollowing, cond, nil)

	// 200/25 = 8 capped at 5, London caps at 3, halved for the session,
	// 0.8 for ATR, then daily risk holds it at 1.0.
	assert.Equal(t, VolatilityBased, res.Method)
	assert.InDelta(t, 1.0, res.RecommendedLotSize, 1e-9)
	assert.Contains(t, res.Reasoning, "MODERATE volatility (ATR 25.0)")
}

func TestCalculateStoredRecoveryCountIgnoredWithoutContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  *RecoveryContext
	}{
		{"nil context", nil},
		{"empty context", &RecoveryContext{Method: MartingaleSmart}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var lots []float64
			for n := 0; n <= MaxRecoveryCount; n++ {
				p := midDay()
				p.Session = market.London
				p.ATR = 25
				p.RecoveryPositions = n
				res := newTestSizer(t, p).Calculate(EntryTrendFollowing, DefaultConditions(), tt.rec)
				assert.NotContains(t, res.Reasoning, "recovery:")
				lots = append(lots, res.RecommendedLotSize)
			}
			for n, got := range lots {
				assert.InDelta(t, 0.05, got, 1e-9, "stored positions %d", n)
			}
		})
	}
}

func TestCalculateAbsoluteMax(t *testing.T) {
	t.Parallel()

	p := DefaultParameters()
	p.AccountBalance, p.AccountEquity, p.FreeMargin = 1e6, 1e6, 1e6
	p.Session = market.Overlap
	p.ATR = 5
	p.Volatility = market.VolVeryLow

	cond := MarketConditions{
		TrendStrength: market.TrendStrong,
		MarketState:   market.StateTrending,
		Volatility:    market.VolVeryLow,
	}
	res := newTestSizer(t, p).Calculate(EntryTrendFollowing, cond, nil)

	assert.InDelta(t, 10.0, res.RecommendedLotSize, 1e-9)
	assert.InDelta(t, 10.0, res.MaxLotSize, 1e-9)
	assert.InDelta(t, 5.0, res.MinLotSize, 1e-9)
	assert.True(t, res.HasWarning(WarnAbsoluteMax))
}

func TestCalculateLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *SizingParameters)
		want    float64
		warning string
	}{
		{
			name:    "daily risk exhausted",
			mutate:  func(p *SizingParameters) { p.CurrentDailyRisk = 0.10 },
			want:    0.01,
			warning: WarnDailyRiskExhausted,
		},
		{
			name:    "margin limited",
			mutate:  func(p *SizingParameters) { p.FreeMargin = 300 },
			want:    0.3,
			warning: WarnMarginLimit,
		},
		{
			name:    "margin insufficient",
			mutate:  func(p *SizingParameters) { p.FreeMargin = 5 },
			want:    0.01,
			warning: WarnMarginInsufficient,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParameters()
			tt.mutate(&p)
			res := newTestSizer(t, p).Calculate(EntryScalpingFast, DefaultConditions(), nil)
			assert.InDelta(t, tt.want, res.RecommendedLotSize, 1e-9)
			assert.True(t, res.HasWarning(tt.warning), "warnings: %v", res.Warnings)
			assert.False(t, res.Fallback)
		})
	}
}

func TestApplyLimitsRounding(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()

	p := DefaultParameters()
	d := applyLimits(0.256, p, pol)
	assert.InDelta(t, 0.26, d.Lots, 1e-9)

	d = applyLimits(0.004, p, pol)
	assert.InDelta(t, 0.01, d.Lots, 1e-9)
	assert.Equal(t, WarnAdjusted, d.Warnings[0].Code)

	// Rounding up would cross the margin ceiling of 0.255 lots.
	p.FreeMargin = 255
	d = applyLimits(0.3, p, pol)
	assert.InDelta(t, 0.25, d.Lots, 1e-9)
	assert.InDelta(t, 0.255, d.Ceiling, 1e-9)
}

func TestSelectStrategy(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, DefaultParameters())
	tests := []struct {
		name   string
		mutate func(p *SizingParameters)
		vol    market.VolatilityLevel
		rec    *RecoveryContext
		want   SizingStrategy
	}{
		{"recovery wins", nil, market.VolVeryHigh, &RecoveryContext{Positions: 1}, RecoveryAdaptive},
		{"empty recovery ignored", nil, market.VolModerate, &RecoveryContext{}, VolumeTarget},
		{"volume target open", nil, market.VolHigh, nil, VolumeTarget},
		{"exactly 80 percent left", func(p *SizingParameters) { p.RemainingVolumeTarget = 60 }, market.VolModerate, nil, MarketConditionsS},
		{"high volatility", func(p *SizingParameters) { p.RemainingVolumeTarget = 30 }, market.VolHigh, nil, VolatilityBased},
		{"overlap", func(p *SizingParameters) { p.RemainingVolumeTarget = 30; p.Session = market.Overlap }, market.VolModerate, nil, SessionBased},
		{"default", func(p *SizingParameters) { p.RemainingVolumeTarget = 30 }, market.VolLow, nil, MarketConditionsS},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultParameters()
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			assert.Equal(t, tt.want, s.selectStrategy(p, tt.vol, tt.rec))
		})
	}
}

func TestBaseSize(t *testing.T) {
	t.Parallel()

	s := newTestSizer(t, DefaultParameters())
	p := DefaultParameters()

	tests := []struct {
		method SizingStrategy
		mutate func(p *SizingParameters)
		want   float64
	}{
		{FixedLot, nil, 0.1},
		{CapitalPercentage, nil, 0.2},
		{VolatilityBased, nil, 5},
		{VolatilityBased, func(p *SizingParameters) { p.ATR = 100 }, 2},
		{VolatilityBased, func(p *SizingParameters) { p.ATR = 0 }, 0.1},
		{VolumeTarget, func(p *SizingParameters) { p.RemainingVolumeTarget = 7 }, 0.5},
		{SessionBased, func(p *SizingParameters) { p.Session = market.NewYork }, 0.08},
		{SessionBased, func(p *SizingParameters) { p.Session = market.Quiet }, 0.05},
		{MarketConditionsS, nil, 0.1},
	}

	for _, tt := range tests {
		q := p
		if tt.mutate != nil {
			tt.mutate(&q)
		}
		got, _ := s.baseSize(testNow, tt.method, q, market.VolModerate, 0)
		assert.InDelta(t, tt.want, got, 1e-9, "%s", tt.method)
	}

	got, _ := s.baseSize(testNow, RecoveryAdaptive, p, market.VolModerate, 3)
	assert.InDelta(t, 0.07, got, 1e-9)
}

func TestRecoveryMultiplierDecreases(t *testing.T) {
	t.Parallel()

	r := NewRecoveryAdjuster()
	for n := 1; n <= MaxRecoveryCount; n++ {
		assert.Less(t, r.Multiplier(n), r.Multiplier(n-1), "n=%d", n)
	}
	assert.Equal(t, r.Multiplier(MaxRecoveryCount), r.Multiplier(9))
	assert.Equal(t, r.Multiplier(0), r.Multiplier(-1))
}

func TestSessionMultiplierOrdering(t *testing.T) {
	t.Parallel()

	ss := NewSessionSizer()
	assert.Greater(t, ss.Profile(market.Overlap).BaseMultiplier, ss.Profile(market.London).BaseMultiplier)
	assert.Greater(t, ss.Profile(market.London).BaseMultiplier, ss.Profile(market.NewYork).BaseMultiplier)
	assert.Greater(t, ss.Profile(market.NewYork).BaseMultiplier, ss.Profile(market.Asian).BaseMultiplier)
	assert.Equal(t, ss.Profile(market.Asian), ss.Profile(market.Quiet))
}

func TestCalculateBoundsProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	sessions := []market.Session{market.Asian, market.London, market.NewYork, market.Overlap, market.Quiet}
	vols := []market.VolatilityLevel{market.VolVeryLow, market.VolLow, market.VolModerate, market.VolHigh, market.VolVeryHigh}
	trends := []market.TrendStrength{market.TrendStrong, market.TrendModerate, market.TrendWeak}
	states := []market.State{market.StateTrending, market.StateRanging, market.StateVolatile}

	for i := 0; i < 500; i++ {
		p := DefaultParameters()
		p.AccountEquity = 500 + rng.Float64()*200000
		p.FreeMargin = rng.Float64() * p.AccountEquity
		p.CurrentDailyRisk = rng.Float64() * 0.12
		p.CurrentDailyVolume = rng.Float64() * 90
		p.RemainingVolumeTarget = math.Max(0, p.DailyVolumeTarget-p.CurrentDailyVolume)
		p.ATR = rng.Float64() * 60
		p.Session = sessions[rng.Intn(len(sessions))]
		p.Volatility = vols[rng.Intn(len(vols))]
		p.RecoveryPositions = rng.Intn(6)

		cond := MarketConditions{
			TrendStrength: trends[rng.Intn(len(trends))],
			MarketState:   states[rng.Intn(len(states))],
			Volatility:    vols[rng.Intn(len(vols))],
			NearKeyLevel:  rng.Intn(2) == 0,
		}
		var rec *RecoveryContext
		if rng.Intn(3) == 0 {
			rec = &RecoveryContext{Positions: 1 + rng.Intn(5), Method: RecoveryMethods[rng.Intn(len(RecoveryMethods))]}
		}

		res := newTestSizer(t, p).Calculate(EntryAutoSelect, cond, rec)
		require.False(t, res.Fallback, "case %d", i)

		lot := res.RecommendedLotSize
		assert.GreaterOrEqual(t, lot, 0.01-1e-9, "case %d", i)
		assert.LessOrEqual(t, lot, 10.0+1e-9, "case %d", i)
		assert.LessOrEqual(t, res.MinLotSize, lot+1e-9, "case %d", i)
		assert.LessOrEqual(t, lot, res.MaxLotSize+1e-9, "case %d", i)

		ceiling := math.Min(10, p.FreeMargin/p.MarginPerLot)
		if left := p.MaxDailyRisk - p.CurrentDailyRisk; left > 0 {
			ceiling = math.Min(ceiling, left*p.AccountEquity/1000)
		} else {
			ceiling = 0.01
		}
		if ceiling >= 0.01 {
			assert.LessOrEqual(t, lot, ceiling+1e-9, "case %d", i)
		}
		assert.GreaterOrEqual(t, res.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, res.ConfidenceScore, 100.0)
	}
}

func TestCalculateDeterministic(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.Session = market.London
	cond := MarketConditions{TrendStrength: market.TrendWeak, MarketState: market.StateVolatile, Volatility: market.VolLow, ATR: 8}
	rec := &RecoveryContext{Positions: 2, Method: HedgingAdvanced}

	a := newTestSizer(t, p).Calculate(EntryGrid, cond, rec)
	b := newTestSizer(t, p).Calculate(EntryGrid, cond, rec)
	assert.Equal(t, a, b)
}

func TestCalculateFallback(t *testing.T) {
	t.Parallel()

	assertFallback := func(t *testing.T, res SizingResult) {
		t.Helper()
		assert.True(t, res.Fallback)
		assert.InDelta(t, FallbackLotSize, res.RecommendedLotSize, 1e-9)
		assert.InDelta(t, 0.2, res.MaxLotSize, 1e-9)
		assert.InDelta(t, 0.01, res.MinLotSize, 1e-9)
		assert.InDelta(t, FallbackConfidence, res.ConfidenceScore, 1e-9)
		assert.Equal(t, FixedLot, res.Method)
		assert.Equal(t, ImpactModerate, res.MarketImpact)
		assert.InDelta(t, 0.5, res.MarketImpactScore, 1e-9)
		assert.InDelta(t, 1.0, res.RiskRewardRatio, 1e-9)
		assert.True(t, res.HasWarning(WarnFallback))
	}

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		s := newTestSizer(t, DefaultParameters())
		s.failHook = func() error { return errors.New("boom") }
		assertFallback(t, s.Calculate(EntryTrendFollowing, DefaultConditions(), nil))
	})

	t.Run("panic", func(t *testing.T) {
		t.Parallel()
		s := newTestSizer(t, DefaultParameters())
		s.failHook = func() error { panic("boom") }
		assertFallback(t, s.Calculate(EntryTrendFollowing, DefaultConditions(), nil))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		t.Parallel()
		p := DefaultParameters()
		p.MarginPerLot = 0
		s := newTestSizer(t, DefaultParameters())
		assertFallback(t, s.CalculateWith(p, EntryTrendFollowing, DefaultConditions(), nil))

		p = DefaultParameters()
		p.ATR = math.NaN()
		assertFallback(t, s.CalculateWith(p, EntryTrendFollowing, DefaultConditions(), nil))
	})
}

func TestCalculateUsesConditionATR(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.ATR = 0
	cond := DefaultConditions()
	cond.ATR = 40

	res := newTestSizer(t, p).Calculate(EntryTrendFollowing, cond, nil)
	// 0.1 * 0.8 (Asian) * 0.5 (session volume done) * 0.5 (20/40 ATR) = 0.02
	assert.InDelta(t, 0.02, res.RecommendedLotSize, 1e-9)
}

func TestCalculateRecoverySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method RecoveryMethod
		want   float64
	}{
		// 0.1 * 0.8 base, 0.8 Asian, 0.5 session, 0.8 recovery * method, 4/3 volatility
		{MartingaleSmart, 0.04},
		{HedgingAdvanced, 0.03},
		{GridIntelligent, 0.02},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.method), func(t *testing.T) {
			t.Parallel()
			p := midDay()
			p.RecoveryPositions = 1
			obs := &recordingObserver{}
			s := newTestSizer(t, p, WithObserver(obs))

			res := s.CalculateRecoverySize(context.Background(), "task-1", tt.method, 250)
			assert.Equal(t, RecoveryAdaptive, res.Method)
			assert.Equal(t, EntryMeanReversion, res.EntryStrategy)
			assert.InDelta(t, tt.want, res.RecommendedLotSize, 1e-9)
			require.Len(t, obs.results, 1)
		})
	}
}

func TestCalculateAuto(t *testing.T) {
	t.Parallel()

	p := midDay()
	p.ATR = 40
	src := fakeMarket{snap: market.Snapshot{ATR: 40, Volatility: market.VolVeryHigh, TrendStrength: market.TrendWeak, State: market.StateVolatile}}

	res := newTestSizer(t, p, WithMarketSource(src)).CalculateAuto(context.Background(), EntryTrendFollowing, nil)
	assert.Equal(t, VolatilityBased, res.Method)

	broken := fakeMarket{err: errors.New("feed down")}
	res = newTestSizer(t, p, WithMarketSource(broken)).CalculateAuto(context.Background(), EntryTrendFollowing, nil)
	assert.Equal(t, MarketConditionsS, res.Method)
	assert.False(t, res.Fallback)
}

func TestStats(t *testing.T) {
	t.Parallel()

	now := testNow
	obs := &recordingObserver{}
	s := NewSizer(DefaultPolicy(), NewStore(midDay()),
		WithClock(func() time.Time { return now }),
		WithObserver(obs))

	assert.Zero(t, s.Stats().Calculations)

	s.Calculate(EntryTrendFollowing, DefaultConditions(), nil)
	s.failHook = func() error { return errors.New("boom") }
	s.Calculate(EntryTrendFollowing, DefaultConditions(), nil)

	st := s.Stats()
	assert.Equal(t, 2, st.Calculations)
	assert.Equal(t, 1, st.Fallbacks)
	assert.Equal(t, 1, st.ByMethod[FixedLot])
	assert.InDelta(t, st.TotalVolume/2, st.AverageLotSize, 1e-4)
	assert.False(t, st.RefresherActive)
	assert.Equal(t, midDay(), st.Parameters)
	assert.Len(t, obs.results, 2)

	now = now.Add(24 * time.Hour)
	st = s.Stats()
	assert.Zero(t, st.Calculations)
	assert.Zero(t, st.TotalVolume)
}
