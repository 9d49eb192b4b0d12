package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/goldtrader/market"
)

const (
	volatilityBaseCap = 5.0
	volumeTargetCap   = 2.0

	riskRewardRatio   = 2.0
	suggestedSlippage = 2.0
)

// sessionBase scales FixedLot for SESSION_BASED sizing.
var sessionBase = map[market.Session]float64{
	market.Asian:   0.5,
	market.London:  1.0,
	market.NewYork: 0.8,
	market.Overlap: 1.5,
}

var impactConfidence = map[ImpactLevel]float64{
	ImpactVeryLow:  95,
	ImpactLow:      85,
	ImpactModerate: 70,
	ImpactHigh:     55,
	ImpactVeryHigh: 30,
}

// Sizer turns an entry request into a bounded lot size. It never returns an
// error: failures produce the fallback result.
type Sizer struct {
	policy Policy
	store  *Store

	log       zerolog.Logger
	now       func() time.Time
	clock     *market.SessionClock
	observer  Observer
	refresher *Refresher
	market    MarketSource

	impact   MarketImpactCalculator
	vol      VolatilityAdjuster
	session  SessionSizer
	recovery RecoveryAdjuster

	// failHook, when set, runs inside the chain. Tests use it to force errors.
	failHook func() error

	statsMu sync.Mutex
	stats   stats
}

type Option func(*Sizer)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sizer) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sizer) { s.now = now }
}

func WithSessionClock(c *market.SessionClock) Option {
	return func(s *Sizer) { s.clock = c }
}

func WithObserver(o Observer) Option {
	return func(s *Sizer) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRefresher lets Stats report whether parameter refresh is running.
func WithRefresher(r *Refresher) Option {
	return func(s *Sizer) { s.refresher = r }
}

// WithMarketSource supplies conditions for CalculateAuto and recovery sizing.
func WithMarketSource(m MarketSource) Option {
	return func(s *Sizer) { s.market = m }
}

func NewSizer(policy Policy, store *Store, opts ...Option) *Sizer {
	if store == nil {
		store = NewStore(DefaultParameters())
	}
	policy = policy.Bounded()
	s := &Sizer{
		policy:   policy,
		store:    store,
		log:      zerolog.Nop(),
		now:      time.Now,
		observer: nopObserver{},
		impact:   NewMarketImpactCalculator(),
		vol:      NewVolatilityAdjuster(policy.ATRReference),
		session:  NewSessionSizer(),
		recovery: NewRecoveryAdjuster(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "sizer").Logger()
	return s
}

func (s *Sizer) Policy() Policy { return s.policy }

func (s *Sizer) Store() *Store { return s.store }

// Calculate sizes an entry against the current parameters.
func (s *Sizer) Calculate(entry EntryStrategy, cond MarketConditions, rec *RecoveryContext) SizingResult {
	return s.CalculateWith(s.store.Get(), entry, cond, rec)
}

// CalculateAuto reads conditions from the market source, or uses defaults
// when there is none or it fails.
func (s *Sizer) CalculateAuto(ctx context.Context, entry EntryStrategy, rec *RecoveryContext) SizingResult {
	return s.Calculate(entry, s.conditions(ctx), rec)
}

// CalculateWith sizes an entry against p instead of the stored parameters.
func (s *Sizer) CalculateWith(p SizingParameters, entry EntryStrategy, cond MarketConditions, rec *RecoveryContext) SizingResult {
	now := s.now()
	res, err := s.safely(func() (SizingResult, error) {
		c, err := s.chain(now, p, entry, cond, rec)
		if err != nil {
			return SizingResult{}, err
		}
		return s.finish(now, p, entry, c), nil
	})
	if err != nil {
		res = s.fallback(now, entry, err)
	}
	s.record(now, res)
	return res
}

// CalculateRecoverySize sizes the next leg of a recovery task. The chain
// runs as MEAN_REVERSION with one more recovery position than is open,
// then martingale scales up 1.5x and grid down 0.7x before limits apply.
func (s *Sizer) CalculateRecoverySize(ctx context.Context, taskID string, method RecoveryMethod, originalLoss float64) SizingResult {
	now := s.now()
	p := s.store.Get()
	rec := &RecoveryContext{
		Positions:    p.RecoveryPositions + 1,
		Method:       method,
		OriginalLoss: originalLoss,
		TaskID:       taskID,
	}
	cond := s.conditions(ctx)

	res, err := s.safely(func() (SizingResult, error) {
		c, err := s.chain(now, p, EntryMeanReversion, cond, rec)
		if err != nil {
			return SizingResult{}, err
		}
		switch method {
		case MartingaleSmart:
			c.lots *= 1.5
			c.reasons = append(c.reasons, "martingale leg 1.5x")
		case GridIntelligent:
			c.lots *= 0.7
			c.reasons = append(c.reasons, "grid leg 0.7x")
		}
		return s.finish(now, p, EntryMeanReversion, c), nil
	})
	if err != nil {
		res = s.fallback(now, EntryMeanReversion, err)
	}

	s.log.Info().
		Str("task_id", taskID).
		Str("method", string(method)).
		Float64("original_loss", originalLoss).
		Float64("lots", res.RecommendedLotSize).
		Str("category", string(CategoryRecovery)).
		Msg("recovery size calculated")

	s.record(now, res)
	return res
}

func (s *Sizer) conditions(ctx context.Context) MarketConditions {
	if s.market == nil {
		return DefaultConditions()
	}
	snap, err := s.market.Snapshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).
			Str("category", string(CategoryMarketData)).
			Msg("market snapshot unavailable, using default conditions")
		return DefaultConditions()
	}
	return ConditionsFromSnapshot(snap)
}

// safely runs fn and turns a panic into ErrPanic.
func (s *Sizer) safely(fn func() (SizingResult, error)) (res SizingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

// chainState is the size and notes carried between steps before limits.
type chainState struct {
	method  SizingStrategy
	lots    float64
	vol     market.VolatilityLevel
	reasons []string
}

func (s *Sizer) chain(now time.Time, p SizingParameters, entry EntryStrategy, cond MarketConditions, rec *RecoveryContext) (chainState, error) {
	if err := p.Validate(); err != nil {
		return chainState{}, err
	}
	if s.failHook != nil {
		if err := s.failHook(); err != nil {
			return chainState{}, err
		}
	}
	if p.ATR <= 0 && cond.ATR > 0 {
		p.ATR = cond.ATR
	}

	// The caller's label picks the method; the stored bucket sizes it.
	label := cond.Volatility
	if label == "" {
		label = p.Volatility
	}
	c := chainState{vol: p.Volatility}

	c.method = s.selectStrategy(p, label, rec)
	positions := 0
	if rec.active() {
		positions = rec.Positions
	}
	var reason string
	c.lots, reason = s.baseSize(now, c.method, p, c.vol, positions)
	c.reasons = append(c.reasons, reason)

	c.lots, reason = marketAdjust(c.lots, cond)
	if reason != "" {
		c.reasons = append(c.reasons, reason)
	}

	c.lots, reason = s.session.Adjust(c.lots, p.Session, p.DailyVolumeTarget, p.CurrentDailyVolume)
	c.reasons = append(c.reasons, reason)

	if rec.active() {
		c.lots, reason = s.recovery.Adjust(c.lots, rec.Positions, rec.Method)
		c.reasons = append(c.reasons, reason)
	}

	c.lots, reason = s.vol.Adjust(c.lots, c.vol, p.ATR)
	c.reasons = append(c.reasons, reason)

	if math.IsNaN(c.lots) || math.IsInf(c.lots, 0) {
		return chainState{}, fmt.Errorf("%w: %v after %s", ErrNonFinite, c.lots, c.method)
	}
	return c, nil
}

func (s *Sizer) selectStrategy(p SizingParameters, vol market.VolatilityLevel, rec *RecoveryContext) SizingStrategy {
	switch {
	case rec.active():
		return RecoveryAdaptive
	case p.RemainingVolumeTarget > s.policy.VolumeTargetShare*p.DailyVolumeTarget:
		return VolumeTarget
	case vol.IsHigh():
		return VolatilityBased
	case p.Session == market.Overlap:
		return SessionBased
	}
	if s.policy.DefaultStrategy == "" {
		return MarketConditionsS
	}
	return s.policy.DefaultStrategy
}

func (s *Sizer) baseSize(now time.Time, method SizingStrategy, p SizingParameters, vol market.VolatilityLevel, recoveryPositions int) (float64, string) {
	pol := s.policy
	switch method {
	case FixedLot:
		return pol.FixedLot, fmt.Sprintf("fixed lot %.2f", pol.FixedLot)

	case CapitalPercentage:
		lots := clamp(p.AccountEquity*p.MaxRiskPerTrade/pol.RiskPerLot, pol.MinLot, pol.MaxLot)
		return lots, fmt.Sprintf("%.1f%% of equity: %.2f lots", p.MaxRiskPerTrade*100, lots)

	case VolatilityBased:
		if p.ATR <= 0 {
			return pol.FixedLot, "volatility based: no ATR, fixed lot"
		}
		lots := clamp(pol.VolatilityBudget/p.ATR, pol.MinLot, volatilityBaseCap)
		return lots, fmt.Sprintf("volatility based: ATR %.1f -> %.2f lots", p.ATR, lots)

	case VolumeTarget:
		hours := s.hoursLeft(now)
		lots := clamp(p.RemainingVolumeTarget/float64(hours), pol.MinLot, volumeTargetCap)
		return lots, fmt.Sprintf("volume target: %.1f lots over %dh -> %.2f lots", p.RemainingVolumeTarget, hours, lots)

	case SessionBased:
		lots := pol.FixedLot * lookupSession(sessionBase, p.Session, 1.0)
		return lots, fmt.Sprintf("%s session base %.2f lots", p.Session, lots)

	case RecoveryAdaptive:
		lots := pol.FixedLot * s.recovery.Multiplier(recoveryPositions)
		return lots, fmt.Sprintf("recovery adaptive: %d positions -> %.2f lots", recoveryPositions, lots)
	}

	lots := pol.FixedLot * lookupVol(s.vol.Multipliers, vol, 1.0)
	return lots, fmt.Sprintf("market conditions: %s volatility -> %.2f lots", vol, lots)
}

func (s *Sizer) hoursLeft(now time.Time) int {
	if s.clock != nil {
		return s.clock.HoursLeftInDay(now)
	}
	return 24 - now.Hour()
}

func marketAdjust(lots float64, cond MarketConditions) (float64, string) {
	m := 1.0
	var notes []string
	switch cond.TrendStrength {
	case market.TrendStrong:
		m *= 1.2
		notes = append(notes, "strong trend 1.2x")
	case market.TrendWeak:
		m *= 0.8
		notes = append(notes, "weak trend 0.8x")
	}
	switch cond.MarketState {
	case market.StateTrending:
		m *= 1.1
		notes = append(notes, "trending 1.1x")
	case market.StateVolatile:
		m *= 0.9
		notes = append(notes, "volatile 0.9x")
	}
	if cond.NearKeyLevel {
		m *= 0.85
		notes = append(notes, "near key level 0.85x")
	}
	if len(notes) == 0 {
		return lots, ""
	}
	return lots * m, "market: " + strings.Join(notes, ", ")
}

// finish applies limits and derives every field of the result from the
// final lot size.
func (s *Sizer) finish(now time.Time, p SizingParameters, entry EntryStrategy, c chainState) SizingResult {
	lim := applyLimits(c.lots, p, s.policy)
	lots := lim.Lots

	margin := lots * p.MarginPerLot
	impact := s.impact.Impact(lots, p.Session, c.vol)

	return SizingResult{
		Time:               now,
		EntryStrategy:      entry,
		Method:             c.method,
		RecommendedLotSize: lots,
		MaxLotSize:         math.Max(lots, math.Min(round(lots*2, 2), s.policy.MaxSuggestedLot)),
		MinLotSize:         math.Max(round(lots/2, 2), s.policy.MinLot),
		RiskAmount:         round(lots*s.policy.RiskPerLot, 2),
		MarginRequired:     round(margin, 2),
		ConfidenceScore:    confidence(impact, p, margin),
		RiskRewardRatio:    riskRewardRatio,
		Reasoning:          strings.Join(c.reasons, "; "),
		Warnings:           lim.Warnings,
		MarketImpact:       impact,
		MarketImpactScore:  impact.Score(),
		SuggestedSlippage:  suggestedSlippage,
		UrgencyLevel:       1,
	}
}

func confidence(impact ImpactLevel, p SizingParameters, margin float64) float64 {
	score, ok := impactConfidence[impact]
	if !ok {
		score = 50
	}

	if margin > 0 {
		ratio := p.FreeMargin / margin
		switch {
		case ratio > 10:
			score += 10
		case ratio > 5:
			score += 5
		case ratio < 2:
			score -= 20
		}
	}

	if p.MaxDailyRisk > 0 {
		usage := p.CurrentDailyRisk / p.MaxDailyRisk
		switch {
		case usage < 0.5:
			score += 10
		case usage > 0.8:
			score -= 15
		}
	}

	if p.DailyVolumeTarget > 0 {
		progress := p.CurrentDailyVolume / p.DailyVolumeTarget
		switch {
		case progress >= 0.3 && progress <= 0.7:
			score += 5
		case progress > 0.9:
			score -= 10
		}
	}

	return clamp(score, 0, 100)
}

func (s *Sizer) fallback(now time.Time, entry EntryStrategy, err error) SizingResult {
	s.log.Error().Err(err).
		Str("entry", string(entry)).
		Str("category", string(CategorySizing)).
		Str("severity", string(SeverityHigh)).
		Msg("sizing failed, using fallback")
	return fallbackResult(now, entry)
}
