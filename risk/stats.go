package risk

import "time"

type stats struct {
	day          time.Time
	calculations int
	fallbacks    int
	totalVolume  float64
	byMethod     map[SizingStrategy]int
}

// Stats is a point-in-time summary of the sizer's work for the current day.
type Stats struct {
	Day             time.Time              `json:"day"`
	Calculations    int                    `json:"calculations"`
	Fallbacks       int                    `json:"fallbacks"`
	TotalVolume     float64                `json:"total_volume_allocated"`
	AverageLotSize  float64                `json:"average_lot_size"`
	ByMethod        map[SizingStrategy]int `json:"by_method"`
	Parameters      SizingParameters       `json:"parameters"`
	ParametersAsOf  time.Time              `json:"parameters_as_of"`
	RefresherActive bool                   `json:"refresher_active"`
}

func (s *Sizer) dayOf(t time.Time) time.Time {
	if s.clock != nil {
		return s.clock.DayStart(t)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Sizer) record(now time.Time, res SizingResult) {
	s.statsMu.Lock()
	day := s.dayOf(now)
	if !s.stats.day.Equal(day) {
		s.stats = stats{day: day}
	}
	if s.stats.byMethod == nil {
		s.stats.byMethod = make(map[SizingStrategy]int)
	}
	s.stats.calculations++
	s.stats.totalVolume += res.RecommendedLotSize
	s.stats.byMethod[res.Method]++
	if res.Fallback {
		s.stats.fallbacks++
	}
	s.statsMu.Unlock()

	s.log.Debug().
		Str("entry", string(res.EntryStrategy)).
		Str("method", string(res.Method)).
		Float64("lots", res.RecommendedLotSize).
		Float64("confidence", res.ConfidenceScore).
		Str("impact", string(res.MarketImpact)).
		Float64("impact_score", res.MarketImpactScore).
		Int("warnings", len(res.Warnings)).
		Msg("size calculated")

	s.observer.SizingCalculated(res)
}

// Stats reports today's totals. Totals reset at the start of each day.
func (s *Sizer) Stats() Stats {
	s.statsMu.Lock()
	if day := s.dayOf(s.now()); !s.stats.day.Equal(day) {
		s.stats = stats{day: day}
	}
	st := Stats{
		Day:          s.stats.day,
		Calculations: s.stats.calculations,
		Fallbacks:    s.stats.fallbacks,
		TotalVolume:  round(s.stats.totalVolume, 2),
		ByMethod:     make(map[SizingStrategy]int, len(s.stats.byMethod)),
	}
	for k, v := range s.stats.byMethod {
		st.ByMethod[k] = v
	}
	s.statsMu.Unlock()

	if st.Calculations > 0 {
		st.AverageLotSize = round(st.TotalVolume/float64(st.Calculations), 4)
	}
	st.Parameters = s.store.Get()
	st.ParametersAsOf = s.store.UpdatedAt()
	st.RefresherActive = s.refresher != nil && s.refresher.Active()
	return st
}
