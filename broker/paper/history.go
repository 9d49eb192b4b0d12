package paper

import (
	"context"
	"sort"
)

// History is the realized equity path of the account.
type History struct {
	// Equity starts at the opening balance, adds one point per closed
	// trade and ends at current equity.
	Equity []float64
	// Returns holds each closed trade's PL over the equity before it.
	Returns []float64
}

// History rebuilds the equity curve from closed trades ordered by close time.
func (e *Engine) History(ctx context.Context) History {
	e.mu.Lock()
	defer e.mu.Unlock()

	closed := make([]*Trade, 0, len(e.trades))
	realized := 0.0
	for _, t := range e.trades {
		if t.Open {
			continue
		}
		closed = append(closed, t)
		realized += t.RealizedPL
	}
	sort.Slice(closed, func(i, j int) bool {
		if !closed[i].CloseTime.Equal(closed[j].CloseTime) {
			return closed[i].CloseTime.Before(closed[j].CloseTime)
		}
		return closed[i].ID < closed[j].ID
	})

	h := History{
		Equity:  make([]float64, 0, len(closed)+2),
		Returns: make([]float64, 0, len(closed)),
	}
	eq := e.acct.Balance - realized
	h.Equity = append(h.Equity, eq)
	for _, t := range closed {
		if eq > 0 {
			h.Returns = append(h.Returns, t.RealizedPL/eq)
		}
		eq += t.RealizedPL
		h.Equity = append(h.Equity, eq)
	}
	h.Equity = append(h.Equity, e.acct.Equity)
	return h
}
