package risk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rustyeddy/goldtrader/market"
)

// DailyLedger tracks lots traded and risk consumed for the current trading
// day. The day rolls over at local midnight of the session clock.
type DailyLedger struct {
	mu    sync.Mutex
	clock *market.SessionClock
	path  string // optional snapshot file

	dayStart time.Time
	volume   float64
	risk     float64 // fraction of equity
	trades   int
}

// DayTotals is what the ledger reports for the current day.
type DayTotals struct {
	DayStart time.Time `json:"day_start"`
	Volume   float64   `json:"volume"`
	Risk     float64   `json:"risk"`
	Trades   int       `json:"trades"`
}

func NewDailyLedger(clock *market.SessionClock, path string) *DailyLedger {
	return &DailyLedger{clock: clock, path: path}
}

// Load restores today's totals from the snapshot file. A missing file, or a
// snapshot from an earlier day, starts the day empty.
func (l *DailyLedger) Load(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetLocked(now)
	if l.path == "" {
		return nil
	}
	b, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	var snap DayTotals
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("load ledger %s: %w", l.path, err)
	}
	if !l.clock.SameDay(snap.DayStart, now) {
		return nil
	}
	l.volume, l.risk, l.trades = snap.Volume, snap.Risk, snap.Trades
	return nil
}

// Record adds a fill. lots is the absolute volume, riskFraction the share of
// equity put at risk.
func (l *DailyLedger) Record(now time.Time, lots, riskFraction float64) error {
	if lots < 0 {
		lots = -lots
	}
	if riskFraction < 0 {
		return fmt.Errorf("record fill: negative risk %.4f", riskFraction)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rolloverLocked(now)
	l.volume += lots
	l.risk += riskFraction
	l.trades++
	return l.persistLocked()
}

// Totals returns the totals for the day containing now.
func (l *DailyLedger) Totals(now time.Time) DayTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked(now)
	return l.totalsLocked()
}

func (l *DailyLedger) totalsLocked() DayTotals {
	return DayTotals{DayStart: l.dayStart, Volume: l.volume, Risk: l.risk, Trades: l.trades}
}

func (l *DailyLedger) rolloverLocked(now time.Time) {
	if l.dayStart.IsZero() || !l.clock.SameDay(l.dayStart, now) {
		l.resetLocked(now)
	}
}

func (l *DailyLedger) resetLocked(now time.Time) {
	l.dayStart = l.clock.DayStart(now)
	l.volume, l.risk, l.trades = 0, 0, 0
}

func (l *DailyLedger) persistLocked() error {
	if l.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(l.totalsLocked(), "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return os.Rename(tmp, l.path)
}
