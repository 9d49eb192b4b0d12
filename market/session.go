package market

import (
	"fmt"
	"strings"
	"time"
)

// Session is a named trading-hours window used to bucket liquidity.
type Session string

const (
	Asian   Session = "ASIAN"
	London  Session = "LONDON"
	NewYork Session = "NEW_YORK"
	Overlap Session = "OVERLAP"
	Quiet   Session = "QUIET"
)

// Sessions lists the sessions in detection priority order.
var Sessions = []Session{Overlap, Asian, London, NewYork, Quiet}

func ParseSession(s string) (Session, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASIAN", "ASIA", "TOKYO":
		return Asian, nil
	case "LONDON":
		return London, nil
	case "NEW_YORK", "NEWYORK", "NY":
		return NewYork, nil
	case "OVERLAP":
		return Overlap, nil
	case "QUIET":
		return Quiet, nil
	}
	return "", fmt.Errorf("unknown session %q", s)
}

// Window is a clock interval in minutes after local midnight. Windows with
// Start > End wrap past midnight. Both ends are inclusive.
type Window struct {
	Start int
	End   int
}

func (w Window) contains(minute int) bool {
	if w.Start <= w.End {
		return minute >= w.Start && minute <= w.End
	}
	return minute >= w.Start || minute <= w.End
}

func hm(h, m int) int { return h*60 + m }

// DefaultWindows are expressed in GMT+7.
var DefaultWindows = map[Session]Window{
	Asian:   {Start: hm(22, 0), End: hm(8, 0)},
	London:  {Start: hm(15, 0), End: hm(0, 0)},
	NewYork: {Start: hm(20, 30), End: hm(5, 30)},
	Overlap: {Start: hm(20, 30), End: hm(0, 0)},
}

// DefaultTimezone is the zone DefaultWindows are written in.
const DefaultTimezone = "Asia/Bangkok"

// SessionClock maps wall-clock time to a Session.
type SessionClock struct {
	loc     *time.Location
	windows map[Session]Window
}

// NewSessionClock builds a clock for tz. An empty tz means DefaultTimezone.
func NewSessionClock(tz string) (*SessionClock, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		// Fixed offset fallback when the tz database is unavailable.
		if tz != DefaultTimezone {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = time.FixedZone("GMT+7", 7*60*60)
	}
	return &SessionClock{loc: loc, windows: DefaultWindows}, nil
}

func (c *SessionClock) Location() *time.Location { return c.loc }

// SessionAt returns the session active at t. Overlap wins over its parents;
// time outside every window is Quiet.
func (c *SessionClock) SessionAt(t time.Time) Session {
	local := t.In(c.loc)
	minute := hm(local.Hour(), local.Minute())
	for _, s := range Sessions {
		w, ok := c.windows[s]
		if !ok {
			continue
		}
		if w.contains(minute) {
			return s
		}
	}
	return Quiet
}

// HoursLeftInDay returns the whole hours left before local midnight, in [1, 24].
func (c *SessionClock) HoursLeftInDay(t time.Time) int {
	return 24 - t.In(c.loc).Hour()
}

// DayStart returns local midnight for t.
func (c *SessionClock) DayStart(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// SameDay reports whether a and b fall on the same local trading day.
func (c *SessionClock) SameDay(a, b time.Time) bool {
	return c.DayStart(a).Equal(c.DayStart(b))
}
