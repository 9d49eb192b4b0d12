// Package indicators provides streaming technical indicators for the sizer.
package indicators

import "github.com/rustyeddy/goldtrader/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in live and replayed feeds.
type Indicator interface {
	// Name returns a stable identifier like "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}
