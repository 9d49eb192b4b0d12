package market

import (
	"context"
	"fmt"
)

func QuoteToAccountRate(ctx context.Context,
	instrument string,
	accountCurrency string,
	ticks TickSource) (float64, error) {

	meta, err := Lookup(instrument)
	if err != nil {
		return 0, err
	}

	// XAUUSD in a USD account
	if meta.QuoteCurrency == accountCurrency {
		return 1.0, nil
	}

	// Account currency is quoted against USD (e.g. a EUR account): we need
	// the USD -> account rate, which is 1 / EURUSD.
	pair := accountCurrency + meta.QuoteCurrency
	if ticks == nil {
		return 0, fmt.Errorf("no tick source to convert %s -> %s", meta.QuoteCurrency, accountCurrency)
	}
	px, err := ticks.GetTick(ctx, pair)
	if err != nil {
		return 0, fmt.Errorf("convert %s -> %s: %w", meta.QuoteCurrency, accountCurrency, err)
	}
	mid := px.Mid()
	if mid <= 0 {
		return 0, fmt.Errorf("convert %s -> %s: invalid mid %.5f", meta.QuoteCurrency, accountCurrency, mid)
	}
	return 1.0 / mid, nil
}
