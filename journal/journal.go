package journal

import (
	"strings"
	"time"

	"github.com/rustyeddy/goldtrader/pkg/id"
	"github.com/rustyeddy/goldtrader/risk"
)

// SizingRecord is one sizing decision as stored.
type SizingRecord struct {
	ID             string
	Time           time.Time
	Symbol         string
	Session        string
	EntryStrategy  string
	Method         string
	RecommendedLot float64
	MaxLot         float64
	MinLot         float64
	RiskAmount     float64
	MarginRequired float64
	Confidence     float64
	Impact         string
	Fallback       bool
	Warnings       string // comma separated codes
	Reasoning      string
}

// FillRecord is an executed volume reported back to the daily ledger.
type FillRecord struct {
	ID           string
	Time         time.Time
	Lots         float64
	RiskFraction float64
	Source       string
}

type Journal interface {
	RecordSizing(SizingRecord) error
	RecordFill(FillRecord) error
	Close() error
}

// FromResult builds a record for res. The id carries the result time.
func FromResult(res risk.SizingResult, p risk.SizingParameters) SizingRecord {
	codes := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	return SizingRecord{
		ID:             id.At(res.Time),
		Time:           res.Time.UTC(),
		Symbol:         p.Symbol,
		Session:        string(p.Session),
		EntryStrategy:  string(res.EntryStrategy),
		Method:         string(res.Method),
		RecommendedLot: res.RecommendedLotSize,
		MaxLot:         res.MaxLotSize,
		MinLot:         res.MinLotSize,
		RiskAmount:     res.RiskAmount,
		MarginRequired: res.MarginRequired,
		Confidence:     res.ConfidenceScore,
		Impact:         string(res.MarketImpact),
		Fallback:       res.Fallback,
		Warnings:       strings.Join(codes, ","),
		Reasoning:      res.Reasoning,
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSizing(SizingRecord) error { return nil }
func (Nop) RecordFill(FillRecord) error     { return nil }
func (Nop) Close() error                    { return nil }
