package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	sizingHeader = []string{"id", "time", "symbol", "session", "entry_strategy", "method",
		"recommended_lot", "max_lot", "min_lot", "risk_amount", "margin_required",
		"confidence", "impact", "fallback", "warnings", "reasoning"}
	fillHeader = []string{"id", "time", "lots", "risk_fraction", "source"}
)

type CSVJournal struct {
	sizings *csv.Writer
	fills   *csv.Writer
	sf, ff  *os.File
}

// NewCSV creates (or truncates) the two files and writes their headers.
func NewCSV(sizingsPath, fillsPath string) (*CSVJournal, error) {
	sf, err := os.Create(sizingsPath)
	if err != nil {
		return nil, err
	}
	ff, err := os.Create(fillsPath)
	if err != nil {
		_ = sf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(sf), csv.NewWriter(ff), sf, ff}
	if err := j.write(j.sizings, sizingHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.fills, fillHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordSizing(r SizingRecord) error {
	return j.write(j.sizings, []string{
		r.ID,
		r.Time.UTC().Format(time.RFC3339Nano),
		r.Symbol,
		r.Session,
		r.EntryStrategy,
		r.Method,
		f(r.RecommendedLot),
		f(r.MaxLot),
		f(r.MinLot),
		f(r.RiskAmount),
		f(r.MarginRequired),
		f(r.Confidence),
		r.Impact,
		strconv.FormatBool(r.Fallback),
		r.Warnings,
		r.Reasoning,
	})
}

func (j *CSVJournal) RecordFill(fl FillRecord) error {
	return j.write(j.fills, []string{
		fl.ID,
		fl.Time.UTC().Format(time.RFC3339Nano),
		f(fl.Lots),
		f(fl.RiskFraction),
		fl.Source,
	})
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.sizings.Flush()
	j.fills.Flush()
	errS, errF := j.sizings.Error(), j.fills.Error()
	cs, cf := j.sf.Close(), j.ff.Close()
	for _, err := range []error{errS, errF, cs, cf} {
		if err != nil {
			return err
		}
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
