package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordSizing(r SizingRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO sizings
		(id, time, symbol, session, entry_strategy, method, recommended_lot, max_lot, min_lot,
		 risk_amount, margin_required, confidence, impact, fallback, warnings, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time.UTC(), r.Symbol, r.Session, r.EntryStrategy, r.Method,
		r.RecommendedLot, r.MaxLot, r.MinLot, r.RiskAmount, r.MarginRequired,
		r.Confidence, r.Impact, r.Fallback, r.Warnings, r.Reasoning,
	)
	return err
}

func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills (id, time, lots, risk_fraction, source)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.Time.UTC(), f.Lots, f.RiskFraction, f.Source,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
