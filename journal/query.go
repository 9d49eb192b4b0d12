package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sizingColumns = `id, time, symbol, session, entry_strategy, method, recommended_lot, max_lot, min_lot,
	risk_amount, margin_required, confidence, impact, fallback, warnings, reasoning`

type scanner interface {
	Scan(dest ...any) error
}

func scanSizing(s scanner) (SizingRecord, error) {
	var r SizingRecord
	err := s.Scan(
		&r.ID,
		&r.Time,
		&r.Symbol,
		&r.Session,
		&r.EntryStrategy,
		&r.Method,
		&r.RecommendedLot,
		&r.MaxLot,
		&r.MinLot,
		&r.RiskAmount,
		&r.MarginRequired,
		&r.Confidence,
		&r.Impact,
		&r.Fallback,
		&r.Warnings,
		&r.Reasoning,
	)
	return r, err
}

// GetSizing returns a single sizing record by ID.
func (j *SQLite) GetSizing(id string) (SizingRecord, error) {
	row := j.db.QueryRow(`SELECT `+sizingColumns+` FROM sizings WHERE id = ?`, id)
	rec, err := scanSizing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SizingRecord{}, fmt.Errorf("sizing %q not found", id)
	}
	return rec, err
}

// ListSizings returns the newest limit records, newest first.
func (j *SQLite) ListSizings(limit int) ([]SizingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.querySizings(`SELECT `+sizingColumns+` FROM sizings ORDER BY time DESC, id DESC LIMIT ?`, limit)
}

// SizingsBetween returns records with time in [start, end), oldest first.
func (j *SQLite) SizingsBetween(start, end time.Time) ([]SizingRecord, error) {
	return j.querySizings(`SELECT `+sizingColumns+` FROM sizings
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) querySizings(q string, args ...any) ([]SizingRecord, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SizingRecord
	for rows.Next() {
		rec, err := scanSizing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FillsBetween returns fills with time in [start, end), oldest first.
func (j *SQLite) FillsBetween(start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, time, lots, risk_fraction, source
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.Time, &f.Lots, &f.RiskFraction, &f.Source); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
