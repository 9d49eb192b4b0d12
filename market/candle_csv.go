package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// candleHeader is the column layout written by most MT5 exports once
// renamed: time,open,high,low,close,volume
var candleHeader = []string{"time", "open", "high", "low", "close", "volume"}

// LoadCandlesCSV reads candles from a CSV file. The header row is optional.
// Times may be RFC3339 or "2006-01-02 15:04" (UTC).
func LoadCandlesCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	return ReadCandles(f)
}

func ReadCandles(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Candle
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candles: %w", err)
		}
		line++

		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), candleHeader[0]) {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 fields, got %d", line, len(rec))
		}

		c, err := parseCandle(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandle(rec []string) (Candle, error) {
	var c Candle

	ts, err := parseCandleTime(strings.TrimSpace(rec[0]))
	if err != nil {
		return c, err
	}
	c.Time = ts

	vals := make([]float64, 5)
	for i := 1; i < len(rec) && i <= 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return c, fmt.Errorf("field %s: %w", candleHeader[i], err)
		}
		vals[i-1] = v
	}
	c.Open, c.High, c.Low, c.Close, c.Volume = vals[0], vals[1], vals[2], vals[3], vals[4]

	if c.High < c.Low {
		return c, fmt.Errorf("high %.2f below low %.2f", c.High, c.Low)
	}
	return c, nil
}

func parseCandleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
