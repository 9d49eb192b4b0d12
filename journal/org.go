package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatSizingOrg renders a SizingRecord as an Org-mode block. Structured
// facts go in a PROPERTIES drawer for searching; the review heading is left
// for notes.
func FormatSizingOrg(r SizingRecord) string {
	heading := fmt.Sprintf("** Sizing: %s %s %.2f lots (%s)", r.Symbol, r.EntryStrategy, r.RecommendedLot, shortID(r.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf(":TIME: %s\n", r.Time.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":SESSION: %s\n", r.Session))
	b.WriteString(fmt.Sprintf(":METHOD: %s\n", r.Method))
	b.WriteString(fmt.Sprintf(":LOTS: %.2f\n", r.RecommendedLot))
	b.WriteString(fmt.Sprintf(":RANGE: %.2f-%.2f\n", r.MinLot, r.MaxLot))
	b.WriteString(fmt.Sprintf(":RISK: %.2f\n", r.RiskAmount))
	b.WriteString(fmt.Sprintf(":MARGIN: %.2f\n", r.MarginRequired))
	b.WriteString(fmt.Sprintf(":CONFIDENCE: %.0f\n", r.Confidence))
	b.WriteString(fmt.Sprintf(":IMPACT: %s\n", r.Impact))
	if r.Warnings != "" {
		b.WriteString(fmt.Sprintf(":WARNINGS: %s\n", r.Warnings))
	}
	if r.Fallback {
		b.WriteString(":FALLBACK: t\n")
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("*** Reasoning\n- %s\n\n", r.Reasoning))
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatSizingsOrg renders multiple records separated by blank lines.
func FormatSizingsOrg(recs []SizingRecord) string {
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatSizingOrg(r))
	}
	return b.String()
}

// FormatFillsOrg renders fills as an Org table with a total row.
func FormatFillsOrg(fills []FillRecord) string {
	var b strings.Builder
	b.WriteString("| time | lots | risk % | source |\n")
	b.WriteString("|------+------+--------+--------|\n")
	var lots, risk float64
	for _, f := range fills {
		b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %s |\n",
			f.Time.UTC().Format("15:04:05"), f.Lots, f.RiskFraction*100, f.Source))
		lots += f.Lots
		risk += f.RiskFraction
	}
	b.WriteString("|------+------+--------+--------|\n")
	b.WriteString(fmt.Sprintf("| total | %.2f | %.2f | %d fills |\n", lots, risk*100, len(fills)))
	return b.String()
}

// shortID keeps the random tail of a ULID; the head is the timestamp.
func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
