package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/journal"
	"github.com/rustyeddy/goldtrader/market"
	"github.com/rustyeddy/goldtrader/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the sizing journal",
	Long: `Query sizing decisions and fills recorded in the SQLite journal.

Subcommands:
  list   - Newest sizing decisions
  show   - One sizing decision by ID
  day    - Sizing decisions of a session day
  fills  - Fills of a session day

Days follow the session timezone. Output is Org-mode.

Examples:
  goldtrader journal list --limit 20
  goldtrader journal day 2026-03-02
  goldtrader journal fills today`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest sizing decisions",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one sizing decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD|today>",
	Short: "List sizing decisions of a session day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalFillsCmd = &cobra.Command{
	Use:   "fills <YYYY-MM-DD|today>",
	Short: "List fills of a session day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalFills,
}

var journalLimit int

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalFillsCmd)

	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "number of records")
}

func openJournal() (*journal.SQLite, error) {
	if cfg.Journal.Type != "sqlite" {
		return nil, fmt.Errorf("journal queries need a sqlite journal, configured %q", cfg.Journal.Type)
	}
	j, err := journal.NewSQLite(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListSizings(journalLimit)
	if err != nil {
		return fmt.Errorf("query sizings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSizingsOrg(recs))
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	if _, err := id.Time(args[0]); err != nil {
		return fmt.Errorf("journal show: bad id %q: %w", args[0], err)
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetSizing(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSizingOrg(rec))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	start, end, err := sessionDay(args[0])
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.SizingsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query sizings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSizingsOrg(recs))
	return nil
}

func runJournalFills(cmd *cobra.Command, args []string) error {
	start, end, err := sessionDay(args[0])
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	fills, err := j.FillsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatFillsOrg(fills))
	return nil
}

// sessionDay bounds day in the session timezone.
func sessionDay(day string) (time.Time, time.Time, error) {
	clock, err := market.NewSessionClock(cfg.Sessions.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc := clock.Location()
	if day == "today" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	return dayBounds(loc, day)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
