package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/config"
	"github.com/rustyeddy/goldtrader/internal/logging"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	logFile  string
	dbPath   string

	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "goldtrader",
	Short: "Position sizing for XAUUSD",
	Long: `Goldtrader recommends lot sizes for XAUUSD entries.

It combines account state, the trading session, volatility and the daily
volume target into one recommendation and enforces margin, daily risk and
lot limits on the result.

  - size          size one entry from the command line
  - recovery-size size the next leg of a recovery task
  - serve         run the HTTP API with background parameter refresh
  - journal       query recorded sizing decisions`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with GOLDTRADER_* overrides")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "also write JSON logs to this rotating file")
	pf.StringVar(&dbPath, "db", "", "SQLite journal path (sets journal.type=sqlite)")
}

// setup loads config (file, then env, then flags) and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c = loaded
	}
	if err := c.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		c.Log.File = logFile
	}
	if flags.Changed("db") {
		c.Journal.Type = "sqlite"
		c.Journal.Path = dbPath
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, closer, err := logging.New(c.Log)
	if err != nil {
		return err
	}
	cfg, logger, logCloser = c, log, closer
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
