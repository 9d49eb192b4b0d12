package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  goldtrader config init -o goldtrader.yaml
  goldtrader config validate -f goldtrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file and report every problem found.

Example:
  goldtrader config validate -f goldtrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "goldtrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  goldtrader serve --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		for _, e := range config.Errors(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
		}
		return fmt.Errorf("validation failed: %s", configValidatePath)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: %s (%.2f %s)\n", c.Account.ID, c.Account.Balance, c.Account.Currency)
	fmt.Fprintf(out, "  Sizing: %s (risk/trade %.1f%%, daily %.1f%%)\n",
		c.Sizing.DefaultStrategy, c.Sizing.MaxRiskPerTrade*100, c.Sizing.MaxDailyRisk*100)
	fmt.Fprintf(out, "  Daily volume: %.0f-%.0f lots\n", c.Sizing.DailyVolumeMin, c.Sizing.DailyVolumeMax)
	fmt.Fprintf(out, "  Journal: %s\n", c.Journal.Type)
	return nil
}
