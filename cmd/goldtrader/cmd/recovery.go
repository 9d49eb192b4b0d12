package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/internal/app"
	"github.com/rustyeddy/goldtrader/risk"
)

var recoveryCmd = &cobra.Command{
	Use:   "recovery-size",
	Short: "Size the next leg of a recovery task",
	Long: `Size the next recovery leg as a mean-reversion entry with one more
recovery position than is open. Martingale legs scale up 1.5x, grid legs
down 0.7x.

Example:
  goldtrader recovery-size --task R-17 --method MARTINGALE_SMART --loss 420`,
	RunE: runRecovery,
}

var (
	recoveryTask   string
	recoveryMethod string
	recoveryLoss   float64
	recoveryJSON   bool
)

func init() {
	rootCmd.AddCommand(recoveryCmd)

	f := recoveryCmd.Flags()
	f.StringVar(&recoveryTask, "task", "", "recovery task id (required)")
	f.StringVar(&recoveryMethod, "method", string(risk.MartingaleSmart), "recovery method")
	f.Float64Var(&recoveryLoss, "loss", 0, "loss the task is recovering")
	f.BoolVar(&recoveryJSON, "json", false, "print the result as JSON")
	recoveryCmd.MarkFlagRequired("task")
}

func runRecovery(cmd *cobra.Command, args []string) error {
	method, err := risk.ParseRecoveryMethod(recoveryMethod)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.StartRecovery(ctx, recoveryTask, method, recoveryLoss); err != nil {
		return err
	}

	res := a.Sizer.CalculateRecoverySize(ctx, recoveryTask, method, recoveryLoss)
	return printResult(cmd.OutOrStdout(), res, recoveryJSON)
}
