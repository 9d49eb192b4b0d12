package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/goldtrader/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background parameter refresh",
	Long: `Serve the sizing API and refresh parameters every refresh.interval
until interrupted.

Endpoints:
  POST /v1/size            size an entry
  POST /v1/size/recovery   size a recovery leg
  GET  /v1/stats           today's sizing statistics
  GET  /v1/parameters      current parameter snapshot
  PUT  /v1/parameters      replace the snapshot
  POST /v1/fills           book executed volume
  GET  /metrics            Prometheus metrics
  GET  /healthz            liveness`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("journal", cfg.Journal.Type).
		Str("timezone", cfg.Sessions.Timezone).
		Msg("goldtrader starting")
	return a.Serve(ctx)
}
