package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wms-sap-sync/cmd/checksync/config"
	"wms-sap-sync/internal/api"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history over HTTP",
	Long: `Serve exposes the run history read-only:

  GET /v1/health
  GET /v1/runs?limit=N
  GET /v1/runs/{id}

Examples:
  checksync serve --history-db runs.db
  checksync serve --history-driver postgres --history-db postgres://user@db/checksync --addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serveHistory(ctx, viper.GetViper(), logger.GetGlobalLogger())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String(config.KeyAddr, ":8080", "listen address")
	viper.BindPFlag(config.KeyAddr, serveCmd.Flags().Lookup(config.KeyAddr))
}

// serveHistory runs the history API until ctx is done
func serveHistory(ctx context.Context, v *viper.Viper, log logger.Logger) error {
	s, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer s.Close()

	server := api.NewServer(api.Config{
		Addr:    v.GetString(config.KeyAddr),
		Version: version,
	}, s, log)
	if err := server.Run(ctx); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "history server stopped")
	}
	return nil
}
