package cmd

import (
	"context"
	"fmt"
	"io"

	"wms-sap-sync/cmd/checksync/config"
	"wms-sap-sync/internal/store"
	"wms-sap-sync/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent reconciliation runs",
	Long: `Runs prints the most recent runs recorded with --history-db, newest first.

Examples:
  checksync runs --history-db runs.db
  checksync runs --history-db runs.db --limit 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context(), viper.GetViper())
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")
}

// openStore opens the configured history database; it is required here
func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	storeConfig, err := config.CreateStoreConfig(v)
	if err != nil {
		return nil, err
	}
	if !storeConfig.Enabled() {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, config.KeyHistoryDB, "", nil)
	}
	return store.Open(ctx, storeConfig)
}

// printRuns writes runs as a fixed-width table
func printRuns(w io.Writer, runs []store.SyncRun) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded.\n")
		return
	}

	fmt.Fprintf(w, "%-6s %-20s %-8s %8s %8s %8s %8s  %s\n",
		"ID", "STARTED", "STATUS", "NO_PO", "DIFF", "WITH_PO", "DIFF", "OUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-8s %8d %8d %8d %8d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status,
			r.NoPORows, r.NoPOMismatches, r.WithPORows, r.WithPOMismatches, r.OutputFile)
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "       error: %s\n", r.ErrorMessage)
		}
	}
}
