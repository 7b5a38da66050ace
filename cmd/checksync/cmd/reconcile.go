package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"wms-sap-sync/cmd/checksync/config"
	"wms-sap-sync/internal/parsers"
	"wms-sap-sync/internal/reconciler"
	"wms-sap-sync/internal/reporter"
	"wms-sap-sync/internal/store"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare WMS stock with SAP stock and write the sync workbook",
	Long: `Reconcile reads three exports and writes a workbook with two sheets.

  NO_PO    one row per WMS material row with UU, BLOCK and TOTAL from both
           systems and the WMS - SAP differences
  WITH_PO  blocked quantity per (ITEM, PO) from the WMS PO detail report
           against SAP Block Stock per (Material, PO MPE)

Inputs may be .xlsx, .xls or .csv. Header rows are 0-based.

Examples:
  # Standard files in the working directory
  checksync reconcile

  # Explicit paths and a SAP export without the title rows
  checksync reconcile --wms-file in/WMS.xlsx --sap-file in/SAP.csv --sap-header-row 0

  # JSON output, keep fractional quantities
  checksync reconcile --output-format json --output-file check.json --rounding none

  # Record the run in a history database
  checksync reconcile --history-db runs.db`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	flags := reconcileCmd.Flags()

	// Input flags
	flags.String(config.KeyWMSFile, "WMS.xlsx", "WMS stock export")
	flags.String(config.KeySAPFile, "SAP.xlsx", "SAP stock export")
	flags.String(config.KeyPOFile, "036.xls", "WMS PO detail report")
	flags.String(config.KeyWMSSheet, "", "WMS sheet name (default: first sheet)")
	flags.String(config.KeySAPSheet, "", "SAP sheet name (default: first sheet)")
	flags.String(config.KeyPOSheet, "", "PO detail sheet name (default: first sheet)")
	flags.Int(config.KeyWMSHeaderRow, 0, "0-based header row of the WMS file")
	flags.Int(config.KeySAPHeaderRow, 2, "0-based header row of the SAP file")
	flags.Int(config.KeyPOHeaderRow, 3, "0-based header row of the PO detail file")
	flags.String(config.KeyCSVEncoding, "utf-8", "encoding of CSV inputs: utf-8, windows-1252")
	flags.String(config.KeyCSVDelimiter, ",", "field delimiter of CSV inputs")

	// Processing flags
	flags.String(config.KeyRounding, "truncate", "quantity rounding: truncate, round, none")

	// Output flags
	flags.StringP(config.KeyOutputFile, "o", "Check_Sync_WMS_vs_SAP.xlsx", "output file path")
	flags.StringP(config.KeyOutputFormat, "f", "xlsx", "output format: xlsx, json")
	flags.Bool(config.KeyPresenceColumns, true, "add IN SAP and SOURCE columns")

	for _, key := range []string{
		config.KeyWMSFile, config.KeySAPFile, config.KeyPOFile,
		config.KeyWMSSheet, config.KeySAPSheet, config.KeyPOSheet,
		config.KeyWMSHeaderRow, config.KeySAPHeaderRow, config.KeyPOHeaderRow,
		config.KeyCSVEncoding, config.KeyCSVDelimiter, config.KeyRounding,
		config.KeyOutputFile, config.KeyOutputFormat, config.KeyPresenceColumns,
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	return validateOutputPath(viper.GetString(config.KeyOutputFile))
}

func validateOutputPath(outputFile string) error {
	if outputFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyOutputFile, outputFile, nil)
	}

	dir := filepath.Dir(outputFile)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyOutputFile, outputFile,
			fmt.Errorf("output directory does not exist: %s", dir))
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, dir, err)
	}
	if !info.IsDir() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyOutputFile, outputFile,
			fmt.Errorf("%s is not a directory", dir))
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, generator, err := executeReconcile(ctx, viper.GetViper(), logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	generator.WriteSummary(result, cmd.OutOrStdout())
	return nil
}

// executeReconcile builds every component from v, runs the pipeline and
// writes the report. The run is recorded when a history database is set.
func executeReconcile(ctx context.Context, v *viper.Viper, log logger.Logger) (*reconciler.Result, *reporter.ReportGenerator, error) {
	loaderConfig, err := config.CreateLoaderConfig(v)
	if err != nil {
		return nil, nil, err
	}
	reconcilerConfig, err := config.CreateReconcilerConfig(v)
	if err != nil {
		return nil, nil, err
	}
	reportConfig, err := config.CreateReportConfig(v)
	if err != nil {
		return nil, nil, err
	}
	storeConfig, err := config.CreateStoreConfig(v)
	if err != nil {
		return nil, nil, err
	}

	loader, err := parsers.NewLoader(loaderConfig, log)
	if err != nil {
		return nil, nil, err
	}
	service, err := reconciler.NewService(loader, reconcilerConfig, log)
	if err != nil {
		return nil, nil, err
	}
	generator, err := reporter.NewReportGenerator(reportConfig, log)
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(logger.Fields{
		"wms":    loaderConfig.WMS.Path,
		"sap":    loaderConfig.SAP.Path,
		"po":     loaderConfig.PODetail.Path,
		"output": reportConfig.OutputPath,
	}).Debug("Starting reconciliation")

	history, err := startHistory(ctx, storeConfig, loaderConfig, reportConfig, log)
	if err != nil {
		return nil, nil, err
	}
	if history != nil {
		defer history.close()
	}

	result, err := service.Run(ctx)
	if err == nil {
		err = generator.WriteReport(result)
	}

	if history != nil {
		history.finish(result, err)
	}
	if err != nil {
		return nil, nil, err
	}
	return result, generator, nil
}

// runHistory records one run in the history database
type runHistory struct {
	ctx    context.Context
	store  *store.Store
	run    *store.SyncRun
	logger logger.Logger
}

func startHistory(ctx context.Context, storeConfig *store.Config, loaderConfig *parsers.LoaderConfig, reportConfig *reporter.ReportConfig, log logger.Logger) (*runHistory, error) {
	if !storeConfig.Enabled() {
		return nil, nil
	}

	s, err := store.Open(ctx, storeConfig)
	if err != nil {
		return nil, err
	}

	run := &store.SyncRun{
		WMSFile:    loaderConfig.WMS.Path,
		SAPFile:    loaderConfig.SAP.Path,
		POFile:     loaderConfig.PODetail.Path,
		OutputFile: reportConfig.OutputPath,
	}
	if err := s.StartRun(ctx, run); err != nil {
		s.Close()
		return nil, err
	}

	return &runHistory{
		ctx:    context.WithoutCancel(ctx),
		store:  s,
		run:    run,
		logger: log.WithComponent("history").WithField("run_id", run.ID),
	}, nil
}

// finish stores the outcome. Failures are logged and never fail the run.
func (h *runHistory) finish(result *reconciler.Result, runErr error) {
	if runErr != nil {
		h.run.Status = store.StatusFailed
		h.run.ErrorMessage = runErr.Error()
	} else {
		h.run.Status = store.StatusSuccess
		h.run.NoPORows = result.Summary.NoPORows
		h.run.NoPOMismatches = result.Summary.NoPOMismatches
		h.run.WithPORows = result.Summary.WithPORows
		h.run.WithPOMismatches = result.Summary.WithPOMismatches
	}

	if err := h.store.FinishRun(h.ctx, h.run); err != nil {
		h.logger.WithError(err).Warn("Failed to record run in history")
		return
	}
	h.logger.WithField("status", h.run.Status).Debug("Run recorded")
}

func (h *runHistory) close() {
	if err := h.store.Close(); err != nil {
		h.logger.WithError(err).Warn("Failed to close history database")
	}
}
