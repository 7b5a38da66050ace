// Package reporter writes reconciliation results for human review.
//
// The primary output is a workbook with the sheets NO_PO and WITH_PO, each a
// single header row followed by one row per result. The same two tables can
// be written as JSON instead. A short plain-text summary of row and mismatch
// counts is printed to the console after every run.
//
// Output files are written to a temporary sibling first and renamed over the
// target, so an existing report is only ever replaced by a complete one.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"wms-sap-sync/internal/reconciler"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatXLSX OutputFormat = "xlsx"
	FormatJSON OutputFormat = "json"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatXLSX, FormatJSON:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format     OutputFormat `json:"format" mapstructure:"output-format"`
	OutputPath string       `json:"output_path" mapstructure:"output-file"`

	// PresenceColumns appends IN SAP to NO_PO and SOURCE to WITH_PO
	PresenceColumns bool `json:"presence_columns" mapstructure:"presence-columns"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:          FormatXLSX,
		OutputPath:      "Check_Sync_WMS_vs_SAP.xlsx",
		PresenceColumns: true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}

// ReportGenerator writes reconciliation results in the configured format
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig, log logger.Logger) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", config.Format, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &ReportGenerator{
		config: config,
		logger: log.WithComponent("reporter"),
	}, nil
}


// WriteReport writes result to the configured output path
func (rg *ReportGenerator) WriteReport(result *reconciler.Result) error {
	if result == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "report generation", fmt.Errorf("result cannot be nil"))
	}

	sheets := BuildSheets(result, rg.config.PresenceColumns)
	path := rg.config.OutputPath

	var err error
	switch rg.config.Format {
	case FormatJSON:
		err = writeAtomically(path, func(w io.Writer) error {
			return writeJSON(w, result, sheets)
		})
	default:
		err = writeAtomically(path, func(w io.Writer) error {
			return writeWorkbook(w, sheets)
		})
	}
	if err != nil {
		rg.logger.WithError(err).WithField("output", path).Error("Report generation failed")
		return err
	}

	rg.logger.WithFields(logger.Fields{
		"output":       path,
		"format":       rg.config.Format,
		"no_po_rows":   len(result.NoPO),
		"with_po_rows": len(result.WithPO),
	}).Info("Report written")
	return nil
}

func writeWorkbook(w io.Writer, sheets []*Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}

		if err := writeSheet(f, sheet); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet *Sheet) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// jsonReport is the JSON rendering of a run
type jsonReport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     *reconciler.Summary `json:"summary"`
	Sheets      []*Sheet            `json:"sheets"`
}

func writeJSON(w io.Writer, result *reconciler.Result, sheets []*Sheet) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&jsonReport{
		GeneratedAt: result.ProcessedAt,
		Summary:     result.Summary,
		Sheets:      sheets,
	})
}

// WriteSummary prints row and mismatch counts for a finished run
func (rg *ReportGenerator) WriteSummary(result *reconciler.Result, writer io.Writer) {
	s := result.Summary

	fmt.Fprintf(writer, "WMS vs SAP SYNC CHECK\n")
	fmt.Fprintf(writer, "Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Output:    %s\n\n", filepath.Clean(rg.config.OutputPath))

	fmt.Fprintf(writer, "=== INPUTS ===\n")
	fmt.Fprintf(writer, "  WMS rows:        %d\n", s.WMSRows)
	fmt.Fprintf(writer, "  SAP rows:        %d\n", s.SAPRows)
	fmt.Fprintf(writer, "  PO detail rows:  %d (%d blank items dropped)\n", s.PODetailRows, s.BlankItemRows)
	if s.CoercedCells > 0 {
		fmt.Fprintf(writer, "  Non-numeric WMS quantity cells read as 0: %d\n", s.CoercedCells)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== %s ===\n", SheetNoPO)
	fmt.Fprintf(writer, "  Rows:            %d\n", s.NoPORows)
	fmt.Fprintf(writer, "  With difference: %d (%.1f%%)\n", s.NoPOMismatches, calculatePercentage(s.NoPOMismatches, s.NoPORows))
	fmt.Fprintf(writer, "  Missing in SAP:  %d\n\n", s.NoPOMissingInSAP)

	fmt.Fprintf(writer, "=== %s ===\n", SheetWithPO)
	fmt.Fprintf(writer, "  Rows:            %d\n", s.WithPORows)
	fmt.Fprintf(writer, "  With difference: %d (%.1f%%)\n", s.WithPOMismatches, calculatePercentage(s.WithPOMismatches, s.WithPORows))
	fmt.Fprintf(writer, "  WMS only:        %d\n", s.WithPOWMSOnly)
	fmt.Fprintf(writer, "  SAP only:        %d\n", s.WithPOSAPOnly)
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
