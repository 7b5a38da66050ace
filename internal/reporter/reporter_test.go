package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"wms-sap-sync/internal/models"
	"wms-sap-sync/internal/reconciler"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewWithWriter(io.Discard, logger.DebugLevel, logger.TextFormat)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func createSampleResult() *reconciler.Result {
	wms := &models.WMSStock{Material: "1001", Total: dec("100"), Unrestricted: dec("60"), Blocked: dec("5")}
	matched := &models.WMSStock{Material: "1002", Total: dec("10"), Unrestricted: dec("8"), Blocked: dec("2")}
	sap := &models.SAPTotals{Material: "1002", Unrestricted: dec("8"), Blocked: dec("3"), Total: dec("11")}

	key := models.POKey{Item: "A1", PO: "P1"}
	other := models.POKey{Item: "B1", PO: "P2"}

	return &reconciler.Result{
		MaterialHeader: "Mã hàng",
		NoPO: []*models.NoPORow{
			models.NewNoPORow(wms, nil),
			models.NewNoPORow(matched, sap),
		},
		WithPO: []*models.WithPORow{
			models.NewWithPORow(key, &models.POQuantity{Key: key, Quantity: dec("15")}, nil),
			models.NewWithPORow(other, &models.POQuantity{Key: other, Quantity: dec("2.5")}, &models.POQuantity{Key: other, Quantity: dec("1")}),
		},
		Summary: &reconciler.Summary{
			WMSRows:          2,
			SAPRows:          1,
			NoPORows:         2,
			NoPOMismatches:   2,
			NoPOMissingInSAP: 1,
			WithPORows:       2,
			WithPOMismatches: 2,
			WithPOWMSOnly:    1,
		},
		ProcessedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestReportConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      *ReportConfig
		expectError bool
	}{
		{"default config", DefaultReportConfig(), false},
		{"json", &ReportConfig{Format: FormatJSON, OutputPath: "out.json"}, false},
		{"invalid format", &ReportConfig{Format: "csv", OutputPath: "out.csv"}, true},
		{"empty path", &ReportConfig{Format: FormatXLSX, OutputPath: " "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReportGenerator(tt.config, testLogger(t))
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildSheets(t *testing.T) {
	result := createSampleResult()

	t.Run("without presence columns", func(t *testing.T) {
		sheets := BuildSheets(result, false)
		if len(sheets) != 2 || sheets[0].Name != SheetNoPO || sheets[1].Name != SheetWithPO {
			t.Fatalf("Unexpected sheets: %v", sheets)
		}

		wantNoPO := []string{
			"Mã hàng", "UU (WMS)", "BLOCK (WMS)", "UU (SAP)", "BLOCK (SAP)",
			"TOTAL QTY (WMS)", "TOTAL QTY (SAP)",
			"LỆCH BTP (WMS - SAP)", "LỆCH HOLD (WMS - SAP)", "LỆCH TỔNG TỒN (WMS - SAP)",
		}
		if !reflect.DeepEqual(sheets[0].Headers, wantNoPO) {
			t.Errorf("Unexpected NO_PO headers: %v", sheets[0].Headers)
		}
		wantWithPO := []string{"ITEM", "PO", "QTY BLOCK WMS", "QTY BLOCK SAP", "QTY LECH BLOCK WMS - SAP"}
		if !reflect.DeepEqual(sheets[1].Headers, wantWithPO) {
			t.Errorf("Unexpected WITH_PO headers: %v", sheets[1].Headers)
		}

		first := sheets[0].Rows[0]
		want := []interface{}{int64(1001), int64(60), int64(5), int64(0), int64(0), int64(100), int64(0), int64(60), int64(5), int64(100)}
		if !reflect.DeepEqual(first, want) {
			t.Errorf("Unexpected first NO_PO row: %v", first)
		}
		if got := sheets[1].Rows[1][2]; got != 2.5 {
			t.Errorf("Expected fractional quantity as float, got %v", got)
		}
	})

	t.Run("with presence columns", func(t *testing.T) {
		sheets := BuildSheets(result, true)
		if h := sheets[0].Headers; h[len(h)-1] != HeaderInSAP {
			t.Errorf("Expected trailing %s column, got %v", HeaderInSAP, h)
		}
		if h := sheets[1].Headers; h[len(h)-1] != HeaderSource {
			t.Errorf("Expected trailing %s column, got %v", HeaderSource, h)
		}
		if got := sheets[0].Rows[0][10]; got != "NO" {
			t.Errorf("Expected NO for unmatched material, got %v", got)
		}
		if got := sheets[0].Rows[1][10]; got != "YES" {
			t.Errorf("Expected YES for matched material, got %v", got)
		}
		if got := sheets[1].Rows[0][5]; got != "WMS_ONLY" {
			t.Errorf("Expected WMS_ONLY, got %v", got)
		}
	})

	t.Run("default material header", func(t *testing.T) {
		empty := &reconciler.Result{Summary: &reconciler.Summary{}}
		sheets := BuildSheets(empty, false)
		if sheets[0].Headers[0] != "MATERIAL" {
			t.Errorf("Expected fallback header, got %q", sheets[0].Headers[0])
		}
		if len(sheets[0].Rows) != 0 || len(sheets[1].Rows) != 0 {
			t.Error("Expected no data rows")
		}
	})
}

func TestWriteReportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Check_Sync_WMS_vs_SAP.xlsx")
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatXLSX, OutputPath: path}, testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	if err := generator.WriteReport(createSampleResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetNoPO, SheetWithPO}) {
		t.Fatalf("Unexpected sheet order: %v", got)
	}

	noPO, err := f.GetRows(SheetNoPO)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", SheetNoPO, err)
	}
	if len(noPO) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(noPO))
	}
	if noPO[0][0] != "Mã hàng" || noPO[0][9] != HeaderDiffTotal {
		t.Errorf("Unexpected header row: %v", noPO[0])
	}
	if noPO[2][8] != "-1" {
		t.Errorf("Expected block difference -1, got %q", noPO[2][8])
	}

	// Numeric material codes are number cells, unlike the text header above them.
	headerType, err := f.GetCellType(SheetNoPO, "A1")
	if err != nil {
		t.Fatalf("Failed to read cell type: %v", err)
	}
	materialType, err := f.GetCellType(SheetNoPO, "A2")
	if err != nil {
		t.Fatalf("Failed to read cell type: %v", err)
	}
	if materialType == headerType {
		t.Errorf("Expected material A2 to be stored as a number, got cell type %v", materialType)
	}

	withPO, err := f.GetRows(SheetWithPO)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", SheetWithPO, err)
	}
	if len(withPO) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(withPO))
	}
	want := []string{"B1", "P2", "2.5", "1", "1.5"}
	if !reflect.DeepEqual(withPO[2], want) {
		t.Errorf("Expected %v, got %v", want, withPO[2])
	}

	// No temp files are left next to the output.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the report in the output dir, found %d entries", len(entries))
	}
}

func TestKeyCell(t *testing.T) {
	tests := []struct {
		key  string
		want interface{}
	}{
		{"1001", int64(1001)},
		{"4500001234", int64(4500001234)},
		{"0", int64(0)},
		{"0010", "0010"},
		{"A1", "A1"},
		{"1001.5", "1001.5"},
		{"", ""},
		{"1234567890123456", "1234567890123456"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := keyCell(tt.key); got != tt.want {
				t.Errorf("keyCell(%q) = %#v, want %#v", tt.key, got, tt.want)
			}
		})
	}
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON, OutputPath: path, PresenceColumns: true}, testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	if err := generator.WriteReport(createSampleResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	var report struct {
		Summary map[string]interface{} `json:"summary"`
		Sheets  []struct {
			Name    string          `json:"name"`
			Headers []string        `json:"headers"`
			Rows    [][]interface{} `json:"rows"`
		} `json:"sheets"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if len(report.Sheets) != 2 || report.Sheets[0].Name != SheetNoPO {
		t.Fatalf("Unexpected sheets: %+v", report.Sheets)
	}
	if report.Summary["no_po_mismatches"] != float64(2) {
		t.Errorf("Expected no_po_mismatches 2, got %v", report.Summary["no_po_mismatches"])
	}
	if got := report.Sheets[1].Rows[0][5]; got != "WMS_ONLY" {
		t.Errorf("Expected WMS_ONLY source, got %v", got)
	}
}

func TestWriteReportNilResult(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatXLSX, OutputPath: filepath.Join(t.TempDir(), "x.xlsx")}, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := generator.WriteReport(nil); err == nil {
		t.Error("Expected an error for a nil result")
	}
}

func TestWriteAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("failed write keeps previous output", func(t *testing.T) {
		err := writeAtomically(path, func(w io.Writer) error {
			fmt.Fprint(w, "partial")
			return fmt.Errorf("boom")
		})
		re, ok := errors.AsReconcilerError(err)
		if !ok || re.Code != errors.CodeWriteFailed {
			t.Fatalf("Expected write failed error, got %v", err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != "previous" {
			t.Errorf("Expected previous content, got %q", data)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("Expected temp file to be removed, found %d entries", len(entries))
		}
	})

	t.Run("successful write replaces output", func(t *testing.T) {
		err := writeAtomically(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "complete")
			return err
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "complete" {
			t.Errorf("Expected new content, got %q", data)
		}
	})

	t.Run("new output is readable by others", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("unix permissions")
		}
		fresh := filepath.Join(dir, "fresh.xlsx")
		if err := writeAtomically(fresh, func(w io.Writer) error {
			_, err := io.WriteString(w, "report")
			return err
		}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		info, err := os.Stat(fresh)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.Mode().Perm(); got != 0o644 {
			t.Errorf("Expected mode 0644, got %o", got)
		}
	})

	t.Run("replaced output keeps its mode", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("unix permissions")
		}
		if err := os.Chmod(path, 0o640); err != nil {
			t.Fatal(err)
		}
		if err := writeAtomically(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "again")
			return err
		}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := info.Mode().Perm(); got != 0o640 {
			t.Errorf("Expected mode 0640, got %o", got)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		err := writeAtomically(filepath.Join(dir, "missing", "out.xlsx"), func(io.Writer) error { return nil })
		if !errors.IsCategory(err, errors.CategoryFile) {
			t.Errorf("Expected file error, got %v", err)
		}
	})
}

func TestWriteSummary(t *testing.T) {
	generator, err := NewReportGenerator(nil, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	generator.WriteSummary(createSampleResult(), &buf)
	output := buf.String()

	for _, want := range []string{
		"WMS vs SAP SYNC CHECK",
		"=== NO_PO ===",
		"=== WITH_PO ===",
		"With difference: 2 (100.0%)",
		"Missing in SAP:  1",
		"WMS only:        1",
		"Generated: 2024-01-15T10:30:00Z",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected summary to contain %q\n%s", want, output)
		}
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{1, 4, 25},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := calculatePercentage(tt.part, tt.total); got != tt.want {
			t.Errorf("calculatePercentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}
