// Package parsers reads the WMS, SAP and PO-detail spreadsheet exports into
// string tables.
//
// Inputs are detected by content rather than extension: OOXML workbooks are
// read with excelize, legacy BIFF .xls files with extrame/xls and anything
// else as delimited text. Each input is then checked against a Schema that
// fixes its header row and expected columns, and loaded into a gota
// DataFrame whose columns are all strings. Numeric coercion happens later,
// in the cleaner and the aggregators, so no value is lost at load time.
package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"wms-sap-sync/pkg/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Format is the physical file format of an input
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = "\ufeff"
)

// DetectFormat sniffs the first bytes of path
func DetectFormat(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", openError(path, err)
	}
	defer file.Close()

	head := make([]byte, len(oleMagic))
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(head, oleMagic):
		return FormatXLS, nil
	default:
		return FormatCSV, nil
	}
}

// ReadRows returns every row of the configured sheet with trailing empty cells removed
func ReadRows(source *SourceConfig) ([][]string, error) {
	format, err := DetectFormat(source.Path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(source)
	case FormatXLS:
		rows, err = readXLS(source)
	default:
		rows, err = readCSV(source)
	}
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		rows[i] = trimRow(row)
	}
	return rows, nil
}

func readXLSX(source *SourceConfig) ([][]string, error) {
	f, err := excelize.OpenFile(source.Path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source.Path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeSheetNotFound, source.Path, source.Sheet, nil)
	}

	sheet := sheets[0]
	if source.Sheet != "" {
		sheet = ""
		for _, name := range sheets {
			if strings.EqualFold(name, source.Sheet) {
				sheet = name
				break
			}
		}
		if sheet == "" {
			return nil, errors.ParseError(errors.CodeSheetNotFound, source.Path, source.Sheet, nil).
				WithContext("sheets", strings.Join(sheets, ", "))
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.ParseError(errors.CodeUnsupportedFormat, source.Path, err.Error(), err)
	}
	return rows, nil
}

// maxXLSColumns is the BIFF8 column limit
const maxXLSColumns = 256

func readXLS(source *SourceConfig) (rows [][]string, err error) {
	file, err := os.Open(source.Path)
	if err != nil {
		return nil, openError(source.Path, err)
	}
	defer file.Close()

	// extrame/xls panics on some malformed workbooks.
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = errors.FileError(errors.CodeFileCorrupted, source.Path, fmt.Errorf("xls reader: %v", r))
		}
	}()

	wb, openErr := xls.OpenReader(file, "utf-8")
	if openErr != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source.Path, openErr)
	}
	if wb == nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source.Path, fmt.Errorf("no Workbook stream"))
	}
	rawNumberFormats(wb)

	var sheet *xls.WorkSheet
	var index int
	var names []string
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		names = append(names, ws.Name)
		if sheet == nil && (source.Sheet == "" || strings.EqualFold(ws.Name, source.Sheet)) {
			sheet, index = ws, i
		}
	}
	if sheet == nil {
		return nil, errors.ParseError(errors.CodeSheetNotFound, source.Path, source.Sheet, nil).
			WithContext("sheets", strings.Join(names, ", "))
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 {
			// rows without a ROW record report no width
			width = maxXLSColumns
		}
		cells := make([]string, width)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}

	formulas, formulaErr := xlsFormulaValues(file, index, wb.Is5ver)
	if formulaErr != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source.Path, formulaErr)
	}
	for cell, value := range formulas {
		for len(rows) <= cell.row {
			rows = append(rows, nil)
		}
		for len(rows[cell.row]) <= cell.col {
			rows[cell.row] = append(rows[cell.row], "")
		}
		rows[cell.row][cell.col] = value
	}
	return rows, nil
}

// rawNumberFormats points every cell style at the General format. extrame/xls
// renders RK cells under user-defined and date formats as timestamps, which
// turns plain quantities and item codes into dates. Resetting the formats
// yields the stored number, as excelize does with RawCellValue.
func rawNumberFormats(wb *xls.WorkBook) {
	for _, xf := range wb.Xfs {
		switch x := xf.(type) {
		case *xls.Xf8:
			x.Format = 0
		case *xls.Xf5:
			x.Format = 0
		}
	}
}

// xlsRow returns nil for rows the sheet does not store. WorkSheet.Row
// dereferences missing rows.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func readCSV(source *SourceConfig) ([][]string, error) {
	file, err := os.Open(source.Path)
	if err != nil {
		return nil, openError(source.Path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.EqualFold(source.Encoding, EncodingWindows1252) {
		reader = charmap.Windows1252.NewDecoder().Reader(file)
	}

	csvReader := csv.NewReader(reader)
	if source.Delimiter != 0 {
		csvReader.Comma = source.Delimiter
	}
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.ParseError(errors.CodeEncodingError, source.Path, err.Error(), err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return rows, nil
}

func openError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return errors.FileError(errors.CodeFilePermission, path, err)
	default:
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
