package reporter

import (
	"regexp"
	"strconv"

	"wms-sap-sync/internal/reconciler"

	"github.com/shopspring/decimal"
)

// Sheet names, in workbook order
const (
	SheetNoPO   = "NO_PO"
	SheetWithPO = "WITH_PO"
)

// Output column headers. The NO_PO material column takes its header from the WMS file.
const (
	HeaderUUWMS     = "UU (WMS)"
	HeaderBlockWMS  = "BLOCK (WMS)"
	HeaderUUSAP     = "UU (SAP)"
	HeaderBlockSAP  = "BLOCK (SAP)"
	HeaderTotalWMS  = "TOTAL QTY (WMS)"
	HeaderTotalSAP  = "TOTAL QTY (SAP)"
	HeaderDiffUU    = "LỆCH BTP (WMS - SAP)"
	HeaderDiffBlock = "LỆCH HOLD (WMS - SAP)"
	HeaderDiffTotal = "LỆCH TỔNG TỒN (WMS - SAP)"
	HeaderInSAP     = "IN SAP"
	HeaderItem      = "ITEM"
	HeaderPO        = "PO"
	HeaderQtyWMS    = "QTY BLOCK WMS"
	HeaderQtySAP    = "QTY BLOCK SAP"
	HeaderQtyDiff   = "QTY LECH BLOCK WMS - SAP"
	HeaderSource    = "SOURCE"
	defaultMaterial = "MATERIAL"
	presentInSAP    = "YES"
	notPresentInSAP = "NO"
)

// Sheet is one output table: a header row followed by data rows
type Sheet struct {
	Name    string          `json:"name"`
	Headers []string        `json:"headers"`
	Rows    [][]interface{} `json:"rows"`
}

// BuildSheets lays out both result tables as they appear in the workbook
func BuildSheets(result *reconciler.Result, presenceColumns bool) []*Sheet {
	return []*Sheet{
		noPOSheet(result, presenceColumns),
		withPOSheet(result, presenceColumns),
	}
}

func noPOSheet(result *reconciler.Result, presence bool) *Sheet {
	material := result.MaterialHeader
	if material == "" {
		material = defaultMaterial
	}
	headers := []string{
		material, HeaderUUWMS, HeaderBlockWMS, HeaderUUSAP, HeaderBlockSAP,
		HeaderTotalWMS, HeaderTotalSAP, HeaderDiffUU, HeaderDiffBlock, HeaderDiffTotal,
	}
	if presence {
		headers = append(headers, HeaderInSAP)
	}

	rows := make([][]interface{}, len(result.NoPO))
	for i, r := range result.NoPO {
		row := []interface{}{
			keyCell(r.Material),
			cellValue(r.UUWMS), cellValue(r.BlockWMS),
			cellValue(r.UUSAP), cellValue(r.BlockSAP),
			cellValue(r.TotalWMS), cellValue(r.TotalSAP),
			cellValue(r.DiffUU), cellValue(r.DiffBlock), cellValue(r.DiffTotal),
		}
		if presence {
			if r.InSAP {
				row = append(row, presentInSAP)
			} else {
				row = append(row, notPresentInSAP)
			}
		}
		rows[i] = row
	}
	return &Sheet{Name: SheetNoPO, Headers: headers, Rows: rows}
}

func withPOSheet(result *reconciler.Result, presence bool) *Sheet {
	headers := []string{HeaderItem, HeaderPO, HeaderQtyWMS, HeaderQtySAP, HeaderQtyDiff}
	if presence {
		headers = append(headers, HeaderSource)
	}

	rows := make([][]interface{}, len(result.WithPO))
	for i, r := range result.WithPO {
		row := []interface{}{
			keyCell(r.Item), keyCell(r.PO),
			cellValue(r.BlockWMS), cellValue(r.BlockSAP), cellValue(r.Diff),
		}
		if presence {
			row = append(row, string(r.Presence()))
		}
		rows[i] = row
	}
	return &Sheet{Name: SheetWithPO, Headers: headers, Rows: rows}
}

// cellValue writes whole quantities as integers and anything else as a float
func cellValue(d decimal.Decimal) interface{} {
	if d.IsInteger() {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

// Integers up to Excel's 15 significant digits, without leading zeros
var numericKey = regexp.MustCompile(`^(0|-?[1-9]\d{0,14})$`)

// keyCell writes numeric codes as numbers so the sheet matches the source
// exports. Codes with leading zeros or letters stay text.
func keyCell(key string) interface{} {
	if !numericKey.MatchString(key) {
		return key
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return key
	}
	return n
}
