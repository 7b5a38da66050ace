package parsers

import (
	"wms-sap-sync/internal/models"
	"wms-sap-sync/pkg/errors"

	"github.com/shopspring/decimal"
)

// Positional names of the WMS stock snapshot columns
const (
	WMSMaterial    = "MATERIAL"
	WMSDescription = "DESCRIPTION"
	WMSTotal       = "TOTAL"
	WMSUU1         = "UU_1"
	WMSUU2         = "UU_2"
	WMSUU3         = "UU_3"
	WMSBlock       = "BLOCK"
)

// WMSSchema returns the positional layout of the WMS snapshot
func WMSSchema(headerRow int) *Schema {
	return &Schema{
		Input:      "WMS stock",
		HeaderRow:  headerRow,
		Columns:    []string{WMSMaterial, WMSDescription, WMSTotal, WMSUU1, WMSUU2, WMSUU3, WMSBlock},
		Positional: true,
	}
}

// WMSSnapshot is the cleaned WMS stock table
type WMSSnapshot struct {
	Table *Table
	// MaterialHeader is the original header text of the material column,
	// reused as the first NO_PO column header
	MaterialHeader string
	Stocks         []*models.WMSStock
	Clean          CleanStats
}

func buildWMSSnapshot(table *Table, cleaner *Cleaner) (*WMSSnapshot, error) {
	snapshot := &WMSSnapshot{
		Table:          table,
		MaterialHeader: table.Header[0],
	}

	stats, err := cleaner.CleanColumns(table, QuantityColumns(table))
	if err != nil {
		return nil, errors.ParseError(errors.CodeUnsupportedFormat, table.Source, "cleaning quantity columns", err)
	}
	snapshot.Clean = stats

	if table.Len() == 0 {
		return snapshot, nil
	}

	materials := table.Column(WMSMaterial)
	totals := table.Column(WMSTotal)
	uu1 := table.Column(WMSUU1)
	uu2 := table.Column(WMSUU2)
	uu3 := table.Column(WMSUU3)
	blocks := table.Column(WMSBlock)
	rows := table.SourceRows()

	snapshot.Stocks = make([]*models.WMSStock, len(materials))
	for i := range materials {
		stock := &models.WMSStock{
			Material:     models.NormalizeKey(materials[i]),
			Total:        cleanedValue(totals[i]),
			Unrestricted: cleanedValue(uu1[i]).Add(cleanedValue(uu2[i])).Add(cleanedValue(uu3[i])),
			Blocked:      cleanedValue(blocks[i]),
		}
		if i < len(rows) {
			stock.SourceRow = rows[i]
		}
		snapshot.Stocks[i] = stock
	}
	return snapshot, nil
}

// cleanedValue reads a cell the cleaner has already rewritten
func cleanedValue(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
