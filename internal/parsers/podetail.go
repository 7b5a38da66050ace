package parsers

import (
	"strings"

	"wms-sap-sync/pkg/errors"
)

// Positional names of the WMS PO-detail report columns
const (
	POLineNo      = "NO"
	POLocation    = "LOC"
	POItem        = "ITEM"
	POItemName    = "NAMEITEM"
	POQty         = "QTY"
	POQtyS        = "QTYS"
	POLPN         = "LPN"
	PONumber      = "PO"
	POSupplier    = "NCC"
	POReceiptDate = "ReceiptDate"
	POOrderDate   = "OrderDate"
)

// PODetailSchema returns the fixed eleven-column layout of the PO-detail report
func PODetailSchema(headerRow int) *Schema {
	return &Schema{
		Input:     "WMS PO detail",
		HeaderRow: headerRow,
		Columns: []string{
			POLineNo, POLocation, POItem, POItemName, POQty, POQtyS,
			POLPN, PONumber, POSupplier, POReceiptDate, POOrderDate,
		},
		Positional:   true,
		ExactColumns: true,
	}
}

// PODetail is the PO-detail table with blank-item rows removed
type PODetail struct {
	Table      *Table
	BlankItems int
}

func buildPODetail(table *Table) (*PODetail, error) {
	before := table.Len()
	err := table.Filter(POItem, func(item string) bool {
		return strings.TrimSpace(item) != ""
	})
	if err != nil {
		return nil, errors.ParseError(errors.CodeUnsupportedFormat, table.Source, "filtering blank items", err)
	}
	return &PODetail{
		Table:      table,
		BlankItems: before - table.Len(),
	}, nil
}
