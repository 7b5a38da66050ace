package parsers

// Header texts of the SAP stock export columns used by both reconciliations
const (
	SAPMaterial     = "Material"
	SAPUnrestricted = "Unrestricted Use Qty"
	SAPBlock        = "Block Stock"
	SAPTotal        = "Total(UU+QI+Blocked)"
	SAPPO           = "PO MPE"
)

// SAPSchema returns the named layout of the SAP stock export
func SAPSchema(headerRow int) *Schema {
	return &Schema{
		Input:     "SAP stock",
		HeaderRow: headerRow,
		Columns:   []string{SAPMaterial, SAPUnrestricted, SAPBlock, SAPTotal, SAPPO},
	}
}
