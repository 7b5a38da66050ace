package errors

import (
	"fmt"
	"path/filepath"
)

// CellContext locates a single cell of an input sheet
type CellContext struct {
	File   string `json:"file"`
	Row    int    `json:"row"` // 1-based, as shown by a spreadsheet application
	Column string `json:"column"`
	Value  string `json:"value"`
}

// CellError describes a cell whose content could not be used as-is. Cell
// errors are recoverable: the value is replaced and the run continues.
type CellError struct {
	*ReconcilerError
	Cell *CellContext `json:"cell"`
}

// Error implements the error interface with the cell location appended
func (e *CellError) Error() string {
	return e.Message + " at " + e.Location()
}

// Location formats the cell position as file:row column 'name'
func (e *CellError) Location() string {
	if e.Cell == nil {
		return "unknown cell"
	}
	location := filepath.Base(e.Cell.File)
	if e.Cell.Row > 0 {
		location += fmt.Sprintf(":%d", e.Cell.Row)
	}
	if e.Cell.Column != "" {
		location += fmt.Sprintf(" column '%s'", e.Cell.Column)
	}
	return location
}

// NewCellError creates a cell error with the location copied into the error context
func NewCellError(code ErrorCode, cell *CellContext, message string) *CellError {
	base := New(CategoryParse, code, message)
	if cell != nil {
		base.WithContext("file", cell.File).
			WithContext("row", cell.Row).
			WithContext("column", cell.Column).
			WithContext("value", cell.Value)
	}
	return &CellError{ReconcilerError: base, Cell: cell}
}

// NonNumericCellError reports a quantity cell that was read as zero
func NonNumericCellError(file string, row int, column, value string) *CellError {
	err := NewCellError(CodeNonNumericCell, &CellContext{
		File:   file,
		Row:    row,
		Column: column,
		Value:  value,
	}, "non-numeric quantity read as 0")
	err.WithSuggestion("fix the cell in the export if the quantity should not be zero")
	return err
}
