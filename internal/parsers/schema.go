package parsers

import (
	"fmt"
	"strings"

	"wms-sap-sync/pkg/errors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// RowColumn is the hidden column carrying each row's 1-based spreadsheet row number
const RowColumn = "__row"

// Schema fixes the header row and expected columns of one input
type Schema struct {
	// Input is the human-readable name used in errors
	Input string
	// HeaderRow is the 0-based index of the header row; rows above it are skipped
	HeaderRow int
	// Columns are positional names when Positional is set, otherwise the
	// header texts that must be present (matched trimmed, case-insensitive)
	Columns []string
	// Positional renames the first len(Columns) columns, discarding their header text
	Positional bool
	// ExactColumns requires a positional input to have exactly len(Columns) columns
	ExactColumns bool
}

// Table is a loaded input: a string-typed DataFrame plus its original header
type Table struct {
	Source string
	Header []string
	Names  []string
	Frame  dataframe.DataFrame
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil || len(t.Frame.Names()) == 0 {
		return 0
	}
	return t.Frame.Nrow()
}

// Column returns the values of column name, with missing cells as ""
func (t *Table) Column(name string) []string {
	if t.Len() == 0 {
		return nil
	}
	s := t.Frame.Col(name)
	values := make([]string, s.Len())
	for i := range values {
		elem := s.Elem(i)
		if elem.IsNA() {
			continue
		}
		values[i] = elem.String()
	}
	return values
}

// SourceRows returns the spreadsheet row number of every data row
func (t *Table) SourceRows() []int {
	if t.Len() == 0 {
		return nil
	}
	rows, err := t.Frame.Col(RowColumn).Int()
	if err != nil {
		return nil
	}
	return rows
}

// Replace swaps column name for values, keeping row order
func (t *Table) Replace(name string, values []string) error {
	if t.Len() == 0 {
		return nil
	}
	frame := t.Frame.Mutate(series.New(values, series.String, name))
	if frame.Error() != nil {
		return frame.Error()
	}
	t.Frame = frame
	return nil
}

// Filter keeps only rows whose column value satisfies keep
func (t *Table) Filter(name string, keep func(value string) bool) error {
	if t.Len() == 0 {
		return nil
	}
	frame := t.Frame.Filter(dataframe.F{
		Colname:    name,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			if el.IsNA() {
				return keep("")
			}
			return keep(el.String())
		},
	})
	if frame.Error() != nil {
		return frame.Error()
	}
	t.Frame = frame
	return nil
}

// Apply checks rows against the schema and loads the data rows into a Table
func (s *Schema) Apply(source string, rows [][]string) (*Table, error) {
	if len(rows) <= s.HeaderRow {
		return nil, errors.ParseError(errors.CodeHeaderNotFound, source,
			fmt.Sprintf("file has %d rows, header expected on row %d", len(rows), s.HeaderRow+1), nil)
	}

	header := make([]string, len(rows[s.HeaderRow]))
	for i, h := range rows[s.HeaderRow] {
		header[i] = strings.TrimSpace(h)
	}
	data := rows[s.HeaderRow+1:]

	width := len(header)
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}

	var names []string
	var err error
	if s.Positional {
		names, err = s.positionalNames(header)
	} else {
		names, err = s.namedColumns(header)
	}
	if err != nil {
		return nil, err
	}

	table := &Table{
		Source: source,
		Header: header,
		Names:  names,
	}

	records := [][]string{append(append([]string{}, names...), RowColumn)}
	for i, row := range data {
		if isBlankRow(row) {
			continue
		}
		record := make([]string, width+1)
		copy(record, row)
		record[width] = fmt.Sprint(s.HeaderRow + i + 2)
		records = append(records, record)
	}
	if len(records) == 1 {
		return table, nil
	}

	types := map[string]series.Type{RowColumn: series.Int}
	frame := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
	if frame.Error() != nil {
		return nil, errors.ParseError(errors.CodeUnsupportedFormat, source, frame.Error().Error(), frame.Error())
	}
	table.Frame = frame
	return table, nil
}

func (s *Schema) positionalNames(header []string) ([]string, error) {
	width := len(header)
	if (s.ExactColumns && width != len(s.Columns)) || width < len(s.Columns) {
		return nil, errors.SchemaError(errors.CodeColumnCount, s.Input, s.Columns, header)
	}

	names := make([]string, width)
	taken := make(map[string]bool, width)
	for i, name := range s.Columns {
		names[i] = name
		taken[name] = true
	}
	for i := len(s.Columns); i < width; i++ {
		names[i] = uniqueName(header[i], i, taken)
	}
	return names, nil
}

func (s *Schema) namedColumns(header []string) ([]string, error) {
	index := make(map[string]int, len(s.Columns))
	for _, want := range s.Columns {
		found := -1
		for i, h := range header {
			if !strings.EqualFold(h, strings.TrimSpace(want)) {
				continue
			}
			if found >= 0 {
				return nil, errors.SchemaError(errors.CodeDuplicateMatch, s.Input, []string{want}, header)
			}
			found = i
		}
		if found < 0 {
			return nil, errors.SchemaError(errors.CodeMissingColumn, s.Input, s.Columns, header)
		}
		index[want] = found
	}

	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for want, i := range index {
		names[i] = want
		taken[want] = true
	}
	for i := range names {
		if names[i] == "" {
			names[i] = uniqueName(header[i], i, taken)
		}
	}
	return names, nil
}

// uniqueName keeps a non-required column's header text unless it is empty or
// already used, in which case it falls back to a positional name.
func uniqueName(header string, i int, taken map[string]bool) string {
	name := header
	if name == "" || taken[name] || name == RowColumn {
		name = fmt.Sprintf("COL%d", i+1)
	}
	for taken[name] {
		name += "_"
	}
	taken[name] = true
	return name
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
