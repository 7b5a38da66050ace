package errors

import (
	"testing"
)

func TestNonNumericCellError(t *testing.T) {
	err := NonNumericCellError("/data/in/WMS.xlsx", 7, "UU_1", "n/a")

	if err.Category != CategoryParse || err.Code != CodeNonNumericCell {
		t.Errorf("unexpected category/code: %s/%s", err.Category, err.Code)
	}
	if got, want := err.Location(), "WMS.xlsx:7 column 'UU_1'"; got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}
	if got := err.Error(); got != "non-numeric quantity read as 0 at WMS.xlsx:7 column 'UU_1'" {
		t.Errorf("Error() = %q", got)
	}
	if err.Context["row"] != 7 || err.Context["value"] != "n/a" {
		t.Errorf("context not populated: %v", err.Context)
	}
	if err.Suggestion == "" {
		t.Error("expected a suggestion")
	}
}

func TestCellErrorLocation(t *testing.T) {
	tests := []struct {
		name string
		cell *CellContext
		want string
	}{
		{name: "no cell", cell: nil, want: "unknown cell"},
		{name: "file only", cell: &CellContext{File: "SAP.csv"}, want: "SAP.csv"},
		{name: "row without column", cell: &CellContext{File: "SAP.csv", Row: 4}, want: "SAP.csv:4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCellError(CodeNonNumericCell, tt.cell, "bad cell")
			if got := err.Location(); got != tt.want {
				t.Errorf("Location() = %q, want %q", got, tt.want)
			}
		})
	}
}
