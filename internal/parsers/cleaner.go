package parsers

import (
	"strings"

	"wms-sap-sync/internal/models"
	"wms-sap-sync/pkg/errors"
)

// Quantity columns of the WMS snapshot are cleaned over this half-open range
const (
	cleanFrom = 2
	cleanTo   = 8
)

// maxCellSamples bounds how many coerced cells are kept for logging
const maxCellSamples = 5

// CleanStats counts what the cleaner had to coerce
type CleanStats struct {
	Cells   int                 `json:"cells"`
	Coerced int                 `json:"coerced"`
	Samples []*errors.CellError `json:"samples,omitempty"`
}

// Cleaner turns mixed text/number cells into whole quantities
type Cleaner struct {
	rounding models.RoundingPolicy
}

// NewCleaner creates a cleaner applying the given rounding policy
func NewCleaner(rounding models.RoundingPolicy) *Cleaner {
	if !rounding.IsValid() {
		rounding = models.RoundingTruncate
	}
	return &Cleaner{rounding: rounding}
}

// Value cleans a single cell. The second result is false when the cell was
// not empty but nothing numeric could be read from it.
func (c *Cleaner) Value(raw string) (string, bool) {
	d, ok := models.ParseQuantity(raw)
	if !ok {
		return "0", strings.TrimSpace(raw) == ""
	}
	return c.rounding.Apply(d).String(), true
}

// CleanColumns replaces every cell of the named columns with its cleaned value
func (c *Cleaner) CleanColumns(table *Table, names []string) (CleanStats, error) {
	var stats CleanStats
	rows := table.SourceRows()
	for _, name := range names {
		values := table.Column(name)
		for i, raw := range values {
			cleaned, ok := c.Value(raw)
			if !ok {
				stats.Coerced++
				if len(stats.Samples) < maxCellSamples && i < len(rows) {
					stats.Samples = append(stats.Samples,
						errors.NonNumericCellError(table.Source, rows[i], name, raw))
				}
			}
			values[i] = cleaned
		}
		stats.Cells += len(values)
		if err := table.Replace(name, values); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// QuantityColumns returns the column names the WMS cleaner covers, bounded by
// the table's actual width
func QuantityColumns(table *Table) []string {
	to := cleanTo
	if len(table.Names) < to {
		to = len(table.Names)
	}
	if to <= cleanFrom {
		return nil
	}
	return table.Names[cleanFrom:to]
}
