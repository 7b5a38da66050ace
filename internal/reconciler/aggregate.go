package reconciler

import (
	"strings"

	"wms-sap-sync/internal/models"
	"wms-sap-sync/internal/parsers"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
)

const positionColumn = "__pos"

// rowGroup is the set of table positions sharing one normalised key tuple
type rowGroup struct {
	key       []string
	positions []int
}

// groupRows groups the rows of table by the normalised values of keys.
// Rows with any blank key are left out and counted in skipped.
func groupRows(table *parsers.Table, keys ...string) (groups []rowGroup, skipped int, err error) {
	if table.Len() == 0 {
		return nil, 0, nil
	}

	normalized := make([][]string, len(keys))
	frame := table.Frame
	for k, name := range keys {
		values := table.Column(name)
		for i, v := range values {
			values[i] = models.NormalizeKey(v)
		}
		normalized[k] = values
		frame = frame.Mutate(series.New(values, series.String, name))
	}

	positions := make([]int, table.Len())
	for i := range positions {
		positions[i] = i
	}
	frame = frame.Mutate(series.New(positions, series.Int, positionColumn))

	for _, name := range keys {
		frame = frame.Filter(dataframe.F{
			Colname:    name,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return !el.IsNA() && strings.TrimSpace(el.String()) != ""
			},
		})
	}
	if frame.Error() != nil {
		return nil, 0, frame.Error()
	}
	skipped = table.Len() - frame.Nrow()
	if frame.Nrow() == 0 {
		return nil, skipped, nil
	}

	grouped := frame.GroupBy(keys...)
	if grouped.Err != nil {
		return nil, skipped, grouped.Err
	}

	// gota joins key parts with "_" and re-detects column types per group,
	// so positions are re-bucketed on the exact key tuple.
	index := make(map[string]int)
	for _, g := range grouped.GetGroups() {
		members, err := g.Col(positionColumn).Int()
		if err != nil {
			return nil, skipped, err
		}
		for _, pos := range members {
			key := make([]string, len(keys))
			for k := range keys {
				key[k] = normalized[k][pos]
			}
			id := strings.Join(key, "\x00")
			n, ok := index[id]
			if !ok {
				n = len(groups)
				index[id] = n
				groups = append(groups, rowGroup{key: key})
			}
			groups[n].positions = append(groups[n].positions, pos)
		}
	}
	return groups, skipped, nil
}

// sumAt adds up the quantities of values at positions, without rounding
func sumAt(values []string, positions []int) decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range positions {
		if d, ok := models.ParseQuantity(values[pos]); ok {
			sum = sum.Add(d)
		}
	}
	return sum
}

// SAPByMaterial sums unrestricted, blocked and total stock per material.
// The rounding policy is applied to each sum.
func SAPByMaterial(table *parsers.Table, rounding models.RoundingPolicy) (map[string]*models.SAPTotals, int, error) {
	groups, skipped, err := groupRows(table, parsers.SAPMaterial)
	if err != nil {
		return nil, skipped, err
	}

	unrestricted := table.Column(parsers.SAPUnrestricted)
	blocked := table.Column(parsers.SAPBlock)
	total := table.Column(parsers.SAPTotal)

	totals := make(map[string]*models.SAPTotals, len(groups))
	for _, g := range groups {
		totals[g.key[0]] = &models.SAPTotals{
			Material:     g.key[0],
			Unrestricted: rounding.Apply(sumAt(unrestricted, g.positions)),
			Blocked:      rounding.Apply(sumAt(blocked, g.positions)),
			Total:        rounding.Apply(sumAt(total, g.positions)),
			Rows:         len(g.positions),
		}
	}
	return totals, skipped, nil
}

// WMSBlockedByPO sums PO-detail quantities per (item, PO)
func WMSBlockedByPO(detail *parsers.PODetail) (map[models.POKey]*models.POQuantity, int, error) {
	return quantityByPO(detail.Table, parsers.POItem, parsers.PONumber, parsers.POQty)
}

// SAPBlockedByPO sums SAP blocked stock per (material, PO MPE)
func SAPBlockedByPO(table *parsers.Table) (map[models.POKey]*models.POQuantity, int, error) {
	return quantityByPO(table, parsers.SAPMaterial, parsers.SAPPO, parsers.SAPBlock)
}

func quantityByPO(table *parsers.Table, itemCol, poCol, qtyCol string) (map[models.POKey]*models.POQuantity, int, error) {
	groups, skipped, err := groupRows(table, itemCol, poCol)
	if err != nil {
		return nil, skipped, err
	}

	quantities := table.Column(qtyCol)
	result := make(map[models.POKey]*models.POQuantity, len(groups))
	for _, g := range groups {
		key := models.POKey{Item: g.key[0], PO: g.key[1]}
		result[key] = &models.POQuantity{
			Key:      key,
			Quantity: sumAt(quantities, g.positions),
			Rows:     len(g.positions),
		}
	}
	return result, skipped, nil
}
