package reconciler

import (
	"sort"

	"wms-sap-sync/internal/models"
)

// JoinNoPO left-joins every WMS row to the SAP totals of its material.
// Output order and length follow stocks; SAP-only materials are not reported.
func JoinNoPO(stocks []*models.WMSStock, sap map[string]*models.SAPTotals) []*models.NoPORow {
	rows := make([]*models.NoPORow, len(stocks))
	for i, stock := range stocks {
		rows[i] = models.NewNoPORow(stock, sap[stock.Material])
	}
	return rows
}

// JoinWithPO outer-joins the WMS and SAP blocked quantities on (item, PO),
// sorted by item then PO.
func JoinWithPO(wms, sap map[models.POKey]*models.POQuantity) []*models.WithPORow {
	keys := make([]models.POKey, 0, len(wms)+len(sap))
	for key := range wms {
		keys = append(keys, key)
	}
	for key := range sap {
		if _, ok := wms[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})

	rows := make([]*models.WithPORow, len(keys))
	for i, key := range keys {
		rows[i] = models.NewWithPORow(key, wms[key], sap[key])
	}
	return rows
}
