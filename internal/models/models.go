// Package models defines the stock records read from WMS and SAP and the
// result rows of both reconciliations.
package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingPolicy controls how cleaned quantities are reduced to whole units
type RoundingPolicy string

const (
	// RoundingTruncate drops the fractional part toward zero
	RoundingTruncate RoundingPolicy = "truncate"
	// RoundingHalfUp rounds half away from zero
	RoundingHalfUp RoundingPolicy = "round"
	// RoundingNone keeps the decimal value as parsed
	RoundingNone RoundingPolicy = "none"
)

// IsValid checks if the rounding policy is supported
func (p RoundingPolicy) IsValid() bool {
	switch p {
	case RoundingTruncate, RoundingHalfUp, RoundingNone:
		return true
	default:
		return false
	}
}

// Apply reduces d according to the policy
func (p RoundingPolicy) Apply(d decimal.Decimal) decimal.Decimal {
	switch p {
	case RoundingHalfUp:
		return d.Round(0)
	case RoundingNone:
		return d
	default:
		return d.Truncate(0)
	}
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// ParseQuantity strips every character that is not a digit, dot or minus sign
// and parses the rest. The second result is false when nothing parseable was
// left, in which case the quantity is zero.
func ParseQuantity(raw string) (decimal.Decimal, bool) {
	cleaned := nonNumeric.ReplaceAllString(raw, "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var integralFloat = regexp.MustCompile(`^(-?\d+)\.0+$`)

// NormalizeKey trims a material, item or PO identifier and collapses numeric
// spellings such as "1001.0" to "1001" so spreadsheet number cells and text
// cells compare equal.
func NormalizeKey(raw string) string {
	key := strings.TrimSpace(raw)
	if m := integralFloat.FindStringSubmatch(key); m != nil {
		return m[1]
	}
	return key
}

// WMSStock is one cleaned row of the WMS stock snapshot
type WMSStock struct {
	Material     string          `json:"material"`
	Total        decimal.Decimal `json:"total"`
	Unrestricted decimal.Decimal `json:"unrestricted"`
	Blocked      decimal.Decimal `json:"blocked"`
	SourceRow    int             `json:"source_row"`
}

// String returns a string representation of the WMSStock
func (s *WMSStock) String() string {
	return fmt.Sprintf("WMSStock{Material: %s, UU: %s, Block: %s, Total: %s, Row: %d}",
		s.Material, s.Unrestricted, s.Blocked, s.Total, s.SourceRow)
}

// SAPTotals is the per-material sum of SAP stock rows
type SAPTotals struct {
	Material     string          `json:"material"`
	Unrestricted decimal.Decimal `json:"unrestricted"`
	Blocked      decimal.Decimal `json:"blocked"`
	Total        decimal.Decimal `json:"total"`
	Rows         int             `json:"rows"`
}

// POKey identifies a (item, purchase order) pair
type POKey struct {
	Item string `json:"item"`
	PO   string `json:"po"`
}

// Less orders keys by item, then PO. Numeric keys compare by value and sort
// before text keys, which compare as strings.
func (k POKey) Less(other POKey) bool {
	if k.Item != other.Item {
		return keyLess(k.Item, other.Item)
	}
	return keyLess(k.PO, other.PO)
}

func keyLess(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	switch {
	case errA == nil && errB == nil:
		if c := da.Cmp(db); c != 0 {
			return c < 0
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// String returns "item/po"
func (k POKey) String() string {
	return k.Item + "/" + k.PO
}

// POQuantity is a quantity summed over all rows sharing a POKey
type POQuantity struct {
	Key      POKey           `json:"key"`
	Quantity decimal.Decimal `json:"quantity"`
	Rows     int             `json:"rows"`
}

// NoPORow is one row of the material-level comparison
type NoPORow struct {
	Material  string          `json:"material"`
	UUWMS     decimal.Decimal `json:"uu_wms"`
	BlockWMS  decimal.Decimal `json:"block_wms"`
	UUSAP     decimal.Decimal `json:"uu_sap"`
	BlockSAP  decimal.Decimal `json:"block_sap"`
	TotalWMS  decimal.Decimal `json:"total_wms"`
	TotalSAP  decimal.Decimal `json:"total_sap"`
	DiffUU    decimal.Decimal `json:"diff_uu"`
	DiffBlock decimal.Decimal `json:"diff_block"`
	DiffTotal decimal.Decimal `json:"diff_total"`
	InSAP     bool            `json:"in_sap"`
	SourceRow int             `json:"source_row"`
}

// NewNoPORow builds a row from a WMS record and its SAP totals, which may be nil
func NewNoPORow(wms *WMSStock, sap *SAPTotals) *NoPORow {
	row := &NoPORow{
		Material:  wms.Material,
		UUWMS:     wms.Unrestricted,
		BlockWMS:  wms.Blocked,
		TotalWMS:  wms.Total,
		UUSAP:     decimal.Zero,
		BlockSAP:  decimal.Zero,
		TotalSAP:  decimal.Zero,
		SourceRow: wms.SourceRow,
	}
	if sap != nil {
		row.UUSAP = sap.Unrestricted
		row.BlockSAP = sap.Blocked
		row.TotalSAP = sap.Total
		row.InSAP = true
	}
	row.DiffUU = row.UUWMS.Sub(row.UUSAP)
	row.DiffBlock = row.BlockWMS.Sub(row.BlockSAP)
	row.DiffTotal = row.TotalWMS.Sub(row.TotalSAP)
	return row
}

// HasDifference reports whether any of the three differences is non-zero
func (r *NoPORow) HasDifference() bool {
	return !r.DiffUU.IsZero() || !r.DiffBlock.IsZero() || !r.DiffTotal.IsZero()
}

// Presence tells which sources contributed to a WITH_PO row
type Presence string

const (
	PresenceBoth    Presence = "BOTH"
	PresenceWMSOnly Presence = "WMS_ONLY"
	PresenceSAPOnly Presence = "SAP_ONLY"
)

// WithPORow is one row of the PO-level blocked stock comparison
type WithPORow struct {
	Item     string          `json:"item"`
	PO       string          `json:"po"`
	BlockWMS decimal.Decimal `json:"block_wms"`
	BlockSAP decimal.Decimal `json:"block_sap"`
	Diff     decimal.Decimal `json:"diff"`
	InWMS    bool            `json:"in_wms"`
	InSAP    bool            `json:"in_sap"`
}

// NewWithPORow builds a row for key from whichever sides are present
func NewWithPORow(key POKey, wms, sap *POQuantity) *WithPORow {
	row := &WithPORow{
		Item:     key.Item,
		PO:       key.PO,
		BlockWMS: decimal.Zero,
		BlockSAP: decimal.Zero,
	}
	if wms != nil {
		row.BlockWMS = wms.Quantity
		row.InWMS = true
	}
	if sap != nil {
		row.BlockSAP = sap.Quantity
		row.InSAP = true
	}
	row.Diff = row.BlockWMS.Sub(row.BlockSAP)
	return row
}

// Presence returns which sources the row's key was found in
func (r *WithPORow) Presence() Presence {
	switch {
	case r.InWMS && r.InSAP:
		return PresenceBoth
	case r.InWMS:
		return PresenceWMSOnly
	default:
		return PresenceSAPOnly
	}
}

// HasDifference reports whether the blocked quantities differ
func (r *WithPORow) HasDifference() bool {
	return !r.Diff.IsZero()
}
