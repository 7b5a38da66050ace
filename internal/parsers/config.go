package parsers

import (
	"fmt"
	"strings"

	"wms-sap-sync/internal/models"
)

// Encodings accepted for delimited text inputs
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// SourceConfig describes where one input lives and how its sheet is laid out
type SourceConfig struct {
	Path      string `json:"path" mapstructure:"file"`
	Sheet     string `json:"sheet,omitempty" mapstructure:"sheet"`
	HeaderRow int    `json:"header_row" mapstructure:"header-row"`
	Encoding  string `json:"encoding,omitempty" mapstructure:"encoding"`
	Delimiter rune   `json:"delimiter,omitempty" mapstructure:"delimiter"`
}

// Validate checks if the source configuration is usable
func (sc *SourceConfig) Validate() error {
	if strings.TrimSpace(sc.Path) == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if sc.HeaderRow < 0 {
		return fmt.Errorf("header row cannot be negative, got %d", sc.HeaderRow)
	}
	switch strings.ToLower(sc.Encoding) {
	case "", EncodingUTF8, EncodingWindows1252:
	default:
		return fmt.Errorf("unsupported encoding %q", sc.Encoding)
	}
	return nil
}

// LoaderConfig holds the three input sources and the cleaning policy
type LoaderConfig struct {
	WMS      SourceConfig          `json:"wms"`
	SAP      SourceConfig          `json:"sap"`
	PODetail SourceConfig          `json:"po_detail"`
	Rounding models.RoundingPolicy `json:"rounding"`
}

// DefaultLoaderConfig returns the file names and header rows of the standard exports
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		WMS: SourceConfig{
			Path:      "WMS.xlsx",
			HeaderRow: 0,
			Encoding:  EncodingUTF8,
			Delimiter: ',',
		},
		SAP: SourceConfig{
			Path:      "SAP.xlsx",
			HeaderRow: 2,
			Encoding:  EncodingUTF8,
			Delimiter: ',',
		},
		PODetail: SourceConfig{
			Path:      "036.xls",
			HeaderRow: 3,
			Encoding:  EncodingUTF8,
			Delimiter: ',',
		},
		Rounding: models.RoundingTruncate,
	}
}

// Validate checks every source and the rounding policy
func (lc *LoaderConfig) Validate() error {
	if err := lc.WMS.Validate(); err != nil {
		return fmt.Errorf("wms: %w", err)
	}
	if err := lc.SAP.Validate(); err != nil {
		return fmt.Errorf("sap: %w", err)
	}
	if err := lc.PODetail.Validate(); err != nil {
		return fmt.Errorf("po detail: %w", err)
	}
	if !lc.Rounding.IsValid() {
		return fmt.Errorf("invalid rounding policy %q", lc.Rounding)
	}
	return nil
}
