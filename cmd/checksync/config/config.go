package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"wms-sap-sync/internal/models"
	"wms-sap-sync/internal/parsers"
	"wms-sap-sync/internal/reconciler"
	"wms-sap-sync/internal/reporter"
	"wms-sap-sync/internal/store"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/spf13/viper"
)

// Setting keys shared by flags, config files and CHECKSYNC_* variables
const (
	KeyWMSFile         = "wms-file"
	KeySAPFile         = "sap-file"
	KeyPOFile          = "po-file"
	KeyWMSSheet        = "wms-sheet"
	KeySAPSheet        = "sap-sheet"
	KeyPOSheet         = "po-sheet"
	KeyWMSHeaderRow    = "wms-header-row"
	KeySAPHeaderRow    = "sap-header-row"
	KeyPOHeaderRow     = "po-header-row"
	KeyCSVEncoding     = "csv-encoding"
	KeyCSVDelimiter    = "csv-delimiter"
	KeyRounding        = "rounding"
	KeyOutputFile      = "output-file"
	KeyOutputFormat    = "output-format"
	KeyPresenceColumns = "presence-columns"
	KeyHistoryDB       = "history-db"
	KeyHistoryDriver   = "history-driver"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyVerbose         = "verbose"
	KeyAddr            = "addr"
)

// SetDefaults registers the default for every setting on v
func SetDefaults(v *viper.Viper) {
	loader := parsers.DefaultLoaderConfig()
	report := reporter.DefaultReportConfig()

	v.SetDefault(KeyWMSFile, loader.WMS.Path)
	v.SetDefault(KeySAPFile, loader.SAP.Path)
	v.SetDefault(KeyPOFile, loader.PODetail.Path)
	v.SetDefault(KeyWMSHeaderRow, loader.WMS.HeaderRow)
	v.SetDefault(KeySAPHeaderRow, loader.SAP.HeaderRow)
	v.SetDefault(KeyPOHeaderRow, loader.PODetail.HeaderRow)
	v.SetDefault(KeyCSVEncoding, parsers.EncodingUTF8)
	v.SetDefault(KeyCSVDelimiter, ",")
	v.SetDefault(KeyRounding, string(loader.Rounding))
	v.SetDefault(KeyOutputFile, report.OutputPath)
	v.SetDefault(KeyOutputFormat, string(report.Format))
	v.SetDefault(KeyPresenceColumns, report.PresenceColumns)
	v.SetDefault(KeyHistoryDriver, store.DriverSQLite)
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyAddr, ":8080")
}

// CreateLoaderConfig builds the input configuration from v
func CreateLoaderConfig(v *viper.Viper) (*parsers.LoaderConfig, error) {
	encoding := strings.ToLower(strings.TrimSpace(v.GetString(KeyCSVEncoding)))
	delimiter, err := parseDelimiter(v.GetString(KeyCSVDelimiter))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyCSVDelimiter, v.GetString(KeyCSVDelimiter), err)
	}

	source := func(fileKey, sheetKey, rowKey string) parsers.SourceConfig {
		return parsers.SourceConfig{
			Path:      v.GetString(fileKey),
			Sheet:     v.GetString(sheetKey),
			HeaderRow: v.GetInt(rowKey),
			Encoding:  encoding,
			Delimiter: delimiter,
		}
	}

	config := &parsers.LoaderConfig{
		WMS:      source(KeyWMSFile, KeyWMSSheet, KeyWMSHeaderRow),
		SAP:      source(KeySAPFile, KeySAPSheet, KeySAPHeaderRow),
		PODetail: source(KeyPOFile, KeyPOSheet, KeyPOHeaderRow),
		Rounding: models.RoundingPolicy(strings.ToLower(v.GetString(KeyRounding))),
	}

	checks := []struct {
		key    string
		source parsers.SourceConfig
	}{
		{KeyWMSFile, config.WMS},
		{KeySAPFile, config.SAP},
		{KeyPOFile, config.PODetail},
	}
	for _, c := range checks {
		if err := c.source.Validate(); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, c.key, c.source.Path, err)
		}
	}
	if !config.Rounding.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyRounding, config.Rounding,
			fmt.Errorf("expected one of %s, %s, %s", models.RoundingTruncate, models.RoundingHalfUp, models.RoundingNone))
	}

	return config, nil
}

// CreateReconcilerConfig builds the reconciliation configuration from v
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()
	config.Rounding = models.RoundingPolicy(strings.ToLower(v.GetString(KeyRounding)))

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyRounding, config.Rounding, err)
	}
	return config, nil
}

// CreateReportConfig builds the report configuration from v
func CreateReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	config := &reporter.ReportConfig{
		Format:          reporter.OutputFormat(strings.ToLower(v.GetString(KeyOutputFormat))),
		OutputPath:      v.GetString(KeyOutputFile),
		PresenceColumns: v.GetBool(KeyPresenceColumns),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, config.Format, err)
	}
	for _, key := range []string{KeyWMSFile, KeySAPFile, KeyPOFile} {
		if samePath(config.OutputPath, v.GetString(key)) {
			return nil, errors.ConfigurationError(errors.CodeConfigConflict, KeyOutputFile, config.OutputPath,
				fmt.Errorf("output would overwrite the %s input", key))
		}
	}
	return config, nil
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// CreateStoreConfig builds the history database configuration from v.
// The result is not enabled when no database is configured.
func CreateStoreConfig(v *viper.Viper) (*store.Config, error) {
	config := &store.Config{
		Driver: strings.ToLower(v.GetString(KeyHistoryDriver)),
		DSN:    v.GetString(KeyHistoryDB),
	}
	if !config.Enabled() {
		return config, nil
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyHistoryDriver, config.Driver, err)
	}
	return config, nil
}

// CreateLoggerConfig builds the logger configuration from v. --verbose forces debug level.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()
	config.Level = logger.Level(strings.ToLower(v.GetString(KeyLogLevel)))
	if v.GetBool(KeyVerbose) {
		config = logger.DebugConfig()
	}
	config.Format = logger.Format(strings.ToLower(v.GetString(KeyLogFormat)))

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLogLevel, config.Level, err)
	}
	return config, nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
