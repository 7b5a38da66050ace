package parsers

import (
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"
)

// Loader reads and validates the three reconciliation inputs
type Loader struct {
	config  *LoaderConfig
	cleaner *Cleaner
	logger  logger.Logger
}

// NewLoader creates a loader for the given configuration
func NewLoader(config *LoaderConfig, log logger.Logger) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "loader", config, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Loader{
		config:  config,
		cleaner: NewCleaner(config.Rounding),
		logger:  log.WithComponent("loader"),
	}, nil
}

// Config returns the loader configuration
func (l *Loader) Config() *LoaderConfig {
	return l.config
}

// LoadWMS reads the WMS stock snapshot and cleans its quantity columns
func (l *Loader) LoadWMS() (*WMSSnapshot, error) {
	table, err := l.load(&l.config.WMS, WMSSchema(l.config.WMS.HeaderRow))
	if err != nil {
		return nil, err
	}

	snapshot, err := buildWMSSnapshot(table, l.cleaner)
	if err != nil {
		return nil, err
	}
	if snapshot.Clean.Coerced > 0 {
		l.logger.WithFields(logger.Fields{
			"file":    table.Source,
			"coerced": snapshot.Clean.Coerced,
			"cells":   snapshot.Clean.Cells,
		}).Debug("Non-numeric quantity cells coerced to zero")
		for _, cell := range snapshot.Clean.Samples {
			l.logger.WithField("cell", cell.Location()).WithField("value", cell.Cell.Value).Debug(cell.Message)
		}
	}
	return snapshot, nil
}

// LoadSAP reads the SAP stock export
func (l *Loader) LoadSAP() (*Table, error) {
	return l.load(&l.config.SAP, SAPSchema(l.config.SAP.HeaderRow))
}

// LoadPODetail reads the PO-detail report and drops rows without an item
func (l *Loader) LoadPODetail() (*PODetail, error) {
	table, err := l.load(&l.config.PODetail, PODetailSchema(l.config.PODetail.HeaderRow))
	if err != nil {
		return nil, err
	}

	detail, err := buildPODetail(table)
	if err != nil {
		return nil, err
	}
	if detail.BlankItems > 0 {
		l.logger.WithFields(logger.Fields{
			"file":    table.Source,
			"dropped": detail.BlankItems,
		}).Debug("Dropped PO detail rows with blank item")
	}
	return detail, nil
}

func (l *Loader) load(source *SourceConfig, schema *Schema) (*Table, error) {
	rows, err := ReadRows(source)
	if err != nil {
		return nil, err
	}

	table, err := schema.Apply(source.Path, rows)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logger.Fields{
		"file":    source.Path,
		"input":   schema.Input,
		"rows":    table.Len(),
		"columns": len(table.Names),
	}).Info("Loaded input")
	return table, nil
}
