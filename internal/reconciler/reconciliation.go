// Package reconciler compares the WMS stock snapshot and PO-detail report
// against the SAP stock export.
//
// Two reconciliations share the SAP input:
//
//   - NO_PO: SAP rows are summed per material and left-joined onto every WMS
//     row, giving unrestricted, blocked and total differences.
//   - WITH_PO: blocked quantities are summed per (item, PO) on both sides and
//     outer-joined, giving one difference per key with presence flags.
//
// Every difference is WMS minus SAP. A missing counterpart counts as zero.
//
// Example usage:
//
//	loader, _ := parsers.NewLoader(parsers.DefaultLoaderConfig(), log)
//	service, _ := reconciler.NewService(loader, reconciler.DefaultConfig(), log)
//	result, err := service.Run(ctx)
package reconciler

import (
	"context"
	"fmt"
	"time"

	"wms-sap-sync/internal/models"
	"wms-sap-sync/internal/parsers"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"
)

// Pipeline stage names, as logged and reported in errors
const (
	StageLoadWMS      = "load_wms"
	StageLoadSAP      = "load_sap"
	StageLoadPODetail = "load_po_detail"
	StageNoPO         = "reconcile_no_po"
	StageWithPO       = "reconcile_with_po"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	// Rounding is applied to SAP per-material sums, matching the WMS cleaner
	Rounding models.RoundingPolicy `json:"rounding" mapstructure:"rounding"`
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Rounding: models.RoundingTruncate,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Rounding.IsValid() {
		return fmt.Errorf("invalid rounding policy %q", c.Rounding)
	}
	return nil
}

// Inputs are the three loaded tables a reconciliation works on
type Inputs struct {
	WMS      *parsers.WMSSnapshot
	SAP      *parsers.Table
	PODetail *parsers.PODetail
}

// Summary gives row and mismatch counts for both reconciliations
type Summary struct {
	WMSRows       int `json:"wms_rows"`
	SAPRows       int `json:"sap_rows"`
	PODetailRows  int `json:"po_detail_rows"`
	BlankItemRows int `json:"blank_item_rows"`
	CoercedCells  int `json:"coerced_cells"`

	// Rows left out of the per-material and per-PO sums for a blank key
	SAPBlankMaterial int `json:"sap_blank_material"`
	SAPBlankPOKey    int `json:"sap_blank_po_key"`
	WMSBlankPOKey    int `json:"wms_blank_po_key"`

	NoPORows         int `json:"no_po_rows"`
	NoPOMismatches   int `json:"no_po_mismatches"`
	NoPOMissingInSAP int `json:"no_po_missing_in_sap"`

	WithPORows       int `json:"with_po_rows"`
	WithPOMismatches int `json:"with_po_mismatches"`
	WithPOWMSOnly    int `json:"with_po_wms_only"`
	WithPOSAPOnly    int `json:"with_po_sap_only"`

	Duration time.Duration `json:"duration"`
}

// Result contains both reconciliation tables and their summary
type Result struct {
	// MaterialHeader is the WMS header text reused as the first NO_PO column
	MaterialHeader string                 `json:"material_header"`
	NoPO           []*models.NoPORow      `json:"no_po"`
	WithPO         []*models.WithPORow    `json:"with_po"`
	Summary        *Summary               `json:"summary"`
	Stages         []logger.StageDuration `json:"stages,omitempty"`
	ProcessedAt    time.Time              `json:"processed_at"`
}

// Service runs the load, aggregate and join pipeline
type Service struct {
	loader *parsers.Loader
	config *Config
	logger logger.Logger
}

// NewService creates a new reconciliation service
func NewService(loader *parsers.Loader, config *Config, log logger.Logger) (*Service, error) {
	if loader == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "creating reconciliation service",
			fmt.Errorf("loader is required"))
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "rounding", config.Rounding, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{
		loader: loader,
		config: config,
		logger: log.WithComponent("reconciler"),
	}, nil
}

// Run loads the three inputs and reconciles them. The context is checked
// between stages; a cancelled run returns without a result.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	tracker := logger.NewStageTracker("reconcile", s.logger)
	start := time.Now()

	inputs := &Inputs{}
	err := s.stage(ctx, tracker, StageLoadWMS, func() (err error) {
		inputs.WMS, err = s.loader.LoadWMS()
		return err
	})
	if err == nil {
		err = s.stage(ctx, tracker, StageLoadSAP, func() (err error) {
			inputs.SAP, err = s.loader.LoadSAP()
			return err
		})
	}
	if err == nil {
		err = s.stage(ctx, tracker, StageLoadPODetail, func() (err error) {
			inputs.PODetail, err = s.loader.LoadPODetail()
			return err
		})
	}
	if err != nil {
		tracker.Fail(err)
		return nil, err
	}

	result, err := s.reconcile(ctx, tracker, inputs)
	if err != nil {
		tracker.Fail(err)
		return nil, err
	}

	result.Stages = tracker.Complete()
	result.Summary.Duration = time.Since(start)
	return result, nil
}

// Reconcile runs both reconciliations on already loaded inputs
func (s *Service) Reconcile(ctx context.Context, inputs *Inputs) (*Result, error) {
	tracker := logger.NewStageTracker("reconcile", s.logger)
	start := time.Now()

	result, err := s.reconcile(ctx, tracker, inputs)
	if err != nil {
		tracker.Fail(err)
		return nil, err
	}

	result.Stages = tracker.Complete()
	result.Summary.Duration = time.Since(start)
	return result, nil
}

func (s *Service) reconcile(ctx context.Context, tracker *logger.StageTracker, inputs *Inputs) (*Result, error) {
	if inputs == nil || inputs.WMS == nil || inputs.SAP == nil || inputs.PODetail == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "reconcile", fmt.Errorf("all three inputs are required"))
	}

	summary := &Summary{
		WMSRows:       len(inputs.WMS.Stocks),
		SAPRows:       inputs.SAP.Len(),
		PODetailRows:  inputs.PODetail.Table.Len(),
		BlankItemRows: inputs.PODetail.BlankItems,
		CoercedCells:  inputs.WMS.Clean.Coerced,
	}
	result := &Result{
		MaterialHeader: inputs.WMS.MaterialHeader,
		Summary:        summary,
		ProcessedAt:    time.Now(),
	}

	err := s.stage(ctx, tracker, StageNoPO, func() error {
		totals, skipped, err := SAPByMaterial(inputs.SAP, s.config.Rounding)
		if err != nil {
			return errors.ReconciliationError(errors.CodeGroupingFailed, StageNoPO, err)
		}
		summary.SAPBlankMaterial = skipped

		result.NoPO = JoinNoPO(inputs.WMS.Stocks, totals)
		for _, row := range result.NoPO {
			if row.HasDifference() {
				summary.NoPOMismatches++
			}
			if !row.InSAP {
				summary.NoPOMissingInSAP++
			}
		}
		summary.NoPORows = len(result.NoPO)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, tracker, StageWithPO, func() error {
		wms, wmsSkipped, err := WMSBlockedByPO(inputs.PODetail)
		if err != nil {
			return errors.ReconciliationError(errors.CodeGroupingFailed, StageWithPO, err)
		}
		sap, sapSkipped, err := SAPBlockedByPO(inputs.SAP)
		if err != nil {
			return errors.ReconciliationError(errors.CodeGroupingFailed, StageWithPO, err)
		}
		summary.WMSBlankPOKey = wmsSkipped
		summary.SAPBlankPOKey = sapSkipped

		result.WithPO = JoinWithPO(wms, sap)
		for _, row := range result.WithPO {
			if row.HasDifference() {
				summary.WithPOMismatches++
			}
			switch row.Presence() {
			case models.PresenceWMSOnly:
				summary.WithPOWMSOnly++
			case models.PresenceSAPOnly:
				summary.WithPOSAPOnly++
			}
		}
		summary.WithPORows = len(result.WithPO)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"no_po_rows":         summary.NoPORows,
		"no_po_mismatches":   summary.NoPOMismatches,
		"with_po_rows":       summary.WithPORows,
		"with_po_mismatches": summary.WithPOMismatches,
	}).Info("Reconciliation finished")
	return result, nil
}

// stage checks for cancellation, then runs fn as a named stage. A panic in
// fn, which gota raises on malformed frames, becomes a processing error.
func (s *Service) stage(ctx context.Context, tracker *logger.StageTracker, name string, fn func() error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.ReconciliationError(errors.CodeCancelled, name, ctxErr)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.ReconciliationError(errors.CodeProcessingError, name, fmt.Errorf("%v", r))
		}
	}()
	tracker.Begin(name)
	return fn()
}
