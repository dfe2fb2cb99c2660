package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"upgrade-service/internal/models"
	"upgrade-service/internal/store"
	"upgrade-service/internal/upgrade"
	"upgrade-service/internal/util"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Upgrades"

// CatalogService loads, imports and exports the upgrade catalog
type CatalogService struct {
	store     CatalogStore
	cache     CatalogCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, cache CatalogCache, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// RejectedRow is an import row that failed validation
type RejectedRow struct {
	Row     int             `json:"row"`
	Warning upgrade.Warning `json:"warning"`
}

// ImportResult summarizes a catalog import
type ImportResult struct {
	Imported int           `json:"imported"`
	Rejected []RejectedRow `json:"rejected"`
}

// ToRawOption converts a stored row into the loader's input.
func ToRawOption(m models.UpgradeOption) upgrade.RawOption {
	return upgrade.RawOption{
		ID:            m.ID,
		Kind:          m.Kind,
		Size:          m.Size,
		Label:         m.Label,
		Price:         m.Price,
		Applicability: m.Applicability,
		GenMin:        m.GenMin,
		GenMax:        m.GenMax,
		Active:        m.Active,
		DisplayOrder:  m.DisplayOrder,
	}
}

// Catalog returns the validated upgrade catalog. Rows dropped by the loader
// are logged and counted; the remaining options are returned.
func (s *CatalogService) Catalog(ctx context.Context) ([]upgrade.UpgradeOption, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Catalog")
	defer span.End()

	rows, err := s.rows(ctx)
	if err != nil {
		return nil, util.FailSpan(span, err)
	}

	raw := make([]upgrade.RawOption, len(rows))
	for i, r := range rows {
		raw[i] = ToRawOption(r)
	}

	options, warnings := upgrade.LoadCatalog(raw)
	for _, w := range warnings {
		util.LogWarning(s.logger, w)
	}
	util.CatalogOptionsLoaded.Set(float64(len(options)))

	return options, nil
}

func (s *CatalogService) rows(ctx context.Context) ([]models.UpgradeOption, error) {
	rows, ok, err := s.cache.GetCatalog(ctx)
	if err != nil {
		s.logger.Warn("Catalog cache read failed, falling back to DB", zap.Error(err))
	}
	if ok {
		util.CatalogLoadsTotal.WithLabelValues("cache").Inc()
		return rows, nil
	}

	// read before the query so a change committed meanwhile is not cached over
	version, versionErr := s.cache.CatalogVersion(ctx)
	if versionErr != nil {
		s.logger.Warn("Catalog version read failed, skipping cache refill", zap.Error(versionErr))
	}

	rows, err = s.store.ListUpgradeOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	util.CatalogLoadsTotal.WithLabelValues("db").Inc()

	if versionErr != nil {
		return rows, nil
	}
	stored, err := s.cache.SetCatalog(ctx, version, rows)
	if err != nil {
		s.logger.Warn("Failed to cache catalog", zap.Error(err))
	} else if !stored {
		s.logger.Debug("Catalog changed during load, not cached", zap.Int64("version", version))
	}
	return rows, nil
}

// ImportCSV upserts upgrade options from a CSV document with the header
// id,kind,size,label,price,applicability,gen_min,gen_max,active,display_order.
// Rows that fail validation are reported and skipped; the rest are stored.
func (s *CatalogService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ImportCSV")
	defer span.End()

	var rows []*models.UpgradeOption
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	result := &ImportResult{Rejected: []RejectedRow{}}
	accepted := make([]models.UpgradeOption, 0, len(rows))

	for i, row := range rows {
		if w := validateRow(*row); w != nil {
			result.Rejected = append(result.Rejected, RejectedRow{Row: i + 1, Warning: *w})
			util.LogWarning(s.logger, *w, zap.Int("row", i+1))
			continue
		}
		accepted = append(accepted, *row)
	}

	util.CatalogImportsTotal.WithLabelValues("rejected").Add(float64(len(result.Rejected)))
	if len(accepted) == 0 {
		return result, nil
	}

	if err := s.store.UpsertUpgradeOptions(ctx, accepted); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to store imported options: %w", err))
	}
	result.Imported = len(accepted)
	util.CatalogImportsTotal.WithLabelValues("imported").Add(float64(result.Imported))

	s.logger.Info("Catalog imported",
		zap.Int("imported", result.Imported),
		zap.Int("rejected", len(result.Rejected)))

	s.catalogChanged(ctx, result.Imported, len(result.Rejected))
	return result, nil
}

// validateRow runs one row through the loader. Inactive rows are validated
// as if active so a bad row cannot be parked in the catalog.
func validateRow(row models.UpgradeOption) *upgrade.Warning {
	raw := ToRawOption(row)
	raw.Active = true
	_, warnings := upgrade.LoadCatalog([]upgrade.RawOption{raw})
	if len(warnings) > 0 {
		return &warnings[0]
	}
	return nil
}

// DeactivateOption removes an option from future catalog loads
func (s *CatalogService) DeactivateOption(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeactivateOption")
	defer span.End()

	err := s.store.DeactivateUpgradeOption(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrOptionNotFound, id)
	}
	if err != nil {
		return util.FailSpan(span, err)
	}

	s.logger.Info("Upgrade option deactivated", zap.Int64("option_id", id))
	s.catalogChanged(ctx, 0, 0)
	return nil
}

func (s *CatalogService) catalogChanged(ctx context.Context, imported, rejected int) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Error("Failed to invalidate catalog cache", zap.Error(err))
	}

	event := &models.CatalogUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCatalogUpdated,
			Timestamp: time.Now(),
		},
		Imported: imported,
		Rejected: rejected,
	}
	if err := s.publisher.PublishCatalogUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish CatalogUpdated event", zap.Error(err))
	}
}

// HandleCatalogUpdated drops the cached catalog after another replica changed it
func (s *CatalogService) HandleCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.HandleCatalogUpdated")
	defer span.End()

	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		return util.FailSpan(span, fmt.Errorf("failed to invalidate catalog cache: %w", err))
	}
	s.logger.Info("Catalog cache invalidated", zap.String("event_id", event.EventID))
	return nil
}

// ExportXLSX renders the validated catalog as a spreadsheet
func (s *CatalogService) ExportXLSX(ctx context.Context) (*bytes.Buffer, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ExportXLSX")
	defer span.End()

	options, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []interface{}{"ID", "Key", "Kind", "Capacity (GB)", "Label", "Price", "Applicability", "Gen Min", "Gen Max", "Display Order"}
	if err := setRow(f, 1, headers); err != nil {
		return nil, util.FailSpan(span, err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to create header style: %w", err))
	}
	if err := f.SetCellStyle(exportSheet, "A1", "J1", style); err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to style header: %w", err))
	}

	for i, o := range options {
		values := []interface{}{o.ID, o.Key(), string(o.Kind), o.Capacity, o.Label, o.BasePrice, o.Applicability, "", "", o.DisplayOrder}
		if gr := o.GenerationRange; gr != nil {
			values[7] = gr.Min
			if gr.Max != nil {
				values[8] = *gr.Max
			}
		}
		if err := setRow(f, i+2, values); err != nil {
			return nil, util.FailSpan(span, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, util.FailSpan(span, fmt.Errorf("failed to write spreadsheet: %w", err))
	}
	return buf, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", row, err)
		}
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
	}
	return nil
}
