package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
)

// RecordService serves the null-record browser and record detail view.
type RecordService interface {
	// NullRecordPage returns one page of rows where at least one of the
	// given columns is null. pageNo is clamped to 1 when out of range;
	// pagePer falls back to the configured page size when not positive.
	NullRecordPage(ctx context.Context, sourceTable string, taskID int64, columns []string, pageNo, pagePer int) (*models.NullRecordPage, error)

	// GetRecord returns the full column→value map for one row.
	GetRecord(ctx context.Context, sourceTable string, taskID, recordID int64) (models.DBRecord, error)
}

type recordService struct {
	repo   repositories.RecordRepository
	cfg    *config.ReviewConfig
	logger *zap.Logger
}

// NewRecordService creates a new RecordService.
func NewRecordService(repo repositories.RecordRepository, cfg *config.ReviewConfig, logger *zap.Logger) RecordService {
	return &recordService{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("record-service"),
	}
}

var _ RecordService = (*recordService)(nil)

func (s *recordService) NullRecordPage(ctx context.Context, sourceTable string, taskID int64, columns []string, pageNo, pagePer int) (*models.NullRecordPage, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pagePer < 1 {
		pagePer = s.cfg.PageSize
	}
	offset := (pageNo - 1) * pagePer

	page, err := s.repo.NullRecords(ctx, sourceTable, taskID, columns, pagePer, offset)
	if err != nil {
		s.logger.Error("Failed to page null records",
			zap.String("source_table", sourceTable),
			zap.Int64("task_id", taskID),
			zap.Int("page_no", pageNo),
			zap.Error(err))
		return nil, err
	}
	page.TotalPages = TotalPages(page.TotalItems, pagePer)
	return page, nil
}

func (s *recordService) GetRecord(ctx context.Context, sourceTable string, taskID, recordID int64) (models.DBRecord, error) {
	return s.repo.GetRecord(ctx, sourceTable, taskID, recordID)
}

// TotalPages derives a page count from a total and a page size, rounding up.
// A non-positive total yields zero pages; callers paging through live data
// keep their previous count when a refresh reports a transient zero.
func TotalPages(totalItems int64, pagePer int) int {
	if totalItems <= 0 || pagePer <= 0 {
		return 0
	}
	return int((totalItems + int64(pagePer) - 1) / int64(pagePer))
}
