package services

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/csvutil"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
)

// BucketService provides read and review operations over analyzed buckets.
type BucketService interface {
	// GetBucketMap returns the stored bucket overview for a task. Fails with
	// apperrors.ErrTaskNotAnalyzed when the task was never analyzed.
	GetBucketMap(ctx context.Context, sourceTable string, taskID int64) (*models.BucketMap, error)

	// HideBucket soft-deletes a bucket by flipping its show flag off. The
	// bucket and its statistics stay in storage; rendering filters it out.
	HideBucket(ctx context.Context, sourceTable string, taskID int64, bucketName string) error

	// SampleCSV streams an escaped CSV of rows where every given column is
	// null, capped at the configured sample size.
	SampleCSV(ctx context.Context, w io.Writer, sourceTable string, taskID int64, columns []string) error
}

type bucketService struct {
	buckets repositories.BucketRepository
	records repositories.RecordRepository
	cfg     *config.ReviewConfig
	logger  *zap.Logger
}

// NewBucketService creates a new BucketService.
func NewBucketService(buckets repositories.BucketRepository, records repositories.RecordRepository, cfg *config.ReviewConfig, logger *zap.Logger) BucketService {
	return &bucketService{
		buckets: buckets,
		records: records,
		cfg:     cfg,
		logger:  logger.Named("bucket-service"),
	}
}

var _ BucketService = (*bucketService)(nil)

func (s *bucketService) GetBucketMap(ctx context.Context, sourceTable string, taskID int64) (*models.BucketMap, error) {
	totalRows, _, err := s.buckets.GetTask(ctx, sourceTable, taskID)
	if err != nil {
		return nil, err
	}
	buckets, err := s.buckets.GetBuckets(ctx, sourceTable, taskID)
	if err != nil {
		s.logger.Error("Failed to load buckets",
			zap.String("source_table", sourceTable),
			zap.Int64("task_id", taskID),
			zap.Error(err))
		return nil, err
	}
	return &models.BucketMap{
		TaskID:    taskID,
		TotalRows: totalRows,
		Buckets:   buckets,
	}, nil
}

func (s *bucketService) HideBucket(ctx context.Context, sourceTable string, taskID int64, bucketName string) error {
	if err := s.buckets.HideBucket(ctx, sourceTable, taskID, bucketName); err != nil {
		return err
	}
	s.logger.Info("Bucket hidden",
		zap.String("source_table", sourceTable),
		zap.Int64("task_id", taskID),
		zap.String("bucket", bucketName))
	return nil
}

func (s *bucketService) SampleCSV(ctx context.Context, w io.Writer, sourceTable string, taskID int64, columns []string) error {
	header, rows, err := s.records.SampleRows(ctx, sourceTable, taskID, columns, s.cfg.SampleRows)
	if err != nil {
		return err
	}
	return csvutil.WriteRecords(w, header, rows)
}
