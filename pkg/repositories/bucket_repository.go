package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/database"
	"github.com/dataloom-io/review-engine/pkg/models"
)

// BucketRepository provides data access for bucket metadata.
type BucketRepository interface {
	// GetBuckets retrieves every bucket (visible or not) for a task.
	GetBuckets(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.Bucket, error)

	// UpsertBucket creates or replaces a bucket's analysis results.
	UpsertBucket(ctx context.Context, sourceTable string, taskID int64, name string, bucket *models.Bucket) error

	// HideBucket flips a bucket's show flag to false (soft delete).
	HideBucket(ctx context.Context, sourceTable string, taskID int64, name string) error

	// GetTask retrieves task bookkeeping. Returns apperrors.ErrTaskNotAnalyzed
	// when the task has never been analyzed.
	GetTask(ctx context.Context, sourceTable string, taskID int64) (totalRows int64, analyzedAt *time.Time, err error)

	// MarkAnalyzed records a completed analysis run for a task.
	MarkAnalyzed(ctx context.Context, sourceTable string, taskID int64, totalRows int64) error
}

type bucketRepository struct {
	db *database.DB
}

// NewBucketRepository creates a new BucketRepository.
func NewBucketRepository(db *database.DB) BucketRepository {
	return &bucketRepository{db: db}
}

var _ BucketRepository = (*bucketRepository)(nil)

func (r *bucketRepository) GetBuckets(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.Bucket, error) {
	query := `
		SELECT id, name, columns, pivot_columns, inter_dependency,
		       common_null_count, uncommon_null_count, show_flag,
		       created_at, updated_at
		FROM review_buckets
		WHERE source_table = $1 AND task_id = $2
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, sourceTable, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]*models.Bucket)
	for rows.Next() {
		b := &models.Bucket{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Columns, &b.PivotColumns,
			&b.InterDependency, &b.CommonNullCount, &b.UncommonNullCount,
			&b.ShowFlag, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets[b.Name] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read buckets: %w", err)
	}
	return buckets, nil
}

func (r *bucketRepository) UpsertBucket(ctx context.Context, sourceTable string, taskID int64, name string, bucket *models.Bucket) error {
	columnsValue, err := bucket.Columns.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	pivotsValue, err := bucket.PivotColumns.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal pivot columns: %w", err)
	}

	query := `
		INSERT INTO review_buckets (
			source_table, task_id, name, columns, pivot_columns,
			inter_dependency, common_null_count, uncommon_null_count,
			show_flag, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, now())
		ON CONFLICT (source_table, task_id, name)
		DO UPDATE SET
			columns = EXCLUDED.columns,
			pivot_columns = EXCLUDED.pivot_columns,
			inter_dependency = EXCLUDED.inter_dependency,
			common_null_count = EXCLUDED.common_null_count,
			uncommon_null_count = EXCLUDED.uncommon_null_count,
			updated_at = now()
		RETURNING id, created_at`

	err = r.db.QueryRow(ctx, query,
		sourceTable, taskID, name,
		columnsValue, pivotsValue,
		bucket.InterDependency, bucket.CommonNullCount, bucket.UncommonNullCount,
	).Scan(&bucket.ID, &bucket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}
	return nil
}

func (r *bucketRepository) HideBucket(ctx context.Context, sourceTable string, taskID int64, name string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE review_buckets
		SET show_flag = FALSE, updated_at = now()
		WHERE source_table = $1 AND task_id = $2 AND name = $3`,
		sourceTable, taskID, name)
	if err != nil {
		return fmt.Errorf("failed to update show flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *bucketRepository) GetTask(ctx context.Context, sourceTable string, taskID int64) (int64, *time.Time, error) {
	var totalRows int64
	var analyzedAt *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT total_rows, analyzed_at
		FROM review_tasks
		WHERE source_table = $1 AND task_id = $2`,
		sourceTable, taskID).Scan(&totalRows, &analyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, apperrors.ErrTaskNotAnalyzed
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query task: %w", err)
	}
	return totalRows, analyzedAt, nil
}

func (r *bucketRepository) MarkAnalyzed(ctx context.Context, sourceTable string, taskID int64, totalRows int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO review_tasks (source_table, task_id, total_rows, analyzed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (source_table, task_id)
		DO UPDATE SET total_rows = EXCLUDED.total_rows, analyzed_at = now()`,
		sourceTable, taskID, totalRows)
	if err != nil {
		return fmt.Errorf("failed to mark task analyzed: %w", err)
	}
	return nil
}
