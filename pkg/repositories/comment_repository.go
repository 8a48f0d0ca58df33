package repositories

import (
	"context"
	"fmt"

	"github.com/dataloom-io/review-engine/pkg/database"
	"github.com/dataloom-io/review-engine/pkg/models"
)

// CommentRepository provides data access for review comments. All reads are
// batched per (table, task) so callers never loop one request per column.
type CommentRepository interface {
	// Insert stores a new comment and fills in its ID and timestamp.
	Insert(ctx context.Context, comment *models.Comment) error

	// ListByBucket returns bucket-scoped comment threads grouped by bucket
	// name (column-scoped comments included in their bucket's thread).
	ListByBucket(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.BucketComments, error)

	// ListByColumn returns column-scoped comment threads grouped by bucket
	// then column name.
	ListByColumn(ctx context.Context, sourceTable string, taskID int64) (map[string]map[string]*models.ColumnComments, error)

	// CountsByBucket returns per-bucket comment totals without fetching
	// bodies. Feeds the cached count badges.
	CountsByBucket(ctx context.Context, sourceTable string, taskID int64) (map[string]int64, error)
}

type commentRepository struct {
	db *database.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *database.DB) CommentRepository {
	return &commentRepository{db: db}
}

var _ CommentRepository = (*commentRepository)(nil)

func (r *commentRepository) Insert(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO review_comments (
			source_table, task_id, bucket_name, column_name, body, flag
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		comment.SourceTable, comment.TaskID, comment.BucketName,
		comment.ColumnName, comment.Body, comment.Flag,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) ListByBucket(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.BucketComments, error) {
	query := `
		SELECT id, bucket_name, column_name, body, flag, created_at
		FROM review_comments
		WHERE source_table = $1 AND task_id = $2
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, sourceTable, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bucket comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*models.BucketComments)
	for rows.Next() {
		c := &models.Comment{SourceTable: sourceTable, TaskID: taskID}
		if err := rows.Scan(&c.ID, &c.BucketName, &c.ColumnName, &c.Body, &c.Flag, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		thread, ok := out[c.BucketName]
		if !ok {
			thread = &models.BucketComments{Comments: []*models.Comment{}}
			out[c.BucketName] = thread
		}
		thread.Comments = append(thread.Comments, c)
		thread.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return out, nil
}

func (r *commentRepository) CountsByBucket(ctx context.Context, sourceTable string, taskID int64) (map[string]int64, error) {
	query := `
		SELECT bucket_name, count(*)
		FROM review_comments
		WHERE source_table = $1 AND task_id = $2
		GROUP BY bucket_name`

	rows, err := r.db.Query(ctx, query, sourceTable, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comment counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var bucket string
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("failed to scan comment count: %w", err)
		}
		out[bucket] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comment counts: %w", err)
	}
	return out, nil
}

func (r *commentRepository) ListByColumn(ctx context.Context, sourceTable string, taskID int64) (map[string]map[string]*models.ColumnComments, error) {
	query := `
		SELECT id, bucket_name, column_name, body, flag, created_at
		FROM review_comments
		WHERE source_table = $1 AND task_id = $2 AND column_name IS NOT NULL
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, sourceTable, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query column comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]*models.ColumnComments)
	for rows.Next() {
		c := &models.Comment{SourceTable: sourceTable, TaskID: taskID}
		if err := rows.Scan(&c.ID, &c.BucketName, &c.ColumnName, &c.Body, &c.Flag, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		byColumn, ok := out[c.BucketName]
		if !ok {
			byColumn = make(map[string]*models.ColumnComments)
			out[c.BucketName] = byColumn
		}
		thread, ok := byColumn[*c.ColumnName]
		if !ok {
			thread = &models.ColumnComments{Comments: []*models.Comment{}}
			byColumn[*c.ColumnName] = thread
		}
		thread.Comments = append(thread.Comments, c)
		thread.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return out, nil
}
