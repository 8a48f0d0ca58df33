package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// CommentService manages review comments and their count badges.
type CommentService interface {
	// Post validates and stores a comment. A blank body (after trimming)
	// fails with apperrors.ErrEmptyComment. A body over the configured
	// maximum is stored truncated and Post returns
	// apperrors.ErrCommentTruncated so callers can warn the author; the
	// comment is persisted in that case.
	Post(ctx context.Context, comment *models.Comment) error

	// BucketComments returns every bucket's comment thread for a task in one
	// batch, keyed by bucket name.
	BucketComments(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.BucketComments, error)

	// ColumnComments returns column-scoped threads for a task, keyed by
	// bucket then column name.
	ColumnComments(ctx context.Context, sourceTable string, taskID int64) (map[string]map[string]*models.ColumnComments, error)

	// CommentCounts returns per-bucket comment totals, cached for the poll
	// interval when Redis is configured.
	CommentCounts(ctx context.Context, sourceTable string, taskID int64) (map[string]int64, error)
}

type commentService struct {
	repo   repositories.CommentRepository
	cache  *redis.Client // nil when caching is disabled
	cfg    *config.ReviewConfig
	logger *zap.Logger
}

// NewCommentService creates a new CommentService. cache may be nil.
func NewCommentService(repo repositories.CommentRepository, cache *redis.Client, cfg *config.ReviewConfig, logger *zap.Logger) CommentService {
	return &commentService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger.Named("comment-service"),
	}
}

var _ CommentService = (*commentService)(nil)

func (s *commentService) Post(ctx context.Context, comment *models.Comment) error {
	body := strings.TrimSpace(comment.Body)
	if body == "" {
		return apperrors.ErrEmptyComment
	}
	if err := sqlsafe.CheckText(body); err != nil {
		return err
	}

	// The limit is in characters, not bytes; slicing bytes could split a
	// multibyte rune and hand PostgreSQL invalid UTF-8.
	truncated := false
	if runes := []rune(body); len(runes) > s.cfg.CommentMaxLen {
		body = string(runes[:s.cfg.CommentMaxLen])
		truncated = true
	}
	comment.Body = body

	if err := s.repo.Insert(ctx, comment); err != nil {
		s.logger.Error("Failed to insert comment",
			zap.String("source_table", comment.SourceTable),
			zap.Int64("task_id", comment.TaskID),
			zap.String("bucket", comment.BucketName),
			zap.Error(err))
		return err
	}

	s.invalidateCounts(ctx, comment.SourceTable, comment.TaskID)

	if truncated {
		return apperrors.ErrCommentTruncated
	}
	return nil
}

func (s *commentService) BucketComments(ctx context.Context, sourceTable string, taskID int64) (map[string]*models.BucketComments, error) {
	return s.repo.ListByBucket(ctx, sourceTable, taskID)
}

func (s *commentService) ColumnComments(ctx context.Context, sourceTable string, taskID int64) (map[string]map[string]*models.ColumnComments, error) {
	return s.repo.ListByColumn(ctx, sourceTable, taskID)
}

func (s *commentService) CommentCounts(ctx context.Context, sourceTable string, taskID int64) (map[string]int64, error) {
	key := countsKey(sourceTable, taskID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			counts := make(map[string]int64)
			if err := json.Unmarshal(cached, &counts); err == nil {
				return counts, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("Comment count cache read failed", zap.Error(err))
		}
	}

	counts, err := s.repo.CountsByBucket(ctx, sourceTable, taskID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cfg.CommentPollInterval).Err(); err != nil {
				s.logger.Warn("Comment count cache write failed", zap.Error(err))
			}
		}
	}
	return counts, nil
}

func (s *commentService) invalidateCounts(ctx context.Context, sourceTable string, taskID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, countsKey(sourceTable, taskID)).Err(); err != nil {
		s.logger.Warn("Comment count cache invalidation failed", zap.Error(err))
	}
}

func countsKey(sourceTable string, taskID int64) string {
	return fmt.Sprintf("review:comment-counts:%s:%d", sourceTable, taskID)
}
