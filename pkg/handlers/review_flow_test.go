package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/client"
	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
	"github.com/dataloom-io/review-engine/pkg/services"
)

// flowBucketRepo keeps buckets in memory so the workflow test can observe a
// soft delete on refetch.
type flowBucketRepo struct {
	buckets    map[string]*models.Bucket
	totalRows  int64
	analyzedAt *time.Time
}

func (f *flowBucketRepo) GetBuckets(context.Context, string, int64) (map[string]*models.Bucket, error) {
	return f.buckets, nil
}

func (f *flowBucketRepo) UpsertBucket(_ context.Context, _ string, _ int64, name string, bucket *models.Bucket) error {
	f.buckets[name] = bucket
	return nil
}

func (f *flowBucketRepo) HideBucket(_ context.Context, _ string, _ int64, name string) error {
	b, ok := f.buckets[name]
	if !ok {
		return apperrors.ErrNotFound
	}
	b.ShowFlag = false
	return nil
}

func (f *flowBucketRepo) GetTask(context.Context, string, int64) (int64, *time.Time, error) {
	if f.analyzedAt == nil {
		return 0, nil, apperrors.ErrTaskNotAnalyzed
	}
	return f.totalRows, f.analyzedAt, nil
}

func (f *flowBucketRepo) MarkAnalyzed(_ context.Context, _ string, _ int64, totalRows int64) error {
	f.totalRows = totalRows
	return nil
}

var _ repositories.BucketRepository = (*flowBucketRepo)(nil)

// flowRecordRepo serves a fixed null-record page and record detail while
// capturing the columns the browser was scoped to.
type flowRecordRepo struct {
	page        *models.NullRecordPage
	record      models.DBRecord
	lastColumns []string
}

func (f *flowRecordRepo) ColumnNames(context.Context, string) ([]string, error) { return nil, nil }

func (f *flowRecordRepo) TotalRows(context.Context, string, int64) (int64, error) { return 0, nil }

func (f *flowRecordRepo) NullCounts(context.Context, string, int64, []string) (map[string]int64, error) {
	return nil, nil
}

func (f *flowRecordRepo) GroupNullStats(context.Context, string, int64, []string) (int64, int64, error) {
	return 0, 0, nil
}

func (f *flowRecordRepo) PivotStats(context.Context, string, int64, []string, []string) (map[string]repositories.PivotStat, error) {
	return nil, nil
}

func (f *flowRecordRepo) NullRecords(_ context.Context, _ string, _ int64, columns []string, _, _ int) (*models.NullRecordPage, error) {
	f.lastColumns = columns
	return f.page, nil
}

func (f *flowRecordRepo) GetRecord(context.Context, string, int64, int64) (models.DBRecord, error) {
	return f.record, nil
}

func (f *flowRecordRepo) SampleRows(context.Context, string, int64, []string, int) ([]string, []map[string]any, error) {
	return nil, nil, nil
}

func (f *flowRecordRepo) ExportRows(context.Context, string) ([]string, []map[string]any, error) {
	return nil, nil, nil
}

func (f *flowRecordRepo) TableNullCounts(context.Context, string, []string) (int64, map[string]int64, error) {
	return 0, nil, nil
}

var _ repositories.RecordRepository = (*flowRecordRepo)(nil)

type flowCommentRepo struct {
	comments []*models.Comment
}

func (f *flowCommentRepo) Insert(_ context.Context, c *models.Comment) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.comments = append(f.comments, c)
	return nil
}

func (f *flowCommentRepo) ListByBucket(context.Context, string, int64) (map[string]*models.BucketComments, error) {
	out := make(map[string]*models.BucketComments)
	for _, c := range f.comments {
		thread, ok := out[c.BucketName]
		if !ok {
			thread = &models.BucketComments{}
			out[c.BucketName] = thread
		}
		thread.Comments = append(thread.Comments, c)
		thread.Count++
	}
	return out, nil
}

func (f *flowCommentRepo) ListByColumn(context.Context, string, int64) (map[string]map[string]*models.ColumnComments, error) {
	return map[string]map[string]*models.ColumnComments{}, nil
}

func (f *flowCommentRepo) CountsByBucket(context.Context, string, int64) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, c := range f.comments {
		out[c.BucketName]++
	}
	return out, nil
}

var _ repositories.CommentRepository = (*flowCommentRepo)(nil)

// TestReviewWorkflow_EndToEnd drives a full review pass through the real
// handler and service stack: task gate, bucket overview with one hidden
// bucket, drill-down into the visible bucket's column, the scoped null-record
// browser, record inspection, a comment, and the soft delete.
func TestReviewWorkflow_EndToEnd(t *testing.T) {
	analyzedAt := time.Now()
	bucketRepo := &flowBucketRepo{
		totalRows:  40,
		analyzedAt: &analyzedAt,
		buckets: map[string]*models.Bucket{
			"bucket_1": {
				Name:            "bucket_1",
				Columns:         models.ColumnList{{ColumnName: "city", NullCount: 5, NotNullCount: 35}},
				InterDependency: models.InterDependencyFull,
				CommonNullCount: 2,
				ShowFlag:        true,
			},
			"bucket_2": {
				Name:            "bucket_2",
				Columns:         models.ColumnList{{ColumnName: "state", NullCount: 12, NotNullCount: 28}},
				InterDependency: "25.5",
				ShowFlag:        false,
			},
		},
	}
	recordRepo := &flowRecordRepo{
		page: &models.NullRecordPage{
			Items:      []*models.NullRecord{{ID: 11, Link: "http://example.com/11", DateDiff: 90}},
			TotalItems: 5,
		},
		record: models.DBRecord{"id": int64(11), "city": nil, "title": "first"},
	}

	cfg := &config.ReviewConfig{
		SampleRows:          100,
		PageSize:            7,
		CommentMaxLen:       150,
		CommentPollInterval: time.Second,
	}
	logger := zap.NewNop()
	bucketService := services.NewBucketService(bucketRepo, recordRepo, cfg, logger)
	analysisService := services.NewAnalysisService(recordRepo, bucketRepo, logger)
	recordService := services.NewRecordService(recordRepo, cfg, logger)
	commentService := services.NewCommentService(&flowCommentRepo{}, nil, cfg, logger)

	mux := http.NewServeMux()
	report := NewReportHandler(bucketService, analysisService, recordService, logger)
	report.RegisterRoutes(mux)
	RegisterTaskOpRoutes(mux, report, NewCommentHandler(commentService, logger))

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	session := client.NewSession(client.NewClient(srv.URL, ""), "products", 7, 150)

	// Nothing leaves the session until a task is chosen.
	_, err := session.BucketMap(ctx)
	assert.ErrorIs(t, err, client.ErrNoTask)

	require.NoError(t, session.SetTask("1028"))

	overview, err := session.BucketMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), overview.TotalRows)
	// The hidden bucket travels on the wire but never renders.
	require.Len(t, overview.Buckets, 2)
	assert.Equal(t, []string{"bucket_1"}, overview.VisibleBuckets())

	visible := overview.Buckets["bucket_1"]
	assert.Equal(t, models.InterDependencyFull, visible.InterDependency)
	require.Len(t, visible.Columns, 1)
	assert.Equal(t, "city", visible.Columns[0].ColumnName)
	assert.Equal(t, int64(5), visible.Columns[0].NullCount)

	// Drill down scopes the null-record browser to the bucket's columns.
	session.SelectBucket("bucket_1", visible.Columns.Names())
	page, err := session.NullRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, recordRepo.lastColumns)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, 1, session.TotalPages())

	record, err := session.Record(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 11, record["id"])
	assert.Nil(t, record["city"])

	msg, err := session.PostComment(ctx, "", "city is missing for several rows")
	require.NoError(t, err)
	assert.NotContains(t, msg, "truncated")

	threads, err := session.BucketComments(ctx)
	require.NoError(t, err)
	require.Contains(t, threads, "bucket_1")
	assert.Equal(t, 1, threads["bucket_1"].Count)

	// Soft delete: the bucket stays stored with its flag off.
	require.NoError(t, session.HideBucket(ctx, "bucket_1"))
	overview, err = session.BucketMap(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Buckets, 2)
	assert.Empty(t, overview.VisibleBuckets())
}
