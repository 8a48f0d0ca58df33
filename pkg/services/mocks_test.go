package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
)

// mockRecordRepo implements repositories.RecordRepository for testing.
type mockRecordRepo struct {
	columns    []string
	totalRows  int64
	nullCounts map[string]int64

	// groupStats is keyed by the comma-joined group columns.
	groupStats map[string][2]int64
	pivotStats map[string]repositories.PivotStat

	nullPage *models.NullRecordPage
	record   models.DBRecord

	sampleHeader []string
	sampleRows   []map[string]any

	tableTotal int64

	err error

	lastLimit  int
	lastOffset int
}

func (m *mockRecordRepo) ColumnNames(context.Context, string) ([]string, error) {
	return m.columns, m.err
}

func (m *mockRecordRepo) TotalRows(context.Context, string, int64) (int64, error) {
	return m.totalRows, m.err
}

func (m *mockRecordRepo) NullCounts(context.Context, string, int64, []string) (map[string]int64, error) {
	return m.nullCounts, m.err
}

func (m *mockRecordRepo) GroupNullStats(_ context.Context, _ string, _ int64, columns []string) (int64, int64, error) {
	stats := m.groupStats[strings.Join(columns, ",")]
	return stats[0], stats[1], m.err
}

func (m *mockRecordRepo) PivotStats(_ context.Context, _ string, _ int64, _, candidates []string) (map[string]repositories.PivotStat, error) {
	out := make(map[string]repositories.PivotStat, len(candidates))
	for _, c := range candidates {
		out[c] = m.pivotStats[c]
	}
	return out, m.err
}

func (m *mockRecordRepo) NullRecords(_ context.Context, _ string, _ int64, _ []string, limit, offset int) (*models.NullRecordPage, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.nullPage, m.err
}

func (m *mockRecordRepo) GetRecord(context.Context, string, int64, int64) (models.DBRecord, error) {
	return m.record, m.err
}

func (m *mockRecordRepo) SampleRows(_ context.Context, _ string, _ int64, _ []string, limit int) ([]string, []map[string]any, error) {
	m.lastLimit = limit
	return m.sampleHeader, m.sampleRows, m.err
}

func (m *mockRecordRepo) ExportRows(context.Context, string) ([]string, []map[string]any, error) {
	return m.sampleHeader, m.sampleRows, m.err
}

func (m *mockRecordRepo) TableNullCounts(context.Context, string, []string) (int64, map[string]int64, error) {
	return m.tableTotal, m.nullCounts, m.err
}

var _ repositories.RecordRepository = (*mockRecordRepo)(nil)

// mockBucketRepo implements repositories.BucketRepository for testing.
type mockBucketRepo struct {
	buckets    map[string]*models.Bucket
	totalRows  int64
	analyzedAt *time.Time
	taskErr    error
	err        error

	hidden []string
	marked bool
}

func (m *mockBucketRepo) GetBuckets(context.Context, string, int64) (map[string]*models.Bucket, error) {
	return m.buckets, m.err
}

func (m *mockBucketRepo) UpsertBucket(_ context.Context, _ string, _ int64, name string, bucket *models.Bucket) error {
	if m.err != nil {
		return m.err
	}
	if m.buckets == nil {
		m.buckets = make(map[string]*models.Bucket)
	}
	bucket.ID = uuid.New()
	bucket.CreatedAt = time.Now()
	m.buckets[name] = bucket
	return nil
}

func (m *mockBucketRepo) HideBucket(_ context.Context, _ string, _ int64, name string) error {
	if m.err != nil {
		return m.err
	}
	m.hidden = append(m.hidden, name)
	return nil
}

func (m *mockBucketRepo) GetTask(context.Context, string, int64) (int64, *time.Time, error) {
	return m.totalRows, m.analyzedAt, m.taskErr
}

func (m *mockBucketRepo) MarkAnalyzed(_ context.Context, _ string, _ int64, totalRows int64) error {
	if m.err != nil {
		return m.err
	}
	m.marked = true
	m.totalRows = totalRows
	return nil
}

var _ repositories.BucketRepository = (*mockBucketRepo)(nil)

// mockCommentRepo implements repositories.CommentRepository for testing.
type mockCommentRepo struct {
	comments  []*models.Comment
	insertErr error
	err       error
	counts    map[string]int64
	countHits int
}

func (m *mockCommentRepo) Insert(_ context.Context, comment *models.Comment) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	comment.ID = uuid.New()
	comment.CreatedAt = time.Now()
	m.comments = append(m.comments, comment)
	return nil
}

func (m *mockCommentRepo) ListByBucket(context.Context, string, int64) (map[string]*models.BucketComments, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*models.BucketComments)
	for _, c := range m.comments {
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

func (m *mockCommentRepo) ListByColumn(context.Context, string, int64) (map[string]map[string]*models.ColumnComments, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]map[string]*models.ColumnComments)
	for _, c := range m.comments {
		if c.ColumnName == nil {
			continue
		}
		byColumn, ok := out[c.BucketName]
		if !ok {
			byColumn = make(map[string]*models.ColumnComments)
			out[c.BucketName] = byColumn
		}
		thread, ok := byColumn[*c.ColumnName]
		if !ok {
			thread = &models.ColumnComments{}
			byColumn[*c.ColumnName] = thread
		}
		thread.Comments = append(thread.Comments, c)
		thread.Count++
	}
	return out, nil
}

func (m *mockCommentRepo) CountsByBucket(context.Context, string, int64) (map[string]int64, error) {
	m.countHits++
	if m.err != nil {
		return nil, m.err
	}
	if m.counts != nil {
		return m.counts, nil
	}
	out := make(map[string]int64)
	for _, c := range m.comments {
		out[c.BucketName]++
	}
	return out, nil
}

var _ repositories.CommentRepository = (*mockCommentRepo)(nil)

// mockSourceTableRepo implements repositories.SourceTableRepository for
// testing.
type mockSourceTableRepo struct {
	entries []*models.TableRowCount
	err     error
}

func (m *mockSourceTableRepo) ListBySource(_ context.Context, source string) ([]*models.TableRowCount, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.TableRowCount
	for _, e := range m.entries {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockSourceTableRepo) Upsert(_ context.Context, entry *models.TableRowCount) error {
	if m.err != nil {
		return m.err
	}
	for i, e := range m.entries {
		if e.TableName == entry.TableName {
			m.entries[i] = entry
			return nil
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockSourceTableRepo) Get(_ context.Context, tableName string) (*models.TableRowCount, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.entries {
		if e.TableName == tableName {
			return e, nil
		}
	}
	return nil, m.err
}

var _ repositories.SourceTableRepository = (*mockSourceTableRepo)(nil)
