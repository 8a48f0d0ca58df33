package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/models"
)

// mockCommentService implements services.CommentService for handler testing.
type mockCommentService struct {
	byBucket map[string]*models.BucketComments
	byColumn map[string]map[string]*models.ColumnComments
	counts   map[string]int64
	postErr  error

	posted []*models.Comment
}

func (m *mockCommentService) Post(_ context.Context, comment *models.Comment) error {
	if m.postErr != nil && m.postErr != apperrors.ErrCommentTruncated {
		return m.postErr
	}
	comment.CreatedAt = time.Now()
	m.posted = append(m.posted, comment)
	return m.postErr
}

func (m *mockCommentService) BucketComments(context.Context, string, int64) (map[string]*models.BucketComments, error) {
	return m.byBucket, nil
}

func (m *mockCommentService) ColumnComments(context.Context, string, int64) (map[string]map[string]*models.ColumnComments, error) {
	return m.byColumn, nil
}

func (m *mockCommentService) CommentCounts(context.Context, string, int64) (map[string]int64, error) {
	return m.counts, nil
}

func newCommentMux(svc *mockCommentService) *http.ServeMux {
	mux := http.NewServeMux()
	reports := NewReportHandler(&mockBucketService{}, &mockAnalysisService{}, &mockRecordService{}, zap.NewNop())
	reports.RegisterRoutes(mux)
	RegisterTaskOpRoutes(mux, reports, NewCommentHandler(svc, zap.NewNop()))
	return mux
}

func TestCommentHandler_GetBucketComments_WireShape(t *testing.T) {
	created := time.Date(2026, 8, 14, 10, 30, 0, 0, time.UTC)
	svc := &mockCommentService{
		byBucket: map[string]*models.BucketComments{
			"bucket_1": {
				Count: 1,
				Comments: []*models.Comment{
					{Body: "price missing", CreatedAt: created},
				},
			},
		},
	}
	mux := newCommentMux(svc)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/products/7/bucket-comments/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	thread := resp["bucket_1"].(map[string]any)
	assert.Equal(t, float64(1), thread["bucket_comment_count"])
	comments := thread["bucket_comments"].([]any)
	require.Len(t, comments, 1)
	first := comments[0].(map[string]any)
	assert.Equal(t, "price missing", first["text"])
	assert.Contains(t, first, "time-stamp")
}

func TestCommentHandler_GetColumnComments_Nested(t *testing.T) {
	svc := &mockCommentService{
		byColumn: map[string]map[string]*models.ColumnComments{
			"bucket_1": {
				"price": {Count: 2, Comments: []*models.Comment{{Body: "a"}, {Body: "b"}}},
			},
		},
	}
	mux := newCommentMux(svc)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/products/7/column-comments/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]map[string]map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, float64(2), resp["bucket_1"]["price"]["column_comment_count"])
}

func TestCommentHandler_PostComment(t *testing.T) {
	svc := &mockCommentService{}
	mux := newCommentMux(svc)

	body := bytes.NewBufferString(`{"comments": "looks like a scraper bug"}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/products/7/comment/?bucket_name=bucket_2&column_name=price", body))
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, svc.posted, 1)
	posted := svc.posted[0]
	assert.Equal(t, "products", posted.SourceTable)
	assert.Equal(t, int64(7), posted.TaskID)
	assert.Equal(t, "bucket_2", posted.BucketName)
	require.NotNil(t, posted.ColumnName)
	assert.Equal(t, "price", *posted.ColumnName)
	assert.Equal(t, "looks like a scraper bug", posted.Body)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestCommentHandler_PostComment_Truncated(t *testing.T) {
	svc := &mockCommentService{postErr: apperrors.ErrCommentTruncated}
	mux := newCommentMux(svc)

	body := bytes.NewBufferString(`{"comments": "very long"}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/products/7/comment/?bucket_name=bucket_2", body))

	// Truncation still stores the comment; the response warns instead of
	// failing.
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "truncated")
}

func TestCommentHandler_PostComment_Empty(t *testing.T) {
	svc := &mockCommentService{postErr: apperrors.ErrEmptyComment}
	mux := newCommentMux(svc)

	body := bytes.NewBufferString(`{"comments": "   "}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/products/7/comment/?bucket_name=bucket_2", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCommentHandler_PostComment_MissingBucket(t *testing.T) {
	mux := newCommentMux(&mockCommentService{})

	body := bytes.NewBufferString(`{"comments": "text"}`)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("POST", "/products/7/comment/", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCommentHandler_GetCommentCounts(t *testing.T) {
	svc := &mockCommentService{counts: map[string]int64{"bucket_1": 3}}
	mux := newCommentMux(svc)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/products/7/comment-counts/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]int64
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp["bucket_1"])
}

func TestTaskOpRoutes_UnknownOp(t *testing.T) {
	mux := newCommentMux(&mockCommentService{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest("GET", "/products/7/unknown-op/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
