package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/config"
	"github.com/dataloom-io/review-engine/pkg/models"
)

func recordTestConfig() *config.ReviewConfig {
	return &config.ReviewConfig{
		SampleRows:          100,
		PageSize:            7,
		CommentMaxLen:       150,
		CommentPollInterval: time.Second,
	}
}

func TestRecordService_NullRecordPage_Defaults(t *testing.T) {
	repo := &mockRecordRepo{nullPage: &models.NullRecordPage{TotalItems: 20}}
	svc := NewRecordService(repo, recordTestConfig(), zap.NewNop())

	page, err := svc.NullRecordPage(context.Background(), "products", 7, []string{"price"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)
	assert.Equal(t, 3, page.TotalPages)
}

func TestRecordService_NullRecordPage_ClampsPageNo(t *testing.T) {
	repo := &mockRecordRepo{nullPage: &models.NullRecordPage{}}
	svc := NewRecordService(repo, recordTestConfig(), zap.NewNop())

	_, err := svc.NullRecordPage(context.Background(), "products", 7, []string{"price"}, -3, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)

	_, err = svc.NullRecordPage(context.Background(), "products", 7, []string{"price"}, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, repo.lastOffset)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		per   int
		want  int
	}{
		{"exact multiple", 14, 7, 2},
		{"rounds up", 15, 7, 3},
		{"single short page", 3, 7, 1},
		{"zero total", 0, 7, 0},
		{"zero page size", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.total, tt.per))
		})
	}
}
