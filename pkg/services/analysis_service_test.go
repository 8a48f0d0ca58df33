package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
)

func TestAnalysisService_AnalyzeTask_GroupsByNullCount(t *testing.T) {
	// 100 rows: price and currency share 40 nulls, title has none,
	// description has all 100.
	records := &mockRecordRepo{
		columns:   []string{"title", "price", "currency", "description"},
		totalRows: 100,
		nullCounts: map[string]int64{
			"title":       0,
			"price":       40,
			"currency":    40,
			"description": 100,
		},
		groupStats: map[string][2]int64{
			"currency,price": {30, 10},
		},
	}
	buckets := &mockBucketRepo{}
	svc := NewAnalysisService(records, buckets, zap.NewNop())

	result, err := svc.AnalyzeTask(context.Background(), "products", 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.TaskID)
	assert.Equal(t, int64(100), result.TotalRows)
	require.Len(t, result.Buckets, 3)
	assert.True(t, buckets.marked)

	// Groups are numbered by ascending null count.
	full := result.Buckets["bucket_1"]
	require.NotNil(t, full)
	assert.Equal(t, models.InterDependencyFull, full.InterDependency)
	assert.Equal(t, []string{"title"}, full.Columns.Names())

	pair := result.Buckets["bucket_2"]
	require.NotNil(t, pair)
	assert.Equal(t, []string{"currency", "price"}, pair.Columns.Names())
	assert.Equal(t, int64(30), pair.CommonNullCount)
	assert.Equal(t, int64(10), pair.UncommonNullCount)
	assert.Equal(t, "75", pair.InterDependency)
	assert.True(t, pair.ShowFlag)

	empty := result.Buckets["bucket_3"]
	require.NotNil(t, empty)
	assert.Equal(t, models.InterDependencyEmpty, empty.InterDependency)
	assert.Equal(t, int64(100), empty.CommonNullCount)
}

func TestAnalysisService_AnalyzeTask_NaNWhenNoOverlapData(t *testing.T) {
	records := &mockRecordRepo{
		columns:    []string{"a", "b"},
		totalRows:  50,
		nullCounts: map[string]int64{"a": 10, "b": 10},
		// No entry in groupStats: common and uncommon both zero.
	}
	svc := NewAnalysisService(records, &mockBucketRepo{}, zap.NewNop())

	result, err := svc.AnalyzeTask(context.Background(), "products", 1)
	require.NoError(t, err)
	require.Len(t, result.Buckets, 1)
	assert.Equal(t, models.InterDependencyNaN, result.Buckets["bucket_1"].InterDependency)
}

func TestAnalysisService_AnalyzeTask_PivotSelection(t *testing.T) {
	// rental_price is populated on every row where the sale group is null,
	// and never null alongside it. listing_notes overlaps the group's null
	// rows, so it does not qualify.
	records := &mockRecordRepo{
		columns:   []string{"sale_price", "sale_date", "rental_price", "listing_notes"},
		totalRows: 80,
		nullCounts: map[string]int64{
			"sale_price":    30,
			"sale_date":     30,
			"rental_price":  50,
			"listing_notes": 12,
		},
		groupStats: map[string][2]int64{
			"sale_date,sale_price": {30, 0},
		},
		pivotStats: map[string]repositories.PivotStat{
			"rental_price":  {Inverse: 30, Overlap: 0},
			"listing_notes": {Inverse: 25, Overlap: 5},
		},
	}
	svc := NewAnalysisService(records, &mockBucketRepo{}, zap.NewNop())

	result, err := svc.AnalyzeTask(context.Background(), "listings", 3)
	require.NoError(t, err)

	var saleBucket *models.Bucket
	for _, b := range result.Buckets {
		if b.Columns.Names()[0] == "sale_date" {
			saleBucket = b
		}
	}
	require.NotNil(t, saleBucket)
	assert.Equal(t, models.StringList{"rental_price"}, saleBucket.PivotColumns)
	assert.Equal(t, "100", saleBucket.InterDependency)
}

func TestAnalysisService_AnalyzeTask_DependencyTruncatesOnRender(t *testing.T) {
	// 1/3 of overlapping rows are common: 33.33...% must render truncated,
	// not rounded.
	records := &mockRecordRepo{
		columns:    []string{"a", "b"},
		totalRows:  90,
		nullCounts: map[string]int64{"a": 30, "b": 30},
		groupStats: map[string][2]int64{
			"a,b": {10, 20},
		},
	}
	svc := NewAnalysisService(records, &mockBucketRepo{}, zap.NewNop())

	result, err := svc.AnalyzeTask(context.Background(), "products", 1)
	require.NoError(t, err)

	dep := result.Buckets["bucket_1"].InterDependency
	assert.Equal(t, "33.33%", models.FormatInterDependency(dep))
}
