package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
	"github.com/dataloom-io/review-engine/pkg/retry"
)

// AnalysisService computes null statistics for a scraped task and persists
// them as buckets.
type AnalysisService interface {
	// AnalyzeTask groups a task's data columns into buckets by shared null
	// count, computes each bucket's inter-dependency and pivot columns, and
	// stores the results. Returns the resulting bucket map.
	AnalyzeTask(ctx context.Context, sourceTable string, taskID int64) (*models.BucketMap, error)
}

type analysisService struct {
	records repositories.RecordRepository
	buckets repositories.BucketRepository
	logger  *zap.Logger
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(records repositories.RecordRepository, buckets repositories.BucketRepository, logger *zap.Logger) AnalysisService {
	return &analysisService{
		records: records,
		buckets: buckets,
		logger:  logger.Named("analysis-service"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) AnalyzeTask(ctx context.Context, sourceTable string, taskID int64) (*models.BucketMap, error) {
	columns, err := s.records.ColumnNames(ctx, sourceTable)
	if err != nil {
		return nil, err
	}
	total, err := s.records.TotalRows(ctx, sourceTable, taskID)
	if err != nil {
		return nil, err
	}
	nullCounts, err := s.records.NullCounts(ctx, sourceTable, taskID, columns)
	if err != nil {
		return nil, err
	}

	groups := groupByNullCount(columns, nullCounts)
	result := &models.BucketMap{
		TaskID:    taskID,
		TotalRows: total,
		Buckets:   make(map[string]*models.Bucket, len(groups)),
	}

	for i, group := range groups {
		name := fmt.Sprintf("bucket_%d", i+1)
		bucket, err := s.analyzeGroup(ctx, sourceTable, taskID, total, group, columns, nullCounts)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze %s: %w", name, err)
		}
		bucket.Name = name
		bucket.ShowFlag = true
		result.Buckets[name] = bucket
	}

	err = retry.Do(ctx, nil, func() error {
		if err := s.buckets.MarkAnalyzed(ctx, sourceTable, taskID, total); err != nil {
			return err
		}
		for name, bucket := range result.Buckets {
			if err := s.buckets.UpsertBucket(ctx, sourceTable, taskID, name, bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist analysis: %w", err)
	}

	s.logger.Info("Task analyzed",
		zap.String("source_table", sourceTable),
		zap.Int64("task_id", taskID),
		zap.Int64("total_rows", total),
		zap.Int("buckets", len(result.Buckets)))
	return result, nil
}

// analyzeGroup computes one bucket's statistics. group holds the member
// column names; allColumns and nullCounts cover the whole table and are used
// to pick pivot candidates.
func (s *analysisService) analyzeGroup(ctx context.Context, sourceTable string, taskID, total int64, group []string, allColumns []string, nullCounts map[string]int64) (*models.Bucket, error) {
	bucket := &models.Bucket{
		Columns: make(models.ColumnList, 0, len(group)),
	}
	for _, c := range group {
		bucket.Columns = append(bucket.Columns, models.Column{
			ColumnName:   c,
			NullCount:    nullCounts[c],
			NotNullCount: total - nullCounts[c],
		})
	}

	groupNulls := nullCounts[group[0]]
	switch {
	case groupNulls == 0:
		bucket.InterDependency = models.InterDependencyFull
		return bucket, nil
	case total > 0 && groupNulls == total:
		bucket.InterDependency = models.InterDependencyEmpty
		bucket.CommonNullCount = total
		return bucket, nil
	}

	common, uncommon, err := s.records.GroupNullStats(ctx, sourceTable, taskID, group)
	if err != nil {
		return nil, err
	}
	bucket.CommonNullCount = common
	bucket.UncommonNullCount = uncommon

	if denom := common + uncommon; denom == 0 {
		bucket.InterDependency = models.InterDependencyNaN
	} else {
		pct := float64(common) / float64(denom) * 100
		bucket.InterDependency = strconv.FormatFloat(pct, 'f', -1, 64)
	}

	if common > 0 {
		pivots, err := s.findPivots(ctx, sourceTable, taskID, group, allColumns, nullCounts)
		if err != nil {
			return nil, err
		}
		bucket.PivotColumns = pivots
	}
	return bucket, nil
}

// findPivots scans columns outside the group that themselves have nulls, and
// keeps those populated on every one of the group's all-null rows.
func (s *analysisService) findPivots(ctx context.Context, sourceTable string, taskID int64, group, allColumns []string, nullCounts map[string]int64) (models.StringList, error) {
	inGroup := make(map[string]bool, len(group))
	for _, c := range group {
		inGroup[c] = true
	}
	var candidates []string
	for _, c := range allColumns {
		if !inGroup[c] && nullCounts[c] > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	stats, err := s.records.PivotStats(ctx, sourceTable, taskID, group, candidates)
	if err != nil {
		return nil, err
	}

	var pivots models.StringList
	for _, c := range candidates {
		st := stats[c]
		if st.Inverse > 0 && st.Overlap == 0 {
			pivots = append(pivots, c)
		}
	}
	return pivots, nil
}

// groupByNullCount partitions columns into groups sharing an identical null
// count, ordered by ascending count then first column name so bucket numbers
// are stable for a given analysis run.
func groupByNullCount(columns []string, nullCounts map[string]int64) [][]string {
	byCount := make(map[int64][]string)
	for _, c := range columns {
		byCount[nullCounts[c]] = append(byCount[nullCounts[c]], c)
	}

	counts := make([]int64, 0, len(byCount))
	for n := range byCount {
		counts = append(counts, n)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] < counts[j] })

	groups := make([][]string, 0, len(counts))
	for _, n := range counts {
		group := byCount[n]
		sort.Strings(group)
		groups = append(groups, group)
	}
	return groups
}
