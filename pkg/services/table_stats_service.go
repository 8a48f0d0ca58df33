package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/csvutil"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/repositories"
)

// Export kinds accepted by ExportCSV.
const (
	ExportFull     = "full"
	ExportInsights = "insights"
)

// TableStatsService serves the row-count summary and full-table exports.
type TableStatsService interface {
	// RowCountSummary returns the registry entries for one data source.
	RowCountSummary(ctx context.Context, source string) ([]*models.TableRowCount, error)

	// RegisterTable creates or refreshes a registry entry, discovering the
	// table's columns and current row count.
	RegisterTable(ctx context.Context, tableName, source string) (*models.TableRowCount, error)

	// ExportCSV streams a table export: kind "full" is every row with every
	// column; kind "insights" is one row per data column with its null
	// statistics across the whole table.
	ExportCSV(ctx context.Context, w io.Writer, tableName, kind string) error
}

type tableStatsService struct {
	tables  repositories.SourceTableRepository
	records repositories.RecordRepository
	logger  *zap.Logger
}

// NewTableStatsService creates a new TableStatsService.
func NewTableStatsService(tables repositories.SourceTableRepository, records repositories.RecordRepository, logger *zap.Logger) TableStatsService {
	return &tableStatsService{
		tables:  tables,
		records: records,
		logger:  logger.Named("table-stats-service"),
	}
}

var _ TableStatsService = (*tableStatsService)(nil)

func (s *tableStatsService) RowCountSummary(ctx context.Context, source string) ([]*models.TableRowCount, error) {
	entries, err := s.tables.ListBySource(ctx, source)
	if err != nil {
		s.logger.Error("Failed to load row-count summary",
			zap.String("source", source),
			zap.Error(err))
		return nil, err
	}
	return entries, nil
}

func (s *tableStatsService) RegisterTable(ctx context.Context, tableName, source string) (*models.TableRowCount, error) {
	columns, err := s.records.ColumnNames(ctx, tableName)
	if err != nil {
		return nil, err
	}
	total, _, err := s.records.TableNullCounts(ctx, tableName, columns)
	if err != nil {
		return nil, err
	}

	// Registration counts as a sighting, so the staleness cards start from
	// now rather than treating the table as ancient.
	now := time.Now().UTC()
	entry := &models.TableRowCount{
		TableName:       tableName,
		Source:          source,
		RowCount:        total,
		ColumnsList:     columns,
		LastPresentTime: &now,
	}
	if err := s.tables.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("Source table registered",
		zap.String("table", tableName),
		zap.String("source", source),
		zap.Int64("row_count", total))
	return s.tables.Get(ctx, tableName)
}

func (s *tableStatsService) ExportCSV(ctx context.Context, w io.Writer, tableName, kind string) error {
	switch kind {
	case ExportFull:
		header, rows, err := s.records.ExportRows(ctx, tableName)
		if err != nil {
			return err
		}
		return csvutil.WriteRecords(w, header, rows)
	case ExportInsights:
		columns, err := s.records.ColumnNames(ctx, tableName)
		if err != nil {
			return err
		}
		total, nullCounts, err := s.records.TableNullCounts(ctx, tableName, columns)
		if err != nil {
			return err
		}
		header := []string{"column_name", "null_count", "not_null_count", "null_percentage"}
		rows := make([]map[string]any, 0, len(columns))
		for _, c := range columns {
			row := map[string]any{
				"column_name":    c,
				"null_count":     nullCounts[c],
				"not_null_count": total - nullCounts[c],
			}
			if total > 0 {
				pct := float64(nullCounts[c]) / float64(total) * 100
				row["null_percentage"] = strconv.FormatFloat(pct, 'f', 2, 64)
			} else {
				row["null_percentage"] = models.InterDependencyNaN
			}
			rows = append(rows, row)
		}
		return csvutil.WriteRecords(w, header, rows)
	default:
		return fmt.Errorf("unknown export kind %q", kind)
	}
}
