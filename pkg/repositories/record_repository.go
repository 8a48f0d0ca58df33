package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/database"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// Bookkeeping columns every scraped table carries. They are excluded from
// null analysis and bucket grouping.
var reservedColumns = map[string]bool{
	"id":            true,
	"task_id":       true,
	"link":          true,
	"created_date":  true,
	"modified_date": true,
}

// RecordRepository runs dynamic SQL against scraped source tables. Table and
// column names are validated and quoted before interpolation; every value
// travels as a bind parameter.
type RecordRepository interface {
	// ColumnNames lists the data columns of a source table in ordinal order,
	// excluding bookkeeping columns.
	ColumnNames(ctx context.Context, sourceTable string) ([]string, error)

	// TotalRows counts the rows a task contributed to a source table.
	TotalRows(ctx context.Context, sourceTable string, taskID int64) (int64, error)

	// NullCounts computes per-column null counts for a task in one pass.
	NullCounts(ctx context.Context, sourceTable string, taskID int64, columns []string) (map[string]int64, error)

	// GroupNullStats computes, for a set of columns, the number of rows where
	// all of them are null (common) and where some but not all are null
	// (uncommon).
	GroupNullStats(ctx context.Context, sourceTable string, taskID int64, columns []string) (common, uncommon int64, err error)

	// PivotStats computes, for each candidate column, how many of the
	// group's all-null rows have the candidate populated (Inverse) and how
	// many have it null as well (Overlap). A candidate with Inverse > 0 and
	// Overlap == 0 is inversely related to the group.
	PivotStats(ctx context.Context, sourceTable string, taskID int64, groupColumns, candidates []string) (map[string]PivotStat, error)

	// NullRecords pages through rows where at least one of the given columns
	// is null, newest first, with staleness precomputed in minutes.
	NullRecords(ctx context.Context, sourceTable string, taskID int64, columns []string, limit, offset int) (*models.NullRecordPage, error)

	// GetRecord fetches the full column→value map for one row.
	GetRecord(ctx context.Context, sourceTable string, taskID, recordID int64) (models.DBRecord, error)

	// SampleRows fetches up to limit rows where every given column is null,
	// for CSV sampling. Returns the header order and the rows.
	SampleRows(ctx context.Context, sourceTable string, taskID int64, columns []string, limit int) ([]string, []map[string]any, error)

	// ExportRows fetches every row of a source table in id order, including
	// bookkeeping columns, for full-table CSV export.
	ExportRows(ctx context.Context, sourceTable string) ([]string, []map[string]any, error)

	// TableNullCounts computes the total row count and per-column null
	// counts across the whole table, all tasks included.
	TableNullCounts(ctx context.Context, sourceTable string, columns []string) (int64, map[string]int64, error)
}

type recordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(db *database.DB) RecordRepository {
	return &recordRepository{db: db}
}

var _ RecordRepository = (*recordRepository)(nil)

func (r *recordRepository) ColumnNames(ctx context.Context, sourceTable string) ([]string, error) {
	if !sqlsafe.ValidIdent(sourceTable) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidIdent, sourceTable)
	}

	rows, err := r.db.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, sourceTable)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		if !reservedColumns[name] {
			columns = append(columns, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if columns == nil {
		return nil, fmt.Errorf("%w: table %q has no data columns", apperrors.ErrNotFound, sourceTable)
	}
	return columns, nil
}

func (r *recordRepository) TotalRows(ctx context.Context, sourceTable string, taskID int64) (int64, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return 0, err
	}

	var total int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE task_id = $1`, table)
	if err := r.db.QueryRow(ctx, query, taskID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

func (r *recordRepository) NullCounts(ctx context.Context, sourceTable string, taskID int64, columns []string) (map[string]int64, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, err
	}
	quoted, err := sqlsafe.QuoteIdents(columns)
	if err != nil {
		return nil, err
	}

	aggs := make([]string, 0, len(quoted))
	for _, q := range quoted {
		aggs = append(aggs, fmt.Sprintf("count(*) FILTER (WHERE %s IS NULL)", q))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE task_id = $1`,
		strings.Join(aggs, ", "), table)

	counts := make([]int64, len(columns))
	dests := make([]any, len(columns))
	for i := range counts {
		dests[i] = &counts[i]
	}
	if err := r.db.QueryRow(ctx, query, taskID).Scan(dests...); err != nil {
		return nil, fmt.Errorf("failed to compute null counts: %w", err)
	}

	out := make(map[string]int64, len(columns))
	for i, c := range columns {
		out[c] = counts[i]
	}
	return out, nil
}

func (r *recordRepository) GroupNullStats(ctx context.Context, sourceTable string, taskID int64, columns []string) (int64, int64, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return 0, 0, err
	}
	quoted, err := sqlsafe.QuoteIdents(columns)
	if err != nil {
		return 0, 0, err
	}

	allNull := make([]string, 0, len(quoted))
	anyNull := make([]string, 0, len(quoted))
	for _, q := range quoted {
		allNull = append(allNull, q+" IS NULL")
		anyNull = append(anyNull, q+" IS NULL")
	}
	all := strings.Join(allNull, " AND ")
	anyCond := strings.Join(anyNull, " OR ")

	query := fmt.Sprintf(`
		SELECT
			count(*) FILTER (WHERE %s),
			count(*) FILTER (WHERE (%s) AND NOT (%s))
		FROM %s WHERE task_id = $1`, all, anyCond, all, table)

	var common, uncommon int64
	if err := r.db.QueryRow(ctx, query, taskID).Scan(&common, &uncommon); err != nil {
		return 0, 0, fmt.Errorf("failed to compute group null stats: %w", err)
	}
	return common, uncommon, nil
}

// PivotStat counts a candidate column against a group's all-null rows.
type PivotStat struct {
	Inverse int64 // candidate populated while the group is all null
	Overlap int64 // candidate null alongside the group
}

func (r *recordRepository) PivotStats(ctx context.Context, sourceTable string, taskID int64, groupColumns, candidates []string) (map[string]PivotStat, error) {
	if len(candidates) == 0 {
		return map[string]PivotStat{}, nil
	}
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, err
	}
	groupQuoted, err := sqlsafe.QuoteIdents(groupColumns)
	if err != nil {
		return nil, err
	}
	candQuoted, err := sqlsafe.QuoteIdents(candidates)
	if err != nil {
		return nil, err
	}

	conds := make([]string, 0, len(groupQuoted))
	for _, q := range groupQuoted {
		conds = append(conds, q+" IS NULL")
	}
	allNull := strings.Join(conds, " AND ")

	aggs := make([]string, 0, 2*len(candQuoted))
	for _, q := range candQuoted {
		aggs = append(aggs,
			fmt.Sprintf("count(*) FILTER (WHERE %s IS NOT NULL AND %s)", q, allNull),
			fmt.Sprintf("count(*) FILTER (WHERE %s IS NULL AND %s)", q, allNull),
		)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE task_id = $1`,
		strings.Join(aggs, ", "), table)

	counts := make([]int64, 2*len(candidates))
	dests := make([]any, len(counts))
	for i := range counts {
		dests[i] = &counts[i]
	}
	if err := r.db.QueryRow(ctx, query, taskID).Scan(dests...); err != nil {
		return nil, fmt.Errorf("failed to compute pivot stats: %w", err)
	}

	out := make(map[string]PivotStat, len(candidates))
	for i, c := range candidates {
		out[c] = PivotStat{Inverse: counts[2*i], Overlap: counts[2*i+1]}
	}
	return out, nil
}

func (r *recordRepository) NullRecords(ctx context.Context, sourceTable string, taskID int64, columns []string, limit, offset int) (*models.NullRecordPage, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, err
	}
	quoted, err := sqlsafe.QuoteIdents(columns)
	if err != nil {
		return nil, err
	}

	conds := make([]string, 0, len(quoted))
	for _, q := range quoted {
		conds = append(conds, q+" IS NULL")
	}
	anyNull := strings.Join(conds, " OR ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE task_id = $1 AND (%s)`, table, anyNull)
	if err := r.db.QueryRow(ctx, countQuery, taskID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count null records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, coalesce(link, ''), created_date, modified_date,
		       floor(extract(epoch FROM (now() - coalesce(modified_date, created_date))) / 60)::bigint
		FROM %s
		WHERE task_id = $1 AND (%s)
		ORDER BY id
		LIMIT $2 OFFSET $3`, table, anyNull)

	rows, err := r.db.Query(ctx, query, taskID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query null records: %w", err)
	}
	defer rows.Close()

	page := &models.NullRecordPage{Items: []*models.NullRecord{}, TotalItems: total}
	for rows.Next() {
		rec := &models.NullRecord{}
		var dateDiff *int64
		if err := rows.Scan(&rec.ID, &rec.Link, &rec.CreatedDate, &rec.ModifiedDate, &dateDiff); err != nil {
			return nil, fmt.Errorf("failed to scan null record: %w", err)
		}
		if dateDiff != nil {
			rec.DateDiff = *dateDiff
		}
		page.Items = append(page.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read null records: %w", err)
	}
	return page, nil
}

func (r *recordRepository) GetRecord(ctx context.Context, sourceTable string, taskID, recordID int64) (models.DBRecord, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT * FROM %s WHERE task_id = $1 AND id = $2`, table)
	rows, err := r.db.Query(ctx, query, taskID, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		return nil, apperrors.ErrNotFound
	}

	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read record values: %w", err)
	}

	record := make(models.DBRecord, len(values))
	for i, fd := range rows.FieldDescriptions() {
		record[string(fd.Name)] = values[i]
	}
	return record, nil
}

func (r *recordRepository) SampleRows(ctx context.Context, sourceTable string, taskID int64, columns []string, limit int) ([]string, []map[string]any, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, nil, err
	}
	quoted, err := sqlsafe.QuoteIdents(columns)
	if err != nil {
		return nil, nil, err
	}

	conds := make([]string, 0, len(quoted))
	for _, q := range quoted {
		conds = append(conds, q+" IS NULL")
	}

	header := append([]string{"id", "link", "created_date", "modified_date"}, columns...)
	selectList, err := sqlsafe.JoinQuoted(header, ", ")
	if err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE task_id = $1 AND %s
		ORDER BY id
		LIMIT $2`, selectList, table, strings.Join(conds, " AND "))

	rows, err := r.db.Query(ctx, query, taskID, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query sample rows: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read sample values: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, h := range header {
			row[h] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read sample rows: %w", err)
	}
	return header, out, nil
}

func (r *recordRepository) ExportRows(ctx context.Context, sourceTable string) ([]string, []map[string]any, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY id`, table)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer rows.Close()

	var header []string
	var out []map[string]any
	for rows.Next() {
		if header == nil {
			for _, fd := range rows.FieldDescriptions() {
				header = append(header, string(fd.Name))
			}
		}
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read export values: %w", err)
		}
		row := make(map[string]any, len(header))
		for i, h := range header {
			row[h] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read export rows: %w", err)
	}
	return header, out, nil
}

func (r *recordRepository) TableNullCounts(ctx context.Context, sourceTable string, columns []string) (int64, map[string]int64, error) {
	table, err := sqlsafe.QuoteIdent(sourceTable)
	if err != nil {
		return 0, nil, err
	}
	quoted, err := sqlsafe.QuoteIdents(columns)
	if err != nil {
		return 0, nil, err
	}

	aggs := make([]string, 0, len(quoted)+1)
	aggs = append(aggs, "count(*)")
	for _, q := range quoted {
		aggs = append(aggs, fmt.Sprintf("count(*) FILTER (WHERE %s IS NULL)", q))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(aggs, ", "), table)

	counts := make([]int64, len(columns)+1)
	dests := make([]any, len(counts))
	for i := range counts {
		dests[i] = &counts[i]
	}
	if err := r.db.QueryRow(ctx, query).Scan(dests...); err != nil {
		return 0, nil, fmt.Errorf("failed to compute table null counts: %w", err)
	}

	out := make(map[string]int64, len(columns))
	for i, c := range columns {
		out[c] = counts[i+1]
	}
	return counts[0], out, nil
}
