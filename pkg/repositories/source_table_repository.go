package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/database"
	"github.com/dataloom-io/review-engine/pkg/models"
)

// SourceTableRepository provides data access for the scraped-table registry
// backing the row-count summary and full-table exports.
type SourceTableRepository interface {
	// ListBySource returns registry entries for one data source, ordered by
	// table name.
	ListBySource(ctx context.Context, source string) ([]*models.TableRowCount, error)

	// Upsert creates or refreshes a registry entry.
	Upsert(ctx context.Context, entry *models.TableRowCount) error

	// Get fetches one registry entry by table name.
	Get(ctx context.Context, tableName string) (*models.TableRowCount, error)
}

type sourceTableRepository struct {
	db *database.DB
}

// NewSourceTableRepository creates a new SourceTableRepository.
func NewSourceTableRepository(db *database.DB) SourceTableRepository {
	return &sourceTableRepository{db: db}
}

var _ SourceTableRepository = (*sourceTableRepository)(nil)

func (r *sourceTableRepository) ListBySource(ctx context.Context, source string) ([]*models.TableRowCount, error) {
	query := `
		SELECT table_name, source, row_count, columns_list, last_present_time
		FROM review_source_tables
		WHERE source = $1
		ORDER BY table_name`

	rows, err := r.db.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query source tables: %w", err)
	}
	defer rows.Close()

	var entries []*models.TableRowCount
	for rows.Next() {
		e := &models.TableRowCount{}
		if err := rows.Scan(&e.TableName, &e.Source, &e.RowCount, &e.ColumnsList, &e.LastPresentTime); err != nil {
			return nil, fmt.Errorf("failed to scan source table: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source tables: %w", err)
	}
	return entries, nil
}

func (r *sourceTableRepository) Upsert(ctx context.Context, entry *models.TableRowCount) error {
	columnsValue, err := entry.ColumnsList.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal columns list: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO review_source_tables (
			table_name, source, row_count, columns_list, last_present_time
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (table_name)
		DO UPDATE SET
			source = EXCLUDED.source,
			row_count = EXCLUDED.row_count,
			columns_list = EXCLUDED.columns_list,
			last_present_time = EXCLUDED.last_present_time`,
		entry.TableName, entry.Source, entry.RowCount, columnsValue, entry.LastPresentTime)
	if err != nil {
		return fmt.Errorf("failed to upsert source table: %w", err)
	}
	return nil
}

func (r *sourceTableRepository) Get(ctx context.Context, tableName string) (*models.TableRowCount, error) {
	e := &models.TableRowCount{}
	err := r.db.QueryRow(ctx, `
		SELECT table_name, source, row_count, columns_list, last_present_time
		FROM review_source_tables
		WHERE table_name = $1`, tableName).
		Scan(&e.TableName, &e.Source, &e.RowCount, &e.ColumnsList, &e.LastPresentTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %q not registered", apperrors.ErrNotFound, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source table: %w", err)
	}
	return e, nil
}
