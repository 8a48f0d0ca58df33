package models

import "time"

// NullRecord is one row of a scraped table where at least one of the
// selected columns is null. DateDiff is the row's staleness in whole
// minutes, computed server-side from modified_date (or created_date when
// the row was never modified).
type NullRecord struct {
	ID           int64      `json:"id"`
	Link         string     `json:"link"`
	CreatedDate  *time.Time `json:"created_date"`
	ModifiedDate *time.Time `json:"modified_date"`
	DateDiff     int64      `json:"date_diff"`
}

// NullRecordPage is one page of null records plus the totals driving the
// pager. TotalPages is derived server-side from the effective page size.
type NullRecordPage struct {
	Items      []*NullRecord `json:"items"`
	TotalItems int64         `json:"total_items"`
	TotalPages int           `json:"total_pages"`
}

// DBRecord is the full column→value map for a single row, fetched on demand
// when a reviewer inspects a null record.
type DBRecord map[string]any
