package models

import "time"

// Data source kinds for the row-count summary.
const (
	SourcePlugin     = "plugin"
	SourceThirdParty = "thirdparty"
	SourceAmazon     = "amazon"
)

// TableRowCount is one registry entry of the row-count summary for a data
// source (plugin / third-party tables).
type TableRowCount struct {
	TableName       string     `json:"table_name"`
	Source          string     `json:"-"`
	RowCount        int64      `json:"row_count"`
	ColumnsList     StringList `json:"columns_list"`
	LastPresentTime *time.Time `json:"last_present_time"`
}
