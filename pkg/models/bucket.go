package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel values for Column_Inter_Dependency. Anything else is a numeric
// percentage carried as a string (e.g. "12.3456").
const (
	InterDependencyFull  = "Full"  // every column fully populated
	InterDependencyEmpty = "Empty" // every row null across the bucket
	InterDependencyNaN   = "NaN"   // no correlation computable
)

// Column is one column of a bucket with its null statistics for a task.
// null_count + not_null_count equals the task's total row count.
type Column struct {
	ColumnName   string `json:"column_name"`
	NullCount    int64  `json:"null_count"`
	NotNullCount int64  `json:"not_null_count"`
}

// Bucket groups columns of a (table, task) pair that tend to be null
// together. JSON tags match the dashboard wire contract.
type Bucket struct {
	ID                uuid.UUID  `json:"-"`
	Name              string     `json:"-"`
	Columns           ColumnList `json:"columns"`
	PivotColumns      StringList `json:"Pivot_Columns"`
	InterDependency   string     `json:"Column_Inter_Dependency"`
	CommonNullCount   int64      `json:"Common_Null_Count"`
	UncommonNullCount int64      `json:"Uncommon_Null_Count"`
	ShowFlag          bool       `json:"Show_Flag"`
	CreatedAt         time.Time  `json:"-"`
	UpdatedAt         *time.Time `json:"-"`
}

// BucketMap is the bucket overview payload for one (table, task) pair.
type BucketMap struct {
	TaskID    int64              `json:"task_id"`
	TotalRows int64              `json:"total_rows"`
	Buckets   map[string]*Bucket `json:"buckets"`
}

// VisibleBuckets returns the names of buckets with ShowFlag set, sorted for
// stable rendering. Hidden buckets stay in storage but never render.
func (m *BucketMap) VisibleBuckets() []string {
	names := make([]string, 0, len(m.Buckets))
	for name, b := range m.Buckets {
		if b != nil && b.ShowFlag {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FormatInterDependency renders a dependency score for display. Numeric
// values are truncated to two decimals and suffixed with "%". The Full,
// Empty, and NaN sentinels (and anything unparsable) pass through verbatim.
// Truncation is done on the string so "12.3456" becomes "12.34%", never
// "12.35%".
func FormatInterDependency(v string) string {
	// strconv accepts "NaN" and "Inf" as floats; those are sentinels here.
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	if dot := strings.IndexByte(v, '.'); dot >= 0 {
		end := dot + 3
		if end > len(v) {
			end = len(v)
		}
		return v[:end] + "%"
	}
	return v + "%"
}

// ColumnList is stored as JSONB.
type ColumnList []Column

// Scan implements sql.Scanner for reading JSONB from the database.
func (l *ColumnList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (l ColumnList) Value() (interface{}, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Names returns the column names in order.
func (l ColumnList) Names() []string {
	names := make([]string, 0, len(l))
	for _, c := range l {
		names = append(names, c.ColumnName)
	}
	return names
}

// StringList is stored as JSONB.
type StringList []string

// Scan implements sql.Scanner for reading JSONB from the database.
func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Value implements driver.Valuer for writing JSONB to the database.
func (l StringList) Value() (interface{}, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Contains reports whether name is in the list.
func (l StringList) Contains(name string) bool {
	for _, s := range l {
		if s == name {
			return true
		}
	}
	return false
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
