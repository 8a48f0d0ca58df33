// Package csvutil provides the CSV stringification used by review clients.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// ConvertToCSV renders rows as a CSV string.
//
// A []string input produces a single-column CSV with the header "datapoint".
// A []map input produces a header line from the sorted keys of the first row
// and one comma-joined line per row.
//
// Known limitation, kept deliberately: values are joined verbatim, with no
// quoting or escaping of embedded commas or newlines. Server-side exports go
// through WriteRecords instead, which escapes properly.
func ConvertToCSV[T string | map[string]any](rows []T) string {
	if len(rows) == 0 {
		return ""
	}

	switch first := any(rows[0]).(type) {
	case string:
		out := "datapoint"
		for _, row := range rows {
			out += "\n" + any(row).(string)
		}
		return out
	case map[string]any:
		headers := sortedKeys(first)
		out := join(headers)
		for _, row := range rows {
			m := any(row).(map[string]any)
			values := make([]string, 0, len(headers))
			for _, h := range headers {
				values = append(values, stringify(m[h]))
			}
			out += "\n" + join(values)
		}
		return out
	}
	return ""
}

// WriteRecords streams properly escaped CSV to w: one header row followed by
// one record per row, with columns in the given order.
func WriteRecords(w io.Writer, header []string, rows []map[string]any) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, h := range header {
			record[i] = stringify(row[h])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
