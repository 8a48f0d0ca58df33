package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// ParseTable extracts and validates the {table} path segment. Writes a 400
// and returns ok=false on an unsafe name.
func ParseTable(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	table := r.PathValue("table")
	if !sqlsafe.ValidIdent(table) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_table", "Invalid table name"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return table, true
}

// ParseTaskID extracts and validates the {tid} path segment as a positive
// integer.
func ParseTaskID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	tid, err := strconv.ParseInt(r.PathValue("tid"), 10, 64)
	if err != nil || tid <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_task_id", "Task ID must be a positive integer"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return tid, true
}

// ParseColumns extracts the repeated columns query parameter and validates
// every name. At least one column is required.
func ParseColumns(w http.ResponseWriter, r *http.Request, logger *zap.Logger) ([]string, bool) {
	columns := r.URL.Query()["columns"]
	if len(columns) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_columns", "At least one columns parameter is required"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	for _, c := range columns {
		if !sqlsafe.ValidIdent(c) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_column", "Invalid column name"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
	}
	return columns, true
}

// parsePathInt64 extracts a positive integer path segment.
func parsePathInt64(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (int64, bool) {
	n, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || n <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+name, "Path segment "+name+" must be a positive integer"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return n, true
}

// queryInt parses an optional integer query parameter, falling back to def
// when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
