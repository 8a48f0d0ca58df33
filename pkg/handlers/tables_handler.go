package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/services"
	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// TablesHandler serves the row-count summary and table-level CSV exports.
type TablesHandler struct {
	statsService services.TableStatsService
	logger       *zap.Logger
}

// NewTablesHandler creates a new tables handler.
func NewTablesHandler(statsService services.TableStatsService, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// RegisterRoutes registers the tables handler's routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /tables/row-count/{$}", h.GetRowCounts)
	mux.HandleFunc("POST /tables/register/{$}", h.RegisterTable)
	mux.HandleFunc("GET /download-data/{$}", h.DownloadData)
	mux.HandleFunc("GET /download-insights-data/{$}", h.DownloadInsightsData)
}

// GetRowCounts handles GET /tables/row-count/?source=X
func (h *TablesHandler) GetRowCounts(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = models.SourcePlugin
	}

	entries, err := h.statsService.RowCountSummary(r.Context(), source)
	if err != nil {
		h.logger.Error("Failed to get row counts", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if entries == nil {
		entries = make([]*models.TableRowCount, 0)
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"data": entries}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RegisterTable handles POST /tables/register/?table_name=X&source=Y
func (h *TablesHandler) RegisterTable(w http.ResponseWriter, r *http.Request) {
	tableName := r.URL.Query().Get("table_name")
	if !sqlsafe.ValidIdent(tableName) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_table", "Invalid table name"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	source := r.URL.Query().Get("source")
	switch source {
	case models.SourcePlugin, models.SourceThirdParty, models.SourceAmazon:
	default:
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_source", "Unknown source"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry, err := h.statsService.RegisterTable(r.Context(), tableName, source)
	if err != nil {
		h.logger.Error("Failed to register table", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    entry,
		Message: "Table registered successfully",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DownloadData handles GET /download-data/?table_name=X
func (h *TablesHandler) DownloadData(w http.ResponseWriter, r *http.Request) {
	h.downloadCSV(w, r, services.ExportFull)
}

// DownloadInsightsData handles GET /download-insights-data/?table_name=X
func (h *TablesHandler) DownloadInsightsData(w http.ResponseWriter, r *http.Request) {
	h.downloadCSV(w, r, services.ExportInsights)
}

func (h *TablesHandler) downloadCSV(w http.ResponseWriter, r *http.Request, kind string) {
	tableName := r.URL.Query().Get("table_name")
	if !sqlsafe.ValidIdent(tableName) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_table", "Invalid table name"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	filename := fmt.Sprintf("%s_%s_data.csv", tableName, kind)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.statsService.ExportCSV(r.Context(), w, tableName, kind); err != nil {
		h.logger.Error("Failed to stream table export",
			zap.String("table", tableName),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
