package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/services"
	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// ReportHandler serves the null-statistics review surface: bucket overview,
// analysis runs, sample downloads, show-flag updates, the null-record
// browser, and record detail.
type ReportHandler struct {
	bucketService   services.BucketService
	analysisService services.AnalysisService
	recordService   services.RecordService
	logger          *zap.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(bucketService services.BucketService, analysisService services.AnalysisService, recordService services.RecordService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		bucketService:   bucketService,
		analysisService: analysisService,
		recordService:   recordService,
		logger:          logger,
	}
}

// RegisterRoutes registers the report handler's routes on the given mux.
// UpdateShowFlag is wired separately through RegisterTaskOpRoutes.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{table}/task_id/{tid}/{$}", h.GetBucketMap)
	mux.HandleFunc("POST /{table}/task_id/{tid}/analyze/{$}", h.AnalyzeTask)
	mux.HandleFunc("GET /{table}/task_id/{tid}/download-sample/{bucket}/{$}", h.DownloadSample)
	mux.HandleFunc("GET /{table}/{tid}/columns", h.GetNullRecords)
	mux.HandleFunc("GET /{table}/{tid}/sr/{id}", h.GetRecord)
}

// GetBucketMap handles GET /{table}/task_id/{tid}/
func (h *ReportHandler) GetBucketMap(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.bucketService.GetBucketMap(r.Context(), table, tid)
	if err != nil {
		h.logger.Error("Failed to get bucket map", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AnalyzeTask handles POST /{table}/task_id/{tid}/analyze/
func (h *ReportHandler) AnalyzeTask(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.analysisService.AnalyzeTask(r.Context(), table, tid)
	if err != nil {
		h.logger.Error("Failed to analyze task", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DownloadSample handles GET /{table}/task_id/{tid}/download-sample/{bucket}/
func (h *ReportHandler) DownloadSample(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}
	bucket := r.PathValue("bucket")
	if !sqlsafe.ValidIdent(bucket) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_bucket", "Invalid bucket name"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	columns, ok := ParseColumns(w, r, h.logger)
	if !ok {
		return
	}

	filename := fmt.Sprintf("sample_data_%s_%d_%s.csv", table, tid, bucket)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.bucketService.SampleCSV(r.Context(), w, table, tid, columns); err != nil {
		// Headers may already be out; log and stop mid-stream.
		h.logger.Error("Failed to stream sample CSV",
			zap.String("table", table),
			zap.Int64("task_id", tid),
			zap.Error(err))
	}
}

// UpdateShowFlag handles POST /{table}/{tid}/update-show-flag/
func (h *ReportHandler) UpdateShowFlag(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}
	bucket := r.URL.Query().Get("bucket_name")
	if !sqlsafe.ValidIdent(bucket) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_bucket", "Invalid bucket name"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.bucketService.HideBucket(r.Context(), table, tid, bucket); err != nil {
		h.logger.Error("Failed to update show flag", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Show flag updated successfully",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetNullRecords handles GET /{table}/{tid}/columns?columns=A&columns=B&page_no=&page_per=
func (h *ReportHandler) GetNullRecords(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}
	columns, ok := ParseColumns(w, r, h.logger)
	if !ok {
		return
	}
	pageNo := queryInt(r, "page_no", 1)
	pagePer := queryInt(r, "page_per", 0)

	page, err := h.recordService.NullRecordPage(r.Context(), table, tid, columns, pageNo, pagePer)
	if err != nil {
		h.logger.Error("Failed to get null records", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, page); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetRecord handles GET /{table}/{tid}/sr/{id}
func (h *ReportHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}
	recordID, ok := parsePathInt64(w, r, "id", h.logger)
	if !ok {
		return
	}

	record, err := h.recordService.GetRecord(r.Context(), table, tid, recordID)
	if err != nil {
		h.logger.Error("Failed to get record", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// The record detail wire shape is a one-element array.
	if err := WriteJSON(w, http.StatusOK, []models.DBRecord{record}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
