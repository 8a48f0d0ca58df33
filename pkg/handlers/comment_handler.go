package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/services"
	"github.com/dataloom-io/review-engine/pkg/sqlsafe"
)

// CommentHandler serves review comment threads and posting.
type CommentHandler struct {
	commentService services.CommentService
	logger         *zap.Logger
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(commentService services.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// GetBucketComments handles GET /{table}/{tid}/bucket-comments/
//
// Every bucket's thread comes back in one response so clients never issue
// one request per bucket.
func (h *CommentHandler) GetBucketComments(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	comments, err := h.commentService.BucketComments(r.Context(), table, tid)
	if err != nil {
		h.logger.Error("Failed to get bucket comments", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, comments); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetColumnComments handles GET /{table}/{tid}/column-comments/
func (h *CommentHandler) GetColumnComments(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	comments, err := h.commentService.ColumnComments(r.Context(), table, tid)
	if err != nil {
		h.logger.Error("Failed to get column comments", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, comments); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetCommentCounts handles GET /{table}/{tid}/comment-counts/
//
// Lightweight polling endpoint backing the comment badges.
func (h *CommentHandler) GetCommentCounts(w http.ResponseWriter, r *http.Request) {
	table, ok := ParseTable(w, r, h.logger)
	if !ok {
		return
	}
	tid, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	counts, err := h.commentService.CommentCounts(r.Context(), table, tid)
	if err != nil {
		h.logger.Error("Failed to get comment counts", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, counts); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type postCommentRequest struct {
	Comments string `json:"comments"`
}

// PostComment handles POST /{table}/{tid}/comment/?bucket_name=X[&column_name=Y]
func (h *CommentHandler) PostComment(w http.ResponseWriter, r *http.Request) {
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

	var columnName *string
	if col := r.URL.Query().Get("column_name"); col != "" {
		if !sqlsafe.ValidIdent(col) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_column", "Invalid column name"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		columnName = &col
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	comment := &models.Comment{
		SourceTable: table,
		TaskID:      tid,
		BucketName:  bucket,
		ColumnName:  columnName,
		Body:        req.Comments,
	}

	err := h.commentService.Post(r.Context(), comment)
	if errors.Is(err, apperrors.ErrCommentTruncated) {
		// Stored, but shortened. Tell the author.
		if err := WriteJSON(w, http.StatusOK, ApiResponse{
			Success: true,
			Data:    comment,
			Message: "Comment exceeded the maximum length and was truncated",
		}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}
	if err != nil {
		h.logger.Error("Failed to post comment", zap.Error(err))
		if err := serviceError(w, err); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    comment,
		Message: "Comment added successfully",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
