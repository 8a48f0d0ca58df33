package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrTaskNotAnalyzed  = errors.New("task has not been analyzed")
	ErrEmptyComment     = errors.New("comment is empty")
	ErrCommentTruncated = errors.New("comment exceeded maximum length and was truncated")
	ErrInvalidIdent     = errors.New("invalid identifier")
	ErrSuspectInput     = errors.New("input rejected by injection screen")
)
