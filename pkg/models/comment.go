package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is free text attached to a (table, task, bucket, optional column)
// scope. Comments are append-only: created via POST, never edited or
// deleted through the review surface.
type Comment struct {
	ID          uuid.UUID `json:"-"`
	SourceTable string    `json:"-"`
	TaskID      int64     `json:"-"`
	BucketName  string    `json:"-"`
	ColumnName  *string   `json:"-"` // nil for bucket-scoped comments
	Body        string    `json:"text"`
	Flag        *string   `json:"flag,omitempty"`
	CreatedAt   time.Time `json:"time-stamp"`
}

// BucketComments is one bucket's comment thread plus its badge count.
type BucketComments struct {
	Count    int        `json:"bucket_comment_count"`
	Comments []*Comment `json:"bucket_comments"`
}

// ColumnComments is one column's comment thread plus its badge count.
type ColumnComments struct {
	Count    int        `json:"column_comment_count"`
	Comments []*Comment `json:"column_comments"`
}
