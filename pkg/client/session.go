package client

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dataloom-io/review-engine/pkg/models"
)

// Session errors.
var (
	// ErrNoTask is returned by every data method until a valid task ID has
	// been set. No request leaves the session while the gate is shut.
	ErrNoTask = errors.New("no task selected")

	// ErrInvalidTaskID rejects empty or non-numeric task input.
	ErrInvalidTaskID = errors.New("task id must be a positive integer")
)

// Session drives one review workflow over a source table: task selection,
// bucket overview, column drill-down, and the paged null-record browser.
// Not safe for concurrent use; a session belongs to one reviewer.
type Session struct {
	client *Client
	table  string

	taskID  int64
	taskSet bool

	currentPage int
	totalPages  int
	pagePer     int

	selectedBucket  string
	selectedColumns []string

	commentMaxLen int
	draftOverMax  bool
}

// NewSession creates a review session for one source table. pagePer and
// commentMaxLen of zero fall back to the server defaults (the server clamps
// page size; the length warning is disabled without a limit).
func NewSession(c *Client, table string, pagePer, commentMaxLen int) *Session {
	return &Session{
		client:        c,
		table:         table,
		currentPage:   1,
		pagePer:       pagePer,
		commentMaxLen: commentMaxLen,
	}
}

// SetTask parses and installs the active task ID. Empty or non-numeric input
// fails with ErrInvalidTaskID and leaves the gate shut. Switching tasks
// resets pagination and the bucket selection.
func (s *Session) SetTask(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrInvalidTaskID
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return ErrInvalidTaskID
	}

	s.taskID = id
	s.taskSet = true
	s.currentPage = 1
	s.totalPages = 0
	s.selectedBucket = ""
	s.selectedColumns = nil
	s.draftOverMax = false
	return nil
}

// TaskID returns the active task ID, or false while the gate is shut.
func (s *Session) TaskID() (int64, bool) {
	return s.taskID, s.taskSet
}

func (s *Session) gate() error {
	if !s.taskSet {
		return ErrNoTask
	}
	return nil
}

// BucketMap fetches the bucket overview for the active task.
func (s *Session) BucketMap(ctx context.Context) (*models.BucketMap, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.BucketMap(ctx, s.table, s.taskID)
}

// Analyze runs a fresh analysis for the active task.
func (s *Session) Analyze(ctx context.Context) (*models.BucketMap, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.AnalyzeTask(ctx, s.table, s.taskID)
}

// SelectBucket enters the drill-down for one bucket, resetting the record
// browser to the first page.
func (s *Session) SelectBucket(name string, columns []string) {
	s.selectedBucket = name
	s.selectedColumns = columns
	s.currentPage = 1
	s.totalPages = 0
}

// SelectedBucket returns the bucket under review and its columns.
func (s *Session) SelectedBucket() (string, []string) {
	return s.selectedBucket, s.selectedColumns
}

// NullRecords fetches the current page of the null-record browser for the
// selected bucket's columns, refreshing the page count from the response.
func (s *Session) NullRecords(ctx context.Context) (*models.NullRecordPage, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	page, err := s.client.NullRecords(ctx, s.table, s.taskID, s.selectedColumns, s.currentPage, s.pagePer)
	if err != nil {
		return nil, err
	}

	// A transient zero total (mid-write refresh) keeps the previous page
	// count instead of collapsing the pager. The server's count wins when
	// present; older servers without one fall back to local math.
	pages := page.TotalPages
	if pages == 0 {
		pages = totalPages(page.TotalItems, s.effectivePagePer())
	}
	if pages > 0 {
		s.totalPages = pages
		if s.currentPage > s.totalPages {
			s.currentPage = s.totalPages
		}
	}
	return page, nil
}

// Record fetches the full detail of one row.
func (s *Session) Record(ctx context.Context, recordID int64) (models.DBRecord, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.Record(ctx, s.table, s.taskID, recordID)
}

// BucketComments fetches every bucket's comment thread for the active task.
func (s *Session) BucketComments(ctx context.Context) (map[string]*models.BucketComments, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.BucketComments(ctx, s.table, s.taskID)
}

// ColumnComments fetches the column-scoped threads for the active task.
func (s *Session) ColumnComments(ctx context.Context) (map[string]map[string]*models.ColumnComments, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.ColumnComments(ctx, s.table, s.taskID)
}

// PostComment attaches a comment to the selected bucket (or one of its
// columns) and returns any server warning message.
func (s *Session) PostComment(ctx context.Context, columnName, text string) (string, error) {
	if err := s.gate(); err != nil {
		return "", err
	}
	return s.client.PostComment(ctx, s.table, s.taskID, s.selectedBucket, columnName, text)
}

// HideBucket soft-deletes a bucket for the active task.
func (s *Session) HideBucket(ctx context.Context, bucketName string) error {
	if err := s.gate(); err != nil {
		return err
	}
	return s.client.HideBucket(ctx, s.table, s.taskID, bucketName)
}

// SampleCSV downloads the selected bucket's sample CSV.
func (s *Session) SampleCSV(ctx context.Context) ([]byte, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	return s.client.SampleCSV(ctx, s.table, s.taskID, s.selectedBucket, s.selectedColumns)
}

// CurrentPage returns the 1-based page the browser is on.
func (s *Session) CurrentPage() int { return s.currentPage }

// TotalPages returns the last known page count (zero before the first
// fetch).
func (s *Session) TotalPages() int { return s.totalPages }

// NextPage advances the browser one page, stopping at the last page.
// Reports whether the page changed.
func (s *Session) NextPage() bool {
	if s.totalPages > 0 && s.currentPage >= s.totalPages {
		return false
	}
	s.currentPage++
	return true
}

// PrevPage steps the browser back one page, stopping at the first.
func (s *Session) PrevPage() bool {
	if s.currentPage <= 1 {
		return false
	}
	s.currentPage--
	return true
}

// FirstPage jumps to page one.
func (s *Session) FirstPage() {
	s.currentPage = 1
}

// LastPage jumps to the last known page, if any fetch has established one.
func (s *Session) LastPage() bool {
	if s.totalPages < 1 {
		return false
	}
	s.currentPage = s.totalPages
	return true
}

// CheckDraftLength reports whether a comment draft just crossed the length
// limit. It fires once per crossing, so a reviewer typing past the limit is
// warned a single time rather than on every keystroke. The limit counts
// characters, matching the server's truncation.
func (s *Session) CheckDraftLength(draft string) bool {
	if s.commentMaxLen <= 0 {
		return false
	}
	over := utf8.RuneCountInString(draft) > s.commentMaxLen
	crossed := over && !s.draftOverMax
	s.draftOverMax = over
	return crossed
}

func (s *Session) effectivePagePer() int {
	if s.pagePer > 0 {
		return s.pagePer
	}
	return defaultPagePer
}

// defaultPagePer mirrors the server's page size for page-count math when the
// session does not override it.
const defaultPagePer = 7

func totalPages(totalItems int64, pagePer int) int {
	if totalItems <= 0 || pagePer <= 0 {
		return 0
	}
	return int((totalItems + int64(pagePer) - 1) / int64(pagePer))
}
