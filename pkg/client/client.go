// Package client is the Go consumer of the review engine API. It backs the
// reviewctl workflow tool and any other program driving a review session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dataloom-io/review-engine/pkg/models"
)

// Client talks to one review engine instance. All endpoints share a single
// base URL and bearer token. Requests carry the caller's context and are
// never retried; a failure surfaces directly.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the engine at baseURL. token may be empty
// when the server runs without authentication.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the engine's error shape.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = "undecodable error response"
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// BucketMap fetches the bucket overview for a task.
func (c *Client) BucketMap(ctx context.Context, table string, taskID int64) (*models.BucketMap, error) {
	out := &models.BucketMap{}
	path := fmt.Sprintf("/%s/task_id/%d/", table, taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeTask runs a fresh analysis for a task and returns the result.
func (c *Client) AnalyzeTask(ctx context.Context, table string, taskID int64) (*models.BucketMap, error) {
	out := &models.BucketMap{}
	path := fmt.Sprintf("/%s/task_id/%d/analyze/", table, taskID)
	if err := c.do(ctx, http.MethodPost, path, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// BucketComments fetches every bucket's comment thread for a task.
func (c *Client) BucketComments(ctx context.Context, table string, taskID int64) (map[string]*models.BucketComments, error) {
	out := map[string]*models.BucketComments{}
	path := fmt.Sprintf("/%s/%d/bucket-comments/", table, taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ColumnComments fetches the column-scoped comment threads for a task.
func (c *Client) ColumnComments(ctx context.Context, table string, taskID int64) (map[string]map[string]*models.ColumnComments, error) {
	out := map[string]map[string]*models.ColumnComments{}
	path := fmt.Sprintf("/%s/%d/column-comments/", table, taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CommentCounts fetches the per-bucket comment totals for a task.
func (c *Client) CommentCounts(ctx context.Context, table string, taskID int64) (map[string]int64, error) {
	out := map[string]int64{}
	path := fmt.Sprintf("/%s/%d/comment-counts/", table, taskID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostComment attaches a comment to a bucket, or to one of its columns when
// columnName is non-empty. The returned message relays server-side warnings
// such as truncation.
func (c *Client) PostComment(ctx context.Context, table string, taskID int64, bucketName, columnName, text string) (string, error) {
	query := url.Values{"bucket_name": {bucketName}}
	if columnName != "" {
		query.Set("column_name", columnName)
	}
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	path := fmt.Sprintf("/%s/%d/comment/", table, taskID)
	body := map[string]string{"comments": text}
	if err := c.do(ctx, http.MethodPost, path, query, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// HideBucket flips a bucket's show flag off.
func (c *Client) HideBucket(ctx context.Context, table string, taskID int64, bucketName string) error {
	query := url.Values{"bucket_name": {bucketName}}
	path := fmt.Sprintf("/%s/%d/update-show-flag/", table, taskID)
	return c.do(ctx, http.MethodPost, path, query, nil, nil)
}

// NullRecords fetches one page of rows where any of the columns is null.
func (c *Client) NullRecords(ctx context.Context, table string, taskID int64, columns []string, pageNo, pagePer int) (*models.NullRecordPage, error) {
	query := url.Values{"columns": columns}
	query.Set("page_no", strconv.Itoa(pageNo))
	if pagePer > 0 {
		query.Set("page_per", strconv.Itoa(pagePer))
	}
	out := &models.NullRecordPage{}
	path := fmt.Sprintf("/%s/%d/columns", table, taskID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Record fetches the full column→value map for one row.
func (c *Client) Record(ctx context.Context, table string, taskID, recordID int64) (models.DBRecord, error) {
	var out []models.DBRecord
	path := fmt.Sprintf("/%s/%d/sr/%d", table, taskID, recordID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("record payload was empty")
	}
	return out[0], nil
}

// SampleCSV downloads the sample CSV for a bucket's columns.
func (c *Client) SampleCSV(ctx context.Context, table string, taskID int64, bucketName string, columns []string) ([]byte, error) {
	query := url.Values{"columns": columns}
	u := fmt.Sprintf("%s/%s/task_id/%d/download-sample/%s/?%s",
		c.baseURL, table, taskID, bucketName, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = "undecodable error response"
		}
		return nil, apiErr
	}
	return io.ReadAll(resp.Body)
}

// RowCounts fetches the row-count summary for one data source.
func (c *Client) RowCounts(ctx context.Context, source string) ([]*models.TableRowCount, error) {
	var out struct {
		Data []*models.TableRowCount `json:"data"`
	}
	query := url.Values{"source": {source}}
	if err := c.do(ctx, http.MethodGet, "/tables/row-count/", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
