// reviewctl drives a null-statistics review session from the terminal:
// bucket overview, column drill-down, the null-record browser, record
// detail, comments, sample downloads, and the row-count summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/dataloom-io/review-engine/pkg/client"
	"github.com/dataloom-io/review-engine/pkg/csvutil"
	"github.com/dataloom-io/review-engine/pkg/models"
	"github.com/dataloom-io/review-engine/pkg/render"
	"github.com/dataloom-io/review-engine/pkg/staleness"
)

const (
	defaultPagePer       = 7
	defaultCommentMaxLen = 150
)

func main() {
	// Local .env is optional; environment wins either way.
	_ = godotenv.Load()

	server := flag.String("server", envOr("REVIEW_SERVER", "http://localhost:8000"), "review engine base URL")
	token := flag.String("token", os.Getenv("API_TOKEN"), "bearer token (empty when the server runs open)")
	tableName := flag.String("table", "", "scraped source table")
	task := flag.String("task", "", "task id")
	op := flag.String("op", "buckets", "operation: buckets|columns|nulls|record|comment|sample|rowcount|watch|analyze|hide")
	bucketName := flag.String("bucket", "", "bucket name for columns/nulls/comment/sample/hide")
	columnName := flag.String("column", "", "column name for column-scoped comments")
	text := flag.String("text", "", "comment text")
	recordID := flag.Int64("record", 0, "record id for the record operation")
	page := flag.Int("page", 1, "null-record browser page")
	source := flag.String("source", models.SourcePlugin, "data source for rowcount")
	flag.Parse()

	if err := run(*server, *token, *tableName, *task, *op, *bucketName, *columnName, *text, *recordID, *page, *source); err != nil {
		fmt.Fprintln(os.Stderr, "reviewctl:", err)
		os.Exit(1)
	}
}

func run(server, token, tableName, task, op, bucketName, columnName, text string, recordID int64, page int, source string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.NewClient(server, token)

	// rowcount is the only operation that works outside a table/task
	// session.
	if op == "rowcount" {
		return showRowCounts(ctx, c, source)
	}

	if tableName == "" {
		return fmt.Errorf("-table is required")
	}
	session := client.NewSession(c, tableName, defaultPagePer, defaultCommentMaxLen)
	if err := session.SetTask(task); err != nil {
		return fmt.Errorf("%w (got %q)", err, task)
	}

	switch op {
	case "buckets":
		return showBuckets(ctx, session)
	case "analyze":
		if _, err := session.Analyze(ctx); err != nil {
			return err
		}
		fmt.Println("analysis complete")
		return showBuckets(ctx, session)
	case "columns":
		return showColumns(ctx, session, bucketName)
	case "nulls":
		return showNullRecords(ctx, session, bucketName, page)
	case "record":
		if recordID <= 0 {
			return fmt.Errorf("-record is required")
		}
		return showRecord(ctx, session, recordID)
	case "comment":
		return postComment(ctx, session, bucketName, columnName, text)
	case "sample":
		return downloadSample(ctx, session, tableName, task, bucketName)
	case "hide":
		if bucketName == "" {
			return fmt.Errorf("-bucket is required")
		}
		if err := session.HideBucket(ctx, bucketName); err != nil {
			return err
		}
		fmt.Printf("bucket %s hidden\n", bucketName)
		return nil
	case "watch":
		return watchComments(ctx, session)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// selectBucket loads the overview and enters the named bucket's drill-down.
func selectBucket(ctx context.Context, session *client.Session, bucketName string) (*models.Bucket, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("-bucket is required")
	}
	overview, err := session.BucketMap(ctx)
	if err != nil {
		return nil, err
	}
	bucket, ok := overview.Buckets[bucketName]
	if !ok {
		return nil, fmt.Errorf("bucket %q not found", bucketName)
	}
	session.SelectBucket(bucketName, bucket.Columns.Names())
	return bucket, nil
}

func showBuckets(ctx context.Context, session *client.Session) error {
	overview, err := session.BucketMap(ctx)
	if err != nil {
		return err
	}
	counts, err := session.BucketComments(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Bucket", "Columns", "Dependency", "Common", "Uncommon", "Pivots", "Comments"})
	for _, name := range overview.VisibleBuckets() {
		b := overview.Buckets[name]
		dep := models.FormatInterDependency(b.InterDependency)
		if b.InterDependency == models.InterDependencyFull {
			dep = "✓ " + dep
		}
		badge := 0
		if thread, ok := counts[name]; ok {
			badge = thread.Count
		}
		t.AppendRow(table.Row{
			name,
			strings.Join(b.Columns.Names(), ", "),
			dep,
			b.CommonNullCount,
			b.UncommonNullCount,
			strings.Join(b.PivotColumns, ", "),
			badge,
		})
	}
	t.SetStyle(table.StyleDefault)
	t.Render()
	fmt.Printf("task %d, %d rows\n", overview.TaskID, overview.TotalRows)
	return nil
}

func showColumns(ctx context.Context, session *client.Session, bucketName string) error {
	bucket, err := selectBucket(ctx, session, bucketName)
	if err != nil {
		return err
	}
	columnComments, err := session.ColumnComments(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Column", "Null Count", "Status", "Comments"})
	for i, col := range bucket.Columns {
		status := ""
		if col.NullCount == 0 {
			status = "Successful"
		}
		badge := 0
		if byColumn, ok := columnComments[bucketName]; ok {
			if thread, ok := byColumn[col.ColumnName]; ok {
				badge = thread.Count
			}
		}
		t.AppendRow(table.Row{i + 1, col.ColumnName, col.NullCount, status, badge})
	}
	t.SetStyle(table.StyleDefault)
	t.Render()
	return nil
}

func showNullRecords(ctx context.Context, session *client.Session, bucketName string, page int) error {
	if _, err := selectBucket(ctx, session, bucketName); err != nil {
		return err
	}
	for session.CurrentPage() < page {
		if !session.NextPage() {
			break
		}
	}

	records, err := session.NullRecords(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Link", "Created", "Modified", "Staleness", "Age"})
	for _, rec := range records.Items {
		t.AppendRow(table.Row{
			rec.ID,
			render.DisplayValue(rec.Link),
			formatTime(rec.CreatedDate),
			formatTime(rec.ModifiedDate),
			staleness.Classify(rec.DateDiff).String(),
			formatMinutes(rec.DateDiff),
		})
	}
	t.SetStyle(table.StyleDefault)
	t.Render()
	fmt.Printf("page %d/%d (%d records)\n", session.CurrentPage(), session.TotalPages(), records.TotalItems)
	return nil
}

func showRecord(ctx context.Context, session *client.Session, recordID int64) error {
	record, err := session.Record(ctx, recordID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range keys {
		v := record[k]
		display := render.DisplayValue(v)
		switch render.ClassifyValue(v) {
		case render.Link:
			display = display + " [link]"
		case render.Missing:
			display = display + " [bad data]"
		}
		t.AppendRow(table.Row{k, display})
	}
	t.SetStyle(table.StyleDefault)
	t.Render()
	return nil
}

func postComment(ctx context.Context, session *client.Session, bucketName, columnName, text string) error {
	if _, err := selectBucket(ctx, session, bucketName); err != nil {
		return err
	}
	if session.CheckDraftLength(text) {
		fmt.Fprintf(os.Stderr, "warning: comment exceeds %d characters and will be truncated\n", defaultCommentMaxLen)
	}
	msg, err := session.PostComment(ctx, columnName, text)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func downloadSample(ctx context.Context, session *client.Session, tableName, task, bucketName string) error {
	if _, err := selectBucket(ctx, session, bucketName); err != nil {
		return err
	}
	data, err := session.SampleCSV(ctx)
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("sample_data_%s_%s_%s.csv", tableName, task, bucketName)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", filename, len(data))
	return nil
}

func showRowCounts(ctx context.Context, c *client.Client, source string) error {
	entries, err := c.RowCounts(ctx, source)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Table", "Rows", "Columns", "Last Present", "Freshness"})
	timestamps := make([]*time.Time, 0, len(entries))
	now := time.Now()
	for _, e := range entries {
		timestamps = append(timestamps, e.LastPresentTime)
		t.AppendRow(table.Row{
			e.TableName,
			e.RowCount,
			len(e.ColumnsList),
			formatTime(e.LastPresentTime),
			staleness.Classify(staleness.Difference(now, e.LastPresentTime)).String(),
		})
	}
	t.SetStyle(table.StyleDefault)
	t.Render()

	histogram := staleness.Counts(now, timestamps)
	fmt.Printf("freshness: <24h=%d 24h-72h=%d 3d-7d=%d >7d=%d\n",
		histogram[staleness.Under24h], histogram[staleness.Under72h],
		histogram[staleness.Under7d], histogram[staleness.Over7d])

	// Datapoint export of table names, in the dashboard's plain CSV shape.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.TableName)
	}
	if len(names) > 0 {
		fmt.Println()
		fmt.Println(csvutil.ConvertToCSV(names))
	}
	return nil
}

func watchComments(ctx context.Context, session *client.Session) error {
	watcher := client.NewCommentWatcher(session, time.Second)
	fmt.Println("watching comment counts (Ctrl-C to stop)")

	var last map[string]int64
	for counts := range watcher.Watch(ctx) {
		if equalCounts(last, counts) {
			continue
		}
		last = counts

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
		}
		fmt.Printf("%s %s\n", time.Now().Format(time.TimeOnly), strings.Join(parts, " "))
	}
	return nil
}

func equalCounts(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return render.MissingPlaceholder
	}
	return ts.Format("2006-01-02 15:04")
}

func formatMinutes(minutes int64) string {
	if minutes == staleness.MaxStaleness {
		return render.MissingPlaceholder
	}
	if minutes < staleness.MinutesPerDay {
		return strconv.FormatInt(minutes, 10) + "m"
	}
	return strconv.FormatInt(minutes/staleness.MinutesPerDay, 10) + "d"
}
