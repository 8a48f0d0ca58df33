package client

import (
	"context"
	"time"
)

// CommentWatcher polls the comment-count endpoint and delivers snapshots on
// a channel. It is the workflow's only background liveness primitive; every
// other call is a direct request.
type CommentWatcher struct {
	session  *Session
	interval time.Duration
}

// NewCommentWatcher creates a watcher for the session's active task.
func NewCommentWatcher(session *Session, interval time.Duration) *CommentWatcher {
	return &CommentWatcher{session: session, interval: interval}
}

// Watch polls until ctx is canceled, sending each successfully fetched
// count map. Fetch errors are skipped; the next tick tries again. The
// channel closes when polling stops.
func (w *CommentWatcher) Watch(ctx context.Context) <-chan map[string]int64 {
	updates := make(chan map[string]int64)

	go func() {
		defer close(updates)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.session.gate(); err != nil {
					continue
				}
				counts, err := w.session.client.CommentCounts(ctx, w.session.table, w.session.taskID)
				if err != nil {
					continue
				}
				select {
				case updates <- counts:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return updates
}
