package handlers

import "net/http"

// RegisterTaskOpRoutes wires the routes shaped /{table}/{tid}/{op}/ through a
// single wildcard pattern. Registering each op as its own literal pattern
// would conflict with the /{table}/task_id/{tid}/ overview routes, because
// the ServeMux cannot order two overlapping wildcard patterns; the overview
// patterns are strictly more specific than this one, so they win on their
// own paths.
func RegisterTaskOpRoutes(mux *http.ServeMux, reports *ReportHandler, comments *CommentHandler) {
	mux.HandleFunc("GET /{table}/{tid}/{op}/{$}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("op") {
		case "bucket-comments":
			comments.GetBucketComments(w, r)
		case "column-comments":
			comments.GetColumnComments(w, r)
		case "comment-counts":
			comments.GetCommentCounts(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("POST /{table}/{tid}/{op}/{$}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("op") {
		case "update-show-flag":
			reports.UpdateShowFlag(w, r)
		case "comment":
			comments.PostComment(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
