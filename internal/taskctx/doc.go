// Package taskctx models the consuming task's lifecycle and metrics surface.
//
// The fetch pipeline never owns task lifetime: it registers per-stream close
// callbacks via OnCompletion and feeds byte/time counters, and the task
// runner triggers Complete when the task ends for any reason.
package taskctx
