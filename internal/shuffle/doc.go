// Package shuffle implements the remote shuffle-block fetch pipeline: given
// a shuffle id and a contiguous partition range, it discovers where each
// partition's data lives, opens streams to the owning workers, and yields
// per-partition byte streams to the consuming task in partition order.
//
// # Pipeline
//
// One Fetch call builds one pipeline instance:
//
//	grouper  -> one worker batch per distinct worker address in range
//	opener   -> one batched open-stream round trip per batch (join-all)
//	scheduler-> per-partition creation tasks, W partitions ahead of the
//	            consumer (the creation window), first replica success wins
//	iterator -> sequential consumption in ascending partition order
//
// The opener and the creation tasks run on a bounded process-wide pool; the
// iterator runs on the task's own goroutine and poll-waits on the stream
// registry with a notify channel, never busy-spinning unboundedly.
//
// # Failure handling
//
// Per-worker and per-location failures are contained: an unreachable worker
// is excluded and its batch dropped, a failed replica open falls through to
// the next replica. Only all-replicas-exhausted or a discovery-level failure
// escalates, through a single first-writer-wins fault capture. Interruption
// and timeout causes are rethrown unchanged as cancellation signals; lost
// data converts to a stage-retryable FetchFailureError when the pipeline is
// configured to throw fetch failures and the location service accepts the
// report.
package shuffle
