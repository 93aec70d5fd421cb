// Package workerpool provides a bounded pool of daemon worker goroutines.
//
// A single process-wide pool (Shared) executes both the per-worker batched
// open-stream calls and the per-partition stream creation tasks, bounding
// total fetch concurrency across concurrent pipeline instances. Pool size
// comes from BLAZE_FETCH_POOL_SIZE or defaults to GOMAXPROCS (min 4).
package workerpool
