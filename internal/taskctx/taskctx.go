package taskctx

import (
	"io"
	"sync"
	"sync/atomic"
)

// TaskContext is the lifecycle and metrics collaborator of one consuming
// task. Components register completion callbacks for resources that must be
// released however the task ends; the task runner calls Complete exactly once
// on success, failure, or cancellation.
type TaskContext struct {
	mu          sync.Mutex
	completions []func()
	completed   bool

	bytesRead     atomic.Int64
	readTimeMs    atomic.Int64
	blocksFetched atomic.Int64
}

// New creates a TaskContext.
func New() *TaskContext { return &TaskContext{} }

// OnCompletion registers fn to run when the task completes. If the task has
// already completed, fn runs immediately.
func (t *TaskContext) OnCompletion(fn func()) {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		fn()
		return
	}
	t.completions = append(t.completions, fn)
	t.mu.Unlock()
}

// Complete runs all registered callbacks, most recent first. Subsequent calls
// are no-ops.
func (t *TaskContext) Complete() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.completed = true
	callbacks := t.completions
	t.completions = nil
	t.mu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}
}

// AddBytesRead accumulates bytes read from remote streams.
func (t *TaskContext) AddBytesRead(n int64) { t.bytesRead.Add(n) }

// AddReadTimeMillis accumulates time spent waiting for remote data.
func (t *TaskContext) AddReadTimeMillis(ms int64) { t.readTimeMs.Add(ms) }

// AddBlocksFetched accumulates the number of partition streams delivered.
func (t *TaskContext) AddBlocksFetched(n int64) { t.blocksFetched.Add(n) }

// BytesRead returns the accumulated byte count.
func (t *TaskContext) BytesRead() int64 { return t.bytesRead.Load() }

// ReadTimeMillis returns the accumulated wait time.
func (t *TaskContext) ReadTimeMillis() int64 { return t.readTimeMs.Load() }

// BlocksFetched returns the accumulated stream count.
func (t *TaskContext) BlocksFetched() int64 { return t.blocksFetched.Load() }

// CountingStream wraps a stream and reports bytes read into the task metrics.
type CountingStream struct {
	rc   io.ReadCloser
	task *TaskContext
}

// NewCountingStream wraps rc.
func NewCountingStream(rc io.ReadCloser, task *TaskContext) *CountingStream {
	return &CountingStream{rc: rc, task: task}
}

// Read implements io.Reader.
func (c *CountingStream) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 {
		c.task.AddBytesRead(int64(n))
	}
	return n, err
}

// Close implements io.Closer. Closing more than once is safe for streams
// whose underlying Close is idempotent.
func (c *CountingStream) Close() error { return c.rc.Close() }
