package shuffle

import (
	"io"
	"sync"
	"time"
)

// streamRegistry maps partition id to its realized input stream. Entries are
// written exactly once (first successful creation wins) and consumed by the
// iterator, which always polls by target partition id so output order never
// depends on completion order.
type streamRegistry struct {
	mu      sync.Mutex
	streams map[int]io.ReadCloser
	notify  chan struct{}
	closed  bool
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{
		streams: make(map[int]io.ReadCloser),
		notify:  make(chan struct{}),
	}
}

// put records the stream for a partition. Returns false (and leaves the
// existing entry intact) if the partition already has one.
func (r *streamRegistry) put(partition int, s io.ReadCloser) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = s.Close()
		return false
	}
	if _, ok := r.streams[partition]; ok {
		r.mu.Unlock()
		return false
	}
	r.streams[partition] = s
	// wake waiters
	close(r.notify)
	r.notify = make(chan struct{})
	r.mu.Unlock()
	return true
}

// get returns the stream for a partition, if present.
func (r *streamRegistry) get(partition int) (io.ReadCloser, bool) {
	r.mu.Lock()
	s, ok := r.streams[partition]
	r.mu.Unlock()
	return s, ok
}

// closeAll closes every recorded stream and rejects future puts, so streams
// realized after the task ended are released immediately instead of leaking.
func (r *streamRegistry) closeAll() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	streams := r.streams
	r.streams = make(map[int]io.ReadCloser)
	r.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
}

// wait blocks until either a new stream is recorded or timeout elapses.
// Returns true if woken by a put.
func (r *streamRegistry) wait(timeout time.Duration) bool {
	r.mu.Lock()
	ch := r.notify
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
