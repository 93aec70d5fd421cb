package workerpool

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Job is one unit of work executed by the pool.
type Job func()

// Pool runs jobs on a fixed number of worker goroutines. Submit blocks once
// the backlog is full, which keeps total queued work bounded by the caller's
// own submission discipline plus the backlog capacity.
type Pool struct {
	jobs     chan Job
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a pool with the given number of workers. Size values below one
// are clamped to one. The backlog holds up to 4x size pending jobs.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		jobs: make(chan Job, 4*size),
		done: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case job := <-p.jobs:
					job()
				default:
					return
				}
			}
		}
	}
}

// Submit enqueues a job. It blocks while the backlog is full and is a no-op
// after Stop.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.jobs <- job:
	case <-p.done:
	}
}

// Stop tells workers to exit after draining the backlog and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

var (
	sharedMu sync.Mutex
	shared   *Pool
)

// SharedSizeEnv overrides the shared pool size when set to a positive integer.
const SharedSizeEnv = "BLAZE_FETCH_POOL_SIZE"

// Shared returns the process-wide pool used for open-stream calls and stream
// creation tasks across all fetch pipeline instances. It is initialized once,
// on first use.
func Shared() *Pool {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = New(sharedSize())
	}
	return shared
}

func sharedSize() int {
	if v := os.Getenv(SharedSizeEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.GOMAXPROCS(0)
	if n < 4 {
		n = 4
	}
	return n
}
