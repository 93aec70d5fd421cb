package shuffle

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/zzcclp/blaze/internal/metrics"
	"github.com/zzcclp/blaze/internal/taskctx"
)

// Iterator is the lazy, finite, non-restartable sequence of
// (partition, stream) pairs a consuming task pulls from. Output order is
// strictly ascending by partition id regardless of the order in which worker
// calls or stream creations complete. Not safe for concurrent use.
type Iterator struct {
	ctx  context.Context
	p    *pipeline
	next int

	partition int
	stream    io.ReadCloser
	err       error
	done      bool
	merged    bool
}

// Next advances to the next yielded pair. It returns false when the range is
// exhausted or a failure escalated; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	for it.next < it.p.r.End {
		pid := it.next
		it.next++

		// A shuffle whose map stage produced no rows yields empty streams
		// with no network wait; the empty sentinel is filtered from output.
		if it.p.groups.MapperCount == 0 {
			continue
		}

		stream, err := it.await(pid)
		if err != nil {
			it.err = err
			it.finish()
			return false
		}

		// Consume advances the creation window by exactly one.
		it.p.submitNext(it.ctx)

		if stream == EmptyStream {
			continue
		}

		counting := taskctx.NewCountingStream(stream, it.p.task)
		it.p.task.OnCompletion(func() { _ = counting.Close() })
		it.p.task.AddBlocksFetched(1)
		it.partition = pid
		it.stream = counting
		return true
	}
	it.finish()
	return false
}

// await blocks until the partition's stream appears, a fault escalates, or
// the context ends. The wait is a bounded-latency poll on the registry's
// notify channel, never an unbounded busy spin, and the accumulated latency
// feeds the task's read-time metric.
func (it *Iterator) await(pid int) (io.ReadCloser, error) {
	start := time.Now()
	defer func() {
		if ms := time.Since(start).Milliseconds(); ms > 0 {
			it.p.task.AddReadTimeMillis(ms)
		}
	}()

	for {
		if s, ok := it.p.reg.get(pid); ok {
			return s, nil
		}
		if c := it.p.fault.get(); c != nil {
			return nil, it.p.f.escalate(it.p.shuffleID, c)
		}
		if err := it.ctx.Err(); err != nil {
			return nil, err
		}
		it.p.reg.wait(it.p.f.pollInterval)
	}
}

// Partition returns the current pair's partition id.
func (it *Iterator) Partition() int { return it.partition }

// Stream returns the current pair's byte stream. The stream is registered for
// close on task completion; callers may also close it earlier.
func (it *Iterator) Stream() io.ReadCloser { return it.stream }

// Err returns the escalated failure, if any, once Next has returned false.
func (it *Iterator) Err() error { return it.err }

// finish marks exhaustion and merges task counters into process metrics once.
func (it *Iterator) finish() {
	it.done = true
	if it.merged {
		return
	}
	it.merged = true
	metrics.MergeTask(strconv.Itoa(it.p.shuffleID),
		it.p.task.BytesRead(), it.p.task.BlocksFetched(), it.p.task.ReadTimeMillis())
}
