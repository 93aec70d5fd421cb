package shuffle

import (
	"context"
	"fmt"
	"sync"

	"github.com/zzcclp/blaze/internal/taskctx"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// pipeline is the shared state of one fetch: one partition range, one shuffle
// id, one task. The registry, the fault state, and the pooled connection
// cache are the only structures touched by more than one goroutine.
type pipeline struct {
	f            *Fetcher
	shuffleID    int
	r            PartitionRange
	maps         MapRange
	groups       FileGroups
	task         *taskctx.TaskContext
	reg          *streamRegistry
	fault        *faultState
	tokens       map[Location]string
	creationDone func(partition int) // test hook, may be nil

	mu         sync.Mutex
	nextCreate int
}

// run executes discovery grouping, the batched open phase, and then primes
// the creation window. It runs on its own goroutine so consumption never
// waits behind the full open sequence.
func (p *pipeline) run(ctx context.Context) {
	batches := p.buildBatches()
	p.openAll(ctx, batches)

	p.mu.Lock()
	p.nextCreate = p.r.Start
	p.mu.Unlock()

	for i := 0; i < p.f.window; i++ {
		p.submitNext(ctx)
	}
}

// submitNext schedules the creation task for the next unscheduled partition,
// if any. Called once during priming per window slot and then exactly once
// per consumed partition, which keeps the window size constant until the
// range is exhausted.
func (p *pipeline) submitNext(ctx context.Context) {
	p.mu.Lock()
	if p.nextCreate >= p.r.End {
		p.mu.Unlock()
		return
	}
	pid := p.nextCreate
	p.nextCreate++
	p.mu.Unlock()

	p.f.pool.Submit(func() { p.createStream(ctx, pid) })
}

// createStream materializes the input stream for one partition: walk the
// partition's replica locations in order, short-circuiting on the first one
// that opens. Later replicas are never started, so there is nothing in flight
// to cancel. A partition with no locations yields the empty sentinel; a
// partition whose every replica fails records a first-writer fault capture
// and moves on without stalling other partitions.
func (p *pipeline) createStream(ctx context.Context, pid int) {
	defer func() {
		if p.creationDone != nil {
			p.creationDone(pid)
		}
	}()

	locs := p.groups.Partitions[pid]
	if len(locs) == 0 {
		p.reg.put(pid, EmptyStream)
		return
	}

	spec := streamSpec{
		shuffleID: p.shuffleID,
		partition: pid,
		maps:      p.maps,
		attempts:  p.groups.Attempts,
	}

	var lastErr error
	for _, loc := range locs {
		token, ok := p.tokens[loc]
		if !ok {
			continue
		}
		stream, err := p.f.openReplica(ctx, loc, token, spec)
		if err != nil {
			lastErr = err
			p.f.logger.Debug("replica open failed, trying next",
				logpkg.String("worker", loc.Worker.String()),
				logpkg.Int("partition", pid),
				logpkg.Err(err))
			continue
		}
		if !p.reg.put(pid, stream) {
			_ = stream.Close()
		}
		return
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no usable replica for shuffle %d partition %d", p.shuffleID, pid)
	}
	p.fault.set(classifyCause(lastErr), pid, lastErr)
}
