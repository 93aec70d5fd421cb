package shuffle

import (
	"context"
	"sync"
	"time"

	"github.com/zzcclp/blaze/internal/metrics"
	"github.com/zzcclp/blaze/internal/transport"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// openAll issues one open-stream round trip per worker batch on the shared
// pool and waits for every call to complete before returning. This phase is
// pure request/response; no data is read. On return p.tokens is immutable.
func (p *pipeline) openAll(ctx context.Context, batches map[transport.WorkerAddress]*workerBatch) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, batch := range batches {
		b := batch
		wg.Add(1)
		p.f.pool.Submit(func() {
			defer wg.Done()
			p.openBatch(ctx, b, &mu)
		})
	}
	wg.Wait()
}

// openBatch performs one worker's batched open. Any transport error fails the
// entire batch: none of its locations receive a token, and affected
// partitions fall through to other replicas.
func (p *pipeline) openBatch(ctx context.Context, b *workerBatch, mu *sync.Mutex) {
	start := time.Now()
	resp, err := b.conn.OpenStreams(ctx, transport.OpenStreamRequest{
		ShuffleID: p.shuffleID,
		Entries:   b.entries,
	}, p.f.openTimeout)
	metrics.OpenBatchSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		p.f.exclude.Exclude(b.conn.Addr(), err)
		p.f.logger.Warn("batched open failed, batch dropped",
			logpkg.String("worker", b.conn.Addr().String()),
			logpkg.Int("entries", len(b.entries)),
			logpkg.Err(err))
		return
	}

	mu.Lock()
	for i, status := range resp.Statuses {
		if status == transport.StatusSuccess && resp.Tokens[i] != "" {
			p.tokens[b.locations[i]] = resp.Tokens[i]
		}
	}
	mu.Unlock()
}
