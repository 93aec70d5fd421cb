package shuffle

import (
	"github.com/zzcclp/blaze/internal/metrics"
	"github.com/zzcclp/blaze/internal/transport"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// workerBatch accumulates the open-stream entries destined for one worker.
// entries and locations stay parallel: the response status/token at index i
// belongs to locations[i].
type workerBatch struct {
	conn      transport.Connection
	entries   []transport.OpenEntry
	locations []Location
}

// buildBatches scans the partition range and groups every location of every
// in-range partition into at most one batch per distinct worker address.
// Addresses whose connection acquisition fails are dropped for the whole
// pipeline and reported to the excluder; their locations simply never receive
// a token, so affected partitions fall through to the next replica at
// creation time.
func (p *pipeline) buildBatches() map[transport.WorkerAddress]*workerBatch {
	batches := make(map[transport.WorkerAddress]*workerBatch)
	dropped := make(map[transport.WorkerAddress]bool)
	seen := make(map[Location]bool)

	for pid := p.r.Start; pid < p.r.End; pid++ {
		for _, loc := range p.groups.Partitions[pid] {
			if seen[loc] || dropped[loc.Worker] {
				continue
			}
			seen[loc] = true

			batch, ok := batches[loc.Worker]
			if !ok {
				conn, err := p.f.clients.Client(loc.Worker)
				if err != nil {
					dropped[loc.Worker] = true
					p.f.exclude.Exclude(loc.Worker, err)
					metrics.WorkersExcludedTotal.Inc()
					p.f.logger.Warn("dropping unreachable worker",
						logpkg.String("worker", loc.Worker.String()), logpkg.Err(err))
					continue
				}
				batch = &workerBatch{conn: conn}
				batches[loc.Worker] = batch
			}
			batch.entries = append(batch.entries, transport.OpenEntry{
				FileName:        loc.FileName,
				StartMap:        p.maps.Start,
				EndMap:          p.maps.End,
				PreferLocalRead: loc.Worker.Host == p.f.localHost,
			})
			batch.locations = append(batch.locations, loc)
		}
	}
	return batches
}
