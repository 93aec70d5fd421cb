package shuffle

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/zzcclp/blaze/internal/config"
	"github.com/zzcclp/blaze/internal/metrics"
	"github.com/zzcclp/blaze/internal/taskctx"
	"github.com/zzcclp/blaze/internal/transport"
	"github.com/zzcclp/blaze/internal/workerpool"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// Options configures a Fetcher.
type Options struct {
	// Locations resolves shuffle data placement and accepts failure reports.
	Locations LocationService
	// Clients hands out pooled connections per worker address.
	Clients transport.Factory
	// Pool executes open calls and creation tasks. Defaults to the shared
	// process-wide pool.
	Pool *workerpool.Pool
	// Excluder learns about unreachable workers. Defaults to a no-op.
	Excluder Excluder
	// Logger defaults to a discard logger.
	Logger logpkg.Logger
	// Config holds fetch tunables. Zero values fall back to defaults.
	Config config.FetchConfig
	// AppShuffleID names the application-level shuffle in fetch failures.
	AppShuffleID string
}

// Fetcher builds fetch pipelines for one application. It is safe for use by
// concurrent tasks; each Fetch call creates an independent pipeline instance.
type Fetcher struct {
	locations LocationService
	clients   transport.Factory
	pool      *workerpool.Pool
	exclude   Excluder
	logger    logpkg.Logger
	localHost string

	appShuffleID       string
	window             int
	openTimeout        time.Duration
	pollInterval       time.Duration
	throwsFetchFailure bool
}

// New validates options and constructs a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if opts.Locations == nil {
		return nil, errors.New("shuffle: Options.Locations is required")
	}
	if opts.Clients == nil {
		return nil, errors.New("shuffle: Options.Clients is required")
	}
	cfg := opts.Config
	def := config.Default().Fetch
	if cfg.CreationWindow < 1 {
		cfg.CreationWindow = def.CreationWindow
	}
	if cfg.OpenTimeoutMs < 1 {
		cfg.OpenTimeoutMs = def.OpenTimeoutMs
	}
	if cfg.PollIntervalMs < 1 {
		cfg.PollIntervalMs = def.PollIntervalMs
	}
	pool := opts.Pool
	if pool == nil {
		pool = workerpool.Shared()
	}
	excl := opts.Excluder
	if excl == nil {
		excl = noopExcluder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	host, _ := os.Hostname()
	return &Fetcher{
		locations:          opts.Locations,
		clients:            opts.Clients,
		pool:               pool,
		exclude:            excl,
		logger:             logger.With(logpkg.Component("shuffle-fetch")),
		localHost:          host,
		appShuffleID:       opts.AppShuffleID,
		window:             cfg.CreationWindow,
		openTimeout:        time.Duration(cfg.OpenTimeoutMs) * time.Millisecond,
		pollInterval:       time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		throwsFetchFailure: cfg.ThrowsFetchFailure,
	}, nil
}

// Fetch resolves locations for shuffleID and starts the fetch pipeline for
// the given partition range. The returned iterator yields (partition, stream)
// pairs in ascending partition order and must be consumed exactly once,
// forward-only, on the task's own goroutine.
//
// A nil maps range means all mapper outputs are visible.
func (f *Fetcher) Fetch(ctx context.Context, shuffleID int, partitions PartitionRange, maps *MapRange, task *taskctx.TaskContext) (*Iterator, error) {
	if err := partitions.Validate(); err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errors.New("shuffle: task context is required")
	}
	m := AllMaps()
	if maps != nil {
		m = *maps
	}

	groups, err := f.locations.ResolveLocations(ctx, shuffleID, partitions.Start)
	if err != nil {
		// Interruption and timeout are cancellation signals, passed through
		// unchanged. Every other discovery error blocks all partitions and is
		// reported as a fetch failure for the first partition of the range.
		if transport.IsInterruption(err) || transport.IsTimeout(err) {
			return nil, err
		}
		return nil, f.escalateFetchFailure(shuffleID, partitions.Start, err)
	}

	p := &pipeline{
		f:         f,
		shuffleID: shuffleID,
		r:         partitions,
		maps:      m,
		groups:    groups,
		task:      task,
		reg:       newStreamRegistry(),
		fault:     &faultState{},
		tokens:    make(map[Location]string),
	}
	// Every opened stream is released when the task ends, however it ends:
	// yielded streams via their own close callbacks, realized-but-unconsumed
	// streams via the registry sweep.
	task.OnCompletion(p.reg.closeAll)

	go p.run(ctx)

	f.logger.Debug("fetch pipeline started",
		logpkg.Int("shuffle", shuffleID),
		logpkg.Int("start", partitions.Start),
		logpkg.Int("end", partitions.End),
		logpkg.Int("mappers", groups.MapperCount))

	return &Iterator{ctx: ctx, p: p, next: partitions.Start}, nil
}

type streamSpec struct {
	shuffleID int
	partition int
	maps      MapRange
	attempts  []int64
}

// openReplica opens the per-partition streaming read against one location.
// The post-open adjustment forces raw reads: the writer side never compresses
// partition bytes, so any recompression the stream assumes is spurious.
func (f *Fetcher) openReplica(ctx context.Context, loc Location, token string, spec streamSpec) (io.ReadCloser, error) {
	conn, err := f.clients.Client(loc.Worker)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenPartitionStream(ctx, transport.StreamSpec{
		ShuffleID: spec.shuffleID,
		Partition: spec.partition,
		Token:     token,
		StartMap:  spec.maps.Start,
		EndMap:    spec.maps.End,
		Attempts:  spec.attempts,
	})
	if err != nil {
		return nil, err
	}
	stream.DisableRecompression()
	return stream, nil
}

// escalateFetchFailure converts a lost-data cause into a stage-retryable
// error when configured to and when the location service accepts the report;
// otherwise the original cause propagates unchanged.
func (f *Fetcher) escalateFetchFailure(shuffleID, partition int, cause error) error {
	if f.throwsFetchFailure && f.locations.ReportFetchFailure(f.appShuffleID, shuffleID) {
		metrics.FetchFailuresTotal.WithLabelValues(strconv.Itoa(shuffleID)).Inc()
		return &FetchFailureError{
			AppShuffleID: f.appShuffleID,
			ShuffleID:    shuffleID,
			Partition:    partition,
			Cause:        cause,
		}
	}
	return cause
}

// escalate maps a fault capture to the error surfaced to the consuming task.
func (f *Fetcher) escalate(shuffleID int, c *capture) error {
	switch c.kind {
	case KindRetryable:
		return c.err
	case KindFetchFailure:
		return f.escalateFetchFailure(shuffleID, c.partition, c.err)
	default:
		return c.err
	}
}
