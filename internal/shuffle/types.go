package shuffle

import (
	"context"
	"fmt"
	"io"

	"github.com/zzcclp/blaze/internal/transport"
)

// PartitionRange is a half-open interval [Start, End) over partition ids.
type PartitionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of partitions in the range.
func (r PartitionRange) Len() int { return r.End - r.Start }

// Validate checks the Start <= End invariant.
func (r PartitionRange) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("invalid partition range [%d, %d)", r.Start, r.End)
	}
	return nil
}

// MapRange is a half-open interval [Start, End) over mapper indices. A
// negative End means unbounded. It scopes which upstream map outputs are
// visible after partial or retried stages.
type MapRange struct {
	Start int `json:"startMap"`
	End   int `json:"endMap"`
}

// AllMaps covers every mapper index.
func AllMaps() MapRange { return MapRange{Start: 0, End: -1} }

// Location identifies one physical copy of one partition's data: a worker
// address plus the shuffle file holding it. Replica order is the order
// locations appear in FileGroups.
type Location struct {
	Worker   transport.WorkerAddress `json:"worker"`
	FileName string                  `json:"fileName"`
}

// FileGroups is the resolved location mapping for one shuffle: ordered
// replica locations per partition id, plus mapper attempt metadata.
type FileGroups struct {
	// Partitions maps partition id to its replica locations, first preferred.
	Partitions map[int][]Location
	// MapperCount is the number of upstream map tasks. Zero means the map
	// stage produced no rows at all.
	MapperCount int
	// Attempts holds the accepted attempt id per mapper index.
	Attempts []int64
}

// LocationService resolves where shuffle data lives and accepts fetch-failure
// reports that make a stage retryable.
type LocationService interface {
	// ResolveLocations returns the location mapping for shuffleID. The
	// partition hint names any partition the caller is about to read.
	ResolveLocations(ctx context.Context, shuffleID, partitionHint int) (FileGroups, error)

	// ReportFetchFailure tells the service that shuffle data was lost.
	// Returns whether the report was accepted; only then may the caller
	// raise a stage-retryable fetch failure.
	ReportFetchFailure(appShuffleID string, shuffleID int) bool
}

// Excluder receives worker addresses that failed connection acquisition so
// future location selection can avoid them.
type Excluder interface {
	Exclude(addr transport.WorkerAddress, cause error)
}

// ExcluderFunc adapts a function to the Excluder interface.
type ExcluderFunc func(addr transport.WorkerAddress, cause error)

// Exclude implements Excluder.
func (f ExcluderFunc) Exclude(addr transport.WorkerAddress, cause error) { f(addr, cause) }

type noopExcluder struct{}

func (noopExcluder) Exclude(transport.WorkerAddress, error) {}

// EmptyStream is the sentinel yielded internally for partitions that
// legitimately have no data. It is filtered out of iterator output and must
// be compared by identity, never read as a real opened stream.
var EmptyStream io.ReadCloser = emptyStream{}

type emptyStream struct{}

func (emptyStream) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyStream) Close() error             { return nil }
