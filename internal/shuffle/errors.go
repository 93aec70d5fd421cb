package shuffle

import (
	"fmt"

	"github.com/zzcclp/blaze/internal/transport"
)

// Kind classifies a captured pipeline failure.
type Kind int

// Failure kinds
const (
	// KindRetryable marks interruption or request timeout: a task-level
	// cancellation signal, rethrown unchanged.
	KindRetryable Kind = iota
	// KindFetchFailure marks lost shuffle data: all replicas for a partition
	// failed, or discovery itself failed for a non-transient reason.
	KindFetchFailure
	// KindFatal marks everything unclassified; propagated with its original
	// cause intact, no retry attempted.
	KindFatal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindFetchFailure:
		return "fetch_failure"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchFailureError is the stage-retryable error raised when shuffle data for
// a partition could not be obtained from any replica. The stage scheduler is
// expected to regenerate the shuffle and retry the stage.
type FetchFailureError struct {
	AppShuffleID string
	ShuffleID    int
	Partition    int
	Cause        error
}

// Error implements error.
func (e *FetchFailureError) Error() string {
	return fmt.Sprintf("fetch failure: shuffle %d (app shuffle %s) partition %d: %v",
		e.ShuffleID, e.AppShuffleID, e.Partition, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FetchFailureError) Unwrap() error { return e.Cause }

// classifyCause separates cancellation signals from data failures. Only an
// explicit interruption/timeout cause is retryable; every other failure of a
// replica set or of discovery counts as lost data.
func classifyCause(err error) Kind {
	if transport.IsInterruption(err) || transport.IsTimeout(err) {
		return KindRetryable
	}
	return KindFetchFailure
}
