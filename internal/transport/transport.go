package transport

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// WorkerAddress identifies one storage worker.
type WorkerAddress struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String returns host:port.
func (a WorkerAddress) String() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

// OpenEntry is one (file, map-range) pair in a batched open-stream request.
type OpenEntry struct {
	FileName string `json:"fileName"`
	StartMap int    `json:"startMap"`
	// EndMap is exclusive; a negative value means unbounded.
	EndMap          int  `json:"endMap"`
	PreferLocalRead bool `json:"preferLocalRead"`
}

// OpenStreamRequest opens streams for all entries on one worker in a single
// round trip.
type OpenStreamRequest struct {
	ShuffleID int         `json:"shuffleId"`
	Entries   []OpenEntry `json:"entries"`
}

// EntryStatus is the per-entry outcome of a batched open.
type EntryStatus string

// Entry statuses
const (
	StatusSuccess  EntryStatus = "success"
	StatusNotFound EntryStatus = "not_found"
	StatusError    EntryStatus = "error"
)

// OpenStreamResponse carries one status and token per submitted entry, in
// submission order. Tokens are empty for non-success entries.
type OpenStreamResponse struct {
	Statuses []EntryStatus `json:"statuses"`
	Tokens   []string      `json:"tokens"`
}

// StreamSpec identifies one per-partition streaming read.
type StreamSpec struct {
	ShuffleID int     `json:"shuffleId"`
	Partition int     `json:"partition"`
	Token     string  `json:"token"`
	StartMap  int     `json:"startMap"`
	EndMap    int     `json:"endMap"`
	Attempts  []int64 `json:"attempts,omitempty"`
}

// Connection is a pooled handle to one worker.
type Connection interface {
	Addr() WorkerAddress

	// OpenStreams performs the batched open round trip with the given
	// per-call timeout. This phase is pure request/response.
	OpenStreams(ctx context.Context, req OpenStreamRequest, timeout time.Duration) (OpenStreamResponse, error)

	// OpenPartitionStream starts the per-partition streaming read for a
	// previously issued token.
	OpenPartitionStream(ctx context.Context, spec StreamSpec) (*PartitionStream, error)
}

// Factory hands out pooled connections per worker address.
type Factory interface {
	Client(addr WorkerAddress) (Connection, error)
}

// PartitionStream is one partition's byte stream. If the transport reported a
// content encoding, Read decodes it lazily unless DisableRecompression was
// called first.
type PartitionStream struct {
	rc       io.ReadCloser
	encoding string
	reader   io.Reader
}

// NewPartitionStream wraps a raw stream with its declared content encoding.
func NewPartitionStream(rc io.ReadCloser, encoding string) *PartitionStream {
	return &PartitionStream{rc: rc, encoding: encoding}
}

// DisableRecompression forces raw reads. The shuffle writer never compresses
// partition bytes, so any encoding the transport assumes is spurious.
func (s *PartitionStream) DisableRecompression() { s.encoding = "" }

// Read implements io.Reader.
func (s *PartitionStream) Read(p []byte) (int, error) {
	if s.reader == nil {
		s.reader = s.rc
		if s.encoding == "gzip" {
			zr, err := gzip.NewReader(s.rc)
			if err != nil {
				return 0, fmt.Errorf("open gzip stream: %w", err)
			}
			s.reader = zr
		}
	}
	return s.reader.Read(p)
}

// Close implements io.Closer.
func (s *PartitionStream) Close() error { return s.rc.Close() }

// IsTimeout reports whether err is a request timeout or deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsInterruption reports whether err is a cancellation signal rather than a
// data failure.
func IsInterruption(err error) bool {
	return errors.Is(err, context.Canceled)
}
