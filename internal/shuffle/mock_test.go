package shuffle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zzcclp/blaze/internal/transport"
)

// trackedStream is an in-memory partition stream whose close is observable
// and idempotent.
type trackedStream struct {
	r      *bytes.Reader
	closed atomic.Bool
}

func newTrackedStream(data []byte) *trackedStream {
	return &trackedStream{r: bytes.NewReader(data)}
}

func (s *trackedStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *trackedStream) Close() error               { s.closed.Store(true); return nil }

// fakeConn is an in-memory worker: files hold per-partition bytes, opens
// issue tokens, and failure modes are switchable per file or per worker.
type fakeConn struct {
	addr transport.WorkerAddress

	mu     sync.Mutex
	files  map[string]map[int][]byte // file -> partition -> bytes
	grants map[string]string         // token -> file

	failOpenBatch   error           // OpenStreams returns this when set
	failStreamFiles map[string]bool // per-file stream-open failures
	streamGate      chan struct{}   // when set, stream opens block until closed

	openBatchCalls  atomic.Int32
	openStreamCalls atomic.Int32
	opened          []*trackedStream
}

func newFakeConn(addr transport.WorkerAddress) *fakeConn {
	return &fakeConn{
		addr:   addr,
		files:  make(map[string]map[int][]byte),
		grants: make(map[string]string),
	}
}

func (c *fakeConn) putBlock(file string, partition int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.files[file] == nil {
		c.files[file] = make(map[int][]byte)
	}
	c.files[file][partition] = append(c.files[file][partition], data...)
}

func (c *fakeConn) Addr() transport.WorkerAddress { return c.addr }

func (c *fakeConn) OpenStreams(_ context.Context, req transport.OpenStreamRequest, _ time.Duration) (transport.OpenStreamResponse, error) {
	c.openBatchCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOpenBatch != nil {
		return transport.OpenStreamResponse{}, c.failOpenBatch
	}
	resp := transport.OpenStreamResponse{
		Statuses: make([]transport.EntryStatus, len(req.Entries)),
		Tokens:   make([]string, len(req.Entries)),
	}
	for i, entry := range req.Entries {
		if _, ok := c.files[entry.FileName]; !ok {
			resp.Statuses[i] = transport.StatusNotFound
			continue
		}
		token := fmt.Sprintf("%s/%s/%d", c.addr, entry.FileName, i)
		c.grants[token] = entry.FileName
		resp.Statuses[i] = transport.StatusSuccess
		resp.Tokens[i] = token
	}
	return resp, nil
}

func (c *fakeConn) OpenPartitionStream(_ context.Context, spec transport.StreamSpec) (*transport.PartitionStream, error) {
	c.openStreamCalls.Add(1)
	c.mu.Lock()
	gate := c.streamGate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	file, ok := c.grants[spec.Token]
	if !ok {
		return nil, fmt.Errorf("unknown token %q", spec.Token)
	}
	if c.failStreamFiles[file] {
		return nil, fmt.Errorf("stream open refused for %s", file)
	}
	s := newTrackedStream(c.files[file][spec.Partition])
	c.opened = append(c.opened, s)
	return transport.NewPartitionStream(s, ""), nil
}

func (c *fakeConn) openedStreams() []*trackedStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*trackedStream(nil), c.opened...)
}

// fakeFactory is an in-memory connection factory with injectable
// acquisition failures.
type fakeFactory struct {
	mu          sync.Mutex
	conns       map[transport.WorkerAddress]*fakeConn
	failAddrs   map[transport.WorkerAddress]error
	clientCalls int
}

func newFakeFactory(conns ...*fakeConn) *fakeFactory {
	f := &fakeFactory{
		conns:     make(map[transport.WorkerAddress]*fakeConn),
		failAddrs: make(map[transport.WorkerAddress]error),
	}
	for _, c := range conns {
		f.conns[c.addr] = c
	}
	return f
}

func (f *fakeFactory) Client(addr transport.WorkerAddress) (transport.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientCalls++
	if err, ok := f.failAddrs[addr]; ok {
		return nil, err
	}
	c, ok := f.conns[addr]
	if !ok {
		return nil, fmt.Errorf("no such worker %s", addr)
	}
	return c, nil
}

func readAll(t interface{ Fatalf(string, ...interface{}) }, rc io.ReadCloser) string {
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	_ = rc.Close()
	return string(b)
}
