package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// HTTPFactory hands out one pooled connection per worker address, created on
// first use. The underlying http.Client reuses keep-alive connections, and
// transparent response decompression is disabled so stream bytes arrive raw.
type HTTPFactory struct {
	mu     sync.Mutex
	conns  map[WorkerAddress]*httpConnection
	client *http.Client
}

// NewHTTPFactory creates a factory with a shared HTTP client.
func NewHTTPFactory() *HTTPFactory {
	tr := &http.Transport{
		DisableCompression:  true,
		MaxIdleConnsPerHost: 8,
	}
	return &HTTPFactory{
		conns:  make(map[WorkerAddress]*httpConnection),
		client: &http.Client{Transport: tr},
	}
}

// Client returns the connection for addr, creating it if needed.
func (f *HTTPFactory) Client(addr WorkerAddress) (Connection, error) {
	if addr.Host == "" || addr.Port <= 0 {
		return nil, fmt.Errorf("invalid worker address %q", addr.String())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conns[addr]; ok {
		return c, nil
	}
	c := &httpConnection{
		addr:    addr,
		baseURL: "http://" + addr.String(),
		client:  f.client,
	}
	f.conns[addr] = c
	return c, nil
}

type httpConnection struct {
	addr    WorkerAddress
	baseURL string
	client  *http.Client
}

func (c *httpConnection) Addr() WorkerAddress { return c.addr }

func (c *httpConnection) OpenStreams(ctx context.Context, req OpenStreamRequest, timeout time.Duration) (OpenStreamResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OpenStreamResponse{}, fmt.Errorf("encode open request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(cctx, http.MethodPost, c.baseURL+"/v1/shuffle/open", bytes.NewReader(body))
	if err != nil {
		return OpenStreamResponse{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(hreq)
	if err != nil {
		return OpenStreamResponse{}, fmt.Errorf("open streams on %s: %w", c.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return OpenStreamResponse{}, fmt.Errorf("open streams on %s: %s", c.addr, readErrorBody(resp.Body, resp.Status))
	}

	var out OpenStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return OpenStreamResponse{}, fmt.Errorf("decode open response from %s: %w", c.addr, err)
	}
	if len(out.Statuses) != len(req.Entries) || len(out.Tokens) != len(req.Entries) {
		return OpenStreamResponse{}, fmt.Errorf("open response from %s: %d entries submitted, %d statuses returned",
			c.addr, len(req.Entries), len(out.Statuses))
	}
	return out, nil
}

func (c *httpConnection) OpenPartitionStream(ctx context.Context, spec StreamSpec) (*PartitionStream, error) {
	q := url.Values{}
	q.Set("shuffle", strconv.Itoa(spec.ShuffleID))
	q.Set("partition", strconv.Itoa(spec.Partition))
	q.Set("token", spec.Token)
	q.Set("startMap", strconv.Itoa(spec.StartMap))
	q.Set("endMap", strconv.Itoa(spec.EndMap))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/shuffle/stream?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Accept-Encoding", "identity")

	resp, err := c.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("open partition stream on %s: %w", c.addr, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("open partition stream on %s: %s", c.addr, readErrorBody(resp.Body, resp.Status))
	}
	return NewPartitionStream(resp.Body, resp.Header.Get("Content-Encoding")), nil
}

func readErrorBody(r io.Reader, status string) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return status
	}
	return status + ": " + string(bytes.TrimSpace(b))
}

var _ Factory = (*HTTPFactory)(nil)
