package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/zzcclp/blaze/internal/blockstore"
	"github.com/zzcclp/blaze/internal/transport"
)

func newTestServer(t *testing.T) (*Server, *blockstore.Store, *httptest.Server) {
	t.Helper()
	store, err := blockstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	s := New(store, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, store, ts
}

func workerAddr(t *testing.T, ts *httptest.Server) transport.WorkerAddress {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return transport.WorkerAddress{Host: u.Hostname(), Port: port}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["worker"] == "" {
		t.Fatalf("health = %v", body)
	}
}

func TestOpenThenStream(t *testing.T) {
	_, store, ts := newTestServer(t)
	if err := store.PutBlock(1, "s1.data", 0, 0, []byte("hello ")); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := store.PutBlock(1, "s1.data", 0, 1, []byte("world")); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	conn, err := transport.NewHTTPFactory().Client(workerAddr(t, ts))
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	resp, err := conn.OpenStreams(context.Background(), transport.OpenStreamRequest{
		ShuffleID: 1,
		Entries: []transport.OpenEntry{
			{FileName: "s1.data", StartMap: 0, EndMap: -1},
			{FileName: "missing.data", StartMap: 0, EndMap: -1},
		},
	}, time.Second)
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}
	if resp.Statuses[0] != transport.StatusSuccess || resp.Tokens[0] == "" {
		t.Fatalf("entry 0 = %s %q", resp.Statuses[0], resp.Tokens[0])
	}
	if resp.Statuses[1] != transport.StatusNotFound || resp.Tokens[1] != "" {
		t.Fatalf("entry 1 = %s %q", resp.Statuses[1], resp.Tokens[1])
	}

	stream, err := conn.OpenPartitionStream(context.Background(), transport.StreamSpec{
		ShuffleID: 1, Partition: 0, Token: resp.Tokens[0], StartMap: 0, EndMap: -1,
	})
	if err != nil {
		t.Fatalf("OpenPartitionStream: %v", err)
	}
	defer stream.Close()
	b, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "hello world" {
		t.Fatalf("stream = %q", b)
	}
}

func TestStreamHonorsGrantedMapRange(t *testing.T) {
	_, store, ts := newTestServer(t)
	for m := 0; m < 4; m++ {
		if err := store.PutBlock(2, "s2.data", 0, m, []byte{byte('a' + m)}); err != nil {
			t.Fatalf("PutBlock: %v", err)
		}
	}

	conn, err := transport.NewHTTPFactory().Client(workerAddr(t, ts))
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	resp, err := conn.OpenStreams(context.Background(), transport.OpenStreamRequest{
		ShuffleID: 2,
		Entries:   []transport.OpenEntry{{FileName: "s2.data", StartMap: 1, EndMap: 3}},
	}, time.Second)
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}

	stream, err := conn.OpenPartitionStream(context.Background(), transport.StreamSpec{
		ShuffleID: 2, Partition: 0, Token: resp.Tokens[0], StartMap: 1, EndMap: 3,
	})
	if err != nil {
		t.Fatalf("OpenPartitionStream: %v", err)
	}
	defer stream.Close()
	b, _ := io.ReadAll(stream)
	if string(b) != "bc" {
		t.Fatalf("ranged stream = %q, want bc", b)
	}
}

func TestStreamRejectsUnknownToken(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/shuffle/stream?shuffle=1&partition=0&token=00000000000000000000000000000000&startMap=0&endMap=-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamRejectsTokenFromOtherShuffle(t *testing.T) {
	_, store, ts := newTestServer(t)
	if err := store.PutBlock(3, "s3.data", 0, 0, []byte("x")); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	conn, err := transport.NewHTTPFactory().Client(workerAddr(t, ts))
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	resp, err := conn.OpenStreams(context.Background(), transport.OpenStreamRequest{
		ShuffleID: 3,
		Entries:   []transport.OpenEntry{{FileName: "s3.data", EndMap: -1}},
	}, time.Second)
	if err != nil {
		t.Fatalf("OpenStreams: %v", err)
	}

	_, err = conn.OpenPartitionStream(context.Background(), transport.StreamSpec{
		ShuffleID: 4, Partition: 0, Token: resp.Tokens[0], EndMap: -1,
	})
	if err == nil {
		t.Fatal("token accepted for the wrong shuffle")
	}
}

func TestBlockAndMetaIngest(t *testing.T) {
	_, store, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/shuffle/blocks", map[string]interface{}{
		"shuffleId": 5, "fileName": "s5.data", "partition": 1, "mapIndex": 0,
		"payload": []byte("ingested"),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("blocks status = %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/shuffle/meta", map[string]interface{}{
		"shuffleId": 5, "meta": blockstore.Meta{MapperCount: 1, Attempts: []int64{3}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("meta status = %d", resp.StatusCode)
	}

	meta, err := store.GetMeta(5)
	if err != nil || meta.MapperCount != 1 {
		t.Fatalf("meta = %+v, %v", meta, err)
	}
	rc, err := store.BlockReader(5, "s5.data", 1, 0, -1)
	if err != nil {
		t.Fatalf("BlockReader: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "ingested" {
		t.Fatalf("block = %q", b)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/shuffle/open")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
