package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zzcclp/blaze/internal/blockstore"
	"github.com/zzcclp/blaze/internal/transport"
	"github.com/zzcclp/blaze/pkg/id"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

// Server is the storage worker's HTTP face: batched stream opens, raw
// partition stream reads, and block ingest.
type Server struct {
	workerID string
	store    *blockstore.Store
	logger   logpkg.Logger
	srv      *http.Server
	lis      net.Listener

	gen    *id.Generator
	mu     sync.Mutex
	tokens map[id.Token]openGrant
}

// openGrant records what one issued token may read.
type openGrant struct {
	shuffleID int
	entry     transport.OpenEntry
}

// New builds a Server over the given block store.
func New(store *blockstore.Store, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{
		workerID: uuid.NewString(),
		store:    store,
		logger:   logger.With(logpkg.Component("shuffle-worker")),
		srv:      &http.Server{Handler: mux},
		gen:      id.NewGenerator(),
		tokens:   make(map[id.Token]openGrant),
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/shuffle/open", s.handleOpen)
	mux.HandleFunc("/v1/shuffle/stream", s.handleStream)
	mux.HandleFunc("/v1/shuffle/blocks", s.handleBlocks)
	mux.HandleFunc("/v1/shuffle/meta", s.handleMeta)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler exposes the mux, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("worker listening",
		logpkg.String("addr", l.Addr().String()),
		logpkg.String("worker", s.workerID))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "worker": s.workerID})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req transport.OpenStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad open request", http.StatusBadRequest)
		return
	}

	resp := transport.OpenStreamResponse{
		Statuses: make([]transport.EntryStatus, len(req.Entries)),
		Tokens:   make([]string, len(req.Entries)),
	}
	for i, entry := range req.Entries {
		ok, err := s.store.HasFile(req.ShuffleID, entry.FileName)
		switch {
		case err != nil:
			resp.Statuses[i] = transport.StatusError
		case !ok:
			resp.Statuses[i] = transport.StatusNotFound
		default:
			token := s.gen.Next()
			s.mu.Lock()
			s.tokens[token] = openGrant{shuffleID: req.ShuffleID, entry: entry}
			s.mu.Unlock()
			resp.Statuses[i] = transport.StatusSuccess
			resp.Tokens[i] = token.String()
		}
	}
	s.logger.Debug("opened streams",
		logpkg.Int("shuffle", req.ShuffleID),
		logpkg.Int("entries", len(req.Entries)))
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	token, err := id.Parse(q.Get("token"))
	if err != nil {
		http.Error(w, "bad token", http.StatusBadRequest)
		return
	}
	partition, err := intParam(q.Get("partition"))
	if err != nil {
		http.Error(w, "bad partition", http.StatusBadRequest)
		return
	}
	shuffleID, err := intParam(q.Get("shuffle"))
	if err != nil {
		http.Error(w, "bad shuffle", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	grant, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok || grant.shuffleID != shuffleID {
		http.Error(w, "unknown stream token", http.StatusNotFound)
		return
	}

	rc, err := s.store.BlockReader(grant.shuffleID, grant.entry.FileName, partition,
		grant.entry.StartMap, grant.entry.EndMap)
	if err != nil {
		if errors.Is(err, blockstore.ErrNoSuchFile) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	// Partition bytes are served raw; the writer never compressed them.
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := copyStream(w, rc); err != nil {
		s.logger.Warn("stream copy aborted",
			logpkg.Int("shuffle", shuffleID),
			logpkg.Int("partition", partition),
			logpkg.Err(err))
	}
}

type blockPutRequest struct {
	ShuffleID int    `json:"shuffleId"`
	FileName  string `json:"fileName"`
	Partition int    `json:"partition"`
	MapIndex  int    `json:"mapIndex"`
	Payload   []byte `json:"payload"`
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req blockPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad block request", http.StatusBadRequest)
		return
	}
	if err := s.store.PutBlock(req.ShuffleID, req.FileName, req.Partition, req.MapIndex, req.Payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type metaPutRequest struct {
	ShuffleID int             `json:"shuffleId"`
	Meta      blockstore.Meta `json:"meta"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req metaPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad meta request", http.StatusBadRequest)
		return
	}
	if err := s.store.PutMeta(req.ShuffleID, req.Meta); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
