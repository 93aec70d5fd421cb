package blockstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/zzcclp/blaze/internal/storage/pebble"
)

// ErrNoSuchFile is returned when an open references a file with no blocks.
var ErrNoSuchFile = errors.New("blockstore: no such shuffle file")

// Meta describes one registered shuffle.
type Meta struct {
	// MapperCount is the number of upstream map tasks that produced output.
	MapperCount int `json:"mapperCount"`
	// Attempts holds the accepted attempt id per mapper index.
	Attempts []int64 `json:"attempts"`
}

// Store persists shuffle partition blocks, keyed so that all blocks of one
// (file, partition) pair sort contiguously in map-index order.
type Store struct {
	db *pebblestore.DB
}

// New wraps an open DB.
func New(db *pebblestore.DB) *Store { return &Store{db: db} }

// Open opens a store rooted at dir. Writes are unsynced: shuffle data is
// recomputable, so losing the tail on a crash only costs a stage retry.
func Open(dir string) (*Store, error) {
	return open(dir, false)
}

// OpenSynced opens a store that fsyncs every block write.
func OpenSynced(dir string) (*Store, error) {
	return open(dir, true)
}

func open(dir string, sync bool) (*Store, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Sync: sync})
	if err != nil {
		return nil, fmt.Errorf("open blockstore: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }

// PutMeta registers shuffle metadata.
func (s *Store) PutMeta(shuffleID int, meta Meta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal shuffle meta: %w", err)
	}
	return s.db.Set(keyShuffleMeta(uint32(shuffleID)), b)
}

// GetMeta loads shuffle metadata. A shuffle with no registered meta reports
// zero mappers.
func (s *Store) GetMeta(shuffleID int) (Meta, error) {
	b, err := s.db.Get(keyShuffleMeta(uint32(shuffleID)))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Meta{}, nil
		}
		return Meta{}, fmt.Errorf("read shuffle meta: %w", err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, fmt.Errorf("decode shuffle meta: %w", err)
	}
	return m, nil
}

// PutBlock stores the bytes one mapper produced for one partition of a file.
func (s *Store) PutBlock(shuffleID int, file string, partition, mapIndex int, data []byte) error {
	if file == "" {
		return errors.New("blockstore: empty file name")
	}
	return s.db.Set(keyBlock(uint32(shuffleID), file, uint32(partition), uint32(mapIndex)), data)
}

// HasFile reports whether any block exists under the given file name.
func (s *Store) HasFile(shuffleID int, file string) (bool, error) {
	prefix := keyFilePrefix(uint32(shuffleID), file)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return false, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()
	return iter.First(), nil
}

// BlockReader returns the concatenated bytes of one partition across the map
// index range [startMap, endMap), in ascending map order. endMap < 0 means
// unbounded.
func (s *Store) BlockReader(shuffleID int, file string, partition, startMap, endMap int) (io.ReadCloser, error) {
	ok, err := s.HasFile(shuffleID, file)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchFile
	}

	prefix := keyBlockPrefix(uint32(shuffleID), file, uint32(partition))
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var buf bytes.Buffer
	for ok := iter.First(); ok; ok = iter.Next() {
		m := int(mapIndexFromKey(iter.Key()))
		if m < startMap {
			continue
		}
		if endMap >= 0 && m >= endMap {
			break
		}
		buf.Write(iter.Value())
	}
	return io.NopCloser(&buf), nil
}

func upperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	return append(ub, 0xff, 0xff, 0xff, 0xff, 0xff)
}
