package shuffle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/zzcclp/blaze/internal/transport"
)

// StaticLocations is a LocationService backed by an in-memory table. It
// serves the CLI (locations loaded from a JSON file) and tests.
type StaticLocations struct {
	mu       sync.Mutex
	shuffles map[int]FileGroups
	reported []int
}

// NewStaticLocations builds a service over the given per-shuffle groups.
func NewStaticLocations(shuffles map[int]FileGroups) *StaticLocations {
	return &StaticLocations{shuffles: shuffles}
}

// ResolveLocations implements LocationService.
func (s *StaticLocations) ResolveLocations(_ context.Context, shuffleID, _ int) (FileGroups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups, ok := s.shuffles[shuffleID]
	if !ok {
		return FileGroups{}, fmt.Errorf("unknown shuffle %d", shuffleID)
	}
	return groups, nil
}

// ReportFetchFailure implements LocationService. Static tables cannot
// regenerate data, but the report is always accepted so the stage scheduler
// can retry.
func (s *StaticLocations) ReportFetchFailure(_ string, shuffleID int) bool {
	s.mu.Lock()
	s.reported = append(s.reported, shuffleID)
	s.mu.Unlock()
	return true
}

// Reported returns the shuffle ids whose failures were reported.
func (s *StaticLocations) Reported() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.reported...)
}

// locationsFile is the JSON schema for LoadLocationsFile.
type locationsFile struct {
	Shuffles map[string]shuffleEntry `json:"shuffles"`
}

type shuffleEntry struct {
	MapperCount int                       `json:"mapperCount"`
	Attempts    []int64                   `json:"attempts"`
	Partitions  map[string][]locationSpec `json:"partitions"`
}

type locationSpec struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	FileName string `json:"fileName"`
}

// LoadLocationsFile reads a static location table from a JSON file:
//
//	{"shuffles": {"1": {
//	  "mapperCount": 3,
//	  "partitions": {"0": [{"host": "w1", "port": 7337, "fileName": "s1.data"}]}
//	}}}
func LoadLocationsFile(path string) (*StaticLocations, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	var lf locationsFile
	if err := json.Unmarshal(b, &lf); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}

	shuffles := make(map[int]FileGroups, len(lf.Shuffles))
	for sid, entry := range lf.Shuffles {
		shuffleID, err := strconv.Atoi(sid)
		if err != nil {
			return nil, fmt.Errorf("invalid shuffle id %q", sid)
		}
		groups := FileGroups{
			Partitions:  make(map[int][]Location, len(entry.Partitions)),
			MapperCount: entry.MapperCount,
			Attempts:    entry.Attempts,
		}
		for pid, specs := range entry.Partitions {
			partition, err := strconv.Atoi(pid)
			if err != nil {
				return nil, fmt.Errorf("invalid partition id %q in shuffle %s", pid, sid)
			}
			locs := make([]Location, 0, len(specs))
			for _, spec := range specs {
				locs = append(locs, Location{
					Worker:   transport.WorkerAddress{Host: spec.Host, Port: spec.Port},
					FileName: spec.FileName,
				})
			}
			groups.Partitions[partition] = locs
		}
		shuffles[shuffleID] = groups
	}
	return NewStaticLocations(shuffles), nil
}
