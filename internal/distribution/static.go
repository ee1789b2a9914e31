package distribution

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Static is an in-memory Provider and Catalog, filled from snapshots.
type Static struct {
	mu   sync.RWMutex
	sets map[RegionPeriod]Set
}

func NewStatic() *Static {
	return &Static{sets: make(map[RegionPeriod]Set)}
}

// Add registers set under region and period, replacing any previous one.
func (s *Static) Add(region, period string, set Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[RegionPeriod{Region: strings.ToUpper(region), Period: period}] = set
}

// Load returns the registered set, or an empty Set when none exists.
func (s *Static) Load(_ context.Context, region, period string) (Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[RegionPeriod{Region: strings.ToUpper(region), Period: period}]
	if !ok {
		return Set{}, nil
	}
	return set, nil
}

func (s *Static) ListRegions(_ context.Context) ([]RegionPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RegionPeriod, 0, len(s.sets))
	for k := range s.sets {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}
