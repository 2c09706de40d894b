package device

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Store keeps the latest record per device key. Writers are serialized and
// publish a fresh Snapshot on every change, so readers never lock.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptySnapshot)
	return s
}

// Apply inserts or replaces every record by key and publishes the result.
// When a key repeats within records the last occurrence wins.
func (s *Store) Apply(records []Record) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	if len(records) == 0 {
		return prev
	}
	next := make(map[string]Record, len(prev.records)+len(records))
	for k, r := range prev.records {
		next[k] = r
	}
	for _, r := range records {
		next[r.Key] = r
	}
	snap := &Snapshot{records: next}
	s.current.Store(snap)
	return snap
}

// View returns the current snapshot.
func (s *Store) View() *Snapshot {
	return s.current.Load()
}

// Lookup returns the current record for key.
func (s *Store) Lookup(key string) (Record, bool) {
	return s.current.Load().Get(key)
}

// Len returns the number of devices currently known.
func (s *Store) Len() int {
	return s.current.Load().Len()
}

// Sweep removes records last seen before olderThan (epoch seconds, ignored when
// <= 0) and then drops the least recently seen records until at most maxRecords
// remain (ignored when <= 0). It returns how many records were removed.
func (s *Store) Sweep(olderThan int64, maxRecords int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := make(map[string]Record, len(prev.records))
	for k, r := range prev.records {
		if olderThan > 0 && r.LastSeen < olderThan {
			continue
		}
		next[k] = r
	}
	if maxRecords > 0 && len(next) > maxRecords {
		kept := make([]Record, 0, len(next))
		for _, r := range next {
			kept = append(kept, r)
		}
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].LastSeen != kept[j].LastSeen {
				return kept[i].LastSeen < kept[j].LastSeen
			}
			return kept[i].Key < kept[j].Key
		})
		for _, r := range kept[:len(kept)-maxRecords] {
			delete(next, r.Key)
		}
	}
	removed := len(prev.records) - len(next)
	if removed > 0 {
		s.current.Store(&Snapshot{records: next})
	}
	return removed
}
