package device

import "sort"

// Snapshot is an immutable view of the latest record per device key.
type Snapshot struct {
	records map[string]Record
}

var emptySnapshot = &Snapshot{records: map[string]Record{}}

// Len returns the number of devices in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Get returns the record stored for key.
func (s *Snapshot) Get(key string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	r, ok := s.records[key]
	return r, ok
}

// Keys returns all device keys in ascending order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records returns a copy of all records ordered by key.
func (s *Snapshot) Records() []Record {
	keys := s.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.records[k])
	}
	return out
}

// Range calls fn for every record in unspecified order until fn returns false.
func (s *Snapshot) Range(fn func(Record) bool) {
	if s == nil {
		return
	}
	for _, r := range s.records {
		if !fn(r) {
			return
		}
	}
}
