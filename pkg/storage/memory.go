package storage

import (
	"sort"
	"sync"
	"time"
)

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithInvalidator registers an invalidator at construction time
func WithInvalidator(inv Invalidator) Option {
	return func(s *MemoryStore) {
		if inv != nil {
			s.invalidators = append(s.invalidators, inv)
		}
	}
}

// WithClock overrides the time source used for LastUpdated
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore is a concurrency-safe in-memory Store
type MemoryStore struct {
	records      map[string]*Record
	invalidators []Invalidator
	now          func() time.Time
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInvalidator registers an invalidator. Invalidators run while the store
// write lock is held and must not call back into the store.
func (s *MemoryStore) AddInvalidator(inv Invalidator) {
	if inv == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidators = append(s.invalidators, inv)
}

// UpdateDependencies replaces the dependency list of module. A non-nil
// metadata map also replaces the metadata.
func (s *MemoryStore) UpdateDependencies(module string, deps []string, metadata map[string]interface{}) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(module)
	previous := rec.Dependencies
	rec.Dependencies = copyStrings(deps)
	if metadata != nil {
		rec.Metadata = copyMetadata(metadata)
	}
	rec.LastUpdated = s.now()

	for _, name := range s.affectedLocked(module, previous) {
		s.invalidateLocked(name)
	}
	return cloneRecord(rec)
}

// UpdateMetadata overwrites the metadata of module. Metadata only feeds the
// module's own analysis, so no other module is invalidated.
func (s *MemoryStore) UpdateMetadata(module string, metadata map[string]interface{}) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(module)
	rec.Metadata = copyMetadata(metadata)
	rec.LastUpdated = s.now()

	s.invalidateLocked(module)
	return cloneRecord(rec)
}

// Get returns a copy of the record, or an empty record for unknown modules
func (s *MemoryStore) Get(module string) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[module]
	if !ok {
		return Record{
			Name:         module,
			Dependencies: []string{},
			Metadata:     map[string]interface{}{},
		}
	}
	return cloneRecord(rec)
}

// Modules returns the known module names in sorted order
func (s *MemoryStore) Modules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every record
func (s *MemoryStore) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.records))
	for name, rec := range s.records {
		out[name] = cloneRecord(rec)
	}
	return out
}

// Len returns the number of known modules
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) recordLocked(module string) *Record {
	rec, ok := s.records[module]
	if !ok {
		rec = &Record{
			Name:         module,
			Dependencies: []string{},
			Metadata:     map[string]interface{}{},
		}
		s.records[module] = rec
	}
	return rec
}

// affectedLocked returns the modules whose derived views read the dependency
// list of module: module itself first, then its previous and current direct
// dependencies (their dependents and circular sets) and every module that
// reaches it (their indirect sets and depth), sorted.
func (s *MemoryStore) affectedLocked(module string, previous []string) []string {
	affected := make(map[string]bool)
	for _, d := range previous {
		affected[d] = true
	}
	for _, d := range s.records[module].Dependencies {
		affected[d] = true
	}

	reverse := make(map[string][]string, len(s.records))
	for name, rec := range s.records {
		for _, d := range rec.Dependencies {
			reverse[d] = append(reverse[d], name)
		}
	}
	reached := map[string]bool{module: true}
	queue := []string{module}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, parent := range reverse[current] {
			if reached[parent] {
				continue
			}
			reached[parent] = true
			affected[parent] = true
			queue = append(queue, parent)
		}
	}

	delete(affected, module)
	out := make([]string, 0, len(affected)+1)
	for name := range affected {
		out = append(out, name)
	}
	sort.Strings(out)
	return append([]string{module}, out...)
}

func (s *MemoryStore) invalidateLocked(module string) {
	for _, inv := range s.invalidators {
		inv.Invalidate(module)
	}
}

func cloneRecord(rec *Record) Record {
	return Record{
		Name:         rec.Name,
		Dependencies: copyStrings(rec.Dependencies),
		Metadata:     copyMetadata(rec.Metadata),
		LastUpdated:  rec.LastUpdated,
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyMetadata(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
