package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-likelihood/internal/climate"
	"github.com/i474232898/weather-likelihood/internal/weather"
)

var (
	// ErrNotFound is returned when no fresh series is cached for a key.
	ErrNotFound = errors.New("no cached series for key")
)

type entry struct {
	series   climate.Series
	storedAt time.Time
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Evicted uint64 `json:"evicted"`
}

// MemoryStore is a concurrency-safe in-memory series cache.
type MemoryStore struct {
	mu sync.RWMutex

	// key: SeriesKey.String()
	data  map[string]*entry
	order []string // insertion order, oldest first

	// retention configuration
	maxEntries int           // max number of cached series
	maxAge     time.Duration // optional max age of a series

	hits, misses, evicted uint64

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxEntries or maxAge is <= 0, that limit is not enforced.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Put stores series under key and enforces retention.
func (s *MemoryStore) Put(key weather.SeriesKey, series climate.Series) {
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[k]; ok {
		s.removeOrder(k)
	}
	s.data[k] = &entry{series: series, storedAt: s.now()}
	s.order = append(s.order, k)

	// Enforce retention by count.
	for s.maxEntries > 0 && len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.data, oldest)
		s.evicted++
	}
}

// Get returns the series cached under key, or ErrNotFound if it is missing
// or older than maxAge.
func (s *MemoryStore) Get(key weather.SeriesKey) (climate.Series, error) {
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[k]
	if !ok || s.expired(e) {
		s.misses++
		return climate.Series{}, ErrNotFound
	}
	s.hits++
	return e.series, nil
}

// Sweep drops every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxAge <= 0 {
		return 0
	}
	kept := s.order[:0]
	dropped := 0
	for _, k := range s.order {
		if s.expired(s.data[k]) {
			delete(s.data, k)
			dropped++
			continue
		}
		kept = append(kept, k)
	}
	s.order = kept
	s.evicted += uint64(dropped)
	return dropped
}

// Stats returns current usage counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Entries: len(s.data),
		Hits:    s.hits,
		Misses:  s.misses,
		Evicted: s.evicted,
	}
}

func (s *MemoryStore) expired(e *entry) bool {
	if s.maxAge <= 0 {
		return false
	}
	return s.now().Sub(e.storedAt) > s.maxAge
}

func (s *MemoryStore) removeOrder(k string) {
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
