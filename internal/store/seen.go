// Package store persists identification history and tracks which player tracks were already seen.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFalsePositiveRate is the bloom filter's target false positive rate.
const DefaultFalsePositiveRate = 0.001

// SeenSet is a bounded, thread-safe set of track ids ordered by recency. The
// bloom filter answers most "never seen" checks without touching the LRU.
type SeenSet struct {
	mu                sync.Mutex
	bloom             *bloom.BloomFilter
	recent            *lru.Cache[string, struct{}]
	capacity          int
	falsePositiveRate float64
}

// NewSeenSet creates a set holding at most capacity ids.
func NewSeenSet(capacity int, falsePositiveRate float64) *SeenSet {
	if capacity <= 0 {
		panic("seen set capacity must be positive")
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultFalsePositiveRate
	}
	recent, _ := lru.New[string, struct{}](capacity)

	return &SeenSet{
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		recent:            recent,
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
}

// Contains reports whether id is in the set without changing its recency.
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contains(id)
}

// Mark records id as the most recently seen. It reports whether id was
// already present and returns the ids evicted to stay within capacity.
func (s *SeenSet) Mark(id string) (repeat bool, evicted []string) {
	if id == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contains(id) {
		s.recent.Get(id)
		return true, nil
	}

	evicted = s.makeRoom(1)
	s.bloom.AddString(id)
	s.recent.Add(id, struct{}{})
	return false, evicted
}

// Forget removes id. The bloom filter keeps its bit set, which only costs an
// extra LRU lookup on the next check.
func (s *SeenSet) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent.Remove(id)
}

// Reset replaces the contents with ids, oldest first. It returns the ids that
// did not fit within capacity.
func (s *SeenSet) Reset(ids []string) (evicted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bloom = bloom.NewWithEstimates(uint(s.capacity), s.falsePositiveRate)
	s.recent.Purge()

	for _, id := range ids {
		if id == "" || s.contains(id) {
			continue
		}
		evicted = append(evicted, s.makeRoom(1)...)
		s.bloom.AddString(id)
		s.recent.Add(id, struct{}{})
	}
	return evicted
}

// Len returns the number of ids currently held.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.Len()
}

func (s *SeenSet) contains(id string) bool {
	if !s.bloom.TestString(id) {
		return false
	}
	return s.recent.Contains(id)
}

func (s *SeenSet) makeRoom(n int) []string {
	var evicted []string
	for s.recent.Len()+n > s.capacity {
		oldest, _, ok := s.recent.RemoveOldest()
		if !ok {
			break
		}
		evicted = append(evicted, oldest)
	}
	return evicted
}
