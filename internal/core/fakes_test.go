package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errFakeTransport = errors.New("connection refused")

type fakeLookup struct {
	mu    sync.Mutex
	songs map[int64]*SongRecord
	err   error
	calls []int64
}

func (f *fakeLookup) GetSong(_ context.Context, id int64) (*SongRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.songs[id], nil
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeOverrides map[int64]OverrideLink

func (f fakeOverrides) Lookup(id int64) (OverrideLink, bool) {
	link, ok := f[id]
	return link, ok
}

type fakeSearcher struct {
	results []SongRecord
	err     error
	queries []string
}

func (f *fakeSearcher) SearchSongs(_ context.Context, query string) ([]SongRecord, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeImages struct {
	artists map[int64]*Images
	albums  map[int64]*Images
	err     error
}

func (f *fakeImages) ArtistImage(_ context.Context, id int64) (*Images, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.artists[id], nil
}

func (f *fakeImages) AlbumImage(_ context.Context, id int64) (*Images, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.albums[id], nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []*Result
}

func (s *recordingSink) Publish(_ context.Context, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

func (s *recordingSink) snapshot() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Result(nil), s.results...)
}

type countingMetrics struct {
	mu      sync.Mutex
	cycles  map[Status]int
	lookups map[string]int
	stale   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{cycles: map[Status]int{}, lookups: map[string]int{}}
}

func (m *countingMetrics) RecordCycle(status Status, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[status]++
}

func (m *countingMetrics) RecordLookup(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[kind+"/"+outcome]++
}

func (m *countingMetrics) RecordStaleCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func zunArtist(id int64) ArtistEntry {
	return ArtistEntry{Categories: "Composer", Artist: &Artist{ID: id, Name: "ZUN", ArtistType: "Producer"}}
}
