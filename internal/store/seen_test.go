package store

import (
	"fmt"
	"reflect"
	"testing"
)

func TestSeenSet_Basic(t *testing.T) {
	set := NewSeenSet(100, DefaultFalsePositiveRate)

	if set.Contains("track1") {
		t.Error("Empty set should not contain any tracks")
	}

	if repeat, _ := set.Mark("track1"); repeat {
		t.Error("First mark should not be a repeat")
	}
	if !set.Contains("track1") {
		t.Error("Set should contain track1 after marking")
	}

	if repeat, _ := set.Mark("track1"); !repeat {
		t.Error("Second mark should be a repeat")
	}
	if set.Len() != 1 {
		t.Errorf("Set size should still be 1 after repeat, got %d", set.Len())
	}

	if repeat, evicted := set.Mark(""); repeat || evicted != nil {
		t.Error("Empty id should be ignored")
	}
}

func TestSeenSet_EvictsLeastRecent(t *testing.T) {
	set := NewSeenSet(3, DefaultFalsePositiveRate)

	for _, id := range []string{"a", "b", "c"} {
		if _, evicted := set.Mark(id); len(evicted) != 0 {
			t.Fatalf("Unexpected eviction of %v while filling", evicted)
		}
	}

	// Replaying "a" makes "b" the oldest.
	set.Mark("a")

	_, evicted := set.Mark("d")
	if !reflect.DeepEqual(evicted, []string{"b"}) {
		t.Errorf("Expected b evicted, got %v", evicted)
	}
	if set.Contains("b") {
		t.Error("Evicted track should be gone")
	}
	for _, id := range []string{"a", "c", "d"} {
		if !set.Contains(id) {
			t.Errorf("Set should contain %s", id)
		}
	}
}

func TestSeenSet_Reset(t *testing.T) {
	set := NewSeenSet(2, DefaultFalsePositiveRate)
	set.Mark("old")

	evicted := set.Reset([]string{"t1", "", "t2", "t1", "t3"})

	if !reflect.DeepEqual(evicted, []string{"t1"}) {
		t.Errorf("Expected oldest id evicted on reset, got %v", evicted)
	}
	if set.Len() != 2 {
		t.Errorf("Expected 2 ids after reset, got %d", set.Len())
	}
	if set.Contains("old") || set.Contains("t1") {
		t.Error("Reset should drop previous and overflowing ids")
	}
	if !set.Contains("t2") || !set.Contains("t3") {
		t.Error("Reset should keep the newest ids")
	}
}

func TestSeenSet_Forget(t *testing.T) {
	set := NewSeenSet(10, DefaultFalsePositiveRate)
	set.Mark("track1")
	set.Forget("track1")

	if set.Contains("track1") {
		t.Error("Forgotten track should not be contained")
	}
	if repeat, _ := set.Mark("track1"); repeat {
		t.Error("Marking a forgotten track should not be a repeat")
	}
}

func TestSeenSet_BloomFilterEffectiveness(t *testing.T) {
	set := NewSeenSet(1000, DefaultFalsePositiveRate)

	numTracks := 500
	for i := 0; i < numTracks; i++ {
		set.Mark(fmt.Sprintf("track_%d", i))
	}

	for i := 0; i < numTracks; i++ {
		trackID := fmt.Sprintf("track_%d", i)
		if !set.Contains(trackID) {
			t.Errorf("Set should contain %s", trackID)
		}
	}

	// The LRU check makes false positives impossible even when the bloom filter hits.
	for i := 0; i < 1000; i++ {
		if set.Contains(fmt.Sprintf("nonexistent_%d", i)) {
			t.Fatalf("Set reported an unseen track")
		}
	}
}

func BenchmarkSeenSet_Mark(b *testing.B) {
	set := NewSeenSet(10000, DefaultFalsePositiveRate)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Mark(fmt.Sprintf("track_%d", i))
	}
}

func BenchmarkSeenSet_Contains(b *testing.B) {
	set := NewSeenSet(10000, DefaultFalsePositiveRate)
	for i := 0; i < 1000; i++ {
		set.Mark(fmt.Sprintf("track_%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Contains(fmt.Sprintf("track_%d", i%1000))
	}
}
