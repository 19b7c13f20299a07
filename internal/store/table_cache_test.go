package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"coverage.logistics.org/internal/metrics"
	"coverage.logistics.org/internal/sheet"
)

func countingLoader(calls *atomic.Int32) LoadFunc {
	return func(filename string, data []byte) (*sheet.Table, error) {
		calls.Add(1)
		return sheet.Parse(filename, data)
	}
}

func TestGetOrLoadMemoizesByContent(t *testing.T) {
	cache := NewTableCache("load", 4)
	var calls atomic.Int32
	load := countingLoader(&calls)
	data := []byte("CODCLI\n1\n2\n")

	first, err := cache.GetOrLoad("a.csv", data, load)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	second, err := cache.GetOrLoad("renamed.csv", data, load)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected a single parse, got %d", calls.Load())
	}
	if first != second {
		t.Errorf("Expected the same cached entry for identical content")
	}
	if first.Key != ContentKey(data) {
		t.Errorf("Expected key %s, got %s", ContentKey(data), first.Key)
	}
	if first.Filename != "a.csv" {
		t.Errorf("Expected first filename to be kept, got %s", first.Filename)
	}

	other, err := cache.GetOrLoad("b.csv", []byte("CODCLI\n3\n"), load)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if other.Key == first.Key {
		t.Errorf("Expected different content to get a different key")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected a second parse for new content, got %d", calls.Load())
	}
}

func TestGetOrLoadDoesNotCacheFailures(t *testing.T) {
	cache := NewTableCache("failures", 4)
	var calls atomic.Int32
	failing := func(filename string, data []byte) (*sheet.Table, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}

	for i := 0; i < 2; i++ {
		if _, err := cache.GetOrLoad("x.xlsx", []byte("x"), failing); err == nil {
			t.Fatalf("Expected error, got nil")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected failed parses to be retried, got %d calls", calls.Load())
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Len())
	}
}

func TestGetOrLoadConcurrentCallsShareParse(t *testing.T) {
	cache := NewTableCache("concurrent", 4)
	var calls atomic.Int32
	release := make(chan struct{})
	slow := func(filename string, data []byte) (*sheet.Table, error) {
		calls.Add(1)
		<-release
		return sheet.Parse(filename, data)
	}

	var wg sync.WaitGroup
	entries := make([]*Entry, 8)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := cache.GetOrLoad("c.csv", []byte("CODCLI\n9\n"), slow)
			if err != nil {
				t.Errorf("GetOrLoad failed: %v", err)
				return
			}
			entries[i] = e
		}(i)
	}
	close(release)
	wg.Wait()

	// Goroutines that arrived after the first parse finished hit the cache directly.
	if calls.Load() < 1 || calls.Load() > int32(len(entries)) {
		t.Fatalf("Unexpected number of parses: %d", calls.Load())
	}
	for _, e := range entries {
		if e == nil || e.Key != entries[0].Key {
			t.Fatalf("Expected all callers to receive the same entry")
		}
	}
	if cache.Len() != 1 {
		t.Errorf("Expected one cached entry, got %d", cache.Len())
	}
}

func TestInvalidateAndEviction(t *testing.T) {
	cache := NewTableCache("eviction", 2)
	var calls atomic.Int32
	load := countingLoader(&calls)

	a, _ := cache.GetOrLoad("a.csv", []byte("CODCLI\n1\n"), load)
	b, _ := cache.GetOrLoad("b.csv", []byte("CODCLI\n2\n"), load)

	if !cache.Invalidate(a.Key) {
		t.Errorf("Expected Invalidate to report a present key")
	}
	if cache.Invalidate(a.Key) {
		t.Errorf("Expected second Invalidate to report a missing key")
	}
	if _, ok := cache.Get(a.Key); ok {
		t.Errorf("Expected invalidated entry to be gone")
	}

	// Re-uploading invalidated content parses again.
	if _, err := cache.GetOrLoad("a.csv", []byte("CODCLI\n1\n"), load); err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected a re-parse after invalidation, got %d calls", calls.Load())
	}

	// A third distinct table evicts the oldest one (b).
	if _, err := cache.GetOrLoad("c.csv", []byte("CODCLI\n3\n"), load); err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if _, ok := cache.Get(b.Key); ok {
		t.Errorf("Expected oldest entry to be evicted")
	}
	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", cache.Len())
	}

	entries, err := metrics.MetricValue(metrics.TableCacheEntries.WithLabelValues("eviction"))
	if err != nil {
		t.Fatalf("MetricValue failed: %v", err)
	}
	if entries != 2 {
		t.Errorf("Expected cache entries gauge at 2, got %v", entries)
	}
}
