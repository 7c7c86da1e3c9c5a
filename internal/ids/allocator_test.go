package ids

import (
	"sync"
	"testing"
)

func TestAllocatorMonotonic(t *testing.T) {
	a := NewAllocator(5)
	if got := a.Peek(); got != 5 {
		t.Fatalf("Peek() = %d, want 5", got)
	}
	for want := 5; want < 10; want++ {
		if got := a.Next(); got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}
}

func TestAllocatorConcurrentUnique(t *testing.T) {
	a := NewAllocator(0)
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := a.Next()
				mu.Lock()
				if seen[id] {
					t.Errorf("id %d allocated twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 800 {
		t.Errorf("expected 800 unique ids, got %d", len(seen))
	}
}
