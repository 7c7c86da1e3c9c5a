package ids

import "sync"

// Allocator hands out monotonically increasing integer ids. One allocator is
// owned by a timeline model and shared by every object the model creates
// (tracks, clips, compositions, group nodes), so ids never collide across
// categories.
type Allocator struct {
	next  int
	mutex sync.Mutex
}

// NewAllocator creates an allocator whose first id is start.
func NewAllocator(start int) *Allocator {
	return &Allocator{next: start}
}

// Next returns a fresh id.
func (a *Allocator) Next() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *Allocator) Peek() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.next
}
