package undo

import "sync"

// Handle is an explicit reference count on an object that may be pending
// deletion: the owning registry holds one reference while the object is live
// and every transaction capturing the object holds another. When the count
// drops to zero the free callback runs exactly once.
type Handle struct {
	refs  int
	freed bool
	free  func()
	mutex sync.Mutex
}

// NewHandle creates a handle with no references.
func NewHandle(free func()) *Handle {
	return &Handle{free: free}
}

// Acquire adds a reference.
func (h *Handle) Acquire() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.refs++
}

// Release drops a reference and frees the object when none remain.
func (h *Handle) Release() {
	h.mutex.Lock()
	if h.refs <= 0 {
		h.mutex.Unlock()
		return
	}
	h.refs--
	shouldFree := h.refs == 0 && !h.freed
	if shouldFree {
		h.freed = true
	}
	free := h.free
	h.mutex.Unlock()

	if shouldFree && free != nil {
		free()
	}
}

// Refs returns the current reference count.
func (h *Handle) Refs() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.refs
}

// Freed reports whether the free callback has run.
func (h *Handle) Freed() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.freed
}
