// Package media holds the sources clips are cut from: an in-memory bin,
// a prober measuring media files, and a scanner and watcher keeping the
// bin in step with a library directory.
package media

import (
	"sort"
	"sync"

	"montage/pkg/models"
)

// Bin is the set of sources available to the timeline. It is safe for
// concurrent use.
type Bin struct {
	sources map[string]models.Source
	mutex   sync.RWMutex
}

// NewBin creates an empty bin
func NewBin() *Bin {
	return &Bin{sources: make(map[string]models.Source)}
}

// Add stores or replaces a source
func (b *Bin) Add(source models.Source) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.sources[source.ID] = source
}

// AddLength registers a bare source of the given length in frames
func (b *Bin) AddLength(id string, length int) {
	b.Add(models.Source{ID: id, Title: id, Length: length})
}

// Remove drops a source. Clips already cut from it keep their producers.
func (b *Bin) Remove(id string) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if _, ok := b.sources[id]; !ok {
		return false
	}
	delete(b.sources, id)
	return true
}

func (b *Bin) Get(id string) (models.Source, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	source, ok := b.sources[id]
	return source, ok
}

// SourceLength returns the length in frames of a source
func (b *Bin) SourceLength(id string) (int, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	source, ok := b.sources[id]
	if !ok {
		return 0, false
	}
	return source.Length, true
}

// List returns all sources ordered by id
func (b *Bin) List() []models.Source {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]models.Source, 0, len(b.sources))
	for _, s := range b.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Bin) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return len(b.sources)
}
