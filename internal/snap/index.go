// Package snap keeps the time points items can magnetically snap to.
package snap

import "sort"

// None is returned by queries that found no eligible point.
const None = -1

// Index is an ordered multiset of snap points. Points added twice must be
// removed twice. A set of points can be excluded temporarily with Ignore so
// an item being dragged does not snap onto its own edges.
//
// Index is not safe for concurrent use; the timeline model serializes access.
type Index struct {
	counts  map[int]int
	sorted  []int
	ignored map[int]int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		counts:  make(map[int]int),
		ignored: make(map[int]int),
	}
}

// AddPoint inserts one occurrence of p.
func (idx *Index) AddPoint(p int) {
	if idx.counts[p] == 0 {
		i := sort.SearchInts(idx.sorted, p)
		idx.sorted = append(idx.sorted, 0)
		copy(idx.sorted[i+1:], idx.sorted[i:])
		idx.sorted[i] = p
	}
	idx.counts[p]++
}

// RemovePoint removes one occurrence of p. Removing an absent point is a
// no-op.
func (idx *Index) RemovePoint(p int) {
	c, ok := idx.counts[p]
	if !ok {
		return
	}
	if c > 1 {
		idx.counts[p] = c - 1
		return
	}
	delete(idx.counts, p)
	i := sort.SearchInts(idx.sorted, p)
	if i < len(idx.sorted) && idx.sorted[i] == p {
		idx.sorted = append(idx.sorted[:i], idx.sorted[i+1:]...)
	}
}

// Ignore excludes one occurrence of each given point from queries until
// Unignore is called.
func (idx *Index) Ignore(pts []int) {
	for _, p := range pts {
		idx.ignored[p]++
	}
}

// Unignore restores every point excluded by Ignore.
func (idx *Index) Unignore() {
	idx.ignored = make(map[int]int)
}

func (idx *Index) visible(p int) bool {
	return idx.counts[p]-idx.ignored[p] > 0
}

// ClosestPoint returns the visible point nearest to pos, preferring the
// earlier point on ties, or None when no point is visible.
func (idx *Index) ClosestPoint(pos int) int {
	i := sort.SearchInts(idx.sorted, pos)

	before := None
	for j := i - 1; j >= 0; j-- {
		if idx.visible(idx.sorted[j]) {
			before = idx.sorted[j]
			break
		}
	}
	after := None
	for j := i; j < len(idx.sorted); j++ {
		if idx.visible(idx.sorted[j]) {
			after = idx.sorted[j]
			break
		}
	}

	switch {
	case before == None:
		return after
	case after == None:
		return before
	case pos-before <= after-pos:
		return before
	default:
		return after
	}
}

// NextPoint returns the first visible point strictly after pos, or pos when
// there is none.
func (idx *Index) NextPoint(pos int) int {
	i := sort.SearchInts(idx.sorted, pos+1)
	for ; i < len(idx.sorted); i++ {
		if idx.visible(idx.sorted[i]) {
			return idx.sorted[i]
		}
	}
	return pos
}

// PreviousPoint returns the last visible point strictly before pos, or 0
// when there is none.
func (idx *Index) PreviousPoint(pos int) int {
	i := sort.SearchInts(idx.sorted, pos) - 1
	for ; i >= 0; i-- {
		if idx.visible(idx.sorted[i]) {
			return idx.sorted[i]
		}
	}
	return 0
}

// ProposeSize suggests a size for an item occupying [in, end) being resized
// to size from its right (or left) edge, such that the moving edge lands on
// a snap point strictly closer than maxDist. The item's own edges are
// ignored. It returns None when no point is close enough.
func (idx *Index) ProposeSize(in, end, size int, right bool, maxDist int) int {
	idx.Ignore([]int{in, end})
	defer idx.Unignore()

	if right {
		target := in + size
		snapped := idx.ClosestPoint(target)
		if snapped != None && abs(target-snapped) < maxDist {
			return snapped - in
		}
		return None
	}
	target := end - size
	snapped := idx.ClosestPoint(target)
	if snapped != None && abs(target-snapped) < maxDist {
		return end - snapped
	}
	return None
}

// Points returns every stored occurrence in ascending order, ignoring
// nothing.
func (idx *Index) Points() []int {
	var out []int
	for _, p := range idx.sorted {
		for c := idx.counts[p]; c > 0; c-- {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of stored occurrences.
func (idx *Index) Len() int {
	n := 0
	for _, c := range idx.counts {
		n += c
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
