// Package groups records which timeline items are grouped together.
//
// The structure is a forest: leaves are item ids, internal nodes are group
// ids allocated from the model's id space. Every registered item is a leaf
// from registration on, being its own root while ungrouped.
package groups

import (
	"fmt"
	"sort"

	"montage/internal/ids"
	"montage/internal/undo"
)

const noParent = -1

// Tree is the group forest. It is not safe for concurrent use; the timeline
// model serializes access.
type Tree struct {
	upLink   map[int]int
	downLink map[int]map[int]struct{}
	ids      *ids.Allocator
}

// NewTree creates an empty forest allocating group ids from alloc.
func NewTree(alloc *ids.Allocator) *Tree {
	return &Tree{
		upLink:   make(map[int]int),
		downLink: make(map[int]map[int]struct{}),
		ids:      alloc,
	}
}

// CreateGroupItem registers an item as an ungrouped leaf.
func (g *Tree) CreateGroupItem(id int) {
	if _, exists := g.upLink[id]; exists {
		panic(fmt.Sprintf("groups: item %d already registered", id))
	}
	g.upLink[id] = noParent
}

// DestructGroupItem forgets an ungrouped leaf.
func (g *Tree) DestructGroupItem(id int) {
	g.mustContain(id)
	if g.IsInGroup(id) {
		panic(fmt.Sprintf("groups: item %d is still grouped", id))
	}
	if g.IsGroup(id) {
		panic(fmt.Sprintf("groups: %d is a group, not an item", id))
	}
	delete(g.upLink, id)
}

// Contains reports whether id is a registered leaf or group.
func (g *Tree) Contains(id int) bool {
	_, ok := g.upLink[id]
	return ok
}

// IsGroup reports whether id is an internal node.
func (g *Tree) IsGroup(id int) bool {
	_, ok := g.downLink[id]
	return ok
}

// IsInGroup reports whether id has a parent.
func (g *Tree) IsInGroup(id int) bool {
	g.mustContain(id)
	return g.upLink[id] != noParent
}

// GetParent returns the parent of id, or -1 for a root.
func (g *Tree) GetParent(id int) int {
	g.mustContain(id)
	return g.upLink[id]
}

// GetRootID returns the topmost ancestor of id (id itself when ungrouped).
func (g *Tree) GetRootID(id int) int {
	g.mustContain(id)
	for g.upLink[id] != noParent {
		id = g.upLink[id]
	}
	return id
}

// GetDirectChildren returns the children of a group in ascending order.
func (g *Tree) GetDirectChildren(id int) []int {
	g.mustContain(id)
	children := make([]int, 0, len(g.downLink[id]))
	for c := range g.downLink[id] {
		children = append(children, c)
	}
	sort.Ints(children)
	return children
}

// GetLeaves returns every leaf of the subtree rooted at id, ascending. A leaf
// is its own only leaf.
func (g *Tree) GetLeaves(id int) []int {
	g.mustContain(id)
	var leaves []int
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !g.IsGroup(cur) {
			leaves = append(leaves, cur)
			continue
		}
		for c := range g.downLink[cur] {
			stack = append(stack, c)
		}
	}
	sort.Ints(leaves)
	return leaves
}

// Groups returns every internal node id, ascending.
func (g *Tree) Groups() []int {
	out := make([]int, 0, len(g.downLink))
	for id := range g.downLink {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// GroupItems creates a group whose children are the roots of the given ids.
// When the ids share a single root no node is created and that root is
// returned. It returns -1 for an empty set.
func (g *Tree) GroupItems(members []int, tx *undo.Tx) int {
	roots := g.distinctRoots(members)
	if len(roots) == 0 {
		return -1
	}
	if len(roots) == 1 {
		return roots[0]
	}

	gid := g.ids.Next()
	operation := func() bool {
		g.addNode(gid)
		for _, r := range roots {
			g.setParent(r, gid)
		}
		return true
	}
	reverse := func() bool {
		for _, r := range roots {
			g.setParent(r, noParent)
		}
		g.removeNode(gid)
		return true
	}
	tx.Do(operation, reverse)
	return gid
}

// UngroupItem detaches id from its parent. A parent left with a single child
// is collapsed: the remaining child takes its place.
func (g *Tree) UngroupItem(id int, tx *undo.Tx) bool {
	g.mustContain(id)
	parent := g.upLink[id]
	if parent == noParent {
		return false
	}
	tx.Do(func() bool {
		g.setParent(id, noParent)
		return true
	}, func() bool {
		g.setParent(id, parent)
		return true
	})
	g.collapseIfSingle(parent, tx)
	return true
}

// Dissolve removes the group node gid, handing its children to its parent
// (or making them roots). gid must be an internal node.
func (g *Tree) Dissolve(gid int, tx *undo.Tx) bool {
	if !g.IsGroup(gid) {
		return false
	}
	parent := g.upLink[gid]
	children := g.GetDirectChildren(gid)
	tx.Do(func() bool {
		for _, c := range children {
			g.setParent(c, parent)
		}
		g.setParent(gid, noParent)
		g.removeNode(gid)
		return true
	}, func() bool {
		g.addNode(gid)
		g.setParent(gid, parent)
		for _, c := range children {
			g.setParent(c, gid)
		}
		return true
	})
	if parent != noParent {
		g.collapseIfSingle(parent, tx)
	}
	return true
}

func (g *Tree) collapseIfSingle(gid int, tx *undo.Tx) {
	if len(g.downLink[gid]) != 1 {
		return
	}
	remaining := g.GetDirectChildren(gid)[0]
	grand := g.upLink[gid]
	tx.Do(func() bool {
		g.setParent(remaining, grand)
		g.setParent(gid, noParent)
		g.removeNode(gid)
		return true
	}, func() bool {
		g.addNode(gid)
		g.setParent(gid, grand)
		g.setParent(remaining, gid)
		return true
	})
}

func (g *Tree) distinctRoots(members []int) []int {
	seen := make(map[int]bool)
	var roots []int
	for _, id := range members {
		r := g.GetRootID(id)
		if !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	sort.Ints(roots)
	return roots
}

// addNode registers an empty root group node.
func (g *Tree) addNode(gid int) {
	g.upLink[gid] = noParent
	g.downLink[gid] = make(map[int]struct{})
}

func (g *Tree) removeNode(gid int) {
	delete(g.downLink, gid)
	delete(g.upLink, gid)
}

func (g *Tree) setParent(id, parent int) {
	if old := g.upLink[id]; old != noParent {
		delete(g.downLink[old], id)
	}
	g.upLink[id] = parent
	if parent != noParent {
		g.downLink[parent][id] = struct{}{}
	}
}

func (g *Tree) mustContain(id int) {
	if _, ok := g.upLink[id]; !ok {
		panic(fmt.Sprintf("groups: unknown id %d", id))
	}
}
