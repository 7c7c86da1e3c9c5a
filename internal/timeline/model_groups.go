package timeline

import (
	"sort"

	"montage/internal/undo"
)

// RequestGroupMove moves every leaf of groupID by deltaTrack tracks and
// deltaPos frames. itemID is the item being dragged; the view already
// shows it in place, so it only gets notified when updateView is true.
// Either all leaves move or none do.
func (m *Model) RequestGroupMove(itemID, groupID, deltaTrack, deltaPos int, updateView, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	ok := m.requestGroupMove(itemID, groupID, deltaTrack, deltaPos, updateView, tx)
	if ok && logUndo {
		m.push("Move group", tx)
	} else {
		tx.Release()
	}
	return ok
}

// RequestGroupMoveTx is RequestGroupMove contributing to tx.
func (m *Model) RequestGroupMoveTx(itemID, groupID, deltaTrack, deltaPos int, updateView bool, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestGroupMove(itemID, groupID, deltaTrack, deltaPos, updateView, tx)
}

type groupLeaf struct {
	id       int
	lane     int
	position int
}

func (m *Model) requestGroupMove(itemID, groupID, deltaTrack, deltaPos int, updateView bool, tx *undo.Tx) bool {
	if !m.groups.Contains(groupID) {
		return false
	}
	var leaves []groupLeaf
	for _, id := range m.groups.GetLeaves(groupID) {
		trackID := m.itemTrackID(id)
		if trackID == -1 {
			return false
		}
		leaves = append(leaves, groupLeaf{id: id, lane: m.trackPosition(trackID), position: m.itemPosition(id)})
	}

	// Moving the leaves in this order means no leaf ever lands on a slot
	// another leaf of the group still occupies.
	sort.Slice(leaves, func(i, j int) bool {
		a, b := leaves[i], leaves[j]
		if a.lane != b.lane {
			if deltaTrack > 0 {
				return a.lane > b.lane
			}
			return a.lane < b.lane
		}
		if a.position != b.position {
			if deltaPos > 0 {
				return a.position > b.position
			}
			return a.position < b.position
		}
		return a.id < b.id
	})

	local := undo.NewTx()
	for _, leaf := range leaves {
		target := leaf.lane + deltaTrack
		if target < 0 || target >= len(m.tracks) {
			local.Rollback()
			return false
		}
		trackID := m.tracks[target].id
		position := leaf.position + deltaPos
		notify := updateView || leaf.id != itemID

		var ok bool
		if m.isClip(leaf.id) {
			ok = m.moveClip(leaf.id, trackID, position, notify, local)
		} else {
			ok = m.moveComposition(leaf.id, trackID, position, notify, local)
		}
		if !ok {
			local.Rollback()
			return false
		}
	}
	tx.Merge(local)
	return true
}

// RequestItemDeletion deletes a clip or composition. A grouped item takes
// its whole group with it.
func (m *Model) RequestItemDeletion(itemID int, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	label := "Delete clip"
	if m.isComposition(itemID) {
		label = "Delete composition"
	}
	if m.groups.IsInGroup(itemID) {
		label = "Remove group"
	}
	ok := m.requestItemDeletion(itemID, tx)
	if ok && logUndo {
		m.push(label, tx)
	} else {
		tx.Release()
	}
	return ok
}

// RequestItemDeletionTx is RequestItemDeletion contributing to tx.
func (m *Model) RequestItemDeletionTx(itemID int, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestItemDeletion(itemID, tx)
}

func (m *Model) requestItemDeletion(itemID int, tx *undo.Tx) bool {
	if !m.isItem(itemID) {
		panic("timeline: deletion of an unknown item")
	}
	if m.groups.IsInGroup(itemID) {
		return m.requestGroupDeletion(itemID, tx)
	}
	if m.isClip(itemID) {
		return m.requestClipDeletion(itemID, tx)
	}
	return m.requestCompositionDeletion(itemID, tx)
}

// RequestGroupDeletion deletes every item of the group itemID belongs to,
// and the group structure itself.
func (m *Model) RequestGroupDeletion(itemID int, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	ok := m.requestGroupDeletion(itemID, tx)
	if ok && logUndo {
		m.push("Remove group", tx)
	} else {
		tx.Release()
	}
	return ok
}

func (m *Model) requestGroupDeletion(itemID int, tx *undo.Tx) bool {
	local := undo.NewTx()
	queue := []int{m.groups.GetRootID(itemID)}
	var leaves []int
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !m.groups.IsGroup(id) {
			leaves = append(leaves, id)
			continue
		}
		queue = append(queue, m.groups.GetDirectChildren(id)...)
		if !m.groups.Dissolve(id, local) {
			local.Rollback()
			return false
		}
	}

	for _, id := range leaves {
		var ok bool
		if m.isClip(id) {
			ok = m.requestClipDeletion(id, local)
		} else {
			ok = m.requestCompositionDeletion(id, local)
		}
		if !ok {
			local.Rollback()
			return false
		}
	}
	tx.Merge(local)
	return true
}

// RequestItemResize changes the duration of a clip or composition. right
// selects which edge moves. With snapping, the moving edge is pulled to a
// nearby snap point when the resulting size is itself feasible.
func (m *Model) RequestItemResize(itemID, size int, right, logUndo, snapping bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if snapping && m.itemTrackID(itemID) != -1 {
		in := m.itemPosition(itemID)
		end := in + m.itemPlaytime(itemID)
		if proposed := m.snaps.ProposeSize(in, end, size, right, m.snapDistance); proposed > 0 && proposed != size {
			if m.trial(func(tx *undo.Tx) bool { return m.resizeItem(itemID, proposed, right, tx) }) {
				size = proposed
			}
		}
	}

	tx := undo.NewTx()
	ok := m.resizeItem(itemID, size, right, tx)
	if ok && logUndo {
		label := "Resize clip"
		if m.isComposition(itemID) {
			label = "Resize composition"
		}
		m.push(label, tx)
	} else {
		tx.Release()
	}
	return ok
}

// RequestItemResizeTx is RequestItemResize without snapping, contributing
// to tx.
func (m *Model) RequestItemResizeTx(itemID, size int, right bool, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.resizeItem(itemID, size, right, tx)
}

// RequestItemResizeToPos moves one edge of a placed item to position.
func (m *Model) RequestItemResizeToPos(itemID, position int, right bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.itemTrackID(itemID) == -1 {
		return false
	}
	in := m.itemPosition(itemID)
	end := in + m.itemPlaytime(itemID)
	size := 0
	if right {
		size = position - in
	} else {
		size = end - position
	}
	if size <= 0 {
		return false
	}

	tx := undo.NewTx()
	ok := m.resizeItem(itemID, size, right, tx)
	if ok {
		m.push("Resize item", tx)
	}
	return ok
}

func (m *Model) resizeItem(itemID, size int, right bool, tx *undo.Tx) bool {
	if clip, ok := m.clips[itemID]; ok {
		return m.requestClipResize(clip, size, right, tx)
	}
	return m.requestCompositionResize(m.mustComposition(itemID), size, right, tx)
}

// RequestClipsGroup groups the given items and existing groups under a new
// group, or merges them into their common root. Unplaced clips are
// rejected. It returns the resulting root.
func (m *Model) RequestClipsGroup(itemIDs []int) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	gid, ok := m.requestClipsGroup(itemIDs, tx)
	if ok {
		m.push("Group clips", tx)
	}
	return gid, ok
}

// RequestClipsGroupTx is RequestClipsGroup contributing to tx.
func (m *Model) RequestClipsGroupTx(itemIDs []int, tx *undo.Tx) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestClipsGroup(itemIDs, tx)
}

func (m *Model) requestClipsGroup(itemIDs []int, tx *undo.Tx) (int, bool) {
	if len(itemIDs) == 0 {
		return -1, false
	}
	for _, id := range itemIDs {
		switch {
		case m.isClip(id):
			if !m.clips[id].placed() {
				return -1, false
			}
		case m.isComposition(id), m.groups.IsGroup(id):
		default:
			return -1, false
		}
	}
	gid := m.groups.GroupItems(itemIDs, tx)
	for _, id := range itemIDs {
		if m.isItem(id) {
			m.notifyChange(id, m.itemTrackID(id), RoleSelection)
		}
	}
	return gid, gid != -1
}

// RequestClipUngroup detaches the item from its parent group. A group left
// with one child collapses into that child.
func (m *Model) RequestClipUngroup(itemID int) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	ok := m.requestClipUngroup(itemID, tx)
	if ok {
		m.push("Ungroup clips", tx)
	}
	return ok
}

// RequestClipUngroupTx is RequestClipUngroup contributing to tx.
func (m *Model) RequestClipUngroupTx(itemID int, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestClipUngroup(itemID, tx)
}

func (m *Model) requestClipUngroup(itemID int, tx *undo.Tx) bool {
	if !m.groups.IsInGroup(itemID) {
		return false
	}
	trackID := -1
	if m.isItem(itemID) {
		trackID = m.itemTrackID(itemID)
	}
	if !m.groups.UngroupItem(itemID, tx) {
		return false
	}
	m.notifyChange(itemID, trackID, RoleSelection)
	return true
}
