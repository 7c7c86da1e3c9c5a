package timeline

import (
	"montage/internal/undo"
)

// RequestClipInsertion creates a clip over the whole source and places it
// on trackID at position. It returns the new clip id; on failure nothing is
// left behind.
func (m *Model) RequestClipInsertion(sourceID string, trackID, position int, logUndo bool) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	id, ok := m.insertClip(sourceID, 0, -1, trackID, position, tx)
	if ok && logUndo {
		m.push("Insert Clip", tx)
	} else {
		tx.Release()
	}
	return id, ok
}

// RequestClipInsertionTx is RequestClipInsertion contributing to tx.
func (m *Model) RequestClipInsertionTx(sourceID string, trackID, position int, tx *undo.Tx) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.insertClip(sourceID, 0, -1, trackID, position, tx)
}

// insertClip creates a clip over [in, in+playtime) of the source (playtime
// -1 meaning up to the end of the source) and places it. A trackID of -1
// registers the clip without placing it.
func (m *Model) insertClip(sourceID string, in, playtime, trackID, position int, tx *undo.Tx) (int, bool) {
	if trackID != -1 && !m.isTrack(trackID) {
		return -1, false
	}
	clip, ok := m.constructClip(sourceID, in, playtime)
	if !ok {
		return -1, false
	}

	local := undo.NewTx()
	m.registerClip(clip)
	local.Retain(clip.handle)
	local.Add(m.registerClipLambda(clip), m.deregisterClipLambda(clip.id))

	if trackID != -1 && !m.moveClip(clip.id, trackID, position, true, local) {
		local.Rollback()
		return -1, false
	}
	tx.Merge(local)
	return clip.id, true
}

// RequestClipMove places the clip at position on trackID. A grouped clip
// moves its whole group by the same offset.
func (m *Model) RequestClipMove(clipID, trackID, position int, updateView, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	clip := m.mustClip(clipID)
	if clip.trackID == trackID && clip.position == position {
		return true
	}
	tx := undo.NewTx()
	label := "Move clip"
	if m.groups.IsInGroup(clipID) {
		label = "Move group"
	}
	ok := m.requestClipMove(clipID, trackID, position, updateView, tx)
	if ok && logUndo {
		m.push(label, tx)
	} else {
		tx.Release()
	}
	return ok
}

// RequestClipMoveTx is RequestClipMove contributing to tx.
func (m *Model) RequestClipMoveTx(clipID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	clip := m.mustClip(clipID)
	if clip.trackID == trackID && clip.position == position {
		return true
	}
	return m.requestClipMove(clipID, trackID, position, updateView, tx)
}

func (m *Model) requestClipMove(clipID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	if !m.isTrack(trackID) {
		return false
	}
	clip := m.mustClip(clipID)
	if m.groups.IsInGroup(clipID) && clip.placed() {
		deltaTrack := m.trackPosition(trackID) - m.trackPosition(clip.trackID)
		deltaPos := position - clip.position
		return m.requestGroupMove(clipID, m.groups.GetRootID(clipID), deltaTrack, deltaPos, updateView, tx)
	}
	return m.moveClip(clipID, trackID, position, updateView, tx)
}

// moveClip moves a single clip, ignoring its group.
func (m *Model) moveClip(clipID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	clip := m.mustClip(clipID)
	if !m.isTrack(trackID) {
		return false
	}
	local := undo.NewTx()
	if clip.placed() {
		if !m.mustTrack(clip.trackID).requestClipDeletion(clipID, updateView, local) {
			local.Rollback()
			return false
		}
	}
	if !m.mustTrack(trackID).requestClipInsertion(clipID, position, updateView, local) {
		local.Rollback()
		return false
	}
	tx.Merge(local)
	return true
}

// SuggestClipMove returns the position a drag of the clip to position on
// trackID should settle at: snapped when a snap point is in reach, and
// clamped against the nearest neighbour when the move is not possible.
// Moving to another track is never adjusted. The model is left untouched.
func (m *Model) SuggestClipMove(clipID, trackID, position int) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	clip := m.mustClip(clipID)
	currentPos, currentTrack := clip.position, clip.trackID
	if currentPos == position || currentTrack != trackID {
		return position
	}

	if snapped := m.requestBestSnapPos(position, clip.playtime, m.groupBoundaries(clipID)); snapped >= 0 {
		position = snapped
	}

	possible := m.trial(func(tx *undo.Tx) bool {
		return m.requestClipMove(clipID, trackID, position, false, tx)
	})
	if possible {
		return position
	}

	after := position > currentPos
	blank := m.mustTrack(trackID).getBlankSizeNearClip(clipID, after)
	if blank == Unbounded {
		return position
	}
	if after {
		return currentPos + blank
	}
	return currentPos - blank
}

// groupBoundaries returns the edges of every item moving with id, which
// must not attract the drag.
func (m *Model) groupBoundaries(id int) []int {
	var points []int
	for _, leaf := range m.groups.GetLeaves(m.groups.GetRootID(id)) {
		if m.itemTrackID(leaf) == -1 {
			continue
		}
		pos := m.itemPosition(leaf)
		points = append(points, pos, pos+m.itemPlaytime(leaf))
	}
	return points
}

func (m *Model) requestClipDeletion(clipID int, tx *undo.Tx) bool {
	clip := m.mustClip(clipID)
	local := undo.NewTx()
	if clip.placed() {
		if !m.mustTrack(clip.trackID).requestClipDeletion(clipID, true, local) {
			local.Rollback()
			return false
		}
	}
	local.Retain(clip.handle)
	if !local.Do(m.deregisterClipLambda(clipID), m.registerClipLambda(clip)) {
		local.Rollback()
		return false
	}
	tx.Merge(local)
	return true
}

// RequestClipTrim shortens the clip by delta frames from one side; a
// negative delta extends it.
func (m *Model) RequestClipTrim(clipID, delta int, right, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	clip := m.mustClip(clipID)
	tx := undo.NewTx()
	ok := m.requestClipResize(clip, clip.playtime-delta, right, tx)
	if ok && logUndo {
		m.push("Trim clip", tx)
	} else {
		tx.Release()
	}
	return ok
}

// RequestClipCut splits a placed clip at position. The left part keeps the
// clip id; the right part is a new ungrouped clip whose id is returned.
func (m *Model) RequestClipCut(clipID, position int, logUndo bool) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	id, ok := m.requestClipCut(clipID, position, tx)
	if ok && logUndo {
		m.push("Cut clip", tx)
	} else {
		tx.Release()
	}
	return id, ok
}

// RequestClipCutTx is RequestClipCut contributing to tx.
func (m *Model) RequestClipCutTx(clipID, position int, tx *undo.Tx) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestClipCut(clipID, position, tx)
}

func (m *Model) requestClipCut(clipID, position int, tx *undo.Tx) (int, bool) {
	clip := m.mustClip(clipID)
	if !clip.placed() || position <= clip.position || position >= clip.End() {
		return -1, false
	}
	leftSize := position - clip.position
	rightIn := clip.in + leftSize
	rightSize := clip.playtime - leftSize
	trackID := clip.trackID

	local := undo.NewTx()
	if !m.requestClipResize(clip, leftSize, true, local) {
		local.Rollback()
		return -1, false
	}
	id, ok := m.insertClip(clip.sourceID, rightIn, rightSize, trackID, position, local)
	if !ok {
		local.Rollback()
		return -1, false
	}
	tx.Merge(local)
	return id, true
}
