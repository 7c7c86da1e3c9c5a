package timeline

import (
	"montage/internal/undo"
)

// RequestTrackInsertion inserts an empty track at position (0 is the
// bottom, -1 appends on top) and returns its id.
func (m *Model) RequestTrackInsertion(position int) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	id, ok := m.requestTrackInsertion(position, tx)
	if ok {
		m.push("Insert Track", tx)
	}
	return id, ok
}

// RequestTrackInsertionTx is RequestTrackInsertion contributing to tx.
func (m *Model) RequestTrackInsertionTx(position int, tx *undo.Tx) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestTrackInsertion(position, tx)
}

func (m *Model) requestTrackInsertion(position int, tx *undo.Tx) (int, bool) {
	if position == -1 {
		position = len(m.tracks)
	}
	if position < 0 || position > len(m.tracks) {
		return -1, false
	}
	track := newTrack(m.ids.Next(), m)
	if !tx.Do(m.registerTrackLambda(track, position), m.deregisterTrackLambda(track.id)) {
		return -1, false
	}
	return track.id, true
}

func (m *Model) registerTrackLambda(track *Track, position int) undo.Fun {
	return func() bool {
		if err := m.backend.InsertTrack(position + 1); err != nil {
			m.logger.WithError(err).WithField("position", position).Error("Backend refused track")
			return false
		}
		m.tracks = append(m.tracks, nil)
		copy(m.tracks[position+1:], m.tracks[position:])
		m.tracks[position] = track
		m.reindexTracks()
		if !m.replantCompositions(-1) {
			return false
		}
		m.resetView()
		return true
	}
}

func (m *Model) deregisterTrackLambda(trackID int) undo.Fun {
	return func() bool {
		track := m.mustTrack(trackID)
		if len(track.clips) > 0 || len(track.compositions) > 0 {
			return false
		}
		position := m.trackPosition(trackID)
		if err := m.backend.RemoveTrack(position + 1); err != nil {
			m.logger.WithError(err).WithField("track", trackID).Error("Backend could not remove track")
			return false
		}
		m.tracks = append(m.tracks[:position], m.tracks[position+1:]...)
		m.reindexTracks()
		if !m.replantCompositions(-1) {
			return false
		}
		m.resetView()
		return true
	}
}

// RequestTrackDeletion deletes a track along with every clip on it and
// every composition on it or blending onto it.
func (m *Model) RequestTrackDeletion(trackID int) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	ok := m.requestTrackDeletion(trackID, tx)
	if ok {
		m.push("Delete Track", tx)
	}
	return ok
}

// RequestTrackDeletionTx is RequestTrackDeletion contributing to tx.
func (m *Model) RequestTrackDeletionTx(trackID int, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestTrackDeletion(trackID, tx)
}

func (m *Model) requestTrackDeletion(trackID int, tx *undo.Tx) bool {
	track := m.mustTrack(trackID)
	local := undo.NewTx()

	for _, id := range sortedKeys(m.compositions) {
		c := m.compositions[id]
		if c.trackID != trackID && c.aTrack != trackID {
			continue
		}
		if !m.detachAndDelete(id, local) {
			local.Rollback()
			return false
		}
	}
	for _, id := range append([]int(nil), track.clips...) {
		if !m.detachAndDelete(id, local) {
			local.Rollback()
			return false
		}
	}

	position := m.trackPosition(trackID)
	if !local.Do(m.deregisterTrackLambda(trackID), m.registerTrackLambda(track, position)) {
		local.Rollback()
		return false
	}
	tx.Merge(local)
	return true
}

func (m *Model) detachAndDelete(itemID int, tx *undo.Tx) bool {
	for m.groups.IsInGroup(itemID) {
		if !m.requestClipUngroup(itemID, tx) {
			return false
		}
	}
	if m.isClip(itemID) {
		return m.requestClipDeletion(itemID, tx)
	}
	return m.requestCompositionDeletion(itemID, tx)
}

// RequestReset deletes every track, restoring an empty timeline as a single
// undoable action.
func (m *Model) RequestReset() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	ok := m.requestReset(tx)
	if ok {
		m.push("Reset timeline", tx)
	}
	return ok
}

// RequestResetTx is RequestReset contributing to tx.
func (m *Model) RequestResetTx(tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestReset(tx)
}

func (m *Model) requestReset(tx *undo.Tx) bool {
	local := undo.NewTx()
	for _, id := range sortedKeys(m.clips) {
		if m.clips[id].placed() {
			continue
		}
		if !m.detachAndDelete(id, local) {
			local.Rollback()
			return false
		}
	}
	for _, id := range sortedKeys(m.compositions) {
		if m.compositions[id].placed() {
			continue
		}
		if !m.detachAndDelete(id, local) {
			local.Rollback()
			return false
		}
	}
	for len(m.tracks) > 0 {
		if !m.requestTrackDeletion(m.tracks[len(m.tracks)-1].id, local) {
			local.Rollback()
			return false
		}
	}
	tx.Merge(local)
	return true
}
