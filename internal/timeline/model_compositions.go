package timeline

import (
	"sort"

	"montage/internal/undo"
)

// RequestCompositionInsertion creates a composition of the given kind and
// length on trackID at position. It blends onto the track below, so the
// bottom track cannot host one.
func (m *Model) RequestCompositionInsertion(kind string, trackID, position, length int, logUndo bool) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	id, ok := m.requestCompositionInsertion(kind, trackID, position, length, tx)
	if ok && logUndo {
		m.push("Insert Composition", tx)
	} else {
		tx.Release()
	}
	return id, ok
}

// RequestCompositionInsertionTx is RequestCompositionInsertion contributing
// to tx.
func (m *Model) RequestCompositionInsertionTx(kind string, trackID, position, length int, tx *undo.Tx) (int, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestCompositionInsertion(kind, trackID, position, length, tx)
}

func (m *Model) requestCompositionInsertion(kind string, trackID, position, length int, tx *undo.Tx) (int, bool) {
	if length <= 0 || (trackID != -1 && !m.isTrack(trackID)) {
		return -1, false
	}
	c := &Composition{
		id:       m.ids.Next(),
		kind:     kind,
		position: -1,
		playtime: length,
		trackID:  -1,
		aTrack:   -1,
	}
	local := undo.NewTx()
	m.registerComposition(c)
	local.Add(m.registerCompositionLambda(c), m.deregisterCompositionLambda(c.id))

	if trackID != -1 && !m.moveComposition(c.id, trackID, position, true, local) {
		local.Rollback()
		return -1, false
	}
	tx.Merge(local)
	return c.id, true
}

// RequestCompositionMove places the composition at position on trackID. A
// grouped composition moves its whole group.
func (m *Model) RequestCompositionMove(compoID, trackID, position int, updateView, logUndo bool) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c := m.mustComposition(compoID)
	if c.trackID == trackID && c.position == position {
		return true
	}
	tx := undo.NewTx()
	ok := m.requestCompositionMove(compoID, trackID, position, updateView, tx)
	if ok && logUndo {
		m.push("Move composition", tx)
	}
	return ok
}

// RequestCompositionMoveTx is RequestCompositionMove contributing to tx.
func (m *Model) RequestCompositionMoveTx(compoID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c := m.mustComposition(compoID)
	if c.trackID == trackID && c.position == position {
		return true
	}
	return m.requestCompositionMove(compoID, trackID, position, updateView, tx)
}

func (m *Model) requestCompositionMove(compoID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	if !m.isTrack(trackID) {
		return false
	}
	c := m.mustComposition(compoID)
	if m.groups.IsInGroup(compoID) && c.placed() {
		deltaTrack := m.trackPosition(trackID) - m.trackPosition(c.trackID)
		deltaPos := position - c.position
		return m.requestGroupMove(compoID, m.groups.GetRootID(compoID), deltaTrack, deltaPos, updateView, tx)
	}
	return m.moveComposition(compoID, trackID, position, updateView, tx)
}

// moveComposition moves a single composition. Changing track unplants the
// transition first and replants it against the new A-track afterwards.
func (m *Model) moveComposition(compoID, trackID, position int, updateView bool, tx *undo.Tx) bool {
	if !m.isTrack(trackID) {
		return false
	}
	aTrack := m.previousTrackID(trackID)
	if aTrack == -1 {
		return false
	}
	c := m.mustComposition(compoID)
	oldTrackID := c.trackID
	local := undo.NewTx()

	if oldTrackID != -1 {
		if oldTrackID != trackID {
			oldATrack := c.aTrack
			operation := func() bool {
				if m.backend.IsPlanted(compoID) && !m.unplantComposition(compoID) {
					return false
				}
				c.aTrack = -1
				return true
			}
			reverse := func() bool {
				c.aTrack = oldATrack
				return m.replantCompositions(compoID)
			}
			if !local.Do(operation, reverse) {
				local.Rollback()
				return false
			}
		}
		if !m.mustTrack(oldTrackID).requestCompositionDeletion(compoID, updateView, local) {
			local.Rollback()
			return false
		}
	}

	if !m.mustTrack(trackID).requestCompositionInsertion(compoID, position, updateView, local) {
		local.Rollback()
		return false
	}

	if oldTrackID != trackID {
		operation := func() bool {
			c.aTrack = aTrack
			return m.replantCompositions(compoID)
		}
		reverse := func() bool {
			if !m.unplantComposition(compoID) {
				return false
			}
			c.aTrack = -1
			return true
		}
		if !local.Do(operation, reverse) {
			local.Rollback()
			return false
		}
	}
	tx.Merge(local)
	return true
}

// SuggestCompositionMove is SuggestClipMove for compositions: neighbours
// are the other compositions of the track.
func (m *Model) SuggestCompositionMove(compoID, trackID, position int) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	c := m.mustComposition(compoID)
	currentPos, currentTrack := c.position, c.trackID
	if currentPos == position || currentTrack != trackID {
		return position
	}

	if snapped := m.requestBestSnapPos(position, c.playtime, m.groupBoundaries(compoID)); snapped >= 0 {
		position = snapped
	}

	possible := m.trial(func(tx *undo.Tx) bool {
		return m.requestCompositionMove(compoID, trackID, position, false, tx)
	})
	if possible {
		return position
	}

	after := position > currentPos
	blank := m.mustTrack(trackID).getBlankSizeNearComposition(compoID, after)
	if blank == Unbounded {
		return position
	}
	if after {
		return currentPos + blank
	}
	return currentPos - blank
}

func (m *Model) requestCompositionDeletion(compoID int, tx *undo.Tx) bool {
	c := m.mustComposition(compoID)
	local := undo.NewTx()
	if c.placed() {
		oldATrack := c.aTrack
		operation := func() bool {
			if m.backend.IsPlanted(compoID) && !m.unplantComposition(compoID) {
				return false
			}
			c.aTrack = -1
			return true
		}
		reverse := func() bool {
			c.aTrack = oldATrack
			return m.replantCompositions(compoID)
		}
		if !local.Do(operation, reverse) {
			local.Rollback()
			return false
		}
		if !m.mustTrack(c.trackID).requestCompositionDeletion(compoID, true, local) {
			local.Rollback()
			return false
		}
	}
	if !local.Do(m.deregisterCompositionLambda(compoID), m.registerCompositionLambda(c)) {
		local.Rollback()
		return false
	}
	tx.Merge(local)
	return true
}

func (m *Model) unplantComposition(compoID int) bool {
	if err := m.backend.UnplantTransition(compoID); err != nil {
		m.logger.WithError(err).WithField("composition", compoID).Error("Failed to unplant composition")
		return false
	}
	return true
}

type plantedComposition struct {
	id   int
	lane int
}

// replantCompositions rebuilds the transition field so transitions appear
// by decreasing B lane. currentCompo, if not -1, is the composition being
// placed and is not expected to be planted yet.
func (m *Model) replantCompositions(currentCompo int) bool {
	var compos []plantedComposition
	for _, id := range sortedKeys(m.compositions) {
		c := m.compositions[id]
		if !c.placed() || c.aTrack == -1 {
			continue
		}
		compos = append(compos, plantedComposition{id: id, lane: m.trackMltIndex(c.trackID)})
		if m.backend.IsPlanted(id) {
			if id == currentCompo {
				m.logger.WithField("composition", id).Warn("Composition being placed was already planted")
			}
			if !m.unplantComposition(id) {
				return false
			}
		}
	}

	sort.SliceStable(compos, func(i, j int) bool { return compos[i].lane > compos[j].lane })

	for _, p := range compos {
		if err := m.backend.PlantTransition(m.transition(m.compositions[p.id])); err != nil {
			m.logger.WithError(err).WithField("composition", p.id).Error("Failed to plant composition")
			return false
		}
	}
	if currentCompo != -1 && m.isComposition(currentCompo) {
		c := m.compositions[currentCompo]
		m.notifyChange(currentCompo, c.trackID, RoleATrack)
	}
	return true
}
