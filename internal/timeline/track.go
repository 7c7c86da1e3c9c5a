package timeline

import (
	"fmt"
	"math"
	"sort"

	"montage/internal/engine"
	"montage/internal/undo"
)

// Unbounded is returned as a blank size when no neighbour limits a gap.
const Unbounded = math.MaxInt

// Track is an ordered lane of non-overlapping clips. Compositions sit on
// the track too and must not overlap each other, but they may overlap
// clips freely.
//
// All methods assume the model lock is held.
type Track struct {
	id           int
	model        *Model
	clips        []int
	compositions []int
}

func newTrack(id int, m *Model) *Track {
	return &Track{id: id, model: m}
}

func (t *Track) ID() int { return t.id }

func (t *Track) lane() int {
	return t.model.trackMltIndex(t.id)
}

func (t *Track) clipPosition(i int) int {
	return t.model.clips[t.clips[i]].position
}

func (t *Track) compoPosition(i int) int {
	return t.model.compositions[t.compositions[i]].position
}

// clipRangeFree reports whether [start, end) holds no clip other than
// exclude.
func (t *Track) clipRangeFree(start, end, exclude int) bool {
	if start < 0 {
		return false
	}
	i := sort.Search(len(t.clips), func(i int) bool { return t.clipPosition(i) >= end })
	for j := i - 1; j >= 0; j-- {
		clip := t.model.clips[t.clips[j]]
		if clip.id == exclude {
			continue
		}
		return clip.End() <= start
	}
	return true
}

func (t *Track) compoRangeFree(start, end, exclude int) bool {
	if start < 0 {
		return false
	}
	i := sort.Search(len(t.compositions), func(i int) bool { return t.compoPosition(i) >= end })
	for j := i - 1; j >= 0; j-- {
		c := t.model.compositions[t.compositions[j]]
		if c.id == exclude {
			continue
		}
		return c.End() <= start
	}
	return true
}

func insertSorted(list []int, id int, position func(i int) int, at int) []int {
	i := sort.Search(len(list), func(i int) bool { return position(i) > at })
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = id
	return list
}

func removeID(list []int, id int) []int {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func indexOf(list []int, id int) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

func (t *Track) clipInsertionLambda(clipID, position int, updateView bool) undo.Fun {
	return func() bool {
		m := t.model
		clip := m.mustClip(clipID)
		if clip.placed() || !t.clipRangeFree(position, position+clip.playtime, clipID) {
			return false
		}
		cut := clip.cut()
		cut.Position = position
		if err := m.backend.InsertClip(t.lane(), cut); err != nil {
			m.logger.WithError(err).WithField("clip", clipID).Debug("Backend refused clip")
			return false
		}
		clip.position = position
		clip.trackID = t.id
		t.clips = insertSorted(t.clips, clipID, t.clipPosition, position)
		m.snaps.AddPoint(position)
		m.snaps.AddPoint(clip.End())
		if updateView {
			m.notifyInserted(clipID, t.id)
		}
		return true
	}
}

func (t *Track) clipDeletionLambda(clipID int, updateView bool) undo.Fun {
	return func() bool {
		m := t.model
		clip := m.mustClip(clipID)
		if clip.trackID != t.id {
			return false
		}
		if err := m.backend.RemoveClip(t.lane(), clipID); err != nil {
			m.logger.WithError(err).WithField("clip", clipID).Error("Backend could not remove clip")
			return false
		}
		t.clips = removeID(t.clips, clipID)
		m.snaps.RemovePoint(clip.position)
		m.snaps.RemovePoint(clip.End())
		clip.trackID = -1
		if updateView {
			m.notifyRemoved(clipID, t.id)
		}
		return true
	}
}

func (t *Track) requestClipInsertion(clipID, position int, updateView bool, tx *undo.Tx) bool {
	clip := t.model.mustClip(clipID)
	if clip.placed() || !t.clipRangeFree(position, position+clip.playtime, clipID) {
		return false
	}
	return tx.Do(t.clipInsertionLambda(clipID, position, updateView), t.clipDeletionLambda(clipID, updateView))
}

func (t *Track) requestClipDeletion(clipID int, updateView bool, tx *undo.Tx) bool {
	clip := t.model.mustClip(clipID)
	if clip.trackID != t.id {
		return false
	}
	oldPos := clip.position
	return tx.Do(t.clipDeletionLambda(clipID, updateView), t.clipInsertionLambda(clipID, oldPos, updateView))
}

func (t *Track) clipResizeLambda(clipID, in, size, position int) undo.Fun {
	return func() bool {
		m := t.model
		clip := m.mustClip(clipID)
		lane := t.lane()
		old := clip.cut()
		if err := m.backend.RemoveClip(lane, clipID); err != nil {
			return false
		}
		next := engine.Cut{ID: clipID, Position: position, In: in, Length: size}
		if err := m.backend.InsertClip(lane, next); err != nil {
			m.logger.WithError(err).WithField("clip", clipID).Debug("Backend refused resize")
			if err := m.backend.InsertClip(lane, old); err != nil {
				m.logger.WithError(err).WithField("clip", clipID).Error("Failed to restore clip after refused resize")
			}
			return false
		}
		m.snaps.RemovePoint(clip.position)
		m.snaps.RemovePoint(clip.End())
		clip.in, clip.playtime, clip.position = in, size, position
		m.snaps.AddPoint(clip.position)
		m.snaps.AddPoint(clip.End())
		m.notifyChange(clipID, t.id, RolePosition, RoleDuration)
		return true
	}
}

func (t *Track) requestClipResize(clip *Clip, in, size, position int, tx *undo.Tx) bool {
	if !t.clipRangeFree(position, position+size, clip.id) {
		return false
	}
	operation := t.clipResizeLambda(clip.id, in, size, position)
	reverse := t.clipResizeLambda(clip.id, clip.in, clip.playtime, clip.position)
	return tx.Do(operation, reverse)
}

// getBlankSizeNearClip returns the free space between the clip and its
// neighbour after it (after=true) or before it. With no neighbour after,
// the space is Unbounded; with none before, it extends to frame 0.
func (t *Track) getBlankSizeNearClip(clipID int, after bool) int {
	i := indexOf(t.clips, clipID)
	if i == -1 {
		panic(fmt.Sprintf("timeline: clip %d is not on track %d", clipID, t.id))
	}
	clip := t.model.clips[clipID]
	if after {
		if i == len(t.clips)-1 {
			return Unbounded
		}
		return t.model.clips[t.clips[i+1]].position - clip.End()
	}
	if i == 0 {
		return clip.position
	}
	return clip.position - t.model.clips[t.clips[i-1]].End()
}

func (t *Track) getBlankSizeNearComposition(compoID int, after bool) int {
	i := indexOf(t.compositions, compoID)
	if i == -1 {
		panic(fmt.Sprintf("timeline: composition %d is not on track %d", compoID, t.id))
	}
	c := t.model.compositions[compoID]
	if after {
		if i == len(t.compositions)-1 {
			return Unbounded
		}
		return t.model.compositions[t.compositions[i+1]].position - c.End()
	}
	if i == 0 {
		return c.position
	}
	return c.position - t.model.compositions[t.compositions[i-1]].End()
}

func (t *Track) compoInsertionLambda(compoID, position int, updateView bool) undo.Fun {
	return func() bool {
		m := t.model
		c := m.mustComposition(compoID)
		if c.placed() || !t.compoRangeFree(position, position+c.playtime, compoID) {
			return false
		}
		c.position = position
		c.trackID = t.id
		t.compositions = insertSorted(t.compositions, compoID, t.compoPosition, position)
		m.snaps.AddPoint(position)
		m.snaps.AddPoint(c.End())
		if m.backend.IsPlanted(compoID) {
			if err := m.backend.SetTransitionRange(compoID, c.position, c.End()-1); err != nil {
				m.logger.WithError(err).WithField("composition", compoID).Error("Failed to update transition range")
			}
		}
		if updateView {
			m.notifyInserted(compoID, t.id)
		}
		return true
	}
}

func (t *Track) compoDeletionLambda(compoID int, updateView bool) undo.Fun {
	return func() bool {
		m := t.model
		c := m.mustComposition(compoID)
		if c.trackID != t.id {
			return false
		}
		t.compositions = removeID(t.compositions, compoID)
		m.snaps.RemovePoint(c.position)
		m.snaps.RemovePoint(c.End())
		c.trackID = -1
		if updateView {
			m.notifyRemoved(compoID, t.id)
		}
		return true
	}
}

func (t *Track) requestCompositionInsertion(compoID, position int, updateView bool, tx *undo.Tx) bool {
	c := t.model.mustComposition(compoID)
	if c.placed() || !t.compoRangeFree(position, position+c.playtime, compoID) {
		return false
	}
	return tx.Do(t.compoInsertionLambda(compoID, position, updateView), t.compoDeletionLambda(compoID, updateView))
}

func (t *Track) requestCompositionDeletion(compoID int, updateView bool, tx *undo.Tx) bool {
	c := t.model.mustComposition(compoID)
	if c.trackID != t.id {
		return false
	}
	oldPos := c.position
	return tx.Do(t.compoDeletionLambda(compoID, updateView), t.compoInsertionLambda(compoID, oldPos, updateView))
}

func (t *Track) compoResizeLambda(compoID, size, position int) undo.Fun {
	return func() bool {
		m := t.model
		c := m.mustComposition(compoID)
		m.snaps.RemovePoint(c.position)
		m.snaps.RemovePoint(c.End())
		c.playtime, c.position = size, position
		m.snaps.AddPoint(c.position)
		m.snaps.AddPoint(c.End())
		if m.backend.IsPlanted(compoID) {
			if err := m.backend.SetTransitionRange(compoID, c.position, c.End()-1); err != nil {
				m.logger.WithError(err).WithField("composition", compoID).Error("Failed to update transition range")
				return false
			}
		}
		m.notifyChange(compoID, t.id, RolePosition, RoleDuration)
		return true
	}
}

func (t *Track) requestCompositionResize(c *Composition, size, position int, tx *undo.Tx) bool {
	if !t.compoRangeFree(position, position+size, c.id) {
		return false
	}
	operation := t.compoResizeLambda(c.id, size, position)
	reverse := t.compoResizeLambda(c.id, c.playtime, c.position)
	return tx.Do(operation, reverse)
}

// checkConsistency compares the track with its backend lane.
func (t *Track) checkConsistency() error {
	m := t.model
	cuts, err := m.backend.Lane(t.lane())
	if err != nil {
		return fmt.Errorf("track %d: %w", t.id, err)
	}
	if len(cuts) != len(t.clips) {
		return fmt.Errorf("track %d holds %d clips but its lane holds %d", t.id, len(t.clips), len(cuts))
	}
	end := 0
	for i, clipID := range t.clips {
		clip, ok := m.clips[clipID]
		if !ok {
			return fmt.Errorf("track %d references unknown clip %d", t.id, clipID)
		}
		if clip.trackID != t.id {
			return fmt.Errorf("clip %d is listed on track %d but claims track %d", clipID, t.id, clip.trackID)
		}
		if clip.position < end {
			return fmt.Errorf("clip %d on track %d overlaps its predecessor", clipID, t.id)
		}
		end = clip.End()
		if cuts[i] != clip.cut() {
			return fmt.Errorf("clip %d on track %d is %+v in the model but %+v in the lane", clipID, t.id, clip.cut(), cuts[i])
		}
	}

	end = 0
	for _, compoID := range t.compositions {
		c, ok := m.compositions[compoID]
		if !ok {
			return fmt.Errorf("track %d references unknown composition %d", t.id, compoID)
		}
		if c.trackID != t.id {
			return fmt.Errorf("composition %d is listed on track %d but claims track %d", compoID, t.id, c.trackID)
		}
		if c.position < end {
			return fmt.Errorf("composition %d on track %d overlaps its predecessor", compoID, t.id)
		}
		end = c.End()
	}
	return nil
}
