package timeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"montage/internal/undo"
	"montage/pkg/models"
)

// Snapshot captures tracks, items and groups in a serializable form.
func (m *Model) Snapshot() models.Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := models.Snapshot{Duration: m.backend.Playtime()}
	for i, t := range m.tracks {
		snap.Tracks = append(snap.Tracks, models.Track{ID: t.id, Position: i})
	}
	for _, id := range sortedKeys(m.clips) {
		c := m.clips[id]
		snap.Clips = append(snap.Clips, models.Clip{
			ID:       c.id,
			SourceID: c.sourceID,
			TrackID:  c.trackID,
			Position: c.position,
			In:       c.in,
			Playtime: c.playtime,
		})
	}
	for _, id := range sortedKeys(m.compositions) {
		c := m.compositions[id]
		snap.Compositions = append(snap.Compositions, models.Composition{
			ID:       c.id,
			Kind:     c.kind,
			TrackID:  c.trackID,
			ATrack:   c.aTrack,
			Position: c.position,
			Playtime: c.playtime,
		})
	}
	for _, gid := range m.groups.Groups() {
		snap.Groups = append(snap.Groups, models.Group{ID: gid, Children: m.groups.GetDirectChildren(gid)})
	}
	return snap
}

// FromSnapshot builds a new model holding the content of snap. Ids are
// reallocated; the returned map translates snapshot ids to model ids. The
// rebuild is not recorded on the undo stack.
func FromSnapshot(opts Options, snap models.Snapshot) (*Model, map[int]int, error) {
	m := NewModel(opts)
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tx := undo.NewTx()
	defer tx.Release()

	mapping := make(map[int]int)
	for i, t := range snap.Tracks {
		id, ok := m.requestTrackInsertion(i, tx)
		if !ok {
			return nil, nil, fmt.Errorf("track %d: insertion failed", t.ID)
		}
		mapping[t.ID] = id
	}

	resolveTrack := func(id int) (int, error) {
		if id == -1 {
			return -1, nil
		}
		mapped, ok := mapping[id]
		if !ok || !m.isTrack(mapped) {
			return -1, fmt.Errorf("unknown track %d", id)
		}
		return mapped, nil
	}

	for _, c := range snap.Clips {
		trackID, err := resolveTrack(c.TrackID)
		if err != nil {
			return nil, nil, fmt.Errorf("clip %d: %w", c.ID, err)
		}
		id, ok := m.insertClip(c.SourceID, c.In, c.Playtime, trackID, c.Position, tx)
		if !ok {
			return nil, nil, fmt.Errorf("clip %d: cannot place %s at %d", c.ID, c.SourceID, c.Position)
		}
		mapping[c.ID] = id
	}

	for _, c := range snap.Compositions {
		trackID, err := resolveTrack(c.TrackID)
		if err != nil {
			return nil, nil, fmt.Errorf("composition %d: %w", c.ID, err)
		}
		id, ok := m.requestCompositionInsertion(c.Kind, trackID, c.Position, c.Playtime, tx)
		if !ok {
			return nil, nil, fmt.Errorf("composition %d: cannot place at %d", c.ID, c.Position)
		}
		mapping[c.ID] = id
		if trackID == -1 || c.ATrack == -1 {
			continue
		}

		// Tracks inserted since the composition was placed leave its A-track
		// further down than the track directly below.
		aTrack, err := resolveTrack(c.ATrack)
		if err != nil {
			return nil, nil, fmt.Errorf("composition %d: a-track: %w", c.ID, err)
		}
		if m.trackPosition(aTrack) >= m.trackPosition(trackID) {
			return nil, nil, fmt.Errorf("composition %d: a-track %d is not below track %d", c.ID, c.ATrack, c.TrackID)
		}
		if compo := m.compositions[id]; compo.aTrack != aTrack {
			compo.aTrack = aTrack
			if !m.replantCompositions(-1) {
				return nil, nil, fmt.Errorf("composition %d: cannot replant onto track %d", c.ID, c.ATrack)
			}
		}
	}

	pending := append([]models.Group(nil), snap.Groups...)
	for len(pending) > 0 {
		var next []models.Group
		for _, g := range pending {
			children, ready := mapChildren(g.Children, mapping)
			if !ready {
				next = append(next, g)
				continue
			}
			mapping[g.ID] = m.groups.GroupItems(children, tx)
		}
		if len(next) == len(pending) {
			return nil, nil, fmt.Errorf("group %d: children cannot be resolved", next[0].ID)
		}
		pending = next
	}

	if err := m.checkConsistency(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	m.logger.WithFields(logrus.Fields{
		"tracks": len(m.tracks),
		"clips":  len(m.clips),
	}).Debug("Timeline rebuilt from snapshot")
	return m, mapping, nil
}

func mapChildren(children []int, mapping map[int]int) ([]int, bool) {
	out := make([]int, 0, len(children))
	for _, c := range children {
		mapped, ok := mapping[c]
		if !ok {
			return nil, false
		}
		out = append(out, mapped)
	}
	return out, true
}
