package timeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInconsistent wraps every failure reported by CheckConsistency.
var ErrInconsistent = errors.New("timeline inconsistent")

// CheckConsistency verifies the model against itself and against the
// backend. It is meant for tests and debugging.
func (m *Model) CheckConsistency() error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if err := m.checkConsistency(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistent, err)
	}
	return nil
}

func (m *Model) checkConsistency() error {
	if got := m.backend.TrackCount(); got != len(m.tracks)+1 {
		return fmt.Errorf("model has %d tracks but backend has %d lanes", len(m.tracks), got)
	}
	if len(m.trackIndex) != len(m.tracks) {
		return fmt.Errorf("track index holds %d entries for %d tracks", len(m.trackIndex), len(m.tracks))
	}
	for i, t := range m.tracks {
		if m.trackIndex[t.id] != i {
			return fmt.Errorf("track %d is at position %d but indexed at %d", t.id, i, m.trackIndex[t.id])
		}
		if err := t.checkConsistency(); err != nil {
			return err
		}
	}

	var expectedSnaps []int
	for _, id := range sortedKeys(m.clips) {
		clip := m.clips[id]
		if !m.groups.Contains(id) {
			return fmt.Errorf("clip %d has no group slot", id)
		}
		if !clip.placed() {
			continue
		}
		if !m.isTrack(clip.trackID) || indexOf(m.mustTrack(clip.trackID).clips, id) == -1 {
			return fmt.Errorf("clip %d claims track %d which does not list it", id, clip.trackID)
		}
		expectedSnaps = append(expectedSnaps, clip.position, clip.End())
	}
	for _, id := range sortedKeys(m.compositions) {
		c := m.compositions[id]
		if !m.groups.Contains(id) {
			return fmt.Errorf("composition %d has no group slot", id)
		}
		if !c.placed() {
			continue
		}
		if !m.isTrack(c.trackID) || indexOf(m.mustTrack(c.trackID).compositions, id) == -1 {
			return fmt.Errorf("composition %d claims track %d which does not list it", id, c.trackID)
		}
		expectedSnaps = append(expectedSnaps, c.position, c.End())
	}

	sort.Ints(expectedSnaps)
	snaps := m.snaps.Points()
	if len(snaps) != len(expectedSnaps) {
		return fmt.Errorf("snap index holds %d points, expected %d", len(snaps), len(expectedSnaps))
	}
	for i := range snaps {
		if snaps[i] != expectedSnaps[i] {
			return fmt.Errorf("snap index holds %v, expected %v", snaps, expectedSnaps)
		}
	}

	for _, gid := range m.groups.Groups() {
		for _, leaf := range m.groups.GetLeaves(gid) {
			if !m.isItem(leaf) {
				return fmt.Errorf("group %d has leaf %d which is not an item", gid, leaf)
			}
		}
	}

	return m.checkTransitions()
}

type transitionKey struct {
	bTrack, aTrack, in, out int
}

func (m *Model) checkTransitions() error {
	field := m.backend.Transitions()
	for i := 1; i < len(field); i++ {
		if field[i].BTrack > field[i-1].BTrack {
			return fmt.Errorf("transition %d on lane %d is planted after lane %d", field[i].ID, field[i].BTrack, field[i-1].BTrack)
		}
	}

	expected := make(map[transitionKey]int)
	for _, id := range sortedKeys(m.compositions) {
		c := m.compositions[id]
		if !c.placed() || c.aTrack == -1 {
			continue
		}
		if !m.isTrack(c.aTrack) {
			return fmt.Errorf("composition %d blends onto unknown track %d", id, c.aTrack)
		}
		tr := m.transition(c)
		expected[transitionKey{tr.BTrack, tr.ATrack, tr.In, tr.Out}]++
	}

	planted := make(map[transitionKey]int)
	for _, tr := range field {
		planted[transitionKey{tr.BTrack, tr.ATrack, tr.In, tr.Out}]++
	}
	for key, n := range expected {
		if planted[key] != n {
			return fmt.Errorf("composition over lanes %d/%d [%d,%d] is not planted", key.bTrack, key.aTrack, key.in, key.out)
		}
	}
	for key, n := range planted {
		if expected[key] != n {
			return fmt.Errorf("transition over lanes %d/%d [%d,%d] has no composition", key.bTrack, key.aTrack, key.in, key.out)
		}
	}
	return nil
}
