package timeline

import (
	"montage/internal/engine"
	"montage/internal/undo"
)

// Composition blends the track it sits on with the track below it (its
// A-track) over a time range.
type Composition struct {
	id       int
	kind     string
	position int
	playtime int
	trackID  int
	aTrack   int
}

func (c *Composition) ID() int       { return c.id }
func (c *Composition) Kind() string  { return c.kind }
func (c *Composition) Position() int { return c.position }
func (c *Composition) Playtime() int { return c.playtime }
func (c *Composition) TrackID() int  { return c.trackID }
func (c *Composition) ATrack() int   { return c.aTrack }
func (c *Composition) End() int      { return c.position + c.playtime }

func (c *Composition) placed() bool { return c.trackID != -1 }

// transition builds the engine transition for the composition in its
// current place. Both tracks must be set.
func (m *Model) transition(c *Composition) engine.Transition {
	return engine.Transition{
		ID:     c.id,
		Kind:   c.kind,
		ATrack: m.trackMltIndex(c.aTrack),
		BTrack: m.trackMltIndex(c.trackID),
		In:     c.position,
		Out:    c.position + c.playtime - 1,
	}
}

func (m *Model) registerComposition(c *Composition) {
	if _, exists := m.compositions[c.id]; exists {
		panic("timeline: composition registered twice")
	}
	m.compositions[c.id] = c
	m.groups.CreateGroupItem(c.id)
}

func (m *Model) registerCompositionLambda(c *Composition) undo.Fun {
	return func() bool {
		m.registerComposition(c)
		return true
	}
}

func (m *Model) deregisterCompositionLambda(compoID int) undo.Fun {
	return func() bool {
		c := m.mustComposition(compoID)
		if c.placed() || m.groups.IsInGroup(compoID) {
			return false
		}
		delete(m.compositions, compoID)
		m.groups.DestructGroupItem(compoID)
		return true
	}
}

func (m *Model) requestCompositionResize(c *Composition, size int, right bool, tx *undo.Tx) bool {
	if size <= 0 {
		return false
	}
	newPos := c.position
	if !right && c.placed() {
		newPos = c.position + c.playtime - size
	}
	if c.placed() {
		return m.mustTrack(c.trackID).requestCompositionResize(c, size, newPos, tx)
	}

	oldSize := c.playtime
	operation := func() bool {
		c.playtime = size
		return true
	}
	reverse := func() bool {
		c.playtime = oldSize
		return true
	}
	return tx.Do(operation, reverse)
}
