package timeline

import (
	"montage/internal/engine"
	"montage/internal/undo"
)

// Clip is a cut of a source placed, or about to be placed, on a track.
type Clip struct {
	id           int
	sourceID     string
	sourceLength int
	in           int
	playtime     int
	position     int
	trackID      int
	handle       *undo.Handle
}

func (c *Clip) ID() int          { return c.id }
func (c *Clip) SourceID() string { return c.sourceID }
func (c *Clip) In() int          { return c.in }
func (c *Clip) Playtime() int    { return c.playtime }
func (c *Clip) Position() int    { return c.position }
func (c *Clip) TrackID() int     { return c.trackID }

// End is the first frame after the clip.
func (c *Clip) End() int { return c.position + c.playtime }

func (c *Clip) placed() bool { return c.trackID != -1 }

func (c *Clip) cut() engine.Cut {
	return engine.Cut{ID: c.id, Position: c.position, In: c.in, Length: c.playtime}
}

// constructClip allocates a clip over [in, in+playtime) of the source and
// creates its producer in the backend. The clip is not registered.
func (m *Model) constructClip(sourceID string, in, playtime int) (*Clip, bool) {
	length, ok := m.bin.SourceLength(sourceID)
	if !ok {
		m.logger.WithField("source", sourceID).Warn("Unknown source")
		return nil, false
	}
	if playtime == -1 {
		playtime = length - in
	}
	if in < 0 || playtime <= 0 || in+playtime > length {
		return nil, false
	}

	id := m.ids.Next()
	if err := m.backend.CreateProducer(id, sourceID, length); err != nil {
		m.logger.WithError(err).WithField("source", sourceID).Error("Failed to create producer")
		return nil, false
	}

	clip := &Clip{
		id:           id,
		sourceID:     sourceID,
		sourceLength: length,
		in:           in,
		playtime:     playtime,
		position:     -1,
		trackID:      -1,
	}
	clip.handle = undo.NewHandle(func() {
		m.backend.ReleaseProducer(id)
		m.logger.WithField("clip", id).Debug("Producer released")
	})
	return clip, true
}

func (m *Model) registerClip(clip *Clip) {
	if _, exists := m.clips[clip.id]; exists {
		panic("timeline: clip registered twice")
	}
	m.clips[clip.id] = clip
	m.groups.CreateGroupItem(clip.id)
	clip.handle.Acquire()
}

func (m *Model) deregisterClipLambda(clipID int) undo.Fun {
	return func() bool {
		clip := m.mustClip(clipID)
		if clip.placed() || m.groups.IsInGroup(clipID) {
			return false
		}
		delete(m.clips, clipID)
		m.groups.DestructGroupItem(clipID)
		clip.handle.Release()
		return true
	}
}

func (m *Model) registerClipLambda(clip *Clip) undo.Fun {
	return func() bool {
		m.registerClip(clip)
		return true
	}
}

// requestClipResize changes the clip to size frames. Resizing from the
// right keeps the in-point; from the left it keeps the right edge fixed and
// moves both the in-point and the position.
func (m *Model) requestClipResize(clip *Clip, size int, right bool, tx *undo.Tx) bool {
	if size <= 0 || size > clip.sourceLength {
		return false
	}
	delta := clip.playtime - size
	newIn, newPos := clip.in, clip.position
	if right {
		if clip.in+size > clip.sourceLength {
			return false
		}
	} else {
		newIn = clip.in + delta
		if newIn < 0 {
			return false
		}
		if clip.placed() {
			newPos = clip.position + delta
		}
	}

	if clip.placed() {
		return m.mustTrack(clip.trackID).requestClipResize(clip, newIn, size, newPos, tx)
	}

	oldIn, oldSize := clip.in, clip.playtime
	operation := func() bool {
		clip.in, clip.playtime = newIn, size
		return true
	}
	reverse := func() bool {
		clip.in, clip.playtime = oldIn, oldSize
		return true
	}
	return tx.Do(operation, reverse)
}
