// Package timeline is the editing model of a multi-track timeline. It keeps
// tracks, clips, compositions and groups consistent with a composition
// backend, and records every mutation as an undoable transaction.
//
// Exported methods take the model lock. Unexported methods assume it is
// held by the caller.
package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"montage/internal/engine"
	"montage/internal/groups"
	"montage/internal/ids"
	"montage/internal/snap"
	"montage/internal/undo"
)

// DefaultSnapDistance is the snapping tolerance in frames.
const DefaultSnapDistance = 10

// Options configure a Model. Zero values select defaults.
type Options struct {
	Backend      Backend
	Bin          SourceBin
	Stack        UndoStack
	Logger       *logrus.Logger
	Allocator    *ids.Allocator
	SnapDistance int
	NotifyBuffer int
}

// Model is the timeline.
type Model struct {
	id           int
	backend      Backend
	bin          SourceBin
	stack        UndoStack
	logger       *logrus.Logger
	ids          *ids.Allocator
	tracks       []*Track
	trackIndex   map[int]int
	clips        map[int]*Clip
	compositions map[int]*Composition
	groups       *groups.Tree
	snaps        *snap.Index
	snapDistance int
	notifier     *notifier
	muted        bool
	mutex        sync.RWMutex
}

// NewModel creates an empty timeline.
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	backend := opts.Backend
	if backend == nil {
		backend = engine.NewTractor(logger)
	}
	bin := opts.Bin
	if bin == nil {
		bin = emptyBin{}
	}
	stack := opts.Stack
	if stack == nil {
		stack = undo.NewStack(0, logger)
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = ids.NewAllocator(0)
	}
	snapDistance := opts.SnapDistance
	if snapDistance <= 0 {
		snapDistance = DefaultSnapDistance
	}

	return &Model{
		id:           alloc.Next(),
		backend:      backend,
		bin:          bin,
		stack:        stack,
		logger:       logger,
		ids:          alloc,
		trackIndex:   make(map[int]int),
		clips:        make(map[int]*Clip),
		compositions: make(map[int]*Composition),
		groups:       groups.NewTree(alloc),
		snaps:        snap.NewIndex(),
		snapDistance: snapDistance,
		notifier:     newNotifier(opts.NotifyBuffer),
	}
}

// ID returns the model's own identifier, drawn from the shared allocator.
func (m *Model) ID() int { return m.id }

// Backend returns the engine the model drives.
func (m *Model) Backend() Backend { return m.backend }

// lockedEntry replays a transaction under the model lock.
type lockedEntry struct {
	model *Model
	tx    *undo.Tx
}

func (e *lockedEntry) Undo() bool {
	e.model.mutex.Lock()
	defer e.model.mutex.Unlock()

	ok := e.tx.Undo()
	e.model.logger.WithField("steps", e.tx.Len()).Debug("Undo applied")
	return ok
}

func (e *lockedEntry) Redo() bool {
	e.model.mutex.Lock()
	defer e.model.mutex.Unlock()

	ok := e.tx.Redo()
	e.model.logger.WithField("steps", e.tx.Len()).Debug("Redo applied")
	return ok
}

func (e *lockedEntry) Release() {
	e.tx.Release()
}

func (m *Model) push(label string, tx *undo.Tx) {
	if tx.Empty() {
		tx.Release()
		return
	}
	m.stack.Push(label, &lockedEntry{model: m, tx: tx})
}

// Commit pushes a transaction assembled through the Tx variants as one
// user-level action.
func (m *Model) Commit(label string, tx *undo.Tx) {
	m.push(label, tx)
}

func (m *Model) mustClip(id int) *Clip {
	clip, ok := m.clips[id]
	if !ok {
		panic(fmt.Sprintf("timeline: unknown clip %d", id))
	}
	return clip
}

func (m *Model) mustComposition(id int) *Composition {
	c, ok := m.compositions[id]
	if !ok {
		panic(fmt.Sprintf("timeline: unknown composition %d", id))
	}
	return c
}

func (m *Model) mustTrack(id int) *Track {
	i, ok := m.trackIndex[id]
	if !ok {
		panic(fmt.Sprintf("timeline: unknown track %d", id))
	}
	return m.tracks[i]
}

func (m *Model) isClip(id int) bool {
	_, ok := m.clips[id]
	return ok
}

func (m *Model) isComposition(id int) bool {
	_, ok := m.compositions[id]
	return ok
}

func (m *Model) isTrack(id int) bool {
	_, ok := m.trackIndex[id]
	return ok
}

func (m *Model) isItem(id int) bool {
	return m.isClip(id) || m.isComposition(id)
}

func (m *Model) trackPosition(trackID int) int {
	i, ok := m.trackIndex[trackID]
	if !ok {
		panic(fmt.Sprintf("timeline: unknown track %d", trackID))
	}
	return i
}

// trackMltIndex maps a track to its backend lane.
func (m *Model) trackMltIndex(trackID int) int {
	return m.trackPosition(trackID) + 1
}

func (m *Model) previousTrackID(trackID int) int {
	i := m.trackPosition(trackID)
	if i == 0 {
		return -1
	}
	return m.tracks[i-1].id
}

func (m *Model) nextTrackID(trackID int) int {
	i := m.trackPosition(trackID)
	if i == len(m.tracks)-1 {
		return -1
	}
	return m.tracks[i+1].id
}

func (m *Model) itemTrackID(id int) int {
	if clip, ok := m.clips[id]; ok {
		return clip.trackID
	}
	return m.mustComposition(id).trackID
}

func (m *Model) itemPosition(id int) int {
	if clip, ok := m.clips[id]; ok {
		return clip.position
	}
	return m.mustComposition(id).position
}

func (m *Model) itemPlaytime(id int) int {
	if clip, ok := m.clips[id]; ok {
		return clip.playtime
	}
	return m.mustComposition(id).playtime
}

func (m *Model) reindexTracks() {
	for id := range m.trackIndex {
		delete(m.trackIndex, id)
	}
	for i, t := range m.tracks {
		m.trackIndex[t.id] = i
	}
}

func sortedKeys[V any](items map[int]V) []int {
	keys := make([]int, 0, len(items))
	for id := range items {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	return keys
}

// GetTracksCount returns the number of tracks.
func (m *Model) GetTracksCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.tracks)
}

func (m *Model) GetClipsCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.clips)
}

func (m *Model) GetCompositionsCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.compositions)
}

// TrackIDs returns track ids from bottom to top.
func (m *Model) TrackIDs() []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]int, len(m.tracks))
	for i, t := range m.tracks {
		out[i] = t.id
	}
	return out
}

// ClipIDs returns every registered clip id in ascending order.
func (m *Model) ClipIDs() []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return sortedKeys(m.clips)
}

func (m *Model) CompositionIDs() []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return sortedKeys(m.compositions)
}

// GetTrackClips returns the clips of a track ordered by position.
func (m *Model) GetTrackClips(trackID int) []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]int(nil), m.mustTrack(trackID).clips...)
}

func (m *Model) GetTrackCompositions(trackID int) []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return append([]int(nil), m.mustTrack(trackID).compositions...)
}

func (m *Model) GetClipTrackID(clipID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustClip(clipID).trackID
}

func (m *Model) GetCompositionTrackID(compoID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustComposition(compoID).trackID
}

// GetItemTrackID returns the track of a clip or composition, -1 if unplaced.
func (m *Model) GetItemTrackID(itemID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.itemTrackID(itemID)
}

func (m *Model) GetClipPosition(clipID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustClip(clipID).position
}

func (m *Model) GetClipPlaytime(clipID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustClip(clipID).playtime
}

func (m *Model) GetClipIn(clipID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustClip(clipID).in
}

func (m *Model) GetClipSourceID(clipID int) string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustClip(clipID).sourceID
}

func (m *Model) GetCompositionPosition(compoID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustComposition(compoID).position
}

func (m *Model) GetCompositionPlaytime(compoID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustComposition(compoID).playtime
}

// GetCompositionATrack returns the track the composition blends onto.
func (m *Model) GetCompositionATrack(compoID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.mustComposition(compoID).aTrack
}

func (m *Model) GetTrackClipsCount(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.mustTrack(trackID).clips)
}

func (m *Model) GetTrackCompositionsCount(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.mustTrack(trackID).compositions)
}

// GetTrackPosition returns the index of a track, 0 being the bottom track.
func (m *Model) GetTrackPosition(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.trackPosition(trackID)
}

func (m *Model) GetTrackMltIndex(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.trackMltIndex(trackID)
}

// GetNextTrackID returns the track above, or -1.
func (m *Model) GetNextTrackID(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.nextTrackID(trackID)
}

// GetPreviousTrackID returns the track below, or -1.
func (m *Model) GetPreviousTrackID(trackID int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.previousTrackID(trackID)
}

// GetTrackIDByPosition returns the track at index position, or -1.
func (m *Model) GetTrackIDByPosition(position int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if position < 0 || position >= len(m.tracks) {
		return -1
	}
	return m.tracks[position].id
}

// Duration returns the backend playtime.
func (m *Model) Duration() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.backend.Playtime()
}

func (m *Model) IsClip(id int) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.isClip(id)
}

func (m *Model) IsComposition(id int) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.isComposition(id)
}

func (m *Model) IsTrack(id int) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.isTrack(id)
}

func (m *Model) IsGroup(id int) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.groups.IsGroup(id)
}

func (m *Model) IsInGroup(id int) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.groups.IsInGroup(id)
}

// GetRootID returns the topmost group containing id, or id itself.
func (m *Model) GetRootID(id int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.groups.GetRootID(id)
}

// GetGroupElements returns the leaves under the root of id's group.
func (m *Model) GetGroupElements(id int) []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.groups.GetLeaves(m.groups.GetRootID(id))
}
