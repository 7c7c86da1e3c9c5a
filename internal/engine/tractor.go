// Package engine is an in-process multi-track composition backend. It keeps
// the lane-indexed structure the timeline model mirrors: lane 0 is a hidden
// background lane, every other lane is a playlist of cuts, and transitions
// are planted in a field connecting two lanes.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoLane          = errors.New("no such lane")
	ErrOverlap         = errors.New("cut overlaps existing content")
	ErrUnknownProducer = errors.New("unknown producer")
	ErrUnknownCut      = errors.New("cut not found on lane")
	ErrRange           = errors.New("cut exceeds producer range")
	ErrLaneNotEmpty    = errors.New("lane still holds cuts")
	ErrOrder           = errors.New("transitions must be planted by decreasing b lane")
	ErrNotPlanted      = errors.New("transition not planted")
	ErrAlreadyPlanted  = errors.New("transition already planted")
)

// BackgroundLaneName names the reserved lane 0.
const BackgroundLaneName = "black_track"

// Producer is a source reference owned by one timeline clip.
type Producer struct {
	ID     int
	Source string
	Length int
}

// Cut is a placed slice [In, In+Length) of a producer, starting at Position
// on its lane. A cut's ID is the id of its producer.
type Cut struct {
	ID       int
	Position int
	In       int
	Length   int
}

// End returns the first frame after the cut.
func (c Cut) End() int {
	return c.Position + c.Length
}

// Transition blends lane ATrack under lane BTrack over [In, Out] (inclusive).
type Transition struct {
	ID     int
	Kind   string
	ATrack int
	BTrack int
	In     int
	Out    int
}

type lane struct {
	name string
	cuts []Cut
}

// Tractor is the backend. It is safe for concurrent use.
type Tractor struct {
	lanes     []*lane
	producers map[int]Producer
	field     []Transition
	mutex     sync.RWMutex
	logger    *logrus.Logger
}

// NewTractor creates a tractor holding only the background lane.
func NewTractor(logger *logrus.Logger) *Tractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tractor{
		lanes:     []*lane{{name: BackgroundLaneName}},
		producers: make(map[int]Producer),
		logger:    logger,
	}
}

// CreateProducer registers the producer backing clip id.
func (t *Tractor) CreateProducer(id int, source string, length int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if length <= 0 {
		return fmt.Errorf("producer %d: %w", id, ErrRange)
	}
	t.producers[id] = Producer{ID: id, Source: source, Length: length}
	return nil
}

// ReleaseProducer forgets the producer of clip id.
func (t *Tractor) ReleaseProducer(id int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.producers, id)
	t.logger.WithField("producer_id", id).Debug("Released producer")
}

// HasProducer reports whether a producer is registered for id.
func (t *Tractor) HasProducer(id int) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	_, ok := t.producers[id]
	return ok
}

// ProducerCount returns the number of live producers.
func (t *Tractor) ProducerCount() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.producers)
}

// TrackCount returns the number of lanes, background included.
func (t *Tractor) TrackCount() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.lanes)
}

// InsertTrack inserts an empty lane at index (1..TrackCount).
func (t *Tractor) InsertTrack(index int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if index < 1 || index > len(t.lanes) {
		return fmt.Errorf("insert lane %d: %w", index, ErrNoLane)
	}
	t.lanes = append(t.lanes, nil)
	copy(t.lanes[index+1:], t.lanes[index:])
	t.lanes[index] = &lane{}
	return nil
}

// RemoveTrack removes the empty lane at index. The background lane cannot
// be removed.
func (t *Tractor) RemoveTrack(index int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if index < 1 || index >= len(t.lanes) {
		return fmt.Errorf("remove lane %d: %w", index, ErrNoLane)
	}
	if len(t.lanes[index].cuts) > 0 {
		return fmt.Errorf("remove lane %d: %w", index, ErrLaneNotEmpty)
	}
	t.lanes = append(t.lanes[:index], t.lanes[index+1:]...)
	return nil
}

// InsertClip places a cut on a lane.
func (t *Tractor) InsertClip(laneIndex int, cut Cut) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	l, err := t.lane(laneIndex)
	if err != nil {
		return err
	}
	p, ok := t.producers[cut.ID]
	if !ok {
		return fmt.Errorf("cut %d: %w", cut.ID, ErrUnknownProducer)
	}
	if cut.Length <= 0 || cut.In < 0 || cut.In+cut.Length > p.Length || cut.Position < 0 {
		return fmt.Errorf("cut %d [%d,+%d): %w", cut.ID, cut.In, cut.Length, ErrRange)
	}

	i := sort.Search(len(l.cuts), func(i int) bool { return l.cuts[i].Position >= cut.Position })
	if i > 0 && l.cuts[i-1].End() > cut.Position {
		return fmt.Errorf("cut %d at %d: %w", cut.ID, cut.Position, ErrOverlap)
	}
	if i < len(l.cuts) && l.cuts[i].Position < cut.End() {
		return fmt.Errorf("cut %d at %d: %w", cut.ID, cut.Position, ErrOverlap)
	}
	l.cuts = append(l.cuts, Cut{})
	copy(l.cuts[i+1:], l.cuts[i:])
	l.cuts[i] = cut
	return nil
}

// RemoveClip removes the cut of clip id from a lane.
func (t *Tractor) RemoveClip(laneIndex, id int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	l, err := t.lane(laneIndex)
	if err != nil {
		return err
	}
	for i, c := range l.cuts {
		if c.ID == id {
			l.cuts = append(l.cuts[:i], l.cuts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cut %d on lane %d: %w", id, laneIndex, ErrUnknownCut)
}

// Lane returns a copy of the cuts of a lane, ordered by position.
func (t *Tractor) Lane(laneIndex int) ([]Cut, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	l, err := t.lane(laneIndex)
	if err != nil {
		return nil, err
	}
	return append([]Cut(nil), l.cuts...), nil
}

// PlantTransition connects a transition to the field. Transitions must be
// planted by non-increasing BTrack.
func (t *Tractor) PlantTransition(tr Transition) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if tr.ATrack < 0 || tr.ATrack >= len(t.lanes) || tr.BTrack < 1 || tr.BTrack >= len(t.lanes) {
		return fmt.Errorf("transition %d lanes %d/%d: %w", tr.ID, tr.ATrack, tr.BTrack, ErrNoLane)
	}
	for _, planted := range t.field {
		if planted.ID == tr.ID {
			return fmt.Errorf("transition %d: %w", tr.ID, ErrAlreadyPlanted)
		}
	}
	if n := len(t.field); n > 0 && t.field[n-1].BTrack < tr.BTrack {
		return fmt.Errorf("transition %d on lane %d after lane %d: %w", tr.ID, tr.BTrack, t.field[n-1].BTrack, ErrOrder)
	}
	t.field = append(t.field, tr)
	return nil
}

// UnplantTransition disconnects a transition from the field.
func (t *Tractor) UnplantTransition(id int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for i, tr := range t.field {
		if tr.ID == id {
			t.field = append(t.field[:i], t.field[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transition %d: %w", id, ErrNotPlanted)
}

// IsPlanted reports whether transition id is connected.
func (t *Tractor) IsPlanted(id int) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, tr := range t.field {
		if tr.ID == id {
			return true
		}
	}
	return false
}

// SetTransitionRange updates the in and out points of a planted transition.
func (t *Tractor) SetTransitionRange(id, in, out int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for i := range t.field {
		if t.field[i].ID == id {
			t.field[i].In = in
			t.field[i].Out = out
			return nil
		}
	}
	return fmt.Errorf("transition %d: %w", id, ErrNotPlanted)
}

// Transitions returns the planted transitions in field order.
func (t *Tractor) Transitions() []Transition {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return append([]Transition(nil), t.field...)
}

// Playtime returns the end of the last cut over all lanes.
func (t *Tractor) Playtime() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	end := 0
	for _, l := range t.lanes {
		if n := len(l.cuts); n > 0 && l.cuts[n-1].End() > end {
			end = l.cuts[n-1].End()
		}
	}
	return end
}

// lane returns the lane at index (must be called with lock held).
func (t *Tractor) lane(index int) (*lane, error) {
	if index < 1 || index >= len(t.lanes) {
		return nil, fmt.Errorf("lane %d: %w", index, ErrNoLane)
	}
	return t.lanes[index], nil
}
