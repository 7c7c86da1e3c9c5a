package timeline

import (
	"montage/internal/engine"
	"montage/internal/undo"
)

// Backend is the multi-track composition engine the model mirrors. Lane
// indices are engine indices: lane 0 is the reserved background lane, so a
// track at position p lives on lane p+1.
type Backend interface {
	TrackCount() int
	InsertTrack(index int) error
	RemoveTrack(index int) error

	CreateProducer(id int, source string, length int) error
	ReleaseProducer(id int)
	InsertClip(lane int, cut engine.Cut) error
	RemoveClip(lane, id int) error
	Lane(lane int) ([]engine.Cut, error)

	PlantTransition(tr engine.Transition) error
	UnplantTransition(id int) error
	IsPlanted(id int) bool
	SetTransitionRange(id, in, out int) error
	Transitions() []engine.Transition

	Playtime() int
}

// SourceBin resolves the source a clip references to its available length.
type SourceBin interface {
	SourceLength(id string) (int, bool)
}

// UndoStack receives committed user-level actions.
type UndoStack interface {
	Push(label string, e undo.Entry)
}

type emptyBin struct{}

func (emptyBin) SourceLength(string) (int, bool) { return 0, false }
