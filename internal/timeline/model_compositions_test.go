package timeline

import (
	"testing"

	"montage/internal/engine"
)

func TestCompositionInsertion(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 3)

	if _, ok := f.model.RequestCompositionInsertion("wipe", tracks[0], 0, 20, true); ok {
		t.Error("Bottom track has nothing to blend onto")
	}

	low, ok := f.model.RequestCompositionInsertion("wipe", tracks[1], 10, 50, true)
	if !ok {
		t.Fatal("Insertion failed")
	}
	if f.model.GetCompositionATrack(low) != tracks[0] {
		t.Errorf("Expected A-track %d, got %d", tracks[0], f.model.GetCompositionATrack(low))
	}
	want := engine.Transition{ID: low, Kind: "wipe", ATrack: 1, BTrack: 2, In: 10, Out: 59}
	if got := f.tractor.Transitions(); len(got) != 1 || got[0] != want {
		t.Fatalf("Expected %+v planted, got %+v", want, got)
	}

	high, ok := f.model.RequestCompositionInsertion("luma", tracks[2], 0, 30, true)
	if !ok {
		t.Fatal("Second insertion failed")
	}
	field := f.tractor.Transitions()
	if len(field) != 2 || field[0].ID != high || field[1].ID != low {
		t.Errorf("Expected transitions by decreasing lane, got %+v", field)
	}

	if _, ok := f.model.RequestCompositionInsertion("wipe", tracks[1], 40, 10, true); ok {
		t.Error("Compositions on one track must not overlap")
	}
	f.clip(t, "a100", tracks[1], 0)
	f.consistent(t)

	if !f.stack.Undo() || !f.stack.Undo() {
		t.Fatal("Undo failed")
	}
	if f.model.IsComposition(high) || len(f.tractor.Transitions()) != 1 {
		t.Error("Undo did not remove the composition")
	}
	f.consistent(t)
}

func TestCompositionMove(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 3)
	low, _ := f.model.RequestCompositionInsertion("wipe", tracks[1], 0, 50, true)
	high, _ := f.model.RequestCompositionInsertion("luma", tracks[2], 100, 50, true)

	if !f.model.RequestCompositionMove(low, tracks[1], 20, true, true) {
		t.Fatal("Same-track move failed")
	}
	for _, tr := range f.tractor.Transitions() {
		if tr.ID == low && (tr.In != 20 || tr.Out != 69) {
			t.Errorf("Transition range not updated: %+v", tr)
		}
	}

	if !f.model.RequestCompositionMove(low, tracks[2], 0, true, true) {
		t.Fatal("Cross-track move failed")
	}
	if f.model.GetCompositionTrackID(low) != tracks[2] || f.model.GetCompositionATrack(low) != tracks[1] {
		t.Error("Composition not reattached")
	}
	f.consistent(t)

	if f.model.RequestCompositionMove(low, tracks[2], 120, true, true) {
		t.Error("Move onto another composition must fail")
	}
	if f.model.RequestCompositionMove(high, tracks[0], 0, true, true) {
		t.Error("Move to the bottom track must fail")
	}
	f.consistent(t)

	if got := f.model.SuggestCompositionMove(low, tracks[2], 80); got != 50 {
		t.Errorf("Expected suggestion clamped to 50, got %d", got)
	}

	f.stack.Undo()
	if f.model.GetCompositionTrackID(low) != tracks[1] || f.model.GetCompositionATrack(low) != tracks[0] {
		t.Error("Undo did not restore the composition track")
	}
	f.consistent(t)
}

func TestTrackInsertionReplantsCompositions(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	compo, _ := f.model.RequestCompositionInsertion("wipe", tracks[1], 0, 25, true)

	if _, ok := f.model.RequestTrackInsertion(0); !ok {
		t.Fatal("Track insertion failed")
	}
	field := f.tractor.Transitions()
	if len(field) != 1 || field[0].ID != compo || field[0].BTrack != 3 || field[0].ATrack != 2 {
		t.Errorf("Transition not replanted on shifted lanes: %+v", field)
	}
	f.consistent(t)

	f.stack.Undo()
	field = f.tractor.Transitions()
	if len(field) != 1 || field[0].BTrack != 2 || field[0].ATrack != 1 {
		t.Errorf("Transition not replanted after undo: %+v", field)
	}
	f.consistent(t)
}

func TestCompositionResize(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	compo, _ := f.model.RequestCompositionInsertion("wipe", tracks[1], 100, 50, true)

	if !f.model.RequestItemResize(compo, 30, false, true, false) {
		t.Fatal("Resize failed")
	}
	if f.model.GetCompositionPosition(compo) != 120 || f.model.GetCompositionPlaytime(compo) != 30 {
		t.Errorf("Got %d+%d", f.model.GetCompositionPosition(compo), f.model.GetCompositionPlaytime(compo))
	}
	if tr := f.tractor.Transitions()[0]; tr.In != 120 || tr.Out != 149 {
		t.Errorf("Transition range not updated: %+v", tr)
	}
	f.consistent(t)

	if !f.model.RequestItemDeletion(compo, true) {
		t.Fatal("Deletion failed")
	}
	if len(f.tractor.Transitions()) != 0 {
		t.Error("Deleted composition still planted")
	}
	f.consistent(t)
	f.stack.Undo()
	if !f.model.IsComposition(compo) || len(f.tractor.Transitions()) != 1 {
		t.Error("Undo did not restore the composition")
	}
	f.consistent(t)
}
