package timeline

import (
	"testing"
)

func TestGroupMove(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 3)
	a := f.clip(t, "a100", tracks[0], 0)
	b := f.clip(t, "d100", tracks[1], 100)

	gid, ok := f.model.RequestClipsGroup([]int{a, b})
	if !ok || !f.model.IsGroup(gid) {
		t.Fatal("Grouping failed")
	}

	if !f.model.RequestGroupMove(a, gid, 1, 50, true, true) {
		t.Fatal("Group move failed")
	}
	if f.model.GetClipTrackID(a) != tracks[1] || f.model.GetClipPosition(a) != 50 {
		t.Errorf("Clip a at track %d pos %d", f.model.GetClipTrackID(a), f.model.GetClipPosition(a))
	}
	if f.model.GetClipTrackID(b) != tracks[2] || f.model.GetClipPosition(b) != 150 {
		t.Errorf("Clip b at track %d pos %d", f.model.GetClipTrackID(b), f.model.GetClipPosition(b))
	}
	if f.stack.UndoLabel() != "Move group" {
		t.Errorf("Expected one group move action, got %q", f.stack.UndoLabel())
	}
	f.consistent(t)

	if !f.stack.Undo() {
		t.Fatal("Undo failed")
	}
	if f.model.GetClipTrackID(a) != tracks[0] || f.model.GetClipPosition(a) != 0 ||
		f.model.GetClipTrackID(b) != tracks[1] || f.model.GetClipPosition(b) != 100 {
		t.Error("A single undo should revert the whole group")
	}
	f.consistent(t)
}

func TestGroupMoveIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 3)
	a := f.clip(t, "a100", tracks[0], 0)
	b := f.clip(t, "d100", tracks[1], 100)
	f.clip(t, "b20", tracks[2], 160)
	gid, _ := f.model.RequestClipsGroup([]int{a, b})
	depth := f.stack.Len()

	tests := []struct {
		name       string
		deltaTrack int
		deltaPos   int
	}{
		{"blocked leaf", 1, 50},
		{"beyond top track", 2, 0},
		{"before time zero", 0, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f.model.RequestGroupMove(a, gid, tt.deltaTrack, tt.deltaPos, true, true) {
				t.Fatal("Expected the group move to fail")
			}
			if f.model.GetClipPosition(a) != 0 || f.model.GetClipPosition(b) != 100 ||
				f.model.GetClipTrackID(a) != tracks[0] || f.model.GetClipTrackID(b) != tracks[1] {
				t.Error("Failed group move left clips displaced")
			}
		})
	}
	if f.stack.Len() != depth {
		t.Error("Failed moves were recorded")
	}
	f.consistent(t)
}

func TestSuggestingGroupMoveIsSilent(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	a := f.clip(t, "b20", tracks[0], 0)
	b := f.clip(t, "b20", tracks[1], 40)
	c := f.clip(t, "b20", tracks[1], 100)
	compo, ok := f.model.RequestCompositionInsertion("wipe", tracks[1], 200, 30, true)
	if !ok {
		t.Fatal("Composition insertion failed")
	}
	f.model.RequestClipsGroup([]int{a, b})
	f.model.RequestClipsGroup([]int{c, compo})

	ch := f.model.Subscribe()
	defer f.model.Unsubscribe(ch)

	tests := []struct {
		name    string
		suggest func() int
	}{
		{"feasible", func() int { return f.model.SuggestClipMove(a, tracks[0], 10) }},
		{"blocked", func() int { return f.model.SuggestClipMove(a, tracks[0], 70) }},
		{"composition", func() int { return f.model.SuggestCompositionMove(compo, tracks[1], 220) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.suggest()
			if changes := drain(ch); len(changes) != 0 {
				t.Errorf("Expected no notifications, got %+v", changes)
			}
		})
	}
	if f.model.GetClipPosition(b) != 40 || f.model.GetClipPosition(c) != 100 {
		t.Error("Suggestions moved a grouped clip")
	}
	f.consistent(t)
}

func TestClipMoveCarriesGroup(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	a := f.clip(t, "a100", tracks[0], 0)
	b := f.clip(t, "d100", tracks[1], 200)
	f.model.RequestClipsGroup([]int{a, b})

	if !f.model.RequestClipMove(a, tracks[0], 30, true, true) {
		t.Fatal("Move failed")
	}
	if f.model.GetClipPosition(b) != 230 {
		t.Errorf("Expected grouped clip at 230, got %d", f.model.GetClipPosition(b))
	}

	// Shifting right by one clip length only works if the leading clip
	// moves out of the way first.
	c := f.clip(t, "d100", tracks[0], 130)
	f.model.RequestClipsGroup([]int{a, c})
	if !f.model.RequestClipMove(a, tracks[0], 130, true, true) {
		t.Fatal("Chained move failed")
	}
	if f.model.GetClipPosition(c) != 230 || f.model.GetClipPosition(b) != 330 {
		t.Errorf("Got c at %d and b at %d", f.model.GetClipPosition(c), f.model.GetClipPosition(b))
	}
	f.consistent(t)
}

func TestGroupDeletion(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	a := f.clip(t, "a100", tracks[0], 0)
	b := f.clip(t, "d100", tracks[1], 0)
	c := f.clip(t, "b20", tracks[0], 200)

	inner, _ := f.model.RequestClipsGroup([]int{a, b})
	outer, _ := f.model.RequestClipsGroup([]int{inner, c})
	if f.model.GetRootID(a) != outer {
		t.Fatal("Nested grouping failed")
	}

	if !f.model.RequestItemDeletion(b, true) {
		t.Fatal("Deletion failed")
	}
	for _, id := range []int{a, b, c} {
		if f.model.IsClip(id) {
			t.Errorf("Clip %d survived its group's deletion", id)
		}
	}
	if f.model.IsGroup(inner) || f.model.IsGroup(outer) {
		t.Error("Group nodes survived")
	}
	f.consistent(t)

	if !f.stack.Undo() {
		t.Fatal("Undo failed")
	}
	if f.model.GetRootID(a) != outer || f.model.GetRootID(c) != outer {
		t.Error("Undo did not restore the outer group")
	}
	if !f.model.IsGroup(inner) || len(f.model.GetGroupElements(a)) != 3 {
		t.Error("Undo did not restore the nested structure")
	}
	f.consistent(t)
}

func TestGroupingRequiresPlacedItems(t *testing.T) {
	f := newFixture(t)
	track := f.tracks(t, 1)[0]
	a := f.clip(t, "a100", track, 0)
	loose, ok := f.model.RequestClipInsertion("b20", -1, 0, true)
	if !ok {
		t.Fatal("Registering an unplaced clip failed")
	}

	if _, ok := f.model.RequestClipsGroup([]int{a, loose}); ok {
		t.Error("Grouping an unplaced clip must fail")
	}
	if _, ok := f.model.RequestClipsGroup(nil); ok {
		t.Error("Grouping nothing must fail")
	}
	if f.model.IsInGroup(a) {
		t.Error("Failed grouping changed the tree")
	}
}

func TestGroupingNestsGroupsAndCompositions(t *testing.T) {
	f := newFixture(t)
	tracks := f.tracks(t, 2)
	a := f.clip(t, "a100", tracks[0], 0)
	b := f.clip(t, "b20", tracks[1], 0)
	compo, ok := f.model.RequestCompositionInsertion("wipe", tracks[1], 100, 50, true)
	if !ok {
		t.Fatal("Composition insertion failed")
	}

	inner, ok := f.model.RequestClipsGroup([]int{a, b})
	if !ok {
		t.Fatal("Grouping clips failed")
	}
	changes := f.model.Subscribe()
	outer, ok := f.model.RequestClipsGroup([]int{inner, compo})
	if !ok {
		t.Fatal("Grouping a group with a composition failed")
	}
	if outer == inner || f.model.GetRootID(a) != outer || f.model.GetRootID(compo) != outer {
		t.Errorf("Expected %d to root a and the composition", outer)
	}
	if !f.model.IsGroup(inner) || len(f.model.GetGroupElements(b)) != 3 {
		t.Error("Inner group should survive as a child of the outer group")
	}
	for _, c := range drain(changes) {
		if c.ItemID == inner {
			t.Errorf("Group node %d notified as an item", inner)
		}
	}
	f.model.Unsubscribe(changes)

	if _, ok := f.model.RequestClipsGroup([]int{a, 9999}); ok {
		t.Error("Grouping an unknown id must fail")
	}
	f.consistent(t)

	if !f.stack.Undo() {
		t.Fatal("Undo failed")
	}
	if f.model.GetRootID(compo) != compo || f.model.GetRootID(a) != inner {
		t.Error("Undo did not restore the inner group alone")
	}
	f.consistent(t)
}

func TestUngroupCollapses(t *testing.T) {
	f := newFixture(t)
	track := f.tracks(t, 1)[0]
	a := f.clip(t, "a100", track, 0)
	b := f.clip(t, "b20", track, 100)
	gid, _ := f.model.RequestClipsGroup([]int{a, b})

	if !f.model.RequestClipUngroup(a) {
		t.Fatal("Ungroup failed")
	}
	if f.model.IsGroup(gid) || f.model.IsInGroup(b) {
		t.Error("Single-child group should have collapsed")
	}
	if f.model.RequestClipUngroup(a) {
		t.Error("Ungrouping a root must fail")
	}

	if !f.stack.Undo() {
		t.Fatal("Undo failed")
	}
	if f.model.GetRootID(a) != gid || f.model.GetRootID(b) != gid {
		t.Error("Undo did not restore the group")
	}
}
