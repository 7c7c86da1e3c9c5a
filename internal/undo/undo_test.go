package undo

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestTxOrdering(t *testing.T) {
	var trace []string
	tx := NewTx()
	for _, name := range []string{"a", "b", "c"} {
		name := name
		ok := tx.Do(func() bool {
			trace = append(trace, "do "+name)
			return true
		}, func() bool {
			trace = append(trace, "undo "+name)
			return true
		})
		if !ok {
			t.Fatalf("Do(%s) failed", name)
		}
	}

	trace = nil
	if !tx.Undo() {
		t.Fatal("Undo() returned false")
	}
	want := []string{"undo c", "undo b", "undo a"}
	assertTrace(t, trace, want)

	trace = nil
	if !tx.Redo() {
		t.Fatal("Redo() returned false")
	}
	assertTrace(t, trace, []string{"do a", "do b", "do c"})
}

func TestTxDoFailureRecordsNothing(t *testing.T) {
	tx := NewTx()
	if tx.Do(func() bool { return false }, Noop) {
		t.Fatal("Do() with failing operation returned true")
	}
	if !tx.Empty() {
		t.Errorf("expected empty transaction, got %d steps", tx.Len())
	}
}

func TestTxRollbackRunsReversesAndReleases(t *testing.T) {
	value := 0
	freed := false
	h := NewHandle(func() { freed = true })

	tx := NewTx()
	tx.Retain(h)
	tx.Do(func() bool { value++; return true }, func() bool { value--; return true })
	tx.Do(func() bool { value += 10; return true }, func() bool { value -= 10; return true })

	if value != 11 {
		t.Fatalf("value = %d, want 11", value)
	}
	if !tx.Rollback() {
		t.Fatal("Rollback() returned false")
	}
	if value != 0 {
		t.Errorf("value after rollback = %d, want 0", value)
	}
	if !tx.Empty() {
		t.Error("transaction should be empty after rollback")
	}
	if !freed {
		t.Error("handle should be freed after rollback")
	}
}

func TestTxMerge(t *testing.T) {
	var trace []string
	outer := NewTx()
	outer.Add(func() bool { trace = append(trace, "outer"); return true }, Noop)

	inner := NewTx()
	inner.Add(func() bool { trace = append(trace, "inner"); return true }, Noop)
	h := NewHandle(nil)
	inner.Retain(h)

	outer.Merge(inner)
	if !inner.Empty() {
		t.Error("merged transaction should be empty")
	}
	if outer.Len() != 2 {
		t.Fatalf("outer.Len() = %d, want 2", outer.Len())
	}
	outer.Redo()
	assertTrace(t, trace, []string{"outer", "inner"})

	if h.Refs() != 1 {
		t.Errorf("handle refs = %d, want 1 after merge", h.Refs())
	}
	outer.Release()
	if !h.Freed() {
		t.Error("handle should be freed once the merged transaction is released")
	}
}

func TestHandleFreesOnce(t *testing.T) {
	calls := 0
	h := NewHandle(func() { calls++ })
	h.Acquire()
	h.Acquire()
	h.Release()
	if calls != 0 {
		t.Fatalf("freed with a reference outstanding")
	}
	h.Release()
	h.Release()
	if calls != 1 {
		t.Errorf("free called %d times, want 1", calls)
	}
}

type countingEntry struct {
	undos, redos, releases int
	failUndo               bool
}

func (c *countingEntry) Undo() bool { c.undos++; return !c.failUndo }
func (c *countingEntry) Redo() bool { c.redos++; return true }
func (c *countingEntry) Release()   { c.releases++ }

func TestStackUndoRedo(t *testing.T) {
	s := NewStack(0, quietLogger())
	first := &countingEntry{}
	second := &countingEntry{}
	s.Push("first", first)
	s.Push("second", second)

	if s.UndoLabel() != "second" {
		t.Errorf("UndoLabel() = %q, want second", s.UndoLabel())
	}
	if !s.Undo() || second.undos != 1 {
		t.Fatal("expected second entry to be undone")
	}
	if !s.CanRedo() || s.RedoLabel() != "second" {
		t.Error("expected redo to be available for second")
	}
	if !s.Redo() || second.redos != 1 {
		t.Fatal("expected second entry to be redone")
	}
	if s.Redo() {
		t.Error("Redo() with nothing to redo returned true")
	}
}

func TestStackPushDiscardsRedoBranch(t *testing.T) {
	s := NewStack(0, quietLogger())
	first := &countingEntry{}
	second := &countingEntry{}
	s.Push("first", first)
	s.Push("second", second)
	s.Undo()

	third := &countingEntry{}
	s.Push("third", third)

	if second.releases != 1 {
		t.Errorf("discarded redo entry released %d times, want 1", second.releases)
	}
	labels := s.Labels()
	if len(labels) != 2 || labels[0] != "first" || labels[1] != "third" {
		t.Errorf("Labels() = %v, want [first third]", labels)
	}
}

func TestStackLimit(t *testing.T) {
	s := NewStack(2, quietLogger())
	entries := []*countingEntry{{}, {}, {}}
	for i, e := range entries {
		s.Push(string(rune('a'+i)), e)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if entries[0].releases != 1 {
		t.Error("oldest entry should be released when the limit is exceeded")
	}
}

func TestStackFailedUndoKeepsIndex(t *testing.T) {
	s := NewStack(0, quietLogger())
	e := &countingEntry{failUndo: true}
	s.Push("broken", e)
	if s.Undo() {
		t.Fatal("Undo() should report failure")
	}
	if !s.CanUndo() {
		t.Error("failed undo should not move the history index")
	}
}

func TestStackClearReleases(t *testing.T) {
	s := NewStack(0, quietLogger())
	e := &countingEntry{}
	s.Push("x", e)
	s.Clear()
	if e.releases != 1 || s.Len() != 0 || s.CanUndo() {
		t.Error("Clear() should release and forget every entry")
	}
}

func assertTrace(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trace = %v, want %v", got, want)
		}
	}
}
