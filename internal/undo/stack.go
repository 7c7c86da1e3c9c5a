package undo

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Entry is a committed user-level action.
type Entry interface {
	Undo() bool
	Redo() bool
	Release()
}

type stackEntry struct {
	label string
	entry Entry
}

// Stack is a linear undo/redo history. Pushing after an undo discards the
// redo branch; a positive limit bounds the number of kept entries. Discarded
// entries are released so the objects they kept alive can be freed.
type Stack struct {
	entries []stackEntry
	index   int
	limit   int
	mutex   sync.Mutex
	logger  *logrus.Logger
}

// NewStack creates a history keeping at most limit entries (0 = unbounded).
func NewStack(limit int, logger *logrus.Logger) *Stack {
	if logger == nil {
		logger = logrus.New()
	}
	return &Stack{
		limit:  limit,
		logger: logger,
	}
}

// Push records e as the newest action.
func (s *Stack) Push(label string, e Entry) {
	s.mutex.Lock()
	var dropped []stackEntry
	dropped = append(dropped, s.entries[s.index:]...)
	s.entries = append(s.entries[:s.index], stackEntry{label: label, entry: e})
	if s.limit > 0 && len(s.entries) > s.limit {
		overflow := len(s.entries) - s.limit
		dropped = append(dropped, s.entries[:overflow]...)
		s.entries = append([]stackEntry(nil), s.entries[overflow:]...)
	}
	s.index = len(s.entries)
	s.mutex.Unlock()

	for _, d := range dropped {
		d.entry.Release()
	}
	s.logger.WithFields(logrus.Fields{
		"label":   label,
		"dropped": len(dropped),
	}).Debug("Pushed undo entry")
}

// Undo reverts the newest applied action. The entry runs outside the stack
// lock because it re-enters the model that pushed it.
func (s *Stack) Undo() bool {
	s.mutex.Lock()
	if s.index == 0 {
		s.mutex.Unlock()
		return false
	}
	current := s.entries[s.index-1]
	s.mutex.Unlock()

	if !current.entry.Undo() {
		s.logger.WithField("label", current.label).Error("Undo failed")
		return false
	}

	s.mutex.Lock()
	s.index--
	s.mutex.Unlock()
	return true
}

// Redo reapplies the oldest undone action.
func (s *Stack) Redo() bool {
	s.mutex.Lock()
	if s.index >= len(s.entries) {
		s.mutex.Unlock()
		return false
	}
	current := s.entries[s.index]
	s.mutex.Unlock()

	if !current.entry.Redo() {
		s.logger.WithField("label", current.label).Error("Redo failed")
		return false
	}

	s.mutex.Lock()
	s.index++
	s.mutex.Unlock()
	return true
}

// CanUndo reports whether an action can be undone.
func (s *Stack) CanUndo() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.index > 0
}

// CanRedo reports whether an undone action can be redone.
func (s *Stack) CanRedo() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.index < len(s.entries)
}

// UndoLabel returns the label of the action Undo would revert.
func (s *Stack) UndoLabel() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.index == 0 {
		return ""
	}
	return s.entries[s.index-1].label
}

// RedoLabel returns the label of the action Redo would reapply.
func (s *Stack) RedoLabel() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.index >= len(s.entries) {
		return ""
	}
	return s.entries[s.index].label
}

// Labels returns every recorded label, oldest first.
func (s *Stack) Labels() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	labels := make([]string, len(s.entries))
	for i, e := range s.entries {
		labels[i] = e.label
	}
	return labels
}

// Len returns the number of recorded entries (applied and undone).
func (s *Stack) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.entries)
}

// Clear forgets the whole history.
func (s *Stack) Clear() {
	s.mutex.Lock()
	dropped := s.entries
	s.entries = nil
	s.index = 0
	s.mutex.Unlock()

	for _, d := range dropped {
		d.entry.Release()
	}
}
