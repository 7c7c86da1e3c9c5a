// Package undo provides the closure based transaction log used by the
// timeline model, and the bounded undo/redo history that stores committed
// transactions.
package undo

// Fun is a zero-argument step returning whether it succeeded.
type Fun func() bool

// Noop is the identity step.
func Noop() bool { return true }

type step struct {
	operation Fun
	reverse   Fun
}

// Tx accumulates (operation, reverse) pairs of steps that have already been
// applied. Undo replays the reverses newest first, Redo replays the operations
// oldest first. A Tx also keeps alive the handles of objects its closures
// capture until it is released.
type Tx struct {
	steps   []step
	handles []*Handle
}

// NewTx creates an empty transaction.
func NewTx() *Tx {
	return &Tx{}
}

// Add records a step whose operation has already been applied.
func (tx *Tx) Add(operation, reverse Fun) {
	if operation == nil {
		operation = Noop
	}
	if reverse == nil {
		reverse = Noop
	}
	tx.steps = append(tx.steps, step{operation: operation, reverse: reverse})
}

// Do applies operation and records the step when it succeeds. Nothing is
// recorded on failure; the caller decides whether to roll back.
func (tx *Tx) Do(operation, reverse Fun) bool {
	if !operation() {
		return false
	}
	tx.Add(operation, reverse)
	return true
}

// Undo runs every reverse step, newest first. All steps run even if one
// fails; the result reports whether all of them succeeded.
func (tx *Tx) Undo() bool {
	ok := true
	for i := len(tx.steps) - 1; i >= 0; i-- {
		if !tx.steps[i].reverse() {
			ok = false
		}
	}
	return ok
}

// Redo runs every operation, oldest first.
func (tx *Tx) Redo() bool {
	ok := true
	for _, s := range tx.steps {
		if !s.operation() {
			ok = false
		}
	}
	return ok
}

// Rollback undoes every recorded step, forgets them and releases the
// retained handles. The transaction is empty afterwards.
func (tx *Tx) Rollback() bool {
	ok := tx.Undo()
	tx.steps = nil
	tx.Release()
	return ok
}

// Merge moves the steps and handles of other to the end of tx. other is
// left empty.
func (tx *Tx) Merge(other *Tx) {
	if other == nil || other == tx {
		return
	}
	tx.steps = append(tx.steps, other.steps...)
	tx.handles = append(tx.handles, other.handles...)
	other.steps = nil
	other.handles = nil
}

// Retain acquires h for the lifetime of the transaction.
func (tx *Tx) Retain(h *Handle) {
	if h == nil {
		return
	}
	h.Acquire()
	tx.handles = append(tx.handles, h)
}

// Release drops every handle retained by the transaction.
func (tx *Tx) Release() {
	for _, h := range tx.handles {
		h.Release()
	}
	tx.handles = nil
}

// Len returns the number of recorded steps.
func (tx *Tx) Len() int {
	return len(tx.steps)
}

// Empty reports whether nothing was recorded.
func (tx *Tx) Empty() bool {
	return len(tx.steps) == 0
}
