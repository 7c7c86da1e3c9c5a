package timeline

import (
	"sync"

	"montage/internal/undo"
)

// ChangeKind tells the view what happened to an item or track.
type ChangeKind int

const (
	ItemInserted ChangeKind = iota
	ItemRemoved
	ItemChanged
	// ViewReset asks for a full reload; ItemID and TrackID are -1.
	ViewReset
)

// Role names a property of an item whose value changed.
type Role int

const (
	RolePosition Role = iota
	RoleDuration
	RoleTrack
	RoleATrack
	RoleSelection
)

// Change is a notification sent to view subscribers after a structural
// mutation.
type Change struct {
	Kind    ChangeKind
	ItemID  int
	TrackID int
	Roles   []Role
}

// Has reports whether r is part of the change's roles.
func (c Change) Has(r Role) bool {
	for _, role := range c.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// notifier fans changes out to subscribers without ever blocking the model.
type notifier struct {
	listeners []chan Change
	buffer    int
	mutex     sync.Mutex
}

func newNotifier(buffer int) *notifier {
	if buffer <= 0 {
		buffer = 64
	}
	return &notifier{buffer: buffer}
}

func (n *notifier) subscribe() <-chan Change {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	ch := make(chan Change, n.buffer)
	n.listeners = append(n.listeners, ch)
	return ch
}

func (n *notifier) unsubscribe(ch <-chan Change) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for i, listener := range n.listeners {
		if listener == ch {
			close(listener)
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// send delivers c to every listener; a listener whose buffer is full is
// dropped and its channel closed.
func (n *notifier) send(c Change) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	kept := n.listeners[:0]
	for _, listener := range n.listeners {
		select {
		case listener <- c:
			kept = append(kept, listener)
		default:
			close(listener)
		}
	}
	n.listeners = kept
}

func (n *notifier) active() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return len(n.listeners) > 0
}

// Subscribe returns a channel receiving every change notification. Slow
// subscribers whose buffer fills up are dropped.
func (m *Model) Subscribe() <-chan Change {
	return m.notifier.subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (m *Model) Unsubscribe(ch <-chan Change) {
	m.notifier.unsubscribe(ch)
}

func (m *Model) notifyInserted(itemID, trackID int) {
	if !m.muted && m.notifier.active() {
		m.notifier.send(Change{Kind: ItemInserted, ItemID: itemID, TrackID: trackID})
	}
}

func (m *Model) notifyRemoved(itemID, trackID int) {
	if !m.muted && m.notifier.active() {
		m.notifier.send(Change{Kind: ItemRemoved, ItemID: itemID, TrackID: trackID})
	}
}

func (m *Model) notifyChange(itemID, trackID int, roles ...Role) {
	if !m.muted && m.notifier.active() {
		m.notifier.send(Change{Kind: ItemChanged, ItemID: itemID, TrackID: trackID, Roles: roles})
	}
}

func (m *Model) resetView() {
	if !m.muted && m.notifier.active() {
		m.notifier.send(Change{Kind: ViewReset, ItemID: -1, TrackID: -1})
	}
}

// trial runs fn against a scratch transaction and rolls it back. Nothing is
// notified while it runs.
func (m *Model) trial(fn func(tx *undo.Tx) bool) bool {
	m.muted = true
	defer func() { m.muted = false }()

	tx := undo.NewTx()
	ok := fn(tx)
	tx.Rollback()
	return ok
}
