package timeline

import "montage/internal/snap"

// RequestBestSnapPos returns the position an item of the given length
// starting at pos should snap to, or -1 when neither edge is within the
// snapping tolerance. Points in ignored are not considered.
func (m *Model) RequestBestSnapPos(pos, length int, ignored []int) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.requestBestSnapPos(pos, length, ignored)
}

func (m *Model) requestBestSnapPos(pos, length int, ignored []int) int {
	if len(ignored) > 0 {
		m.snaps.Ignore(ignored)
		defer m.snaps.Unignore()
	}

	start := m.snaps.ClosestPoint(pos)
	end := m.snaps.ClosestPoint(pos + length)
	startDiff := abs(pos - start)
	endDiff := abs(pos + length - end)

	if start != snap.None && (end == snap.None || startDiff < endDiff) {
		if startDiff < m.snapDistance {
			return start
		}
	} else if end != snap.None && endDiff < m.snapDistance {
		return end - length
	}
	return -1
}

// RequestNextSnapPos returns the first snap point after pos, or pos.
func (m *Model) RequestNextSnapPos(pos int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.snaps.NextPoint(pos)
}

// RequestPreviousSnapPos returns the last snap point before pos, or 0.
func (m *Model) RequestPreviousSnapPos(pos int) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.snaps.PreviousPoint(pos)
}

// SnapPoints returns every stored snap point occurrence in ascending order.
func (m *Model) SnapPoints() []int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.snaps.Points()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
