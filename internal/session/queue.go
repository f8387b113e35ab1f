package session

import "brewdesk-alert-services/internal/snapshot"

// PendingQueue is the ordered set of snapshots awaiting disposition. Keyed by
// order id, no duplicates. Not safe for concurrent use on its own; the owning
// session's lock covers it.
type PendingQueue struct {
	items []snapshot.Snapshot
}

func NewPendingQueue(items []snapshot.Snapshot) *PendingQueue {
	q := &PendingQueue{items: make([]snapshot.Snapshot, 0, len(items))}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		q.items = append(q.items, item)
	}
	return q
}

func (q *PendingQueue) Size() int {
	return len(q.items)
}

// Single returns the sole remaining snapshot. Only meaningful at size 1.
func (q *PendingQueue) Single() (snapshot.Snapshot, bool) {
	if len(q.items) != 1 {
		return snapshot.Snapshot{}, false
	}
	return q.items[0], true
}

func (q *PendingQueue) All() []snapshot.Snapshot {
	out := make([]snapshot.Snapshot, len(q.items))
	copy(out, q.items)
	return out
}

func (q *PendingQueue) Contains(id string) bool {
	for _, item := range q.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (q *PendingQueue) Remove(id string) bool {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}
