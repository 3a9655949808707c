package latticeplanner

import "go.viam.com/latticeplanner/motionplan/xytheta"

// StateEntry is what the search knows about one state it has reached.
type StateEntry struct {
	G           float64
	Backpointer xytheta.StateID
	Action      xytheta.ActionID
	Penalty     float64
	OpenHandle  Handle

	// ClosedIter is the search number in which the state was expanded, or -1.
	ClosedIter int
}

// IsClosed reports whether the state was expanded during search `searchNum`.
func (e *StateEntry) IsClosed(searchNum int) bool {
	return e.ClosedIter == searchNum
}

// StateTable maps reached states to their entries.
type StateTable struct {
	entries map[xytheta.StateID]*StateEntry
}

// NewStateTable returns an empty table.
func NewStateTable() *StateTable {
	return &StateTable{entries: map[xytheta.StateID]*StateEntry{}}
}

// Find returns the entry of `id`, or nil.
func (t *StateTable) Find(id xytheta.StateID) *StateEntry {
	return t.entries[id]
}

// Emplace stores `entry` for `id`, replacing any existing one, and returns the stored entry.
func (t *StateTable) Emplace(id xytheta.StateID, entry StateEntry) *StateEntry {
	e := &entry
	t.entries[id] = e
	return e
}

// Len returns the number of states in the table.
func (t *StateTable) Len() int {
	return len(t.entries)
}

// Clear removes every entry.
func (t *StateTable) Clear() {
	clear(t.entries)
}
