// Package order plans ordinal updates for drag-and-drop reordering.
//
// Siblings in a scope carry plain integer ordinals with no guaranteed gaps,
// so a move is resolved as: take the midpoint of the insertion slot's
// neighbors, and when no integer fits between them (or the item lands at
// either end of the list) renumber the whole scope with evenly spaced
// ordinals. The planner is pure; callers persist the resulting write-set in
// a single transaction.
package order

import "errors"

// Position says where the source lands relative to the target.
type Position int

const (
	PositionBefore Position = iota
	PositionAfter
)

// Step is the ordinal spacing used when a scope is renumbered.
const Step = 1000

// ErrInvalidReorder marks a move whose source and target are identical or
// where either id is missing from the scope's ordered list.
var ErrInvalidReorder = errors.New("invalid reorder")

// Entry is one sibling in a scope, in current render order.
type Entry struct {
	ID      int64
	Ordinal int
}

// Move is a single ordinal write: set entity ID's ordinal to Ordinal.
type Move struct {
	ID      int64
	Ordinal int
}

// ParsePosition maps the wire value to a Position.
func ParsePosition(raw string) (Position, bool) {
	switch raw {
	case "before":
		return PositionBefore, true
	case "after":
		return PositionAfter, true
	}
	return 0, false
}

// PlanMove computes the write-set that places sourceID before/after targetID
// within the scope described by entries (already sorted by ordinal, id).
//
// A scope with fewer than two entries has no drag source, so the move is a
// no-op and the returned write-set is empty. An empty write-set with a nil
// error means nothing needs persisting.
func PlanMove(entries []Entry, sourceID, targetID int64, position Position) ([]Move, error) {
	if len(entries) < 2 {
		return nil, nil
	}
	if sourceID == targetID {
		return nil, ErrInvalidReorder
	}

	sourceIdx, targetIdx := -1, -1
	for i, entry := range entries {
		if entry.ID == sourceID {
			sourceIdx = i
		}
		if entry.ID == targetID {
			targetIdx = i
		}
	}
	if sourceIdx < 0 || targetIdx < 0 {
		return nil, ErrInvalidReorder
	}

	// Remove the source first, then insert relative to what remains.
	remaining := make([]Entry, 0, len(entries)-1)
	remaining = append(remaining, entries[:sourceIdx]...)
	remaining = append(remaining, entries[sourceIdx+1:]...)

	insertAt := 0
	for i, entry := range remaining {
		if entry.ID == targetID {
			insertAt = i
			break
		}
	}
	if position == PositionAfter {
		insertAt++
	}

	if ordinal, ok := midpoint(remaining, insertAt); ok {
		if ordinal == entries[sourceIdx].Ordinal {
			// Already in place; nothing to write.
			return nil, nil
		}
		return []Move{{ID: sourceID, Ordinal: ordinal}}, nil
	}

	return renumber(remaining, sourceID, insertAt), nil
}

// midpoint returns an ordinal strictly between the insertion slot's
// neighbors. It fails when the slot is at either end of the list or when the
// neighbors are too close to admit an integer between them.
func midpoint(remaining []Entry, insertAt int) (int, bool) {
	if insertAt <= 0 || insertAt >= len(remaining) {
		return 0, false
	}
	lower := remaining[insertAt-1].Ordinal
	upper := remaining[insertAt].Ordinal
	mid := lower + (upper-lower)/2
	if mid <= lower || mid >= upper {
		return 0, false
	}
	return mid, true
}

// renumber assigns fresh evenly spaced ordinals to the whole scope in its
// new order, source included at insertAt.
func renumber(remaining []Entry, sourceID int64, insertAt int) []Move {
	reordered := make([]int64, 0, len(remaining)+1)
	for _, entry := range remaining[:insertAt] {
		reordered = append(reordered, entry.ID)
	}
	reordered = append(reordered, sourceID)
	for _, entry := range remaining[insertAt:] {
		reordered = append(reordered, entry.ID)
	}

	moves := make([]Move, len(reordered))
	for i, id := range reordered {
		moves[i] = Move{ID: id, Ordinal: (i + 1) * Step}
	}
	return moves
}

// Renumber produces evenly spaced ordinals for a scope in its current order
// without moving anything. Used to repair drifted scopes.
func Renumber(entries []Entry) []Move {
	moves := make([]Move, len(entries))
	for i, entry := range entries {
		moves[i] = Move{ID: entry.ID, Ordinal: (i + 1) * Step}
	}
	return moves
}
