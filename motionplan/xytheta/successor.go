package xytheta

// Successor is one edge out of (or, when searching backwards, into) a state.
type Successor struct {
	StateID StateID
	Action  ActionID
	// G is the cost-to-come including this edge and its penalty.
	G       float64
	Penalty float64
}

// SuccessorIterator lazily walks the edges of one state. Edges whose penalty reaches
// FatalObstacleCost are skipped.
type SuccessorIterator struct {
	env     *Environment
	start   GraphState
	startG  float64
	reverse bool

	next    int
	current Successor
}

// GetSuccessors returns an iterator over the edges leaving `id`, or with reverse set, the edges
// entering it. The penalty of a reverse edge is the one paid driving it forwards.
func (env *Environment) GetSuccessors(id StateID, currentG float64, reverse bool) *SuccessorIterator {
	return &SuccessorIterator{
		env:     env,
		start:   id.GraphState(),
		startG:  currentG,
		reverse: reverse,
	}
}

// Next advances to the next edge and reports whether there was one.
func (it *SuccessorIterator) Next() bool {
	space := it.env.space
	if it.reverse {
		refs := space.reverse[it.start.Theta]
		for it.next < len(refs) {
			ref := refs[it.next]
			it.next++
			prim := &space.prims[ref.startTheta][ref.action]
			from := GraphState{
				X:     it.start.X - prim.EndStateOffset.X,
				Y:     it.start.Y - prim.EndStateOffset.Y,
				Theta: ref.startTheta,
			}
			if it.yield(from, prim) {
				return true
			}
		}
		return false
	}

	prims := space.prims[it.start.Theta]
	for it.next < len(prims) {
		prim := &prims[it.next]
		it.next++
		if it.yield(it.start, prim) {
			it.current.StateID = applyOffset(it.start, prim).ID()
			return true
		}
	}
	return false
}

// yield checks the edge driving `prim` from `from`, filling in everything but the forward
// successor's id.
func (it *SuccessorIterator) yield(from GraphState, prim *MotionPrimitive) bool {
	penalty := it.env.primitivePenalty(from, prim, FatalObstacleCost)
	if penalty >= FatalObstacleCost {
		return false
	}
	it.current = Successor{
		StateID: from.ID(),
		Action:  prim.ID,
		G:       it.startG + prim.Cost + penalty,
		Penalty: penalty,
	}
	return true
}

// Front returns the current edge. It is only valid after Next returns true.
func (it *SuccessorIterator) Front() Successor {
	return it.current
}
