package latticeplanner

import "github.com/pkg/errors"

var (
	// ErrInvalidStart means every cell around the start is blocked.
	ErrInvalidStart = errors.New("start is in collision")

	// ErrNoValidGoals means no goal survived validation and heuristic initialization.
	ErrNoValidGoals = errors.New("no valid goals")

	// ErrNoPathFound means the search ran out of states to expand.
	ErrNoPathFound = errors.New("no path found")

	// ErrExpansionBudgetExceeded means the search expanded more states than it was allowed.
	ErrExpansionBudgetExceeded = errors.New("exceeded max expansions")

	// ErrStaleHandle is returned when an open list handle no longer refers to a queued state.
	ErrStaleHandle = errors.New("stale open list handle")
)
