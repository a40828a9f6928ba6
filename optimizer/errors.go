package optimizer

import "github.com/pkg/errors"

// Errors returned by the branch index and the worker. All of them indicate
// a contract violation by the caller; declined optimizations are never errors.
var (
	// ErrNotBranch is returned when an index operation is given an
	// instruction that is not a branch or conditional branch.
	ErrNotBranch = errors.New("instruction is not a branch")

	// ErrNotIndexed is returned when removing a branch that is not indexed
	// under its current target.
	ErrNotIndexed = errors.New("branch is not indexed under its target")

	// ErrInvalidArgument is returned for nil or foreign instructions.
	ErrInvalidArgument = errors.New("invalid instruction argument")

	// ErrNoContext is returned when a structural edit is requested while no
	// instruction is being visited.
	ErrNoContext = errors.New("no target instruction established")

	// ErrNoFallthrough is returned when deleting the last instruction of a
	// body while branches still target it: there is no successor to
	// retarget them to.
	ErrNoFallthrough = errors.New("cannot delete last instruction with incoming branches")
)
