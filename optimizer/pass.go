package optimizer

import (
	"github.com/pkg/errors"

	"github.com/chazu/inliner/policy"
)

// Pass is one rewrite rule. Apply inspects the worker's target instruction
// and, if the rule matches, requests at most one logical rewrite through the
// worker. A pass that does not match returns nil without touching the
// worker; the driver detects a match through Worker.WasOptimized.
type Pass interface {
	Name() string
	Apply(w *Worker) error
}

// Pass names as used in configuration.
const (
	NameBranchToReturn         = "branch-to-return"
	NameInlineFunctionCall     = "inline-function-call"
	NameRemoveDegenerateBranch = "remove-degenerate-branch"
	NameRemoveNop              = "remove-nop"
	NameRemoveDeadCode         = "remove-dead-code"
	NameRetargetDoubleBranch   = "retarget-double-branch"
)

// DefaultPassNames is the standard pass order.
var DefaultPassNames = []string{
	NameBranchToReturn,
	NameInlineFunctionCall,
	NameRemoveDegenerateBranch,
	NameRemoveNop,
	NameRemoveDeadCode,
}

// DefaultPasses returns the standard passes in priority order. capacity
// bounds the inlining decision cache and should be at least the number of
// methods that may be called.
func DefaultPasses(p policy.Policy, capacity int) ([]Pass, error) {
	return PassesByName(DefaultPassNames, p, capacity)
}

// PassesByName builds a pass list from configuration names, preserving the
// given order.
func PassesByName(names []string, p policy.Policy, capacity int) ([]Pass, error) {
	passes := make([]Pass, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, errors.Errorf("pass %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case NameBranchToReturn:
			passes = append(passes, BranchToReturn{})
		case NameInlineFunctionCall:
			inl, err := NewInlineFunctionCall(p, capacity)
			if err != nil {
				return nil, err
			}
			passes = append(passes, inl)
		case NameRemoveDegenerateBranch:
			passes = append(passes, RemoveDegenerateBranch{})
		case NameRemoveNop:
			passes = append(passes, RemoveNop{})
		case NameRemoveDeadCode:
			passes = append(passes, RemoveDeadCode{})
		case NameRetargetDoubleBranch:
			passes = append(passes, RetargetDoubleBranch{})
		default:
			return nil, errors.Errorf("unknown pass %q", name)
		}
	}
	return passes, nil
}
