package optimizer

import (
	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// ---------------------------------------------------------------------------
// BranchIndex: target instruction → branches targeting it
// ---------------------------------------------------------------------------

// BranchIndex maps every instruction that is currently a branch target to
// the branches pointing at it. No entry is ever empty, and each live branch
// of the indexed body appears exactly once, under its current operand.
type BranchIndex struct {
	sources map[*il.Instruction][]*il.Instruction
}

// NewBranchIndex creates an empty index.
func NewBranchIndex() *BranchIndex {
	return &BranchIndex{sources: make(map[*il.Instruction][]*il.Instruction)}
}

// BuildBranchIndex indexes every branch currently linked into body.
func BuildBranchIndex(body *il.Body) *BranchIndex {
	idx := NewBranchIndex()
	for in := body.First(); in != nil; in = in.Next() {
		if in.IsBranch() {
			idx.add(in)
		}
	}
	return idx
}

// Add indexes branch under its current target.
func (x *BranchIndex) Add(branch *il.Instruction) error {
	if branch == nil || !branch.IsBranch() {
		return errors.Wrapf(ErrNotBranch, "add %v", branch)
	}
	x.add(branch)
	return nil
}

func (x *BranchIndex) add(branch *il.Instruction) {
	t := branch.Target()
	x.sources[t] = append(x.sources[t], branch)
}

// Remove drops branch from the entry of its current target. The entry is
// deleted once it becomes empty.
func (x *BranchIndex) Remove(branch *il.Instruction) error {
	if branch == nil || !branch.IsBranch() {
		return errors.Wrapf(ErrNotBranch, "remove %v", branch)
	}
	t := branch.Target()
	list := x.sources[t]
	for i, b := range list {
		if b != branch {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(x.sources, t)
		} else {
			x.sources[t] = list
		}
		return nil
	}
	return errors.Wrapf(ErrNotIndexed, "remove %v", branch)
}

// Retarget rewrites every branch targeting oldTarget to target newTarget
// and moves their entry, merging with any branches already at newTarget.
// It returns the number of branches rewritten.
func (x *BranchIndex) Retarget(oldTarget, newTarget *il.Instruction) int {
	if oldTarget == newTarget {
		return 0
	}
	moved, ok := x.sources[oldTarget]
	if !ok {
		return 0
	}
	for _, b := range moved {
		b.SetTarget(newTarget)
	}
	delete(x.sources, oldTarget)
	x.sources[newTarget] = append(x.sources[newTarget], moved...)
	return len(moved)
}

// FindSources returns the branches currently targeting target. The returned
// slice is a copy and may be retained.
func (x *BranchIndex) FindSources(target *il.Instruction) []*il.Instruction {
	list := x.sources[target]
	if len(list) == 0 {
		return nil
	}
	out := make([]*il.Instruction, len(list))
	copy(out, list)
	return out
}

// IsTarget reports whether any branch targets in.
func (x *BranchIndex) IsTarget(in *il.Instruction) bool {
	return len(x.sources[in]) > 0
}

// Len returns the number of distinct targets.
func (x *BranchIndex) Len() int {
	return len(x.sources)
}
