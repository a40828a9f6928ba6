package optimizer

import "github.com/chazu/inliner/il"

// ---------------------------------------------------------------------------
// BranchToReturn: br → ret/throw becomes ret/throw
// ---------------------------------------------------------------------------

// BranchToReturn replaces an unconditional branch to a ret or throw with a
// copy of that exit instruction.
type BranchToReturn struct{}

// Name implements Pass.
func (BranchToReturn) Name() string { return NameBranchToReturn }

// Apply implements Pass.
func (BranchToReturn) Apply(w *Worker) error {
	in := w.TargetInstruction()
	if in.Kind() != il.KindBranch {
		return nil
	}
	dest := in.Target()
	if dest == nil {
		return nil
	}
	switch dest.Kind() {
	case il.KindReturn, il.KindThrow:
		return w.ReplaceInstruction(in, w.CopyInstruction(dest))
	}
	return nil
}

// ---------------------------------------------------------------------------
// RemoveDegenerateBranch: a branch to the next instruction
// ---------------------------------------------------------------------------

// RemoveDegenerateBranch removes branches whose target is the instruction
// that follows them. A conditional branch still consumes its condition, so
// it is replaced by pops rather than deleted.
type RemoveDegenerateBranch struct{}

// Name implements Pass.
func (RemoveDegenerateBranch) Name() string { return NameRemoveDegenerateBranch }

// Apply implements Pass.
func (RemoveDegenerateBranch) Apply(w *Worker) error {
	in := w.TargetInstruction()
	if !in.IsBranch() {
		return nil
	}
	next := w.NextInstruction()
	if next == nil || in.Target() != next {
		return nil
	}

	n := in.Op.BranchOperands()
	if n == 0 {
		return w.DeleteInstruction(in)
	}
	pop := il.New(il.OpPop, nil)
	if err := w.ReplaceInstruction(in, pop); err != nil {
		return err
	}
	for i := 1; i < n; i++ {
		if err := w.InsertBefore(pop, il.New(il.OpPop, nil)); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// RemoveNop
// ---------------------------------------------------------------------------

// RemoveNop deletes nop instructions.
type RemoveNop struct{}

// Name implements Pass.
func (RemoveNop) Name() string { return NameRemoveNop }

// Apply implements Pass.
func (RemoveNop) Apply(w *Worker) error {
	in := w.TargetInstruction()
	if in.Kind() != il.KindNop || !w.CanDelete(in) {
		return nil
	}
	return w.DeleteInstruction(in)
}

// ---------------------------------------------------------------------------
// RemoveDeadCode
// ---------------------------------------------------------------------------

// RemoveDeadCode deletes instructions nothing can transfer control to. The
// first instruction is the method entry and is always reachable.
type RemoveDeadCode struct{}

// Name implements Pass.
func (RemoveDeadCode) Name() string { return NameRemoveDeadCode }

// Apply implements Pass.
func (RemoveDeadCode) Apply(w *Worker) error {
	in := w.TargetInstruction()
	if in == w.Body().First() {
		return nil
	}
	if len(w.SourceInstructions(in)) > 0 {
		return nil
	}
	return w.DeleteInstruction(in)
}

// ---------------------------------------------------------------------------
// RetargetDoubleBranch: a branch to an unconditional branch
// ---------------------------------------------------------------------------

// RetargetDoubleBranch points a branch whose target is an unconditional
// branch directly at the end of that chain of branches. The intermediate
// branches are left alone; if they become unreachable RemoveDeadCode
// deletes them.
type RetargetDoubleBranch struct{}

// Name implements Pass.
func (RetargetDoubleBranch) Name() string { return NameRetargetDoubleBranch }

// Apply implements Pass.
func (RetargetDoubleBranch) Apply(w *Worker) error {
	in := w.TargetInstruction()
	if !in.IsBranch() {
		return nil
	}
	mid := in.Target()
	if mid == nil || mid == in || mid.Kind() != il.KindBranch {
		return nil
	}

	// Follow the chain to its first non-branch instruction. Cycles of
	// unconditional branches are left as they are.
	seen := map[*il.Instruction]bool{in: true}
	final := mid
	for final.Kind() == il.KindBranch {
		if seen[final] {
			return nil
		}
		seen[final] = true
		if final = final.Target(); final == nil {
			return nil
		}
	}
	return w.RetargetBranch(in, final)
}
