package optimizer

import (
	"github.com/chazu/inliner/il"
	"github.com/chazu/inliner/policy"
)

// ---------------------------------------------------------------------------
// InlineFunctionCall: replace a call with a copy of the callee's body
// ---------------------------------------------------------------------------

// InlineFunctionCall substitutes the body of an approved callee for a call
// instruction. The callee is optimized first, so the copied code is already
// clean. The call becomes a nop that keeps any branch to the call site
// valid; every ret of the callee becomes a branch to the instruction after
// the call, except a trailing ret, which is dropped.
type InlineFunctionCall struct {
	policy policy.Policy
}

// NewInlineFunctionCall creates the pass. Decisions of p are cached so each
// callee is judged once; capacity should cover every callee of the run.
func NewInlineFunctionCall(p policy.Policy, capacity int) (*InlineFunctionCall, error) {
	if _, ok := p.(*policy.Memo); ok {
		return &InlineFunctionCall{policy: p}, nil
	}
	memo, err := policy.NewMemo(p, capacity)
	if err != nil {
		return nil, err
	}
	return &InlineFunctionCall{policy: memo}, nil
}

// Name implements Pass.
func (*InlineFunctionCall) Name() string { return NameInlineFunctionCall }

// Apply implements Pass.
func (p *InlineFunctionCall) Apply(w *Worker) error {
	call := w.TargetInstruction()
	if call.Kind() != il.KindCall {
		return nil
	}
	callee := w.Resolve(call.Method())
	if callee == nil || callee == w.Method() {
		return nil
	}
	if !p.policy.ShouldInline(callee) {
		return nil
	}
	anchor := w.NextInstruction()
	if anchor == nil {
		return nil
	}
	if !w.inlineAllowed() {
		w.opt.log.Warningf("inline budget exhausted in %s, leaving call to %s",
			w.Method().FullName(), callee.FullName())
		return nil
	}

	if err := w.Optimize(callee); err != nil {
		return err
	}
	// A callee still in progress is an ancestor of this method on the
	// optimization stack; its body is mid-rewrite.
	if w.InProgress(callee) || !callee.HasBody() || p.callsItself(w, callee) {
		return nil
	}

	if err := w.ReplaceInstruction(call, il.New(il.OpNop, nil)); err != nil {
		return err
	}
	w.noteInline(callee)

	body := callee.Body()
	if body.Empty() || body.First().Kind() == il.KindReturn {
		return nil
	}

	base := len(w.Body().Locals)
	for _, l := range body.Locals {
		w.AddLocalVariable(l)
	}

	copies := make(map[*il.Instruction]*il.Instruction, body.Len())
	last := body.Last()
	for orig := body.First(); orig != nil; orig = orig.Next() {
		if orig == last && orig.Kind() == il.KindReturn {
			w.RetargetBranches(orig, anchor)
			break
		}
		dup := p.copyInstruction(w, orig, base, anchor, copies)
		if err := w.InsertBefore(anchor, dup); err != nil {
			return err
		}
		copies[orig] = dup
		w.RetargetBranches(orig, dup)
	}
	return nil
}

// copyInstruction produces the caller-side copy of a callee instruction.
func (p *InlineFunctionCall) copyInstruction(w *Worker, orig *il.Instruction, base int, anchor *il.Instruction, copies map[*il.Instruction]*il.Instruction) *il.Instruction {
	switch {
	case orig.Kind() == il.KindReturn:
		return il.New(il.OpBr, anchor)

	case orig.IsBranch():
		dup := w.CopyInstruction(orig)
		// Backward branches resolve now; forward ones keep the original
		// target until it is copied and retargeted.
		if c, ok := copies[orig.Target()]; ok {
			dup.SetTarget(c)
		}
		return dup

	case il.IsLocalAccess(orig):
		if idx, ok := il.LocalIndex(orig); ok {
			if l := w.Body().LocalAt(base + idx); l != nil {
				return il.RelocateLocal(orig, l)
			}
		}
	}
	return w.CopyInstruction(orig)
}

// callsItself reports whether m's body contains a direct call to m. Such a
// callee would re-expand on every inline.
func (p *InlineFunctionCall) callsItself(w *Worker, m *il.Method) bool {
	for in := m.Body().First(); in != nil; in = in.Next() {
		if in.Kind() == il.KindCall && w.Resolve(in.Method()) == m {
			return true
		}
	}
	return false
}
