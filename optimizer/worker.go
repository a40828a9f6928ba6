package optimizer

import (
	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// ---------------------------------------------------------------------------
// Worker: the mutation surface for one method body
// ---------------------------------------------------------------------------

// Worker is handed to every pass. It exposes the instruction being visited
// and the only primitives allowed to change the body, keeping the branch
// index and the driver's cursor consistent across edits.
//
// A Worker is scoped to one method and one Optimize call.
type Worker struct {
	opt    *Optimizer
	method *il.Method
	body   *il.Body
	index  *BranchIndex // built on first use

	pos       *il.Instruction // last instruction handed out by advance
	target    *il.Instruction // instruction offered to passes
	anchor    *il.Instruction // predecessor of target when it was offered
	successor *il.Instruction // target's successor if target was deleted

	dirty   bool
	inlined int
}

func newWorker(opt *Optimizer, m *il.Method) *Worker {
	return &Worker{opt: opt, method: m, body: m.Body()}
}

// Method returns the method being optimized.
func (w *Worker) Method() *il.Method {
	return w.method
}

// Body returns the body being optimized.
func (w *Worker) Body() *il.Body {
	return w.body
}

// TargetInstruction returns the instruction currently offered to passes.
func (w *Worker) TargetInstruction() *il.Instruction {
	return w.target
}

// NextInstruction returns the instruction following the target, taking
// into account edits already made this round.
func (w *Worker) NextInstruction() *il.Instruction {
	if w.target == nil {
		return nil
	}
	if w.target.Linked() {
		return w.target.Next()
	}
	return w.successor
}

// WasOptimized reports whether any mutating primitive ran since the driver
// last cleared the flag.
func (w *Worker) WasOptimized() bool {
	return w.dirty
}

func (w *Worker) touch() {
	w.dirty = true
}

func (w *Worker) takeDirty() bool {
	d := w.dirty
	w.dirty = false
	return d
}

func (w *Worker) branches() *BranchIndex {
	if w.index == nil {
		w.index = BuildBranchIndex(w.body)
	}
	return w.index
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

func (w *Worker) reset() {
	w.pos, w.target, w.anchor, w.successor = nil, nil, nil, nil
}

// advance moves the cursor to the next instruction and offers it.
func (w *Worker) advance() bool {
	var next *il.Instruction
	if w.pos == nil {
		next = w.body.First()
	} else {
		next = w.pos.Next()
	}
	w.pos = next
	w.target = next
	w.successor = nil
	if next != nil {
		w.anchor = next.Prev()
	}
	return next != nil
}

// rewind positions the cursor so the next advance re-offers the
// instruction that preceded the last mutation point.
func (w *Worker) rewind() {
	if w.anchor == nil {
		w.pos = nil
	} else {
		w.pos = w.anchor.Prev()
	}
	w.target = nil
}

// forget moves cursor references off in before it is unlinked.
func (w *Worker) forget(in *il.Instruction) {
	if w.anchor == in {
		w.anchor = in.Prev()
	}
	if w.pos == in {
		w.pos = in.Prev()
	}
	if w.target == in {
		w.successor = in.Next()
	}
}

// substitute moves cursor references from old to repl.
func (w *Worker) substitute(old, repl *il.Instruction) {
	if w.anchor == old {
		w.anchor = repl
	}
	if w.pos == old {
		w.pos = repl
	}
	if w.target == old {
		w.target = repl
	}
}

// ---------------------------------------------------------------------------
// Mutation primitives
// ---------------------------------------------------------------------------

// AddLocalVariable appends a new local slot with def's type and name and
// returns it.
func (w *Worker) AddLocalVariable(def *il.Local) *il.Local {
	l := w.body.AddLocal(&il.Local{Type: def.Type, Name: def.Name})
	w.touch()
	return l
}

// CopyInstruction returns an unlinked instruction with src's opcode and
// operand. Branch copies still target src's target until retargeted.
func (w *Worker) CopyInstruction(src *il.Instruction) *il.Instruction {
	return il.New(src.Op, src.Operand)
}

// CanDelete reports whether in can be deleted without leaving a branch
// with no successor to retarget to.
func (w *Worker) CanDelete(in *il.Instruction) bool {
	return in.Next() != nil || !w.branches().IsTarget(in)
}

// DeleteInstruction unlinks in. Branches that targeted in are retargeted to
// its fall-through successor.
func (w *Worker) DeleteInstruction(in *il.Instruction) error {
	if w.target == nil {
		return errors.Wrap(ErrNoContext, "delete")
	}
	if !w.body.Contains(in) {
		return errors.Wrapf(ErrInvalidArgument, "delete %v", in)
	}
	idx := w.branches()
	next := in.Next()
	if next == nil && idx.IsTarget(in) {
		return errors.Wrapf(ErrNoFallthrough, "delete %s in %s", in, w.method.FullName())
	}
	if in.IsBranch() {
		if err := idx.Remove(in); err != nil {
			return err
		}
	}
	if next != nil {
		idx.Retarget(in, next)
	}
	w.forget(in)
	w.body.Remove(in)
	w.touch()
	return nil
}

// ReplaceInstruction links repl in place of in and retargets every branch
// that targeted in to repl.
func (w *Worker) ReplaceInstruction(in, repl *il.Instruction) error {
	if w.target == nil {
		return errors.Wrap(ErrNoContext, "replace")
	}
	if !w.body.Contains(in) {
		return errors.Wrapf(ErrInvalidArgument, "replace %v", in)
	}
	if repl == nil || repl.Linked() || (repl.IsBranch() && repl.Target() == in) {
		return errors.Wrapf(ErrInvalidArgument, "replacement %v", repl)
	}
	idx := w.branches()
	if in.IsBranch() {
		if err := idx.Remove(in); err != nil {
			return err
		}
	}
	w.body.Replace(in, repl)
	idx.Retarget(in, repl)
	if repl.IsBranch() {
		idx.add(repl)
	}
	w.substitute(in, repl)
	w.touch()
	return nil
}

// InsertBefore links in immediately before mark, or at the end of the body
// if mark is nil.
func (w *Worker) InsertBefore(mark, in *il.Instruction) error {
	if in == nil || in.Linked() {
		return errors.Wrapf(ErrInvalidArgument, "insert %v", in)
	}
	if mark != nil && !w.body.Contains(mark) {
		return errors.Wrapf(ErrInvalidArgument, "insert before %v", mark)
	}
	idx := w.branches()
	w.body.InsertBefore(mark, in)
	if in.IsBranch() {
		idx.add(in)
	}
	w.touch()
	return nil
}

// RetargetBranches redirects every branch of this body that targets
// oldTarget to newTarget and returns how many were redirected.
func (w *Worker) RetargetBranches(oldTarget, newTarget *il.Instruction) int {
	n := w.branches().Retarget(oldTarget, newTarget)
	if n > 0 {
		w.touch()
	}
	return n
}

// RetargetBranch points a single branch at target.
func (w *Worker) RetargetBranch(branch, target *il.Instruction) error {
	if !w.body.Contains(branch) {
		return errors.Wrapf(ErrInvalidArgument, "retarget %v", branch)
	}
	idx := w.branches()
	if err := idx.Remove(branch); err != nil {
		return err
	}
	branch.SetTarget(target)
	idx.add(branch)
	w.touch()
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// SourceInstructions returns every instruction that may transfer control to
// target: the branches targeting it plus its predecessor when that can fall
// through. A conditional branch to target is reported once.
func (w *Worker) SourceInstructions(target *il.Instruction) []*il.Instruction {
	srcs := w.branches().FindSources(target)
	prev := target.Prev()
	if prev == nil || !prev.CanFallThrough() {
		return srcs
	}
	if prev.Kind() == il.KindConditionalBranch && prev.Target() == target {
		return srcs
	}
	return append(srcs, prev)
}

// Resolve returns the definition a call operand names, or nil.
func (w *Worker) Resolve(ref *il.MethodRef) *il.Method {
	if w.opt.resolver == nil {
		return nil
	}
	return w.opt.resolver.Resolve(ref)
}

// Optimize runs the driver on another method before it is used here.
func (w *Worker) Optimize(m *il.Method) error {
	return w.opt.Optimize(m)
}

// InProgress reports whether m is currently being optimized further up the
// call stack.
func (w *Worker) InProgress(m *il.Method) bool {
	return w.opt.State(m) == InProgress
}

func (w *Worker) inlineAllowed() bool {
	return w.opt.budget <= 0 || w.inlined < w.opt.budget
}

func (w *Worker) noteInline(callee *il.Method) {
	w.inlined++
	w.opt.stats.Inlined++
	w.opt.log.Debugf("inlined %s into %s", callee.FullName(), w.method.FullName())
}
