package optimizer

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
	"github.com/chazu/inliner/policy"
)

// probe is a pass that never rewrites; it lets tests observe the driver.
type probe struct {
	fn func(w *Worker) error
}

func (probe) Name() string { return "probe" }

func (p probe) Apply(w *Worker) error { return p.fn(w) }

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

func TestStateTransitions(t *testing.T) {
	f := newFixture()
	m := f.method("F", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})

	var o *Optimizer
	var during []State
	o = New(f.asm, []Pass{probe{fn: func(w *Worker) error {
		during = append(during, o.State(w.Method()))
		return nil
	}}})

	if o.State(m) != NotVisited {
		t.Errorf("initial state = %v, want not-visited", o.State(m))
	}
	if err := o.Optimize(m); err != nil {
		t.Fatal(err)
	}
	if o.State(m) != Done {
		t.Errorf("final state = %v, want done", o.State(m))
	}
	if len(during) != 2 {
		t.Fatalf("probe saw %d instructions, want 2", len(during))
	}
	for _, s := range during {
		if s != InProgress {
			t.Errorf("state while scanning = %v, want in-progress", s)
		}
	}
}

func TestOptimizeVisitsOnce(t *testing.T) {
	f := newFixture()
	m := f.method("F", func(b *il.Builder) { b.Emit(il.OpRet) })

	calls := 0
	o := New(f.asm, []Pass{probe{fn: func(*Worker) error {
		calls++
		return nil
	}}})
	for i := 0; i < 3; i++ {
		if err := o.Optimize(m); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("pass applied %d times, want 1", calls)
	}
}

func TestOptimizeWithoutBody(t *testing.T) {
	f := newFixture()
	abstract := f.typ.AddMethod(il.NewMethod("Abstract", il.AttrAbstract|il.AttrVirtual))
	empty := f.method("Empty", func(*il.Builder) {})

	o := f.optimizer(t)
	for _, m := range []*il.Method{abstract, empty} {
		if err := o.Optimize(m); err != nil {
			t.Fatal(err)
		}
		if o.State(m) != Done {
			t.Errorf("%s: state = %v, want done", m.Name, o.State(m))
		}
	}
	if o.Stats().Methods != 0 {
		t.Errorf("Methods = %d, want 0 for bodiless methods", o.Stats().Methods)
	}
}

func TestOptimizeNil(t *testing.T) {
	o := New(nil, nil)
	if err := o.Optimize(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Optimize(nil) = %v, want ErrInvalidArgument", err)
	}
}

func TestPassErrorStopsTheRun(t *testing.T) {
	f := newFixture()
	m := f.method("F", func(b *il.Builder) { b.Emit(il.OpRet) })
	boom := errors.New("boom")

	o := New(f.asm, []Pass{probe{fn: func(*Worker) error { return boom }}})
	err := o.Optimize(m)
	if !errors.Is(err, boom) {
		t.Fatalf("Optimize = %v, want wrapped boom", err)
	}
	if o.State(m) != InProgress {
		t.Errorf("state after failure = %v, want in-progress", o.State(m))
	}
}

// ---------------------------------------------------------------------------
// Fixed point
// ---------------------------------------------------------------------------

func TestFullPipeline(t *testing.T) {
	f := newFixture()
	var cond *il.Instruction
	m := f.method("F", func(b *il.Builder) {
		l1 := b.NewLabel()
		l2 := b.NewLabel()
		b.EmitInt32(il.OpLdcI4, 1)
		cond = b.EmitBranch(il.OpBrtrue, l1)
		b.EmitInt32(il.OpLdcI4, 2)
		b.Emit(il.OpPop)
		b.Mark(l1)
		b.EmitBranch(il.OpBr, l2)
		b.Emit(il.OpNop)
		b.Mark(l2)
		b.Emit(il.OpRet)
	})

	names := []string{
		NameBranchToReturn,
		NameInlineFunctionCall,
		NameRemoveDegenerateBranch,
		NameRemoveNop,
		NameRemoveDeadCode,
		NameRetargetDoubleBranch,
	}
	passes, err := PassesByName(names, policy.Never, 4)
	if err != nil {
		t.Fatal(err)
	}
	o := New(f.asm, passes)
	if err := o.Optimize(m); err != nil {
		t.Fatal(err)
	}

	assertOps(t, m, il.OpLdcI4, il.OpBrtrue, il.OpLdcI4, il.OpPop, il.OpRet, il.OpRet)
	if cond.Target() != m.Body().Last() {
		t.Errorf("brtrue = %s, want it to target the final ret", cond)
	}
	assertNoDangling(t, m)

	stats := o.Stats()
	for _, name := range []string{NameRetargetDoubleBranch, NameBranchToReturn, NameRemoveNop} {
		if stats.Fired(name) != 1 {
			t.Errorf("%s fired %d times, want 1", name, stats.Fired(name))
		}
	}
}

func TestFixedPointIsStable(t *testing.T) {
	f := newFixture()
	leaf := f.method("Leaf", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.EmitInt32(il.OpLdcI4, 4)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	f.method("Main", func(b *il.Builder) {
		end := b.NewLabel()
		b.EmitCall(leaf)
		b.EmitBranch(il.OpBr, end)
		b.Emit(il.OpNop)
		b.Mark(end)
		b.EmitCall(leaf)
		b.Emit(il.OpRet)
	})
	f.method("Count", loop)

	if err := f.optimizer(t).Run(f.asm); err != nil {
		t.Fatal(err)
	}
	first := map[string][]il.Opcode{}
	for _, m := range f.asm.Methods() {
		first[m.Name] = opsOf(m)
	}

	again := f.optimizer(t)
	if err := again.Run(f.asm); err != nil {
		t.Fatal(err)
	}
	if names := again.Stats().PassNames(); len(names) != 0 {
		t.Errorf("second run fired %v, want nothing", names)
	}
	for _, m := range f.asm.Methods() {
		assertOps(t, m, first[m.Name]...)
	}
}

func TestRunStats(t *testing.T) {
	f := newFixture()
	leaf := f.method("Leaf", func(b *il.Builder) {
		b.EmitInt32(il.OpLdcI4, 4)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(leaf)
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	f.typ.AddMethod(il.NewMethod("Native", il.AttrStatic|il.AttrExtern))

	o := f.optimizer(t)
	if err := o.Run(f.asm); err != nil {
		t.Fatal(err)
	}
	assertOps(t, caller, il.OpLdcI4, il.OpPop, il.OpRet)

	s := o.Stats()
	if s.Methods != 2 {
		t.Errorf("Methods = %d, want 2", s.Methods)
	}
	if s.Inlined != 1 {
		t.Errorf("Inlined = %d, want 1", s.Inlined)
	}
	if s.InstructionsBefore != 6 || s.InstructionsAfter != 6 {
		t.Errorf("instructions = %d -> %d, want 6 -> 6", s.InstructionsBefore, s.InstructionsAfter)
	}
	if s.Fired(NameInlineFunctionCall) != 1 || s.Fired(NameRemoveNop) != 2 {
		t.Errorf("pass counts = %v", s.Passes)
	}

	s.Passes["tamper"] = 1
	if o.Stats().Fired("tamper") != 0 {
		t.Error("Stats should return a copy")
	}
}

// ---------------------------------------------------------------------------
// Pass lists
// ---------------------------------------------------------------------------

func TestPassesByName(t *testing.T) {
	passes, err := PassesByName([]string{NameRemoveNop, NameBranchToReturn}, policy.Never, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 2 || passes[0].Name() != NameRemoveNop || passes[1].Name() != NameBranchToReturn {
		t.Errorf("passes = %v, want configured order", passes)
	}

	if _, err := PassesByName([]string{"constant-folding"}, policy.Never, 1); err == nil {
		t.Error("unknown pass should be an error")
	}
	if _, err := PassesByName([]string{NameRemoveNop, NameRemoveNop}, policy.Never, 1); err == nil {
		t.Error("duplicate pass should be an error")
	}
}

func TestDefaultPassOrder(t *testing.T) {
	passes, err := DefaultPasses(policy.Never, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		NameBranchToReturn,
		NameInlineFunctionCall,
		NameRemoveDegenerateBranch,
		NameRemoveNop,
		NameRemoveDeadCode,
	}
	if len(passes) != len(want) {
		t.Fatalf("got %d passes, want %d", len(passes), len(want))
	}
	for i, p := range passes {
		if p.Name() != want[i] {
			t.Errorf("pass %d = %s, want %s", i, p.Name(), want[i])
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{NotVisited, "not-visited"},
		{InProgress, "in-progress"},
		{Done, "done"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
