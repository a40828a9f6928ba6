package optimizer

import (
	"testing"

	"github.com/chazu/inliner/il"
	"github.com/chazu/inliner/policy"
)

// inliner returns the inlining pass alone, approving every callee that the
// baseline policy accepts.
func inliner(t *testing.T) Pass {
	t.Helper()
	p, err := NewInlineFunctionCall(policy.NewBaseline(0, 0), 16)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func selfRef(name string) *il.MethodRef {
	return &il.MethodRef{Type: "App.Program", Name: name}
}

func TestInlineLeaf(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	o := f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpNop, il.OpNop, il.OpRet)
	assertNoDangling(t, caller)
	if o.Stats().Inlined != 1 {
		t.Errorf("Inlined = %d, want 1", o.Stats().Inlined)
	}
	if o.State(callee) != Done {
		t.Errorf("callee state = %v, want done", o.State(callee))
	}
	assertOps(t, callee, il.OpNop, il.OpRet)
}

func TestInlineLeafFullPipeline(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	if err := f.optimizer(t).Optimize(caller); err != nil {
		t.Fatal(err)
	}
	assertOps(t, caller, il.OpRet)
	assertOps(t, callee, il.OpRet)
}

func TestInlineMidStreamReturn(t *testing.T) {
	f := newFixture()
	callee := f.method("G", func(b *il.Builder) {
		skip := b.NewLabel()
		b.EmitInt32(il.OpLdcI4, 1)
		b.EmitBranch(il.OpBrfalse, skip)
		b.Emit(il.OpRet)
		b.Mark(skip)
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	var anchor *il.Instruction
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		anchor = b.EmitInt32(il.OpLdcI4, 5)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller,
		il.OpNop,
		il.OpLdcI4, il.OpBrfalse, il.OpBr, il.OpNop,
		il.OpLdcI4, il.OpPop, il.OpRet)
	assertNoDangling(t, caller)

	body := caller.Body()
	cond, exit, landing := body.At(2), body.At(3), body.At(4)
	if cond.Target() != landing {
		t.Errorf("brfalse = %s, want it to target the copied nop", cond)
	}
	if exit.Target() != anchor {
		t.Errorf("copied ret = %s, want a branch to the post-call anchor", exit)
	}
}

func TestInlineRemapsLocals(t *testing.T) {
	f := newFixture()
	callee := f.method("Swap", func(b *il.Builder) {
		b.DeclareLocal("int32")
		b.DeclareLocal("string")
		b.EmitInt32(il.OpLdcI4, 7)
		b.Emit(il.OpStloc0)
		b.Emit(il.OpLdloc0)
		b.Emit(il.OpStloc1)
		b.EmitOperand(il.OpLdlocaS, b.Body().LocalAt(1))
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.DeclareLocal("bool")
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	body := caller.Body()
	if len(body.Locals) != 3 {
		t.Fatalf("caller locals = %d, want 3", len(body.Locals))
	}
	if body.Locals[1].Type != "int32" || body.Locals[2].Type != "string" {
		t.Errorf("appended locals = %v, %v", body.Locals[1], body.Locals[2])
	}
	assertOps(t, caller,
		il.OpNop, il.OpLdcI4, il.OpStloc1, il.OpLdloc1, il.OpStloc2,
		il.OpLdlocaS, il.OpPop, il.OpRet)
	if l := body.At(5).Local(); l != body.LocalAt(2) {
		t.Errorf("ldloca.s operand = %v, want the caller's slot 2", l)
	}
	if l := callee.Body().LocalAt(1); len(callee.Body().Locals) != 2 || l.Index != 1 {
		t.Error("callee locals should be untouched")
	}
}

func TestInlineBackwardBranch(t *testing.T) {
	f := newFixture()
	callee := f.method("Spin", func(b *il.Builder) {
		top := b.NewLabel()
		b.Mark(top)
		b.EmitInt32(il.OpLdcI4, 0)
		b.EmitBranch(il.OpBrtrue, top)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpNop, il.OpLdcI4, il.OpBrtrue, il.OpRet)
	body := caller.Body()
	if body.At(2).Target() != body.At(1) {
		t.Errorf("loop branch = %s, want it to target the copied ldc.i4", body.At(2))
	}
	assertNoDangling(t, caller)
	assertNoDangling(t, callee)
}

func TestInlineForwardBranchToTrailingReturn(t *testing.T) {
	f := newFixture()
	callee := f.method("Maybe", func(b *il.Builder) {
		end := b.NewLabel()
		b.EmitInt32(il.OpLdcI4, 1)
		b.EmitBranch(il.OpBrtrue, end)
		b.Emit(il.OpNop)
		b.Mark(end)
		b.Emit(il.OpRet)
	})
	var anchor *il.Instruction
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		anchor = b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpNop, il.OpLdcI4, il.OpBrtrue, il.OpNop, il.OpRet)
	if got := caller.Body().At(2).Target(); got != anchor {
		t.Errorf("forward branch targets %v, want the post-call anchor", got)
	}
	assertNoDangling(t, caller)
}

func TestInlineKeepsBranchToCallSite(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.EmitInt32(il.OpLdcI4, 3)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	var br *il.Instruction
	caller := f.method("Main", func(b *il.Builder) {
		site := b.NewLabel()
		b.EmitInt32(il.OpLdcI4, 1)
		br = b.EmitBranch(il.OpBrtrue, site)
		b.Mark(site)
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpLdcI4, il.OpBrtrue, il.OpNop, il.OpLdcI4, il.OpPop, il.OpRet)
	if br.Target() != caller.Body().At(2) {
		t.Errorf("branch = %s, want it to target the nop left at the call site", br)
	}
}

func TestInlineCalleeStartingWithReturn(t *testing.T) {
	f := newFixture()
	callee := f.method("Empty", func(b *il.Builder) {
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	o := f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpNop, il.OpRet)
	if o.Stats().Inlined != 1 {
		t.Errorf("Inlined = %d, want 1", o.Stats().Inlined)
	}
}

// ---------------------------------------------------------------------------
// Declined call sites
// ---------------------------------------------------------------------------

func TestInlineSkipsUnresolved(t *testing.T) {
	f := newFixture()
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitOperand(il.OpCall, &il.MethodRef{Type: "System.Console", Name: "WriteLine"})
		b.Emit(il.OpRet)
	})

	o := f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpCall, il.OpRet)
	if o.Stats().Inlined != 0 {
		t.Error("unresolved call should not be inlined")
	}
}

func TestInlineRespectsPolicy(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	callee.ReturnType = "int32"
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	o := f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpCall, il.OpRet)
	if o.State(callee) != NotVisited {
		t.Error("a declined callee should not be optimized on the caller's behalf")
	}
}

func TestInlineNeedsAnchor(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.Emit(il.OpNop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpCall)
}

func TestInlineSelfRecursion(t *testing.T) {
	f := newFixture()
	m := f.method("Loop", func(b *il.Builder) {
		b.EmitOperand(il.OpCall, selfRef("Loop"))
		b.Emit(il.OpRet)
	})
	if f.asm.Resolve(selfRef("Loop")) != m {
		t.Fatal("self reference should resolve")
	}

	f.run(t, m, inliner(t))
	assertOps(t, m, il.OpCall, il.OpRet)
}

func TestInlineCalleeThatCallsItself(t *testing.T) {
	f := newFixture()
	rec := f.method("Rec", func(b *il.Builder) {
		b.EmitOperand(il.OpCall, selfRef("Rec"))
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(rec)
		b.Emit(il.OpRet)
	})

	f.run(t, caller, inliner(t))
	assertOps(t, caller, il.OpCall, il.OpRet)
	assertOps(t, rec, il.OpCall, il.OpRet)
}

func TestInlineMutualRecursionTerminates(t *testing.T) {
	f := newFixture()
	a := f.method("A", func(b *il.Builder) {
		b.EmitOperand(il.OpCall, selfRef("B"))
		b.Emit(il.OpRet)
	})
	bm := f.method("B", func(b *il.Builder) {
		b.EmitOperand(il.OpCall, selfRef("A"))
		b.Emit(il.OpRet)
	})

	o := f.run(t, a, inliner(t))
	// B sees A in progress and keeps its call; A then absorbs B's body,
	// leaving a direct self call that is never expanded.
	assertOps(t, bm, il.OpCall, il.OpRet)
	assertOps(t, a, il.OpNop, il.OpCall, il.OpRet)
	if o.State(a) != Done || o.State(bm) != Done {
		t.Errorf("states = %v/%v, want done/done", o.State(a), o.State(bm))
	}
}

func TestInlineBudget(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.EmitInt32(il.OpLdcI4, 1)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	o := New(f.asm, []Pass{inliner(t)}, WithInlineBudget(1))
	if err := o.Optimize(caller); err != nil {
		t.Fatal(err)
	}
	assertOps(t, caller, il.OpNop, il.OpLdcI4, il.OpPop, il.OpCall, il.OpRet)
	if o.Stats().Inlined != 1 {
		t.Errorf("Inlined = %d, want 1", o.Stats().Inlined)
	}
}

func TestInlinePolicyConsultedOncePerCallee(t *testing.T) {
	f := newFixture()
	callee := f.method("F", func(b *il.Builder) {
		b.EmitInt32(il.OpLdcI4, 1)
		b.Emit(il.OpPop)
		b.Emit(il.OpRet)
	})
	caller := f.method("Main", func(b *il.Builder) {
		b.EmitCall(callee)
		b.EmitCall(callee)
		b.EmitCall(callee)
		b.Emit(il.OpRet)
	})

	asked := 0
	pass, err := NewInlineFunctionCall(policy.Func(func(m *il.Method) bool {
		asked++
		return m == callee
	}), 4)
	if err != nil {
		t.Fatal(err)
	}

	o := f.run(t, caller, pass)
	if asked != 1 {
		t.Errorf("policy asked %d times, want 1", asked)
	}
	if o.Stats().Inlined != 3 {
		t.Errorf("Inlined = %d, want 3", o.Stats().Inlined)
	}
}
