package optimizer

import (
	"testing"

	"github.com/chazu/inliner/il"
	"github.com/chazu/inliner/policy"
)

// fixture is a one-type assembly for building test methods.
type fixture struct {
	asm *il.Assembly
	typ *il.Type
}

func newFixture() *fixture {
	asm := il.NewAssembly("App", il.KindExecutable)
	typ := asm.AddModule("App.exe").AddType("App", "Program")
	return &fixture{asm: asm, typ: typ}
}

// method adds a static void parameterless method whose body is built by fn.
func (f *fixture) method(name string, fn func(b *il.Builder)) *il.Method {
	m := il.NewMethod(name, il.AttrStatic)
	body := il.NewBody()
	fn(il.NewBuilder(body))
	m.SetBody(body)
	return f.typ.AddMethod(m)
}

// worker returns a worker for m positioned on its first instruction.
func (f *fixture) worker(m *il.Method) *Worker {
	w := newWorker(New(f.asm, nil), m)
	w.advance()
	return w
}

// optimizer builds a driver running the default passes under the
// baseline policy with no size limits.
func (f *fixture) optimizer(t *testing.T, opts ...Option) *Optimizer {
	t.Helper()
	passes, err := DefaultPasses(policy.NewBaseline(0, 0), 16)
	if err != nil {
		t.Fatal(err)
	}
	return New(f.asm, passes, opts...)
}

// run drives m to a fixed point with only the given passes.
func (f *fixture) run(t *testing.T, m *il.Method, passes ...Pass) *Optimizer {
	t.Helper()
	o := New(f.asm, passes)
	if err := o.Optimize(m); err != nil {
		t.Fatalf("Optimize(%s): %v", m.Name, err)
	}
	return o
}

func opsOf(m *il.Method) []il.Opcode {
	return il.Opcodes(m.Body())
}

func assertOps(t *testing.T, m *il.Method, want ...il.Opcode) {
	t.Helper()
	got := opsOf(m)
	if len(got) != len(want) {
		t.Fatalf("%s ops = %v, want %v\n%s", m.Name, got, want, il.Disassemble(m.Body()))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s ops = %v, want %v\n%s", m.Name, got, want, il.Disassemble(m.Body()))
		}
	}
}

// assertNoDangling checks that every branch of m targets an instruction
// linked into m's own body.
func assertNoDangling(t *testing.T, m *il.Method) {
	t.Helper()
	body := m.Body()
	for in := body.First(); in != nil; in = in.Next() {
		if in.IsBranch() && !body.Contains(in.Target()) {
			t.Fatalf("%s: %s targets an instruction outside the body\n%s", m.Name, in, il.Disassemble(body))
		}
	}
}
