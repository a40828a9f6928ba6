// Package policy decides which methods are eligible for inlining.
package policy

import "github.com/chazu/inliner/il"

// Policy is the yes/no inlining predicate.
type Policy interface {
	ShouldInline(m *il.Method) bool
}

// Func adapts a function to Policy.
type Func func(m *il.Method) bool

// ShouldInline implements Policy.
func (f Func) ShouldInline(m *il.Method) bool {
	return f(m)
}

// Never declines every method.
var Never = Func(func(*il.Method) bool { return false })

// Baseline accepts leaf-shaped methods: static, non-virtual, concrete,
// parameterless, void-returning and with a body. Zero limits are unbounded.
type Baseline struct {
	MaxInstructions int             // body size cap
	MaxLocals       int             // local slot cap
	Exclude         map[string]bool // full names never inlined
}

// NewBaseline creates a baseline policy excluding the given full names
// ("Namespace.Type::Method").
func NewBaseline(maxInstructions, maxLocals int, exclude ...string) *Baseline {
	b := &Baseline{
		MaxInstructions: maxInstructions,
		MaxLocals:       maxLocals,
		Exclude:         make(map[string]bool, len(exclude)),
	}
	for _, name := range exclude {
		b.Exclude[name] = true
	}
	return b
}

// ShouldInline implements Policy.
func (b *Baseline) ShouldInline(m *il.Method) bool {
	if m == nil || !m.HasBody() {
		return false
	}
	if !m.IsStatic() || m.IsVirtual() || m.IsAbstract() || m.IsExtern() {
		return false
	}
	if len(m.Params) != 0 || !m.ReturnsVoid() {
		return false
	}
	if b.Exclude[m.FullName()] {
		return false
	}
	body := m.Body()
	if b.MaxInstructions > 0 && body.Len() > b.MaxInstructions {
		return false
	}
	if b.MaxLocals > 0 && len(body.Locals) > b.MaxLocals {
		return false
	}
	return true
}
