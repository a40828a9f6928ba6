package il

import "fmt"

// ---------------------------------------------------------------------------
// Builder: helper for constructing method bodies
// ---------------------------------------------------------------------------

// Builder appends instructions to a body and resolves forward branch labels.
type Builder struct {
	body    *Body
	pending []*Label // labels marked but waiting for the next instruction
}

// NewBuilder creates a builder appending to body.
func NewBuilder(body *Body) *Builder {
	return &Builder{body: body}
}

// Body returns the body under construction.
func (b *Builder) Body() *Body {
	return b.body
}

// Emit appends an instruction with no operand.
func (b *Builder) Emit(op Opcode) *Instruction {
	return b.EmitOperand(op, nil)
}

// EmitOperand appends an instruction with the given operand.
func (b *Builder) EmitOperand(op Opcode, operand any) *Instruction {
	in := New(op, operand)
	b.body.Append(in)
	b.resolvePending(in)
	return in
}

// EmitInt32 appends an instruction with a 32-bit integer operand.
func (b *Builder) EmitInt32(op Opcode, v int32) *Instruction {
	return b.EmitOperand(op, v)
}

// EmitCall appends a call to m.
func (b *Builder) EmitCall(m *Method) *Instruction {
	op := OpCall
	if m.IsVirtual() {
		op = OpCallvirt
	}
	return b.EmitOperand(op, m.Ref())
}

// EmitBranchTo appends a branch to an already emitted instruction.
func (b *Builder) EmitBranchTo(op Opcode, target *Instruction) *Instruction {
	if !op.IsBranch() {
		panic(fmt.Sprintf("il: %s is not a branch", op))
	}
	return b.EmitOperand(op, target)
}

// DeclareLocal appends a local slot of the given type.
func (b *Builder) DeclareLocal(typ string) *Local {
	return b.body.AddLocal(&Local{Type: typ})
}

// ---------------------------------------------------------------------------
// Label management for branches
// ---------------------------------------------------------------------------

// Label is a branch destination that may be bound after branches to it are
// emitted.
type Label struct {
	target *Instruction   // bound instruction (nil until resolved)
	refs   []*Instruction // branches waiting for the target
	marked bool
}

// NewLabel creates an unbound label.
func (b *Builder) NewLabel() *Label {
	return &Label{refs: make([]*Instruction, 0, 2)}
}

// Mark binds label to the next instruction emitted.
func (b *Builder) Mark(label *Label) {
	if label.marked {
		panic("label already marked")
	}
	label.marked = true
	b.pending = append(b.pending, label)
}

// EmitBranch emits a branch to label.
func (b *Builder) EmitBranch(op Opcode, label *Label) *Instruction {
	if !op.IsBranch() {
		panic(fmt.Sprintf("il: %s is not a branch", op))
	}
	in := New(op, label.target)
	if label.target == nil {
		label.refs = append(label.refs, in)
	}
	b.body.Append(in)
	b.resolvePending(in)
	return in
}

// Finish reports an error if any label was left unbound or dangling.
func (b *Builder) Finish(labels ...*Label) error {
	if len(b.pending) > 0 {
		return fmt.Errorf("il: %d label(s) marked at end of body", len(b.pending))
	}
	for i, l := range labels {
		if l.target == nil {
			return fmt.Errorf("il: label %d never marked", i)
		}
	}
	return nil
}

func (b *Builder) resolvePending(in *Instruction) {
	for _, l := range b.pending {
		l.target = in
		for _, ref := range l.refs {
			ref.SetTarget(in)
		}
		l.refs = nil
	}
	b.pending = b.pending[:0]
}
