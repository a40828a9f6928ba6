package il

import "fmt"

// ---------------------------------------------------------------------------
// Instruction: a node in a method body's instruction list
// ---------------------------------------------------------------------------

// Instruction is one operation of a method body. Instructions are linked
// into exactly one Body at a time; the pointer itself is the instruction's
// identity, so branch operands refer to other instructions directly.
//
// The operand's dynamic type follows Op.OperandType():
//
//	OperandTarget  *Instruction
//	OperandMethod  *MethodRef
//	OperandField   *FieldRef
//	OperandLocal   *Local
//	OperandInt32   int32
//	OperandInt64   int64
//	OperandString  string
type Instruction struct {
	Op      Opcode
	Operand any

	prev, next *Instruction
	body       *Body
}

// New creates an unlinked instruction.
func New(op Opcode, operand any) *Instruction {
	return &Instruction{Op: op, Operand: operand}
}

// Next returns the following instruction, or nil at the end of the body.
func (in *Instruction) Next() *Instruction {
	return in.next
}

// Prev returns the preceding instruction, or nil at the start of the body.
func (in *Instruction) Prev() *Instruction {
	return in.prev
}

// Body returns the body the instruction is linked into, or nil.
func (in *Instruction) Body() *Body {
	return in.body
}

// Linked reports whether the instruction currently belongs to a body.
func (in *Instruction) Linked() bool {
	return in.body != nil
}

// Kind returns the control-flow classification of the instruction's opcode.
func (in *Instruction) Kind() Kind {
	return in.Op.Kind()
}

// IsBranch reports whether the instruction is a branch or conditional branch.
func (in *Instruction) IsBranch() bool {
	return in.Op.IsBranch()
}

// Target returns the branch target, or nil if the operand is not an instruction.
func (in *Instruction) Target() *Instruction {
	t, _ := in.Operand.(*Instruction)
	return t
}

// SetTarget replaces the branch target operand.
func (in *Instruction) SetTarget(target *Instruction) {
	in.Operand = target
}

// Method returns the call operand, or nil.
func (in *Instruction) Method() *MethodRef {
	m, _ := in.Operand.(*MethodRef)
	return m
}

// Local returns the local operand, or nil. Embedded-index forms such as
// ldloc.0 have no operand; use LocalIndex for those.
func (in *Instruction) Local() *Local {
	l, _ := in.Operand.(*Local)
	return l
}

// CanFallThrough reports whether control may continue to the next
// instruction after this one executes.
func (in *Instruction) CanFallThrough() bool {
	switch in.Kind() {
	case KindBranch, KindReturn, KindThrow:
		return false
	}
	return true
}

// Offset returns the instruction's position in its body, or -1 if unlinked.
func (in *Instruction) Offset() int {
	if in.body == nil {
		return -1
	}
	n := 0
	for p := in.prev; p != nil; p = p.prev {
		n++
	}
	return n
}

// String renders the instruction in assembler syntax. Branch targets are
// printed as IL_nnnn labels relative to the target's own body.
func (in *Instruction) String() string {
	name := in.Op.Name()
	switch in.Op.OperandType() {
	case OperandNone:
		return name
	case OperandTarget:
		t := in.Target()
		if t == nil {
			return name + " <nil>"
		}
		return fmt.Sprintf("%s %s", name, label(t))
	case OperandString:
		return fmt.Sprintf("%s %q", name, in.Operand)
	default:
		return fmt.Sprintf("%s %v", name, in.Operand)
	}
}

func label(in *Instruction) string {
	off := in.Offset()
	if off < 0 {
		return "IL_????"
	}
	return fmt.Sprintf("IL_%04d", off)
}
