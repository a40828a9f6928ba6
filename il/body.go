package il

import "fmt"

// ---------------------------------------------------------------------------
// Local variables
// ---------------------------------------------------------------------------

// Local is one local variable slot of a method body.
type Local struct {
	Index int    // slot number within the owning body
	Type  string // declared type name
	Name  string // debug name (may be empty)
}

// String implements the Stringer interface.
func (l *Local) String() string {
	if l.Name != "" {
		return fmt.Sprintf("V_%d(%s)", l.Index, l.Name)
	}
	return fmt.Sprintf("V_%d", l.Index)
}

// ---------------------------------------------------------------------------
// Body: the instruction list and locals of one method
// ---------------------------------------------------------------------------

// Body owns an ordered, doubly linked list of instructions and the local
// variable slots they address.
//
// The link primitives here are raw: they keep the list itself well formed
// but know nothing about branch operands. Code that rewrites a body while
// branches are live must go through a higher-level editor that retargets
// them.
type Body struct {
	Locals     []*Local
	MaxStack   int
	InitLocals bool

	first, last *Instruction
	count       int
	method      *Method
}

// NewBody creates an empty body.
func NewBody() *Body {
	return &Body{InitLocals: true}
}

// Method returns the method owning this body, or nil for a detached body.
func (b *Body) Method() *Method {
	return b.method
}

// First returns the first instruction, or nil if the body is empty.
func (b *Body) First() *Instruction {
	return b.first
}

// Last returns the last instruction, or nil if the body is empty.
func (b *Body) Last() *Instruction {
	return b.last
}

// Len returns the number of instructions.
func (b *Body) Len() int {
	return b.count
}

// Empty reports whether the body has no instructions.
func (b *Body) Empty() bool {
	return b.count == 0
}

// Instructions returns a snapshot of the instruction list.
func (b *Body) Instructions() []*Instruction {
	out := make([]*Instruction, 0, b.count)
	for in := b.first; in != nil; in = in.next {
		out = append(out, in)
	}
	return out
}

// Contains reports whether in is linked into this body.
func (b *Body) Contains(in *Instruction) bool {
	return in != nil && in.body == b
}

// IndexOf returns the position of in, or -1 if it is not in this body.
func (b *Body) IndexOf(in *Instruction) int {
	if !b.Contains(in) {
		return -1
	}
	return in.Offset()
}

// At returns the instruction at position i, or nil if out of range.
func (b *Body) At(i int) *Instruction {
	if i < 0 || i >= b.count {
		return nil
	}
	in := b.first
	for ; i > 0; i-- {
		in = in.next
	}
	return in
}

// ---------------------------------------------------------------------------
// Raw link primitives
// ---------------------------------------------------------------------------

// Append links in at the end of the body.
func (b *Body) Append(in *Instruction) {
	b.InsertBefore(nil, in)
}

// InsertBefore links in immediately before mark. A nil mark appends.
// Panics if in is already linked or mark belongs to another body.
func (b *Body) InsertBefore(mark, in *Instruction) {
	b.mustBeUnlinked(in)
	if mark == nil {
		in.prev = b.last
		if b.last != nil {
			b.last.next = in
		} else {
			b.first = in
		}
		b.last = in
	} else {
		b.mustContain(mark)
		in.prev = mark.prev
		in.next = mark
		if mark.prev != nil {
			mark.prev.next = in
		} else {
			b.first = in
		}
		mark.prev = in
	}
	in.body = b
	b.count++
}

// InsertAfter links in immediately after mark. A nil mark prepends.
func (b *Body) InsertAfter(mark, in *Instruction) {
	if mark == nil {
		b.InsertBefore(b.first, in)
		return
	}
	b.mustContain(mark)
	b.InsertBefore(mark.next, in)
}

// Remove unlinks in from the body.
func (b *Body) Remove(in *Instruction) {
	b.mustContain(in)
	if in.prev != nil {
		in.prev.next = in.next
	} else {
		b.first = in.next
	}
	if in.next != nil {
		in.next.prev = in.prev
	} else {
		b.last = in.prev
	}
	in.prev, in.next, in.body = nil, nil, nil
	b.count--
}

// Replace unlinks old and links repl in its position.
func (b *Body) Replace(old, repl *Instruction) {
	b.mustContain(old)
	b.mustBeUnlinked(repl)
	next := old.next
	b.Remove(old)
	b.InsertBefore(next, repl)
}

// AddLocal appends a local slot, assigning its index, and returns it.
func (b *Body) AddLocal(l *Local) *Local {
	l.Index = len(b.Locals)
	b.Locals = append(b.Locals, l)
	return l
}

// LocalAt returns the local at index i, or nil if out of range.
func (b *Body) LocalAt(i int) *Local {
	if i < 0 || i >= len(b.Locals) {
		return nil
	}
	return b.Locals[i]
}

func (b *Body) mustContain(in *Instruction) {
	if in == nil || in.body != b {
		panic("il: instruction does not belong to this body")
	}
}

func (b *Body) mustBeUnlinked(in *Instruction) {
	if in == nil {
		panic("il: nil instruction")
	}
	if in.body != nil {
		panic("il: instruction is already linked")
	}
}
