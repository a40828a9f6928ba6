package il

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders one instruction with its offset label.
func DisassembleInstruction(in *Instruction) string {
	return fmt.Sprintf("%s: %s", label(in), in.String())
}

// Disassemble returns a full listing of a body, one instruction per line.
func Disassemble(b *Body) string {
	var sb strings.Builder
	for i, l := range b.Locals {
		fmt.Fprintf(&sb, ".local [%d] %s\n", i, l.Type)
	}
	for in := b.First(); in != nil; in = in.Next() {
		sb.WriteString(DisassembleInstruction(in))
		if in.Next() != nil {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Opcodes returns the opcode sequence of a body.
func Opcodes(b *Body) []Opcode {
	ops := make([]Opcode, 0, b.Len())
	for in := b.First(); in != nil; in = in.Next() {
		ops = append(ops, in.Op)
	}
	return ops
}
