package il

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a single instruction of a method body.
type Opcode byte

// No-op
const (
	OpNop Opcode = 0x00 // no operation
)

// Local variable access
const (
	OpLdloc0  Opcode = 0x06 // push local 0
	OpLdloc1  Opcode = 0x07 // push local 1
	OpLdloc2  Opcode = 0x08 // push local 2
	OpLdloc3  Opcode = 0x09 // push local 3
	OpStloc0  Opcode = 0x0A // pop into local 0
	OpStloc1  Opcode = 0x0B // pop into local 1
	OpStloc2  Opcode = 0x0C // pop into local 2
	OpStloc3  Opcode = 0x0D // pop into local 3
	OpLdlocS  Opcode = 0x11 // push local (8-bit index)
	OpLdlocaS Opcode = 0x12 // push address of local (8-bit index)
	OpStlocS  Opcode = 0x13 // pop into local (8-bit index)
	OpLdloc   Opcode = 0x14 // push local (16-bit index)
	OpLdloca  Opcode = 0x15 // push address of local (16-bit index)
	OpStloc   Opcode = 0x16 // pop into local (16-bit index)
)

// Arguments, constants and stack shuffling
const (
	OpLdarg  Opcode = 0x20 // push argument
	OpLdnull Opcode = 0x21 // push null
	OpLdcI4  Opcode = 0x22 // push 32-bit integer
	OpLdcI8  Opcode = 0x23 // push 64-bit integer
	OpLdstr  Opcode = 0x24 // push string literal
	OpDup    Opcode = 0x25 // duplicate top of stack
	OpPop    Opcode = 0x26 // discard top of stack
)

// Arithmetic and comparison
const (
	OpAdd Opcode = 0x30
	OpSub Opcode = 0x31
	OpMul Opcode = 0x32
	OpDiv Opcode = 0x33
	OpRem Opcode = 0x34
	OpNeg Opcode = 0x35
	OpAnd Opcode = 0x36
	OpOr  Opcode = 0x37
	OpXor Opcode = 0x38
	OpNot Opcode = 0x39
	OpCeq Opcode = 0x3A
	OpCgt Opcode = 0x3B
	OpClt Opcode = 0x3C
)

// Fields and objects
const (
	OpLdfld  Opcode = 0x40 // push instance field
	OpStfld  Opcode = 0x41 // store instance field
	OpLdsfld Opcode = 0x42 // push static field
	OpStsfld Opcode = 0x43 // store static field
	OpNewobj Opcode = 0x44 // allocate and run constructor
)

// Control flow
const (
	OpBr       Opcode = 0x50 // unconditional branch
	OpBrS      Opcode = 0x51 // unconditional branch, short form
	OpBrtrue   Opcode = 0x52 // pop, branch if true
	OpBrtrueS  Opcode = 0x53
	OpBrfalse  Opcode = 0x54 // pop, branch if false
	OpBrfalseS Opcode = 0x55
	OpBeq      Opcode = 0x56 // pop 2, branch if equal
	OpBeqS     Opcode = 0x57
	OpBneUn    Opcode = 0x58 // pop 2, branch if not equal
	OpBneUnS   Opcode = 0x59
	OpBlt      Opcode = 0x5A // pop 2, branch if less
	OpBltS     Opcode = 0x5B
	OpBgt      Opcode = 0x5C // pop 2, branch if greater
	OpBgtS     Opcode = 0x5D
)

// Calls and exits
const (
	OpCall     Opcode = 0x60 // static call
	OpCallvirt Opcode = 0x61 // virtual call
	OpRet      Opcode = 0x70 // return from method
	OpThrow    Opcode = 0x71 // throw exception on top of stack
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// Kind classifies an opcode by the role it plays in control flow and
// local variable access. Short and long encodings share a Kind.
type Kind uint8

const (
	KindOther Kind = iota
	KindNop
	KindBranch
	KindConditionalBranch
	KindCall
	KindReturn
	KindThrow
	KindLoadLocal
	KindLoadLocalAddress
	KindStoreLocal
)

var kindNames = [...]string{
	KindOther:             "other",
	KindNop:               "nop",
	KindBranch:            "branch",
	KindConditionalBranch: "conditional-branch",
	KindCall:              "call",
	KindReturn:            "return",
	KindThrow:             "throw",
	KindLoadLocal:         "load-local",
	KindLoadLocalAddress:  "load-local-address",
	KindStoreLocal:        "store-local",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// OperandType describes what an opcode's operand holds.
type OperandType uint8

const (
	OperandNone   OperandType = iota
	OperandTarget             // *Instruction
	OperandMethod             // *MethodRef
	OperandField              // *FieldRef
	OperandLocal              // *Local
	OperandInt32              // int32
	OperandInt64              // int64
	OperandString             // string
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name    string      // assembler mnemonic
	Kind    Kind        // control-flow / local-access classification
	Operand OperandType // operand shape
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop: {"nop", KindNop, OperandNone},

	// Locals
	OpLdloc0:  {"ldloc.0", KindLoadLocal, OperandNone},
	OpLdloc1:  {"ldloc.1", KindLoadLocal, OperandNone},
	OpLdloc2:  {"ldloc.2", KindLoadLocal, OperandNone},
	OpLdloc3:  {"ldloc.3", KindLoadLocal, OperandNone},
	OpStloc0:  {"stloc.0", KindStoreLocal, OperandNone},
	OpStloc1:  {"stloc.1", KindStoreLocal, OperandNone},
	OpStloc2:  {"stloc.2", KindStoreLocal, OperandNone},
	OpStloc3:  {"stloc.3", KindStoreLocal, OperandNone},
	OpLdlocS:  {"ldloc.s", KindLoadLocal, OperandLocal},
	OpLdlocaS: {"ldloca.s", KindLoadLocalAddress, OperandLocal},
	OpStlocS:  {"stloc.s", KindStoreLocal, OperandLocal},
	OpLdloc:   {"ldloc", KindLoadLocal, OperandLocal},
	OpLdloca:  {"ldloca", KindLoadLocalAddress, OperandLocal},
	OpStloc:   {"stloc", KindStoreLocal, OperandLocal},

	// Arguments, constants, stack
	OpLdarg:  {"ldarg", KindOther, OperandInt32},
	OpLdnull: {"ldnull", KindOther, OperandNone},
	OpLdcI4:  {"ldc.i4", KindOther, OperandInt32},
	OpLdcI8:  {"ldc.i8", KindOther, OperandInt64},
	OpLdstr:  {"ldstr", KindOther, OperandString},
	OpDup:    {"dup", KindOther, OperandNone},
	OpPop:    {"pop", KindOther, OperandNone},

	// Arithmetic
	OpAdd: {"add", KindOther, OperandNone},
	OpSub: {"sub", KindOther, OperandNone},
	OpMul: {"mul", KindOther, OperandNone},
	OpDiv: {"div", KindOther, OperandNone},
	OpRem: {"rem", KindOther, OperandNone},
	OpNeg: {"neg", KindOther, OperandNone},
	OpAnd: {"and", KindOther, OperandNone},
	OpOr:  {"or", KindOther, OperandNone},
	OpXor: {"xor", KindOther, OperandNone},
	OpNot: {"not", KindOther, OperandNone},
	OpCeq: {"ceq", KindOther, OperandNone},
	OpCgt: {"cgt", KindOther, OperandNone},
	OpClt: {"clt", KindOther, OperandNone},

	// Fields and objects
	OpLdfld:  {"ldfld", KindOther, OperandField},
	OpStfld:  {"stfld", KindOther, OperandField},
	OpLdsfld: {"ldsfld", KindOther, OperandField},
	OpStsfld: {"stsfld", KindOther, OperandField},
	OpNewobj: {"newobj", KindOther, OperandMethod},

	// Control flow
	OpBr:       {"br", KindBranch, OperandTarget},
	OpBrS:      {"br.s", KindBranch, OperandTarget},
	OpBrtrue:   {"brtrue", KindConditionalBranch, OperandTarget},
	OpBrtrueS:  {"brtrue.s", KindConditionalBranch, OperandTarget},
	OpBrfalse:  {"brfalse", KindConditionalBranch, OperandTarget},
	OpBrfalseS: {"brfalse.s", KindConditionalBranch, OperandTarget},
	OpBeq:      {"beq", KindConditionalBranch, OperandTarget},
	OpBeqS:     {"beq.s", KindConditionalBranch, OperandTarget},
	OpBneUn:    {"bne.un", KindConditionalBranch, OperandTarget},
	OpBneUnS:   {"bne.un.s", KindConditionalBranch, OperandTarget},
	OpBlt:      {"blt", KindConditionalBranch, OperandTarget},
	OpBltS:     {"blt.s", KindConditionalBranch, OperandTarget},
	OpBgt:      {"bgt", KindConditionalBranch, OperandTarget},
	OpBgtS:     {"bgt.s", KindConditionalBranch, OperandTarget},

	// Calls and exits
	OpCall:     {"call", KindCall, OperandMethod},
	OpCallvirt: {"callvirt", KindCall, OperandMethod},
	OpRet:      {"ret", KindReturn, OperandNone},
	OpThrow:    {"throw", KindThrow, OperandNone},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown_%02x", byte(op)), Kind: KindOther, Operand: OperandNone}
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// Name returns the assembler mnemonic for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// Kind returns the control-flow classification of an opcode.
func (op Opcode) Kind() Kind {
	return op.Info().Kind
}

// OperandType returns the operand shape of an opcode.
func (op Opcode) OperandType() OperandType {
	return op.Info().Operand
}

// IsBranch reports whether op is an unconditional or conditional branch.
func (op Opcode) IsBranch() bool {
	k := op.Kind()
	return k == KindBranch || k == KindConditionalBranch
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// OpcodeByName looks up an opcode by its mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	for op, info := range opcodeTable {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}

// BranchOperands returns how many stack values a branch consumes when it
// executes: 0 for br, 1 for brtrue/brfalse, 2 for the compare-and-branch
// forms. Non-branches return 0.
func (op Opcode) BranchOperands() int {
	switch op {
	case OpBrtrue, OpBrtrueS, OpBrfalse, OpBrfalseS:
		return 1
	case OpBeq, OpBeqS, OpBneUn, OpBneUnS, OpBlt, OpBltS, OpBgt, OpBgtS:
		return 2
	}
	return 0
}
