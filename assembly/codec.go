package assembly

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// Code layout: each instruction is its opcode byte followed by a
// fixed-width little-endian operand.
//
//	target          uint32 instruction index within the same body
//	method/field    uint32 reference table index
//	string          uint32 string table index
//	local           uint16 slot index
//	int32           4 bytes
//	int64           8 bytes
//
// Short and long branch forms share the same operand width.

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// tables collects the string and member reference tables while bodies are
// encoded, assigning each distinct entry one index.
type tables struct {
	strings   []string
	stringIdx map[string]uint32

	methods   []methodRef
	methodIdx map[string]uint32

	fields   []fieldRef
	fieldIdx map[string]uint32
}

func newTables() *tables {
	return &tables{
		stringIdx: make(map[string]uint32),
		methodIdx: make(map[string]uint32),
		fieldIdx:  make(map[string]uint32),
	}
}

func (t *tables) addString(s string) uint32 {
	if idx, ok := t.stringIdx[s]; ok {
		return idx
	}
	idx := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.stringIdx[s] = idx
	return idx
}

func (t *tables) addMethod(r *il.MethodRef) uint32 {
	key := r.String()
	if idx, ok := t.methodIdx[key]; ok {
		return idx
	}
	idx := uint32(len(t.methods))
	t.methods = append(t.methods, methodRef{Type: r.Type, Name: r.Name, Params: r.Params, Return: r.ReturnType})
	t.methodIdx[key] = idx
	return idx
}

func (t *tables) addField(r *il.FieldRef) uint32 {
	key := r.String()
	if idx, ok := t.fieldIdx[key]; ok {
		return idx
	}
	idx := uint32(len(t.fields))
	t.fields = append(t.fields, fieldRef{Type: r.Type, Name: r.Name, Kind: r.Kind})
	t.fieldIdx[key] = idx
	return idx
}

// encodeBody serializes b. Every branch must target an instruction of b.
func encodeBody(b *il.Body, t *tables) (*body, error) {
	out := &body{MaxStack: b.MaxStack, InitLocals: b.InitLocals}
	for _, l := range b.Locals {
		out.Locals = append(out.Locals, local{Type: l.Type, Name: l.Name})
	}

	offsets := make(map[*il.Instruction]uint32, b.Len())
	for i, in := range b.Instructions() {
		offsets[in] = uint32(i)
	}

	code := make([]byte, 0, b.Len()*3)
	pc := 0
	for in := b.First(); in != nil; in, pc = in.Next(), pc+1 {
		if !in.Op.Valid() {
			return nil, errors.Wrapf(ErrInvalidOpcode, "0x%02x at IL_%04d", byte(in.Op), pc)
		}
		code = append(code, byte(in.Op))

		switch in.Op.OperandType() {
		case il.OperandNone:

		case il.OperandTarget:
			idx, ok := offsets[in.Target()]
			if !ok {
				return nil, errors.Wrapf(ErrDanglingBranch, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint32(code, idx)

		case il.OperandMethod:
			ref := in.Method()
			if ref == nil {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint32(code, t.addMethod(ref))

		case il.OperandField:
			ref, ok := in.Operand.(*il.FieldRef)
			if !ok || ref == nil {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint32(code, t.addField(ref))

		case il.OperandString:
			s, ok := in.Operand.(string)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint32(code, t.addString(s))

		case il.OperandLocal:
			l := in.Local()
			if l == nil || l.Index < 0 || l.Index > math.MaxUint16 || b.LocalAt(l.Index) == nil {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint16(code, uint16(l.Index))

		case il.OperandInt32:
			v, ok := in.Operand.(int32)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint32(code, uint32(v))

		case il.OperandInt64:
			v, ok := in.Operand.(int64)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidOperand, "%s at IL_%04d", in.Op, pc)
			}
			code = binary.LittleEndian.AppendUint64(code, uint64(v))
		}
	}
	out.Code = code
	return out, nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// refs holds the document tables resolved to il values. Decoded operands
// share these values.
type refs struct {
	strings []string
	methods []*il.MethodRef
	fields  []*il.FieldRef
}

func newRefs(doc *document) *refs {
	r := &refs{strings: doc.Strings}
	for _, m := range doc.Methods {
		r.methods = append(r.methods, &il.MethodRef{Type: m.Type, Name: m.Name, Params: m.Params, ReturnType: m.Return})
	}
	for _, f := range doc.Fields {
		r.fields = append(r.fields, &il.FieldRef{Type: f.Type, Name: f.Name, Kind: f.Kind})
	}
	return r
}

// codeReader walks an encoded instruction stream.
type codeReader struct {
	code []byte
	pos  int
}

func (cr *codeReader) done() bool {
	return cr.pos >= len(cr.code)
}

func (cr *codeReader) readByte() (byte, error) {
	if cr.pos+1 > len(cr.code) {
		return 0, ErrUnexpectedEOF
	}
	v := cr.code[cr.pos]
	cr.pos++
	return v, nil
}

func (cr *codeReader) readUint16() (uint16, error) {
	if cr.pos+2 > len(cr.code) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(cr.code[cr.pos:])
	cr.pos += 2
	return v, nil
}

func (cr *codeReader) readUint32() (uint32, error) {
	if cr.pos+4 > len(cr.code) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(cr.code[cr.pos:])
	cr.pos += 4
	return v, nil
}

func (cr *codeReader) readUint64() (uint64, error) {
	if cr.pos+8 > len(cr.code) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(cr.code[cr.pos:])
	cr.pos += 8
	return v, nil
}

// decodeBody rebuilds a body from its encoded form. Branch operands are
// resolved after the whole stream is read so forward branches work.
func decodeBody(d *body, r *refs) (*il.Body, error) {
	b := il.NewBody()
	b.MaxStack = d.MaxStack
	b.InitLocals = d.InitLocals
	for _, l := range d.Locals {
		b.AddLocal(&il.Local{Type: l.Type, Name: l.Name})
	}

	type fixup struct {
		branch *il.Instruction
		target uint32
	}
	var fixups []fixup

	cr := &codeReader{code: d.Code}
	for pc := 0; !cr.done(); pc++ {
		at := cr.pos
		opByte, err := cr.readByte()
		if err != nil {
			return nil, err
		}
		op := il.Opcode(opByte)
		if !op.Valid() {
			return nil, errors.Wrapf(ErrInvalidOpcode, "0x%02x at byte %d", opByte, at)
		}

		var operand any
		switch op.OperandType() {
		case il.OperandNone:

		case il.OperandTarget:
			v, err := cr.readUint32()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			in := il.New(op, nil)
			b.Append(in)
			fixups = append(fixups, fixup{branch: in, target: v})
			continue

		case il.OperandMethod:
			v, err := cr.readUint32()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			if int(v) >= len(r.methods) {
				return nil, errors.Wrapf(ErrInvalidIndex, "method %d at IL_%04d", v, pc)
			}
			operand = r.methods[v]

		case il.OperandField:
			v, err := cr.readUint32()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			if int(v) >= len(r.fields) {
				return nil, errors.Wrapf(ErrInvalidIndex, "field %d at IL_%04d", v, pc)
			}
			operand = r.fields[v]

		case il.OperandString:
			v, err := cr.readUint32()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			if int(v) >= len(r.strings) {
				return nil, errors.Wrapf(ErrInvalidIndex, "string %d at IL_%04d", v, pc)
			}
			operand = r.strings[v]

		case il.OperandLocal:
			v, err := cr.readUint16()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			l := b.LocalAt(int(v))
			if l == nil {
				return nil, errors.Wrapf(ErrInvalidIndex, "local %d at IL_%04d", v, pc)
			}
			operand = l

		case il.OperandInt32:
			v, err := cr.readUint32()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			operand = int32(v)

		case il.OperandInt64:
			v, err := cr.readUint64()
			if err != nil {
				return nil, errors.Wrapf(err, "%s at IL_%04d", op, pc)
			}
			operand = int64(v)
		}
		b.Append(il.New(op, operand))
	}

	if len(fixups) > 0 {
		insts := b.Instructions()
		for _, f := range fixups {
			if int(f.target) >= len(insts) {
				return nil, errors.Wrapf(ErrDanglingBranch, "%s to IL_%04d", f.branch.Op, f.target)
			}
			f.branch.SetTarget(insts[f.target])
		}
	}
	return b, nil
}
