package il

// ---------------------------------------------------------------------------
// Local access classification
// ---------------------------------------------------------------------------

// IsLoadLocal reports whether in pushes a local's value, in any encoding.
func IsLoadLocal(in *Instruction) bool {
	return in != nil && in.Kind() == KindLoadLocal
}

// IsLoadLocalAddress reports whether in pushes a local's address.
func IsLoadLocalAddress(in *Instruction) bool {
	return in != nil && in.Kind() == KindLoadLocalAddress
}

// IsStoreLocal reports whether in pops into a local, in any encoding.
func IsStoreLocal(in *Instruction) bool {
	return in != nil && in.Kind() == KindStoreLocal
}

// IsLocalAccess reports whether in reads, writes or takes the address of a local.
func IsLocalAccess(in *Instruction) bool {
	return IsLoadLocal(in) || IsLoadLocalAddress(in) || IsStoreLocal(in)
}

// LocalIndex returns the slot addressed by a local access instruction.
// The second result is false if in is not a local access or its operand
// is missing.
func LocalIndex(in *Instruction) (int, bool) {
	if !IsLocalAccess(in) {
		return 0, false
	}
	switch in.Op {
	case OpLdloc0, OpStloc0:
		return 0, true
	case OpLdloc1, OpStloc1:
		return 1, true
	case OpLdloc2, OpStloc2:
		return 2, true
	case OpLdloc3, OpStloc3:
		return 3, true
	}
	l := in.Local()
	if l == nil {
		return 0, false
	}
	return l.Index, true
}

var (
	ldlocEmbedded = [4]Opcode{OpLdloc0, OpLdloc1, OpLdloc2, OpLdloc3}
	stlocEmbedded = [4]Opcode{OpStloc0, OpStloc1, OpStloc2, OpStloc3}
)

// LoadLocal creates a load of l using the shortest encoding for its index.
func LoadLocal(l *Local) *Instruction {
	switch {
	case l.Index < len(ldlocEmbedded):
		return New(ldlocEmbedded[l.Index], nil)
	case l.Index <= 0xFF:
		return New(OpLdlocS, l)
	default:
		return New(OpLdloc, l)
	}
}

// LoadLocalAddress creates an address load of l.
func LoadLocalAddress(l *Local) *Instruction {
	if l.Index <= 0xFF {
		return New(OpLdlocaS, l)
	}
	return New(OpLdloca, l)
}

// StoreLocal creates a store into l using the shortest encoding for its index.
func StoreLocal(l *Local) *Instruction {
	switch {
	case l.Index < len(stlocEmbedded):
		return New(stlocEmbedded[l.Index], nil)
	case l.Index <= 0xFF:
		return New(OpStlocS, l)
	default:
		return New(OpStloc, l)
	}
}

// RelocateLocal returns a copy of the local access in addressing l instead
// of its original slot. It returns nil if in is not a local access.
func RelocateLocal(in *Instruction, l *Local) *Instruction {
	switch in.Kind() {
	case KindLoadLocal:
		return LoadLocal(l)
	case KindLoadLocalAddress:
		return LoadLocalAddress(l)
	case KindStoreLocal:
		return StoreLocal(l)
	}
	return nil
}
