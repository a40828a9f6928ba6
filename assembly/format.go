// Package assembly reads and writes assembly files. A file is a fixed
// binary header followed by a canonical CBOR document holding the module
// tree, the member reference tables and the encoded method bodies.
package assembly

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// File format constants
// ---------------------------------------------------------------------------

// Magic identifies an assembly file.
var Magic = [4]byte{'I', 'L', 'A', 'S'}

// Version is the current file format version.
const Version uint32 = 1

// HeaderSize is magic(4) + version(4) + flags(4).
const HeaderSize = 12

// Header flags
const (
	FlagNone      uint32 = 0
	FlagOptimized uint32 = 1 << 0 // bodies were rewritten by the optimizer
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number: expected ILAS")
	ErrVersionMismatch = errors.New("assembly format version mismatch")
	ErrCorruptHeader   = errors.New("corrupt assembly header")
	ErrUnexpectedEOF   = errors.New("unexpected end of code")
	ErrInvalidOpcode   = errors.New("invalid opcode")
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrInvalidIndex    = errors.New("invalid table index")
	ErrDanglingBranch  = errors.New("branch target outside its body")
)

// Header is the decoded fixed header of a file.
type Header struct {
	Version uint32
	Flags   uint32
}

// Optimized reports whether the file was written after optimization.
func (h Header) Optimized() bool {
	return h.Flags&FlagOptimized != 0
}

// ---------------------------------------------------------------------------
// CBOR document
// ---------------------------------------------------------------------------

type document struct {
	Name    string      `cbor:"1,keyasint"`
	Version string      `cbor:"2,keyasint,omitempty"`
	Kind    uint8       `cbor:"3,keyasint"`
	Strings []string    `cbor:"4,keyasint,omitempty"`
	Methods []methodRef `cbor:"5,keyasint,omitempty"`
	Fields  []fieldRef  `cbor:"6,keyasint,omitempty"`
	Modules []module    `cbor:"7,keyasint"`
}

type methodRef struct {
	Type   string   `cbor:"1,keyasint"`
	Name   string   `cbor:"2,keyasint"`
	Params []string `cbor:"3,keyasint,omitempty"`
	Return string   `cbor:"4,keyasint,omitempty"`
}

type fieldRef struct {
	Type string `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint"`
	Kind string `cbor:"3,keyasint,omitempty"`
}

type module struct {
	Name  string    `cbor:"1,keyasint"`
	Types []typeDef `cbor:"2,keyasint,omitempty"`
}

type typeDef struct {
	Namespace string      `cbor:"1,keyasint,omitempty"`
	Name      string      `cbor:"2,keyasint"`
	Methods   []methodDef `cbor:"3,keyasint,omitempty"`
}

type methodDef struct {
	Name   string  `cbor:"1,keyasint"`
	Params []param `cbor:"2,keyasint,omitempty"`
	Return string  `cbor:"3,keyasint,omitempty"`
	Attrs  uint32  `cbor:"4,keyasint"`
	Body   *body   `cbor:"5,keyasint,omitempty"`
}

type param struct {
	Name string `cbor:"1,keyasint,omitempty"`
	Type string `cbor:"2,keyasint"`
}

type body struct {
	MaxStack   int     `cbor:"1,keyasint"`
	InitLocals bool    `cbor:"2,keyasint"`
	Locals     []local `cbor:"3,keyasint,omitempty"`
	Code       []byte  `cbor:"4,keyasint"`
}

type local struct {
	Type string `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint,omitempty"`
}

// cborEncMode uses canonical encoding so the same assembly always produces
// the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("assembly: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}
