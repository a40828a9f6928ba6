package assembly

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// File is a decoded assembly file.
type File struct {
	Header   Header
	Assembly *il.Assembly
}

// ReadHeader validates and decodes the fixed header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrCorruptHeader
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return Header{}, errors.Wrapf(ErrInvalidMagic, "got %q", data[:4])
	}
	h := Header{
		Version: binary.LittleEndian.Uint32(data[4:]),
		Flags:   binary.LittleEndian.Uint32(data[8:]),
	}
	if h.Version != Version {
		return Header{}, errors.Wrapf(ErrVersionMismatch, "expected %d, got %d", Version, h.Version)
	}
	return h, nil
}

// Decode parses a complete assembly file held in memory.
func Decode(data []byte) (*File, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := cbor.Unmarshal(data[HeaderSize:], &doc); err != nil {
		return nil, errors.Wrap(err, "assembly: unmarshal document")
	}
	asm, err := fromDocument(&doc)
	if err != nil {
		return nil, err
	}
	return &File{Header: h, Assembly: asm}, nil
}

// Read decodes an assembly file from r.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "assembly: read")
	}
	return Decode(data)
}

// ReadFile decodes the assembly file at path.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "assembly: open")
	}
	defer f.Close()

	file, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "assembly: %s", path)
	}
	return file, nil
}

// fromDocument rebuilds the module tree. Method bodies are decoded against
// the document's shared tables.
func fromDocument(doc *document) (*il.Assembly, error) {
	kind := il.AssemblyKind(doc.Kind)
	if kind != il.KindLibrary && kind != il.KindExecutable {
		return nil, errors.Errorf("assembly: unknown kind %d", doc.Kind)
	}
	asm := il.NewAssembly(doc.Name, kind)
	asm.Version = doc.Version

	r := newRefs(doc)
	for _, dm := range doc.Modules {
		mod := asm.AddModule(dm.Name)
		for _, dt := range dm.Types {
			typ := mod.AddType(dt.Namespace, dt.Name)
			for _, def := range dt.Methods {
				m := il.NewMethod(def.Name, il.MethodAttrs(def.Attrs))
				if def.Return != "" {
					m.ReturnType = def.Return
				}
				for _, p := range def.Params {
					m.Params = append(m.Params, il.Param{Name: p.Name, Type: p.Type})
				}
				typ.AddMethod(m)
				if def.Body == nil {
					continue
				}
				b, err := decodeBody(def.Body, r)
				if err != nil {
					return nil, errors.Wrapf(err, "assembly: decode %s", m.FullName())
				}
				m.SetBody(b)
			}
		}
	}
	return asm, nil
}
