package assembly

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// DefaultSuffix is inserted between the assembly name and its extension in
// output file names.
const DefaultSuffix = "inlined"

// Encode serializes asm with the given header flags.
func Encode(asm *il.Assembly, flags uint32) ([]byte, error) {
	doc, err := toDocument(asm)
	if err != nil {
		return nil, err
	}
	payload, err := cborEncMode.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "assembly: marshal document")
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(payload)))
	buf.Write(Magic[:])
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], Version)
	buf.Write(word[:])
	binary.LittleEndian.PutUint32(word[:], flags)
	buf.Write(word[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Write serializes asm to w.
func Write(w io.Writer, asm *il.Assembly, flags uint32) error {
	data, err := Encode(asm, flags)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "assembly: write")
	}
	return nil
}

// WriteFile serializes asm to path. Nothing is written if encoding fails.
func WriteFile(path string, asm *il.Assembly, flags uint32) error {
	data, err := Encode(asm, flags)
	if err != nil {
		return errors.Wrapf(err, "assembly: %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "assembly: write file")
	}
	return nil
}

// OutputPath names the file an optimized assembly is written to:
// <dir>/<assemblyName>.<suffix>.<dll|exe>. An empty dir means the input's
// directory and an empty suffix means DefaultSuffix.
func OutputPath(input string, asm *il.Assembly, dir, suffix string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return filepath.Join(dir, asm.Name+"."+suffix+"."+asm.Kind.Extension())
}

func toDocument(asm *il.Assembly) (*document, error) {
	t := newTables()
	doc := &document{Name: asm.Name, Version: asm.Version, Kind: uint8(asm.Kind)}

	for _, mod := range asm.Modules {
		dm := module{Name: mod.Name}
		for _, typ := range mod.Types {
			dt := typeDef{Namespace: typ.Namespace, Name: typ.Name}
			for _, m := range typ.Methods {
				def := methodDef{Name: m.Name, Attrs: uint32(m.Attrs)}
				if !m.ReturnsVoid() {
					def.Return = m.ReturnType
				}
				for _, p := range m.Params {
					def.Params = append(def.Params, param{Name: p.Name, Type: p.Type})
				}
				if m.HasBody() {
					b, err := encodeBody(m.Body(), t)
					if err != nil {
						return nil, errors.Wrapf(err, "assembly: encode %s", m.FullName())
					}
					def.Body = b
				}
				dt.Methods = append(dt.Methods, def)
			}
			dm.Types = append(dm.Types, dt)
		}
		doc.Modules = append(doc.Modules, dm)
	}

	doc.Strings = t.strings
	doc.Methods = t.methods
	doc.Fields = t.fields
	return doc, nil
}
