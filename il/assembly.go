package il

// ---------------------------------------------------------------------------
// Assembly → Module → Type → Method
// ---------------------------------------------------------------------------

// AssemblyKind distinguishes libraries from executables.
type AssemblyKind uint8

const (
	KindLibrary AssemblyKind = iota
	KindExecutable
)

// Extension returns the conventional file extension for the kind.
func (k AssemblyKind) Extension() string {
	if k == KindExecutable {
		return "exe"
	}
	return "dll"
}

// Assembly is the unit of loading and serialization.
type Assembly struct {
	Name    string
	Version string
	Kind    AssemblyKind
	Modules []*Module

	index map[string]*Method
}

// NewAssembly creates an empty assembly.
func NewAssembly(name string, kind AssemblyKind) *Assembly {
	return &Assembly{Name: name, Kind: kind}
}

// AddModule creates a module in the assembly.
func (a *Assembly) AddModule(name string) *Module {
	mod := &Module{Name: name, assembly: a}
	a.Modules = append(a.Modules, mod)
	return mod
}

// Methods returns every method of every type, in declaration order.
func (a *Assembly) Methods() []*Method {
	var out []*Method
	for _, mod := range a.Modules {
		for _, t := range mod.Types {
			out = append(out, t.Methods...)
		}
	}
	return out
}

// ForEachMethod calls fn for every method in declaration order, stopping at
// the first error.
func (a *Assembly) ForEachMethod(fn func(*Method) error) error {
	for _, mod := range a.Modules {
		for _, t := range mod.Types {
			for _, m := range t.Methods {
				if err := fn(m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Resolve returns the method definition a reference names, or nil if the
// reference points outside the assembly.
func (a *Assembly) Resolve(ref *MethodRef) *Method {
	if ref == nil {
		return nil
	}
	if a.index == nil {
		a.Reindex()
	}
	return a.index[ref.Key()]
}

// Reindex rebuilds the resolution index. Call it after adding methods to an
// assembly that has already resolved references.
func (a *Assembly) Reindex() {
	a.index = make(map[string]*Method)
	for _, m := range a.Methods() {
		a.index[m.Ref().Key()] = m
	}
}

// InstructionCount returns the total instruction count over all bodies.
func (a *Assembly) InstructionCount() int {
	n := 0
	for _, m := range a.Methods() {
		if m.HasBody() {
			n += m.Body().Len()
		}
	}
	return n
}

// Module groups types.
type Module struct {
	Name  string
	Types []*Type

	assembly *Assembly
}

// Assembly returns the owning assembly.
func (m *Module) Assembly() *Assembly {
	return m.assembly
}

// AddType creates a type in the module.
func (m *Module) AddType(namespace, name string) *Type {
	t := &Type{Namespace: namespace, Name: name, module: m}
	m.Types = append(m.Types, t)
	return t
}

// Type groups methods.
type Type struct {
	Namespace string
	Name      string
	Methods   []*Method

	module *Module
}

// Module returns the owning module.
func (t *Type) Module() *Module {
	return t.module
}

// FullName returns "Namespace.Name", or Name for the global namespace.
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// AddMethod attaches m to the type.
func (t *Type) AddMethod(m *Method) *Method {
	m.declaringType = t
	t.Methods = append(t.Methods, m)
	if t.module != nil && t.module.assembly != nil {
		t.module.assembly.index = nil
	}
	return m
}
