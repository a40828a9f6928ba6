package il

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Method: a method definition with an optional body
// ---------------------------------------------------------------------------

// MethodAttrs are the definition flags of a method.
type MethodAttrs uint32

const (
	AttrStatic MethodAttrs = 1 << iota
	AttrVirtual
	AttrAbstract
	AttrExtern
)

// VoidType is the return type name of methods that return nothing.
const VoidType = "void"

// Param is one declared parameter of a method.
type Param struct {
	Name string
	Type string
}

// Method is a method definition. Abstract and extern methods have no body.
type Method struct {
	Name       string
	Params     []Param
	ReturnType string
	Attrs      MethodAttrs

	body          *Body
	declaringType *Type
}

// NewMethod creates a detached method with no body.
func NewMethod(name string, attrs MethodAttrs) *Method {
	return &Method{Name: name, ReturnType: VoidType, Attrs: attrs}
}

// Body returns the method body, or nil.
func (m *Method) Body() *Body {
	return m.body
}

// SetBody attaches b to the method, replacing any previous body.
func (m *Method) SetBody(b *Body) {
	if m.body != nil {
		m.body.method = nil
	}
	m.body = b
	if b != nil {
		b.method = m
	}
}

// HasBody reports whether the method carries a body.
func (m *Method) HasBody() bool {
	return m.body != nil
}

// DeclaringType returns the type the method is defined on.
func (m *Method) DeclaringType() *Type {
	return m.declaringType
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool { return m.Attrs&AttrStatic != 0 }

// IsVirtual reports whether calls to the method dispatch dynamically.
func (m *Method) IsVirtual() bool { return m.Attrs&AttrVirtual != 0 }

// IsAbstract reports whether the method is declared without implementation.
func (m *Method) IsAbstract() bool { return m.Attrs&AttrAbstract != 0 }

// IsExtern reports whether the method is implemented outside the assembly.
func (m *Method) IsExtern() bool { return m.Attrs&AttrExtern != 0 }

// ReturnsVoid reports whether the method returns nothing.
func (m *Method) ReturnsVoid() bool {
	return m.ReturnType == "" || m.ReturnType == VoidType
}

// FullName returns "Namespace.Type::Name".
func (m *Method) FullName() string {
	if m.declaringType == nil {
		return m.Name
	}
	return m.declaringType.FullName() + "::" + m.Name
}

// Ref returns a reference that resolves back to this method.
func (m *Method) Ref() *MethodRef {
	ref := &MethodRef{Name: m.Name, ReturnType: m.ReturnType}
	if m.declaringType != nil {
		ref.Type = m.declaringType.FullName()
	}
	for _, p := range m.Params {
		ref.Params = append(ref.Params, p.Type)
	}
	return ref
}

// String implements the Stringer interface.
func (m *Method) String() string {
	return m.Ref().String()
}

// ---------------------------------------------------------------------------
// Member references (call and field operands)
// ---------------------------------------------------------------------------

// MethodRef names a method by declaring type, name and signature. It may
// refer to a method outside the loaded assembly, in which case it does not
// resolve.
type MethodRef struct {
	Type       string
	Name       string
	Params     []string
	ReturnType string
}

// Key returns the signature key used to resolve the reference.
func (r *MethodRef) Key() string {
	return fmt.Sprintf("%s::%s(%s)", r.Type, r.Name, strings.Join(r.Params, ","))
}

// String implements the Stringer interface.
func (r *MethodRef) String() string {
	ret := r.ReturnType
	if ret == "" {
		ret = VoidType
	}
	return ret + " " + r.Key()
}

// FieldRef names a field by declaring type and name.
type FieldRef struct {
	Type string
	Name string
	Kind string // field type name
}

// String implements the Stringer interface.
func (r *FieldRef) String() string {
	return fmt.Sprintf("%s %s::%s", r.Kind, r.Type, r.Name)
}
