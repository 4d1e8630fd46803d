package host

import (
	"sort"
	"strconv"

	"github.com/nikandfor/errors"
)

// Model is an in-memory Reflector. Types are registered while building the
// model; once built it is only read and may be shared between compilations.
type Model struct {
	types map[string]*Type
	order []*Type

	typeRows   []*Type
	fieldRows  []*Field
	methodRows []*Method

	tokens map[any]Token
}

// NewModel creates a model preloaded with the shader and host math
// libraries.
func NewModel() *Model {
	m := &Model{
		types:  make(map[string]*Type),
		tokens: make(map[any]Token),
	}
	m.loadLibrary()
	return m
}

// AddType registers t, and claims ownership of its fields and methods.
func (m *Model) AddType(t *Type) error {
	if t.Name == "" {
		return errors.New("type without a name")
	}
	if _, ok := m.types[t.Name]; ok {
		return errors.New("duplicate type %v", t.Name)
	}
	for _, f := range t.Fields {
		f.Owner = t
	}
	for _, mt := range t.Methods {
		mt.Owner = t
	}
	m.types[t.Name] = t
	m.order = append(m.order, t)
	return nil
}

// MustType returns a registered type and panics if it is missing. It is
// meant for library construction and tests.
func (m *Model) MustType(name string) *Type {
	t, ok := m.LookupType(name)
	if !ok {
		panic("host: unknown type " + name)
	}
	return t
}

// Types returns the registered types in registration order.
func (m *Model) Types() []*Type { return m.order }

// ShaderTypes returns the registered types that declare a shader kind,
// sorted by name.
func (m *Model) ShaderTypes() []*Type {
	var out []*Type
	for _, t := range m.order {
		if t.Shader != ShaderNone {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ArrayOf returns the interned array type of elem with the given length.
// A zero length means unsized.
func (m *Model) ArrayOf(elem *Type, length int) *Type {
	name := elem.Name + "[]"
	if length > 0 {
		name = elem.Name + "[" + strconv.Itoa(length) + "]"
	}
	if t, ok := m.types[name]; ok {
		return t
	}
	t := &Type{Name: name, Kind: KindArray, Elem: elem, Rank: 1, Len: length}
	m.types[name] = t
	m.order = append(m.order, t)
	return t
}

// LookupType implements Reflector.
func (m *Model) LookupType(name string) (*Type, bool) {
	t, ok := m.types[name]
	return t, ok
}

// TypeToken returns the metadata token of t, allocating one if needed.
func (m *Model) TypeToken(t *Type) Token {
	if tok, ok := m.tokens[t]; ok {
		return tok
	}
	tok := TokenType | Token(len(m.typeRows))
	m.typeRows = append(m.typeRows, t)
	m.tokens[t] = tok
	return tok
}

// FieldToken returns the metadata token of f, allocating one if needed.
func (m *Model) FieldToken(f *Field) Token {
	if tok, ok := m.tokens[f]; ok {
		return tok
	}
	tok := TokenField | Token(len(m.fieldRows))
	m.fieldRows = append(m.fieldRows, f)
	m.tokens[f] = tok
	return tok
}

// MethodToken returns the metadata token of mt, allocating one if needed.
func (m *Model) MethodToken(mt *Method) Token {
	if tok, ok := m.tokens[mt]; ok {
		return tok
	}
	tok := TokenMethod | Token(len(m.methodRows))
	m.methodRows = append(m.methodRows, mt)
	m.tokens[mt] = tok
	return tok
}

// ResolveType implements Reflector.
func (m *Model) ResolveType(tok Token) (*Type, error) {
	if tok.Table() != TokenType || tok.Index() >= len(m.typeRows) {
		return nil, errors.New("bad type token %#08x", uint32(tok))
	}
	return m.typeRows[tok.Index()], nil
}

// ResolveField implements Reflector.
func (m *Model) ResolveField(tok Token) (*Field, error) {
	if tok.Table() != TokenField || tok.Index() >= len(m.fieldRows) {
		return nil, errors.New("bad field token %#08x", uint32(tok))
	}
	return m.fieldRows[tok.Index()], nil
}

// ResolveMethod implements Reflector.
func (m *Model) ResolveMethod(tok Token) (*Method, error) {
	if tok.Table() != TokenMethod || tok.Index() >= len(m.methodRows) {
		return nil, errors.New("bad method token %#08x", uint32(tok))
	}
	return m.methodRows[tok.Index()], nil
}
