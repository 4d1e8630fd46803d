package ir

import (
	"github.com/gogpu/xshader/host"
)

// Program is the result of compiling the closure of one entry method.
// It is owned by the caller and not modified after compilation.
type Program struct {
	// Shader is the host type the program was compiled from.
	Shader host.TypeKey

	// Kind is the declared shader kind.
	Kind host.ShaderKind

	// Methods holds every compiled method, callees before callers. Entry
	// is last.
	Methods []*Method

	// Structs holds every struct used by the program in first-use order.
	Structs []*Struct

	// Variables holds the shader-level variables in field declaration
	// order, base type fields first.
	Variables []*Variable

	// Entry is the method compiled from the shader's entry point.
	Entry *Method
}

// Method returns the compiled method with the given key.
func (p *Program) Method(key host.MethodKey) *Method {
	for _, m := range p.Methods {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// VariablesOf returns the shader-level variables of one kind in
// declaration order.
func (p *Program) VariablesOf(kind VarKind) []*Variable {
	var out []*Variable
	for _, v := range p.Variables {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Method is one compiled host method.
type Method struct {
	Key host.MethodKey

	// Name is the host method name; Owner and OwnerName identify the
	// declaring type. Backends derive output names from these.
	Name      string
	Owner     host.TypeKey
	OwnerName string

	Return Type
	Params []*Variable
	Locals []*Variable
	Body   *Block

	IsEntry       bool
	IsConstructor bool

	// OnShader is set for methods declared on the shader type itself.
	OnShader bool

	// Calls lists the non-intrinsic callees in first-call order.
	Calls []host.MethodKey
}

// VarKind classifies a Variable.
type VarKind uint8

const (
	VarLocal VarKind = iota
	VarParameter
	VarUniform
	VarVertexInput
	VarVertexOutput
)

func (k VarKind) String() string {
	switch k {
	case VarLocal:
		return "local"
	case VarParameter:
		return "parameter"
	case VarUniform:
		return "uniform"
	case VarVertexInput:
		return "vertex-input"
	case VarVertexOutput:
		return "vertex-output"
	default:
		return "unknown"
	}
}

// IsGlobal reports whether variables of kind k live at program scope.
func (k VarKind) IsGlobal() bool { return k >= VarUniform }

// Variable is a named storage location. Identity is by pointer.
type Variable struct {
	Name string
	Type Type
	Kind VarKind

	// Field is the host field backing a shader-level variable, nil
	// otherwise.
	Field *host.Field

	// Synthetic is set for temporaries introduced by the tree builder.
	Synthetic bool

	// Pinned variables are passed by reference and must keep their
	// storage.
	Pinned bool
}

func (v *Variable) String() string { return v.Name }

// Escapes reports whether a call can write v: shader-level variables,
// pinned variables and references.
func (v *Variable) Escapes() bool {
	if v.Kind.IsGlobal() || v.Pinned {
		return true
	}
	_, ok := v.Type.(ReferenceType)
	return ok
}

// Struct is a host value type compiled to a shader struct.
type Struct struct {
	Key    host.TypeKey
	Name   string
	Fields []StructField
}

// StructField is one member of a Struct.
type StructField struct {
	Name string
	Type Type
}

// Field returns the member named name.
func (s *Struct) Field(name string) (StructField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}
