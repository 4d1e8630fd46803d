package host

import (
	"strings"
)

// TypeKind classifies a host type.
type TypeKind uint8

const (
	// KindPrimitive is a built-in scalar (bool, i32, u32, f32, f64, void).
	KindPrimitive TypeKind = iota

	// KindStruct is a value type with fields.
	KindStruct

	// KindClass is a reference type.
	KindClass

	// KindArray is a single-dimensional or multi-dimensional array of Elem.
	KindArray
)

// String returns the lower-case kind name used by host program files.
func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// ShaderKind is the kind a shader type declares through its metadata.
type ShaderKind uint8

const (
	// ShaderNone marks a type that is not a shader.
	ShaderNone ShaderKind = iota
	ShaderPixel
	ShaderVertex
	ShaderCompute

	// ShaderUnsupported is declared metadata no compiler stage understands.
	ShaderUnsupported ShaderKind = 0xff
)

// String returns the metadata spelling of the shader kind.
func (k ShaderKind) String() string {
	switch k {
	case ShaderNone:
		return "none"
	case ShaderPixel:
		return "pixel"
	case ShaderVertex:
		return "vertex"
	case ShaderCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// ParseShaderKind converts a metadata spelling into a ShaderKind.
// Unknown spellings are reported with ok == false so the resolver can raise
// an unsupported-kind error with the original text.
func ParseShaderKind(s string) (ShaderKind, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return ShaderNone, true
	case "pixel", "fragment", "canvas":
		return ShaderPixel, true
	case "vertex":
		return ShaderVertex, true
	case "compute":
		return ShaderCompute, true
	}
	return ShaderNone, false
}

// Role is the per-field role metadata of a shader field.
type Role uint8

const (
	// RolePlain fields of a shader type are uniforms.
	RolePlain Role = iota
	RoleVertexInput
	RoleVertexOutput
)

func (r Role) String() string {
	switch r {
	case RolePlain:
		return "uniform"
	case RoleVertexInput:
		return "vertex-input"
	case RoleVertexOutput:
		return "vertex-output"
	default:
		return "unknown"
	}
}

// TypeKey is the identity of a host type: its fully qualified name.
type TypeKey string

// FieldKey identifies a field by its declaring type and name. Shadowed
// fields of a base and derived type have different keys.
type FieldKey struct {
	Owner TypeKey
	Name  string
}

func (k FieldKey) String() string { return string(k.Owner) + "::" + k.Name }

// MethodKey identifies a method by declaring type, name and parameter
// signature. It is comparable and used as map and set identity everywhere
// methods are tracked.
type MethodKey struct {
	Owner TypeKey
	Name  string
	Sig   string
}

func (k MethodKey) String() string { return string(k.Owner) + "::" + k.Name + k.Sig }

// Type describes a host type. Descriptors are read-only once registered
// with a Model.
type Type struct {
	Name   string
	Kind   TypeKind
	Base   *Type
	Shader ShaderKind

	// Elem, Rank and Len describe arrays. Len is zero for unsized arrays.
	Elem *Type
	Rank int
	Len  int

	Fields  []*Field
	Methods []*Method
}

// Key returns the type identity.
func (t *Type) Key() TypeKey { return TypeKey(t.Name) }

// ShortName returns the name without its namespace.
func (t *Type) ShortName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

func (t *Type) String() string { return t.Name }

// IsValueType reports whether values of t are copied on assignment.
func (t *Type) IsValueType() bool {
	return t.Kind == KindPrimitive || t.Kind == KindStruct
}

// IsVoid reports whether t is the void type.
func (t *Type) IsVoid() bool { return t == nil || t.Name == "void" }

// Field looks a field up by name on t and then on its base chain.
// The most derived declaration wins.
func (t *Type) Field(name string) *Field {
	for c := t; c != nil; c = c.Base {
		for _, f := range c.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// AllFields returns the instance fields of t and its bases, base first,
// each in declaration order.
func (t *Type) AllFields() []*Field {
	var chain []*Type
	for c := t; c != nil; c = c.Base {
		chain = append(chain, c)
	}
	var out []*Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			if !f.Static {
				out = append(out, f)
			}
		}
	}
	return out
}

// MethodsNamed returns the methods declared on t (not its bases) named name.
func (t *Type) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// FindMethod searches t and its base chain for a method with the given name
// and exact parameter types.
func (t *Type) FindMethod(name string, params ...*Type) *Method {
	for c := t; c != nil; c = c.Base {
	next:
		for _, m := range c.Methods {
			if m.Name != name || len(m.Params) != len(params) {
				continue
			}
			for i, p := range m.Params {
				if p.Type != params[i] {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

// DerivesFrom reports whether t is base or inherits from it.
func (t *Type) DerivesFrom(base *Type) bool {
	for c := t; c != nil; c = c.Base {
		if c == base {
			return true
		}
	}
	return false
}

// Field describes a field of a host type.
type Field struct {
	Owner  *Type
	Name   string
	Type   *Type
	Static bool
	Role   Role
}

// Key returns the declaring-type-qualified identity of f.
func (f *Field) Key() FieldKey { return FieldKey{Owner: f.Owner.Key(), Name: f.Name} }

func (f *Field) String() string { return f.Key().String() }

// Param is a method parameter.
type Param struct {
	Name string
	Type *Type
}

// Local is an entry of a method's local-variable table.
type Local struct {
	Name string
	Type *Type
}

// Handler is an exception-handling region. Shader-eligible methods have none.
type Handler struct {
	TryStart, TryEnd         int
	HandlerStart, HandlerEnd int
}

// CtorName is the method name used for constructors.
const CtorName = ".ctor"

// Method describes a host method and its compiled body.
type Method struct {
	Owner    *Type
	Name     string
	Params   []Param
	Return   *Type
	Static   bool
	Locals   []Local
	Code     []byte
	Handlers []Handler

	// Intrinsic is the library-declared intrinsic name, empty for ordinary
	// methods.
	Intrinsic string
}

// IsCtor reports whether m is a constructor.
func (m *Method) IsCtor() bool { return m.Name == CtorName }

// Signature renders the parameter types as "(t1,t2)".
func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Type.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Key returns the interned identity of m.
func (m *Method) Key() MethodKey {
	return MethodKey{Owner: m.Owner.Key(), Name: m.Name, Sig: m.Signature()}
}

func (m *Method) String() string { return m.Key().String() }

// HasThis reports whether argument 0 is the receiver.
func (m *Method) HasThis() bool { return !m.Static }

// ArgCount returns the number of argument slots, receiver included.
func (m *Method) ArgCount() int {
	if m.Static {
		return len(m.Params)
	}
	return len(m.Params) + 1
}

// ArgType returns the type of argument slot i, receiver included.
func (m *Method) ArgType(i int) *Type {
	if !m.Static {
		if i == 0 {
			return m.Owner
		}
		i--
	}
	return m.Params[i].Type
}

// Token is a 4-byte metadata reference embedded in bytecode. The high byte
// selects the table.
type Token uint32

const (
	TokenType   Token = 0x01 << 24
	TokenField  Token = 0x02 << 24
	TokenMethod Token = 0x03 << 24

	tokenIndexMask Token = 1<<24 - 1
)

// Table returns the table bits of t.
func (t Token) Table() Token { return t &^ tokenIndexMask }

// Index returns the row index of t within its table.
func (t Token) Index() int { return int(t & tokenIndexMask) }

// Reflector is the read-only view of the host object model the compiler
// consumes. Implementations must be safe for concurrent readers.
type Reflector interface {
	LookupType(name string) (*Type, bool)
	ResolveType(tok Token) (*Type, error)
	ResolveField(tok Token) (*Field, error)
	ResolveMethod(tok Token) (*Method, error)
}
