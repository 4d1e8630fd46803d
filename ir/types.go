package ir

import (
	"strconv"
)

// Type is a shader type. The set of implementations is closed: Primitive,
// StructType, ArrayType and ReferenceType. All of them are comparable with ==.
type Type interface {
	shaderType()
	String() string
}

// Primitive enumerates the built-in shader types.
type Primitive uint8

const (
	Void Primitive = iota
	Bool
	Int
	UInt
	Float
	Float2
	Float3
	Float4
	Int2
	Int3
	Int4
	UInt2
	UInt3
	UInt4
	Matrix3x2
	Matrix4x4
	Texture
	DepthMask
)

func (Primitive) shaderType() {}

var primitiveNames = [...]string{
	Void: "Void", Bool: "Bool", Int: "Int", UInt: "UInt", Float: "Float",
	Float2: "Float2", Float3: "Float3", Float4: "Float4",
	Int2: "Int2", Int3: "Int3", Int4: "Int4",
	UInt2: "UInt2", UInt3: "UInt3", UInt4: "UInt4",
	Matrix3x2: "Matrix3x2", Matrix4x4: "Matrix4x4",
	Texture: "Texture", DepthMask: "DepthMask",
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "Primitive(" + strconv.Itoa(int(p)) + ")"
}

// Components returns the number of scalar components of a scalar or vector
// type, and 0 for everything else.
func (p Primitive) Components() int {
	switch p {
	case Bool, Int, UInt, Float:
		return 1
	case Float2, Int2, UInt2:
		return 2
	case Float3, Int3, UInt3:
		return 3
	case Float4, Int4, UInt4:
		return 4
	}
	return 0
}

// Scalar returns the component type of a scalar or vector type. Matrices
// have Float components. Other types return Void.
func (p Primitive) Scalar() Primitive {
	switch p {
	case Bool, Int, UInt, Float:
		return p
	case Float2, Float3, Float4, Matrix3x2, Matrix4x4:
		return Float
	case Int2, Int3, Int4:
		return Int
	case UInt2, UInt3, UInt4:
		return UInt
	}
	return Void
}

// IsVector reports whether p has two to four components.
func (p Primitive) IsVector() bool { return p.Components() > 1 }

// IsScalar reports whether p is a single bool or number.
func (p Primitive) IsScalar() bool { return p.Components() == 1 }

// IsMatrix reports whether p is a matrix type.
func (p Primitive) IsMatrix() bool { return p == Matrix3x2 || p == Matrix4x4 }

// IsOpaque reports whether p is a sampler-like handle.
func (p Primitive) IsOpaque() bool { return p == Texture || p == DepthMask }

// VectorOf returns the vector of n components of scalar. n == 1 returns
// scalar itself.
func VectorOf(scalar Primitive, n int) Primitive {
	if n == 1 {
		return scalar
	}
	var base Primitive
	switch scalar {
	case Float:
		base = Float2
	case Int:
		base = Int2
	case UInt:
		base = UInt2
	default:
		return Void
	}
	if n < 2 || n > 4 {
		return Void
	}
	return base + Primitive(n-2)
}

// StructType refers to a compiled struct. Two StructTypes are equal when they
// refer to the same Struct.
type StructType struct {
	Struct *Struct
}

func (StructType) shaderType() {}

func (t StructType) String() string { return t.Struct.Name }

// ArrayType is an array of Elem. Len is zero for unsized arrays.
type ArrayType struct {
	Elem Type
	Rank int
	Len  int
}

func (ArrayType) shaderType() {}

func (t ArrayType) String() string {
	if t.Len > 0 {
		return t.Elem.String() + "[" + strconv.Itoa(t.Len) + "]"
	}
	return t.Elem.String() + "[]"
}

// ReferenceType is a by-reference parameter of type Elem.
type ReferenceType struct {
	Elem Type
}

func (ReferenceType) shaderType() {}

func (t ReferenceType) String() string { return "ref " + t.Elem.String() }

// Deref strips a ReferenceType.
func Deref(t Type) Type {
	if r, ok := t.(ReferenceType); ok {
		return r.Elem
	}
	return t
}

// IsVoid reports whether t is nil or Void.
func IsVoid(t Type) bool { return t == nil || t == Type(Void) }

// AsPrimitive returns t as a Primitive, looking through references.
func AsPrimitive(t Type) (Primitive, bool) {
	p, ok := Deref(t).(Primitive)
	return p, ok
}

// SizeOf returns the size in bytes of a value of type t as laid out in a
// uniform block: 4-byte scalars, tightly packed vectors, column-major
// matrices, and structs as the sum of their fields. Opaque handles and
// unsized arrays have size 0.
func SizeOf(t Type) int {
	switch t := t.(type) {
	case Primitive:
		switch {
		case t == Void || t.IsOpaque():
			return 0
		case t == Matrix3x2:
			return 3 * 2 * 4
		case t == Matrix4x4:
			return 4 * 4 * 4
		default:
			return t.Components() * 4
		}
	case StructType:
		n := 0
		for _, f := range t.Struct.Fields {
			n += SizeOf(f.Type)
		}
		return n
	case ArrayType:
		return t.Len * SizeOf(t.Elem)
	case ReferenceType:
		return SizeOf(t.Elem)
	}
	return 0
}
