// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshader/ir"
)

// GLSL type name constants for repeated use.
const (
	glslTypeInt   = "int"
	glslTypeUint  = "uint"
	glslTypeFloat = "float"
)

// typeName returns the GLSL type name for a type. For arrays, this
// returns the full type including size (e.g., "vec2[3]"). Use
// baseTypeName + arraySuffix for variable declarations.
func (w *Writer) typeName(t ir.Type) string {
	switch t := t.(type) {
	case ir.ArrayType:
		return w.baseTypeName(t) + arraySuffix(t)
	case ir.ReferenceType:
		return w.typeName(t.Elem)
	}
	return w.baseTypeName(t)
}

// baseTypeName returns the base GLSL type name, unwrapping arrays.
func (w *Writer) baseTypeName(t ir.Type) string {
	switch t := t.(type) {
	case nil:
		return "void"
	case ir.Primitive:
		return primitiveToGLSL(t)
	case ir.StructType:
		if name, ok := w.structNames[t.Struct]; ok {
			return name
		}
		return escapeKeyword(sanitize(t.Struct.Name))
	case ir.ArrayType:
		return w.baseTypeName(t.Elem)
	case ir.ReferenceType:
		return w.baseTypeName(t.Elem)
	}
	return "unknown_type"
}

// arraySuffix returns the array size suffix for a type. For "float[4]"
// returns "[4]". For non-arrays, returns "".
func arraySuffix(t ir.Type) string {
	arr, ok := t.(ir.ArrayType)
	if !ok {
		return ""
	}
	if arr.Len > 0 {
		return fmt.Sprintf("[%d]", arr.Len) + arraySuffix(arr.Elem)
	}
	return "[]" + arraySuffix(arr.Elem)
}

// primitiveToGLSL returns the GLSL name for a primitive type.
func primitiveToGLSL(p ir.Primitive) string {
	switch p {
	case ir.Void:
		return "void"
	case ir.Bool:
		return "bool"
	case ir.Int:
		return glslTypeInt
	case ir.UInt:
		return glslTypeUint
	case ir.Float:
		return glslTypeFloat
	case ir.Float2, ir.Float3, ir.Float4:
		return fmt.Sprintf("vec%d", p.Components())
	case ir.Int2, ir.Int3, ir.Int4:
		return fmt.Sprintf("ivec%d", p.Components())
	case ir.UInt2, ir.UInt3, ir.UInt4:
		return fmt.Sprintf("uvec%d", p.Components())
	case ir.Matrix3x2:
		// Three columns of two rows: mat3x2 * vec3 yields vec2.
		return "mat3x2"
	case ir.Matrix4x4:
		return "mat4"
	case ir.Texture:
		return "sampler2D"
	case ir.DepthMask:
		return "sampler2DShadow"
	}
	return "unknown_type"
}

// zeroValue returns the GLSL spelling of the zero value of t. Opaque types
// have none and return "".
func (w *Writer) zeroValue(t ir.Type) string {
	switch t := t.(type) {
	case ir.Primitive:
		switch {
		case t == ir.Bool:
			return "false"
		case t == ir.Int:
			return "0"
		case t == ir.UInt:
			return "0u"
		case t == ir.Float:
			return "0.0"
		case t.IsVector() || t.IsMatrix():
			return primitiveToGLSL(t) + "(" + w.zeroValue(t.Scalar()) + ")"
		}
		return ""
	case ir.StructType:
		fields := make([]string, len(t.Struct.Fields))
		for i, f := range t.Struct.Fields {
			fields[i] = w.zeroValue(f.Type)
		}
		return w.baseTypeName(t) + "(" + strings.Join(fields, ", ") + ")"
	case ir.ArrayType:
		if t.Len == 0 {
			return ""
		}
		elems := make([]string, t.Len)
		for i := range elems {
			elems[i] = w.zeroValue(t.Elem)
		}
		return w.typeName(t) + "(" + strings.Join(elems, ", ") + ")"
	case ir.ReferenceType:
		return w.zeroValue(t.Elem)
	}
	return ""
}
