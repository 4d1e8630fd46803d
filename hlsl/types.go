// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshader/ir"
)

// Type name constants.
const (
	hlslTypeFloat = "float"
	hlslTypeInt   = "int"
	hlslTypeUint  = "uint"
	hlslTypeBool  = "bool"
)

// typeName returns the HLSL type name for a type. Arrays include their
// size, references their element.
func (w *Writer) typeName(t ir.Type) string {
	switch t := t.(type) {
	case ir.ArrayType:
		return w.baseTypeName(t) + arraySuffix(t)
	case ir.ReferenceType:
		return w.typeName(t.Elem)
	}
	return w.baseTypeName(t)
}

// baseTypeName returns the base HLSL type name, unwrapping arrays.
func (w *Writer) baseTypeName(t ir.Type) string {
	switch t := t.(type) {
	case nil:
		return "void"
	case ir.Primitive:
		return PrimitiveToHLSL(t)
	case ir.StructType:
		if name, ok := w.structNames[t.Struct]; ok {
			return name
		}
		return Escape(sanitize(t.Struct.Name))
	case ir.ArrayType:
		return w.baseTypeName(t.Elem)
	case ir.ReferenceType:
		return w.baseTypeName(t.Elem)
	}
	return "void"
}

// arraySuffix returns the array size suffix for a type, like "[4]".
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

// zeroValue returns the zero value of t in expression position. Scalars
// are literals; vectors, matrices and structs cast a zero. Arrays and
// opaque types have none and return "".
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
			return "(" + PrimitiveToHLSL(t) + ")0"
		}
	case ir.StructType:
		return "(" + w.baseTypeName(t) + ")0"
	case ir.ReferenceType:
		return w.zeroValue(t.Elem)
	}
	return ""
}

// zeroInit returns the initializer of a zeroed declaration of type t.
// Unlike zeroValue it can spell sized arrays.
func (w *Writer) zeroInit(t ir.Type) string {
	arr, ok := t.(ir.ArrayType)
	if !ok {
		return w.zeroValue(t)
	}
	if arr.Len == 0 {
		return ""
	}

	elem := w.zeroInit(arr.Elem)
	if elem == "" {
		return ""
	}

	elems := make([]string, arr.Len)
	for i := range elems {
		elems[i] = elem
	}
	return "{ " + strings.Join(elems, ", ") + " }"
}
