package msl

import (
	"fmt"

	"github.com/gogpu/xshader/ir"
)

// Namespace prefixes the names of the Metal standard library.
const Namespace = "metal::"

// PrimitiveToMSL returns the MSL spelling of a primitive type. Matrices
// are named columns by rows, so the host's 3x2 affine transform is
// float3x2.
func PrimitiveToMSL(p ir.Primitive) string {
	switch p {
	case ir.Void:
		return "void"
	case ir.Bool:
		return "bool"
	case ir.Int:
		return "int"
	case ir.UInt:
		return "uint"
	case ir.Float:
		return "float"
	case ir.Float2, ir.Float3, ir.Float4:
		return fmt.Sprintf("%sfloat%d", Namespace, p.Components())
	case ir.Int2, ir.Int3, ir.Int4:
		return fmt.Sprintf("%sint%d", Namespace, p.Components())
	case ir.UInt2, ir.UInt3, ir.UInt4:
		return fmt.Sprintf("%suint%d", Namespace, p.Components())
	case ir.Matrix3x2:
		return Namespace + "float3x2"
	case ir.Matrix4x4:
		return Namespace + "float4x4"
	case ir.Texture, ir.DepthMask:
		return Namespace + "texture2d<float>"
	default:
		return "void"
	}
}

// typeName returns the MSL type name for a type. References name their
// element; paramDecl adds the address space.
func (w *Writer) typeName(t ir.Type) string {
	switch t := t.(type) {
	case nil:
		return "void"
	case ir.Primitive:
		return PrimitiveToMSL(t)
	case ir.StructType:
		if name, ok := w.structNames[t.Struct]; ok {
			return name
		}
		return escapeName(sanitize(t.Struct.Name))
	case ir.ArrayType:
		return fmt.Sprintf("%sarray<%s, %d>", Namespace, w.typeName(t.Elem), t.Len)
	case ir.ReferenceType:
		return w.typeName(t.Elem)
	}
	return "void"
}

// checkType reports types MSL output cannot spell.
func (w *Writer) checkType(t ir.Type, what string) error {
	switch t := t.(type) {
	case ir.ArrayType:
		if t.Len == 0 {
			return ir.NewError(ir.ErrUnsupportedType, "%v: unsized array %v", what, t)
		}
		if !w.options.LangVersion.SupportsArrays() {
			return ir.NewError(ir.ErrUnsupportedType, "%v: arrays need MSL 2.0, targeting %v", what, w.options.LangVersion)
		}
		return w.checkType(t.Elem, what)
	case ir.ReferenceType:
		return w.checkType(t.Elem, what)
	}
	return nil
}

// zeroValue returns the zero value of t in expression position. Scalars
// are literals, everything else is value-initialized. Opaque types have
// none and return "".
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
		case t.IsOpaque():
			return ""
		}
	case ir.ReferenceType:
		return w.zeroValue(t.Elem)
	}
	return w.typeName(t) + " {}"
}
