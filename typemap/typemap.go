// Package typemap maps host types to shader types.
package typemap

import (
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

var builtin = map[string]ir.Primitive{
	"void": ir.Void,
	"bool": ir.Bool,
	"i32":  ir.Int,
	"u32":  ir.UInt,
	"f32":  ir.Float,
	"f64":  ir.Float,

	"sim.Float2": ir.Float2,
	"sim.Float3": ir.Float3,
	"sim.Float4": ir.Float4,
	"sim.Int2":   ir.Int2,
	"sim.Int3":   ir.Int3,
	"sim.Int4":   ir.Int4,
	"sim.UInt2":  ir.UInt2,
	"sim.UInt3":  ir.UInt3,
	"sim.UInt4":  ir.UInt4,

	"sim.Matrix3x2": ir.Matrix3x2,
	"sim.Matrix4x4": ir.Matrix4x4,

	"sim.Color":     ir.Float4,
	"sim.Texture":   ir.Texture,
	"sim.DepthMask": ir.DepthMask,
}

// Builtin returns the primitive a library type maps to.
func Builtin(name string) (ir.Primitive, bool) {
	p, ok := builtin[name]
	return p, ok
}

// Mapper maps the host types of one compilation. Structs are registered in
// the program's registry on first use.
type Mapper struct {
	shader  *host.Type
	structs *ir.StructRegistry
}

// New creates a mapper for a compilation of shader. Structs are interned in
// reg.
func New(shader *host.Type, reg *ir.StructRegistry) *Mapper {
	return &Mapper{shader: shader, structs: reg}
}

// Structs returns the registry structs are interned in.
func (m *Mapper) Structs() *ir.StructRegistry { return m.structs }

// IsShader reports whether t is the shader type or one of its bases.
// Values of those types only exist as the shader receiver.
func (m *Mapper) IsShader(t *host.Type) bool {
	return m.shader != nil && t != nil && t.Kind == host.KindClass && m.shader.DerivesFrom(t)
}

// MapType returns the shader type of t.
func (m *Mapper) MapType(t *host.Type) (ir.Type, error) {
	if t == nil {
		return ir.Void, nil
	}
	if p, ok := builtin[t.Name]; ok {
		return p, nil
	}

	switch t.Kind {
	case host.KindArray:
		elem, err := m.MapType(t.Elem)
		if err != nil {
			return nil, err
		}
		if ir.IsVoid(elem) {
			return nil, ir.NewError(ir.ErrUnsupportedType, "array of %v", t.Elem)
		}
		return ir.ArrayType{Elem: elem, Rank: t.Rank, Len: t.Len}, nil
	case host.KindStruct:
		return m.mapStruct(t)
	case host.KindClass:
		if m.IsShader(t) {
			return ir.Void, nil
		}
		return nil, ir.NewError(ir.ErrUnsupportedType, "class %v", t.Name)
	}

	return nil, ir.NewError(ir.ErrUnsupportedType, "%v %v", t.Kind, t.Name)
}

func (m *Mapper) mapStruct(t *host.Type) (ir.Type, error) {
	s, err := m.structs.GetOrCreate(t.Key(), t.ShortName(), func(s *ir.Struct) error {
		for _, f := range t.AllFields() {
			ft, err := m.MapType(f.Type)
			if err != nil {
				return err
			}
			if ir.IsVoid(ft) {
				return ir.NewError(ir.ErrUnsupportedType, "field %v has no shader type", f)
			}
			s.Fields = append(s.Fields, ir.StructField{Name: f.Name, Type: ft})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ir.StructType{Struct: s}, nil
}
