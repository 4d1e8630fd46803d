package typemap

import (
	"testing"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

func testModel(t *testing.T) (*host.Model, *host.Type) {
	t.Helper()

	m := host.NewModel()
	f32 := m.MustType("f32")

	light := &host.Type{Name: "demo.Light", Kind: host.KindStruct}
	light.Fields = []*host.Field{
		{Name: "Dir", Type: m.MustType("sim.Float3")},
		{Name: "Power", Type: f32},
	}
	base := &host.Type{Name: "demo.Base", Kind: host.KindClass, Shader: host.ShaderPixel}
	shader := &host.Type{Name: "demo.Lit", Kind: host.KindClass, Base: base, Shader: host.ShaderPixel}
	node := &host.Type{Name: "demo.Node", Kind: host.KindStruct}
	node.Fields = []*host.Field{{Name: "Next", Type: node}}
	other := &host.Type{Name: "demo.Other", Kind: host.KindClass}

	for _, typ := range []*host.Type{light, base, shader, node, other} {
		if err := m.AddType(typ); err != nil {
			t.Fatalf("AddType: %v", err)
		}
	}
	return m, shader
}

func TestMapType(t *testing.T) {
	m, shader := testModel(t)
	light := m.MustType("demo.Light")

	tests := []struct {
		name string
		typ  *host.Type
		want string
	}{
		{"void", m.MustType("void"), "Void"},
		{"f64 narrows", m.MustType("f64"), "Float"},
		{"u32", m.MustType("u32"), "UInt"},
		{"vector", m.MustType("sim.Int3"), "Int3"},
		{"color", m.MustType("sim.Color"), "Float4"},
		{"matrix", m.MustType("sim.Matrix3x2"), "Matrix3x2"},
		{"texture", m.MustType("sim.Texture"), "Texture"},
		{"sized array", m.ArrayOf(m.MustType("f32"), 4), "Float[4]"},
		{"unsized array", m.ArrayOf(m.MustType("sim.Float2"), 0), "Float2[]"},
		{"struct", light, "Light"},
		{"array of struct", m.ArrayOf(light, 2), "Light[2]"},
		{"shader", shader, "Void"},
		{"shader base", shader.Base, "Void"},
		{"nil", nil, "Void"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := New(shader, ir.NewStructRegistry())
			got, err := mp.MapType(tt.typ)
			if err != nil {
				t.Fatalf("MapType: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("MapType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapType_StructIsInterned(t *testing.T) {
	m, shader := testModel(t)
	light := m.MustType("demo.Light")
	reg := ir.NewStructRegistry()
	mp := New(shader, reg)

	a, err := mp.MapType(light)
	if err != nil {
		t.Fatalf("MapType: %v", err)
	}
	b, err := mp.MapType(m.ArrayOf(light, 3))
	if err != nil {
		t.Fatalf("MapType: %v", err)
	}

	if reg.Count() != 1 {
		t.Fatalf("registry holds %d structs, want 1", reg.Count())
	}
	if b.(ir.ArrayType).Elem != a {
		t.Errorf("array element %v is not the interned struct %v", b.(ir.ArrayType).Elem, a)
	}

	s := a.(ir.StructType).Struct
	if len(s.Fields) != 2 || s.Fields[0].Name != "Dir" || s.Fields[0].Type != ir.Type(ir.Float3) {
		t.Errorf("struct fields = %+v", s.Fields)
	}
	if got := ir.SizeOf(a); got != 16 {
		t.Errorf("SizeOf(Light) = %d, want 16", got)
	}
}

func TestMapType_Unsupported(t *testing.T) {
	m, shader := testModel(t)

	tests := []struct {
		name string
		typ  *host.Type
	}{
		{"self-referential struct", m.MustType("demo.Node")},
		{"other class", m.MustType("demo.Other")},
		{"library class", m.MustType(host.ShaderMathType)},
		{"array of class", m.ArrayOf(m.MustType("demo.Other"), 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(shader, ir.NewStructRegistry()).MapType(tt.typ)
			if !ir.IsUnsupportedType(err) {
				t.Errorf("MapType() error = %v, want UnsupportedType", err)
			}
		})
	}
}
