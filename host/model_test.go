package host

import (
	"testing"
)

func TestModel_Library(t *testing.T) {
	m := NewModel()

	for _, name := range []string{"f32", "sim.Float2", "sim.Float4", "sim.Color", "sim.Matrix4x4", ShaderMathType, MathType, MathFType} {
		if _, ok := m.LookupType(name); !ok {
			t.Errorf("LookupType(%q) not found", name)
		}
	}

	f4 := m.MustType("sim.Float4")
	if f := f4.Field("W"); f == nil || f.Type.Name != "f32" {
		t.Errorf("sim.Float4 has no f32 W field")
	}

	sin := m.MustType(ShaderMathType).FindMethod("Sin", m.MustType("f32"))
	if sin == nil || sin.Intrinsic != "sin" {
		t.Fatalf("ShaderMath::Sin(f32) missing or not intrinsic")
	}
	if got, want := sin.Key().String(), "sim.ShaderMath::Sin(f32)"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	ceil := m.MustType(ShaderMathType).FindMethod("Ceiling", m.MustType("f32"))
	if ceil == nil || ceil.Intrinsic != "ceil" {
		t.Errorf("ShaderMath::Ceiling(f32) intrinsic = %v, want ceil", ceil)
	}

	msin := m.MustType(MathType).FindMethod("Sin", m.MustType("f64"))
	if msin == nil || msin.Intrinsic != "" || msin.Code != nil {
		t.Errorf("std.Math::Sin(f64) must be a non-intrinsic method without code")
	}
}

func TestModel_Tokens(t *testing.T) {
	m := NewModel()
	f2 := m.MustType("sim.Float2")
	x := f2.Field("X")
	ctor := f2.FindMethod(CtorName, m.MustType("f32"), m.MustType("f32"))
	if ctor == nil {
		t.Fatal("sim.Float2 has no (f32,f32) constructor")
	}

	tt := m.TypeToken(f2)
	if tt != m.TypeToken(f2) {
		t.Errorf("TypeToken is not stable")
	}
	if got, err := m.ResolveType(tt); err != nil || got != f2 {
		t.Errorf("ResolveType() = %v, %v, want %v", got, err, f2)
	}
	if got, err := m.ResolveField(m.FieldToken(x)); err != nil || got != x {
		t.Errorf("ResolveField() = %v, %v, want %v", got, err, x)
	}
	if got, err := m.ResolveMethod(m.MethodToken(ctor)); err != nil || got != ctor {
		t.Errorf("ResolveMethod() = %v, %v, want %v", got, err, ctor)
	}

	// Wrong table and out of range rows fail.
	if _, err := m.ResolveMethod(tt); err == nil {
		t.Errorf("ResolveMethod(type token) succeeded")
	}
	if _, err := m.ResolveField(TokenField | 9999); err == nil {
		t.Errorf("ResolveField(out of range) succeeded")
	}
}

func TestModel_DuplicateType(t *testing.T) {
	m := NewModel()
	if err := m.AddType(&Type{Name: "sim.Float2"}); err == nil {
		t.Error("Expected error for duplicate type, got nil")
	}
}

func TestType_FieldsAndBases(t *testing.T) {
	m := NewModel()
	f32 := m.MustType("f32")

	base := &Type{Name: "demo.Base", Kind: KindClass, Fields: []*Field{
		{Name: "Time", Type: f32},
		{Name: "Scale", Type: f32},
	}}
	derived := &Type{Name: "demo.Derived", Kind: KindClass, Base: base, Fields: []*Field{
		{Name: "Scale", Type: f32},
		{Name: "Count", Type: f32, Static: true},
		{Name: "Tint", Type: m.MustType("sim.Color")},
	}}
	for _, ty := range []*Type{base, derived} {
		if err := m.AddType(ty); err != nil {
			t.Fatalf("AddType: %v", err)
		}
	}

	var got []string
	for _, f := range derived.AllFields() {
		got = append(got, f.Key().String())
	}
	want := []string{"demo.Base::Time", "demo.Base::Scale", "demo.Derived::Scale", "demo.Derived::Tint"}
	if len(got) != len(want) {
		t.Fatalf("AllFields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllFields()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if f := derived.Field("Scale"); f.Owner != derived {
		t.Errorf("Field(Scale) owner = %v, want the derived declaration", f.Owner)
	}
	if f := derived.Field("Time"); f == nil || f.Owner != base {
		t.Errorf("Field(Time) not found through the base chain")
	}
	if !derived.DerivesFrom(base) || base.DerivesFrom(derived) {
		t.Errorf("DerivesFrom is wrong")
	}
}

func TestParseShaderKind(t *testing.T) {
	tests := []struct {
		in   string
		want ShaderKind
		ok   bool
	}{
		{"", ShaderNone, true},
		{"pixel", ShaderPixel, true},
		{"Fragment", ShaderPixel, true},
		{"vertex", ShaderVertex, true},
		{"compute", ShaderCompute, true},
		{"geometry", ShaderNone, false},
	}

	for _, tt := range tests {
		got, ok := ParseShaderKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseShaderKind(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseMemberRef(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		params  int
		wantErr bool
	}{
		{"sim.ShaderMath::Sin(f32)", "sim.ShaderMath::Sin(f32)", 1, false},
		{"sim.Float2::.ctor(f32, f32)", "sim.Float2::.ctor(f32,f32)", 2, false},
		{"demo.S::Helper()", "demo.S::Helper()", 0, false},
		{"demo.S::Tint", "demo.S::Tint", 0, false},
		{"Tint", "", 0, true},
		{"demo.S::M(f32", "", 0, true},
	}

	for _, tt := range tests {
		r, err := ParseMemberRef(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMemberRef(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMemberRef(%q): %v", tt.in, err)
			continue
		}
		if r.String() != tt.want || len(r.Params) != tt.params {
			t.Errorf("ParseMemberRef(%q) = %q (%d params), want %q (%d params)", tt.in, r.String(), len(r.Params), tt.want, tt.params)
		}
	}
}

func TestFindMethod_Ambiguous(t *testing.T) {
	m := NewModel()
	if _, err := FindMethod(m, "sim.ShaderMath::Sin"); err == nil {
		t.Error("Expected ambiguity error for overloaded name, got nil")
	}
	if _, err := FindMethod(m, "sim.Color::ToFloat4"); err != nil {
		t.Errorf("FindMethod(unique name): %v", err)
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner[MethodKey]()
	a := MethodKey{Owner: "demo.S", Name: "A", Sig: "()"}
	b := MethodKey{Owner: "demo.S", Name: "B", Sig: "()"}

	if in.ID(a) != 0 || in.ID(b) != 1 || in.ID(a) != 0 {
		t.Errorf("IDs are not dense and stable")
	}
	if in.Key(1) != b {
		t.Errorf("Key(1) = %v, want %v", in.Key(1), b)
	}
	if _, ok := in.Lookup(MethodKey{Name: "C"}); ok {
		t.Errorf("Lookup assigned an id")
	}
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
}
