// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strings"
	"testing"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// =============================================================================
// Helpers
// =============================================================================

const shaderType host.TypeKey = "demo.Shader"

func local(name string, t ir.Type) *ir.Variable {
	return &ir.Variable{Name: name, Type: t, Kind: ir.VarLocal}
}

func param(name string, t ir.Type) *ir.Variable {
	return &ir.Variable{Name: name, Type: t, Kind: ir.VarParameter}
}

func uniform(name string, t ir.Type) *ir.Variable {
	return &ir.Variable{Name: name, Type: t, Kind: ir.VarUniform}
}

func read(v *ir.Variable) *ir.VariableRead { return &ir.VariableRead{Var: v} }

func assign(v *ir.Variable, x ir.Expr) *ir.Assignment {
	return &ir.Assignment{Target: read(v), Value: x}
}

func f(x float64) *ir.Constant { return ir.FloatConst(x) }

func bin(op ir.BinaryOp, l, r ir.Expr) *ir.Binary {
	return &ir.Binary{Op: op, Left: l, Right: r, Type: ir.BinaryResultType(op, ir.TypeOf(l), ir.TypeOf(r))}
}

func ctor(t ir.Type, args ...ir.Expr) *ir.Call {
	return &ir.Call{Intrinsic: "ctor", Args: args, Type: t}
}

// entry returns an entry method on the shader type taking params.
func entry(ret ir.Type, params []*ir.Variable, locals []*ir.Variable, body ...ir.Expr) *ir.Method {
	return &ir.Method{
		Key:       host.MethodKey{Owner: shaderType, Name: "Main", Sig: "()"},
		Name:      "Main",
		Owner:     shaderType,
		OwnerName: "Shader",
		Return:    ret,
		Params:    params,
		Locals:    locals,
		Body:      ir.NewBlock(body...),
		OnShader:  true,
	}
}

func program(kind host.ShaderKind, vars []*ir.Variable, methods ...*ir.Method) *ir.Program {
	p := &ir.Program{
		Shader:    shaderType,
		Kind:      kind,
		Methods:   methods,
		Variables: vars,
		Entry:     methods[len(methods)-1],
	}
	p.Entry.IsEntry = true
	return p
}

func compile(t *testing.T, p *ir.Program, opts *Options) (string, *TranslationInfo) {
	t.Helper()
	source, info, err := Compile(p, opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return source, info
}

func mustContainHLSL(t *testing.T, source, expected string) {
	t.Helper()
	if !strings.Contains(source, expected) {
		t.Errorf("Expected output to contain %q.\nOutput:\n%s", expected, source)
	}
}

// =============================================================================
// Options and conversion
// =============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts == nil {
		t.Fatal("DefaultOptions() returned nil")
	}
	if opts.ShaderModel != ShaderModel5_1 {
		t.Errorf("ShaderModel = %v, want ShaderModel5_1", opts.ShaderModel)
	}
	if !opts.FakeMissingBindings {
		t.Error("FakeMissingBindings should be true by default")
	}
	if opts.BindingMap == nil {
		t.Error("BindingMap should not be nil")
	}
}

func TestPrimitiveToHLSL(t *testing.T) {
	tests := []struct {
		p    ir.Primitive
		want string
	}{
		{ir.Void, "void"},
		{ir.Bool, "bool"},
		{ir.Int, "int"},
		{ir.UInt, "uint"},
		{ir.Float, "float"},
		{ir.Float2, "float2"},
		{ir.Float4, "float4"},
		{ir.Int3, "int3"},
		{ir.UInt2, "uint2"},
		{ir.Matrix3x2, "float2x3"},
		{ir.Matrix4x4, "float4x4"},
		{ir.Texture, "Texture2D"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := PrimitiveToHLSL(tt.p); got != tt.want {
				t.Errorf("PrimitiveToHLSL(%v) = %q, want %q", tt.p, got, tt.want)
			}
		})
	}
}

func TestShaderProfile(t *testing.T) {
	tests := []struct {
		kind host.ShaderKind
		sm   ShaderModel
		want string
	}{
		{host.ShaderPixel, ShaderModel5_1, "ps_5_1"},
		{host.ShaderVertex, ShaderModel6_0, "vs_6_0"},
		{host.ShaderCompute, ShaderModel6_6, "cs_6_6"},
		{host.ShaderNone, ShaderModel6_3, "lib_6_3"},
	}

	for _, tt := range tests {
		if got := ShaderProfile(tt.kind, tt.sm); got != tt.want {
			t.Errorf("ShaderProfile(%v, %v) = %q, want %q", tt.kind, tt.sm, got, tt.want)
		}
	}
}

func TestZeroInit(t *testing.T) {
	w := newWriter(&ir.Program{}, DefaultOptions())
	light := &ir.Struct{Name: "Light", Fields: []ir.StructField{{Name: "Power", Type: ir.Float}}}

	tests := []struct {
		t    ir.Type
		want string
	}{
		{ir.Float, "0.0"},
		{ir.UInt, "0u"},
		{ir.Bool, "false"},
		{ir.Float3, "(float3)0"},
		{ir.Matrix4x4, "(float4x4)0"},
		{ir.StructType{Struct: light}, "(Light)0"},
		{ir.ArrayType{Elem: ir.Float, Rank: 1, Len: 2}, "{ 0.0, 0.0 }"},
		{ir.ArrayType{Elem: ir.Float, Rank: 1}, ""},
		{ir.Texture, ""},
	}

	for _, tt := range tests {
		if got := w.zeroInit(tt.t); got != tt.want {
			t.Errorf("zeroInit(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

// =============================================================================
// Compile
// =============================================================================

func TestCompile_ConstantColor(t *testing.T) {
	pos := param("position", ir.Float2)
	p := program(host.ShaderPixel, nil,
		entry(ir.Float4, []*ir.Variable{pos}, nil,
			&ir.Return{Value: ctor(ir.Float4, f(1), f(0), f(0), f(1))},
		),
	)

	source, info := compile(t, p, nil)

	want := `float4 main(float2 position : TEXCOORD0) : SV_Target {
    return float4(1.0, 0.0, 0.0, 1.0);
}
`
	if source != want {
		t.Errorf("Compile() =\n%s\nwant\n%s", source, want)
	}
	if info.EntryName != "main" {
		t.Errorf("EntryName = %q, want %q", info.EntryName, "main")
	}
	if info.Profile != "ps_5_1" {
		t.Errorf("Profile = %q, want %q", info.Profile, "ps_5_1")
	}
}

func TestCompile_UniformsAndTextures(t *testing.T) {
	time := uniform("Time", ir.Float)
	tint := uniform("Tint", ir.Float4)
	image := uniform("Image", ir.Texture)
	pos := param("position", ir.Float2)

	sample := &ir.Call{Intrinsic: "sample", Args: []ir.Expr{read(image), read(pos)}, Type: ir.Float4}
	p := program(host.ShaderPixel, []*ir.Variable{time, tint, image},
		entry(ir.Float4, []*ir.Variable{pos}, nil,
			&ir.Return{Value: bin(ir.OpMul, bin(ir.OpMul, sample, read(tint)), read(time))},
		),
	)

	source, info := compile(t, p, DefaultOptions())

	want := `cbuffer Globals : register(b0, space0) {
    float Time;
    float4 Tint;
};
Texture2D Image : register(t0, space0);
SamplerState Image_sampler : register(s0, space0);

float4 main(float2 position : TEXCOORD0) : SV_Target {
    return Image.Sample(Image_sampler, position) * Tint * Time;
}
`
	if source != want {
		t.Errorf("Compile() =\n%s\nwant\n%s", source, want)
	}

	wantUniforms := []struct {
		name string
		reg  RegisterType
	}{
		{"Time", RegisterTypeB},
		{"Tint", RegisterTypeB},
		{"Image", RegisterTypeT},
	}
	if len(info.Uniforms) != len(wantUniforms) {
		t.Fatalf("Uniforms = %+v, want %d entries", info.Uniforms, len(wantUniforms))
	}
	for i, u := range wantUniforms {
		if info.Uniforms[i].Name != u.name || info.Uniforms[i].Register != u.reg {
			t.Errorf("Uniforms[%d] = %+v, want %v in %v", i, info.Uniforms[i], u.name, u.reg)
		}
	}
}

func TestCompile_BindingMap(t *testing.T) {
	time := uniform("Time", ir.Float)
	image := uniform("Image", ir.Texture)
	pos := param("position", ir.Float2)

	newProgram := func() *ir.Program {
		return program(host.ShaderPixel, []*ir.Variable{time, image},
			entry(ir.Float4, []*ir.Variable{pos}, nil,
				&ir.Return{Value: &ir.Call{Intrinsic: "sample", Args: []ir.Expr{read(image), read(pos)}, Type: ir.Float4}},
			),
		)
	}

	opts := &Options{
		ShaderModel: ShaderModel6_0,
		BindingMap: map[string]BindTarget{
			GlobalsBuffer: {Space: 1, Register: 2},
			"Image":       {Register: 4},
		},
	}

	source, info := compile(t, newProgram(), opts)

	mustContainHLSL(t, source, "cbuffer Globals : register(b2, space1) {")
	mustContainHLSL(t, source, "Texture2D Image : register(t4, space0);")
	mustContainHLSL(t, source, "SamplerState Image_sampler : register(s4, space0);")

	if info.Profile != "ps_6_0" {
		t.Errorf("Profile = %q, want %q", info.Profile, "ps_6_0")
	}

	delete(opts.BindingMap, "Image")
	_, _, err := Compile(newProgram(), opts)
	if err == nil || !strings.Contains(err.Error(), "no binding for Image") {
		t.Errorf("Compile() error = %v, want missing binding", err)
	}
}

func TestCompile_MethodsAndLocals(t *testing.T) {
	light := &ir.Struct{Key: "demo.Light", Name: "Light", Fields: []ir.StructField{
		{Name: "Color", Type: ir.Float3},
		{Name: "Range", Type: ir.Float},
	}}
	lt := ir.StructType{Struct: light}

	m := param("m", ir.Matrix4x4)
	v := param("v", ir.Float4)
	scale := &ir.Method{
		Key:       host.MethodKey{Owner: "demo.Util", Name: "Scale", Sig: "(m4,v4)"},
		Name:      "Scale",
		Owner:     "demo.Util",
		OwnerName: "Util",
		Return:    ir.Float4,
		Params:    []*ir.Variable{m, v},
		Body:      ir.NewBlock(&ir.Return{Value: bin(ir.OpMul, read(m), read(v))}),
	}

	transform := uniform("Transform", ir.Matrix4x4)
	pos := param("position", ir.Float2)
	a := local("a", ir.Float)
	arr := local("arr", ir.ArrayType{Elem: ir.Float, Rank: 1, Len: 2})
	l := local("l", lt)
	c := local("c", ir.Float4)

	main := entry(ir.Float4, []*ir.Variable{pos}, []*ir.Variable{a, arr, l, c},
		assign(c, &ir.Call{Method: scale.Key, Args: []ir.Expr{read(transform), ctor(ir.Float4, f(1))}, Type: ir.Float4}),
		&ir.Return{Value: bin(ir.OpAdd, read(c), ctor(ir.Float4, bin(ir.OpAdd, read(a), &ir.MemberAccess{Object: read(l), Member: "Range", Type: ir.Float})))},
	)

	p := program(host.ShaderPixel, []*ir.Variable{transform}, scale, main)
	p.Structs = []*ir.Struct{light}

	source, _ := compile(t, p, DefaultOptions())

	want := `struct Light {
    float3 Color;
    float Range;
};

cbuffer Globals : register(b0, space0) {
    float4x4 Transform;
};

float4 Util_Scale(float4x4 m, float4 v) {
    return mul(m, v);
}

float4 main(float2 position : TEXCOORD0) : SV_Target {
    float a = 0.0, arr[2] = { 0.0, 0.0 };
    Light l = (Light)0;
    float4 c = (float4)0;
    c = Util_Scale(Transform, (float4)1.0);
    return c + (float4)(a + l.Range);
}
`
	if source != want {
		t.Errorf("Compile() =\n%s\nwant\n%s", source, want)
	}
}

func TestCompile_Vertex(t *testing.T) {
	p4 := param("p", ir.Float4)
	p := program(host.ShaderVertex, nil,
		entry(ir.Float4, []*ir.Variable{p4}, nil, &ir.Return{Value: read(p4)}),
	)

	source, info := compile(t, p, &Options{ShaderModel: ShaderModel6_0})

	mustContainHLSL(t, source, "float4 main(float4 p : TEXCOORD0) : SV_Position {")
	if info.Profile != "vs_6_0" {
		t.Errorf("Profile = %q, want %q", info.Profile, "vs_6_0")
	}
}

func TestCompile_Loop(t *testing.T) {
	i := local("i", ir.Int)
	pos := param("position", ir.Float2)

	loop := ir.NewLoop(nil)
	loop.Body = ir.NewBlock(
		&ir.Conditional{Test: bin(ir.OpGe, read(i), ir.IntConst(4)), Success: ir.NewBlock(&ir.Goto{Target: loop.Break})},
		assign(i, bin(ir.OpAdd, read(i), ir.IntConst(1))),
	)

	p := program(host.ShaderPixel, nil,
		entry(ir.Float4, []*ir.Variable{pos}, []*ir.Variable{i},
			loop,
			&ir.Return{Value: ctor(ir.Float4, &ir.Convert{Operand: read(i), Type: ir.Float})},
		),
	)

	source, _ := compile(t, p, nil)

	want := `float4 main(float2 position : TEXCOORD0) : SV_Target {
    int i = 0;
    [loop]
    while (true) {
        if (i >= 4) {
            break;
        }
        i = i + 1;
    }
    return (float4)float(i);
}
`
	if source != want {
		t.Errorf("Compile() =\n%s\nwant\n%s", source, want)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	build := func() *ir.Program {
		time := uniform("Time", ir.Float)
		pos := param("position", ir.Float2)
		return program(host.ShaderPixel, []*ir.Variable{time},
			entry(ir.Float4, []*ir.Variable{pos}, nil,
				&ir.Return{Value: ctor(ir.Float4, read(time))},
			),
		)
	}

	a, _ := compile(t, build(), nil)
	b, _ := compile(t, build(), nil)
	if a != b {
		t.Errorf("Compile() is not deterministic:\n%s\n---\n%s", a, b)
	}
}

func TestCompile_Errors(t *testing.T) {
	pos := param("position", ir.Float2)
	tex := param("tex", ir.Texture)

	outer := ir.NewLoop(nil)
	inner := ir.NewLoop(ir.NewBlock(&ir.Goto{Target: outer.Break}))
	outer.Body = ir.NewBlock(inner)

	tests := []struct {
		name  string
		p     *ir.Program
		check func(error) bool
	}{
		{
			name: "compute",
			p: program(host.ShaderCompute, nil,
				entry(ir.Void, nil, nil, &ir.Return{})),
			check: ir.IsUnsupportedShaderKind,
		},
		{
			name: "varying",
			p: program(host.ShaderVertex, []*ir.Variable{{Name: "uv", Type: ir.Float2, Kind: ir.VarVertexOutput}},
				entry(ir.Float4, nil, nil, &ir.Return{Value: ctor(ir.Float4, f(0))})),
			check: ir.IsUnsupportedConstruct,
		},
		{
			name: "sample parameter",
			p: program(host.ShaderPixel, nil,
				entry(ir.Float4, []*ir.Variable{tex, pos}, nil,
					&ir.Return{Value: &ir.Call{Intrinsic: "sample", Args: []ir.Expr{read(tex), read(pos)}, Type: ir.Float4}})),
			check: ir.IsUnsupportedConstruct,
		},
		{
			name: "nested loop jump",
			p: program(host.ShaderPixel, nil,
				entry(ir.Void, nil, nil, outer)),
			check: ir.IsUnsupportedConstruct,
		},
		{
			name: "unknown intrinsic",
			p: program(host.ShaderPixel, nil,
				entry(ir.Float, nil, nil, &ir.Return{Value: &ir.Call{Intrinsic: "nope", Type: ir.Float}})),
			check: ir.IsInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.p, nil)
			if !tt.check(err) {
				t.Errorf("Compile() error = %v", err)
			}
		})
	}
}

func TestCompile_NoEntry(t *testing.T) {
	_, _, err := Compile(&ir.Program{Kind: host.ShaderPixel}, nil)
	if !ir.IsInternal(err) {
		t.Errorf("Compile() error = %v, want internal error", err)
	}
}
