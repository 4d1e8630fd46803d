package xshader

import (
	"context"
	"strings"
	"testing"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

const effects = `
[[type]]
name = "demo.Solid"
kind = "class"
shader = "pixel"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Color"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldc.r4 1
    ldc.r4 0
    ldc.r4 0
    ldc.r4 1
    newobj sim.Color::.ctor(f32,f32,f32,f32)
    ret
  """

[[type]]
name = "demo.Calls"
kind = "class"
shader = "pixel"

  [[type.field]]
  name = "Gain"
  type = "f32"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Color"
  params = [{ name = "position", type = "sim.Float2" }]
  locals = [{ name = "x", type = "f32" }]
  code = """
    ldarg.0
    call demo.Calls::Level()
    stloc x
    ldloc x
    ldc.r4 0
    ldc.r4 0
    ldc.r4 1
    newobj sim.Color::.ctor(f32,f32,f32,f32)
    ret
  """

  [[type.method]]
  name = "Level"
  return = "f32"
  code = """
    ldarg.0
    ldfld demo.Calls::Gain
    ret
  """

[[type]]
name = "demo.Split"
kind = "class"
shader = "pixel"

  [[type.field]]
  name = "Enabled"
  type = "bool"

  [[type.field]]
  name = "Gain"
  type = "f32"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Float4"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldarg.0
    ldfld demo.Split::Enabled
    brfalse.s off
    ldarg.0
    ldfld demo.Split::Gain
    ldc.r4 2
    mul
    newobj sim.Float4::.ctor(f32)
    ret
  off:
    ldc.r4 0
    newobj sim.Float4::.ctor(f32)
    ret
  """

[[type]]
name = "demo.Plain"
kind = "class"
`

func loadEffects(t testing.TB) *host.Model {
	t.Helper()

	m, err := host.Parse([]byte(effects))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func TestCompile_ConstantColor(t *testing.T) {
	res, err := Compile(context.Background(), loadEffects(t), "demo.Solid")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `#version 330 core

vec4 main(vec2 position) {
    return vec4(1.0, 0.0, 0.0, 1.0);
}
`
	if res.Source != want {
		t.Errorf("Source =\n%s\nwant\n%s", res.Source, want)
	}
	if res.EntryName != "main" {
		t.Errorf("EntryName = %q, want main", res.EntryName)
	}
	if res.Program == nil || res.Program.Kind != host.ShaderPixel {
		t.Errorf("Program = %v, want a pixel program", res.Program)
	}
}

func TestCompile_RedundantVariable(t *testing.T) {
	res, err := Compile(context.Background(), loadEffects(t), "demo.Calls")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `#version 330 core

uniform float Gain;

float Level() {
    return Gain;
}

vec4 main(vec2 position) {
    return vec4(Level(), 0.0, 0.0, 1.0);
}
`
	if res.Source != want {
		t.Errorf("Source =\n%s\nwant\n%s", res.Source, want)
	}

	if len(res.Uniforms) != 1 {
		t.Fatalf("Uniforms = %v, want one", res.Uniforms)
	}
	if u := res.Uniforms[0]; u.Name != "Gain" || u.Field != "Gain" || u.Type != ir.Float {
		t.Errorf("Uniforms[0] = %+v", u)
	}
}

func TestCompile_IfElseReturns(t *testing.T) {
	res, err := Compile(context.Background(), loadEffects(t), "demo.Split")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `vec4 main(vec2 position) {
    if (Enabled) {
        return vec4(Gain * 2.0);
    } else {
        return vec4(0.0);
    }
}
`
	if !strings.Contains(res.Source, want) {
		t.Errorf("Source =\n%s\nwant it to contain\n%s", res.Source, want)
	}

	var names []string
	for _, u := range res.Uniforms {
		names = append(names, u.Name)
	}
	if got := strings.Join(names, " "); got != "Enabled Gain" {
		t.Errorf("Uniforms = %q, want %q", got, "Enabled Gain")
	}
}

func TestCompileWithOptions_HLSL(t *testing.T) {
	opts := Options{Target: TargetHLSL, ShaderModel: "6.0"}

	res, err := CompileWithOptions(context.Background(), loadEffects(t), "demo.Calls", opts)
	if err != nil {
		t.Fatalf("CompileWithOptions: %v", err)
	}

	for _, want := range []string{
		"cbuffer Globals : register(b0, space0) {\n    float Gain;\n};\n",
		"float Level() {\n    return Gain;\n}\n",
		"float4 main(float2 position : TEXCOORD0) : SV_Target {\n    return float4(Level(), 0.0, 0.0, 1.0);\n}\n",
	} {
		if !strings.Contains(res.Source, want) {
			t.Errorf("Source =\n%s\nwant it to contain\n%s", res.Source, want)
		}
	}

	if res.Profile != "ps_6_0" {
		t.Errorf("Profile = %q, want ps_6_0", res.Profile)
	}
	if len(res.Uniforms) != 1 || res.Uniforms[0].Name != "Gain" {
		t.Errorf("Uniforms = %v, want Gain", res.Uniforms)
	}
}

func TestCompileWithOptions_MSL(t *testing.T) {
	opts := Options{Target: TargetMSL, MetalVersion: "2.3"}

	res, err := CompileWithOptions(context.Background(), loadEffects(t), "demo.Calls", opts)
	if err != nil {
		t.Fatalf("CompileWithOptions: %v", err)
	}

	for _, want := range []string{
		"// language: metal2.3\n",
		"struct Globals {\n    float Gain;\n};\n",
		"float Level(constant Globals& globals) {\n    return globals.Gain;\n}\n",
		"fragment metal::float4 main0(metal::float4 fragCoord [[position]], constant Globals& globals [[buffer(0)]]) {\n" +
			"    metal::float2 position = fragCoord.xy;\n" +
			"    return metal::float4(Level(globals), 0.0, 0.0, 1.0);\n}\n",
	} {
		if !strings.Contains(res.Source, want) {
			t.Errorf("Source =\n%s\nwant it to contain\n%s", res.Source, want)
		}
	}

	if res.EntryName != "main0" {
		t.Errorf("EntryName = %q, want main0", res.EntryName)
	}
	if res.Profile != "metal2.3" {
		t.Errorf("Profile = %q, want metal2.3", res.Profile)
	}
	if len(res.Uniforms) != 1 || res.Uniforms[0].Name != "Gain" {
		t.Errorf("Uniforms = %v, want Gain", res.Uniforms)
	}
}

func TestCompileWithOptions_WrapEntryES(t *testing.T) {
	opts := Options{Version: 300, ES: true, WrapEntry: true}

	res, err := CompileWithOptions(context.Background(), loadEffects(t), "demo.Solid", opts)
	if err != nil {
		t.Fatalf("CompileWithOptions: %v", err)
	}

	if !strings.HasPrefix(res.Source, "#version 300 es\n") {
		t.Errorf("Source =\n%s\nwant a 300 es version directive", res.Source)
	}
	if !strings.Contains(res.Source, "void main() {") {
		t.Errorf("Source =\n%s\nwant a void main", res.Source)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	m := loadEffects(t)

	for _, shader := range []string{"demo.Solid", "demo.Calls", "demo.Split"} {
		a, err := Compile(context.Background(), m, shader)
		if err != nil {
			t.Fatalf("Compile(%v): %v", shader, err)
		}
		b, err := Compile(context.Background(), m, shader)
		if err != nil {
			t.Fatalf("Compile(%v): %v", shader, err)
		}
		if a.Source != b.Source {
			t.Errorf("Compile(%v) differs between runs:\n%s\n%s", shader, a.Source, b.Source)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	m := loadEffects(t)

	if _, err := Compile(context.Background(), m, "demo.Plain"); !ir.IsUnsupportedShaderKind(err) {
		t.Errorf("Compile(demo.Plain) error = %v, want unsupported shader kind", err)
	}
	if _, err := Compile(context.Background(), m, "demo.Missing"); err == nil {
		t.Errorf("Compile(demo.Missing) succeeded")
	}

	opts := Options{Target: TargetHLSL, WrapEntry: true}
	if _, err := CompileWithOptions(context.Background(), m, "demo.Solid", opts); err == nil {
		t.Errorf("CompileWithOptions() accepted wrap_entry for hlsl")
	}
}

func TestGenerate_BadVersions(t *testing.T) {
	res, err := Compile(context.Background(), loadEffects(t), "demo.Solid")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	tests := []Options{
		{Target: TargetGLSL, Version: 42},
		{Target: TargetHLSL, ShaderModel: "6"},
		{Target: TargetHLSL, ShaderModel: "sm_x_0"},
		{Target: TargetMSL, MetalVersion: "9.9"},
		{Target: TargetMSL, MetalVersion: "two"},
	}

	for _, opts := range tests {
		out, err := Generate(res.Program, opts)
		if err == nil {
			t.Errorf("Generate(%+v) = %q, want an error", opts, out.Source)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Options
	}{
		{
			name: "empty",
			data: "",
			want: Options{Target: TargetGLSL, Version: 330},
		},
		{
			name: "glsl es",
			data: "version = 300\nes = true\nwrap_entry = true\n",
			want: Options{Target: TargetGLSL, Version: 300, ES: true, WrapEntry: true},
		},
		{
			name: "hlsl",
			data: "target = \"hlsl\"\nshader_model = \"6_0\"\n",
			want: Options{Target: TargetHLSL, Version: 330, ShaderModel: "6_0"},
		},
		{
			name: "msl",
			data: "target = \"msl\"\nmetal_version = \"2.3\"\n",
			want: Options{Target: TargetMSL, Version: 330, MetalVersion: "2.3"},
		},
		{
			name: "no optimize",
			data: "no_optimize = true\n",
			want: Options{Target: TargetGLSL, Version: 330, NoOptimize: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadOptions([]byte(tt.data))
			if err != nil {
				t.Fatalf("LoadOptions: %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "version = "},
		{"target", "target = \"spirv\"\n"},
		{"metal version", "target = \"msl\"\nmetal_version = \"9.9\"\n"},
		{"wrapped msl", "target = \"msl\"\nwrap_entry = true\n"},
		{"version", "version = 3\n"},
		{"shader model", "target = \"hlsl\"\nshader_model = \"six\"\n"},
		{"wrapped hlsl", "target = \"hlsl\"\nwrap_entry = true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadOptions([]byte(tt.data)); err == nil {
				t.Errorf("LoadOptions(%q) succeeded", tt.data)
			}
		})
	}
}
