package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

const program = `
[[type]]
name = "demo.Base"
kind = "class"

  [[type.field]]
  name = "Time"
  type = "f32"

[[type]]
name = "demo.Solid"
kind = "class"
base = "demo.Base"
shader = "pixel"

  [[type.field]]
  name = "Tint"
  type = "sim.Color"

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
name = "demo.Chain"
kind = "class"
shader = "pixel"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Float4"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldarg.0
    call demo.Chain::B()
    ldarg.0
    call demo.Chain::B()
    add
    newobj sim.Float4::.ctor(f32)
    ret
  """

  [[type.method]]
  name = "B"
  return = "f32"
  code = """
    ldarg.0
    call demo.Chain::C()
    ldc.r4 2
    mul
    ret
  """

  [[type.method]]
  name = "C"
  return = "f32"
  code = """
    ldc.r4 0.5
    ret
  """

[[type]]
name = "demo.Light"

  [[type.field]]
  name = "Power"
  type = "f32"

  [[type.method]]
  name = ".ctor"
  params = [{ name = "p", type = "f32" }]
  code = """
    ldarg.0
    ldarg p
    stfld demo.Light::Power
    ret
  """

[[type]]
name = "demo.Lamp"
kind = "class"
shader = "pixel"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Float4"
  params = [{ name = "position", type = "sim.Float2" }]
  locals = [{ name = "l", type = "demo.Light" }]
  code = """
    ldloca l
    ldc.r4 2
    call demo.Light::.ctor(f32)
    ldloca l
    ldfld demo.Light::Power
    newobj sim.Float4::.ctor(f32)
    ret
  """

[[type]]
name = "demo.Mesh"
kind = "class"
shader = "vertex"

  [[type.field]]
  name = "Position"
  type = "sim.Float4"
  role = "vertex-input"

  [[type.field]]
  name = "TexIn"
  type = "sim.Float2"
  role = "vertex-input"

  [[type.field]]
  name = "Uv"
  type = "sim.Float2"
  role = "vertex-output"

  [[type.field]]
  name = "Scale"
  type = "f32"

  [[type.method]]
  name = "GetVertexPosition"
  return = "sim.Float4"
  code = """
    ldarg.0
    ldarg.0
    ldfld demo.Mesh::TexIn
    stfld demo.Mesh::Uv
    ldarg.0
    ldfld demo.Mesh::Position
    ret
  """

[[type]]
name = "demo.Rec"
kind = "class"
shader = "pixel"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Float4"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldarg.0
    call demo.Rec::A()
    newobj sim.Float4::.ctor(f32)
    ret
  """

  [[type.method]]
  name = "A"
  return = "f32"
  code = """
    ldarg.0
    call demo.Rec::A()
    ret
  """

[[type]]
name = "demo.NoEntry"
kind = "class"
shader = "pixel"

[[type]]
name = "demo.BadVertex"
kind = "class"
shader = "vertex"

  [[type.method]]
  name = "GetVertexPosition"
  return = "sim.Float2"
  code = """
    ldc.r4 0
    newobj sim.Float2::.ctor(f32)
    ret
  """

[[type]]
name = "demo.Odd"
kind = "class"
shader = "geometry"

[[type]]
name = "demo.Plain"
kind = "class"
`

func compile(t *testing.T, shader string) (*ir.Program, error) {
	t.Helper()

	m, err := host.Parse([]byte(program))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return Compile(context.Background(), m, shader, Options{})
}

func methodNames(p *ir.Program) string {
	var out []string
	for _, m := range p.Methods {
		out = append(out, m.Key.String())
	}
	return strings.Join(out, " ")
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		shader  string
		entry   string
		methods string
		structs string
	}{
		{
			name:    "constant color",
			shader:  "demo.Solid",
			entry:   "(block\n  (return (@ctor 1f 0f 0f 1f))\n)\n",
			methods: "demo.Solid::GetPixelColor(sim.Float2)",
		},
		{
			name:    "call result returned directly",
			shader:  "demo.Calls",
			entry:   "(block\n  (return (@ctor (demo.Calls::Level ) 0f 0f 1f))\n)\n",
			methods: "demo.Calls::Level() demo.Calls::GetPixelColor(sim.Float2)",
		},
		{
			name:    "shared callee compiled once",
			shader:  "demo.Chain",
			entry:   "(block\n  (return (@ctor (+ (demo.Chain::B ) (demo.Chain::B ))))\n)\n",
			methods: "demo.Chain::C() demo.Chain::B() demo.Chain::GetPixelColor(sim.Float2)",
		},
		{
			name:    "struct constructor",
			shader:  "demo.Lamp",
			entry:   "(block\n  (return (@ctor (demo.Light::.ctor 2f).Power))\n)\n",
			methods: "demo.Light::.ctor(f32) demo.Lamp::GetPixelColor(sim.Float2)",
			structs: "Light",
		},
		{
			name:    "vertex",
			shader:  "demo.Mesh",
			entry:   "(block\n  (= Uv TexIn)\n  (return Position)\n)\n",
			methods: "demo.Mesh::GetVertexPosition()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := compile(t, tt.shader)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}

			if got := ir.Dump(p.Entry.Body); got != tt.entry {
				t.Errorf("entry body =\n%s\nwant\n%s", got, tt.entry)
			}
			if got := methodNames(p); got != tt.methods {
				t.Errorf("methods = %q, want %q", got, tt.methods)
			}
			if p.Methods[len(p.Methods)-1] != p.Entry || !p.Entry.IsEntry {
				t.Errorf("entry is not the last method")
			}

			var structs []string
			for _, s := range p.Structs {
				structs = append(structs, s.Name)
			}
			if got := strings.Join(structs, " "); got != tt.structs {
				t.Errorf("structs = %q, want %q", got, tt.structs)
			}
		})
	}
}

func TestCompile_Variables(t *testing.T) {
	tests := []struct {
		shader string
		want   string
	}{
		{"demo.Solid", "uniform Time Float, uniform Tint Float4"},
		{"demo.Mesh", "vertex-input Position Float4, vertex-input TexIn Float2, vertex-output Uv Float2, uniform Scale Float"},
	}

	for _, tt := range tests {
		t.Run(tt.shader, func(t *testing.T) {
			p, err := compile(t, tt.shader)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}

			var got []string
			for _, v := range p.Variables {
				got = append(got, v.Kind.String()+" "+v.Name+" "+v.Type.String())
			}
			if s := strings.Join(got, ", "); s != tt.want {
				t.Errorf("variables = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	a, err := compile(t, "demo.Chain")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := compile(t, "demo.Chain")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if methodNames(a) != methodNames(b) {
		t.Errorf("method order differs: %q and %q", methodNames(a), methodNames(b))
	}
	for i := range a.Methods {
		if x, y := ir.Dump(a.Methods[i].Body), ir.Dump(b.Methods[i].Body); x != y {
			t.Errorf("method %v differs:\n%s\n%s", a.Methods[i].Key, x, y)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		shader string
		is     func(error) bool
		msg    string
	}{
		{"demo.Rec", ir.IsUnsupportedConstruct, "recursion: demo.Rec::A() -> demo.Rec::A()"},
		{"demo.NoEntry", ir.IsEntryPointNotFound, "GetPixelColor(sim.Float2)"},
		{"demo.BadVertex", ir.IsEntryPointNotFound, "want sim.Float4"},
		{"demo.Odd", ir.IsUnsupportedShaderKind, "demo.Odd"},
		{"demo.Plain", ir.IsUnsupportedShaderKind, "not a shader"},
	}

	for _, tt := range tests {
		t.Run(tt.shader, func(t *testing.T) {
			p, err := compile(t, tt.shader)
			if p != nil {
				t.Errorf("Compile() returned a program with error %v", err)
			}
			if !tt.is(err) {
				t.Fatalf("Compile() error = %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("Compile() error = %q, want it to mention %q", err, tt.msg)
			}
		})
	}
}

func TestCompile_UnknownType(t *testing.T) {
	if _, err := compile(t, "demo.Missing"); err == nil {
		t.Errorf("Compile() of a missing type succeeded")
	}
}
