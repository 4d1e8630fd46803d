package host

import (
	"strings"
	"testing"
)

const hostProgram = `
[[type]]
name = "demo.Base"
kind = "class"

  [[type.field]]
  name = "Time"
  type = "f32"

[[type]]
name = "demo.Glow"
kind = "class"
base = "demo.Base"
shader = "pixel"

  [[type.field]]
  name = "Tint"
  type = "sim.Color"

  [[type.field]]
  name = "Weights"
  type = "f32[4]"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Color"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldarg.0
    call demo.Glow::Shade()
    ret
  """

  [[type.method]]
  name = "Shade"
  return = "sim.Color"
  code = """
    ldarg.0
    ldfld demo.Glow::Tint
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
  name = "Uv"
  type = "sim.Float2"
  role = "out"

[[type]]
name = "demo.Odd"
kind = "class"
shader = "geometry"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(hostProgram))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	glow := m.MustType("demo.Glow")
	if glow.Shader != ShaderPixel {
		t.Errorf("demo.Glow shader = %v, want pixel", glow.Shader)
	}
	if glow.Base != m.MustType("demo.Base") {
		t.Errorf("demo.Glow base = %v, want demo.Base", glow.Base)
	}
	if f := glow.Field("Time"); f == nil || f.Owner.Name != "demo.Base" {
		t.Errorf("inherited field Time not found")
	}

	w := glow.Field("Weights")
	if w == nil || w.Type.Kind != KindArray || w.Type.Len != 4 || w.Type.Elem.Name != "f32" {
		t.Errorf("Weights type = %v, want f32[4]", w.Type)
	}

	entry := glow.FindMethod("GetPixelColor", m.MustType("sim.Float2"))
	if entry == nil {
		t.Fatal("GetPixelColor not declared")
	}
	if len(entry.Code) == 0 {
		t.Errorf("GetPixelColor has no code")
	}
	if entry.Return.Name != "sim.Color" {
		t.Errorf("GetPixelColor return = %v, want sim.Color", entry.Return)
	}

	mesh := m.MustType("demo.Mesh")
	roles := []Role{RoleVertexInput, RoleVertexOutput}
	for i, f := range mesh.Fields {
		if f.Role != roles[i] {
			t.Errorf("%v role = %v, want %v", f, f.Role, roles[i])
		}
	}

	if m.MustType("demo.Odd").Shader != ShaderUnsupported {
		t.Errorf("unknown shader kind was not recorded as unsupported")
	}

	var names []string
	for _, st := range m.ShaderTypes() {
		names = append(names, st.Name)
	}
	if got, want := strings.Join(names, ","), "demo.Glow,demo.Mesh,demo.Odd"; got != want {
		t.Errorf("ShaderTypes() = %q, want %q", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown field type",
			src:  "[[type]]\nname = \"demo.S\"\n[[type.field]]\nname = \"A\"\ntype = \"demo.Missing\"\n",
			want: "unknown type",
		},
		{
			name: "unknown role",
			src:  "[[type]]\nname = \"demo.S\"\n[[type.field]]\nname = \"A\"\ntype = \"f32\"\nrole = \"sideways\"\n",
			want: "unknown field role",
		},
		{
			name: "bad kind",
			src:  "[[type]]\nname = \"demo.S\"\nkind = \"enum\"\n",
			want: "unknown kind",
		},
		{
			name: "bad assembly",
			src:  "[[type]]\nname = \"demo.S\"\n[[type.method]]\nname = \"M\"\ncode = \"bogus\"\n",
			want: "unknown mnemonic",
		},
		{
			name: "malformed toml",
			src:  "[[type]\n",
			want: "parse host program",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}
