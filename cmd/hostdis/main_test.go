package main

import (
	"strings"
	"testing"

	"github.com/gogpu/xshader/host"
)

const program = `
[[type]]
name = "demo.Gate"
kind = "class"
shader = "pixel"

  [[type.field]]
  name = "On"
  type = "bool"

  [[type.method]]
  name = "GetPixelColor"
  return = "sim.Float4"
  params = [{ name = "position", type = "sim.Float2" }]
  code = """
    ldarg.0
    ldfld demo.Gate::On
    brfalse.s off
    ldc.r4 1
    newobj sim.Float4::.ctor(f32)
    ret
  off:
    ldc.r4 0
    newobj sim.Float4::.ctor(f32)
    ret
  """
`

func TestListMethod(t *testing.T) {
	m, err := host.Parse([]byte(program))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	gate := m.MustType("demo.Gate")
	mt := gate.Methods[0]

	tests := []struct {
		name   string
		blocks bool
		want   []string
		absent []string
	}{
		{
			name:   "blocks",
			blocks: true,
			want: []string{
				"; demo.Gate::GetPixelColor(sim.Float2) -> sim.Float4\n",
				"B0@IL_0000:\n",
				"    IL_0000: ldarg 0",
				"; -> true B1@",
				"ret",
			},
		},
		{
			name:   "flat",
			blocks: false,
			want: []string{
				"; demo.Gate::GetPixelColor(sim.Float2) -> sim.Float4\n",
				"    IL_0000: ldarg 0",
			},
			absent: []string{"B0@IL_0000:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := listMethod(&sb, m, mt, tt.blocks); err != nil {
				t.Fatalf("listMethod: %v", err)
			}

			out := sb.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("listing =\n%s\nwant it to contain %q", out, w)
				}
			}
			for _, w := range tt.absent {
				if strings.Contains(out, w) {
					t.Errorf("listing =\n%s\nwant no %q", out, w)
				}
			}
		})
	}
}
