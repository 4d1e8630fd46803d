package cfg

import (
	"strings"
	"testing"

	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

func build(t *testing.T, src string) (*Graph, error) {
	t.Helper()

	m := host.NewModel()
	f32 := m.MustType("f32")
	mt := &host.Method{
		Name:   "F",
		Static: true,
		Params: []host.Param{{Name: "a", Type: f32}, {Name: "b", Type: f32}},
		Return: f32,
		Locals: []host.Local{{Name: "x", Type: f32}},
	}
	if err := m.AddType(&host.Type{Name: "demo.Fn", Kind: host.KindClass, Methods: []*host.Method{mt}}); err != nil {
		t.Fatalf("AddType: %v", err)
	}

	code, err := m.Assemble(mt, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	mt.Code = code

	instrs, err := disasm.Disassemble(m, mt)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	return Build(mt, instrs)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "straight line",
			src: `
				ldarg.0
				ldarg.1
				add
				ret`,
			want: "B0@IL_0000: always->exit\n",
		},
		{
			name: "brfalse takes the false edge",
			src: `
				ldarg.0
				brfalse.s other
				ldarg.0
				ret
			other:
				ldarg.1
				ret`,
			want: "" +
				"B0@IL_0000: true->B1@IL_0003 false->B2@IL_0005\n" +
				"B1@IL_0003: always->exit\n" +
				"B2@IL_0005: always->exit\n",
		},
		{
			name: "compare branch",
			src: `
				ldarg.0
				ldarg.1
				blt.s less
				ldarg.1
				ret
			less:
				ldarg.0
				ret`,
			want: "" +
				"B0@IL_0000: true->B2@IL_0006 false->B1@IL_0004\n" +
				"B1@IL_0004: always->exit\n" +
				"B2@IL_0006: always->exit\n",
		},
		{
			name: "loop",
			src: `
				br.s cond
			body:
				ldarg.0
				ldc.r4 1
				add
				starg.s 0
			cond:
				ldarg.0
				ldarg.1
				blt.s body
				ldarg.0
				ret`,
			want: "" +
				"B0@IL_0000: always->B2@IL_000b\n" +
				"B1@IL_0002: always->B2@IL_000b\n" +
				"B2@IL_000b: true->B1@IL_0002 false->B3@IL_000f\n" +
				"B3@IL_000f: always->exit\n",
		},
		{
			name: "branch to next collapses",
			src: `
				ldarg.0
				brtrue.s next
			next:
				ldarg.1
				ret`,
			want: "" +
				"B0@IL_0000: always->B1@IL_0003\n" +
				"B1@IL_0003: always->exit\n",
		},
		{
			name: "unreachable block is dropped",
			src: `
				ldarg.0
				ret
				ldarg.1
				ret`,
			want: "B0@IL_0000: always->exit\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := build(t, tt.src)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := g.String(); got != tt.want {
				t.Errorf("Build() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBuild_Blocks(t *testing.T) {
	g, err := build(t, `
		ldarg.0
		ldarg.1
		bge.s done
		ldarg.1
		starg.s 0
	done:
		ldarg.0
		ret`)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.Len() != 4 || g.Exit.ID != 3 {
		t.Fatalf("Len() = %d, exit ID = %d, want 4 and 3", g.Len(), g.Exit.ID)
	}

	entry := g.Entry()
	if !entry.IsConditional() || entry.IsReturn() {
		t.Errorf("entry: IsConditional = %v, IsReturn = %v", entry.IsConditional(), entry.IsReturn())
	}
	if n := len(entry.Body()); n != 2 {
		t.Errorf("entry body has %d instructions, want 2", n)
	}
	if got := entry.Succ(True); got != g.Blocks[2] {
		t.Errorf("Succ(True) = %v, want %v", got, g.Blocks[2])
	}
	if e := entry.Fallthrough(); e == nil || e.To != g.Blocks[1] || e.Kind != False {
		t.Errorf("Fallthrough() = %+v, want the false edge to B1", e)
	}

	done := g.Blocks[2]
	if len(done.Preds) != 2 || !done.IsReturn() {
		t.Errorf("%v: %d preds, IsReturn = %v", done, len(done.Preds), done.IsReturn())
	}
	if len(g.Exit.Preds) != 1 || !g.Exit.IsExit() || g.Exit.Term() != nil {
		t.Errorf("exit: %d preds", len(g.Exit.Preds))
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		is   func(error) bool
		want string
	}{
		{"throw", "ldnull\nthrow", ir.IsUnsupportedConstruct, "exception region"},
		{"leave", "leave 0\nldarg.0\nret", ir.IsUnsupportedConstruct, "exception region"},
		{"falls off", "ldarg.0\npop", ir.IsDisassembly, "falls off"},
		{"no code", "", ir.IsDisassembly, "no code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.src)
			if err == nil {
				t.Fatal("Build succeeded")
			}
			if !tt.is(err) {
				t.Errorf("wrong error kind: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}
