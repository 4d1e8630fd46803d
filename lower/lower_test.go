package lower

import (
	"context"
	"strings"
	"testing"

	"github.com/gogpu/xshader/cfg"
	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
	"github.com/gogpu/xshader/region"
	"github.com/gogpu/xshader/typemap"
)

type testEnv struct {
	*typemap.Mapper

	tab     *intrinsic.Table
	globals map[*host.Field]*ir.Variable
	callees []host.MethodKey
}

func (e *testEnv) Global(f *host.Field) *ir.Variable { return e.globals[f] }

func (e *testEnv) Resolve(m *host.Method) (*host.Method, intrinsic.Intrinsic, bool) {
	return e.tab.Resolve(m)
}

func (e *testEnv) Callee(m *host.Method) { e.callees = append(e.callees, m.Key()) }

// addMethod declares a method on owner and assembles its body. Parameters
// and locals are given as "name:type".
func addMethod(t *testing.T, m *host.Model, owner *host.Type, name, ret string, params, locals []string, src string) *host.Method {
	t.Helper()

	mt := &host.Method{Owner: owner, Name: name, Return: m.MustType(ret)}
	for _, p := range params {
		n, typ, _ := strings.Cut(p, ":")
		mt.Params = append(mt.Params, host.Param{Name: n, Type: m.MustType(typ)})
	}
	for _, l := range locals {
		n, typ, _ := strings.Cut(l, ":")
		mt.Locals = append(mt.Locals, host.Local{Name: n, Type: m.MustType(typ)})
	}
	owner.Methods = append(owner.Methods, mt)

	if src == "" {
		return mt
	}
	code, err := m.Assemble(mt, src)
	if err != nil {
		t.Fatalf("Assemble %v: %v", name, err)
	}
	mt.Code = code
	return mt
}

func setup(t *testing.T) (*host.Model, *host.Type, *testEnv) {
	t.Helper()

	m := host.NewModel()
	f32 := m.MustType("f32")

	light := &host.Type{Name: "demo.Light", Kind: host.KindStruct, Fields: []*host.Field{
		{Name: "Power", Type: f32},
	}}
	shader := &host.Type{Name: "demo.Lit", Kind: host.KindClass, Shader: host.ShaderPixel, Fields: []*host.Field{
		{Name: "Time", Type: f32},
		{Name: "Tint", Type: m.MustType("sim.Color")},
		{Name: "Hidden", Type: f32},
	}}
	for _, typ := range []*host.Type{light, shader} {
		if err := m.AddType(typ); err != nil {
			t.Fatalf("AddType: %v", err)
		}
	}

	tab, err := intrinsic.NewTable(m)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	env := &testEnv{
		Mapper:  typemap.New(shader, ir.NewStructRegistry()),
		tab:     tab,
		globals: make(map[*host.Field]*ir.Variable),
	}
	for _, f := range shader.Fields[:2] {
		typ, err := env.MapType(f.Type)
		if err != nil {
			t.Fatalf("MapType: %v", err)
		}
		env.globals[f] = &ir.Variable{Name: f.Name, Type: typ, Kind: ir.VarUniform, Field: f}
	}

	addMethod(t, m, light, host.CtorName, "void", []string{"p:f32"}, nil, `
		ldarg.0
		ldarg p
		stfld demo.Light::Power
		ret
	`)
	addMethod(t, m, light, "Scaled", "f32", []string{"k:f32"}, nil, `
		ldarg.0
		ldfld demo.Light::Power
		ldarg k
		mul
		ret
	`)

	return m, shader, env
}

func lowerMethod(t *testing.T, m *host.Model, env *testEnv, mt *host.Method) (*ir.Method, error) {
	t.Helper()

	instrs, err := disasm.Disassemble(m, mt)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	g, err := cfg.Build(mt, instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tree, err := region.Recover(g)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}

	return Lower(context.Background(), env, mt, tree)
}

func TestLower(t *testing.T) {
	tests := []struct {
		name   string
		ret    string
		params []string
		locals []string
		src    string
		want   string
	}{
		{
			name:   "constant color",
			ret:    "sim.Color",
			params: []string{"position:sim.Float2"},
			src: `
				ldc.r4 1
				ldc.r4 0
				ldc.r4 0
				ldc.r4 1
				newobj sim.Color::.ctor(f32,f32,f32,f32)
				ret
			`,
			want: "(block\n  (return (@ctor 1f 0f 0f 1f))\n)\n",
		},
		{
			name:   "uniform through intercepted math",
			ret:    "sim.Color",
			params: []string{"position:sim.Float2"},
			locals: []string{"v:f32"},
			src: `
				ldarg.0
				ldfld demo.Lit::Time
				call std.MathF::Sin(f32)
				stloc v
				ldloc v
				ldloc v
				ldc.r4 0.5
				ldc.r4 1
				newobj sim.Color::.ctor(f32,f32,f32,f32)
				ret
			`,
			want: "(block\n  (= v (@sin Time))\n  (return (@ctor v v 0.5f 1f))\n)\n",
		},
		{
			name:   "dup spills",
			ret:    "f32",
			params: []string{"x:f32"},
			src: `
				ldarg x
				ldarg x
				mul
				dup
				add
				ret
			`,
			want: "(block\n  (= tmp0 (* x x))\n  (return (+ tmp0 tmp0))\n)\n",
		},
		{
			name:   "ternary from stack arms",
			ret:    "f32",
			params: []string{"c:bool", "a:f32", "b:f32"},
			src: `
				ldarg c
				brtrue.s yes
				ldarg b
				br.s done
			yes:
				ldarg a
			done:
				ret
			`,
			want: "(block\n  (return (? (!c) b a))\n)\n",
		},
		{
			name:   "if else returns fold",
			ret:    "f32",
			params: []string{"c:bool", "a:f32"},
			src: `
				ldarg c
				brfalse.s other
				ldarg a
				ret
			other:
				ldc.r4 0
				ret
			`,
			want: "(block\n  (return (? c a 0f))\n)\n",
		},
		{
			name:   "struct constructor and method",
			ret:    "f32",
			params: []string{"k:f32"},
			locals: []string{"l:demo.Light"},
			src: `
				ldloca l
				ldc.r4 2
				call demo.Light::.ctor(f32)
				ldloca l
				ldarg k
				call demo.Light::Scaled(f32)
				ret
			`,
			want: "(block\n  (= l (demo.Light::.ctor 2f))\n  (return (demo.Light::Scaled l k))\n)\n",
		},
		{
			name:   "color channel",
			ret:    "bool",
			params: []string{"c:sim.Color"},
			src: `
				ldarga c
				ldfld sim.Color::R
				ldc.r4 0.5
				cgt
				ret
			`,
			want: "(block\n  (return (> c.r 0.5f))\n)\n",
		},
		{
			name: "bool literal",
			ret:  "bool",
			src: `
				ldc.i4.1
				ret
			`,
			want: "(block\n  (return true)\n)\n",
		},
		{
			name:   "while loop",
			ret:    "f32",
			params: []string{"n:i32"},
			locals: []string{"i:i32", "s:f32"},
			src: `
				ldc.r4 0
				stloc s
				ldc.i4.0
				stloc i
				br.s cond
			body:
				ldloc s
				ldloc i
				conv.r4
				add
				stloc s
				ldloc i
				ldc.i4.1
				add
				stloc i
			cond:
				ldloc i
				ldarg n
				blt.s body
				ldloc s
				ret
			`,
			want: `(block
  (= s 0f)
  (= i 0)
  (loop
    (block
      (if (>= i n)
        (block
          (goto break)
        )
      )
      (= s (+ s (Float i)))
      (= i (+ i 1))
    )
  )
  (return s)
)
`,
		},
		{
			name:   "short circuit condition",
			ret:    "f32",
			params: []string{"a:f32", "b:f32"},
			src: `
				ldarg a
				ldc.r4 0
				ble.un.s skip
				ldarg b
				ldc.r4 0
				ble.un.s skip
				ldc.r4 1
				ret
			skip:
				ldc.r4 0
				ret
			`,
			want: `(block
  (if (&& (> a 0f) (> b 0f))
    (block
      (return 1f)
    )
  )
  (return 0f)
)
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, shader, env := setup(t)
			mt := addMethod(t, m, shader, "Run", tt.ret, tt.params, tt.locals, tt.src)

			got, err := lowerMethod(t, m, env, mt)
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if dump := ir.Dump(got.Body); dump != tt.want {
				t.Errorf("Lower() body =\n%s\nwant\n%s", dump, tt.want)
			}
			if !got.OnShader {
				t.Errorf("OnShader = false for a shader method")
			}
		})
	}
}

func TestLower_StructMethods(t *testing.T) {
	m, _, env := setup(t)
	light := m.MustType("demo.Light")

	tests := []struct {
		name   string
		method string
		want   string
		ret    string
		params string
	}{
		{"constructor", "demo.Light::.ctor(f32)", "(block\n  (= this.Power p)\n  (return this)\n)\n", "Light", "p"},
		{"instance method", "demo.Light::Scaled(f32)", "(block\n  (return (* this.Power k))\n)\n", "Float", "this k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := host.FindMethod(m, tt.method)
			if err != nil {
				t.Fatalf("FindMethod: %v", err)
			}
			if mt.Owner != light {
				t.Fatalf("owner = %v", mt.Owner)
			}

			got, err := lowerMethod(t, m, env, mt)
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if dump := ir.Dump(got.Body); dump != tt.want {
				t.Errorf("Lower() body =\n%s\nwant\n%s", dump, tt.want)
			}
			if got.Return.String() != tt.ret {
				t.Errorf("Return = %v, want %v", got.Return, tt.ret)
			}

			var names []string
			for _, p := range got.Params {
				names = append(names, p.Name)
			}
			if s := strings.Join(names, " "); s != tt.params {
				t.Errorf("Params = %q, want %q", s, tt.params)
			}
			if got.OnShader {
				t.Errorf("OnShader = true for a struct method")
			}
		})
	}
}

func TestLower_Calls(t *testing.T) {
	m, shader, env := setup(t)

	helper := addMethod(t, m, shader, "Helper", "f32", []string{"x:f32"}, nil, `
		ldarg x
		ret
	`)
	mt := addMethod(t, m, shader, "Run", "f32", []string{"k:f32"}, []string{"l:demo.Light"}, `
		ldloca l
		ldc.r4 2
		call demo.Light::.ctor(f32)
		ldarg.0
		ldarg k
		call demo.Lit::Helper(f32)
		ldloca l
		ldarg k
		call demo.Light::Scaled(f32)
		add
		ret
	`)

	got, err := lowerMethod(t, m, env, mt)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	want := []string{
		"demo.Light::.ctor(f32)",
		"demo.Lit::Helper(f32)",
		"demo.Light::Scaled(f32)",
	}
	if len(got.Calls) != len(want) {
		t.Fatalf("Calls = %v, want %v", got.Calls, want)
	}
	for i, k := range got.Calls {
		if k.String() != want[i] {
			t.Errorf("Calls[%d] = %v, want %v", i, k, want[i])
		}
		if env.callees[i] != k {
			t.Errorf("reported callee %d = %v, want %v", i, env.callees[i], k)
		}
	}

	// The receiver of the instance call is passed by reference.
	if !got.Locals[0].Pinned {
		t.Errorf("local %v is not pinned", got.Locals[0].Name)
	}
	if helper.Key().String() != want[1] {
		t.Errorf("helper key = %v", helper.Key())
	}

	wantBody := "(block\n  (= l (demo.Light::.ctor 2f))\n  (return (+ (demo.Lit::Helper k) (demo.Light::Scaled l k)))\n)\n"
	if dump := ir.Dump(got.Body); dump != wantBody {
		t.Errorf("Lower() body =\n%s\nwant\n%s", dump, wantBody)
	}
}

func TestLower_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"null", "ldnull\npop\nldc.r4 0\nret", "null reference"},
		{"unregistered field", "ldarg.0\nldfld demo.Lit::Hidden\nret", "not a shader variable"},
		{"no body", "ldarg.0\ncall demo.Lit::Missing()\nret", "has no body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, shader, env := setup(t)
			addMethod(t, m, shader, "Missing", "f32", nil, nil, "")
			mt := addMethod(t, m, shader, "Run", "f32", nil, nil, tt.src)

			_, err := lowerMethod(t, m, env, mt)
			if !ir.IsUnsupportedConstruct(err) {
				t.Fatalf("Lower() error = %v, want UnsupportedConstruct", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("Lower() error = %q, want it to mention %q", err, tt.msg)
			}
			if !strings.Contains(err.Error(), "demo.Lit::Run()") {
				t.Errorf("Lower() error = %q does not name the method", err)
			}
		})
	}
}

func TestLower_CallInTernaryTestRunsOnce(t *testing.T) {
	m, shader, env := setup(t)

	flag := addMethod(t, m, shader, "Flag", "bool", nil, nil, `
		ldc.i4.1
		ret
	`)
	mt := addMethod(t, m, shader, "Run", "f32", nil, []string{"x:f32"}, `
		ldarg.0
		call demo.Lit::Flag()
		brtrue.s yes
		ldc.r4 2
		br.s done
	yes:
		ldc.r4 1
	done:
		stloc x
		ldloc x
		ret
	`)

	got, err := lowerMethod(t, m, env, mt)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	calls := 0
	ir.Walk(got.Body, func(e ir.Expr) bool {
		if c, ok := e.(*ir.Call); ok && c.Method == flag.Key() {
			calls++
		}
		return true
	})
	if calls != 1 {
		t.Errorf("Flag called %d times, want 1:\n%s", calls, ir.Dump(got.Body))
	}
}

func TestLower_SpillBeforeByRefCall(t *testing.T) {
	m, shader, env := setup(t)

	addMethod(t, m, m.MustType("demo.Light"), "Boost", "void", nil, nil, `
		ldarg.0
		ldarg.0
		ldfld demo.Light::Power
		ldc.r4 1
		add
		stfld demo.Light::Power
		ret
	`)
	mt := addMethod(t, m, shader, "Run", "f32", nil, []string{"l:demo.Light"}, `
		ldloca l
		ldc.r4 0
		call demo.Light::.ctor(f32)
		ldloca l
		ldfld demo.Light::Power
		ldloca l
		call demo.Light::Boost()
		ldloca l
		ldfld demo.Light::Power
		add
		ret
	`)

	got, err := lowerMethod(t, m, env, mt)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	// The first read of l.Power happens before Boost writes it.
	want := "(block\n" +
		"  (= l (demo.Light::.ctor 0f))\n" +
		"  (= tmp0 l.Power)\n" +
		"  (demo.Light::Boost l)\n" +
		"  (return (+ tmp0 l.Power))\n" +
		")\n"
	if dump := ir.Dump(got.Body); dump != want {
		t.Errorf("Lower() body =\n%s\nwant\n%s", dump, want)
	}
}
