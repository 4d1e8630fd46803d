// Package compiler drives the translation of one shader type into an
// ir.Program.
//
// Starting from the entry method the shader kind selects, every reachable
// method is disassembled, structured, lowered to an expression tree and
// optimized. Calls discovered on the way are queued once. Host math calls
// are replaced through the intercept table, and library intrinsics are
// lowered inline instead of being compiled.
package compiler

import (
	"context"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/gogpu/xshader/cfg"
	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
	"github.com/gogpu/xshader/lower"
	"github.com/gogpu/xshader/opt"
	"github.com/gogpu/xshader/region"
	"github.com/gogpu/xshader/typemap"
)

// Options configures a compilation.
type Options struct {
	// Intercepts is the intercept table resolved against the reflector.
	// It is built on demand when nil.
	Intercepts *intrinsic.Table

	// NoOptimize skips the tree passes. The result is still validated.
	NoOptimize bool
}

// Entry point names per shader kind.
const (
	PixelEntry   = "GetPixelColor"
	VertexEntry  = "GetVertexPosition"
	ComputeEntry = "RunThread"
)

type compilation struct {
	*typemap.Mapper

	r      host.Reflector
	tab    *intrinsic.Table
	shader *host.Type
	opts   Options

	globals map[host.FieldKey]*ir.Variable
	vars    []*ir.Variable

	queue  []*host.Method
	queued map[host.MethodKey]bool

	methods map[host.MethodKey]*ir.Method
}

// Compile translates the shader type named shader. All errors are fatal:
// no partial program is returned.
func Compile(ctx context.Context, r host.Reflector, shader string, opts Options) (p *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile shader", "type", shader)
	defer tr.Finish("err", &err)

	t, ok := r.LookupType(shader)
	if !ok {
		return nil, errors.New("unknown type %v", shader)
	}

	c := &compilation{
		Mapper:  typemap.New(t, ir.NewStructRegistry()),
		r:       r,
		tab:     opts.Intercepts,
		shader:  t,
		opts:    opts,
		globals: make(map[host.FieldKey]*ir.Variable),
		queued:  make(map[host.MethodKey]bool),
		methods: make(map[host.MethodKey]*ir.Method),
	}

	if c.tab == nil {
		c.tab, err = intrinsic.NewTable(r)
		if err != nil {
			return nil, errors.Wrap(err, "intercept table")
		}
	}

	entry, err := c.entry()
	if err != nil {
		return nil, err
	}

	if err = c.fields(); err != nil {
		return nil, err
	}

	c.Callee(entry)

	for len(c.queue) != 0 {
		m := c.queue[0]
		c.queue = c.queue[1:]

		out, err := c.method(ctx, m)
		if err != nil {
			return nil, err
		}

		c.methods[out.Key] = out
	}

	order, err := c.order(entry.Key())
	if err != nil {
		return nil, err
	}

	p = &ir.Program{
		Shader:    t.Key(),
		Kind:      t.Shader,
		Methods:   order,
		Structs:   c.Structs().Structs(),
		Variables: c.vars,
		Entry:     order[len(order)-1],
	}
	p.Entry.IsEntry = true

	if errs, err := ir.Validate(p); err != nil {
		return nil, err
	} else if len(errs) != 0 {
		e := ir.Internal("%v", errs[0].Message)
		e.Method = errs[0].Method
		return nil, e
	}

	tr.Printw("shader compiled", "methods", len(p.Methods), "structs", len(p.Structs), "variables", len(p.Variables))

	return p, nil
}

// entry finds the entry method the shader kind requires.
func (c *compilation) entry() (*host.Method, error) {
	t := c.shader
	typ := func(name string) *host.Type {
		x, _ := c.r.LookupType(name)
		return x
	}

	var (
		m    *host.Method
		want string
		ret  []string
	)

	switch t.Shader {
	case host.ShaderPixel:
		m = t.FindMethod(PixelEntry, typ("sim.Float2"))
		want, ret = PixelEntry+"(sim.Float2)", []string{"sim.Color", "sim.Float4"}
	case host.ShaderVertex:
		m = t.FindMethod(VertexEntry)
		want, ret = VertexEntry+"()", []string{"sim.Float4"}
	case host.ShaderCompute:
		i32 := typ("i32")
		m = t.FindMethod(ComputeEntry, i32, i32, i32)
		want, ret = ComputeEntry+"(i32,i32,i32)", []string{"void"}
	case host.ShaderNone:
		return nil, ir.NewError(ir.ErrUnsupportedShaderKind, "type %v is not a shader", t)
	default:
		return nil, ir.NewError(ir.ErrUnsupportedShaderKind, "type %v declares shader kind %v", t, t.Shader)
	}

	if m == nil || m.Static || m.Code == nil {
		return nil, ir.NewError(ir.ErrEntryPointNotFound, "%v shader %v has no instance method %v", t.Shader, t, want)
	}

	for _, r := range ret {
		if m.Return != nil && m.Return.Name == r || m.Return == nil && r == "void" {
			return m, nil
		}
	}

	return nil, ir.NewError(ir.ErrEntryPointNotFound, "%v returns %v, want %v", m, m.Return, strings.Join(ret, " or "))
}

// fields classifies the shader fields, base type first.
func (c *compilation) fields() error {
	for _, f := range c.shader.AllFields() {
		t, err := c.MapType(f.Type)
		if err != nil {
			return errors.Wrap(err, "field %v", f)
		}
		if ir.IsVoid(t) {
			return ir.NewError(ir.ErrUnsupportedType, "field %v has no shader type", f)
		}

		kind := ir.VarUniform
		switch f.Role {
		case host.RoleVertexInput:
			kind = ir.VarVertexInput
		case host.RoleVertexOutput:
			kind = ir.VarVertexOutput
		}

		v := &ir.Variable{Name: f.Name, Type: t, Kind: kind, Field: f}
		c.globals[f.Key()] = v
		c.vars = append(c.vars, v)
	}
	return nil
}

// Global implements lower.Env.
func (c *compilation) Global(f *host.Field) *ir.Variable { return c.globals[f.Key()] }

// Resolve implements lower.Env.
func (c *compilation) Resolve(m *host.Method) (*host.Method, intrinsic.Intrinsic, bool) {
	return c.tab.Resolve(m)
}

// Callee implements lower.Env.
func (c *compilation) Callee(m *host.Method) {
	k := m.Key()
	if c.queued[k] {
		return
	}
	c.queued[k] = true
	c.queue = append(c.queue, m)
}

func (c *compilation) method(ctx context.Context, m *host.Method) (out *ir.Method, err error) {
	key := m.Key().String()

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile method", "method", key)
	defer tr.Finish("err", &err)

	instrs, err := disasm.Disassemble(c.r, m)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", key)
	}

	if tr.If("dump_disasm") {
		var sb strings.Builder
		for i := range instrs {
			sb.WriteString(instrs[i].String())
			sb.WriteByte('\n')
		}
		tr.Printw("disassembly", "method", key, "code", sb.String())
	}

	g, err := cfg.Build(m, instrs)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", key)
	}

	tree, err := region.Recover(g)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", key)
	}

	if tr.If("dump_regions") {
		tr.Printw("regions", "method", key, "cfg", g.String(), "tree", region.Dump(tree))
	}

	out, err = lower.Lower(ctx, c, m, tree)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", key)
	}

	if c.opts.NoOptimize {
		err = ir.ValidateMethod(out)
	} else {
		err = opt.Run(ctx, out)
	}
	if err != nil {
		return nil, errors.Wrap(err, "method %v", key)
	}

	return out, nil
}

// order sorts the compiled methods callees first, the entry last. A call
// cycle is an error: shader languages have no recursion.
func (c *compilation) order(entry host.MethodKey) ([]*ir.Method, error) {
	const (
		visiting = 1
		done     = 2
	)

	state := make(map[host.MethodKey]int, len(c.methods))
	var out []*ir.Method
	var path []host.MethodKey

	var visit func(k host.MethodKey) error
	visit = func(k host.MethodKey) error {
		switch state[k] {
		case done:
			return nil
		case visiting:
			var cycle []string
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append([]string{path[i].String()}, cycle...)
				if path[i] == k {
					break
				}
			}
			cycle = append(cycle, k.String())
			return ir.NewError(ir.ErrUnsupportedConstruct, "recursion: %v", strings.Join(cycle, " -> "))
		}

		m := c.methods[k]
		if m == nil {
			return ir.Internal("method %v was called but never compiled", k)
		}

		state[k] = visiting
		path = append(path, k)

		for _, callee := range m.Calls {
			if err := visit(callee); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[k] = done
		out = append(out, m)

		return nil
	}

	if err := visit(entry); err != nil {
		return nil, err
	}

	return out, nil
}
