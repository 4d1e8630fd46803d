// Package lower turns the structured region tree of a host method into a
// typed expression tree by interpreting the operand stack symbolically.
package lower

import (
	"context"
	"strconv"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/gogpu/xshader/cfg"
	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
	"github.com/gogpu/xshader/region"
)

// Env is the part of a compilation the tree builder consults.
type Env interface {
	// MapType returns the shader type of a host type. Shader classes map
	// to Void.
	MapType(t *host.Type) (ir.Type, error)

	// IsShader reports whether t is the shader type or one of its bases.
	IsShader(t *host.Type) bool

	// Global returns the shader-level variable backing a shader field, or
	// nil.
	Global(f *host.Field) *ir.Variable

	// Resolve applies the intercept table to a callee and classifies the
	// method that is called in the end.
	Resolve(m *host.Method) (*host.Method, intrinsic.Intrinsic, bool)

	// Callee reports a call to a method that must be compiled too.
	Callee(m *host.Method)
}

// value is an operand stack slot. Addr marks the address of a storage
// location: e is then the location itself.
type value struct {
	e    ir.Expr
	addr bool
}

type builder struct {
	env Env
	m   *host.Method
	key string
	out *ir.Method

	// args holds the variable of each argument slot. The shader receiver
	// has none.
	args   []*ir.Variable
	locals []*ir.Variable

	// this is the struct receiver: a reference parameter, or in value type
	// constructors a local that is returned.
	this *ir.Variable
	ctor bool

	stack []value
	cur   *ir.Block
	loops []*ir.Loop

	calls map[host.MethodKey]bool
	temps int

	in *disasm.Instruction
}

// Lower builds the expression tree of m from its region tree.
func Lower(ctx context.Context, env Env, m *host.Method, tree *region.Sequence) (*ir.Method, error) {
	b := &builder{
		env:   env,
		m:     m,
		key:   m.Key().String(),
		calls: make(map[host.MethodKey]bool),
	}

	if err := b.signature(); err != nil {
		return nil, err
	}

	body := ir.NewBlock()
	b.cur = body

	if err := b.seq(tree); err != nil {
		return nil, err
	}
	if len(b.stack) != 0 {
		return nil, b.internal("%d values left on the stack at the end of the method", len(b.stack))
	}

	b.out.Body = foldReturn(body, b.out.Return)

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_tree") {
		tr.Printw("expression tree", "method", b.key, "tree", ir.Dump(b.out.Body))
	}

	return b.out, nil
}

func (b *builder) offset() int {
	if b.in == nil {
		return 0
	}
	return b.in.Offset
}

func (b *builder) errorf(kind ir.ErrorKind, format string, args ...any) error {
	return ir.NewError(kind, format, args...).At(b.key, b.offset())
}

func (b *builder) internal(format string, args ...any) error {
	e := ir.Internal(format, args...)
	e.Method, e.Offset = b.key, b.offset()
	return e
}

// at attributes an error from the environment to the current instruction.
func (b *builder) at(err error) error {
	if e, ok := err.(*ir.Error); ok {
		return e.At(b.key, b.offset())
	}
	return errors.Wrap(err, "%v", b.key)
}

func (b *builder) mapType(t *host.Type) (ir.Type, error) {
	mt, err := b.env.MapType(t)
	if err != nil {
		return nil, b.at(err)
	}
	return mt, nil
}

func (b *builder) signature() error {
	m := b.m
	owner := m.Owner

	ret, err := b.mapType(m.Return)
	if err != nil {
		return err
	}

	b.out = &ir.Method{
		Key:           m.Key(),
		Name:          m.Name,
		Owner:         owner.Key(),
		OwnerName:     owner.ShortName(),
		Return:        ret,
		IsConstructor: m.IsCtor(),
		OnShader:      b.env.IsShader(owner),
	}

	b.args = make([]*ir.Variable, m.ArgCount())
	slot := 0

	if m.HasThis() {
		slot = 1

		switch {
		case b.out.OnShader:
		case owner.Kind == host.KindStruct:
			st, err := b.mapType(owner)
			if err != nil {
				return err
			}
			if m.IsCtor() {
				b.ctor = true
				b.this = &ir.Variable{Name: "this", Type: st, Kind: ir.VarLocal}
				b.out.Locals = append(b.out.Locals, b.this)
				b.out.Return = st
			} else {
				b.this = &ir.Variable{Name: "this", Type: ir.ReferenceType{Elem: st}, Kind: ir.VarParameter}
				b.out.Params = append(b.out.Params, b.this)
			}
			b.args[0] = b.this
		default:
			return b.errorf(ir.ErrUnsupportedConstruct, "instance method of class %v", owner)
		}
	}

	for i, p := range m.Params {
		t, err := b.mapType(p.Type)
		if err != nil {
			return err
		}
		if ir.IsVoid(t) {
			return b.errorf(ir.ErrUnsupportedType, "parameter %v of type %v", p.Name, p.Type)
		}

		name := p.Name
		if name == "" {
			name = "arg" + strconv.Itoa(i)
		}

		v := &ir.Variable{Name: name, Type: t, Kind: ir.VarParameter}
		b.args[slot+i] = v
		b.out.Params = append(b.out.Params, v)
	}

	for i, l := range m.Locals {
		t, err := b.mapType(l.Type)
		if err != nil {
			return err
		}
		if ir.IsVoid(t) {
			return b.errorf(ir.ErrUnsupportedType, "local %d of type %v", i, l.Type)
		}

		name := l.Name
		if name == "" {
			name = "local" + strconv.Itoa(i)
		}

		v := &ir.Variable{Name: name, Type: t, Kind: ir.VarLocal}
		b.locals = append(b.locals, v)
		b.out.Locals = append(b.out.Locals, v)
	}

	return nil
}

func (b *builder) seq(s *region.Sequence) error {
	if s == nil {
		return nil
	}
	for _, n := range s.Nodes {
		if err := b.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) node(n region.Node) error {
	switch n := n.(type) {
	case *region.Sequence:
		return b.seq(n)
	case *region.Basic:
		return b.basic(n.Block)
	case *region.If:
		return b.ifNode(n)
	case *region.Loop:
		return b.loop(n)
	case *region.Break:
		return b.jump(func(l *ir.Loop) *ir.Label { return l.Break })
	case *region.Continue:
		return b.jump(func(l *ir.Loop) *ir.Label { return l.Continue })
	}
	return b.internal("unexpected region %T", n)
}

func (b *builder) basic(blk *cfg.Block) error {
	if err := b.instrs(blk.Body()); err != nil {
		return err
	}

	// A conditional branch to the next block only discards its operands.
	if t := blk.Term(); t != nil && t.Op.IsConditional() {
		b.in = t
		for range t.Pop {
			if err := b.discard(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *builder) jump(label func(*ir.Loop) *ir.Label) error {
	if len(b.loops) == 0 {
		return b.internal("loop exit outside a loop")
	}
	b.cur.Append(&ir.Goto{Target: label(b.loops[len(b.loops)-1])})
	return nil
}

func (b *builder) loop(n *region.Loop) error {
	// Stack values must survive the iterations unchanged.
	for i := range b.stack {
		if !isConst(b.stack[i].e) {
			b.spill(i)
		}
	}

	l := ir.NewLoop(ir.NewBlock())
	base := b.stack

	saved := b.cur
	b.cur = l.Body
	b.stack = clone(base)
	b.loops = append(b.loops, l)

	err := b.seq(n.Body)

	b.loops = b.loops[:len(b.loops)-1]
	b.cur = saved
	b.stack = base

	if err != nil {
		return err
	}

	b.cur.Append(l)
	return nil
}

// arm lowers one arm of an if into its own block, starting from a copy of
// the stack.
func (b *builder) arm(s *region.Sequence, base []value) (*ir.Block, []value, error) {
	saved := b.cur
	blk := ir.NewBlock()
	b.cur = blk
	b.stack = clone(base)

	err := b.seq(s)

	stack := b.stack
	b.cur = saved
	return blk, stack, err
}

func (b *builder) ifNode(n *region.If) error {
	test, err := b.cond(n.Cond)
	if err != nil {
		return err
	}

	base := b.stack

	then, ts, err := b.arm(n.Then, base)
	if err != nil {
		return err
	}
	els, es, err := b.arm(n.Else, base)
	if err != nil {
		return err
	}

	tf, ef := fallsThrough(then), fallsThrough(els)
	consumed := false

	switch {
	case tf && ef:
		if len(ts) != len(es) {
			return b.internal("if arms leave %d and %d values", len(ts), len(es))
		}
		b.stack, consumed = b.mergeArms(test, then, els, ts, es)
	case tf:
		b.stack = ts
	case ef:
		b.stack = es
	default:
		b.stack = base
	}

	if then.IsEmpty() && els.IsEmpty() {
		// Everything ended up on the stack. A test that is not part of a
		// ternary there still runs for its calls.
		if !consumed && hasCall(test) {
			b.stmt(&ir.Conditional{Test: test, Success: then})
		}
		return nil
	}

	c := &ir.Conditional{Test: test, Success: then}
	if !els.IsEmpty() {
		c.Failure = els
	}
	b.stmt(c)

	return nil
}

// mergeArms joins the stacks two arms leave behind. Slots both arms left
// alone are kept. A single differing value of two statement-free arms
// becomes a ternary, anything else goes through shared temporaries. The
// result reports whether a ternary on the returned stack holds test.
func (b *builder) mergeArms(test ir.Expr, then, els *ir.Block, ts, es []value) ([]value, bool) {
	k := 0
	for k < len(ts) && ts[k] == es[k] {
		k++
	}
	if k == len(ts) {
		return ts, false
	}

	out := clone(ts[:k])

	if k == len(ts)-1 && then.IsEmpty() && els.IsEmpty() {
		l, r := unify(ts[k].e, es[k].e)
		out = append(out, value{e: &ir.Conditional{
			Test:    test,
			Success: l,
			Failure: r,
			Ternary: true,
			Type:    ir.TypeOf(l),
		}})
		return out, true
	}

	for i := k; i < len(ts); i++ {
		l, r := unify(ts[i].e, es[i].e)
		tmp := b.temp(ir.TypeOf(l))
		then.Append(&ir.Assignment{Target: read(tmp), Value: l})
		els.Append(&ir.Assignment{Target: read(tmp), Value: r})
		out = append(out, value{e: read(tmp)})
	}

	return out, false
}

func fallsThrough(blk *ir.Block) bool {
	switch l := blk.Last().(type) {
	case *ir.Goto:
		return false
	case nil:
		return true
	default:
		return !ir.EndsInReturn(l)
	}
}

func (b *builder) cond(c region.Cond) (ir.Expr, error) {
	switch c := c.(type) {
	case *region.CondLeaf:
		if err := b.instrs(c.Block.Body()); err != nil {
			return nil, err
		}
		return b.branchCond(c.Block.Term())
	case *region.CondAnd:
		return b.logical(ir.OpLogicalAnd, c.L, c.R)
	case *region.CondOr:
		return b.logical(ir.OpLogicalOr, c.L, c.R)
	case *region.CondNot:
		x, err := b.cond(c.C)
		if err != nil {
			return nil, err
		}
		return ir.Not(x), nil
	}
	return nil, b.internal("unexpected condition %T", c)
}

func (b *builder) logical(op ir.BinaryOp, lc, rc region.Cond) (ir.Expr, error) {
	l, err := b.cond(lc)
	if err != nil {
		return nil, err
	}
	r, err := b.cond(rc)
	if err != nil {
		return nil, err
	}
	return &ir.Binary{Op: op, Left: l, Right: r, Type: ir.Bool}, nil
}

// foldReturn turns a trailing if/else whose arms both return a value into a
// single return of a conditional expression.
func foldReturn(body *ir.Block, ret ir.Type) *ir.Block {
	if ir.IsVoid(ret) {
		return body
	}

	i := len(body.Stmts) - 1
	for i >= 0 && ir.IsEmptyStmt(body.Stmts[i]) {
		i--
	}
	if i < 0 {
		return body
	}

	c, ok := body.Stmts[i].(*ir.Conditional)
	if !ok || c.Ternary || c.Failure == nil {
		return body
	}
	l, ok := valueArm(c.Success)
	if !ok {
		return body
	}
	r, ok := valueArm(c.Failure)
	if !ok {
		return body
	}

	body.Stmts[i] = &ir.Return{Value: &ir.Conditional{
		Test:    c.Test,
		Success: l,
		Failure: r,
		Ternary: true,
		Type:    ret,
	}}
	return body
}

// valueArm rewrites an arm ending in a value return into a value block.
func valueArm(arm ir.Expr) (ir.Expr, bool) {
	blk, ok := arm.(*ir.Block)
	if !ok {
		return nil, false
	}
	ret, ok := blk.Last().(*ir.Return)
	if !ok || ret.Value == nil {
		return nil, false
	}

	var stmts []ir.Expr
	for _, s := range blk.Stmts {
		if s == ret {
			break
		}
		if !ir.IsEmptyStmt(s) {
			stmts = append(stmts, s)
		}
	}
	if len(stmts) == 0 {
		return ret.Value, true
	}
	return ir.NewBlock(append(stmts, ret.Value)...), true
}

func (b *builder) temp(t ir.Type) *ir.Variable {
	v := &ir.Variable{
		Name:      "tmp" + strconv.Itoa(b.temps),
		Type:      ir.Deref(t),
		Kind:      ir.VarLocal,
		Synthetic: true,
	}
	b.temps++
	b.out.Locals = append(b.out.Locals, v)
	return v
}

func (b *builder) call(key host.MethodKey) {
	if !b.calls[key] {
		b.calls[key] = true
		b.out.Calls = append(b.out.Calls, key)
	}
}

func clone(s []value) []value {
	return append([]value(nil), s...)
}

func read(v *ir.Variable) *ir.VariableRead { return &ir.VariableRead{Var: v} }
