package lower

import (
	"strings"

	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
)

var arithOps = map[disasm.Op]ir.BinaryOp{
	disasm.OpAdd: ir.OpAdd, disasm.OpSub: ir.OpSub, disasm.OpMul: ir.OpMul,
	disasm.OpDiv: ir.OpDiv, disasm.OpDivUn: ir.OpDiv,
	disasm.OpRem: ir.OpRem, disasm.OpRemUn: ir.OpRem,
	disasm.OpAnd: ir.OpBitAnd, disasm.OpOr: ir.OpBitOr, disasm.OpXor: ir.OpBitXor,
	disasm.OpShl: ir.OpShl, disasm.OpShr: ir.OpShr, disasm.OpShrUn: ir.OpShr,
}

var convTypes = map[disasm.Op]ir.Primitive{
	disasm.OpConvI4: ir.Int, disasm.OpConvU4: ir.UInt,
	disasm.OpConvR4: ir.Float, disasm.OpConvR8: ir.Float, disasm.OpConvRUn: ir.Float,
}

func (b *builder) instrs(list []disasm.Instruction) error {
	for i := range list {
		b.in = &list[i]
		if len(b.stack) < b.in.Pop {
			return b.internal("%v pops %d values, stack has %d", b.in.Op, b.in.Pop, len(b.stack))
		}
		if err := b.instr(b.in); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) instr(in *disasm.Instruction) error {
	if op, ok := arithOps[in.Op]; ok {
		r, l := b.pop(), b.pop()
		b.push(b.arith(op, l.e, r.e))
		return nil
	}
	if t, ok := convTypes[in.Op]; ok {
		b.push(convert(b.pop().e, t))
		return nil
	}

	switch in.Op {
	case disasm.OpNop:
	case disasm.OpDup:
		b.dup()
	case disasm.OpPop:
		return b.discard()
	case disasm.OpRet:
		return b.ret()

	case disasm.OpLdArg:
		b.stack = append(b.stack, b.loadArg(in.Index))
	case disasm.OpLdArga:
		if b.args[in.Index] == nil {
			return b.errorf(ir.ErrUnsupportedConstruct, "address of the shader receiver")
		}
		b.stack = append(b.stack, value{e: read(b.args[in.Index]), addr: true})
	case disasm.OpStArg:
		v := b.args[in.Index]
		if v == nil || v == b.this {
			return b.errorf(ir.ErrUnsupportedConstruct, "store to the receiver")
		}
		b.assign(read(v), b.pop().e)
	case disasm.OpLdLoc:
		b.push(read(b.locals[in.Index]))
	case disasm.OpLdLoca:
		b.stack = append(b.stack, value{e: read(b.locals[in.Index]), addr: true})
	case disasm.OpStLoc:
		b.assign(read(b.locals[in.Index]), b.pop().e)

	case disasm.OpLdNull:
		return b.errorf(ir.ErrUnsupportedConstruct, "null reference")
	case disasm.OpLdcI4:
		b.push(ir.IntConst(int64(in.Int)))
	case disasm.OpLdcR4, disasm.OpLdcR8:
		b.push(ir.FloatConst(in.Float))

	case disasm.OpNeg:
		b.push(negate(b.pop().e))
	case disasm.OpNot:
		x := b.pop().e
		if ir.TypeOf(x) == ir.Type(ir.Bool) {
			b.push(ir.Not(x))
		} else {
			b.push(&ir.Unary{Op: ir.OpBitNot, Operand: x, Type: ir.TypeOf(x)})
		}

	case disasm.OpCeq, disasm.OpCgt, disasm.OpCgtUn, disasm.OpClt, disasm.OpCltUn:
		r, l := b.pop(), b.pop()
		b.push(compare(in.Op, l.e, r.e))

	case disasm.OpCall, disasm.OpCallVirt:
		return b.callInstr(in.Method)
	case disasm.OpNewObj:
		return b.newObj(in.Method)

	case disasm.OpLdFld, disasm.OpLdFlda:
		x, err := b.field(b.pop(), in.Field)
		if err != nil {
			return err
		}
		b.stack = append(b.stack, value{e: x, addr: in.Op == disasm.OpLdFlda})
	case disasm.OpStFld:
		v, obj := b.pop(), b.pop()
		if _, ok := obj.e.(*ir.This); !ok && !obj.addr {
			return b.errorf(ir.ErrUnsupportedConstruct, "store to field %v of a temporary", in.Field)
		}
		target, err := b.field(obj, in.Field)
		if err != nil {
			return err
		}
		b.assign(target, v.e)
	case disasm.OpLdSFld, disasm.OpStSFld:
		return b.errorf(ir.ErrUnsupportedConstruct, "static field %v", in.Field)

	case disasm.OpLdElem:
		idx, arr := b.pop(), b.pop()
		x, err := b.index(arr.e, idx.e)
		if err != nil {
			return err
		}
		b.push(x)
	case disasm.OpStElem:
		v, idx, arr := b.pop(), b.pop(), b.pop()
		x, err := b.index(arr.e, idx.e)
		if err != nil {
			return err
		}
		b.assign(x, v.e)
	case disasm.OpLdLen:
		arr := b.pop().e
		at, ok := ir.TypeOf(arr).(ir.ArrayType)
		if !ok || at.Len == 0 {
			return b.errorf(ir.ErrUnsupportedConstruct, "length of an unsized array")
		}
		b.push(ir.IntConst(int64(at.Len)))
	case disasm.OpInitObj:
		target := b.pop()
		if !target.addr {
			return b.internal("initobj of a value")
		}
		t, err := b.mapType(in.Type)
		if err != nil {
			return err
		}
		b.assign(target.e, &ir.Default{Type: t})

	default:
		return b.errorf(ir.ErrUnsupportedConstruct, "instruction %v", in.Op)
	}

	return nil
}

func (b *builder) push(e ir.Expr) { b.stack = append(b.stack, value{e: e}) }

func (b *builder) pop() value {
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return v
}

func (b *builder) popN(n int) []value {
	args := clone(b.stack[len(b.stack)-n:])
	b.stack = b.stack[:len(b.stack)-n]
	return args
}

func (b *builder) loadArg(i int) value {
	v := b.args[i]
	switch {
	case v == nil:
		return value{e: &ir.This{}}
	case v == b.this:
		// The struct receiver is an address in the host.
		return value{e: read(v), addr: true}
	}
	return value{e: read(v)}
}

// stmt appends a statement to the current block. Stack values the
// statement could change are spilled first, so they keep the value they had
// when they were pushed.
func (b *builder) stmt(s ir.Expr) {
	var written *ir.Variable
	if a, ok := s.(*ir.Assignment); ok {
		written = rootVar(a.Target)
	}
	effects := hasCall(s)

	for i := range b.stack {
		x := b.stack[i]
		if x.addr {
			continue
		}
		if written != nil && reads(x.e, written) || effects && (hasCall(x.e) || readsEscaping(x.e)) {
			b.spill(i)
		}
	}

	b.cur.Append(s)
}

// spill evaluates stack slot i into a temporary.
func (b *builder) spill(i int) {
	x := b.stack[i].e
	tmp := b.temp(ir.TypeOf(x))
	b.stack[i] = value{e: read(tmp)}
	b.cur.Append(&ir.Assignment{Target: read(tmp), Value: x})
}

func (b *builder) assign(target, v ir.Expr) {
	b.stmt(&ir.Assignment{Target: target, Value: coerce(v, ir.TypeOf(target))})
}

func (b *builder) dup() {
	top := b.stack[len(b.stack)-1]
	if !top.addr && !trivial(top.e) {
		b.spill(len(b.stack) - 1)
		top = b.stack[len(b.stack)-1]
	}
	b.stack = append(b.stack, top)
}

func (b *builder) discard() error {
	x := b.pop()
	if !x.addr && hasCall(x.e) {
		b.stmt(x.e)
	}
	return nil
}

func (b *builder) ret() error {
	switch {
	case b.ctor:
		b.cur.Append(&ir.Return{Value: read(b.this)})
	case ir.IsVoid(b.out.Return):
		b.cur.Append(&ir.Return{})
	default:
		v := b.pop()
		b.cur.Append(&ir.Return{Value: coerce(v.e, b.out.Return)})
	}
	if len(b.stack) != 0 {
		return b.internal("%d values left on the stack at return", len(b.stack))
	}
	return nil
}

func (b *builder) arith(op ir.BinaryOp, l, r ir.Expr) ir.Expr {
	l, r = unify(l, r)
	lt, rt := ir.TypeOf(l), ir.TypeOf(r)

	if lt == ir.Type(ir.Bool) && rt == ir.Type(ir.Bool) {
		switch op {
		case ir.OpBitAnd:
			op = ir.OpLogicalAnd
		case ir.OpBitOr:
			op = ir.OpLogicalOr
		case ir.OpBitXor:
			op = ir.OpNe
		}
	}

	t := ir.BinaryResultType(op, lt, rt)

	if op == ir.OpRem {
		if p, ok := ir.AsPrimitive(t); ok && p.Scalar() == ir.Float {
			return &ir.Call{Intrinsic: "mod", Args: []ir.Expr{l, r}, Type: t}
		}
	}

	return &ir.Binary{Op: op, Left: l, Right: r, Type: t}
}

// branchCond returns the condition under which the block ending in t takes
// its True edge.
func (b *builder) branchCond(t *disasm.Instruction) (ir.Expr, error) {
	b.in = t

	switch t.Op {
	case disasm.OpBrTrue, disasm.OpBrFalse:
		// brfalse falls through on its True edge: both hold when the value
		// is non-zero.
		return truthy(b.pop().e), nil
	}

	if !t.Op.IsConditional() {
		return nil, b.internal("%v is not a conditional branch", t.Op)
	}

	r, l := b.pop(), b.pop()
	lx, rx := unify(l.e, r.e)

	var op ir.BinaryOp
	unordered := false

	switch t.Op.BranchOp() {
	case host.BranchEq:
		op = ir.OpEq
	case host.BranchNeUn:
		op = ir.OpNe
	case host.BranchGe:
		op = ir.OpGe
	case host.BranchGt:
		op = ir.OpGt
	case host.BranchLe:
		op = ir.OpLe
	case host.BranchLt:
		op = ir.OpLt
	case host.BranchGeUn:
		op, unordered = ir.OpLt, true
	case host.BranchGtUn:
		op, unordered = ir.OpLe, true
	case host.BranchLeUn:
		op, unordered = ir.OpGt, true
	case host.BranchLtUn:
		op, unordered = ir.OpGe, true
	}

	if unordered {
		// Taken when the operands are unordered or the inverse fails.
		x := &ir.Binary{Op: op, Left: lx, Right: rx, Type: ir.Bool}
		if isFloat(lx) {
			return &ir.Unary{Op: ir.OpNot, Operand: x, Type: ir.Bool}, nil
		}
		return ir.Not(x), nil
	}

	return &ir.Binary{Op: op, Left: lx, Right: rx, Type: ir.Bool}, nil
}

func compare(op disasm.Op, l, r ir.Expr) ir.Expr {
	l, r = unify(l, r)

	if ir.TypeOf(l) == ir.Type(ir.Bool) {
		if c, ok := r.(*ir.Constant); ok {
			switch op {
			case disasm.OpCeq:
				if c.IsZero() {
					return ir.Not(l)
				}
				return l
			case disasm.OpCgtUn:
				if c.IsZero() {
					return l
				}
			}
		}
	}

	var x *ir.Binary
	switch op {
	case disasm.OpCeq:
		return &ir.Binary{Op: ir.OpEq, Left: l, Right: r, Type: ir.Bool}
	case disasm.OpCgt:
		return &ir.Binary{Op: ir.OpGt, Left: l, Right: r, Type: ir.Bool}
	case disasm.OpClt:
		return &ir.Binary{Op: ir.OpLt, Left: l, Right: r, Type: ir.Bool}
	case disasm.OpCgtUn:
		x = &ir.Binary{Op: ir.OpLe, Left: l, Right: r, Type: ir.Bool}
	default:
		x = &ir.Binary{Op: ir.OpGe, Left: l, Right: r, Type: ir.Bool}
	}

	// Unsigned or unordered: the inverse of the ordered comparison.
	if isFloat(l) {
		return &ir.Unary{Op: ir.OpNot, Operand: x, Type: ir.Bool}
	}
	return ir.Not(x)
}

func (b *builder) field(obj value, f *host.Field) (ir.Expr, error) {
	if _, ok := obj.e.(*ir.This); ok {
		g := b.env.Global(f)
		if g == nil {
			return nil, b.errorf(ir.ErrUnsupportedConstruct, "field %v is not a shader variable", f)
		}
		return read(g), nil
	}

	switch t := ir.TypeOf(obj.e).(type) {
	case ir.Primitive:
		if t.IsVector() {
			// Color channels and vector components both spell as swizzles.
			return &ir.MemberAccess{Object: obj.e, Member: strings.ToLower(f.Name), Type: t.Scalar()}, nil
		}
	case ir.StructType:
		sf, ok := t.Struct.Field(f.Name)
		if !ok {
			return nil, b.internal("struct %v has no field %v", t.Struct.Name, f.Name)
		}
		return &ir.MemberAccess{Object: obj.e, Member: sf.Name, Type: sf.Type}, nil
	}

	return nil, b.errorf(ir.ErrUnsupportedConstruct, "field %v of %v", f, ir.TypeOf(obj.e))
}

func (b *builder) index(arr, idx ir.Expr) (ir.Expr, error) {
	at, ok := ir.TypeOf(arr).(ir.ArrayType)
	if !ok {
		return nil, b.internal("element of %v", ir.TypeOf(arr))
	}
	return &ir.Index{Array: arr, Index: coerce(idx, ir.Int), Type: at.Elem}, nil
}

func (b *builder) callInstr(mt *host.Method) error {
	args := b.popN(mt.ArgCount())

	callee, in, ok := b.env.Resolve(mt)
	if ok {
		return b.intrinsic(callee, in, args)
	}
	if callee.Intrinsic != "" {
		return b.errorf(ir.ErrUnsupportedConstruct, "unknown intrinsic %q of %v", callee.Intrinsic, callee)
	}

	return b.userCall(callee, args)
}

// argTypes maps the argument slot types of m, receiver included.
func (b *builder) argTypes(m *host.Method) ([]ir.Type, error) {
	out := make([]ir.Type, m.ArgCount())
	for i := range out {
		t, err := b.mapType(m.ArgType(i))
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (b *builder) intrinsic(callee *host.Method, in intrinsic.Intrinsic, args []value) error {
	ret, err := b.mapType(callee.Return)
	if err != nil {
		return err
	}

	switch in.Kind {
	case intrinsic.Construct:
		if len(args) == 0 || !args[0].addr {
			return b.internal("constructor %v called without a target", callee)
		}
		x, err := b.construct(callee, args[1:])
		if err != nil {
			return err
		}
		b.assign(args[0].e, x)
		return nil

	case intrinsic.Cast:
		b.push(args[0].e)
		return nil

	case intrinsic.Binary:
		if len(args) != 2 {
			return b.internal("operator %v takes %d arguments", callee, len(args))
		}
		l, r := unify(args[0].e, args[1].e)
		b.push(&ir.Binary{Op: in.Op, Left: l, Right: r, Type: ret})
		return nil

	case intrinsic.Unary:
		b.push(&ir.Unary{Op: in.UOp, Operand: args[0].e, Type: ret})
		return nil
	}

	types, err := b.argTypes(callee)
	if err != nil {
		return err
	}

	x := &ir.Call{Intrinsic: in.Name, Type: ret}
	for i, a := range args {
		x.Args = append(x.Args, coerce(a.e, types[i]))
	}

	if ir.IsVoid(ret) {
		b.stmt(x)
	} else {
		b.push(x)
	}
	return nil
}

func (b *builder) construct(ctor *host.Method, args []value) (ir.Expr, error) {
	t, err := b.mapType(ctor.Owner)
	if err != nil {
		return nil, err
	}
	x := &ir.Call{Intrinsic: "ctor", Type: t}
	for i, a := range args {
		pt, err := b.mapType(ctor.Params[i].Type)
		if err != nil {
			return nil, err
		}
		x.Args = append(x.Args, coerce(a.e, pt))
	}
	return x, nil
}

func (b *builder) userCall(callee *host.Method, args []value) error {
	if len(callee.Code) == 0 {
		return b.errorf(ir.ErrUnsupportedConstruct, "call to %v, which has no body", callee)
	}

	types, err := b.argTypes(callee)
	if err != nil {
		return err
	}

	var target ir.Expr

	if callee.HasThis() {
		recv := args[0]
		args, types = args[1:], types[1:]

		switch {
		case b.env.IsShader(callee.Owner):
			if _, ok := recv.e.(*ir.This); !ok {
				return b.errorf(ir.ErrUnsupportedConstruct, "call to %v on another shader instance", callee)
			}
		case callee.Owner.Kind != host.KindStruct:
			return b.errorf(ir.ErrUnsupportedConstruct, "call to %v on a class instance", callee)
		case callee.IsCtor():
			if !recv.addr {
				return b.internal("constructor %v called without a target", callee)
			}
			target = recv.e
		default:
			if !recv.addr || rootVar(recv.e) == nil {
				i := len(b.stack)
				b.stack = append(b.stack, recv)
				b.spill(i)
				recv = b.pop()
			}
			rootVar(recv.e).Pinned = true
			args = append([]value{recv}, args...)
			types = append([]ir.Type{ir.TypeOf(recv.e)}, types...)
		}
	}

	ret, err := b.mapType(callee.Return)
	if err != nil {
		return err
	}
	if callee.IsCtor() {
		if ret, err = b.mapType(callee.Owner); err != nil {
			return err
		}
	}

	x := &ir.Call{Method: callee.Key(), Type: ret}
	for i, a := range args {
		x.Args = append(x.Args, coerce(a.e, types[i]))
	}

	b.env.Callee(callee)
	b.call(x.Method)

	switch {
	case target != nil:
		b.assign(target, x)
	case ir.IsVoid(ret):
		b.stmt(x)
	default:
		b.push(x)
	}
	return nil
}

func (b *builder) newObj(ctor *host.Method) error {
	args := b.popN(len(ctor.Params))

	callee, in, ok := b.env.Resolve(ctor)
	if ok && in.Kind == intrinsic.Construct {
		x, err := b.construct(callee, args)
		if err != nil {
			return err
		}
		b.push(x)
		return nil
	}

	t, err := b.mapType(ctor.Owner)
	if err != nil {
		return err
	}
	if _, ok := t.(ir.StructType); !ok || len(callee.Code) == 0 {
		return b.errorf(ir.ErrUnsupportedConstruct, "construction of %v", ctor.Owner)
	}

	x := &ir.Call{Method: callee.Key(), Type: t}
	for i, a := range args {
		pt, err := b.mapType(callee.Params[i].Type)
		if err != nil {
			return err
		}
		x.Args = append(x.Args, coerce(a.e, pt))
	}

	b.env.Callee(callee)
	b.call(x.Method)
	b.push(x)

	return nil
}
