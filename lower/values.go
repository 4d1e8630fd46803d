package lower

import (
	"math"

	"github.com/gogpu/xshader/ir"
)

// coerce adapts an integer literal to the type consuming it. Host bytecode
// has no bool or float forms of small literals.
func coerce(e ir.Expr, want ir.Type) ir.Expr {
	if t, ok := e.(*ir.Conditional); ok && t.Ternary {
		l, r := coerce(t.Success, want), coerce(t.Failure, want)
		if l == t.Success && r == t.Failure {
			return e
		}
		return &ir.Conditional{Test: t.Test, Success: l, Failure: r, Ternary: true, Type: ir.TypeOf(l)}
	}

	c, ok := e.(*ir.Constant)
	if !ok {
		return e
	}
	p, ok := ir.AsPrimitive(want)
	if !ok || p == c.Type {
		return e
	}

	switch {
	case c.Type == ir.Int && p == ir.Bool:
		return ir.BoolConst(c.Int != 0)
	case c.Type == ir.Int && p == ir.Float:
		return ir.FloatConst(float64(c.Int))
	case c.Type == ir.Int && p == ir.UInt:
		return ir.UIntConst(uint64(c.Int))
	case c.Type == ir.UInt && p == ir.Float:
		return ir.FloatConst(float64(c.UInt))
	}
	return e
}

// unify coerces a literal operand to the type of the other operand.
func unify(l, r ir.Expr) (ir.Expr, ir.Expr) {
	_, lc := l.(*ir.Constant)
	_, rc := r.(*ir.Constant)

	switch {
	case lc && !rc:
		l = coerce(l, scalarOf(ir.TypeOf(r)))
	case rc && !lc:
		r = coerce(r, scalarOf(ir.TypeOf(l)))
	}
	return l, r
}

// scalarOf returns the component type of scalars and vectors.
func scalarOf(t ir.Type) ir.Type {
	if p, ok := ir.AsPrimitive(t); ok && p.Scalar() != ir.Void {
		return p.Scalar()
	}
	return t
}

func convert(e ir.Expr, t ir.Primitive) ir.Expr {
	if ir.TypeOf(e) == ir.Type(t) {
		return e
	}

	if c, ok := e.(*ir.Constant); ok {
		switch {
		case t == ir.Float && c.Type == ir.Int:
			return ir.FloatConst(float64(c.Int))
		case t == ir.Float && c.Type == ir.UInt:
			return ir.FloatConst(float64(c.UInt))
		case t == ir.Int && c.Type == ir.Float && !c.IsSpecialFloat():
			return ir.IntConst(int64(math.Trunc(c.Float)))
		case t == ir.Int && c.Type == ir.UInt:
			return ir.IntConst(int64(int32(c.UInt)))
		case t == ir.UInt && c.Type == ir.Int:
			return ir.UIntConst(uint64(uint32(c.Int)))
		}
	}

	return &ir.Convert{Operand: e, Type: t}
}

func negate(e ir.Expr) ir.Expr {
	if c, ok := e.(*ir.Constant); ok {
		switch c.Type {
		case ir.Int:
			return ir.IntConst(-c.Int)
		case ir.Float:
			return ir.FloatConst(-c.Float)
		}
	}
	return &ir.Unary{Op: ir.OpNegate, Operand: e, Type: ir.TypeOf(e)}
}

// truthy converts a branch operand to Bool.
func truthy(e ir.Expr) ir.Expr {
	if ir.TypeOf(e) == ir.Type(ir.Bool) {
		return e
	}
	if c, ok := e.(*ir.Constant); ok {
		return ir.BoolConst(!c.IsZero())
	}

	zero := ir.IntConst(0)
	if ir.TypeOf(e) == ir.Type(ir.UInt) {
		zero = ir.UIntConst(0)
	}
	return &ir.Binary{Op: ir.OpNe, Left: e, Right: zero, Type: ir.Bool}
}

// trivial values can be duplicated without evaluating anything twice.
func trivial(e ir.Expr) bool {
	switch e.(type) {
	case *ir.Constant, *ir.VariableRead, *ir.This:
		return true
	}
	return false
}

func isConst(e ir.Expr) bool {
	_, ok := e.(*ir.Constant)
	return ok
}

func isFloat(e ir.Expr) bool {
	p, ok := ir.AsPrimitive(ir.TypeOf(e))
	return ok && p.Scalar() == ir.Float
}

// hasCall reports whether e calls a compiled method. Intrinsics have no
// side effects.
func hasCall(e ir.Expr) bool {
	found := false
	ir.Walk(e, func(n ir.Expr) bool {
		if c, ok := n.(*ir.Call); ok && !c.IsIntrinsic() {
			found = true
		}
		return !found
	})
	return found
}

func reads(e ir.Expr, v *ir.Variable) bool {
	found := false
	ir.Walk(e, func(n ir.Expr) bool {
		if r, ok := n.(*ir.VariableRead); ok && r.Var == v {
			found = true
		}
		return !found
	})
	return found
}

// readsEscaping reports whether e reads a variable a call can write.
func readsEscaping(e ir.Expr) bool {
	found := false
	ir.Walk(e, func(n ir.Expr) bool {
		if r, ok := n.(*ir.VariableRead); ok && r.Var.Escapes() {
			found = true
		}
		return !found
	})
	return found
}

// rootVar returns the variable a storage location is rooted at, or nil.
func rootVar(e ir.Expr) *ir.Variable {
	for {
		switch x := e.(type) {
		case *ir.VariableRead:
			return x.Var
		case *ir.MemberAccess:
			e = x.Object
		case *ir.Index:
			e = x.Array
		default:
			return nil
		}
	}
}
