package opt

import (
	"github.com/gogpu/xshader/ir"
)

// NormalizePolarity rewrites every if whose success arm is empty. With a
// non-empty failure arm the test is negated and the arms swap. With both
// arms empty only the calls of the test are kept. Empty statements are
// dropped from all blocks.
func NormalizePolarity(body *ir.Block) *ir.Block {
	return ir.AsBlock(ir.Rewrite(body, func(e ir.Expr) ir.Expr {
		switch e := e.(type) {
		case *ir.Conditional:
			if e.Ternary {
				return e
			}
			return normalize(e)
		case *ir.Block:
			return prune(e)
		}
		return e
	}))
}

func normalize(c *ir.Conditional) ir.Expr {
	succ, fail := ir.IsEmptyStmt(c.Success), ir.IsEmptyStmt(c.Failure)

	switch {
	case succ && fail:
		switch parts := effects(c.Test); len(parts) {
		case 0:
			return &ir.Empty{}
		case 1:
			return parts[0]
		default:
			return &ir.Block{Stmts: parts}
		}
	case succ:
		return &ir.Conditional{Test: ir.Not(c.Test), Success: c.Failure}
	case fail && c.Failure != nil:
		return &ir.Conditional{Test: c.Test, Success: c.Success}
	}
	return c
}

// effects returns the parts of e that call compiled methods, in evaluation
// order, with the operators whose result nobody reads stripped. A
// short-circuit operator stays whole when its right operand calls.
func effects(e ir.Expr) []ir.Expr {
	if !hasCall(e) {
		return nil
	}

	switch e := e.(type) {
	case *ir.Unary:
		return effects(e.Operand)
	case *ir.Convert:
		return effects(e.Operand)
	case *ir.Binary:
		if e.Op == ir.OpLogicalAnd || e.Op == ir.OpLogicalOr {
			if hasCall(e.Right) {
				return []ir.Expr{e}
			}
			return effects(e.Left)
		}
		return append(effects(e.Left), effects(e.Right)...)
	}
	return []ir.Expr{e}
}

func prune(b *ir.Block) *ir.Block {
	n := 0
	for _, s := range b.Stmts {
		if !ir.IsEmptyStmt(s) {
			n++
		}
	}
	if n == len(b.Stmts) {
		return b
	}

	out := &ir.Block{Stmts: make([]ir.Expr, 0, n)}
	for _, s := range b.Stmts {
		if !ir.IsEmptyStmt(s) {
			out.Stmts = append(out.Stmts, s)
		}
	}
	return out
}

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
