package opt

import (
	"github.com/gogpu/xshader/ir"
)

// FlattenTernary turns a trailing return of a conditional expression into
// an if/else returning from each arm, unless both arms are trivial. Arms
// that are conditionals themselves are flattened the same way.
func FlattenTernary(body *ir.Block) *ir.Block {
	i := len(body.Stmts) - 1
	for i >= 0 && ir.IsEmptyStmt(body.Stmts[i]) {
		i--
	}
	if i < 0 {
		return body
	}

	s, ok := flattenReturn(body.Stmts[i])
	if !ok {
		return body
	}

	stmts := append([]ir.Expr(nil), body.Stmts[:i]...)
	return ir.NewBlock(append(stmts, s)...)
}

func flattenReturn(s ir.Expr) (ir.Expr, bool) {
	r, ok := s.(*ir.Return)
	if !ok {
		return s, false
	}
	c, ok := r.Value.(*ir.Conditional)
	if !ok || !c.Ternary || trivialArm(c.Success) && trivialArm(c.Failure) {
		return s, false
	}

	return &ir.Conditional{
		Test:    c.Test,
		Success: returnArm(c.Success),
		Failure: returnArm(c.Failure),
	}, true
}

// returnArm turns a value arm into a block ending in a return of it.
func returnArm(arm ir.Expr) *ir.Block {
	var stmts []ir.Expr
	val := arm

	if b, ok := arm.(*ir.Block); ok {
		val = b.Last()
		for _, s := range b.Stmts {
			if s == val {
				break
			}
			if !ir.IsEmptyStmt(s) {
				stmts = append(stmts, s)
			}
		}
	}

	ret, _ := flattenReturn(&ir.Return{Value: val})
	return ir.NewBlock(append(stmts, ret)...)
}

func trivialArm(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.Constant, *ir.VariableRead:
		return true
	case *ir.MemberAccess:
		return trivialArm(e.Object)
	case *ir.Block:
		return countStmts(e) == 1 && trivialArm(e.Last())
	}
	return false
}

func countStmts(b *ir.Block) int {
	n := 0
	for _, s := range b.Stmts {
		if !ir.IsEmptyStmt(s) {
			n++
		}
	}
	return n
}
