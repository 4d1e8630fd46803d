package ir

// Not returns the negation of the Bool expression e. Double negation
// collapses and constants fold. Comparisons are inverted in place when that
// keeps their meaning: always for == and !=, and for ordering comparisons
// only when the operands are not floats, since NaN compares false both
// ways. A logical operator whose operands both negate in place is rewritten
// by De Morgan's laws.
func Not(e Expr) Expr {
	switch e := e.(type) {
	case *Unary:
		if e.Op == OpNot {
			return e.Operand
		}
	case *Constant:
		if e.Type == Bool {
			return BoolConst(!e.Bool)
		}
	case *Binary:
		if e.Op.IsLogical() {
			l, r := Not(e.Left), Not(e.Right)
			if !isNot(l) && !isNot(r) {
				op := OpLogicalAnd
				if e.Op == OpLogicalAnd {
					op = OpLogicalOr
				}
				return &Binary{Op: op, Left: l, Right: r, Type: Bool}
			}
			break
		}
		if e.Op == OpEq || e.Op == OpNe || e.Op.IsComparison() && !isFloat(TypeOf(e.Left)) {
			return &Binary{Op: e.Op.Negate(), Left: e.Left, Right: e.Right, Type: Bool}
		}
	}
	return &Unary{Op: OpNot, Operand: e, Type: Bool}
}

func isNot(e Expr) bool {
	u, ok := e.(*Unary)
	return ok && u.Op == OpNot
}

func isFloat(t Type) bool {
	p, ok := AsPrimitive(t)
	return ok && p.Scalar() == Float
}
