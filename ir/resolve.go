package ir

// TypeOf returns the type of the value e produces. Statement-like nodes
// produce Void.
func TypeOf(e Expr) Type {
	switch e := e.(type) {
	case *Constant:
		return e.Type
	case *VariableRead:
		return Deref(e.Var.Type)
	case *Binary:
		return e.Type
	case *Unary:
		return e.Type
	case *MemberAccess:
		return e.Type
	case *Call:
		return e.Type
	case *Convert:
		return e.Type
	case *Default:
		return e.Type
	case *Index:
		return e.Type
	case *Conditional:
		if e.Ternary {
			return e.Type
		}
	case *Block:
		if e != nil && e.Last() != nil {
			return TypeOf(e.Last())
		}
	}
	return Void
}

// BinaryResultType returns the type of l op r.
//
// Comparisons and logical operators produce Bool. Mixing a vector with its
// scalar produces the vector. A matrix times a vector produces the vector
// with as many components as the matrix has rows.
func BinaryResultType(op BinaryOp, l, r Type) Type {
	if op.IsComparison() || op.IsLogical() {
		return Bool
	}

	lp, lok := AsPrimitive(l)
	rp, rok := AsPrimitive(r)
	if !lok || !rok {
		return Deref(l)
	}

	switch {
	case op == OpMul && lp == Matrix4x4 && rp == Float4:
		return Float4
	case op == OpMul && lp == Matrix3x2 && rp == Float3:
		return Float2
	case lp.IsMatrix():
		return lp
	case rp.IsVector() && lp.IsScalar():
		return rp
	}
	return lp
}

// ComponentType returns the type of a single-component member access on a
// vector of type t.
func ComponentType(t Type) Type {
	if p, ok := AsPrimitive(t); ok && p.IsVector() {
		return p.Scalar()
	}
	return Void
}
