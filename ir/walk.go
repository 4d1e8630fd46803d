package ir

// Children returns the direct children of e in evaluation order.
func Children(e Expr) []Expr {
	switch e := e.(type) {
	case *Assignment:
		return []Expr{e.Target, e.Value}
	case *Binary:
		return []Expr{e.Left, e.Right}
	case *Unary:
		return []Expr{e.Operand}
	case *MemberAccess:
		return []Expr{e.Object}
	case *Call:
		return e.Args
	case *Convert:
		return []Expr{e.Operand}
	case *Index:
		return []Expr{e.Array, e.Index}
	case *Conditional:
		if e.Failure == nil {
			return []Expr{e.Test, e.Success}
		}
		return []Expr{e.Test, e.Success, e.Failure}
	case *Block:
		if e == nil {
			return nil
		}
		return e.Stmts
	case *Loop:
		return []Expr{e.Body}
	case *Return:
		if e.Value == nil {
			return nil
		}
		return []Expr{e.Value}
	}
	return nil
}

// Walk calls fn for e and then its descendants in evaluation order. When fn
// returns false the children of that node are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Rewrite rebuilds e bottom-up. fn sees every node after its children have
// been rewritten and returns the replacement. Nodes with children are
// copied, so the input tree is left untouched. Labels keep their identity.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}

	var out Expr
	switch e := e.(type) {
	case *Assignment:
		out = &Assignment{Target: Rewrite(e.Target, fn), Value: Rewrite(e.Value, fn)}
	case *Binary:
		out = &Binary{Op: e.Op, Left: Rewrite(e.Left, fn), Right: Rewrite(e.Right, fn), Type: e.Type}
	case *Unary:
		out = &Unary{Op: e.Op, Operand: Rewrite(e.Operand, fn), Type: e.Type}
	case *MemberAccess:
		out = &MemberAccess{Object: Rewrite(e.Object, fn), Member: e.Member, Type: e.Type}
	case *Call:
		c := *e
		c.Args = make([]Expr, len(e.Args))
		for i, a := range e.Args {
			c.Args[i] = Rewrite(a, fn)
		}
		out = &c
	case *Convert:
		out = &Convert{Operand: Rewrite(e.Operand, fn), Type: e.Type}
	case *Index:
		out = &Index{Array: Rewrite(e.Array, fn), Index: Rewrite(e.Index, fn), Type: e.Type}
	case *Conditional:
		c := *e
		c.Test = Rewrite(e.Test, fn)
		c.Success = Rewrite(e.Success, fn)
		c.Failure = Rewrite(e.Failure, fn)
		out = &c
	case *Block:
		out = RewriteBlock(e, fn)
	case *Loop:
		out = &Loop{Body: AsBlock(Rewrite(e.Body, fn)), Break: e.Break, Continue: e.Continue}
	case *Return:
		out = &Return{Value: Rewrite(e.Value, fn)}
	default:
		out = e
	}
	return fn(out)
}

// RewriteBlock rewrites the statements of b. fn is not applied to b itself.
func RewriteBlock(b *Block, fn func(Expr) Expr) *Block {
	if b == nil {
		return nil
	}
	nb := &Block{Stmts: make([]Expr, len(b.Stmts))}
	for i, s := range b.Stmts {
		nb.Stmts[i] = Rewrite(s, fn)
	}
	return nb
}

// AsBlock returns e as a block, wrapping any other node.
func AsBlock(e Expr) *Block {
	switch e := e.(type) {
	case *Block:
		if e == nil {
			return &Block{}
		}
		return e
	case nil:
		return &Block{}
	}
	return NewBlock(e)
}
