package opt

import (
	"github.com/gogpu/xshader/ir"
)

// Set is a set of variables.
type Set map[*ir.Variable]bool

// FindRedundant returns the locals of body that are assigned once and read
// once, where the assigned value can be moved to the read without changing
// what the method computes.
//
// The assignment must be a statement of the same block as the statement
// holding the read, and the read must not be in a loop nested in that
// statement. Nothing evaluated in between may write a variable the value
// reads. A value calling a compiled method must be evaluated right before
// the read and unconditionally. Variables in params, variables that are
// pinned and variables used as the root of a member or element store are
// never redundant.
func FindRedundant(body *ir.Block, params []*ir.Variable) Set {
	st := count(body)

	cand := make(Set)
	for v, u := range st {
		if v.Kind == ir.VarLocal && !v.Pinned && !u.root && u.assigns == 1 && u.reads == 1 {
			cand[v] = true
		}
	}
	for _, p := range params {
		delete(cand, p)
	}

	set := make(Set)
	planBlock(body, cand, make(map[*ir.Variable]ir.Expr), func(v *ir.Variable, _ ir.Expr, _ int) {
		set[v] = true
	})

	return set
}

// Substitute moves the value of each variable in set to its only read and
// leaves Empty in place of the assignment. The input tree is not modified.
func Substitute(body *ir.Block, set Set) (*ir.Block, error) {
	if len(set) == 0 {
		return body, nil
	}

	out := ir.AsBlock(ir.Rewrite(body, func(e ir.Expr) ir.Expr { return e }))
	done := make(Set, len(set))

	substBlock(out, set, done)

	for v := range set {
		if !done[v] {
			return nil, ir.Internal("value of redundant variable %v is never consumed", v.Name)
		}
	}

	return out, nil
}

func substBlock(b *ir.Block, set, done Set) {
	for i, s := range b.Stmts {
		v, val, ok := definition(s)
		if !ok || !set[v] {
			continue
		}

		for j := i + 1; j < len(b.Stmts); j++ {
			if !reads(b.Stmts[j], v) {
				continue
			}
			b.Stmts[j] = ir.Rewrite(b.Stmts[j], func(e ir.Expr) ir.Expr {
				if r, ok := e.(*ir.VariableRead); ok && r.Var == v {
					return val
				}
				return e
			})
			b.Stmts[i] = &ir.Empty{}
			done[v] = true
			break
		}
	}

	for _, s := range b.Stmts {
		eachBlock(s, func(nb *ir.Block) { substBlock(nb, set, done) })
	}
}

type usage struct {
	assigns int
	reads   int

	// root is set when the variable is the root of a member or element
	// store.
	root bool
}

func count(body *ir.Block) map[*ir.Variable]*usage {
	st := make(map[*ir.Variable]*usage)
	get := func(v *ir.Variable) *usage {
		u := st[v]
		if u == nil {
			u = &usage{}
			st[v] = u
		}
		return u
	}

	var visit func(e ir.Expr) bool
	visit = func(e ir.Expr) bool {
		switch e := e.(type) {
		case *ir.VariableRead:
			get(e.Var).reads++
		case *ir.Assignment:
			if r, ok := e.Target.(*ir.VariableRead); ok {
				get(r.Var).assigns++
			} else {
				t := e.Target
			chain:
				for {
					switch x := t.(type) {
					case *ir.MemberAccess:
						t = x.Object
					case *ir.Index:
						ir.Walk(x.Index, visit)
						t = x.Array
					case *ir.VariableRead:
						u := get(x.Var)
						u.root = true
						u.assigns++
						break chain
					default:
						break chain
					}
				}
			}
			ir.Walk(e.Value, visit)
			return false
		}
		return true
	}
	ir.Walk(body, visit)

	return st
}

// planBlock finds the definitions in b that can move to their read and
// reports them with their value after earlier substitutions. Nested blocks
// are planned after the statements of b.
func planBlock(b *ir.Block, cand Set, eff map[*ir.Variable]ir.Expr, accept func(v *ir.Variable, val ir.Expr, read int)) {
	for i, s := range b.Stmts {
		v, val, ok := definition(s)
		if !ok || !cand[v] {
			continue
		}

		val = effective(val, eff)

		j := i + 1
		for j < len(b.Stmts) && !reads(b.Stmts[j], v) {
			j++
		}
		if j == len(b.Stmts) {
			continue
		}

		if movable(v, val, b.Stmts[i+1:j], b.Stmts[j]) {
			eff[v] = val
			accept(v, val, j)
		}
	}

	for _, s := range b.Stmts {
		eachBlock(s, func(nb *ir.Block) { planBlock(nb, cand, eff, accept) })
	}
}

// definition matches a plain store to a variable.
func definition(s ir.Expr) (*ir.Variable, ir.Expr, bool) {
	a, ok := s.(*ir.Assignment)
	if !ok {
		return nil, nil, false
	}
	r, ok := a.Target.(*ir.VariableRead)
	if !ok {
		return nil, nil, false
	}
	return r.Var, a.Value, true
}

func effective(val ir.Expr, eff map[*ir.Variable]ir.Expr) ir.Expr {
	if len(eff) == 0 {
		return val
	}
	return ir.Rewrite(val, func(e ir.Expr) ir.Expr {
		if r, ok := e.(*ir.VariableRead); ok {
			if x, ok := eff[r.Var]; ok {
				return x
			}
		}
		return e
	})
}

// eachBlock calls fn for the outermost blocks in statement s, s included.
func eachBlock(s ir.Expr, fn func(*ir.Block)) {
	ir.Walk(s, func(e ir.Expr) bool {
		if b, ok := e.(*ir.Block); ok {
			fn(b)
			return false
		}
		return true
	})
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

// mover checks the path from a definition to its read.
type mover struct {
	v *ir.Variable

	deps map[*ir.Variable]bool

	// call is set when the value calls a compiled method, shared when it
	// reads storage a call can write.
	call   bool
	shared bool

	found  bool
	unsafe bool
}

func movable(v *ir.Variable, val ir.Expr, between []ir.Expr, use ir.Expr) bool {
	mv := &mover{v: v, deps: make(map[*ir.Variable]bool)}

	ir.Walk(val, func(e ir.Expr) bool {
		switch e := e.(type) {
		case *ir.VariableRead:
			mv.deps[e.Var] = true
			if e.Var.Escapes() {
				mv.shared = true
			}
		case *ir.Call:
			if !e.IsIntrinsic() {
				mv.call = true
			}
		}
		return true
	})

	for _, s := range between {
		if ir.IsEmptyStmt(s) {
			continue
		}
		if mv.call {
			return false
		}
		mv.visit(s, false, false)
		if mv.unsafe {
			return false
		}
	}

	mv.visit(use, false, false)

	return mv.found && !mv.unsafe
}

// visit walks e in evaluation order until the read of mv.v. guarded marks
// code that may not run, looped code that may run more than once.
func (mv *mover) visit(e ir.Expr, guarded, looped bool) {
	if e == nil || mv.found || mv.unsafe {
		return
	}

	switch e := e.(type) {
	case *ir.VariableRead:
		if e.Var == mv.v {
			mv.found = true
			if looped || guarded && mv.call {
				mv.unsafe = true
			}
		}
	case *ir.Assignment:
		mv.target(e.Target, guarded, looped)
		mv.visit(e.Value, guarded, looped)
		if !mv.found && !mv.unsafe {
			mv.write(rootVar(e.Target))
		}
	case *ir.Call:
		for _, a := range e.Args {
			mv.visit(a, guarded, looped)
		}
		if !mv.found && !e.IsIntrinsic() && (mv.call || mv.shared) {
			mv.unsafe = true
		}
	case *ir.Binary:
		mv.visit(e.Left, guarded, looped)
		mv.visit(e.Right, guarded || e.Op.IsLogical(), looped)
	case *ir.Conditional:
		mv.visit(e.Test, guarded, looped)
		mv.visit(e.Success, true, looped)
		mv.visit(e.Failure, true, looped)
	case *ir.Loop:
		mv.visit(e.Body, guarded, true)
	default:
		for _, c := range ir.Children(e) {
			mv.visit(c, guarded, looped)
		}
	}
}

// target visits the index operands of a store target.
func (mv *mover) target(t ir.Expr, guarded, looped bool) {
	for {
		switch x := t.(type) {
		case *ir.MemberAccess:
			t = x.Object
		case *ir.Index:
			mv.visit(x.Index, guarded, looped)
			t = x.Array
		default:
			return
		}
	}
}

func (mv *mover) write(w *ir.Variable) {
	if w == nil {
		return
	}
	if mv.deps[w] || mv.call && w.Escapes() {
		mv.unsafe = true
	}
}

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
