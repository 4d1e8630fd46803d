package ir

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshader/host"
)

// ValidationError describes one broken invariant.
type ValidationError struct {
	Message string
	// Optional context
	Method string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("in method %s: %s", e.Method, e.Message)
	}
	return e.Message
}

// Validator checks the structural invariants every stage after the
// optimization passes relies on.
type Validator struct {
	program *Program
	errors  []ValidationError
	context validationContext
}

type validationContext struct {
	method *Method
	loops  []*Loop
}

// Validate checks a whole program. It returns the violations found, or an
// error if the program itself is missing.
func Validate(p *Program) ([]ValidationError, error) {
	if p == nil {
		return nil, fmt.Errorf("program is nil")
	}

	v := &Validator{program: p}
	v.validateProgram()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateMethod checks one method and reports the first violation as an
// internal consistency error.
func ValidateMethod(m *Method) error {
	v := &Validator{}
	v.validateMethod(m)
	if len(v.errors) == 0 {
		return nil
	}
	msgs := make([]string, len(v.errors))
	for i, e := range v.errors {
		msgs[i] = e.Message
	}
	err := Internal("%s", strings.Join(msgs, "; "))
	err.Method = m.Key.String()
	return err
}

func (v *Validator) errorf(format string, args ...any) {
	e := ValidationError{Message: fmt.Sprintf(format, args...)}
	if v.context.method != nil {
		e.Method = v.context.method.Key.String()
	}
	v.errors = append(v.errors, e)
}

func (v *Validator) validateProgram() {
	p := v.program

	if p.Entry == nil {
		v.errorf("program has no entry method")
	} else if len(p.Methods) == 0 || p.Methods[len(p.Methods)-1] != p.Entry {
		v.errorf("entry method %v is not last", p.Entry.Key)
	}

	seen := make(map[host.MethodKey]bool, len(p.Methods))
	for _, m := range p.Methods {
		if seen[m.Key] {
			v.errorf("method %v compiled twice", m.Key)
		}
		for _, callee := range m.Calls {
			if !seen[callee] {
				v.errorf("method %v calls %v before it is defined", m.Key, callee)
			}
		}
		seen[m.Key] = true
	}

	for _, m := range p.Methods {
		v.validateMethod(m)
	}

	for _, g := range p.Variables {
		if !g.Kind.IsGlobal() {
			v.errorf("program variable %v has kind %v", g.Name, g.Kind)
		}
	}
}

func (v *Validator) validateMethod(m *Method) {
	v.context = validationContext{method: m}
	defer func() { v.context = validationContext{} }()

	if m.Body == nil {
		v.errorf("method has no body")
		return
	}
	for _, p := range m.Params {
		if p.Kind != VarParameter {
			v.errorf("parameter %v has kind %v", p.Name, p.Kind)
		}
	}
	for _, l := range m.Locals {
		if l.Kind != VarLocal {
			v.errorf("local %v has kind %v", l.Name, l.Kind)
		}
	}

	v.validateStmt(m.Body)
}

func (v *Validator) validateStmt(e Expr) {
	switch e := e.(type) {
	case nil:
		v.errorf("nil statement")
	case *Block:
		for _, s := range e.Stmts {
			v.validateStmt(s)
		}
	case *Conditional:
		v.validateExpr(e.Test)
		if e.Ternary {
			v.errorf("ternary conditional used as a statement")
		}
		if IsEmptyStmt(e.Success) && !IsEmptyStmt(e.Failure) {
			v.errorf("conditional %v has an empty success arm", Inline(e.Test))
		}
		v.validateStmt(e.Success)
		if e.Failure != nil {
			v.validateStmt(e.Failure)
		}
	case *Loop:
		v.context.loops = append(v.context.loops, e)
		v.validateStmt(e.Body)
		v.context.loops = v.context.loops[:len(v.context.loops)-1]
	case *Goto:
		v.validateGoto(e)
	case *Return:
		m := v.context.method
		switch {
		case e.Value == nil && !IsVoid(m.Return):
			v.errorf("missing return value")
		case e.Value != nil && IsVoid(m.Return):
			v.errorf("return value in void method")
		case e.Value != nil:
			v.validateExpr(e.Value)
		}
	case *Assignment:
		v.validateAssignment(e)
	case *Empty, *Label:
	default:
		v.validateExpr(e)
	}
}

func (v *Validator) validateGoto(g *Goto) {
	for _, l := range v.context.loops {
		if g.Target == l.Break || g.Target == l.Continue {
			return
		}
	}
	v.errorf("goto %v outside its loop", g.Target.Name)
}

func (v *Validator) validateAssignment(a *Assignment) {
	root := a.Target
	for {
		switch t := root.(type) {
		case *MemberAccess:
			root = t.Object
			continue
		case *Index:
			v.validateExpr(t.Index)
			root = t.Array
			continue
		}
		break
	}
	if _, ok := root.(*VariableRead); !ok {
		v.errorf("assignment target %v is not rooted at a variable", Inline(a.Target))
	}
	v.validateExpr(a.Value)
}

func (v *Validator) validateExpr(e Expr) {
	Walk(e, func(n Expr) bool {
		switch n := n.(type) {
		case nil:
			v.errorf("nil expression")
		case *VariableRead:
			if n.Var == nil {
				v.errorf("read of nil variable")
			}
		case *Conditional:
			if n.Ternary && n.Failure == nil {
				v.errorf("ternary without failure arm")
			}
		case *Return, *Loop, *Goto:
			v.errorf("%s used as a value", Inline(n))
			return false
		case *Block:
			switch {
			case n.Last() == nil:
				v.errorf("empty block used as a value")
			case countStmts(n) > 1:
				v.errorf("block with statements used as a value")
			}
		case *This:
			v.errorf("shader receiver escaped the tree builder")
		}
		return true
	})
}

func countStmts(b *Block) int {
	n := 0
	for _, s := range b.Stmts {
		if _, ok := s.(*Empty); !ok {
			n++
		}
	}
	return n
}
