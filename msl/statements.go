package msl

import (
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// writeStatements writes a list of statements.
func (w *Writer) writeStatements(stmts []ir.Expr) error {
	for _, stmt := range stmts {
		if err := w.writeStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// writeStatement writes a single statement.
func (w *Writer) writeStatement(stmt ir.Expr) error {
	switch s := stmt.(type) {
	case nil, *ir.Empty, *ir.Label:
		return nil

	case *ir.Block:
		return w.writeStatements(s.Stmts)

	case *ir.Conditional:
		if s.Ternary {
			break
		}
		return w.writeIfStatement(s)

	case *ir.Loop:
		return w.writeLoopStatement(s)

	case *ir.Goto:
		return w.writeGotoStatement(s)

	case *ir.Return:
		return w.writeReturnStatement(s)
	}

	x, err := w.writeExpression(stmt)
	if err != nil {
		return err
	}
	w.writeLine("%s;", x)
	return nil
}

// writeIfStatement writes an if statement, chaining else-ifs.
func (w *Writer) writeIfStatement(c *ir.Conditional) error {
	test, err := w.writeExpression(c.Test)
	if err != nil {
		return err
	}

	w.writeLine("if (%s) {", test)

	for {
		w.pushIndent()
		if err := w.writeStatement(c.Success); err != nil {
			return err
		}
		w.popIndent()

		if ir.IsEmptyStmt(c.Failure) {
			break
		}

		next, ok := elseIf(c.Failure)
		if !ok {
			w.writeLine("} else {")
			w.pushIndent()
			if err := w.writeStatement(c.Failure); err != nil {
				return err
			}
			w.popIndent()
			break
		}

		test, err := w.writeExpression(next.Test)
		if err != nil {
			return err
		}
		w.writeLine("} else if (%s) {", test)
		c = next
	}

	w.writeLine("}")
	return nil
}

// elseIf returns the if statement an else arm consists of.
func elseIf(arm ir.Expr) (*ir.Conditional, bool) {
	if b, ok := arm.(*ir.Block); ok {
		var only ir.Expr
		for _, s := range b.Stmts {
			if ir.IsEmptyStmt(s) {
				continue
			}
			if only != nil {
				return nil, false
			}
			only = s
		}
		arm = only
	}

	c, ok := arm.(*ir.Conditional)
	if !ok || c.Ternary {
		return nil, false
	}
	return c, true
}

// writeLoopStatement writes a loop as while(true) with explicit jumps out.
func (w *Writer) writeLoopStatement(l *ir.Loop) error {
	w.writeLine("while (true) {")
	w.pushIndent()

	w.loops = append(w.loops, l)
	err := w.writeStatement(l.Body)
	w.loops = w.loops[:len(w.loops)-1]
	if err != nil {
		return err
	}

	w.popIndent()
	w.writeLine("}")
	return nil
}

// writeGotoStatement writes a jump to the innermost loop's break or
// continue label.
func (w *Writer) writeGotoStatement(g *ir.Goto) error {
	if len(w.loops) == 0 {
		return ir.Internal("jump to %v outside of a loop", g.Target.Name)
	}

	inner := w.loops[len(w.loops)-1]
	switch g.Target {
	case inner.Break:
		w.writeLine("break;")
		return nil
	case inner.Continue:
		w.writeLine("continue;")
		return nil
	}

	for _, l := range w.loops {
		if g.Target == l.Break || g.Target == l.Continue {
			return ir.NewError(ir.ErrUnsupportedConstruct, "jump out of a nested loop")
		}
	}
	return ir.Internal("jump to unknown label %v", g.Target.Name)
}

// writeReturnStatement writes a return statement. A conditional value
// whose arms run statements becomes an if with a return in each arm. A
// vertex entry stores its result in the output struct and returns that.
func (w *Writer) writeReturnStatement(r *ir.Return) error {
	vertex := w.inEntryPoint && w.program.Kind == host.ShaderVertex

	if r.Value == nil {
		if vertex {
			w.writeLine("return %s;", outVar)
			return nil
		}
		w.writeLine("return;")
		return nil
	}

	if c, ok := r.Value.(*ir.Conditional); ok && c.Ternary && (hasStatements(c.Success) || hasStatements(c.Failure)) {
		return w.writeIfStatement(&ir.Conditional{
			Test:    c.Test,
			Success: returnArm(c.Success),
			Failure: returnArm(c.Failure),
		})
	}

	value, err := w.writeExpression(r.Value)
	if err != nil {
		return err
	}

	if vertex {
		w.writeLine("%s.%s = %s;", outVar, w.positionMember, value)
		w.writeLine("return %s;", outVar)
		return nil
	}

	w.writeLine("return %s;", value)
	return nil
}

func hasStatements(arm ir.Expr) bool {
	b, ok := arm.(*ir.Block)
	if !ok {
		return false
	}
	last := b.Last()
	for _, s := range b.Stmts {
		if s != last && !ir.IsEmptyStmt(s) {
			return true
		}
	}
	return false
}

func returnArm(arm ir.Expr) *ir.Block {
	b, ok := arm.(*ir.Block)
	if !ok {
		return ir.NewBlock(&ir.Return{Value: arm})
	}

	last := b.Last()
	out := &ir.Block{}
	for _, s := range b.Stmts {
		if s == last {
			break
		}
		out.Append(s)
	}
	out.Append(&ir.Return{Value: last})
	return out
}
