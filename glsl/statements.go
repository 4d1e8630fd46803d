// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

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
		return w.writeIf(s)

	case *ir.Loop:
		return w.writeLoop(s)

	case *ir.Goto:
		return w.writeGoto(s)

	case *ir.Return:
		return w.writeReturn(s, false)
	}

	x, err := w.writeExpression(stmt)
	if err != nil {
		return err
	}
	w.writeLine("%s;", x)
	return nil
}

// writeIf writes an if statement. An else arm holding a single if is
// written as an else-if chain.
func (w *Writer) writeIf(c *ir.Conditional) error {
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

// writeLoop writes a loop statement. Exits are explicit jumps, so the
// loop itself never tests a condition.
func (w *Writer) writeLoop(l *ir.Loop) error {
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

// writeGoto writes a jump to the innermost loop's break or continue label.
func (w *Writer) writeGoto(g *ir.Goto) error {
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

// writeReturn writes a return statement.
// In a wrapped entry point, return values are assigned to output
// variables instead. tail is set for the last statement of the body,
// where the return itself can be left out.
func (w *Writer) writeReturn(r *ir.Return, tail bool) error {
	if r.Value == nil {
		w.writeLine("return;")
		return nil
	}

	if c, ok := r.Value.(*ir.Conditional); ok && c.Ternary && (hasStatements(c.Success) || hasStatements(c.Failure)) {
		return w.writeIf(&ir.Conditional{
			Test:    c.Test,
			Success: returnArm(c.Success),
			Failure: returnArm(c.Failure),
		})
	}

	value, err := w.writeExpression(r.Value)
	if err != nil {
		return err
	}

	if !w.inEntryPoint || !w.options.WrapEntry {
		w.writeLine("return %s;", value)
		return nil
	}

	switch w.program.Kind {
	case host.ShaderPixel:
		w.writeLine("%s = %s;", w.fragColor, value)
	case host.ShaderVertex:
		w.writeLine("gl_Position = %s;", value)
	default:
		return ir.Internal("%v entry returns a value", w.program.Kind)
	}

	if !tail {
		w.writeLine("return;")
	}
	return nil
}

// hasStatements reports whether a value arm runs statements before its
// value.
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

// returnArm turns a value arm into statements ending in a return of its
// value.
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
