// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
)

// HLSL special float constants.
const (
	hlslPosInf = "(1.0 / 0.0)"
	hlslNegInf = "(-1.0 / 0.0)"
	hlslNaN    = "(0.0 / 0.0)"
)

// precedence orders HLSL operators from weakest to strongest binding.
type precedence uint8

const (
	precAssign precedence = iota + 1
	precTernary
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

var binaryPrecedence = [...]precedence{
	ir.OpAdd: precAdditive, ir.OpSub: precAdditive,
	ir.OpMul: precMultiplicative, ir.OpDiv: precMultiplicative, ir.OpRem: precMultiplicative,
	ir.OpBitAnd: precBitAnd, ir.OpBitOr: precBitOr, ir.OpBitXor: precBitXor,
	ir.OpShl: precShift, ir.OpShr: precShift,
	ir.OpEq: precEquality, ir.OpNe: precEquality,
	ir.OpLt: precRelational, ir.OpLe: precRelational, ir.OpGt: precRelational, ir.OpGe: precRelational,
	ir.OpLogicalAnd: precLogicalAnd, ir.OpLogicalOr: precLogicalOr,
}

// intrinsicNames holds the intrinsics HLSL spells differently. The host
// remainder truncates, which is fmod rather than a floored mod.
var intrinsicNames = map[string]string{
	"mod": "fmod",
}

// writeExpression writes an expression and returns its HLSL representation.
func (w *Writer) writeExpression(e ir.Expr) (string, error) {
	s, _, err := w.expr(e)
	return s, err
}

// operand writes e as the operand of an operator binding with min.
func (w *Writer) operand(e ir.Expr, min precedence) (string, error) {
	s, p, err := w.expr(e)
	if err != nil {
		return "", err
	}
	if p < min {
		return "(" + s + ")", nil
	}
	return s, nil
}

// expr writes the expression based on its kind and reports how tightly
// the result binds.
//
//nolint:gocyclo,cyclop // Expression handling requires many cases
func (w *Writer) expr(e ir.Expr) (string, precedence, error) {
	switch e := e.(type) {
	case *ir.Constant:
		return writeLiteral(e)

	case *ir.VariableRead:
		name, ok := w.varNames[e.Var]
		if !ok {
			return "", 0, ir.Internal("variable %v is not declared", e.Var)
		}
		return name, precPrimary, nil

	case *ir.Binary:
		return w.writeBinary(e)

	case *ir.Unary:
		x, err := w.operand(e.Operand, precUnary)
		if err != nil {
			return "", 0, err
		}
		op := e.Op.String()
		if op == "?" {
			return "", 0, ir.Internal("unsupported unary operator %d", e.Op)
		}
		if op == "-" && strings.HasPrefix(x, "-") {
			x = "(" + x + ")"
		}
		return op + x, precUnary, nil

	case *ir.MemberAccess:
		obj, err := w.operand(e.Object, precPostfix)
		if err != nil {
			return "", 0, err
		}
		member := e.Member
		if _, ok := ir.Deref(ir.TypeOf(e.Object)).(ir.StructType); ok {
			member = Escape(member)
		}
		return obj + "." + member, precPostfix, nil

	case *ir.Index:
		arr, err := w.operand(e.Array, precPostfix)
		if err != nil {
			return "", 0, err
		}
		idx, err := w.writeExpression(e.Index)
		if err != nil {
			return "", 0, err
		}
		return arr + "[" + idx + "]", precPostfix, nil

	case *ir.Call:
		return w.writeCall(e)

	case *ir.Convert:
		x, err := w.writeExpression(e.Operand)
		if err != nil {
			return "", 0, err
		}
		return w.typeName(e.Type) + "(" + x + ")", precPostfix, nil

	case *ir.Default:
		z := w.zeroValue(e.Type)
		if z == "" {
			return "", 0, ir.NewError(ir.ErrUnsupportedType, "zero value of %v", e.Type)
		}
		if strings.HasPrefix(z, "(") {
			return z, precUnary, nil
		}
		return z, precPrimary, nil

	case *ir.Conditional:
		if !e.Ternary {
			return "", 0, ir.Internal("if statement in expression position")
		}
		test, err := w.operand(e.Test, precLogicalOr)
		if err != nil {
			return "", 0, err
		}
		accept, err := w.writeExpression(e.Success)
		if err != nil {
			return "", 0, err
		}
		reject, err := w.operand(e.Failure, precTernary)
		if err != nil {
			return "", 0, err
		}
		return test + " ? " + accept + " : " + reject, precTernary, nil

	case *ir.Block:
		last := e.Last()
		for _, s := range e.Stmts {
			if s != last && !ir.IsEmptyStmt(s) {
				return "", 0, ir.NewError(ir.ErrUnsupportedConstruct, "statements inside an expression")
			}
		}
		if last == nil {
			return "", 0, ir.Internal("empty block in expression position")
		}
		return w.expr(last)

	case *ir.Assignment:
		target, err := w.writeExpression(e.Target)
		if err != nil {
			return "", 0, err
		}
		value, err := w.operand(e.Value, precAssign)
		if err != nil {
			return "", 0, err
		}
		return target + " = " + value, precAssign, nil

	case *ir.This:
		return "", 0, ir.Internal("shader receiver used as a value")
	}

	return "", 0, ir.Internal("%T in expression position", e)
}

// writeLiteral writes a literal expression. Negative numbers bind like
// unary minus.
func writeLiteral(c *ir.Constant) (string, precedence, error) {
	var s string

	switch c.Type {
	case ir.Bool:
		if c.Bool {
			return "true", precPrimary, nil
		}
		return "false", precPrimary, nil
	case ir.Int:
		s = strconv.FormatInt(c.Int, 10)
	case ir.UInt:
		s = strconv.FormatUint(c.UInt, 10) + "u"
	case ir.Float:
		if special, ok := formatSpecialFloat(c.Float); ok {
			return special, precPrimary, nil
		}
		s = formatFloat(c.Float)
	default:
		return "", 0, ir.Internal("constant of type %v", c.Type)
	}

	if strings.HasPrefix(s, "-") {
		return s, precUnary, nil
	}
	return s, precPrimary, nil
}

// formatSpecialFloat handles special float values like inf and nan.
func formatSpecialFloat(f float64) (string, bool) {
	if math.IsInf(f, 1) {
		return hlslPosInf, true
	}
	if math.IsInf(f, -1) {
		return hlslNegInf, true
	}
	if math.IsNaN(f) {
		return hlslNaN, true
	}
	return "", false
}

// formatFloat formats a single precision float, always with a decimal
// point.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 32)
	if strings.Contains(s, ".") {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

// writeBinary writes a binary expression. Products involving a matrix are
// written with mul, as HLSL's * multiplies component-wise.
func (w *Writer) writeBinary(b *ir.Binary) (string, precedence, error) {
	if int(b.Op) >= len(binaryPrecedence) {
		return "", 0, ir.Internal("unsupported binary operator %d", b.Op)
	}

	if b.Op == ir.OpMul && isMatrixProduct(ir.TypeOf(b.Left), ir.TypeOf(b.Right)) {
		left, err := w.operand(b.Left, precTernary)
		if err != nil {
			return "", 0, err
		}
		right, err := w.operand(b.Right, precTernary)
		if err != nil {
			return "", 0, err
		}
		return "mul(" + left + ", " + right + ")", precPostfix, nil
	}

	p := binaryPrecedence[b.Op]

	left, err := w.operand(b.Left, p)
	if err != nil {
		return "", 0, err
	}
	right, err := w.operand(b.Right, p+1)
	if err != nil {
		return "", 0, err
	}

	return left + " " + b.Op.String() + " " + right, p, nil
}

// isMatrixProduct reports whether l * r is a matrix product rather than a
// scaling.
func isMatrixProduct(l, r ir.Type) bool {
	lp, lok := ir.AsPrimitive(l)
	rp, rok := ir.AsPrimitive(r)
	if !lok || !rok || lp.IsScalar() || rp.IsScalar() {
		return false
	}
	return lp.IsMatrix() || rp.IsMatrix()
}

// writeCall writes a call of a compiled method or an intrinsic.
func (w *Writer) writeCall(c *ir.Call) (string, precedence, error) {
	if c.Intrinsic == "sample" {
		return w.writeSample(c)
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		s, err := w.operand(a, precTernary)
		if err != nil {
			return "", 0, err
		}
		args[i] = s
	}

	var name string

	switch {
	case !c.IsIntrinsic():
		var ok bool
		name, ok = w.funcNames[c.Method]
		if !ok {
			return "", 0, ir.Internal("call to %v, which is not part of the program", c.Method)
		}
	case c.Intrinsic == "ctor":
		// HLSL has no splatting constructor; a scalar is cast instead.
		if len(c.Args) == 1 && isSplat(ir.TypeOf(c.Args[0]), c.Type) {
			x, err := w.operand(c.Args[0], precUnary)
			if err != nil {
				return "", 0, err
			}
			return "(" + w.typeName(c.Type) + ")" + x, precUnary, nil
		}
		name = w.typeName(c.Type)
	default:
		in, ok := intrinsic.Lookup(c.Intrinsic)
		if !ok || in.Kind != intrinsic.Function {
			return "", 0, ir.Internal("unknown intrinsic %v", c.Intrinsic)
		}
		if in.Args != len(args) {
			return "", 0, ir.Internal("intrinsic %v takes %d arguments, got %d", c.Intrinsic, in.Args, len(args))
		}
		name = c.Intrinsic
		if n, ok := intrinsicNames[name]; ok {
			name = n
		}
	}

	return name + "(" + strings.Join(args, ", ") + ")", precPostfix, nil
}

func isSplat(arg, result ir.Type) bool {
	ap, aok := ir.AsPrimitive(arg)
	rp, rok := ir.AsPrimitive(result)
	return aok && rok && ap.IsScalar() && (rp.IsVector() || rp.IsMatrix())
}

// writeSample writes a texture sample through the sampler declared with
// the texture. Only uniform textures have one.
func (w *Writer) writeSample(c *ir.Call) (string, precedence, error) {
	if len(c.Args) != 2 {
		return "", 0, ir.Internal("intrinsic sample takes 2 arguments, got %d", len(c.Args))
	}

	tex, ok := c.Args[0].(*ir.VariableRead)
	if !ok {
		return "", 0, ir.NewError(ir.ErrUnsupportedConstruct, "sampling a computed texture")
	}
	sampler, ok := w.samplerNames[tex.Var]
	if !ok {
		return "", 0, ir.NewError(ir.ErrUnsupportedConstruct, "sampling %v, which is not a uniform texture", tex.Var)
	}

	uv, err := w.writeExpression(c.Args[1])
	if err != nil {
		return "", 0, err
	}

	return w.varNames[tex.Var] + ".Sample(" + sampler + ", " + uv + ")", precPostfix, nil
}
