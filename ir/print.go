package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders e as an indented s-expression. It is meant for debug logs
// and tests, and the format is not stable.
func Dump(e Expr) string {
	var sb strings.Builder
	dump(&sb, e, 0)
	return sb.String()
}

func dump(sb *strings.Builder, e Expr, depth int) {
	pad := strings.Repeat("  ", depth)

	switch e := e.(type) {
	case nil:
		sb.WriteString(pad + "nil\n")
	case *Block:
		sb.WriteString(pad + "(block\n")
		for _, s := range e.Stmts {
			dump(sb, s, depth+1)
		}
		sb.WriteString(pad + ")\n")
	case *Loop:
		sb.WriteString(pad + "(loop\n")
		dump(sb, e.Body, depth+1)
		sb.WriteString(pad + ")\n")
	case *Conditional:
		head := "(if"
		if e.Ternary {
			head = "(?:"
		}
		sb.WriteString(pad + head + " " + Inline(e.Test) + "\n")
		dump(sb, e.Success, depth+1)
		if e.Failure != nil {
			dump(sb, e.Failure, depth+1)
		}
		sb.WriteString(pad + ")\n")
	default:
		sb.WriteString(pad + Inline(e) + "\n")
	}
}

// Inline renders e on a single line.
func Inline(e Expr) string {
	switch e := e.(type) {
	case nil:
		return "nil"
	case *Constant:
		return constString(e)
	case *VariableRead:
		return e.Var.Name
	case *Assignment:
		return "(= " + Inline(e.Target) + " " + Inline(e.Value) + ")"
	case *Binary:
		return "(" + e.Op.String() + " " + Inline(e.Left) + " " + Inline(e.Right) + ")"
	case *Unary:
		return "(" + e.Op.String() + Inline(e.Operand) + ")"
	case *MemberAccess:
		return Inline(e.Object) + "." + e.Member
	case *Call:
		name := e.Intrinsic
		if name == "" {
			name = string(e.Method.Owner) + "::" + e.Method.Name
		} else {
			name = "@" + name
		}
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = Inline(a)
		}
		return "(" + name + " " + strings.Join(args, " ") + ")"
	case *Convert:
		return "(" + e.Type.String() + " " + Inline(e.Operand) + ")"
	case *Default:
		return "(default " + e.Type.String() + ")"
	case *Index:
		return Inline(e.Array) + "[" + Inline(e.Index) + "]"
	case *This:
		return "this"
	case *Conditional:
		return "(? " + Inline(e.Test) + " " + Inline(e.Success) + " " + Inline(e.Failure) + ")"
	case *Block:
		parts := make([]string, len(e.Stmts))
		for i, s := range e.Stmts {
			parts[i] = Inline(s)
		}
		return "{" + strings.Join(parts, "; ") + "}"
	case *Loop:
		return "(loop " + Inline(e.Body) + ")"
	case *Goto:
		return "(goto " + e.Target.Name + ")"
	case *Label:
		return e.Name + ":"
	case *Return:
		if e.Value == nil {
			return "(return)"
		}
		return "(return " + Inline(e.Value) + ")"
	case *Empty:
		return "()"
	}
	return fmt.Sprintf("%T", e)
}

func constString(c *Constant) string {
	switch c.Type {
	case Bool:
		return strconv.FormatBool(c.Bool)
	case Int:
		return strconv.FormatInt(c.Int, 10)
	case UInt:
		return strconv.FormatUint(c.UInt, 10) + "u"
	case Float:
		return strconv.FormatFloat(c.Float, 'g', -1, 64) + "f"
	}
	return "?"
}
