package ir

import (
	"math"

	"github.com/gogpu/xshader/host"
)

// Expr is a node of a method body tree. Value-producing nodes and
// statement-like nodes (see statement.go) share this interface.
type Expr interface {
	exprNode()
}

// Constant is a literal. Type selects which value field is meaningful:
// Bool for Bool, Int for Int, UInt for UInt, Float for Float.
type Constant struct {
	Type  Primitive
	Bool  bool
	Int   int64
	UInt  uint64
	Float float64
}

func (*Constant) exprNode() {}

// BoolConst returns a Bool literal.
func BoolConst(b bool) *Constant { return &Constant{Type: Bool, Bool: b} }

// IntConst returns an Int literal.
func IntConst(i int64) *Constant { return &Constant{Type: Int, Int: i} }

// UIntConst returns a UInt literal.
func UIntConst(u uint64) *Constant { return &Constant{Type: UInt, UInt: u} }

// FloatConst returns a Float literal.
func FloatConst(f float64) *Constant { return &Constant{Type: Float, Float: f} }

// IsZero reports whether c is false, 0 or 0.0.
func (c *Constant) IsZero() bool {
	switch c.Type {
	case Bool:
		return !c.Bool
	case Int:
		return c.Int == 0
	case UInt:
		return c.UInt == 0
	case Float:
		return c.Float == 0
	}
	return false
}

// IsSpecialFloat reports whether c is an infinity or NaN.
func (c *Constant) IsSpecialFloat() bool {
	return c.Type == Float && (math.IsInf(c.Float, 0) || math.IsNaN(c.Float))
}

// VariableRead reads a variable.
type VariableRead struct {
	Var *Variable
}

func (*VariableRead) exprNode() {}

// BinaryOp is a binary operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicalAnd
	OpLogicalOr
)

var binaryOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpLogicalAnd: "&&", OpLogicalOr: "||",
}

// String returns the C-family spelling of op.
func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op yields a Bool.
func (op BinaryOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

// IsLogical reports whether op is a short-circuit boolean operator.
func (op BinaryOp) IsLogical() bool { return op == OpLogicalAnd || op == OpLogicalOr }

// Negate returns the comparison with the opposite outcome. Only valid for
// comparisons.
func (op BinaryOp) Negate() BinaryOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	}
	return op
}

// Binary applies a binary operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
	Type        Type
}

func (*Binary) exprNode() {}

// UnaryOp is a unary operator.
type UnaryOp uint8

const (
	OpNegate UnaryOp = iota
	OpNot
	OpBitNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "-"
	case OpNot:
		return "!"
	case OpBitNot:
		return "~"
	}
	return "?"
}

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	Type    Type
}

func (*Unary) exprNode() {}

// MemberAccess selects a field of a struct or a component of a vector.
type MemberAccess struct {
	Object Expr
	Member string
	Type   Type
}

func (*MemberAccess) exprNode() {}

// Call invokes either a compiled method (Method set, Intrinsic empty) or an
// intrinsic operation (Intrinsic set). For the "ctor" intrinsic Type is the
// constructed type.
type Call struct {
	Method    host.MethodKey
	Intrinsic string
	Args      []Expr
	Type      Type
}

func (*Call) exprNode() {}

// IsIntrinsic reports whether c is an intrinsic call.
func (c *Call) IsIntrinsic() bool { return c.Intrinsic != "" }

// Convert converts Operand to Type.
type Convert struct {
	Operand Expr
	Type    Type
}

func (*Convert) exprNode() {}

// Default is the zero value of Type.
type Default struct {
	Type Type
}

func (*Default) exprNode() {}

// Index selects an array element.
type Index struct {
	Array, Index Expr
	Type         Type
}

func (*Index) exprNode() {}

// This is the shader instance. Field accesses on it are resolved to
// shader-level variables by the tree builder.
type This struct{}

func (*This) exprNode() {}
