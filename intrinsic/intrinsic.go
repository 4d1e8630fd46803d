// Package intrinsic classifies library methods the shader language provides
// natively, and maps host math calls to their shader equivalents.
package intrinsic

import (
	"github.com/gogpu/xshader/ir"
)

// Kind tells the tree builder how to lower an intrinsic call.
type Kind uint8

const (
	// Function lowers to an intrinsic Call that backends spell natively.
	Function Kind = iota

	// Binary and Unary lower to operators.
	Binary
	Unary

	// Construct lowers to a constructor call of the result type.
	Construct

	// Cast reinterprets the receiver as the result type. Both sides map to
	// the same shader type.
	Cast
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Binary:
		return "binary"
	case Unary:
		return "unary"
	case Construct:
		return "construct"
	case Cast:
		return "cast"
	default:
		return "unknown"
	}
}

// Intrinsic describes one intrinsic name.
type Intrinsic struct {
	Name string
	Kind Kind

	// Op is the operator of Binary intrinsics, UOp of Unary ones.
	Op  ir.BinaryOp
	UOp ir.UnaryOp

	// Args is the argument count of Function intrinsics, counting the
	// receiver of instance methods.
	Args int
}

var operators = map[string]Intrinsic{
	"op.add": {Name: "op.add", Kind: Binary, Op: ir.OpAdd},
	"op.sub": {Name: "op.sub", Kind: Binary, Op: ir.OpSub},
	"op.mul": {Name: "op.mul", Kind: Binary, Op: ir.OpMul},
	"op.div": {Name: "op.div", Kind: Binary, Op: ir.OpDiv},
	"op.eq":  {Name: "op.eq", Kind: Binary, Op: ir.OpEq},
	"op.ne":  {Name: "op.ne", Kind: Binary, Op: ir.OpNe},
	"op.neg": {Name: "op.neg", Kind: Unary, UOp: ir.OpNegate},
	"ctor":   {Name: "ctor", Kind: Construct},
	"cast":   {Name: "cast", Kind: Cast},
}

// functions lists the intrinsic functions with their argument counts.
var functions = map[string]int{
	"sin": 1, "cos": 1, "tan": 1, "asin": 1, "acos": 1, "atan": 1,
	"sqrt": 1, "rsqrt": 1, "exp": 1, "exp2": 1, "log": 1, "log2": 1,
	"abs": 1, "floor": 1, "ceil": 1, "round": 1, "frac": 1, "sign": 1,
	"length": 1, "normalize": 1,

	"min": 2, "max": 2, "pow": 2, "step": 2, "mod": 2, "atan2": 2,
	"dot": 2, "distance": 2, "cross": 2, "reflect": 2, "sample": 2,

	"clamp": 3, "smoothstep": 3, "lerp": 3,
}

// Lookup classifies an intrinsic name.
func Lookup(name string) (Intrinsic, bool) {
	if in, ok := operators[name]; ok {
		return in, true
	}
	if n, ok := functions[name]; ok {
		return Intrinsic{Name: name, Kind: Function, Args: n}, true
	}
	return Intrinsic{}, false
}

// Functions returns the names of all intrinsic functions. Backends use it
// to check their spelling tables are complete.
func Functions() []string {
	out := make([]string, 0, len(functions))
	for name := range functions {
		out = append(out, name)
	}
	return out
}
