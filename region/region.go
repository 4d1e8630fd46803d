// Package region recovers structured control flow from a control-flow
// graph. The result is a tree of sequences, if/else nodes and loops whose
// leaves are basic blocks.
package region

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshader/cfg"
)

// Node is a structured region.
type Node interface {
	regionNode()
}

// Sequence runs its nodes in order.
type Sequence struct {
	Nodes []Node
}

// Basic is the straight-line code of a block. If the block ends in a
// conditional branch, the condition is consumed by the enclosing If and is
// not part of the Basic.
type Basic struct {
	Block *cfg.Block
}

// If runs Then when Cond holds and Else otherwise. Else may be empty.
type If struct {
	Cond Cond
	Then *Sequence
	Else *Sequence
}

// Loop repeats Body until a Break.
type Loop struct {
	Body *Sequence
}

// Break leaves the innermost loop.
type Break struct{}

// Continue starts the next iteration of the innermost loop.
type Continue struct{}

func (*Sequence) regionNode() {}
func (*Basic) regionNode()    {}
func (*If) regionNode()       {}
func (*Loop) regionNode()     {}
func (*Break) regionNode()    {}
func (*Continue) regionNode() {}

// Cond is a condition tree over conditional blocks.
type Cond interface {
	condNode()
}

// CondLeaf is the branch condition of Block: it holds when Block would take
// its True edge. The block's instructions are evaluated as part of the
// condition.
type CondLeaf struct {
	Block *cfg.Block
}

// CondAnd is the short-circuit conjunction of L and R.
type CondAnd struct {
	L, R Cond
}

// CondOr is the short-circuit disjunction of L and R.
type CondOr struct {
	L, R Cond
}

// CondNot negates C.
type CondNot struct {
	C Cond
}

func (*CondLeaf) condNode() {}
func (*CondAnd) condNode()  {}
func (*CondOr) condNode()   {}
func (*CondNot) condNode()  {}

// Not returns the negation of c, removing a double negation.
func Not(c Cond) Cond {
	if n, ok := c.(*CondNot); ok {
		return n.C
	}
	return &CondNot{C: c}
}

// Leaves returns the condition blocks of c in evaluation order.
func Leaves(c Cond) []*cfg.Block {
	switch c := c.(type) {
	case *CondLeaf:
		return []*cfg.Block{c.Block}
	case *CondAnd:
		return append(Leaves(c.L), Leaves(c.R)...)
	case *CondOr:
		return append(Leaves(c.L), Leaves(c.R)...)
	case *CondNot:
		return Leaves(c.C)
	}
	return nil
}

// CondString renders c for debug dumps.
func CondString(c Cond) string {
	switch c := c.(type) {
	case *CondLeaf:
		return c.Block.String()
	case *CondAnd:
		return "(" + CondString(c.L) + " && " + CondString(c.R) + ")"
	case *CondOr:
		return "(" + CondString(c.L) + " || " + CondString(c.R) + ")"
	case *CondNot:
		return "!" + CondString(c.C)
	}
	return "?"
}

// Dump renders the region tree with one node per line.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	pad := strings.Repeat("  ", depth)

	switch n := n.(type) {
	case *Sequence:
		for _, c := range n.Nodes {
			dump(sb, c, depth)
		}
	case *Basic:
		fmt.Fprintf(sb, "%s%v\n", pad, n.Block)
	case *If:
		fmt.Fprintf(sb, "%sif %s\n", pad, CondString(n.Cond))
		dump(sb, n.Then, depth+1)
		if n.Else != nil && len(n.Else.Nodes) != 0 {
			fmt.Fprintf(sb, "%selse\n", pad)
			dump(sb, n.Else, depth+1)
		}
	case *Loop:
		fmt.Fprintf(sb, "%sloop\n", pad)
		dump(sb, n.Body, depth+1)
	case *Break:
		fmt.Fprintf(sb, "%sbreak\n", pad)
	case *Continue:
		fmt.Fprintf(sb, "%scontinue\n", pad)
	}
}
