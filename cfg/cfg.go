// Package cfg partitions a decoded instruction list into basic blocks and
// links them into a control-flow graph.
package cfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// EdgeKind tags an edge with the outcome of its source block's branch
// condition.
type EdgeKind uint8

const (
	Unconditional EdgeKind = iota
	True
	False
)

func (k EdgeKind) String() string {
	switch k {
	case Unconditional:
		return "always"
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Edge links two blocks.
type Edge struct {
	From, To *Block
	Kind     EdgeKind

	// Fallthrough is set when To starts right after From ends.
	Fallthrough bool
}

// Block is a maximal straight-line instruction run. The virtual exit block
// has no instructions.
type Block struct {
	ID     int
	Start  int
	Instrs []disasm.Instruction

	Succs []*Edge
	Preds []*Edge

	exit bool
}

// IsExit reports whether b is the virtual exit block.
func (b *Block) IsExit() bool { return b.exit }

// Term returns the last instruction, or nil for the exit block.
func (b *Block) Term() *disasm.Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return &b.Instrs[len(b.Instrs)-1]
}

// Body returns the instructions before a branch terminator. Blocks that end
// in anything else return all their instructions.
func (b *Block) Body() []disasm.Instruction {
	if t := b.Term(); t != nil && t.Op.IsBranch() {
		return b.Instrs[:len(b.Instrs)-1]
	}
	return b.Instrs
}

// IsReturn reports whether b ends in a return.
func (b *Block) IsReturn() bool {
	t := b.Term()
	return t != nil && t.Op == disasm.OpRet
}

// IsConditional reports whether b has a true and a false successor.
func (b *Block) IsConditional() bool { return len(b.Succs) == 2 }

// Succ returns the successor reached by an edge of the given kind.
func (b *Block) Succ(kind EdgeKind) *Block {
	for _, e := range b.Succs {
		if e.Kind == kind {
			return e.To
		}
	}
	return nil
}

// Fallthrough returns the edge to the block that starts where b ends, or
// nil if b always jumps.
func (b *Block) Fallthrough() *Edge {
	for _, e := range b.Succs {
		if e.Fallthrough {
			return e
		}
	}
	return nil
}

func (b *Block) String() string {
	if b.exit {
		return "exit"
	}
	return fmt.Sprintf("B%d@IL_%04x", b.ID, b.Start)
}

// Graph is the control-flow graph of one method.
type Graph struct {
	Method *host.Method

	// Blocks holds the reachable blocks in offset order. Blocks[0] is the
	// entry. The exit block is not listed.
	Blocks []*Block
	Exit   *Block
}

// Entry returns the entry block.
func (g *Graph) Entry() *Block { return g.Blocks[0] }

// Len returns the number of blocks including the exit.
func (g *Graph) Len() int { return len(g.Blocks) + 1 }

// String renders the graph one block per line.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, b := range g.Blocks {
		fmt.Fprintf(&sb, "%v:", b)
		for _, e := range b.Succs {
			fmt.Fprintf(&sb, " %v->%v", e.Kind, e.To)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func link(from, to *Block, kind EdgeKind, fall bool) {
	e := &Edge{From: from, To: to, Kind: kind, Fallthrough: fall}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
}

// Build splits instrs into blocks and links them. Blocks that cannot be
// reached from the entry are dropped.
func Build(m *host.Method, instrs []disasm.Instruction) (*Graph, error) {
	key := m.Key().String()

	if len(m.Handlers) != 0 {
		return nil, ir.NewError(ir.ErrUnsupportedConstruct, "exception region").At(key, m.Handlers[0].TryStart)
	}
	for _, in := range instrs {
		switch in.Op {
		case disasm.OpThrow, disasm.OpLeave, disasm.OpEndFinally:
			return nil, ir.NewError(ir.ErrUnsupportedConstruct, "exception region: %v", in.Op).At(key, in.Offset)
		}
	}
	if len(instrs) == 0 {
		return nil, ir.NewError(ir.ErrDisassembly, "method has no code").At(key, 0)
	}

	// Leaders: the entry, branch targets, and whatever follows a transfer.
	leaders := map[int]bool{instrs[0].Offset: true}
	for _, in := range instrs {
		if in.Op.IsBranch() {
			leaders[in.Target] = true
		}
		if in.Op.EndsBlock() {
			leaders[in.Next()] = true
		}
	}

	var blocks []*Block
	byStart := make(map[int]*Block)
	for i, in := range instrs {
		if leaders[in.Offset] {
			b := &Block{Start: in.Offset}
			blocks = append(blocks, b)
			byStart[in.Offset] = b
		}
		cur := blocks[len(blocks)-1]
		cur.Instrs = append(cur.Instrs, instrs[i])
	}

	exit := &Block{exit: true, Start: -1}
	fallsOff := make(map[*Block]bool)

	for i, b := range blocks {
		var next *Block
		if i+1 < len(blocks) {
			next = blocks[i+1]
		}

		t := b.Term()
		switch {
		case t.Op == disasm.OpRet:
			link(b, exit, Unconditional, false)
		case t.Op == disasm.OpBr:
			link(b, byStart[t.Target], Unconditional, byStart[t.Target] == next)
		case t.Op.IsConditional():
			if next == nil {
				fallsOff[b] = true
				continue
			}
			taken := byStart[t.Target]
			if taken == next {
				// Both outcomes continue at the same place.
				link(b, next, Unconditional, true)
				continue
			}
			tk, fk := True, False
			if t.Op == disasm.OpBrFalse {
				tk, fk = False, True
			}
			if tk == True {
				link(b, taken, tk, false)
				link(b, next, fk, true)
			} else {
				link(b, next, fk, true)
				link(b, taken, tk, false)
			}
		default:
			if next == nil {
				fallsOff[b] = true
				continue
			}
			link(b, next, Unconditional, true)
		}
	}

	reach := make(map[*Block]bool)
	stack := []*Block{blocks[0]}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reach[b] || b.exit {
			continue
		}
		reach[b] = true
		if fallsOff[b] {
			return nil, ir.NewError(ir.ErrDisassembly, "control falls off the end of the method").At(key, b.Term().Offset)
		}
		for _, e := range b.Succs {
			stack = append(stack, e.To)
		}
	}

	g := &Graph{Method: m, Exit: exit}
	for _, b := range blocks {
		if reach[b] {
			b.Preds = keepReachable(b.Preds, reach)
			g.Blocks = append(g.Blocks, b)
		}
	}
	exit.Preds = keepReachable(exit.Preds, reach)

	sort.SliceStable(g.Blocks, func(i, j int) bool { return g.Blocks[i].Start < g.Blocks[j].Start })
	for i, b := range g.Blocks {
		b.ID = i
	}
	exit.ID = len(g.Blocks)

	return g, nil
}

func keepReachable(edges []*Edge, reach map[*Block]bool) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if reach[e.From] {
			out = append(out, e)
		}
	}
	return out
}
