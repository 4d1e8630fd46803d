package region

import (
	"golang.org/x/tools/container/intsets"

	"github.com/gogpu/xshader/cfg"
)

// flowGraph is a directed graph over dense node IDs. Block IDs are used
// directly, so the exit block is node len(g.Blocks).
type flowGraph struct {
	succs [][]int
	preds [][]int
}

func newFlowGraph(n int) *flowGraph {
	return &flowGraph{succs: make([][]int, n), preds: make([][]int, n)}
}

func (f *flowGraph) link(from, to int) {
	f.succs[from] = append(f.succs[from], to)
	f.preds[to] = append(f.preds[to], from)
}

func (f *flowGraph) reversed() *flowGraph {
	return &flowGraph{succs: f.preds, preds: f.succs}
}

// blockGraph returns the flow graph of g's edges.
func blockGraph(g *cfg.Graph) *flowGraph {
	f := newFlowGraph(g.Len())
	for _, b := range g.Blocks {
		for _, e := range b.Succs {
			f.link(b.ID, e.To.ID)
		}
	}
	return f
}

// domTree holds the dominator sets of a flow graph. Nodes the root does not
// reach have an empty set and no immediate dominator.
type domTree struct {
	sets []intsets.Sparse
	idom []int
}

// dominators solves the iterative dominance data-flow problem rooted at
// root.
func dominators(f *flowGraph, root int) *domTree {
	n := len(f.succs)
	t := &domTree{sets: make([]intsets.Sparse, n), idom: make([]int, n)}

	order := reversePostorder(f, root)
	reached := make([]bool, n)

	var all intsets.Sparse
	for _, id := range order {
		all.Insert(id)
		reached[id] = true
	}
	for _, id := range order {
		if id == root {
			t.sets[id].Insert(id)
		} else {
			t.sets[id].Copy(&all)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, id := range order {
			if id == root {
				continue
			}
			var next intsets.Sparse
			first := true
			for _, p := range f.preds[id] {
				if !reached[p] {
					continue
				}
				if first {
					next.Copy(&t.sets[p])
					first = false
				} else {
					next.IntersectionWith(&t.sets[p])
				}
			}
			next.Insert(id)
			if !next.Equals(&t.sets[id]) {
				t.sets[id].Copy(&next)
				changed = true
			}
		}
	}

	// The immediate dominator is the strict dominator that is itself
	// dominated by all the others, i.e. the one with the largest set.
	for id := range t.idom {
		t.idom[id] = -1
		best := -1
		for _, o := range t.sets[id].AppendTo(nil) {
			if o == id {
				continue
			}
			if l := t.sets[o].Len(); l > best {
				t.idom[id], best = o, l
			}
		}
	}

	return t
}

// dominates reports whether a dominates b.
func (t *domTree) dominates(a, b int) bool { return t.sets[b].Has(a) }

func reversePostorder(f *flowGraph, root int) []int {
	seen := make([]bool, len(f.succs))
	var post []int

	var visit func(id int)
	visit = func(id int) {
		seen[id] = true
		for _, s := range f.succs[id] {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, id)
	}
	visit(root)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
