package region

import (
	"sort"

	"golang.org/x/tools/container/intsets"

	"github.com/gogpu/xshader/cfg"
	"github.com/gogpu/xshader/disasm"
	"github.com/gogpu/xshader/ir"
)

// maxInlineReturn bounds the size of a return block that may be copied into
// every branch that reaches it.
const maxInlineReturn = 8

// loop is a natural loop.
type loop struct {
	header *cfg.Block
	body   intsets.Sparse
	parent *loop

	// follow is where the loop continues after a break, or nil if every
	// exit returns.
	follow *cfg.Block
}

func (l *loop) has(b *cfg.Block) bool { return !b.IsExit() && l.body.Has(b.ID) }

type structurer struct {
	g   *cfg.Graph
	key string
	dom *domTree

	loops   map[*cfg.Block]*loop // by header
	inner   []*loop              // innermost loop by block ID
	merges  map[*loop][]int      // scope ipdom by block ID, nil key is the method
	emitted []bool
}

// Recover structures g into a region tree. Irreducible control flow and
// loops with more than one non-returning exit are reported as
// UnsupportedConstruct errors.
func Recover(g *cfg.Graph) (*Sequence, error) {
	s := &structurer{
		g:       g,
		key:     g.Method.Key().String(),
		loops:   make(map[*cfg.Block]*loop),
		inner:   make([]*loop, g.Len()),
		merges:  make(map[*loop][]int),
		emitted: make([]bool, g.Len()),
	}

	s.dom = dominators(blockGraph(g), g.Entry().ID)

	if err := s.findLoops(); err != nil {
		return nil, err
	}

	return s.seq(g.Entry(), nil, nil)
}

func (s *structurer) errorf(b *cfg.Block, format string, args ...any) error {
	off := 0
	if !b.IsExit() {
		off = b.Start
	}
	return ir.NewError(ir.ErrUnsupportedConstruct, format, args...).At(s.key, off)
}

// findLoops classifies retreating edges and builds the loop nest.
func (s *structurer) findLoops() error {
	g := s.g
	state := make([]uint8, g.Len()) // 0 new, 1 on stack, 2 done
	latches := make(map[*cfg.Block][]*cfg.Block)
	var headers []*cfg.Block

	var visit func(b *cfg.Block) error
	visit = func(b *cfg.Block) error {
		state[b.ID] = 1
		for _, e := range b.Succs {
			to := e.To
			switch state[to.ID] {
			case 0:
				if err := visit(to); err != nil {
					return err
				}
			case 1:
				if !s.dom.dominates(to.ID, b.ID) {
					return s.errorf(to, "irreducible control flow: %v is entered from %v", to, b)
				}
				if latches[to] == nil {
					headers = append(headers, to)
				}
				latches[to] = append(latches[to], b)
			}
		}
		state[b.ID] = 2
		return nil
	}
	if err := visit(g.Entry()); err != nil {
		return err
	}

	var all []*loop
	for _, h := range headers {
		l := &loop{header: h}
		l.body.Insert(h.ID)

		work := append([]*cfg.Block(nil), latches[h]...)
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			if l.body.Has(b.ID) {
				continue
			}
			l.body.Insert(b.ID)
			for _, e := range b.Preds {
				work = append(work, e.From)
			}
		}

		s.loops[h] = l
		all = append(all, l)
	}

	// Innermost first: a smaller loop cannot contain a larger one.
	sort.SliceStable(all, func(i, j int) bool { return all[i].body.Len() < all[j].body.Len() })

	for i, l := range all {
		for _, o := range all[i+1:] {
			if o.body.Has(l.header.ID) {
				l.parent = o
				break
			}
		}
		for _, id := range l.body.AppendTo(nil) {
			if s.inner[id] == nil {
				s.inner[id] = l
			}
		}
	}

	for _, l := range all {
		if err := s.findFollow(l); err != nil {
			return err
		}
	}

	return nil
}

// findFollow picks the block a loop breaks to. Exits that only return are
// copied into the loop instead, so at most one other exit may remain.
func (s *structurer) findFollow(l *loop) error {
	var exits, normal []*cfg.Block
	seen := make(map[*cfg.Block]bool)

	for _, id := range l.body.AppendTo(nil) {
		b := s.g.Blocks[id]
		for _, e := range b.Succs {
			if e.To.IsExit() || l.has(e.To) || seen[e.To] {
				continue
			}
			seen[e.To] = true
			exits = append(exits, e.To)
			if !s.returnOnly(e.To) {
				normal = append(normal, e.To)
			}
		}
	}

	sort.Slice(exits, func(i, j int) bool { return exits[i].Start < exits[j].Start })

	switch {
	case len(normal) > 1:
		return s.errorf(l.header, "multi-exit loop at %v: exits to %v and %v", l.header, normal[0], normal[1])
	case len(normal) == 1:
		l.follow = normal[0]
	case len(exits) != 0:
		l.follow = exits[0]
	}

	return nil
}

// returnOnly reports whether b is a short block that ends the method and
// may therefore be duplicated.
func (s *structurer) returnOnly(b *cfg.Block) bool {
	return !b.IsExit() && b.IsReturn() && len(b.Instrs) <= maxInlineReturn && s.loops[b] == nil
}

// seq structures the blocks from b until stop, the end of the method, or an
// abrupt transfer out of the current loop.
func (s *structurer) seq(b, stop *cfg.Block, lp *loop) (*Sequence, error) {
	out := &Sequence{}

	for b != nil {
		if !s.enter(out, b, stop, lp) {
			break
		}

		next, err := s.node(out, b, lp)
		if err != nil {
			return nil, err
		}
		b = next
	}

	return out, nil
}

// enter decides what arriving at b means in the current context. It
// reports whether b starts a region to be structured here.
func (s *structurer) enter(out *Sequence, b, stop *cfg.Block, lp *loop) bool {
	switch {
	case b == stop, b.IsExit():
		return false
	case lp == nil:
		return true
	case b == lp.header:
		out.Nodes = append(out.Nodes, &Continue{})
		return false
	case b == lp.follow:
		out.Nodes = append(out.Nodes, &Break{})
		return false
	case !lp.has(b):
		// Only return blocks are left outside: findFollow made sure of it.
		out.Nodes = append(out.Nodes, &Basic{Block: b})
		return false
	}
	return true
}

// node emits the region that starts at b and returns the block control
// continues at, or nil if the region does not fall through.
func (s *structurer) node(out *Sequence, b *cfg.Block, lp *loop) (*cfg.Block, error) {
	if l := s.loops[b]; l != nil && l != lp {
		body, err := s.loopBody(l)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, &Loop{Body: body})
		return l.follow, nil
	}

	return s.block(out, b, lp)
}

func (s *structurer) loopBody(l *loop) (*Sequence, error) {
	body := &Sequence{}

	next, err := s.block(body, l.header, l)
	if err != nil {
		return nil, err
	}
	if next != nil {
		rest, err := s.seq(next, nil, l)
		if err != nil {
			return nil, err
		}
		body.Nodes = append(body.Nodes, rest.Nodes...)
	}

	if n := len(body.Nodes); n != 0 {
		if _, ok := body.Nodes[n-1].(*Continue); ok {
			body.Nodes = body.Nodes[:n-1]
		}
	}

	return body, nil
}

func (s *structurer) block(out *Sequence, b *cfg.Block, lp *loop) (*cfg.Block, error) {
	if s.emitted[b.ID] && !s.returnOnly(b) {
		return nil, ir.Internal("block %v structured twice in %v", b, s.key)
	}
	s.emitted[b.ID] = true

	switch {
	case b.IsReturn():
		out.Nodes = append(out.Nodes, &Basic{Block: b})
		return nil, nil
	case !b.IsConditional():
		out.Nodes = append(out.Nodes, &Basic{Block: b})
		return b.Succs[0].To, nil
	}

	return s.ifNode(out, b, lp)
}

func (s *structurer) ifNode(out *Sequence, b *cfg.Block, lp *loop) (*cfg.Block, error) {
	c, t, f := s.fold(b, lp)

	// The branch laid out first is the success arm.
	if offset(f) < offset(t) {
		c, t, f = Not(c), f, t
	}

	merge := s.merge(b, lp)

	if merge != nil {
		then, err := s.arm(t, merge, lp)
		if err != nil {
			return nil, err
		}
		els, err := s.arm(f, merge, lp)
		if err != nil {
			return nil, err
		}
		if len(then.Nodes) == 0 && len(els.Nodes) != 0 {
			c, then, els = Not(c), els, then
		}
		out.Nodes = append(out.Nodes, &If{Cond: c, Then: then, Else: els})
		return merge, nil
	}

	tj, fj := s.jumpArm(t, lp), s.jumpArm(f, lp)

	switch {
	case tj && !fj:
		then, err := s.arm(t, nil, lp)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, &If{Cond: c, Then: then, Else: &Sequence{}})
		return f, nil
	case fj && !tj:
		then, err := s.arm(f, nil, lp)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, &If{Cond: Not(c), Then: then, Else: &Sequence{}})
		return t, nil
	case tj && fj && lp != nil && (t == lp.header || f == lp.header):
		// Leave the continue to the end of the loop body.
		if t == lp.header {
			c, t, f = Not(c), f, t
		}
		then, err := s.arm(t, nil, lp)
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, &If{Cond: c, Then: then, Else: &Sequence{}})
		return f, nil
	}

	then, err := s.arm(t, nil, lp)
	if err != nil {
		return nil, err
	}
	els, err := s.arm(f, nil, lp)
	if err != nil {
		return nil, err
	}
	out.Nodes = append(out.Nodes, &If{Cond: c, Then: then, Else: els})

	return nil, nil
}

func (s *structurer) arm(b, stop *cfg.Block, lp *loop) (*Sequence, error) {
	if b == stop {
		return &Sequence{}, nil
	}
	return s.seq(b, stop, lp)
}

// jumpArm reports whether reaching b leaves the current region: a
// continue, a break, or a short return.
func (s *structurer) jumpArm(b *cfg.Block, lp *loop) bool {
	if b.IsExit() || s.returnOnly(b) {
		return true
	}
	return lp != nil && (b == lp.header || b == lp.follow || !lp.has(b))
}

func offset(b *cfg.Block) int {
	if b.IsExit() {
		return int(^uint(0) >> 1)
	}
	return b.Start
}

// fold merges chains of condition-only blocks into a short-circuit
// condition. It returns the condition and the blocks reached when it holds
// and when it does not.
func (s *structurer) fold(b *cfg.Block, lp *loop) (c Cond, t, f *cfg.Block) {
	c, t, f = &CondLeaf{Block: b}, b.Succ(cfg.True), b.Succ(cfg.False)

	for {
		if s.foldable(t, b, lp) {
			ct, tt, tf := s.fold(t, lp)
			switch {
			case tf == f:
				c, t = &CondAnd{L: c, R: ct}, tt
				continue
			case tt == f:
				c, t = &CondAnd{L: c, R: Not(ct)}, tf
				continue
			}
		}
		if s.foldable(f, b, lp) {
			cf, ft, ff := s.fold(f, lp)
			switch {
			case ft == t:
				c, f = &CondOr{L: c, R: cf}, ff
				continue
			case ff == t:
				c, f = &CondOr{L: c, R: Not(cf)}, ft
				continue
			}
		}
		return c, t, f
	}
}

// foldable reports whether x only computes a branch condition and can be
// absorbed into the condition of from.
func (s *structurer) foldable(x, from *cfg.Block, lp *loop) bool {
	if x.IsExit() || !x.IsConditional() || len(x.Preds) != 1 || s.emitted[x.ID] {
		return false
	}
	if s.loops[x] != nil || s.inner[x.ID] != s.inner[from.ID] {
		return false
	}
	if lp != nil && !lp.has(x) {
		return false
	}

	depth := 0
	for _, in := range x.Body() {
		if in.Pop > depth {
			return false
		}
		switch in.Op {
		case disasm.OpStArg, disasm.OpStLoc, disasm.OpStFld, disasm.OpStSFld, disasm.OpStElem,
			disasm.OpInitObj, disasm.OpDup, disasm.OpPop:
			return false
		case disasm.OpCall, disasm.OpCallVirt:
			if in.Push == 0 {
				return false
			}
		}
		depth += in.Push - in.Pop
	}

	return depth == x.Term().Pop
}

// merge returns where the arms of the conditional block b meet, or nil if
// they only meet by leaving the current region.
func (s *structurer) merge(b *cfg.Block, lp *loop) *cfg.Block {
	ipdom, ok := s.merges[lp]
	if !ok {
		ipdom = s.scopeMerges(lp)
		s.merges[lp] = ipdom
	}

	m := ipdom[b.ID]
	if m < 0 || m == s.g.Exit.ID {
		return nil
	}

	mb := s.g.Blocks[m]
	if lp != nil && (mb == lp.header || !lp.has(mb)) {
		return nil
	}
	return mb
}

// scopeMerges computes immediate post-dominators over the blocks directly
// inside lp, with nested loops collapsed into their headers. Continues,
// breaks and returns all lead to the exit, and a conditional edge that
// leaves the scope is ignored when the other edge stays in it.
func (s *structurer) scopeMerges(lp *loop) []int {
	g := s.g
	exit := g.Exit.ID
	f := newFlowGraph(g.Len())

	// target maps an edge target to its node in the scope graph and reports
	// whether the edge leaves the scope.
	target := func(to *cfg.Block) (int, bool) {
		switch {
		case to.IsExit():
			return exit, true
		case lp != nil && (to == lp.header || !lp.has(to)):
			return exit, true
		case s.inner[to.ID] == lp:
			// A return block with several predecessors is where arms meet.
			return to.ID, s.returnOnly(to) && len(to.Preds) == 1
		}
		// Entering a nested loop goes through its header.
		l := s.inner[to.ID]
		for l.parent != lp {
			l = l.parent
		}
		return l.header.ID, false
	}

	for _, b := range g.Blocks {
		if s.inner[b.ID] != lp {
			if l := s.loops[b]; l != nil && l.parent == lp {
				if l.follow != nil {
					to, _ := target(l.follow)
					f.link(b.ID, to)
				} else {
					f.link(b.ID, exit)
				}
			}
			continue
		}

		var to []int
		var leaves []bool
		for _, e := range b.Succs {
			id, out := target(e.To)
			to = append(to, id)
			leaves = append(leaves, out)
		}
		if len(to) == 2 && leaves[0] != leaves[1] {
			if leaves[0] {
				to = to[1:]
			} else {
				to = to[:1]
			}
		}
		for _, id := range to {
			f.link(b.ID, id)
		}
	}

	return dominators(f.reversed(), exit).idom
}
