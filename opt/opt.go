// Package opt holds the tree passes that run on every compiled method
// before code generation.
//
// The passes run in a fixed order:
//
//   - redundant local elimination (FindRedundant and Substitute),
//   - return flattening (FlattenTernary),
//   - polarity normalization (NormalizePolarity).
//
// Each pass returns a new tree and leaves its input alone.
package opt

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/gogpu/xshader/ir"
)

// Run applies all passes to m and validates the result. Eliminated locals
// are removed from m.Locals.
func Run(ctx context.Context, m *ir.Method) error {
	tr := tlog.SpanFromContext(ctx)

	set := FindRedundant(m.Body, m.Params)

	body, err := Substitute(m.Body, set)
	if err != nil {
		if e, ok := err.(*ir.Error); ok {
			return e.At(m.Key.String(), -1)
		}
		return errors.Wrap(err, "method %v", m.Key)
	}

	body = FlattenTernary(body)
	body = NormalizePolarity(body)

	m.Body = body

	if len(set) != 0 {
		locals := m.Locals[:0:0]
		for _, v := range m.Locals {
			if !set[v] {
				locals = append(locals, v)
			}
		}
		m.Locals = locals
	}

	if tr.If("dump_opt") {
		tr.Printw("optimized", "method", m.Key.String(), "eliminated", len(set), "tree", ir.Dump(m.Body))
	}

	return ir.ValidateMethod(m)
}
