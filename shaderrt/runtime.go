// Package shaderrt caches compiled shaders for a running host.
//
// A Runtime compiles each shader type once, on first use, and keeps the
// result until the host invalidates it, typically after reloading the code
// of a type. Compilation happens outside the lock, so concurrent Gets of
// different types do not wait for each other.
package shaderrt

import (
	"context"
	"sync"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/oklog/ulid/v2"

	"github.com/gogpu/xshader"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
)

// Entry is one cached shader.
type Entry struct {
	Shader host.TypeKey
	Result *xshader.Result
	Layout *Uniforms

	// Generation identifies this compilation. A recompiled type gets a
	// new, larger one.
	Generation ulid.ULID
}

// Runtime is a per-type cache of compiled shaders. It is safe for
// concurrent use.
type Runtime struct {
	r    host.Reflector
	opts xshader.Options

	mu      sync.RWMutex
	epoch   uint64
	entries map[host.TypeKey]*Entry
}

// New creates a Runtime compiling the types of r with opts. The intercept
// table is built once and shared by all compilations.
func New(r host.Reflector, opts xshader.Options) (*Runtime, error) {
	if opts.Intercepts == nil {
		tab, err := intrinsic.NewTable(r)
		if err != nil {
			return nil, errors.Wrap(err, "intercept table")
		}
		opts.Intercepts = tab
	}

	return &Runtime{
		r:       r,
		opts:    opts,
		entries: make(map[host.TypeKey]*Entry),
	}, nil
}

// Get returns the compiled shader type named shader, compiling it on first
// use. Errors are not cached: a failed type is compiled again on the next
// Get.
func (rt *Runtime) Get(ctx context.Context, shader string) (*Entry, error) {
	key := host.TypeKey(shader)

	rt.mu.RLock()
	e, ok := rt.entries[key]
	epoch := rt.epoch
	rt.mu.RUnlock()

	if ok {
		return e, nil
	}

	tr := tlog.SpanFromContext(ctx)

	res, err := xshader.CompileWithOptions(ctx, rt.r, shader, rt.opts)
	if err != nil {
		return nil, errors.Wrap(err, "shader %v", shader)
	}

	layout, err := NewUniforms(res.Uniforms)
	if err != nil {
		return nil, errors.Wrap(err, "shader %v", shader)
	}

	e = &Entry{
		Shader:     key,
		Result:     res,
		Layout:     layout,
		Generation: ulid.Make(),
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if prev, ok := rt.entries[key]; ok {
		return prev, nil
	}

	if rt.epoch != epoch {
		// Invalidated while compiling: the result may be built from stale
		// code. Hand it out once, but do not keep it.
		tr.Printw("discard stale shader", "type", shader, "generation", e.Generation)
		return e, nil
	}

	rt.entries[key] = e

	tr.Printw("shader cached", "type", shader, "generation", e.Generation, "uniforms", len(layout.Slots), "textures", len(layout.Textures))

	return e, nil
}

// Cached returns the cached entry for shader without compiling.
func (rt *Runtime) Cached(shader string) (*Entry, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	e, ok := rt.entries[host.TypeKey(shader)]
	return e, ok
}

// Invalidate drops the cached program of one type.
func (rt *Runtime) Invalidate(key host.TypeKey) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.epoch++
	delete(rt.entries, key)
}

// InvalidateAll drops every cached program.
func (rt *Runtime) InvalidateAll() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.epoch++
	clear(rt.entries)
}

// Len returns the number of cached programs.
func (rt *Runtime) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return len(rt.entries)
}
