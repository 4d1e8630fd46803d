package intrinsic

import (
	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/host"
)

// intercepts maps host library methods to the shader library method that
// replaces them. The list is fixed; NewTable resolves it against a
// reflector once.
var intercepts = func() [][2]string {
	var out [][2]string

	unary := []string{"Sin", "Cos", "Tan", "Asin", "Acos", "Atan", "Sqrt", "Exp", "Log",
		"Abs", "Floor", "Ceiling", "Round", "Sign"}
	binary := []string{"Pow", "Atan2", "Min", "Max"}

	for _, lib := range []struct{ owner, scalar string }{
		{host.MathType, "f64"},
		{host.MathFType, "f32"},
	} {
		s := lib.scalar
		for _, name := range unary {
			out = append(out, [2]string{
				lib.owner + "::" + name + "(" + s + ")",
				host.ShaderMathType + "::" + name + "(f32)",
			})
		}
		for _, name := range binary {
			out = append(out, [2]string{
				lib.owner + "::" + name + "(" + s + "," + s + ")",
				host.ShaderMathType + "::" + name + "(f32,f32)",
			})
		}
		out = append(out, [2]string{
			lib.owner + "::Clamp(" + s + "," + s + "," + s + ")",
			host.ShaderMathType + "::Clamp(f32,f32,f32)",
		})
	}

	for _, ref := range []string{"Abs(i32)", "Min(i32,i32)", "Max(i32,i32)", "Clamp(i32,i32,i32)"} {
		out = append(out, [2]string{host.MathType + "::" + ref, host.ShaderMathType + "::" + ref})
	}

	return out
}()

// Table is the resolved intercept table. It is read-only once built and
// may be shared between compilations over the same reflector.
type Table struct {
	replace map[host.MethodKey]*host.Method
}

// NewTable resolves the intercept list against r. Every original and every
// replacement must exist, and replacements must be intrinsics.
func NewTable(r host.Reflector) (*Table, error) {
	t := &Table{replace: make(map[host.MethodKey]*host.Method, len(intercepts))}

	for _, pair := range intercepts {
		from, err := host.FindMethod(r, pair[0])
		if err != nil {
			return nil, errors.Wrap(err, "intercept %v", pair[0])
		}
		to, err := host.FindMethod(r, pair[1])
		if err != nil {
			return nil, errors.Wrap(err, "intercept %v", pair[0])
		}
		if _, ok := Lookup(to.Intrinsic); !ok {
			return nil, errors.New("intercept %v: replacement %v is not an intrinsic", pair[0], pair[1])
		}
		t.replace[from.Key()] = to
	}

	return t, nil
}

// Intercept returns the replacement of m, or nil.
func (t *Table) Intercept(m *host.Method) *host.Method {
	return t.replace[m.Key()]
}

// Len returns the number of intercepted methods.
func (t *Table) Len() int { return len(t.replace) }

// Resolve applies the intercept table to m and classifies the result. It
// returns the method to call and, when that method is an intrinsic, its
// description.
func (t *Table) Resolve(m *host.Method) (*host.Method, Intrinsic, bool) {
	if r := t.Intercept(m); r != nil {
		m = r
	}
	if m.Intrinsic == "" {
		return m, Intrinsic{}, false
	}
	in, ok := Lookup(m.Intrinsic)
	return m, in, ok
}
