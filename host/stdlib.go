package host

import "strings"

// Library namespaces preloaded into every Model.
const (
	// ShaderMathType holds the math functions a shader language provides
	// natively. Every method on it is an intrinsic.
	ShaderMathType = "sim.ShaderMath"

	// MathType and MathFType are the host math libraries. They have no
	// bytecode and are only usable through intercepts.
	MathType  = "std.Math"
	MathFType = "std.MathF"
)

// Primitive type names.
var primitiveNames = []string{"void", "bool", "i32", "u32", "f32", "f64"}

var componentNames = [...]string{"X", "Y", "Z", "W"}

type libBuilder struct {
	m *Model
}

func (b libBuilder) t(name string) *Type { return b.m.MustType(name) }

func (b libBuilder) method(owner *Type, name, intrinsic string, static bool, ret string, params ...string) *Method {
	mt := &Method{
		Owner:     owner,
		Name:      name,
		Return:    b.t(ret),
		Static:    static,
		Intrinsic: intrinsic,
	}
	for i, p := range params {
		mt.Params = append(mt.Params, Param{Name: string(rune('a' + i)), Type: b.t(p)})
	}
	owner.Methods = append(owner.Methods, mt)
	return mt
}

func (b libBuilder) ctor(owner *Type, params ...string) {
	b.method(owner, CtorName, "ctor", false, "void", params...)
}

func (b libBuilder) define(name string, kind TypeKind) *Type {
	t := &Type{Name: name, Kind: kind}
	if err := b.m.AddType(t); err != nil {
		panic(err)
	}
	return t
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func (m *Model) loadLibrary() {
	b := libBuilder{m: m}

	for _, name := range primitiveNames {
		b.define(name, KindPrimitive)
	}

	vectors := []struct {
		prefix, scalar string
		signed, float  bool
	}{
		{"sim.Float", "f32", true, true},
		{"sim.Int", "i32", true, false},
		{"sim.UInt", "u32", false, false},
	}

	for _, v := range vectors {
		for n := 2; n <= 4; n++ {
			t := b.define(v.prefix+string(rune('0'+n)), KindStruct)
			for i := 0; i < n; i++ {
				t.Fields = append(t.Fields, &Field{Owner: t, Name: componentNames[i], Type: b.t(v.scalar)})
			}
		}
	}

	for _, v := range vectors {
		for n := 2; n <= 4; n++ {
			name := v.prefix + string(rune('0'+n))
			t := b.t(name)

			b.ctor(t, repeat(v.scalar, n)...)
			b.ctor(t, v.scalar)

			b.method(t, "op_Addition", "op.add", true, name, name, name)
			b.method(t, "op_Subtraction", "op.sub", true, name, name, name)
			b.method(t, "op_Multiply", "op.mul", true, name, name, name)
			b.method(t, "op_Multiply", "op.mul", true, name, name, v.scalar)
			b.method(t, "op_Multiply", "op.mul", true, name, v.scalar, name)
			b.method(t, "op_Division", "op.div", true, name, name, name)
			b.method(t, "op_Division", "op.div", true, name, name, v.scalar)
			b.method(t, "op_Equality", "op.eq", true, "bool", name, name)
			b.method(t, "op_Inequality", "op.ne", true, "bool", name, name)
			if v.signed {
				b.method(t, "op_UnaryNegation", "op.neg", true, name, name)
			}
			if v.float {
				b.method(t, "Length", "length", false, "f32")
				b.method(t, "Normalized", "normalize", false, name)
				b.method(t, "Dot", "dot", true, "f32", name, name)
				b.method(t, "Distance", "distance", true, "f32", name, name)
				b.method(t, "Lerp", "lerp", true, name, name, name, "f32")
			}
		}
	}

	b.ctor(b.t("sim.Float3"), "sim.Float2", "f32")
	b.ctor(b.t("sim.Float4"), "sim.Float3", "f32")
	b.ctor(b.t("sim.Float4"), "sim.Float2", "f32", "f32")
	b.ctor(b.t("sim.Float4"), "sim.Float2", "sim.Float2")
	b.method(b.t("sim.Float3"), "Cross", "cross", true, "sim.Float3", "sim.Float3", "sim.Float3")

	color := b.define("sim.Color", KindStruct)
	for _, c := range []string{"R", "G", "B", "A"} {
		color.Fields = append(color.Fields, &Field{Owner: color, Name: c, Type: b.t("f32")})
	}
	b.ctor(color, "f32", "f32", "f32", "f32")
	b.method(color, "op_Addition", "op.add", true, "sim.Color", "sim.Color", "sim.Color")
	b.method(color, "op_Multiply", "op.mul", true, "sim.Color", "sim.Color", "sim.Color")
	b.method(color, "op_Multiply", "op.mul", true, "sim.Color", "sim.Color", "f32")
	b.method(color, "Lerp", "lerp", true, "sim.Color", "sim.Color", "sim.Color", "f32")
	b.method(color, "ToFloat4", "cast", false, "sim.Float4")

	m4 := b.define("sim.Matrix4x4", KindStruct)
	b.method(m4, "op_Multiply", "op.mul", true, "sim.Matrix4x4", "sim.Matrix4x4", "sim.Matrix4x4")
	b.method(m4, "Transform", "op.mul", false, "sim.Float4", "sim.Float4")

	m32 := b.define("sim.Matrix3x2", KindStruct)
	b.method(m32, "Transform", "op.mul", false, "sim.Float2", "sim.Float3")

	tex := b.define("sim.Texture", KindClass)
	b.method(tex, "Sample", "sample", false, "sim.Color", "sim.Float2")
	b.define("sim.DepthMask", KindClass)

	sm := b.define(ShaderMathType, KindClass)
	floats := []string{"f32", "sim.Float2", "sim.Float3", "sim.Float4"}
	unary := []string{"Sin", "Cos", "Tan", "Asin", "Acos", "Atan", "Sqrt", "InverseSqrt",
		"Exp", "Exp2", "Log", "Log2", "Abs", "Floor", "Ceiling", "Round", "Fract", "Sign"}
	binary := []string{"Min", "Max", "Pow", "Step", "Mod", "Atan2"}
	for _, ft := range floats {
		for _, name := range unary {
			b.method(sm, name, intrinsicName(name), true, ft, ft)
		}
		for _, name := range binary {
			b.method(sm, name, intrinsicName(name), true, ft, ft, ft)
		}
		b.method(sm, "Clamp", "clamp", true, ft, ft, ft, ft)
		b.method(sm, "SmoothStep", "smoothstep", true, ft, ft, ft, ft)
		b.method(sm, "Lerp", "lerp", true, ft, ft, ft, "f32")
	}
	for _, ft := range floats[1:] {
		b.method(sm, "Dot", "dot", true, "f32", ft, ft)
		b.method(sm, "Length", "length", true, "f32", ft)
		b.method(sm, "Distance", "distance", true, "f32", ft, ft)
		b.method(sm, "Normalize", "normalize", true, ft, ft)
		b.method(sm, "Reflect", "reflect", true, ft, ft, ft)
	}
	b.method(sm, "Cross", "cross", true, "sim.Float3", "sim.Float3", "sim.Float3")
	b.method(sm, "Min", "min", true, "i32", "i32", "i32")
	b.method(sm, "Max", "max", true, "i32", "i32", "i32")
	b.method(sm, "Abs", "abs", true, "i32", "i32")
	b.method(sm, "Clamp", "clamp", true, "i32", "i32", "i32", "i32")

	for _, lib := range []struct{ name, scalar string }{{MathType, "f64"}, {MathFType, "f32"}} {
		t := b.define(lib.name, KindClass)
		s := lib.scalar
		for _, name := range []string{"Sin", "Cos", "Tan", "Asin", "Acos", "Atan", "Sqrt", "Exp", "Log", "Abs", "Floor", "Ceiling", "Round", "Sign"} {
			b.method(t, name, "", true, s, s)
		}
		for _, name := range []string{"Pow", "Atan2", "Min", "Max"} {
			b.method(t, name, "", true, s, s, s)
		}
		b.method(t, "Clamp", "", true, s, s, s, s)
	}
	math := b.t(MathType)
	b.method(math, "Abs", "", true, "i32", "i32")
	b.method(math, "Min", "", true, "i32", "i32", "i32")
	b.method(math, "Max", "", true, "i32", "i32", "i32")
	b.method(math, "Clamp", "", true, "i32", "i32", "i32", "i32")
}

// intrinsicName converts a library method name into the neutral intrinsic
// spelling the backends translate.
func intrinsicName(method string) string {
	switch method {
	case "Ceiling":
		return "ceil"
	case "InverseSqrt":
		return "rsqrt"
	case "Fract":
		return "frac"
	case "SmoothStep":
		return "smoothstep"
	}
	return strings.ToLower(method)
}
