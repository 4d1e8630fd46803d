package msl

// reservedWords holds the C++ keywords, the MSL keywords and the names the
// generated code itself declares.
var reservedWords = map[string]struct{}{
	// C++14 keywords
	"alignas": {}, "alignof": {}, "and": {}, "and_eq": {}, "asm": {}, "auto": {},
	"bitand": {}, "bitor": {}, "bool": {}, "break": {}, "case": {}, "catch": {},
	"char": {}, "char16_t": {}, "char32_t": {}, "class": {}, "compl": {}, "const": {},
	"constexpr": {}, "const_cast": {}, "continue": {}, "decltype": {}, "default": {},
	"delete": {}, "do": {}, "double": {}, "dynamic_cast": {}, "else": {}, "enum": {},
	"explicit": {}, "export": {}, "extern": {}, "false": {}, "float": {}, "for": {},
	"friend": {}, "goto": {}, "if": {}, "inline": {}, "int": {}, "long": {},
	"mutable": {}, "namespace": {}, "new": {}, "noexcept": {}, "not": {}, "not_eq": {},
	"nullptr": {}, "operator": {}, "or": {}, "or_eq": {}, "private": {}, "protected": {},
	"public": {}, "register": {}, "reinterpret_cast": {}, "return": {}, "short": {},
	"signed": {}, "sizeof": {}, "static": {}, "static_assert": {}, "static_cast": {},
	"struct": {}, "switch": {}, "template": {}, "this": {}, "thread_local": {},
	"throw": {}, "true": {}, "try": {}, "typedef": {}, "typeid": {}, "typename": {},
	"union": {}, "unsigned": {}, "using": {}, "virtual": {}, "void": {}, "volatile": {},
	"wchar_t": {}, "while": {}, "xor": {}, "xor_eq": {},

	// Address spaces and function qualifiers
	"device": {}, "constant": {}, "thread": {}, "threadgroup": {},
	"threadgroup_imageblock": {}, "ray_data": {}, "object_data": {},
	"vertex": {}, "fragment": {}, "kernel": {}, "visible": {}, "stitchable": {},
	"main": {},

	// Types
	"half": {}, "uchar": {}, "ushort": {}, "uint": {}, "ulong": {}, "size_t": {},
	"ptrdiff_t": {}, "int8_t": {}, "int16_t": {}, "int32_t": {}, "int64_t": {},
	"uint8_t": {}, "uint16_t": {}, "uint32_t": {}, "uint64_t": {},
	"bool2": {}, "bool3": {}, "bool4": {},
	"int2": {}, "int3": {}, "int4": {}, "uint2": {}, "uint3": {}, "uint4": {},
	"float2": {}, "float3": {}, "float4": {}, "half2": {}, "half3": {}, "half4": {},
	"float2x2": {}, "float2x3": {}, "float2x4": {}, "float3x2": {}, "float3x3": {},
	"float3x4": {}, "float4x2": {}, "float4x3": {}, "float4x4": {},
	"texture1d": {}, "texture2d": {}, "texture3d": {}, "texturecube": {},
	"depth2d": {}, "sampler": {}, "array": {}, "packed_float3": {},
	"atomic_int": {}, "atomic_uint": {},

	// Standard library
	"metal": {}, "std": {}, "INFINITY": {}, "NAN": {},
	"abs": {}, "acos": {}, "asin": {}, "atan": {}, "atan2": {}, "ceil": {},
	"clamp": {}, "cos": {}, "cross": {}, "distance": {}, "dot": {}, "exp": {},
	"exp2": {}, "floor": {}, "fmod": {}, "fract": {}, "length": {}, "log": {},
	"log2": {}, "max": {}, "min": {}, "mix": {}, "normalize": {}, "pow": {},
	"reflect": {}, "round": {}, "rsqrt": {}, "saturate": {}, "sign": {}, "sin": {},
	"smoothstep": {}, "sqrt": {}, "step": {}, "tan": {},

	// Names of the generated entry
	"main0": {}, "main0_in": {}, "main0_out": {}, "in": {}, "out": {},
}

// isReserved reports whether name cannot be used as an identifier.
func isReserved(name string) bool {
	_, ok := reservedWords[name]
	return ok
}

// escapeName returns a safe identifier for name. Reserved words get an
// underscore suffix.
func escapeName(name string) string {
	if isReserved(name) {
		return name + "_"
	}
	return name
}
