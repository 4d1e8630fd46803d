// Package msl implements Metal Shading Language (MSL) code generation for
// compiled shader programs.
//
// MSL is Apple's shader language for the Metal graphics API. It is based on
// C++14 with explicit address spaces, attribute-based parameter binding and
// a metal:: namespace for the standard library. Unlike GLSL and HLSL it has
// no program scope resources: everything an entry function reads is one of
// its parameters.
//
// # Usage
//
//	p, err := compiler.Compile(ctx, m, "demo.Gradient", compiler.Options{})
//	if err != nil {
//	    return err
//	}
//
//	source, info, err := msl.Compile(p, msl.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
// # Resources
//
// Non-opaque uniforms are members of a Globals struct passed to the entry
// as constant Globals& globals [[buffer(0)]]. Each texture is passed with a
// sampler of the same slot. Helper methods that read uniforms, textures or
// varyings get the same values as trailing parameters.
//
// # Entry Points
//
// The entry method is always named main0:
//   - fragment: reads its position parameter from [[position]]
//   - vertex: reads inputs from main0_in [[stage_in]] and returns main0_out,
//     whose position member holds the entry result
//   - kernel: reads its coordinates from [[thread_position_in_grid]]
//
// # Type Mapping
//
//	Host           MSL
//	----           ---
//	bool           bool
//	i32            int
//	u32            uint
//	f32            float
//	Float2..4      metal::float2..4
//	Matrix3x2      metal::float3x2
//	Matrix4x4      metal::float4x4
//	T[N]           metal::array<T, N>  (MSL 2.0+)
//	Texture        metal::texture2d<float>
package msl
