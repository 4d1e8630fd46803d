// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl provides HLSL (High-Level Shading Language) code generation
// from a compiled shader program.
//
// It follows the rules of the glsl package: the same emission order,
// minimal parentheses, keyword escaping and local grouping. The
// differences are in spelling. Types are float4 and float4x4, lerp and
// frac are native, matrix products use mul, and a texture is sampled
// through a SamplerState declared next to it.
//
// # Usage
//
//	options := hlsl.DefaultOptions()
//	options.ShaderModel = hlsl.ShaderModel6_0
//
//	hlslCode, info, err := hlsl.Compile(program, options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// compile hlslCode with info.Profile, e.g. "ps_6_0"
//
// # Entry Point
//
// The entry method is written as main with its own return type and
// parameters. Parameters get TEXCOORDn semantics, and the return value
// SV_Target for pixel shaders or SV_Position for vertex shaders.
// Compute shaders and varyings need a wrapped main, which HLSL output
// does not support.
//
// # Register Binding
//
// HLSL uses register-based resource binding with spaces:
//
//	cbuffer Globals : register(b#, space#)  // Non-opaque uniforms
//	Texture2D       : register(t#, space#)  // Textures
//	SamplerState    : register(s#, space#)  // Sampler of each texture
//
// The BindingMap in Options allows explicit control over register assignment.
package hlsl
