// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl generates GLSL (OpenGL Shading Language) source from a
// compiled ir.Program.
//
// The output is laid out in a fixed order: the version directive, struct
// declarations, uniform and in/out declarations, then one function per
// compiled method with callees first and main last.
//
// # Basic Usage
//
//	source, info, err := glsl.Compile(program, glsl.Options{
//	    LangVersion: glsl.Version330,
//	})
//
// # Entry Styles
//
// By default main keeps the entry method's signature, so a pixel shader
// becomes "vec4 main(vec2 position)". With Options.WrapEntry the backend
// writes standard GLSL instead: a void main that reads gl_FragCoord or
// gl_GlobalInvocationID and writes fragColor or gl_Position.
//
// # Names
//
// Methods declared on the shader type keep their name. Other methods are
// prefixed with their declaring type ("Light_Scaled"). GLSL has over 500
// reserved words (including future reserved). The backend escapes
// conflicting identifier names by prefixing them with an underscore and
// makes every name unique with a numeric suffix.
package glsl
