// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/ir"
)

// GlobalsBuffer is the name of the constant buffer holding the non-opaque
// uniforms. It is also the BindingMap key of that buffer.
const GlobalsBuffer = "Globals"

// Options configures HLSL code generation.
type Options struct {
	// ShaderModel specifies the target shader model.
	// Defaults to ShaderModel5_1 for maximum compatibility.
	ShaderModel ShaderModel

	// BindingMap maps resources to HLSL register targets. Textures are keyed
	// by their host field name, and their sampler shares the register index.
	// The constant buffer is keyed by GlobalsBuffer.
	BindingMap map[string]BindTarget

	// FakeMissingBindings generates automatic bindings for resources
	// not found in BindingMap. Without it, a missing binding fails the
	// compilation.
	FakeMissingBindings bool
}

// DefaultOptions returns sensible default options for HLSL generation.
func DefaultOptions() *Options {
	return &Options{
		ShaderModel:         ShaderModel5_1,
		BindingMap:          make(map[string]BindTarget),
		FakeMissingBindings: true,
	}
}

// Uniform describes one uniform of the generated program.
type Uniform struct {
	// Name is the HLSL identifier.
	Name string

	// Field is the shader field the uniform was declared from.
	Field string

	Type ir.Type

	// Register and Binding locate textures. Constant buffer members report
	// the buffer's binding.
	Register RegisterType
	Binding  BindTarget
}

// TranslationInfo contains information about the translation result.
type TranslationInfo struct {
	// EntryName is the name of the entry function.
	EntryName string

	// Profile is the shader profile to compile the output with, like "ps_5_1".
	Profile string

	// Uniforms lists the uniforms in declaration order.
	Uniforms []Uniform
}

// Compile generates HLSL source code from a compiled program.
// Returns the HLSL source, translation info, and any error.
func Compile(p *ir.Program, options *Options) (string, *TranslationInfo, error) {
	if options == nil {
		options = DefaultOptions()
	}

	w := newWriter(p, options)
	if err := w.writeProgram(); err != nil {
		return "", nil, errors.Wrap(err, "hlsl")
	}

	info := &TranslationInfo{
		EntryName: entryName,
		Profile:   ShaderProfile(p.Kind, options.ShaderModel),
		Uniforms:  w.uniforms,
	}

	return w.String(), info, nil
}
