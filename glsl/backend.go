// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/ir"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	// Desktop OpenGL versions
	Version330 = Version{Major: 3, Minor: 30, ES: false} // OpenGL 3.3 Core
	Version400 = Version{Major: 4, Minor: 0, ES: false}  // OpenGL 4.0
	Version430 = Version{Major: 4, Minor: 30, ES: false} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50, ES: false} // OpenGL 4.5

	// OpenGL ES / WebGL versions
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// VersionNumber returns just the numeric version (e.g., "330", "300").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// ParseVersion parses a numeric version such as 330 or 300. ES selects
// GLSL ES.
func ParseVersion(number int, es bool) (Version, error) {
	if number < 100 || number > 999 {
		return Version{}, errors.New("bad glsl version %d", number)
	}
	return Version{Major: uint8(number / 100), Minor: uint8(number % 100), ES: es}, nil //nolint:gosec // range checked above
}

// SupportsCompute returns true if this version supports compute shaders.
func (v Version) SupportsCompute() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 10)
	}
	return v.Major > 4 || (v.Major == 4 && v.Minor >= 30)
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version330 if zero.
	LangVersion Version

	// WrapEntry emits standard GLSL: a void main reading built-in inputs
	// and writing the entry result to fragColor or gl_Position. Without it
	// main keeps the entry method's signature, the way runtime effect
	// hosts expect.
	WrapEntry bool

	// ForceHighPrecision writes highp precision qualifiers (ES only).
	ForceHighPrecision bool
}

// DefaultOptions returns sensible default options for GLSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion:        Version330,
		ForceHighPrecision: true,
	}
}

// Uniform is one uniform declared by the generated program.
type Uniform struct {
	// Name is the GLSL name the uniform is declared under.
	Name string

	// Field is the name of the host field backing the uniform.
	Field string

	Type ir.Type
}

// TranslationInfo contains metadata about the translation.
type TranslationInfo struct {
	// EntryName is the name of the generated entry function.
	EntryName string

	// Uniforms lists the declared uniforms in declaration order.
	Uniforms []Uniform

	// RequiredVersion is the minimum GLSL version needed for this shader.
	// May be higher than the requested version if features require it.
	RequiredVersion Version
}

// Compile generates GLSL source code from a compiled program.
// Returns the GLSL source as a string, translation info, or an error.
func Compile(p *ir.Program, options Options) (string, TranslationInfo, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version330
	}

	w := newWriter(p, &options)

	if err := w.writeProgram(); err != nil {
		return "", TranslationInfo{}, errors.Wrap(err, "glsl")
	}

	info := TranslationInfo{
		EntryName:       entryName,
		Uniforms:        w.uniforms,
		RequiredVersion: w.requiredVersion,
	}

	return w.String(), info, nil
}
