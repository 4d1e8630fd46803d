package msl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/ir"
)

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version1_2 = Version{Major: 1, Minor: 2}
	Version2_0 = Version{Major: 2, Minor: 0}
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version3_0 = Version{Major: 3, Minor: 0}
)

var knownVersions = []Version{Version1_2, Version2_0, Version2_1, Version2_3, Version3_0}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Std returns the metal compiler -std value of v, like "metal2.1".
func (v Version) Std() string {
	return "metal" + v.String()
}

// SupportsArrays reports whether metal::array is available.
func (v Version) SupportsArrays() bool {
	return v.Major >= 2
}

// ParseVersion parses a version written as "2.1" or "2_1".
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(strings.ReplaceAll(s, "_", "."), ".")
	if !ok {
		return Version{}, errors.New("invalid MSL version %q", s)
	}

	ma, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return Version{}, errors.New("invalid MSL version %q", s)
	}
	mi, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return Version{}, errors.New("invalid MSL version %q", s)
	}

	v := Version{Major: uint8(ma), Minor: uint8(mi)}
	for _, k := range knownVersions {
		if k == v {
			return v, nil
		}
	}

	return Version{}, errors.New("unsupported MSL version %v", v)
}

// GlobalsBuffer is the name of the struct holding the non-opaque uniforms.
// It is also the BindingMap key of the buffer it is passed in.
const GlobalsBuffer = "Globals"

// BindTarget specifies the Metal binding slots of a resource. The globals
// buffer uses Buffer, textures use Texture and Sampler.
type BindTarget struct {
	Buffer  uint8
	Texture uint8
	Sampler uint8
}

// Options configures MSL code generation.
type Options struct {
	// LangVersion is the target MSL version.
	// Defaults to Version2_1 if zero.
	LangVersion Version

	// BindingMap maps resources to Metal slots. Textures are keyed by their
	// host field name, the globals buffer by GlobalsBuffer.
	BindingMap map[string]BindTarget

	// FakeMissingBindings assigns the next free slot to resources not
	// found in BindingMap. Without it, a missing binding fails the
	// compilation.
	FakeMissingBindings bool
}

// DefaultOptions returns sensible default options for MSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion:         Version2_1,
		FakeMissingBindings: true,
	}
}

// Uniform describes one uniform of the generated program.
type Uniform struct {
	// Name is the MSL identifier, a Globals member or a texture argument.
	Name string

	// Field is the shader field the uniform was declared from.
	Field string

	Type ir.Type

	// Binding holds the buffer slot for Globals members and the texture
	// and sampler slots for textures.
	Binding BindTarget
}

// TranslationInfo contains information about the compiled MSL output.
type TranslationInfo struct {
	// EntryName is the name of the entry function.
	EntryName string

	// LangVersion is the version the source was written for.
	LangVersion Version

	// Uniforms lists the uniforms in declaration order.
	Uniforms []Uniform
}

// Compile generates MSL source code from a compiled program.
// Returns the MSL source, translation info, and any error.
func Compile(p *ir.Program, options Options) (string, *TranslationInfo, error) {
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version2_1
	}

	w := newWriter(p, &options)
	if err := w.writeProgram(); err != nil {
		return "", nil, errors.Wrap(err, "msl")
	}

	info := &TranslationInfo{
		EntryName:   entryName,
		LangVersion: options.LangVersion,
		Uniforms:    w.uniforms,
	}

	return w.String(), info, nil
}
