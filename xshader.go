// Package xshader compiles shader types written in a host language to GPU
// shading languages.
//
// A shader type is a host class whose entry method (GetPixelColor,
// GetVertexPosition or RunThread) is compiled, together with every method it
// reaches, from stack bytecode to an expression tree and then to GLSL, HLSL
// or Metal source.
//
// Example usage:
//
//	m, err := host.LoadFile("effects.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := xshader.Compile(ctx, m, "demo.Gradient")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(res.Source)
//
// The stages are available on their own: compiler.Compile produces the
// ir.Program, and glsl.Compile, hlsl.Compile or msl.Compile generate source
// from it.
package xshader

import (
	"context"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/xshader/compiler"
	"github.com/gogpu/xshader/glsl"
	"github.com/gogpu/xshader/hlsl"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
	"github.com/gogpu/xshader/ir"
	"github.com/gogpu/xshader/msl"
)

// Target is an output shading language.
type Target string

// Supported targets.
const (
	TargetGLSL Target = "glsl"
	TargetHLSL Target = "hlsl"
	TargetMSL  Target = "msl"
)

// Options configures compilation. The TOML form is read by LoadOptions.
type Options struct {
	// Target is the output language (default: glsl).
	Target Target `toml:"target"`

	// Version is the GLSL version number. Zero means 330.
	Version int `toml:"version"`

	// ES selects GLSL ES.
	ES bool `toml:"es"`

	// WrapEntry emits a standard GLSL main. Only valid for GLSL.
	WrapEntry bool `toml:"wrap_entry"`

	// ShaderModel is the HLSL shader model, like "5_1" (default) or "6.0".
	ShaderModel string `toml:"shader_model"`

	// MetalVersion is the MSL language version, like "2.1" (default).
	MetalVersion string `toml:"metal_version"`

	// NoOptimize skips redundant variable elimination and the other tree
	// passes.
	NoOptimize bool `toml:"no_optimize"`

	// Intercepts is a prebuilt intercept table shared between compilations.
	Intercepts *intrinsic.Table `toml:"-"`
}

// Uniform is a uniform declared by the generated source.
type Uniform struct {
	// Name is the name in the generated source.
	Name string

	// Field is the host field backing the uniform.
	Field string

	Type ir.Type
}

// Result is a compiled shader.
type Result struct {
	Target Target

	// Source is the generated shader text.
	Source string

	// EntryName is the name of the generated entry function.
	EntryName string

	// Profile is the HLSL target profile, like ps_5_1, or the Metal
	// language standard, like metal2.1. Empty for GLSL.
	Profile string

	// Uniforms in declaration order.
	Uniforms []Uniform

	Program *ir.Program
}

// DefaultOptions returns options producing GLSL 330 core.
func DefaultOptions() Options {
	return Options{
		Target:  TargetGLSL,
		Version: 330,
	}
}

// LoadOptions reads TOML options over the defaults.
//
//	target = "glsl"
//	version = 300
//	es = true
//	wrap_entry = true
func LoadOptions(data []byte) (Options, error) {
	opts := DefaultOptions()

	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrap(err, "parse options")
	}

	if err := opts.validate(); err != nil {
		return Options{}, err
	}

	return opts, nil
}

func (o Options) validate() error {
	switch o.Target {
	case TargetGLSL:
		if _, err := o.glslVersion(); err != nil {
			return errors.Wrap(err, "options")
		}
	case TargetHLSL:
		if o.WrapEntry {
			return errors.New("options: wrap_entry is not supported for hlsl")
		}
		if o.ShaderModel != "" {
			if _, err := hlsl.ParseShaderModel(o.ShaderModel); err != nil {
				return errors.Wrap(err, "options")
			}
		}
	case TargetMSL:
		if o.WrapEntry {
			return errors.New("options: wrap_entry is not supported for msl")
		}
		if o.MetalVersion != "" {
			if _, err := msl.ParseVersion(o.MetalVersion); err != nil {
				return errors.Wrap(err, "options")
			}
		}
	default:
		return errors.New("options: unknown target %q", o.Target)
	}

	return nil
}

func (o Options) glslVersion() (glsl.Version, error) {
	if o.Version == 0 {
		return glsl.ParseVersion(330, o.ES)
	}
	return glsl.ParseVersion(o.Version, o.ES)
}

// Compile compiles the shader type named shader with default options.
func Compile(ctx context.Context, r host.Reflector, shader string) (*Result, error) {
	return CompileWithOptions(ctx, r, shader, DefaultOptions())
}

// CompileWithOptions compiles the shader type named shader.
//
// The compilation pipeline is:
//  1. Disassemble and structure every reachable method
//  2. Build and optimize expression trees
//  3. Generate source for the target
func CompileWithOptions(ctx context.Context, r host.Reflector, shader string, opts Options) (res *Result, err error) {
	if opts.Target == "" {
		opts.Target = TargetGLSL
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "xshader", "type", shader, "target", opts.Target)
	defer tr.Finish("err", &err)

	p, err := compiler.Compile(ctx, r, shader, compiler.Options{
		Intercepts: opts.Intercepts,
		NoOptimize: opts.NoOptimize,
	})
	if err != nil {
		return nil, err
	}

	return Generate(p, opts)
}

// Generate writes source for an already compiled program.
func Generate(p *ir.Program, opts Options) (*Result, error) {
	if opts.Target == "" {
		opts.Target = TargetGLSL
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Target:  opts.Target,
		Program: p,
	}

	switch opts.Target {
	case TargetHLSL:
		hopts := hlsl.DefaultOptions()
		if opts.ShaderModel != "" {
			sm, err := hlsl.ParseShaderModel(opts.ShaderModel)
			if err != nil {
				return nil, errors.Wrap(err, "options")
			}
			hopts.ShaderModel = sm
		}

		src, info, err := hlsl.Compile(p, hopts)
		if err != nil {
			return nil, err
		}

		res.Source = src
		res.EntryName = info.EntryName
		res.Profile = info.Profile
		for _, u := range info.Uniforms {
			res.Uniforms = append(res.Uniforms, Uniform{Name: u.Name, Field: u.Field, Type: u.Type})
		}
	case TargetMSL:
		mopts := msl.DefaultOptions()
		if opts.MetalVersion != "" {
			v, err := msl.ParseVersion(opts.MetalVersion)
			if err != nil {
				return nil, errors.Wrap(err, "options")
			}
			mopts.LangVersion = v
		}

		src, info, err := msl.Compile(p, mopts)
		if err != nil {
			return nil, err
		}

		res.Source = src
		res.EntryName = info.EntryName
		res.Profile = info.LangVersion.Std()
		for _, u := range info.Uniforms {
			res.Uniforms = append(res.Uniforms, Uniform{Name: u.Name, Field: u.Field, Type: u.Type})
		}
	default:
		v, err := opts.glslVersion()
		if err != nil {
			return nil, errors.Wrap(err, "options")
		}

		src, info, err := glsl.Compile(p, glsl.Options{
			LangVersion:        v,
			WrapEntry:          opts.WrapEntry,
			ForceHighPrecision: true,
		})
		if err != nil {
			return nil, err
		}

		res.Source = src
		res.EntryName = info.EntryName
		for _, u := range info.Uniforms {
			res.Uniforms = append(res.Uniforms, Uniform{Name: u.Name, Field: u.Field, Type: u.Type})
		}
	}

	return res, nil
}
