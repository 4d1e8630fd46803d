// Command xshaderc compiles the shader types of a host program to GLSL, HLSL
// or Metal.
//
// Usage:
//
//	xshaderc [options] <program.toml>
//
// Examples:
//
//	xshaderc effects.toml                          # Every shader type to GLSL 330
//	xshaderc -type demo.Gradient effects.toml      # One type
//	xshaderc -target hlsl -sm 6_0 effects.toml     # HLSL for shader model 6.0
//	xshaderc -target msl -msl 2.3 effects.toml     # Metal 2.3
//	xshaderc -config opts.toml -o out effects.toml # Options file, one file per type
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/oklog/ulid/v2"

	"github.com/gogpu/xshader"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/intrinsic"
)

var (
	shaderType  = flag.String("type", "", "shader type to compile (default: all)")
	output      = flag.String("o", "", "output directory (default: stdout)")
	config      = flag.String("config", "", "TOML options file")
	target      = flag.String("target", "", "output language: glsl, hlsl or msl")
	glslVersion = flag.Int("version", 0, "GLSL version number")
	es          = flag.Bool("es", false, "emit GLSL ES")
	wrap        = flag.Bool("wrap", false, "emit a standard GLSL main")
	shaderModel = flag.String("sm", "", "HLSL shader model")
	mslVersion  = flag.String("msl", "", "Metal language version")
	noOpt       = flag.Bool("O0", false, "skip tree optimizations")
	stamp       = flag.Bool("stamp", false, "start each output with a build id comment")
	verbose     = flag.String("v", "", "tlog verbosity topics (dump_disasm,dump_regions,dump_tree)")
	showVersion = flag.Bool("V", false, "print version")
)

const xshadercVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("xshaderc version %s\n", xshadercVersion)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
	if *verbose != "" {
		tlog.SetVerbosity(*verbose)
	}

	if err := run(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(input string) (err error) {
	tr := tlog.Start("xshaderc", "input", input)
	defer tr.Finish("err", &err)

	ctx := tlog.ContextWithSpan(context.Background(), tr)

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	m, err := host.LoadFile(input)
	if err != nil {
		return err
	}

	opts.Intercepts, err = intrinsic.NewTable(m)
	if err != nil {
		return errors.Wrap(err, "intercept table")
	}

	var types []string
	if *shaderType != "" {
		types = []string{*shaderType}
	} else {
		for _, t := range m.ShaderTypes() {
			types = append(types, t.Name)
		}
	}

	if len(types) == 0 {
		return errors.New("%v declares no shader types", input)
	}

	if *output != "" {
		if err := os.MkdirAll(*output, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}

	build := ulid.Make()

	for _, name := range types {
		res, err := xshader.CompileWithOptions(ctx, m, name, opts)
		if err != nil {
			return errors.Wrap(err, "%v", name)
		}

		src := res.Source
		if *stamp {
			src = fmt.Sprintf("// %v compiled by xshaderc %s, build %v\n", name, xshadercVersion, build) + src
		}

		if *output == "" {
			if len(types) > 1 {
				fmt.Printf("// ---- %v ----\n", name)
			}
			if _, err := os.Stdout.WriteString(src); err != nil {
				return errors.Wrap(err, "write output")
			}
			continue
		}

		path := filepath.Join(*output, outputName(name, res.Target))
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil { //nolint:gosec // generated source is not secret
			return errors.Wrap(err, "write %v", path)
		}

		tr.Printw("compiled", "type", name, "file", path, "bytes", len(src), "uniforms", len(res.Uniforms))
	}

	return nil
}

// loadOptions reads the options file, then applies the flags given on the
// command line over it.
func loadOptions() (xshader.Options, error) {
	opts := xshader.DefaultOptions()

	if *config != "" {
		data, err := os.ReadFile(*config)
		if err != nil {
			return opts, errors.Wrap(err, "read options")
		}
		opts, err = xshader.LoadOptions(data)
		if err != nil {
			return opts, errors.Wrap(err, "%v", *config)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			opts.Target = xshader.Target(*target)
		case "version":
			opts.Version = *glslVersion
		case "es":
			opts.ES = *es
		case "wrap":
			opts.WrapEntry = *wrap
		case "sm":
			opts.ShaderModel = *shaderModel
		case "msl":
			opts.MetalVersion = *mslVersion
		case "O0":
			opts.NoOptimize = *noOpt
		}
	})

	return opts, nil
}

// outputName maps demo.Gradient to Gradient.glsl.
func outputName(shader string, t xshader.Target) string {
	if i := strings.LastIndexByte(shader, '.'); i >= 0 {
		shader = shader[i+1:]
	}
	if t == xshader.TargetMSL {
		return shader + ".metal"
	}
	return shader + "." + string(t)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: xshaderc [options] <program.toml>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  xshaderc effects.toml                       Compile every shader type to stdout\n")
	fmt.Fprintf(os.Stderr, "  xshaderc -type demo.Gradient effects.toml   Compile one type\n")
	fmt.Fprintf(os.Stderr, "  xshaderc -target hlsl -o out effects.toml   Write HLSL files to out/\n")
	fmt.Fprintf(os.Stderr, "  xshaderc -target msl -o out effects.toml    Write Metal files to out/\n")
}
