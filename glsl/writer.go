// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// entryName is the name the entry method is always emitted under.
const entryName = "main"

// Writer generates GLSL source code from a compiled program.
type Writer struct {
	program *ir.Program
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Name management. Program scope names live in namer; each function
	// gets a scope seeded from it.
	namer       *namer
	structNames map[*ir.Struct]string
	funcNames   map[host.MethodKey]string
	varNames    map[*ir.Variable]string

	// Loops enclosing the statement being written
	loops []*ir.Loop

	// Entry point context
	inEntryPoint bool
	fragColor    string

	// Output tracking
	uniforms        []Uniform
	requiredVersion Version
}

// namer generates unique identifiers.
type namer struct {
	usedNames map[string]struct{}
	counter   uint32
}

func newNamer() *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
	}
}

// call generates a unique name based on the given base.
func (n *namer) call(base string) string {
	// Escape reserved words
	escaped := escapeKeyword(sanitize(base))

	// First try the base name directly
	if _, used := n.usedNames[escaped]; !used {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}

	// Add numeric suffix
	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

// reserve marks name as used without escaping it.
func (n *namer) reserve(name string) {
	n.usedNames[name] = struct{}{}
}

// scope returns a namer that avoids every name n has handed out so far.
func (n *namer) scope() *namer {
	s := &namer{usedNames: make(map[string]struct{}, len(n.usedNames)), counter: n.counter}
	for name := range n.usedNames {
		s.usedNames[name] = struct{}{}
	}
	return s
}

// sanitize drops characters GLSL identifiers cannot hold. Host names such
// as ".ctor" or "get_Item" lose the dot; double underscores, which GLSL
// reserves, are collapsed.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '_':
			if s := sb.String(); strings.HasSuffix(s, "_") {
				continue
			}
			sb.WriteRune(r)
		}
	}

	s := sb.String()
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

// newWriter creates a new GLSL writer.
func newWriter(p *ir.Program, options *Options) *Writer {
	return &Writer{
		program:         p,
		options:         options,
		namer:           newNamer(),
		structNames:     make(map[*ir.Struct]string),
		funcNames:       make(map[host.MethodKey]string),
		varNames:        make(map[*ir.Variable]string),
		requiredVersion: options.LangVersion,
	}
}

// String returns the generated GLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeProgram generates GLSL code for the entire program.
func (w *Writer) writeProgram() error {
	if w.program.Entry == nil || len(w.program.Methods) == 0 {
		return ir.Internal("program has no entry method")
	}

	w.checkVersion()

	// 1. Write version directive
	w.writeVersionDirective()

	// 2. Write precision qualifiers (ES only)
	w.writePrecisionQualifiers()

	// 3. Register all names
	w.registerNames()

	// 4. Write struct definitions
	w.writeStructs()

	// 5. Write global variables (uniforms, inputs, outputs)
	w.writeGlobalVariables()

	// 6. Write methods, callees first and main last
	for _, m := range w.program.Methods {
		if err := w.writeFunction(m); err != nil {
			return err
		}
	}

	return nil
}

// checkVersion raises the target version when the program needs it.
func (w *Writer) checkVersion() {
	if !w.options.WrapEntry || w.program.Kind != host.ShaderCompute || w.options.LangVersion.SupportsCompute() {
		return
	}

	if w.options.LangVersion.ES {
		w.options.LangVersion = VersionES310
	} else {
		w.options.LangVersion = Version430
	}
	w.requiredVersion = w.options.LangVersion
}

// writeVersionDirective writes the #version directive.
func (w *Writer) writeVersionDirective() {
	w.writeLine("#version %s", w.options.LangVersion.String())
	w.writeLine("")
}

// writePrecisionQualifiers writes precision qualifiers for ES.
func (w *Writer) writePrecisionQualifiers() {
	if !w.options.LangVersion.ES || !w.options.ForceHighPrecision {
		return
	}

	// ES requires precision qualifiers
	w.writeLine("precision highp float;")
	w.writeLine("precision highp int;")
	w.writeLine("precision highp sampler2D;")
	w.writeLine("")
}

// registerNames assigns unique program scope names. The order is fixed, so
// names are stable across runs: main first, then structs, shader
// variables and methods in program order.
func (w *Writer) registerNames() {
	w.namer.reserve(entryName)

	for _, s := range w.program.Structs {
		w.structNames[s] = w.namer.call(s.Name)
	}

	if w.options.WrapEntry && w.program.Kind == host.ShaderPixel {
		w.fragColor = w.namer.call("fragColor")
	}

	for _, v := range w.program.Variables {
		w.varNames[v] = w.namer.call(v.Name)
	}

	for _, m := range w.program.Methods {
		if m == w.program.Entry {
			w.funcNames[m.Key] = entryName
			continue
		}

		base := m.Name
		if !m.OnShader {
			base = m.OwnerName + "_" + sanitize(m.Name)
		}
		w.funcNames[m.Key] = w.namer.call(base)
	}
}

// writeStructs writes struct declarations, dependencies first.
func (w *Writer) writeStructs() {
	for _, s := range w.program.Structs {
		w.writeLine("struct %s {", w.structNames[s])
		w.pushIndent()
		for _, f := range s.Fields {
			w.writeLine("%s %s%s;", w.baseTypeName(f.Type), escapeKeyword(f.Name), arraySuffix(f.Type))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
}

// writeGlobalVariables writes uniform, input and output declarations.
func (w *Writer) writeGlobalVariables() {
	written := false
	location := 0

	for _, v := range w.program.Variables {
		name := w.varNames[v]
		decl := w.baseTypeName(v.Type) + " " + name + arraySuffix(v.Type)

		switch v.Kind {
		case ir.VarUniform:
			w.writeLine("uniform %s;", decl)
			w.uniforms = append(w.uniforms, Uniform{Name: name, Field: v.Name, Type: v.Type})
		case ir.VarVertexInput:
			if w.options.WrapEntry {
				w.writeLine("layout(location = %d) in %s;", location, decl)
				location++
			} else {
				w.writeLine("in %s;", decl)
			}
		case ir.VarVertexOutput:
			w.writeLine("out %s;", decl)
		default:
			continue
		}
		written = true
	}

	switch {
	case w.fragColor != "":
		w.writeLine("layout(location = 0) out vec4 %s;", w.fragColor)
		written = true
	case w.options.WrapEntry && w.program.Kind == host.ShaderCompute:
		w.writeLine("layout(local_size_x = 1, local_size_y = 1, local_size_z = 1) in;")
		written = true
	}

	if written {
		w.writeLine("")
	}
}

// writeFunction writes one compiled method.
func (w *Writer) writeFunction(m *ir.Method) error {
	w.inEntryPoint = m == w.program.Entry
	defer func() { w.inEntryPoint = false }()

	scope := w.namer.scope()
	for _, v := range m.Params {
		w.varNames[v] = scope.call(v.Name)
	}
	for _, v := range m.Locals {
		w.varNames[v] = scope.call(v.Name)
	}

	wrap := w.inEntryPoint && w.options.WrapEntry

	if wrap {
		w.writeLine("void %s() {", entryName)
	} else {
		params := make([]string, len(m.Params))
		for i, v := range m.Params {
			params[i] = w.paramDecl(v)
		}
		w.writeLine("%s %s(%s) {", w.typeName(m.Return), w.funcNames[m.Key], strings.Join(params, ", "))
	}
	w.pushIndent()

	if wrap {
		w.writeEntryInputs(m)
	}

	w.writeLocalVars(m)

	body := m.Body.Stmts
	if n := len(body); n != 0 && ir.IsVoid(m.Return) {
		if r, ok := body[n-1].(*ir.Return); ok && r.Value == nil {
			body = body[:n-1]
		}
	}

	for i, s := range body {
		var err error
		if r, ok := s.(*ir.Return); ok && i == len(body)-1 {
			err = w.writeReturn(r, true)
		} else {
			err = w.writeStatement(s)
		}
		if err != nil {
			return err
		}
	}

	w.popIndent()
	w.writeLine("}")
	if !w.inEntryPoint {
		w.writeLine("")
	}

	return nil
}

func (w *Writer) paramDecl(v *ir.Variable) string {
	t := v.Type
	qual := ""
	if r, ok := t.(ir.ReferenceType); ok {
		qual, t = "inout ", r.Elem
	}
	return qual + w.baseTypeName(t) + " " + w.varNames[v] + arraySuffix(t)
}

// writeEntryInputs declares the entry parameters of a wrapped main and
// reads them from built-in inputs.
func (w *Writer) writeEntryInputs(m *ir.Method) {
	for i, v := range m.Params {
		var src string

		switch w.program.Kind {
		case host.ShaderPixel:
			src = "gl_FragCoord.xy"
		case host.ShaderCompute:
			src = "int(gl_GlobalInvocationID." + "xyz"[i%3:i%3+1] + ")"
		default:
			src = w.zeroValue(v.Type)
		}

		w.writeLine("%s %s = %s;", w.typeName(v.Type), w.varNames[v], src)
	}
}

// writeLocalVars declares the locals of m grouped by type, each
// zero-initialized.
func (w *Writer) writeLocalVars(m *ir.Method) {
	var order []string
	groups := make(map[string][]string)

	for _, v := range m.Locals {
		base := w.baseTypeName(v.Type)
		decl := w.varNames[v] + arraySuffix(v.Type)
		if p, ok := v.Type.(ir.Primitive); !ok || !p.IsOpaque() {
			if z := w.zeroValue(v.Type); z != "" {
				decl += " = " + z
			}
		}

		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], decl)
	}

	for _, base := range order {
		w.writeLine("%s %s;", base, strings.Join(groups[base], ", "))
	}
}

// Output helpers

// writeLine writes a line with indentation and newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	if format == "" && len(args) == 0 {
		w.out.WriteByte('\n')
		return
	}
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}
