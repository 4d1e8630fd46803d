// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// entryName is the name the entry method is always emitted under.
const entryName = "main"

// Writer generates HLSL source code from a compiled program.
type Writer struct {
	program *ir.Program
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Name management
	namer        *namer
	structNames  map[*ir.Struct]string
	funcNames    map[host.MethodKey]string
	varNames     map[*ir.Variable]string
	samplerNames map[*ir.Variable]string

	// Loops enclosing the statement being written
	loops []*ir.Loop

	// Automatic register assignment
	nextRegister [3]uint32

	uniforms []Uniform
}

// newWriter creates a new HLSL writer.
func newWriter(p *ir.Program, options *Options) *Writer {
	return &Writer{
		program:      p,
		options:      options,
		namer:        newNamer(),
		structNames:  make(map[*ir.Struct]string),
		funcNames:    make(map[host.MethodKey]string),
		varNames:     make(map[*ir.Variable]string),
		samplerNames: make(map[*ir.Variable]string),
	}
}

// String returns the generated HLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeProgram generates HLSL code for the entire program.
func (w *Writer) writeProgram() error {
	if w.program.Entry == nil || len(w.program.Methods) == 0 {
		return ir.Internal("program has no entry method")
	}
	if w.program.Kind == host.ShaderCompute {
		return ir.NewError(ir.ErrUnsupportedShaderKind, "compute entry points need a wrapped main")
	}

	// 1. Register all names
	w.registerNames()

	// 2. Write struct definitions
	w.writeStructs()

	// 3. Write uniforms and resources
	if err := w.writeGlobalVariables(); err != nil {
		return err
	}

	// 4. Write methods, callees first and main last
	for _, m := range w.program.Methods {
		if err := w.writeFunction(m); err != nil {
			return err
		}
	}

	return nil
}

// registerNames assigns unique program scope names in a fixed order.
func (w *Writer) registerNames() {
	w.namer.reserve(entryName)
	w.namer.reserve(GlobalsBuffer)

	for _, s := range w.program.Structs {
		w.structNames[s] = w.namer.call(s.Name)
	}

	for _, v := range w.program.Variables {
		w.varNames[v] = w.namer.call(v.Name)
		if p, ok := v.Type.(ir.Primitive); ok && p.IsOpaque() {
			w.samplerNames[v] = w.namer.call(v.Name + "_sampler")
		}
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
			w.writeLine("%s %s%s;", w.baseTypeName(f.Type), Escape(f.Name), arraySuffix(f.Type))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
}

// bindTarget returns the register target of a resource.
func (w *Writer) bindTarget(name string, rt RegisterType) (BindTarget, error) {
	if bt, ok := w.options.BindingMap[name]; ok {
		return bt, nil
	}
	if !w.options.FakeMissingBindings {
		return BindTarget{}, errors.New("no binding for %v", name)
	}

	bt := BindTarget{Register: w.nextRegister[rt]}
	w.nextRegister[rt]++
	return bt, nil
}

// writeGlobalVariables writes the constant buffer and the textures.
// Varyings have no HLSL global form.
func (w *Writer) writeGlobalVariables() error {
	var constants, textures []*ir.Variable

	for _, v := range w.program.Variables {
		switch v.Kind {
		case ir.VarUniform:
		case ir.VarVertexInput, ir.VarVertexOutput:
			return ir.NewError(ir.ErrUnsupportedConstruct, "%v variable %v", v.Kind, v.Name)
		default:
			continue
		}

		if p, ok := v.Type.(ir.Primitive); ok && p.IsOpaque() {
			textures = append(textures, v)
		} else {
			constants = append(constants, v)
		}
	}

	if len(constants) != 0 {
		bt, err := w.bindTarget(GlobalsBuffer, RegisterTypeB)
		if err != nil {
			return err
		}

		w.writeLine("cbuffer %s : %s {", GlobalsBuffer, bt.register(RegisterTypeB))
		w.pushIndent()
		for _, v := range constants {
			name := w.varNames[v]
			w.writeLine("%s %s%s;", w.baseTypeName(v.Type), name, arraySuffix(v.Type))
			w.uniforms = append(w.uniforms, Uniform{Name: name, Field: v.Name, Type: v.Type, Register: RegisterTypeB, Binding: bt})
		}
		w.popIndent()
		w.writeLine("};")
	}

	for _, v := range textures {
		bt, err := w.bindTarget(v.Name, RegisterTypeT)
		if err != nil {
			return err
		}

		name := w.varNames[v]
		w.writeLine("%s %s : %s;", w.typeName(v.Type), name, bt.register(RegisterTypeT))
		w.writeLine("SamplerState %s : %s;", w.samplerNames[v], bt.register(RegisterTypeS))
		w.uniforms = append(w.uniforms, Uniform{Name: name, Field: v.Name, Type: v.Type, Register: RegisterTypeT, Binding: bt})
	}

	if len(constants)+len(textures) != 0 {
		w.writeLine("")
	}

	return nil
}

// writeFunction writes one compiled method.
func (w *Writer) writeFunction(m *ir.Method) error {
	entry := m == w.program.Entry

	scope := w.namer.scope()
	for _, v := range m.Params {
		w.varNames[v] = scope.call(v.Name)
	}
	for _, v := range m.Locals {
		w.varNames[v] = scope.call(v.Name)
	}

	params := make([]string, len(m.Params))
	for i, v := range m.Params {
		params[i] = w.paramDecl(v)
		if entry {
			params[i] += fmt.Sprintf(" : TEXCOORD%d", i)
		}
	}

	semantic := ""
	if entry {
		semantic = returnSemantic(w.program.Kind)
	}

	w.writeLine("%s %s(%s)%s {", w.typeName(m.Return), w.funcNames[m.Key], strings.Join(params, ", "), semantic)
	w.pushIndent()

	w.writeLocalVars(m)

	body := m.Body.Stmts
	if n := len(body); n != 0 && ir.IsVoid(m.Return) {
		if r, ok := body[n-1].(*ir.Return); ok && r.Value == nil {
			body = body[:n-1]
		}
	}

	if err := w.writeStatements(body); err != nil {
		return err
	}

	w.popIndent()
	w.writeLine("}")
	if !entry {
		w.writeLine("")
	}

	return nil
}

// returnSemantic returns the output semantic of an entry returning a
// value.
func returnSemantic(kind host.ShaderKind) string {
	switch kind {
	case host.ShaderPixel:
		return " : SV_Target"
	case host.ShaderVertex:
		return " : SV_Position"
	default:
		return ""
	}
}

func (w *Writer) paramDecl(v *ir.Variable) string {
	t := v.Type
	qual := ""
	if r, ok := t.(ir.ReferenceType); ok {
		qual, t = "inout ", r.Elem
	}
	return qual + w.baseTypeName(t) + " " + w.varNames[v] + arraySuffix(t)
}

// writeLocalVars declares the locals of m grouped by type, each
// zero-initialized.
func (w *Writer) writeLocalVars(m *ir.Method) {
	var order []string
	groups := make(map[string][]string)

	for _, v := range m.Locals {
		base := w.baseTypeName(v.Type)
		decl := w.varNames[v] + arraySuffix(v.Type)
		if z := w.zeroInit(v.Type); z != "" {
			decl += " = " + z
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
