package msl

import (
	"fmt"
	"strings"

	"github.com/nikandfor/errors"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// Names of the generated entry and its stage structs. All are reserved
// words, so host names never collide with them.
const (
	entryName  = "main0"
	inputName  = "main0_in"
	outputName = "main0_out"
	inArg      = "in"
	outVar     = "out"
)

// Writer generates MSL source code from a compiled program.
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

	// Entry argument names
	globalsArg     string
	builtinArg     string
	positionMember string

	// Resources each method reads, directly or through its callees
	uses map[host.MethodKey]*usage

	// Program resources
	constants []*ir.Variable
	textures  []*ir.Variable
	inputs    []*ir.Variable
	outputs   []*ir.Variable

	// Loops enclosing the statement being written
	loops []*ir.Loop

	inEntryPoint bool

	// Automatic slot assignment: buffer, texture, sampler
	nextSlot [3]uint8

	uniforms []Uniform
}

// usage records the program resources a method needs passed in.
type usage struct {
	globals  bool
	in       bool
	out      bool
	textures map[*ir.Variable]struct{}
}

func (u *usage) merge(o *usage) {
	u.globals = u.globals || o.globals
	u.in = u.in || o.in
	u.out = u.out || o.out
	for v := range o.textures {
		u.textures[v] = struct{}{}
	}
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
	// First try the base name directly
	escaped := escapeName(sanitize(base))
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

// sanitize keeps the characters MSL identifiers can hold. Runs of
// underscores are collapsed, as C++ reserves names containing two.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '_':
			if strings.HasSuffix(sb.String(), "_") {
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

// newWriter creates a new MSL writer.
func newWriter(p *ir.Program, options *Options) *Writer {
	return &Writer{
		program:      p,
		options:      options,
		namer:        newNamer(),
		structNames:  make(map[*ir.Struct]string),
		funcNames:    make(map[host.MethodKey]string),
		varNames:     make(map[*ir.Variable]string),
		samplerNames: make(map[*ir.Variable]string),
		uses:         make(map[host.MethodKey]*usage),
	}
}

// String returns the generated MSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeProgram generates MSL code for the entire program.
func (w *Writer) writeProgram() error {
	if w.program.Entry == nil || len(w.program.Methods) == 0 {
		return ir.Internal("program has no entry method")
	}

	// 1. Sort resources and check what MSL can express
	if err := w.classifyVariables(); err != nil {
		return err
	}
	if err := w.checkTypes(); err != nil {
		return err
	}

	// 2. Register all names
	w.registerNames()

	// 3. Find the resources every method needs
	w.collectUsage()

	// 4. Write header and struct definitions
	w.writeHeader()
	w.writeStructs()

	// 5. Write the globals struct and the vertex stage structs
	if err := w.writeGlobals(); err != nil {
		return err
	}
	w.writeStageStructs()

	// 6. Write methods, callees first and main0 last
	for _, m := range w.program.Methods {
		if err := w.writeFunction(m); err != nil {
			return err
		}
	}

	return nil
}

// classifyVariables sorts the shader variables by how the entry receives
// them. Varyings only exist for vertex entries.
func (w *Writer) classifyVariables() error {
	for _, v := range w.program.Variables {
		switch v.Kind {
		case ir.VarUniform:
			if p, ok := v.Type.(ir.Primitive); ok && p.IsOpaque() {
				w.textures = append(w.textures, v)
			} else {
				w.constants = append(w.constants, v)
			}
		case ir.VarVertexInput, ir.VarVertexOutput:
			if w.program.Kind != host.ShaderVertex {
				return ir.NewError(ir.ErrUnsupportedConstruct, "%v variable %v in a %v shader", v.Kind, v.Name, w.program.Kind)
			}
			if v.Kind == ir.VarVertexInput {
				w.inputs = append(w.inputs, v)
			} else {
				w.outputs = append(w.outputs, v)
			}
		}
	}

	entry := w.program.Entry
	switch w.program.Kind {
	case host.ShaderVertex:
		if ir.IsVoid(entry.Return) {
			return ir.NewError(ir.ErrUnsupportedConstruct, "vertex entry returns no position")
		}
	case host.ShaderCompute:
		if !ir.IsVoid(entry.Return) {
			return ir.NewError(ir.ErrUnsupportedConstruct, "kernel entry returns a value")
		}
	}

	return nil
}

// checkTypes rejects types MSL output cannot spell.
func (w *Writer) checkTypes() error {
	for _, s := range w.program.Structs {
		for _, f := range s.Fields {
			if err := w.checkType(f.Type, s.Name+"."+f.Name); err != nil {
				return err
			}
		}
	}

	for _, v := range w.program.Variables {
		if err := w.checkType(v.Type, v.Name); err != nil {
			return err
		}
	}

	for _, m := range w.program.Methods {
		if err := w.checkType(m.Return, m.Name); err != nil {
			return err
		}
		for _, v := range m.Params {
			if err := w.checkType(v.Type, m.Name+" "+v.Name); err != nil {
				return err
			}
		}
		for _, v := range m.Locals {
			if err := w.checkType(v.Type, m.Name+" "+v.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

// registerNames assigns unique program scope names in a fixed order.
func (w *Writer) registerNames() {
	w.namer.reserve(GlobalsBuffer)

	for _, s := range w.program.Structs {
		w.structNames[s] = w.namer.call(s.Name)
	}

	w.globalsArg = w.namer.call("globals")

	switch w.program.Kind {
	case host.ShaderPixel:
		w.builtinArg = w.namer.call("fragCoord")
	case host.ShaderCompute:
		w.builtinArg = w.namer.call("gid")
	case host.ShaderVertex:
		w.positionMember = w.namer.call("position")
	}

	for _, v := range w.program.Variables {
		w.varNames[v] = w.namer.call(v.Name)
		if p, ok := v.Type.(ir.Primitive); ok && p.IsOpaque() && v.Kind == ir.VarUniform {
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

// collectUsage finds the resources each method reads or writes. Methods
// are ordered callees first, so a callee's usage is known before its
// callers are visited.
func (w *Writer) collectUsage() {
	for _, m := range w.program.Methods {
		u := &usage{textures: make(map[*ir.Variable]struct{})}

		ir.Walk(m.Body, func(e ir.Expr) bool {
			switch e := e.(type) {
			case *ir.VariableRead:
				switch e.Var.Kind {
				case ir.VarUniform:
					if _, ok := w.samplerNames[e.Var]; ok {
						u.textures[e.Var] = struct{}{}
					} else {
						u.globals = true
					}
				case ir.VarVertexInput:
					u.in = true
				case ir.VarVertexOutput:
					u.out = true
				}
			case *ir.Call:
				if c, ok := w.uses[e.Method]; ok && !e.IsIntrinsic() {
					u.merge(c)
				}
			}
			return true
		})

		w.uses[m.Key] = u
	}
}

// writeHeader writes the MSL file header.
func (w *Writer) writeHeader() {
	w.writeLine("// language: %s", w.options.LangVersion.Std())
	w.writeLine("#include <metal_stdlib>")
	w.writeLine("#include <simd/simd.h>")
	w.writeLine("")
	w.writeLine("using metal::uint;")
	w.writeLine("")
}

// writeStructs writes struct declarations, dependencies first.
func (w *Writer) writeStructs() {
	for _, s := range w.program.Structs {
		w.writeLine("struct %s {", w.structNames[s])
		w.pushIndent()
		for _, f := range s.Fields {
			w.writeLine("%s %s;", w.typeName(f.Type), escapeName(f.Name))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
}

// slot kinds indexing nextSlot
const (
	slotBuffer = iota
	slotTexture
)

// bindTarget returns the slots of a resource.
func (w *Writer) bindTarget(name string, kind int) (BindTarget, error) {
	if bt, ok := w.options.BindingMap[name]; ok {
		return bt, nil
	}
	if !w.options.FakeMissingBindings {
		return BindTarget{}, errors.New("no binding for %v", name)
	}

	var bt BindTarget
	if kind == slotBuffer {
		bt.Buffer = w.nextSlot[0]
		w.nextSlot[0]++
	} else {
		bt.Texture, bt.Sampler = w.nextSlot[1], w.nextSlot[2]
		w.nextSlot[1]++
		w.nextSlot[2]++
	}
	return bt, nil
}

// writeGlobals writes the Globals struct and assigns the resource slots.
func (w *Writer) writeGlobals() error {
	if len(w.constants) != 0 {
		bt, err := w.bindTarget(GlobalsBuffer, slotBuffer)
		if err != nil {
			return err
		}

		w.writeLine("struct %s {", GlobalsBuffer)
		w.pushIndent()
		for _, v := range w.constants {
			name := w.varNames[v]
			w.writeLine("%s %s;", w.typeName(v.Type), name)
			w.uniforms = append(w.uniforms, Uniform{Name: name, Field: v.Name, Type: v.Type, Binding: bt})
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}

	for _, v := range w.textures {
		bt, err := w.bindTarget(v.Name, slotTexture)
		if err != nil {
			return err
		}
		w.uniforms = append(w.uniforms, Uniform{Name: w.varNames[v], Field: v.Name, Type: v.Type, Binding: bt})
	}

	return nil
}

// writeStageStructs writes the input and output structs of a vertex entry.
func (w *Writer) writeStageStructs() {
	if w.program.Kind != host.ShaderVertex {
		return
	}

	if len(w.inputs) != 0 {
		w.writeLine("struct %s {", inputName)
		w.pushIndent()
		for i, v := range w.inputs {
			w.writeLine("%s %s [[attribute(%d)]];", w.typeName(v.Type), w.varNames[v], i)
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}

	w.writeLine("struct %s {", outputName)
	w.pushIndent()
	w.writeLine("%s %s [[position]];", w.typeName(w.program.Entry.Return), w.positionMember)
	for i, v := range w.outputs {
		w.writeLine("%s %s [[user(locn%d)]];", w.typeName(v.Type), w.varNames[v], i)
	}
	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
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

	if w.inEntryPoint {
		if err := w.writeEntrySignature(m); err != nil {
			return err
		}
	} else {
		params := make([]string, 0, len(m.Params))
		for _, v := range m.Params {
			params = append(params, w.paramDecl(v))
		}
		params = append(params, w.resourceParams(w.uses[m.Key])...)
		w.writeLine("%s %s(%s) {", w.typeName(m.Return), w.funcNames[m.Key], strings.Join(params, ", "))
	}
	w.pushIndent()

	if w.inEntryPoint {
		w.writeEntryPrologue(m)
	}

	w.writeLocalVars(m)

	body := m.Body.Stmts
	vertexEntry := w.inEntryPoint && w.program.Kind == host.ShaderVertex
	if n := len(body); n != 0 && ir.IsVoid(m.Return) {
		if r, ok := body[n-1].(*ir.Return); ok && r.Value == nil {
			body = body[:n-1]
		}
	}

	if err := w.writeStatements(body); err != nil {
		return err
	}

	if vertexEntry && !ir.EndsInReturn(m.Body) {
		w.writeLine("return %s;", outVar)
	}

	w.popIndent()
	w.writeLine("}")
	if !w.inEntryPoint {
		w.writeLine("")
	}

	return nil
}

// writeEntrySignature writes the stage function header. The entry takes
// every resource of the program.
func (w *Writer) writeEntrySignature(m *ir.Method) error {
	var stage, ret string
	var args []string

	switch w.program.Kind {
	case host.ShaderPixel:
		stage, ret = "fragment", w.typeName(m.Return)
		if len(m.Params) != 0 {
			args = append(args, fmt.Sprintf("%sfloat4 %s [[position]]", Namespace, w.builtinArg))
		}
	case host.ShaderVertex:
		stage, ret = "vertex", outputName
		if len(w.inputs) != 0 {
			args = append(args, fmt.Sprintf("%s %s [[stage_in]]", inputName, inArg))
		}
	case host.ShaderCompute:
		stage, ret = "kernel", "void"
		if len(m.Params) != 0 {
			args = append(args, fmt.Sprintf("%suint3 %s [[thread_position_in_grid]]", Namespace, w.builtinArg))
		}
	default:
		return ir.NewError(ir.ErrUnsupportedShaderKind, "%v entry", w.program.Kind)
	}

	if len(w.constants) != 0 {
		bt := w.uniforms[0].Binding
		args = append(args, fmt.Sprintf("constant %s& %s [[buffer(%d)]]", GlobalsBuffer, w.globalsArg, bt.Buffer))
	}

	for i, v := range w.textures {
		bt := w.uniforms[len(w.constants)+i].Binding
		args = append(args,
			fmt.Sprintf("%s %s [[texture(%d)]]", w.typeName(v.Type), w.varNames[v], bt.Texture),
			fmt.Sprintf("%ssampler %s [[sampler(%d)]]", Namespace, w.samplerNames[v], bt.Sampler),
		)
	}

	w.writeLine("%s %s %s(%s) {", stage, ret, entryName, strings.Join(args, ", "))
	return nil
}

// writeEntryPrologue declares the entry parameters from built-in inputs.
func (w *Writer) writeEntryPrologue(m *ir.Method) {
	if w.program.Kind == host.ShaderVertex {
		w.writeLine("%s %s = {};", outputName, outVar)
	}

	for i, v := range m.Params {
		var src string

		p, _ := ir.AsPrimitive(v.Type)
		switch w.program.Kind {
		case host.ShaderPixel:
			switch p.Components() {
			case 4:
				src = w.builtinArg
			case 3:
				src = w.builtinArg + ".xyz"
			case 2:
				src = w.builtinArg + ".xy"
			default:
				src = w.builtinArg + ".x"
			}
		case host.ShaderCompute:
			src = w.typeName(v.Type) + "(" + w.builtinArg + "." + "xyz"[i%3:i%3+1] + ")"
		default:
			src = w.zeroValue(v.Type)
		}

		w.writeLine("%s %s = %s;", w.typeName(v.Type), w.varNames[v], src)
	}
}

// resourceParams returns the parameters through which a helper receives
// the resources in u.
func (w *Writer) resourceParams(u *usage) []string {
	var params []string
	if u.globals {
		params = append(params, fmt.Sprintf("constant %s& %s", GlobalsBuffer, w.globalsArg))
	}
	if u.in {
		params = append(params, fmt.Sprintf("thread const %s& %s", inputName, inArg))
	}
	if u.out {
		params = append(params, fmt.Sprintf("thread %s& %s", outputName, outVar))
	}
	for _, v := range w.textures {
		if _, ok := u.textures[v]; ok {
			params = append(params,
				w.typeName(v.Type)+" "+w.varNames[v],
				Namespace+"sampler "+w.samplerNames[v],
			)
		}
	}
	return params
}

// resourceArgs returns the arguments matching resourceParams.
func (w *Writer) resourceArgs(u *usage) []string {
	var args []string
	if u.globals {
		args = append(args, w.globalsArg)
	}
	if u.in {
		args = append(args, inArg)
	}
	if u.out {
		args = append(args, outVar)
	}
	for _, v := range w.textures {
		if _, ok := u.textures[v]; ok {
			args = append(args, w.varNames[v], w.samplerNames[v])
		}
	}
	return args
}

func (w *Writer) paramDecl(v *ir.Variable) string {
	if r, ok := v.Type.(ir.ReferenceType); ok {
		return "thread " + w.typeName(r.Elem) + "& " + w.varNames[v]
	}
	return w.typeName(v.Type) + " " + w.varNames[v]
}

// writeLocalVars declares the locals of m, each zero-initialized.
func (w *Writer) writeLocalVars(m *ir.Method) {
	for _, v := range m.Locals {
		if p, ok := v.Type.(ir.Primitive); ok && p.IsOpaque() {
			w.writeLine("%s %s;", w.typeName(v.Type), w.varNames[v])
			continue
		}
		w.writeLine("%s %s = {};", w.typeName(v.Type), w.varNames[v])
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
