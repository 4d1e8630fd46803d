package host

import (
	"strconv"
	"strings"

	"github.com/nikandfor/errors"
)

var simpleOps = map[string]Code{
	"nop": Nop, "dup": Dup, "pop": Pop, "ret": Ret, "ldnull": LdNull,
	"add": Add, "sub": Sub, "mul": Mul, "div": Div, "div.un": DivUn,
	"rem": Rem, "rem.un": RemUn, "and": And, "or": Or, "xor": Xor,
	"shl": Shl, "shr": Shr, "shr.un": ShrUn, "neg": Neg, "not": Not,
	"conv.i4": ConvI4, "conv.u4": ConvU4, "conv.r4": ConvR4, "conv.r8": ConvR8, "conv.r.un": ConvRUn,
	"ldlen": LdLen, "throw": Throw, "endfinally": EndFinally,
}

var extOps = map[string]ExtCode{
	"ceq": Ceq, "cgt": Cgt, "cgt.un": CgtUn, "clt": Clt, "clt.un": CltUn,
}

var methodOps = map[string]Code{"call": Call, "callvirt": CallVirt, "newobj": NewObj}

var fieldOps = map[string]Code{
	"ldfld": LdFld, "ldflda": LdFlda, "stfld": StFld, "ldsfld": LdSFld, "stsfld": StSFld,
}

var branchOps = func() map[string]BranchOp {
	m := make(map[string]BranchOp, len(branchNames))
	for i, n := range branchNames {
		m[n] = BranchOp(i)
	}
	return m
}()

// Assemble encodes the assembly text of mt's body. Member references are
// resolved against m, and local and argument operands may be given by index
// or by name.
//
//	    ldarg position        // by name
//	    ldc.r4 0.5
//	    blt.s done
//	    call sim.ShaderMath::Sin(f32)
//	done:
//	    ret
func (m *Model) Assemble(mt *Method, src string) ([]byte, error) {
	a := NewAssembler()
	labels := make(map[string]*Label)

	label := func(name string) *Label {
		l, ok := labels[name]
		if !ok {
			l = a.NewLabel(name)
			labels[name] = l
		}
		return l
	}

	bound := make(map[string]bool)

	for lineno, line := range strings.Split(src, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		for {
			i := strings.IndexByte(line, ':')
			if i <= 0 || strings.ContainsAny(line[:i], " \t") || strings.HasPrefix(line[i:], "::") {
				break
			}
			name := line[:i]
			if bound[name] {
				return nil, errors.New("line %d: label %q bound twice", lineno+1, name)
			}
			bound[name] = true
			a.Bind(label(name))
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}

		op, arg, _ := strings.Cut(line, " ")
		op = strings.ToLower(op)
		arg = strings.TrimSpace(arg)

		if err := m.assembleOne(a, mt, op, arg, label); err != nil {
			return nil, errors.Wrap(err, "line %d: %v", lineno+1, line)
		}
	}

	for name := range labels {
		if !bound[name] {
			return nil, errors.New("label %q is never bound", name)
		}
	}

	return a.Bytes()
}

func (m *Model) assembleOne(a *Assembler, mt *Method, op, arg string, label func(string) *Label) error {
	op = strings.TrimSuffix(op, ".s")

	// Implicit-operand spellings: ldloc.2, ldc.i4.m1, ...
	for _, base := range []string{"ldarg", "ldloc", "stloc", "ldc.i4"} {
		if rest, ok := strings.CutPrefix(op, base+"."); ok && arg == "" {
			if rest == "m1" {
				rest = "-1"
			}
			if _, err := strconv.Atoi(rest); err == nil {
				op, arg = base, rest
			}
		}
	}

	if c, ok := simpleOps[op]; ok {
		return noOperand(op, arg, func() { a.Op(c) })
	}
	if c, ok := extOps[op]; ok {
		return noOperand(op, arg, func() { a.Ext(c) })
	}
	if b, ok := branchOps[op]; ok {
		if arg == "" {
			return errors.New("%v needs a label", op)
		}
		a.Branch(b, label(arg))
		return nil
	}

	switch op {
	case "ldarg", "ldarga", "starg":
		i, err := argIndex(mt, arg)
		if err != nil {
			return err
		}
		switch op {
		case "ldarg":
			a.LdArg(i)
		case "ldarga":
			a.LdArga(i)
		default:
			a.StArg(i)
		}
		return nil
	case "ldloc", "ldloca", "stloc":
		i, err := localIndex(mt, arg)
		if err != nil {
			return err
		}
		switch op {
		case "ldloc":
			a.LdLoc(i)
		case "ldloca":
			a.LdLoca(i)
		default:
			a.StLoc(i)
		}
		return nil
	case "ldc.i4":
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return errors.Wrap(err, "ldc.i4 operand")
		}
		a.LdcI4(int32(v))
		return nil
	case "ldc.r4":
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return errors.Wrap(err, "ldc.r4 operand")
		}
		a.LdcR4(float32(v))
		return nil
	case "ldc.r8":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return errors.Wrap(err, "ldc.r8 operand")
		}
		a.LdcR8(v)
		return nil
	case "leave":
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return errors.Wrap(err, "leave displacement")
		}
		a.Leave(int32(v))
		return nil
	case "initobj", "ldelem", "stelem":
		t, ok := m.LookupType(arg)
		if !ok {
			return errors.New("unknown type %v", arg)
		}
		switch op {
		case "initobj":
			a.ExtTok(InitObj, m.TypeToken(t))
		case "ldelem":
			a.Tok(LdElem, m.TypeToken(t))
		default:
			a.Tok(StElem, m.TypeToken(t))
		}
		return nil
	}

	if c, ok := methodOps[op]; ok {
		callee, err := FindMethod(m, arg)
		if err != nil {
			return err
		}
		a.Tok(c, m.MethodToken(callee))
		return nil
	}
	if c, ok := fieldOps[op]; ok {
		f, err := FindField(m, arg)
		if err != nil {
			return err
		}
		a.Tok(c, m.FieldToken(f))
		return nil
	}

	return errors.New("unknown mnemonic %q", op)
}

func noOperand(op, arg string, emit func()) error {
	if arg != "" {
		return errors.New("%v takes no operand, got %q", op, arg)
	}
	emit()
	return nil
}

func argIndex(mt *Method, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	if arg == "this" && !mt.Static {
		return 0, nil
	}
	for i, p := range mt.Params {
		if p.Name == arg {
			if !mt.Static {
				i++
			}
			return i, nil
		}
	}
	return 0, errors.New("%v has no parameter %q", mt.Name, arg)
}

func localIndex(mt *Method, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	for i, l := range mt.Locals {
		if l.Name == arg {
			return i, nil
		}
	}
	return 0, errors.New("%v has no local %q", mt.Name, arg)
}
