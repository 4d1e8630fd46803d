// Package disasm decodes host method bytecode into a linear instruction
// list with resolved operands and stack effects.
package disasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// Instruction is one decoded instruction. Only the operand fields that
// belong to Op are set.
type Instruction struct {
	Offset int
	Size   int
	Op     Op

	// Index is the argument or local index of variable accesses. Argument
	// 0 is the receiver of instance methods.
	Index int

	Int   int32
	Float float64

	// Target is the offset a branch jumps to.
	Target int

	Method *host.Method
	Field  *host.Field
	Type   *host.Type

	// Pop and Push are the number of stack slots consumed and produced.
	Pop, Push int
}

// Next returns the offset of the following instruction.
func (in *Instruction) Next() int { return in.Offset + in.Size }

// Class returns the instruction class.
func (in *Instruction) Class() Class { return in.Op.Class() }

// Operand renders the resolved operand, or "" if there is none.
func (in *Instruction) Operand() string {
	switch {
	case in.Op.IsBranch() || in.Op == OpLeave:
		return fmt.Sprintf("IL_%04x", in.Target)
	case in.Method != nil:
		return in.Method.Key().String()
	case in.Field != nil:
		return in.Field.Key().String()
	case in.Type != nil:
		return in.Type.Name
	}
	switch in.Op {
	case OpLdArg, OpLdArga, OpStArg, OpLdLoc, OpLdLoca, OpStLoc:
		return fmt.Sprint(in.Index)
	case OpLdcI4:
		return fmt.Sprint(in.Int)
	case OpLdcR4, OpLdcR8:
		return fmt.Sprint(in.Float)
	}
	return ""
}

func (in *Instruction) String() string {
	s := fmt.Sprintf("IL_%04x: %s", in.Offset, in.Op)
	if op := in.Operand(); op != "" {
		s += " " + op
	}
	return s
}

type decoder struct {
	r    host.Reflector
	m    *host.Method
	code []byte
	pc   int
	in   *Instruction
}

func (d *decoder) errorf(format string, args ...any) error {
	return ir.NewError(ir.ErrDisassembly, format, args...).At(d.m.Key().String(), d.in.Offset)
}

func (d *decoder) need(n int) error {
	if d.pc+n > len(d.code) {
		return d.errorf("truncated %v: need %d operand bytes, have %d", d.in.Op, n, len(d.code)-d.pc)
	}
	return nil
}

func (d *decoder) u8() (int, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.code[d.pc]
	d.pc++
	return int(v), nil
}

func (d *decoder) u16() (int, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.code[d.pc:])
	d.pc += 2
	return int(v), nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.code[d.pc:])
	d.pc += 4
	return v, nil
}

// Disassemble decodes the bytecode of m. Operand tokens are resolved
// through r, and every branch target must land on an instruction.
func Disassemble(r host.Reflector, m *host.Method) ([]Instruction, error) {
	d := &decoder{r: r, m: m, code: m.Code}

	var out []Instruction
	starts := make(map[int]bool)

	for d.pc < len(d.code) {
		in := Instruction{Offset: d.pc}
		d.in = &in
		starts[in.Offset] = true

		if err := d.decode(); err != nil {
			return nil, err
		}

		in.Size = d.pc - in.Offset
		d.stackEffect()
		out = append(out, in)
	}

	for i := range out {
		in := &out[i]
		if !in.Op.IsBranch() {
			continue
		}
		if !starts[in.Target] {
			d.in = in
			return nil, d.errorf("branch target IL_%04x is not an instruction boundary", in.Target)
		}
	}

	return out, nil
}

func (d *decoder) decode() error {
	in := d.in
	c := host.Code(d.code[d.pc])
	d.pc++

	if op, ok := simpleOps[c]; ok {
		in.Op = op
		return nil
	}

	if bop, short, ok := c.IsBranch(); ok {
		in.Op = OpBr + Op(bop)
		return d.branch(short)
	}

	switch {
	case c >= host.LdArg0 && c <= host.LdArg3:
		in.Op, in.Index = OpLdArg, int(c-host.LdArg0)
		return d.checkArg()
	case c >= host.LdLoc0 && c <= host.LdLoc3:
		in.Op, in.Index = OpLdLoc, int(c-host.LdLoc0)
		return d.checkLocal()
	case c >= host.StLoc0 && c <= host.StLoc3:
		in.Op, in.Index = OpStLoc, int(c-host.StLoc0)
		return d.checkLocal()
	case c >= host.LdcI40 && c <= host.LdcI48:
		in.Op, in.Int = OpLdcI4, int32(c-host.LdcI40)
		return nil
	}

	switch c {
	case host.LdArgS, host.LdArgaS, host.StArgS:
		in.Op = shortVarOps[c]
		return d.variable(d.u8, d.checkArg)
	case host.LdLocS, host.LdLocaS, host.StLocS:
		in.Op = shortVarOps[c]
		return d.variable(d.u8, d.checkLocal)
	case host.LdcI4M1:
		in.Op, in.Int = OpLdcI4, -1
		return nil
	case host.LdcI4S:
		in.Op = OpLdcI4
		v, err := d.u8()
		in.Int = int32(int8(v))
		return err
	case host.LdcI4:
		in.Op = OpLdcI4
		v, err := d.u32()
		in.Int = int32(v)
		return err
	case host.LdcR4:
		in.Op = OpLdcR4
		v, err := d.u32()
		in.Float = float64(math.Float32frombits(v))
		return err
	case host.LdcR8:
		in.Op = OpLdcR8
		if err := d.need(8); err != nil {
			return err
		}
		in.Float = math.Float64frombits(binary.LittleEndian.Uint64(d.code[d.pc:]))
		d.pc += 8
		return nil
	case host.Call, host.CallVirt, host.NewObj:
		in.Op = methodOps[c]
		return d.method()
	case host.LdFld, host.LdFlda, host.StFld, host.LdSFld, host.StSFld:
		in.Op = fieldOps[c]
		return d.field()
	case host.LdElem, host.StElem:
		in.Op = OpLdElem
		if c == host.StElem {
			in.Op = OpStElem
		}
		return d.typ()
	case host.LeaveS, host.Leave:
		in.Op = OpLeave
		return d.branch(c == host.LeaveS)
	case host.Prefix:
		return d.extended()
	}

	return d.errorf("unknown opcode %#02x", byte(c))
}

func (d *decoder) extended() error {
	in := d.in
	b, err := d.u8()
	if err != nil {
		return err
	}
	c := host.ExtCode(b)

	if op, ok := extOps[c]; ok {
		in.Op = op
		return nil
	}

	switch c {
	case host.LdArgL, host.LdArgaL, host.StArgL:
		in.Op = longVarOps[c]
		return d.variable(d.u16, d.checkArg)
	case host.LdLocL, host.LdLocaL, host.StLocL:
		in.Op = longVarOps[c]
		return d.variable(d.u16, d.checkLocal)
	case host.InitObj:
		in.Op = OpInitObj
		return d.typ()
	}

	return d.errorf("unknown extended opcode 0xfe %#02x", byte(c))
}

func (d *decoder) variable(read func() (int, error), check func() error) error {
	i, err := read()
	if err != nil {
		return err
	}
	d.in.Index = i
	return check()
}

func (d *decoder) checkArg() error {
	if d.in.Index >= d.m.ArgCount() {
		return d.errorf("argument %d out of range: method has %d", d.in.Index, d.m.ArgCount())
	}
	return nil
}

func (d *decoder) checkLocal() error {
	if d.in.Index >= len(d.m.Locals) {
		return d.errorf("local %d out of range: method has %d", d.in.Index, len(d.m.Locals))
	}
	return nil
}

func (d *decoder) branch(short bool) error {
	var disp int
	if short {
		v, err := d.u8()
		if err != nil {
			return err
		}
		disp = int(int8(v))
	} else {
		v, err := d.u32()
		if err != nil {
			return err
		}
		disp = int(int32(v))
	}
	d.in.Target = d.pc + disp
	return nil
}

func (d *decoder) token() (host.Token, error) {
	v, err := d.u32()
	return host.Token(v), err
}

func (d *decoder) method() error {
	tok, err := d.token()
	if err != nil {
		return err
	}
	d.in.Method, err = d.r.ResolveMethod(tok)
	if err != nil {
		return d.errorf("%v: %v", d.in.Op, err)
	}
	return nil
}

func (d *decoder) field() error {
	tok, err := d.token()
	if err != nil {
		return err
	}
	d.in.Field, err = d.r.ResolveField(tok)
	if err != nil {
		return d.errorf("%v: %v", d.in.Op, err)
	}
	return nil
}

func (d *decoder) typ() error {
	tok, err := d.token()
	if err != nil {
		return err
	}
	d.in.Type, err = d.r.ResolveType(tok)
	if err != nil {
		return d.errorf("%v: %v", d.in.Op, err)
	}
	return nil
}

func (d *decoder) stackEffect() {
	in := d.in
	switch in.Op {
	case OpNop, OpBr, OpLeave, OpEndFinally:
	case OpDup:
		in.Pop, in.Push = 1, 2
	case OpPop, OpStArg, OpStLoc, OpBrFalse, OpBrTrue, OpStSFld, OpThrow, OpInitObj:
		in.Pop = 1
	case OpRet:
		if !d.m.Return.IsVoid() {
			in.Pop = 1
		}
	case OpLdArg, OpLdArga, OpLdLoc, OpLdLoca, OpLdNull, OpLdcI4, OpLdcR4, OpLdcR8, OpLdSFld:
		in.Push = 1
	case OpNeg, OpNot, OpConvI4, OpConvU4, OpConvR4, OpConvR8, OpConvRUn, OpLdFld, OpLdFlda, OpLdLen:
		in.Pop, in.Push = 1, 1
	case OpStFld:
		in.Pop = 2
	case OpStElem:
		in.Pop = 3
	case OpCall, OpCallVirt:
		in.Pop = in.Method.ArgCount()
		if !in.Method.Return.IsVoid() {
			in.Push = 1
		}
	case OpNewObj:
		in.Pop, in.Push = len(in.Method.Params), 1
	default:
		switch {
		case in.Op.IsConditional():
			in.Pop = 2
		case in.Op.Class() == ClassArithmetic, in.Op.Class() == ClassCompare, in.Op == OpLdElem:
			in.Pop, in.Push = 2, 1
		}
	}
}
