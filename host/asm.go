package host

import (
	"encoding/binary"
	"math"

	"github.com/nikandfor/errors"
)

// Label is a branch target. Pointer identity is all that matters; the
// struct must not be empty.
type Label struct {
	name string
}

// asmItem is either fixed bytes or a branch to a label.
type asmItem struct {
	raw    []byte
	label  *Label // bound here when raw and branch are empty
	branch *asmBranch
}

type asmBranch struct {
	op     BranchOp
	target *Label
	long   bool
}

func (it *asmItem) size() int {
	switch {
	case it.branch == nil:
		return len(it.raw)
	case it.branch.long:
		return 5
	default:
		return 2
	}
}

// Assembler builds method bytecode. Variable accesses and constants pick
// the shortest encoding; branches are relaxed from short to long form until
// every displacement fits.
type Assembler struct {
	items []asmItem
	err   error
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler { return &Assembler{} }

// NewLabel creates an unbound label. The name only shows up in errors.
func (a *Assembler) NewLabel(name string) *Label { return &Label{name: name} }

// Bind places l at the current position.
func (a *Assembler) Bind(l *Label) {
	a.items = append(a.items, asmItem{label: l})
}

func (a *Assembler) emit(b ...byte) {
	a.items = append(a.items, asmItem{raw: b})
}

func (a *Assembler) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

// Op emits an opcode without operands.
func (a *Assembler) Op(c Code) { a.emit(byte(c)) }

// Ext emits an extended opcode without operands.
func (a *Assembler) Ext(c ExtCode) { a.emit(byte(Prefix), byte(c)) }

func (a *Assembler) variable(i int, short0 Code, s Code, l ExtCode) {
	switch {
	case i < 0 || i > math.MaxUint16:
		a.fail(errors.New("variable index %d out of range", i))
	case short0 != 0 && i < 4:
		a.emit(byte(short0) + byte(i))
	case i <= math.MaxUint8:
		a.emit(byte(s), byte(i))
	default:
		a.emit(byte(Prefix), byte(l), byte(i), byte(i>>8))
	}
}

func (a *Assembler) LdArg(i int)  { a.variable(i, LdArg0, LdArgS, LdArgL) }
func (a *Assembler) LdArga(i int) { a.variable(i, 0, LdArgaS, LdArgaL) }
func (a *Assembler) StArg(i int)  { a.variable(i, 0, StArgS, StArgL) }
func (a *Assembler) LdLoc(i int)  { a.variable(i, LdLoc0, LdLocS, LdLocL) }
func (a *Assembler) LdLoca(i int) { a.variable(i, 0, LdLocaS, LdLocaL) }
func (a *Assembler) StLoc(i int)  { a.variable(i, StLoc0, StLocS, StLocL) }

// LdcI4 emits an int32 constant in its shortest form.
func (a *Assembler) LdcI4(v int32) {
	switch {
	case v == -1:
		a.Op(LdcI4M1)
	case v >= 0 && v <= 8:
		a.Op(LdcI40 + Code(v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		a.emit(byte(LdcI4S), byte(int8(v)))
	default:
		b := []byte{byte(LdcI4), 0, 0, 0, 0}
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		a.emit(b...)
	}
}

// LdcR4 emits a float32 constant.
func (a *Assembler) LdcR4(v float32) {
	b := []byte{byte(LdcR4), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], math.Float32bits(v))
	a.emit(b...)
}

// LdcR8 emits a float64 constant.
func (a *Assembler) LdcR8(v float64) {
	b := make([]byte, 9)
	b[0] = byte(LdcR8)
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v))
	a.emit(b...)
}

// Tok emits an opcode followed by a metadata token.
func (a *Assembler) Tok(c Code, tok Token) {
	b := []byte{byte(c), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], uint32(tok))
	a.emit(b...)
}

// ExtTok emits an extended opcode followed by a metadata token.
func (a *Assembler) ExtTok(c ExtCode, tok Token) {
	b := []byte{byte(Prefix), byte(c), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[2:], uint32(tok))
	a.emit(b...)
}

// Branch emits a branch to l. The encoding is chosen by Bytes.
func (a *Assembler) Branch(op BranchOp, l *Label) {
	if op >= branchOpCount {
		a.fail(errors.New("bad branch op %d", op))
		return
	}
	a.items = append(a.items, asmItem{branch: &asmBranch{op: op, target: l}})
}

// Leave emits an exception-region exit branch. Only used to build inputs the
// compiler must reject.
func (a *Assembler) Leave(disp int32) {
	b := []byte{byte(Leave), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], uint32(disp))
	a.emit(b...)
}

func (a *Assembler) layout() (map[*Label]int, []int) {
	labels := make(map[*Label]int)
	offsets := make([]int, len(a.items))
	pc := 0
	for i := range a.items {
		it := &a.items[i]
		offsets[i] = pc
		if it.label != nil {
			labels[it.label] = pc
		}
		pc += it.size()
	}
	return labels, offsets
}

// Bytes resolves labels and returns the encoded bytecode.
func (a *Assembler) Bytes() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}

	var labels map[*Label]int
	var offsets []int

	for {
		labels, offsets = a.layout()
		grown := false

		for i := range a.items {
			br := a.items[i].branch
			if br == nil || br.long {
				continue
			}
			target, ok := labels[br.target]
			if !ok {
				return nil, errors.New("unbound label %q", br.target.name)
			}
			disp := target - (offsets[i] + 2)
			if disp < math.MinInt8 || disp > math.MaxInt8 {
				br.long = true
				grown = true
			}
		}

		if !grown {
			break
		}
	}

	var out []byte
	for i, it := range a.items {
		if it.branch == nil {
			out = append(out, it.raw...)
			continue
		}
		end := offsets[i] + it.size()
		disp := labels[it.branch.target] - end
		if it.branch.long {
			b := []byte{byte(it.branch.op.Long()), 0, 0, 0, 0}
			binary.LittleEndian.PutUint32(b[1:], uint32(int32(disp)))
			out = append(out, b...)
		} else {
			out = append(out, byte(it.branch.op.Short()), byte(int8(disp)))
		}
	}
	return out, nil
}
