package host

// Code is a one-byte opcode.
type Code byte

// One-byte opcodes.
const (
	Nop Code = 0x00
	Dup Code = 0x01
	Pop Code = 0x02
	Ret Code = 0x03

	LdArg0 Code = 0x04
	LdArg1 Code = 0x05
	LdArg2 Code = 0x06
	LdArg3 Code = 0x07
	LdLoc0 Code = 0x08
	LdLoc1 Code = 0x09
	LdLoc2 Code = 0x0A
	LdLoc3 Code = 0x0B
	StLoc0 Code = 0x0C
	StLoc1 Code = 0x0D
	StLoc2 Code = 0x0E
	StLoc3 Code = 0x0F

	LdArgS  Code = 0x10 // u8
	LdArgaS Code = 0x11 // u8
	StArgS  Code = 0x12 // u8
	LdLocS  Code = 0x13 // u8
	LdLocaS Code = 0x14 // u8
	StLocS  Code = 0x15 // u8

	LdNull  Code = 0x16
	LdcI4M1 Code = 0x17
	LdcI40  Code = 0x18 // through LdcI48 = 0x20
	LdcI48  Code = 0x20
	LdcI4S  Code = 0x21 // i8
	LdcI4   Code = 0x22 // i32
	LdcR4   Code = 0x23 // f32
	LdcR8   Code = 0x24 // f64

	// Short branches take an i8 displacement, long branches an i32. Both
	// groups follow BranchOp order.
	BrS Code = 0x28
	Br  Code = 0x38

	Add   Code = 0x48
	Sub   Code = 0x49
	Mul   Code = 0x4A
	Div   Code = 0x4B
	DivUn Code = 0x4C
	Rem   Code = 0x4D
	RemUn Code = 0x4E
	And   Code = 0x4F
	Or    Code = 0x50
	Xor   Code = 0x51
	Shl   Code = 0x52
	Shr   Code = 0x53
	ShrUn Code = 0x54
	Neg   Code = 0x55
	Not   Code = 0x56

	ConvI4  Code = 0x58
	ConvU4  Code = 0x59
	ConvR4  Code = 0x5A
	ConvR8  Code = 0x5B
	ConvRUn Code = 0x5C

	Call     Code = 0x60 // method token
	CallVirt Code = 0x61 // method token
	NewObj   Code = 0x62 // method token

	LdFld  Code = 0x68 // field token
	LdFlda Code = 0x69 // field token
	StFld  Code = 0x6A // field token
	LdSFld Code = 0x6B // field token
	StSFld Code = 0x6C // field token

	LdElem Code = 0x70 // type token
	StElem Code = 0x71 // type token
	LdLen  Code = 0x72

	Throw      Code = 0x78
	LeaveS     Code = 0x79 // i8
	Leave      Code = 0x7A // i32
	EndFinally Code = 0x7B

	// Prefix introduces a two-byte extended opcode.
	Prefix Code = 0xFE
)

// ExtCode is the second byte of an extended opcode.
type ExtCode byte

// Extended opcodes, encoded after Prefix.
const (
	Ceq   ExtCode = 0x01
	Cgt   ExtCode = 0x02
	CgtUn ExtCode = 0x03
	Clt   ExtCode = 0x04
	CltUn ExtCode = 0x05

	LdArgL  ExtCode = 0x09 // u16
	LdArgaL ExtCode = 0x0A // u16
	StArgL  ExtCode = 0x0B // u16
	LdLocL  ExtCode = 0x0C // u16
	LdLocaL ExtCode = 0x0D // u16
	StLocL  ExtCode = 0x0E // u16

	InitObj ExtCode = 0x15 // type token
)

// BranchOp selects a branch within the short or long branch group.
type BranchOp uint8

const (
	BranchAlways BranchOp = iota
	BranchFalse
	BranchTrue
	BranchEq
	BranchGe
	BranchGt
	BranchLe
	BranchLt
	BranchNeUn
	BranchGeUn
	BranchGtUn
	BranchLeUn
	BranchLtUn

	branchOpCount
)

// NumBranchOps is the size of each branch group.
const NumBranchOps = int(branchOpCount)

var branchNames = [...]string{"br", "brfalse", "brtrue", "beq", "bge", "bgt", "ble", "blt",
	"bne.un", "bge.un", "bgt.un", "ble.un", "blt.un"}

func (op BranchOp) String() string {
	if int(op) < len(branchNames) {
		return branchNames[op]
	}
	return "b?"
}

// Short returns the short-form opcode of op.
func (op BranchOp) Short() Code { return BrS + Code(op) }

// Long returns the long-form opcode of op.
func (op BranchOp) Long() Code { return Br + Code(op) }

// IsBranch reports whether c is a short or long branch, and which.
func (c Code) IsBranch() (op BranchOp, short, ok bool) {
	switch {
	case c >= BrS && c < BrS+Code(branchOpCount):
		return BranchOp(c - BrS), true, true
	case c >= Br && c < Br+Code(branchOpCount):
		return BranchOp(c - Br), false, true
	}
	return 0, false, false
}
