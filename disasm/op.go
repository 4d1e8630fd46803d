package disasm

import (
	"github.com/gogpu/xshader/host"
)

// Op is a logical instruction. Short, long and extended encodings of the
// same instruction share an Op.
type Op uint8

const (
	OpNop Op = iota
	OpDup
	OpPop
	OpRet

	OpLdArg
	OpLdArga
	OpStArg
	OpLdLoc
	OpLdLoca
	OpStLoc

	OpLdNull
	OpLdcI4
	OpLdcR4
	OpLdcR8

	// Branches, in host.BranchOp order.
	OpBr
	OpBrFalse
	OpBrTrue
	OpBeq
	OpBge
	OpBgt
	OpBle
	OpBlt
	OpBneUn
	OpBgeUn
	OpBgtUn
	OpBleUn
	OpBltUn

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpDivUn
	OpRem
	OpRemUn
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpShrUn
	OpNeg
	OpNot

	OpCeq
	OpCgt
	OpCgtUn
	OpClt
	OpCltUn

	OpConvI4
	OpConvU4
	OpConvR4
	OpConvR8
	OpConvRUn

	OpCall
	OpCallVirt
	OpNewObj

	OpLdFld
	OpLdFlda
	OpStFld
	OpLdSFld
	OpStSFld

	OpLdElem
	OpStElem
	OpLdLen
	OpInitObj

	OpThrow
	OpLeave
	OpEndFinally

	opCount
)

var opNames = [...]string{
	OpNop: "nop", OpDup: "dup", OpPop: "pop", OpRet: "ret",
	OpLdArg: "ldarg", OpLdArga: "ldarga", OpStArg: "starg",
	OpLdLoc: "ldloc", OpLdLoca: "ldloca", OpStLoc: "stloc",
	OpLdNull: "ldnull", OpLdcI4: "ldc.i4", OpLdcR4: "ldc.r4", OpLdcR8: "ldc.r8",
	OpBr: "br", OpBrFalse: "brfalse", OpBrTrue: "brtrue",
	OpBeq: "beq", OpBge: "bge", OpBgt: "bgt", OpBle: "ble", OpBlt: "blt",
	OpBneUn: "bne.un", OpBgeUn: "bge.un", OpBgtUn: "bgt.un", OpBleUn: "ble.un", OpBltUn: "blt.un",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpDivUn: "div.un",
	OpRem: "rem", OpRemUn: "rem.un", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpShr: "shr", OpShrUn: "shr.un", OpNeg: "neg", OpNot: "not",
	OpCeq: "ceq", OpCgt: "cgt", OpCgtUn: "cgt.un", OpClt: "clt", OpCltUn: "clt.un",
	OpConvI4: "conv.i4", OpConvU4: "conv.u4", OpConvR4: "conv.r4", OpConvR8: "conv.r8", OpConvRUn: "conv.r.un",
	OpCall: "call", OpCallVirt: "callvirt", OpNewObj: "newobj",
	OpLdFld: "ldfld", OpLdFlda: "ldflda", OpStFld: "stfld", OpLdSFld: "ldsfld", OpStSFld: "stsfld",
	OpLdElem: "ldelem", OpStElem: "stelem", OpLdLen: "ldlen", OpInitObj: "initobj",
	OpThrow: "throw", OpLeave: "leave", OpEndFinally: "endfinally",
}

func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}
	return "op?"
}

// Class groups instructions by what they do.
type Class uint8

const (
	ClassNop Class = iota
	ClassLoad
	ClassStore
	ClassArithmetic
	ClassCompare
	ClassBranch
	ClassCall
	ClassNewObject
	ClassFieldAccess
	ClassCast
	ClassStack
	ClassReturn
	ClassException
)

var classNames = [...]string{
	ClassNop: "nop", ClassLoad: "load", ClassStore: "store", ClassArithmetic: "arithmetic",
	ClassCompare: "compare", ClassBranch: "branch", ClassCall: "call", ClassNewObject: "new-object",
	ClassFieldAccess: "field-access", ClassCast: "cast", ClassStack: "stack", ClassReturn: "return",
	ClassException: "exception",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "class?"
}

// Class returns the instruction class of op.
func (op Op) Class() Class {
	switch {
	case op == OpNop:
		return ClassNop
	case op == OpDup || op == OpPop:
		return ClassStack
	case op == OpRet:
		return ClassReturn
	case op >= OpLdArg && op <= OpStLoc:
		if op == OpStArg || op == OpStLoc {
			return ClassStore
		}
		return ClassLoad
	case op >= OpLdNull && op <= OpLdcR8:
		return ClassLoad
	case op.IsBranch():
		return ClassBranch
	case op >= OpAdd && op <= OpNot:
		return ClassArithmetic
	case op >= OpCeq && op <= OpCltUn:
		return ClassCompare
	case op >= OpConvI4 && op <= OpConvRUn:
		return ClassCast
	case op == OpCall || op == OpCallVirt:
		return ClassCall
	case op == OpNewObj:
		return ClassNewObject
	case op >= OpLdFld && op <= OpStSFld:
		return ClassFieldAccess
	case op == OpLdElem || op == OpLdLen:
		return ClassLoad
	case op == OpStElem || op == OpInitObj:
		return ClassStore
	}
	return ClassException
}

// IsBranch reports whether op is an unconditional or conditional branch.
func (op Op) IsBranch() bool { return op >= OpBr && op <= OpBltUn }

// IsConditional reports whether op is a branch that may fall through.
func (op Op) IsConditional() bool { return op > OpBr && op <= OpBltUn }

// BranchOp returns the host branch selector of a branch op.
func (op Op) BranchOp() host.BranchOp { return host.BranchOp(op - OpBr) }

// EndsBlock reports whether control does not simply continue with the next
// instruction.
func (op Op) EndsBlock() bool {
	switch op {
	case OpRet, OpThrow, OpLeave, OpEndFinally:
		return true
	}
	return op.IsBranch()
}

var simpleOps = map[host.Code]Op{
	host.Nop: OpNop, host.Dup: OpDup, host.Pop: OpPop, host.Ret: OpRet,
	host.LdNull: OpLdNull,
	host.Add: OpAdd, host.Sub: OpSub, host.Mul: OpMul, host.Div: OpDiv, host.DivUn: OpDivUn,
	host.Rem: OpRem, host.RemUn: OpRemUn, host.And: OpAnd, host.Or: OpOr, host.Xor: OpXor,
	host.Shl: OpShl, host.Shr: OpShr, host.ShrUn: OpShrUn, host.Neg: OpNeg, host.Not: OpNot,
	host.ConvI4: OpConvI4, host.ConvU4: OpConvU4, host.ConvR4: OpConvR4, host.ConvR8: OpConvR8,
	host.ConvRUn: OpConvRUn,
	host.LdLen: OpLdLen, host.Throw: OpThrow, host.EndFinally: OpEndFinally,
}

var extOps = map[host.ExtCode]Op{
	host.Ceq: OpCeq, host.Cgt: OpCgt, host.CgtUn: OpCgtUn, host.Clt: OpClt, host.CltUn: OpCltUn,
}

var shortVarOps = map[host.Code]Op{
	host.LdArgS: OpLdArg, host.LdArgaS: OpLdArga, host.StArgS: OpStArg,
	host.LdLocS: OpLdLoc, host.LdLocaS: OpLdLoca, host.StLocS: OpStLoc,
}

var longVarOps = map[host.ExtCode]Op{
	host.LdArgL: OpLdArg, host.LdArgaL: OpLdArga, host.StArgL: OpStArg,
	host.LdLocL: OpLdLoc, host.LdLocaL: OpLdLoca, host.StLocL: OpStLoc,
}

var methodOps = map[host.Code]Op{host.Call: OpCall, host.CallVirt: OpCallVirt, host.NewObj: OpNewObj}

var fieldOps = map[host.Code]Op{
	host.LdFld: OpLdFld, host.LdFlda: OpLdFlda, host.StFld: OpStFld,
	host.LdSFld: OpLdSFld, host.StSFld: OpStSFld,
}
