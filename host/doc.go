// Package host models the host object system the shader compiler reads:
// types with their fields and role metadata, methods with their parameter
// and local tables, and the stack-machine bytecode of method bodies.
//
// The compiler only consumes the Reflector interface. Model is an in-memory
// implementation preloaded with the shader library ("sim" namespace) and the
// host math library ("std" namespace). Model instances are populated either
// programmatically with Assembler or from a TOML host program via Parse and
// LoadFile.
//
// # Bytecode
//
// Instructions are one opcode byte, or the 0xFE prefix followed by an
// extended opcode byte, followed by little-endian operands:
//
//	u8/i8     short variable indices and short branch displacements
//	u16       long variable indices (extended forms)
//	i32       long branch displacements, ldc.i4
//	f32, f64  ldc.r4, ldc.r8
//	token     4-byte metadata token (call, newobj, ldfld, initobj, ...)
//
// Branch displacements are relative to the end of the branch instruction.
package host
