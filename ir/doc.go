// Package ir defines the tree representation shared by every compiler stage.
//
// A compiled shader is a Program: the methods reachable from the entry
// method, the structs they use, and the shader-level variables (uniforms and
// vertex inputs and outputs). Each Method body is an expression tree. The
// tree has no separate statement type: a Block is a list of Expr evaluated in
// order, and Conditional doubles as an if statement and, with Ternary set,
// a value-producing conditional expression.
//
// # Identity
//
// Variables are compared by pointer. Two variables with the same name and
// type are still different variables; passes such as redundant-variable
// elimination depend on this.
//
// Methods and structs are identified by host keys (host.MethodKey,
// host.TypeKey), never by pointers to host descriptors.
//
// # Pipeline
//
//	bytecode -> disasm -> cfg -> region -> lower -> opt -> glsl / hlsl
//
// Errors raised by any stage are *Error values carrying an ErrorKind.
package ir
