package ir

import (
	"errors"
	"fmt"

	"github.com/nikandfor/loc"
)

// ErrorKind categorizes compilation errors. Every kind is fatal for the
// shader type being compiled.
type ErrorKind uint8

const (
	// ErrDisassembly indicates malformed or truncated bytecode or a
	// reference to a missing operand table entry.
	ErrDisassembly ErrorKind = iota

	// ErrUnsupportedConstruct indicates bytecode with no structured
	// equivalent: exception regions, irreducible control flow, recursion.
	ErrUnsupportedConstruct

	// ErrUnsupportedType indicates a host type the type mapper cannot map.
	ErrUnsupportedType

	// ErrUnsupportedShaderKind indicates a declared shader kind the
	// resolver cannot classify.
	ErrUnsupportedShaderKind

	// ErrEntryPointNotFound indicates the shader type lacks the method its
	// kind requires.
	ErrEntryPointNotFound

	// ErrInternalConsistency indicates a broken compiler invariant.
	ErrInternalConsistency
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrDisassembly:
		return "DisassemblyError"
	case ErrUnsupportedConstruct:
		return "UnsupportedConstruct"
	case ErrUnsupportedType:
		return "UnsupportedType"
	case ErrUnsupportedShaderKind:
		return "UnsupportedShaderKind"
	case ErrEntryPointNotFound:
		return "EntryPointNotFound"
	case ErrInternalConsistency:
		return "InternalConsistencyError"
	default:
		return "Unknown"
	}
}

// Error is a compilation error.
type Error struct {
	Kind    ErrorKind
	Message string

	// Method is the method being compiled, if known.
	Method string

	// Offset is the bytecode offset, or -1.
	Offset int

	// Where is the compiler location that raised an internal error.
	Where loc.PC
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.Method != "" {
		msg += " in " + e.Method
		if e.Offset >= 0 {
			msg += fmt.Sprintf(" at IL_%04x", e.Offset)
		}
	}
	if e.Where != 0 {
		msg += fmt.Sprintf(" (raised at %v)", e.Where)
	}
	return msg
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// Internal creates an ErrInternalConsistency error recording its caller.
func Internal(format string, args ...any) *Error {
	e := NewError(ErrInternalConsistency, format, args...)
	e.Where = loc.Caller(1)
	return e
}

// At returns a copy of e attributed to a method and bytecode offset.
// Existing attribution is kept.
func (e *Error) At(method string, offset int) *Error {
	c := *e
	if c.Method == "" {
		c.Method = method
		c.Offset = offset
	}
	return &c
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func isKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsDisassembly reports whether err is a disassembly error.
func IsDisassembly(err error) bool { return isKind(err, ErrDisassembly) }

// IsUnsupportedConstruct reports whether err is an unsupported-construct error.
func IsUnsupportedConstruct(err error) bool { return isKind(err, ErrUnsupportedConstruct) }

// IsUnsupportedType reports whether err is an unsupported-type error.
func IsUnsupportedType(err error) bool { return isKind(err, ErrUnsupportedType) }

// IsUnsupportedShaderKind reports whether err is an unsupported-shader-kind error.
func IsUnsupportedShaderKind(err error) bool { return isKind(err, ErrUnsupportedShaderKind) }

// IsEntryPointNotFound reports whether err is a missing-entry-point error.
func IsEntryPointNotFound(err error) bool { return isKind(err, ErrEntryPointNotFound) }

// IsInternal reports whether err is an internal consistency error.
func IsInternal(err error) bool { return isKind(err, ErrInternalConsistency) }
