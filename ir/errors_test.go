package ir

import (
	"strings"
	"testing"

	"github.com/nikandfor/errors"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrDisassembly, "DisassemblyError"},
		{ErrUnsupportedConstruct, "UnsupportedConstruct"},
		{ErrUnsupportedType, "UnsupportedType"},
		{ErrUnsupportedShaderKind, "UnsupportedShaderKind"},
		{ErrEntryPointNotFound, "EntryPointNotFound"},
		{ErrInternalConsistency, "InternalConsistencyError"},
		{ErrorKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.kind.String()
			if got != tt.want {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	// Without attribution
	err1 := NewError(ErrUnsupportedType, "class %v", "demo.Node")
	if got, want := err1.Error(), "UnsupportedType: class demo.Node"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// With method and offset
	err2 := NewError(ErrDisassembly, "truncated operand").At("demo.S::M()", 0x12)
	if got, want := err2.Error(), "DisassemblyError: truncated operand in demo.S::M() at IL_0012"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// At keeps the first attribution
	err3 := err2.At("other", 1)
	if err3.Method != "demo.S::M()" || err3.Offset != 0x12 {
		t.Errorf("At() overwrote attribution: %v", err3)
	}

	// Internal records where it was raised
	err4 := Internal("value of %v left unconsumed", "x")
	if err4.Where == 0 {
		t.Errorf("Internal() did not record a caller")
	}
	if !strings.Contains(err4.Error(), "raised at") {
		t.Errorf("Error() = %q, want caller location", err4.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	base := NewError(ErrEntryPointNotFound, "no GetPixelColor")
	wrapped := errors.Wrap(base, "compile %v", "demo.Shader")

	kind, ok := KindOf(wrapped)
	if !ok || kind != ErrEntryPointNotFound {
		t.Errorf("KindOf() = %v, %v, want EntryPointNotFound, true", kind, ok)
	}
	if !IsEntryPointNotFound(wrapped) {
		t.Errorf("IsEntryPointNotFound() = false for wrapped error")
	}
	if IsInternal(wrapped) {
		t.Errorf("IsInternal() = true for entry point error")
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Errorf("KindOf() found a kind in a plain error")
	}
}
