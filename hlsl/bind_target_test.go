// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestBindTarget_Chaining(t *testing.T) {
	bt := BindTarget{}.
		WithSpace(2).
		WithRegister(5)

	if bt.Space != 2 {
		t.Errorf("Space = %d, want 2", bt.Space)
	}
	if bt.Register != 5 {
		t.Errorf("Register = %d, want 5", bt.Register)
	}
}

func TestBindTarget_Immutability(t *testing.T) {
	// Ensure WithX methods don't modify the original
	original := BindTarget{}
	_ = original.WithSpace(5)

	if original.Space != 0 {
		t.Error("WithSpace should not modify original")
	}

	_ = original.WithRegister(10)
	if original.Register != 0 {
		t.Error("WithRegister should not modify original")
	}
}

func TestRegisterType_String(t *testing.T) {
	tests := []struct {
		rt   RegisterType
		want string
	}{
		{RegisterTypeB, "b"},
		{RegisterTypeT, "t"},
		{RegisterTypeS, "s"},
		{RegisterType(255), "b"}, // Unknown defaults to b
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.rt.String()
			if got != tt.want {
				t.Errorf("RegisterType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindTarget_Register(t *testing.T) {
	tests := []struct {
		bt   BindTarget
		rt   RegisterType
		want string
	}{
		{BindTarget{}, RegisterTypeB, "register(b0, space0)"},
		{BindTarget{Register: 3}, RegisterTypeT, "register(t3, space0)"},
		{BindTarget{Space: 1, Register: 2}, RegisterTypeS, "register(s2, space1)"},
	}

	for _, tt := range tests {
		if got := tt.bt.register(tt.rt); got != tt.want {
			t.Errorf("register() = %q, want %q", got, tt.want)
		}
	}
}
