// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestNamer_Call(t *testing.T) {
	n := newNamer()

	tests := []struct {
		base string
		want string
	}{
		{"Gain", "Gain"},
		{"Gain", "Gain_1"},
		{"gain", "gain_2"}, // HLSL compares identifiers without case
		{"sample", "_sample"},
		{"Texture2D", "_Texture2D"},
		{"", UnnamedIdentifier},
		{"<Uv>k__BackingField", "Uvk__BackingField"},
	}

	for _, tt := range tests {
		if got := n.call(tt.base); got != tt.want {
			t.Errorf("call(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestNamer_Reserve(t *testing.T) {
	n := newNamer()
	n.reserve(entryName)
	n.reserve(GlobalsBuffer)

	if got := n.call("main"); got != "main_1" {
		t.Errorf("call(%q) = %q, want %q", "main", got, "main_1")
	}
	if got := n.call("GLOBALS"); got != "GLOBALS_2" {
		t.Errorf("call(%q) = %q, want %q", "GLOBALS", got, "GLOBALS_2")
	}
	if !n.isUsed("Main") {
		t.Error("isUsed(\"Main\") = false, want true")
	}
}

func TestNamer_Scope(t *testing.T) {
	n := newNamer()
	n.call("Time")

	s := n.scope()
	if got := s.call("time"); got != "time_1" {
		t.Errorf("scope().call(\"time\") = %q, want \"time_1\"", got)
	}

	// Names handed out in a scope stay there.
	if n.isUsed("time_1") {
		t.Error("scope names should not leak into the parent")
	}

	// Sibling scopes may reuse a local name.
	if got := n.scope().call("x"); got != "x" {
		t.Errorf("scope().call(\"x\") = %q, want \"x\"", got)
	}
	if got := n.scope().call("x"); got != "x" {
		t.Errorf("second scope().call(\"x\") = %q, want \"x\"", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"position", "position"},
		{".ctor", "ctor"},
		{"get_Item", "get_Item"},
		{"<Lambda>b__0", "Lambdab__0"},
		{"2d", "_2d"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
