// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"
)

// namer generates unique identifiers for HLSL output.
// It tracks used names to ensure uniqueness and handles
// HLSL's case-insensitive keyword matching.
type namer struct {
	// usedNames tracks names that have been generated (stored in lowercase for case-insensitive comparison).
	usedNames map[string]struct{}

	// counter is used to generate unique suffixes.
	counter uint32
}

// newNamer creates a new namer instance.
func newNamer() *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
	}
}

// call generates a unique name based on the given base.
// It sanitizes and escapes the base and adds numeric suffixes if needed.
func (n *namer) call(base string) string {
	escaped := Escape(sanitize(base))

	// Check if this name is available (case-insensitive for HLSL)
	lowerEscaped := strings.ToLower(escaped)
	if !n.isUsedLower(lowerEscaped) {
		n.usedNames[lowerEscaped] = struct{}{}
		return escaped
	}

	// Add numeric suffix to make unique
	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		lowerCandidate := strings.ToLower(candidate)
		if !n.isUsedLower(lowerCandidate) {
			n.usedNames[lowerCandidate] = struct{}{}
			return candidate
		}
	}
}

// isUsed checks if a name has already been used (case-insensitive).
func (n *namer) isUsed(name string) bool {
	return n.isUsedLower(strings.ToLower(name))
}

// isUsedLower checks if a lowercase name has already been used.
func (n *namer) isUsedLower(lowerName string) bool {
	_, used := n.usedNames[lowerName]
	return used
}

// reserve marks a name as used without returning it.
// This is useful for reserving names that are used externally.
func (n *namer) reserve(name string) {
	n.usedNames[strings.ToLower(name)] = struct{}{}
}

// scope returns a namer for one function body. It avoids every name n
// has handed out so far.
func (n *namer) scope() *namer {
	s := &namer{usedNames: make(map[string]struct{}, len(n.usedNames)), counter: n.counter}
	for name := range n.usedNames {
		s.usedNames[name] = struct{}{}
	}
	return s
}

// sanitize keeps the characters HLSL identifiers can hold. A leading digit
// gets an underscore prefix.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	s := sb.String()
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}
