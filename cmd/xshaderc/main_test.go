package main

import (
	"testing"

	"github.com/gogpu/xshader"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		shader string
		target xshader.Target
		want   string
	}{
		{"demo.Gradient", xshader.TargetGLSL, "Gradient.glsl"},
		{"demo.fx.Blur", xshader.TargetHLSL, "Blur.hlsl"},
		{"Plain", xshader.TargetGLSL, "Plain.glsl"},
		{"demo.Mesh", xshader.TargetMSL, "Mesh.metal"},
	}

	for _, tt := range tests {
		if got := outputName(tt.shader, tt.target); got != tt.want {
			t.Errorf("outputName(%q, %v) = %q, want %q", tt.shader, tt.target, got, tt.want)
		}
	}
}
