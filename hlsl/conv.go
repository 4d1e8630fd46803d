// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
)

// PrimitiveToHLSL returns the HLSL spelling of a primitive type.
// Matrices are named rows by columns: the host's 3x2 affine transform
// multiplies a float3 into a float2, which is float2x3 in HLSL.
func PrimitiveToHLSL(p ir.Primitive) string {
	switch p {
	case ir.Void:
		return "void"
	case ir.Bool:
		return hlslTypeBool
	case ir.Int:
		return hlslTypeInt
	case ir.UInt:
		return hlslTypeUint
	case ir.Float:
		return hlslTypeFloat
	case ir.Float2, ir.Float3, ir.Float4:
		return fmt.Sprintf("%s%d", hlslTypeFloat, p.Components())
	case ir.Int2, ir.Int3, ir.Int4:
		return fmt.Sprintf("%s%d", hlslTypeInt, p.Components())
	case ir.UInt2, ir.UInt3, ir.UInt4:
		return fmt.Sprintf("%s%d", hlslTypeUint, p.Components())
	case ir.Matrix3x2:
		return "float2x3"
	case ir.Matrix4x4:
		return "float4x4"
	case ir.Texture, ir.DepthMask:
		return "Texture2D"
	default:
		return "void"
	}
}

// ShaderKindToHLSL returns the HLSL profile prefix for a shader kind.
func ShaderKindToHLSL(kind host.ShaderKind) string {
	switch kind {
	case host.ShaderVertex:
		return "vs"
	case host.ShaderPixel:
		return "ps" // Pixel shader in HLSL terminology
	case host.ShaderCompute:
		return "cs"
	default:
		return "lib"
	}
}

// ShaderProfile returns the HLSL shader profile string.
// Example: "vs_5_1", "ps_6_0", "cs_6_6"
func ShaderProfile(kind host.ShaderKind, sm ShaderModel) string {
	return ShaderKindToHLSL(kind) + "_" + sm.ProfileSuffix()
}
