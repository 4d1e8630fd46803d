// Package snapshot_test provides golden snapshot tests for every backend.
//
// For each host program in testdata/in/, every shader type it declares is
// compiled to GLSL, HLSL and MSL and compared to golden files stored in
// testdata/golden/{glsl,hlsl,msl}/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gogpu/xshader/compiler"
	"github.com/gogpu/xshader/glsl"
	"github.com/gogpu/xshader/hlsl"
	"github.com/gogpu/xshader/host"
	"github.com/gogpu/xshader/ir"
	"github.com/gogpu/xshader/msl"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// programFile is an input host program loaded from disk.
type programFile struct {
	name  string // base name without extension (e.g., "effects")
	model *host.Model
}

// TestSnapshots is the main golden snapshot test. It loads all host
// programs, compiles each shader type through every backend, and compares
// with golden files.
func TestSnapshots(t *testing.T) {
	programs := loadPrograms(t, "testdata/in")
	if len(programs) == 0 {
		t.Fatal("no host programs found in testdata/in/")
	}

	for i := range programs {
		prog := &programs[i]

		for _, st := range prog.model.ShaderTypes() {
			name := shortName(st.Name)

			t.Run(prog.name+"/"+name, func(t *testing.T) {
				p, err := compiler.Compile(context.Background(), prog.model, st.Name, compiler.Options{})
				if err != nil {
					t.Fatalf("[%s] compile failed: %v", st.Name, err)
				}

				t.Run("glsl", func(t *testing.T) {
					code := compileGLSL(t, p)
					compareGolden(t, filepath.Join("testdata", "golden", "glsl", name+".glsl"), code)
				})

				t.Run("hlsl", func(t *testing.T) {
					code := compileHLSL(t, p)
					compareGolden(t, filepath.Join("testdata", "golden", "hlsl", name+".hlsl"), code)
				})

				t.Run("msl", func(t *testing.T) {
					code := compileMSL(t, p)
					compareGolden(t, filepath.Join("testdata", "golden", "msl", name+".metal"), code)
				})
			})
		}
	}
}

// TestSnapshotsDeterministic compiles every shader type twice and requires
// byte-identical output.
func TestSnapshotsDeterministic(t *testing.T) {
	for _, prog := range loadPrograms(t, "testdata/in") {
		for _, st := range prog.model.ShaderTypes() {
			var outs [2]string

			for i := range outs {
				p, err := compiler.Compile(context.Background(), prog.model, st.Name, compiler.Options{})
				if err != nil {
					t.Fatalf("[%s] compile failed: %v", st.Name, err)
				}
				outs[i] = compileGLSL(t, p)
			}

			if outs[0] != outs[1] {
				t.Errorf("[%s] output differs between runs:\n%s", st.Name, diffStrings(outs[0], outs[1]))
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Program Loading
// ---------------------------------------------------------------------------

// loadPrograms reads all .toml host programs from the given directory.
func loadPrograms(t *testing.T, dir string) []programFile {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read input directory %q: %v", dir, err)
	}

	var programs []programFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		m, loadErr := host.LoadFile(filepath.Join(dir, entry.Name()))
		if loadErr != nil {
			t.Fatalf("load program %q: %v", entry.Name(), loadErr)
		}

		name := strings.TrimSuffix(entry.Name(), ".toml")
		programs = append(programs, programFile{name: name, model: m})
	}

	// Sort for deterministic test order
	sort.Slice(programs, func(i, j int) bool {
		return programs[i].name < programs[j].name
	})

	return programs
}

// shortName maps demo.Gradient to Gradient.
func shortName(typeName string) string {
	if i := strings.LastIndexByte(typeName, '.'); i >= 0 {
		return typeName[i+1:]
	}
	return typeName
}

// ---------------------------------------------------------------------------
// Compilation Helpers
// ---------------------------------------------------------------------------

// compileGLSL compiles the program to GLSL source.
func compileGLSL(t *testing.T, p *ir.Program) string {
	t.Helper()

	opts := glsl.DefaultOptions()
	// Compute entries require GLSL 430+
	if p.Kind == host.ShaderCompute {
		opts.LangVersion = glsl.Version430
		opts.WrapEntry = true
	}

	code, _, err := glsl.Compile(p, opts)
	if err != nil {
		t.Fatalf("GLSL compile failed: %v", err)
	}
	return code
}

// compileHLSL compiles the program to HLSL source. Programs using features
// HLSL output does not support are skipped.
func compileHLSL(t *testing.T, p *ir.Program) string {
	t.Helper()

	code, _, err := hlsl.Compile(p, hlsl.DefaultOptions())
	if ir.IsUnsupportedConstruct(err) || ir.IsUnsupportedShaderKind(err) {
		t.Skipf("HLSL compile failed (skipping): %v", err)
	}
	if err != nil {
		t.Fatalf("HLSL compile failed: %v", err)
	}
	return code
}

// compileMSL compiles the program to Metal source.
func compileMSL(t *testing.T, p *ir.Program) string {
	t.Helper()

	code, _, err := msl.Compile(p, msl.DefaultOptions())
	if err != nil {
		t.Fatalf("MSL compile failed: %v", err)
	}
	return code
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output with the golden file at path.
// If UPDATE_GOLDEN is set, writes actual output as the new golden file.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil { //nolint:gosec // golden files are test data
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, truncate(actual, 500))
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Normalize line endings for cross-platform comparison.
	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if expectedStr != actualStr {
		diff := diffStrings(expectedStr, actualStr)
		t.Errorf("output differs from golden %s:\n%s", path, diff)
	}
}

// diffStrings produces a simple line-by-line diff showing the first difference
// and surrounding context.
func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var sb strings.Builder
	maxLines := max(len(expectedLines), len(actualLines))

	const contextLines = 3
	firstDiff := -1
	for i := 0; i < maxLines; i++ {
		if lineAt(expectedLines, i) != lineAt(actualLines, i) {
			firstDiff = i
			break
		}
	}

	if firstDiff < 0 {
		return "(no difference found)"
	}

	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)

	start := max(firstDiff-contextLines, 0)
	end := min(firstDiff+contextLines+1, maxLines)

	for i := start; i < end; i++ {
		eLine, aLine := lineAt(expectedLines, i), lineAt(actualLines, i)
		prefix := " "
		if eLine != aLine {
			prefix = "!"
		}
		fmt.Fprintf(&sb, "%s %4d expected: %s\n", prefix, i+1, truncate(eLine, 120))
		if eLine != aLine {
			fmt.Fprintf(&sb, "%s %4d actual:   %s\n", prefix, i+1, truncate(aLine, 120))
		}
	}

	return sb.String()
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
