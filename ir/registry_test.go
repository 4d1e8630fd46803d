package ir

import (
	"testing"

	"github.com/gogpu/xshader/host"
)

func TestStructRegistry_Deduplication(t *testing.T) {
	registry := NewStructRegistry()

	builds := 0
	build := func(s *Struct) error {
		builds++
		s.Fields = append(s.Fields, StructField{Name: "X", Type: Float})
		return nil
	}

	a, err := registry.GetOrCreate("demo.P", "P", build)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	b, err := registry.GetOrCreate("demo.P", "P", build)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if a != b {
		t.Errorf("Expected the same struct for one key")
	}
	if builds != 1 {
		t.Errorf("build called %d times, want 1", builds)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestStructRegistry_DependenciesFirst(t *testing.T) {
	registry := NewStructRegistry()

	_, err := registry.GetOrCreate("demo.Outer", "Outer", func(s *Struct) error {
		inner, err := registry.GetOrCreate("demo.Inner", "Inner", func(s *Struct) error {
			s.Fields = []StructField{{Name: "V", Type: Float2}}
			return nil
		})
		if err != nil {
			return err
		}
		s.Fields = []StructField{{Name: "In", Type: StructType{Struct: inner}}}
		return nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	structs := registry.Structs()
	if len(structs) != 2 {
		t.Fatalf("len(Structs()) = %d, want 2", len(structs))
	}
	if structs[0].Name != "Inner" || structs[1].Name != "Outer" {
		t.Errorf("Structs() = [%s %s], want [Inner Outer]", structs[0].Name, structs[1].Name)
	}
}

func TestStructRegistry_SelfReference(t *testing.T) {
	registry := NewStructRegistry()

	var build func(*Struct) error
	build = func(s *Struct) error {
		_, err := registry.GetOrCreate("demo.Node", "Node", build)
		return err
	}

	_, err := registry.GetOrCreate("demo.Node", "Node", build)
	if !IsUnsupportedType(err) {
		t.Fatalf("GetOrCreate error = %v, want UnsupportedType", err)
	}
	if _, ok := registry.Lookup(host.TypeKey("demo.Node")); ok {
		t.Errorf("failed struct must not be registered")
	}
}
