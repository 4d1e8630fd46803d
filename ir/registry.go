package ir

import (
	"github.com/gogpu/xshader/host"
)

// StructRegistry interns compiled structs by host type identity, so each
// host struct is compiled exactly once per program.
type StructRegistry struct {
	structs  []*Struct
	byKey    map[host.TypeKey]*Struct
	building map[host.TypeKey]bool
}

// NewStructRegistry creates an empty registry.
func NewStructRegistry() *StructRegistry {
	return &StructRegistry{
		structs:  make([]*Struct, 0, 4),
		byKey:    make(map[host.TypeKey]*Struct, 4),
		building: make(map[host.TypeKey]bool),
	}
}

// GetOrCreate returns the struct registered for key, or creates it by
// calling build to fill in its fields. A struct is only listed once build
// returns, so structs a field depends on are listed before it. A struct
// that contains itself is rejected.
func (r *StructRegistry) GetOrCreate(key host.TypeKey, name string, build func(*Struct) error) (*Struct, error) {
	if s, ok := r.byKey[key]; ok {
		return s, nil
	}
	if r.building[key] {
		return nil, NewError(ErrUnsupportedType, "struct %v contains itself", key)
	}

	r.building[key] = true
	defer delete(r.building, key)

	s := &Struct{Key: key, Name: name}
	if err := build(s); err != nil {
		return nil, err
	}

	r.byKey[key] = s
	r.structs = append(r.structs, s)

	return s, nil
}

// Lookup finds a struct by host type identity.
func (r *StructRegistry) Lookup(key host.TypeKey) (*Struct, bool) {
	s, ok := r.byKey[key]
	return s, ok
}

// Structs returns the registered structs, dependencies first.
func (r *StructRegistry) Structs() []*Struct {
	return r.structs
}

// Count returns the number of registered structs.
func (r *StructRegistry) Count() int {
	return len(r.structs)
}
