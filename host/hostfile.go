package host

import (
	"os"
	"strconv"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/pelletier/go-toml/v2"
)

// HostFile is the TOML form of a host program.
//
//	[[type]]
//	name = "demo.Gradient"
//	kind = "class"
//	shader = "pixel"
//
//	  [[type.field]]
//	  name = "Tint"
//	  type = "sim.Color"
//
//	  [[type.method]]
//	  name = "GetPixelColor"
//	  return = "sim.Color"
//	  params = [{ name = "position", type = "sim.Float2" }]
//	  code = """
//	    ldarg.0
//	    ldfld demo.Gradient::Tint
//	    ret
//	  """
type HostFile struct {
	Types []TypeDecl `toml:"type"`
}

// TypeDecl declares one host type.
type TypeDecl struct {
	Name    string       `toml:"name"`
	Kind    string       `toml:"kind"` // struct (default) or class
	Base    string       `toml:"base"`
	Shader  string       `toml:"shader"`
	Fields  []FieldDecl  `toml:"field"`
	Methods []MethodDecl `toml:"method"`
}

// FieldDecl declares a field.
type FieldDecl struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Role   string `toml:"role"` // uniform (default), vertex-input, vertex-output
	Static bool   `toml:"static"`
}

// MethodDecl declares a method and its body in assembly text.
type MethodDecl struct {
	Name      string    `toml:"name"`
	Return    string    `toml:"return"`
	Static    bool      `toml:"static"`
	Params    []VarDecl `toml:"params"`
	Locals    []VarDecl `toml:"locals"`
	Code      string    `toml:"code"`
	Intrinsic string    `toml:"intrinsic"`
	Handlers  int       `toml:"handlers"`
}

// VarDecl is a parameter or local.
type VarDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// LoadFile reads and parses a TOML host program.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read host program")
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return m, nil
}

// Parse builds a Model from a TOML host program. Types may reference each
// other in any order.
func Parse(data []byte) (*Model, error) {
	var f HostFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse host program")
	}

	m := NewModel()
	if err := m.Declare(&f); err != nil {
		return nil, err
	}
	return m, nil
}

// Declare adds the types of f to m.
func (m *Model) Declare(f *HostFile) error {
	decls := make([]*Type, len(f.Types))

	for i, td := range f.Types {
		t := &Type{Name: td.Name, Kind: KindStruct}
		switch strings.ToLower(td.Kind) {
		case "", "struct":
		case "class":
			t.Kind = KindClass
		default:
			return errors.New("type %v: unknown kind %q", td.Name, td.Kind)
		}
		kind, ok := ParseShaderKind(td.Shader)
		if !ok {
			kind = ShaderUnsupported
		}
		t.Shader = kind
		if err := m.AddType(t); err != nil {
			return err
		}
		decls[i] = t
	}

	for i, td := range f.Types {
		t := decls[i]

		if td.Base != "" {
			base, err := m.typeByName(td.Base)
			if err != nil {
				return errors.Wrap(err, "type %v", td.Name)
			}
			t.Base = base
		}

		for _, fd := range td.Fields {
			ft, err := m.typeByName(fd.Type)
			if err != nil {
				return errors.Wrap(err, "field %v::%v", td.Name, fd.Name)
			}
			role, err := parseRole(fd.Role)
			if err != nil {
				return errors.Wrap(err, "field %v::%v", td.Name, fd.Name)
			}
			t.Fields = append(t.Fields, &Field{Owner: t, Name: fd.Name, Type: ft, Static: fd.Static, Role: role})
		}

		for _, md := range td.Methods {
			mt, err := m.declareMethod(t, md)
			if err != nil {
				return errors.Wrap(err, "method %v::%v", td.Name, md.Name)
			}
			t.Methods = append(t.Methods, mt)
		}
	}

	// Bodies last: they reference members of any type.
	for i, td := range f.Types {
		t := decls[i]
		for j, md := range td.Methods {
			if md.Code == "" {
				continue
			}
			mt := t.Methods[j]
			code, err := m.Assemble(mt, md.Code)
			if err != nil {
				return errors.Wrap(err, "assemble %v", mt)
			}
			mt.Code = code
		}
	}

	return nil
}

func (m *Model) declareMethod(owner *Type, md MethodDecl) (*Method, error) {
	mt := &Method{
		Owner:     owner,
		Name:      md.Name,
		Static:    md.Static,
		Intrinsic: md.Intrinsic,
	}

	ret := md.Return
	if ret == "" {
		ret = "void"
	}
	rt, err := m.typeByName(ret)
	if err != nil {
		return nil, err
	}
	mt.Return = rt

	for _, p := range md.Params {
		pt, err := m.typeByName(p.Type)
		if err != nil {
			return nil, errors.Wrap(err, "param %v", p.Name)
		}
		mt.Params = append(mt.Params, Param{Name: p.Name, Type: pt})
	}
	for _, l := range md.Locals {
		lt, err := m.typeByName(l.Type)
		if err != nil {
			return nil, errors.Wrap(err, "local %v", l.Name)
		}
		mt.Locals = append(mt.Locals, Local{Name: l.Name, Type: lt})
	}
	for i := 0; i < md.Handlers; i++ {
		mt.Handlers = append(mt.Handlers, Handler{})
	}

	return mt, nil
}

// typeByName resolves a type name, creating array types such as "f32[]" or
// "sim.Float4[8]" on demand.
func (m *Model) typeByName(name string) (*Type, error) {
	name = strings.TrimSpace(name)
	if t, ok := m.LookupType(name); ok {
		return t, nil
	}
	if strings.HasSuffix(name, "]") {
		i := strings.LastIndexByte(name, '[')
		if i > 0 {
			elem, err := m.typeByName(name[:i])
			if err != nil {
				return nil, err
			}
			n := 0
			if lit := name[i+1 : len(name)-1]; lit != "" {
				n, err = strconv.Atoi(lit)
				if err != nil || n <= 0 {
					return nil, errors.New("bad array length in %q", name)
				}
			}
			return m.ArrayOf(elem, n), nil
		}
	}
	return nil, errors.New("unknown type %q", name)
}

func parseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "", "uniform", "plain":
		return RolePlain, nil
	case "vertex-input", "input", "in":
		return RoleVertexInput, nil
	case "vertex-output", "output", "out":
		return RoleVertexOutput, nil
	}
	return RolePlain, errors.New("unknown field role %q", s)
}
