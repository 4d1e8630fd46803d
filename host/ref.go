package host

import (
	"strings"

	"github.com/nikandfor/errors"
)

// MemberRef is a parsed textual member reference of the form
// "Owner::Name" or "Owner::Name(t1,t2)".
type MemberRef struct {
	Owner  string
	Name   string
	Params []string
	HasSig bool
}

// ParseMemberRef parses a textual member reference.
func ParseMemberRef(ref string) (MemberRef, error) {
	ref = strings.TrimSpace(ref)
	var r MemberRef

	sig := ""
	if i := strings.IndexByte(ref, '('); i >= 0 {
		if !strings.HasSuffix(ref, ")") {
			return r, errors.New("unterminated signature in %q", ref)
		}
		sig = ref[i+1 : len(ref)-1]
		ref = ref[:i]
		r.HasSig = true
	}

	i := strings.LastIndex(ref, "::")
	if i <= 0 || i+2 >= len(ref) {
		return r, errors.New("member reference %q is not Owner::Name", ref)
	}
	r.Owner, r.Name = ref[:i], ref[i+2:]

	if strings.TrimSpace(sig) != "" {
		for _, p := range strings.Split(sig, ",") {
			r.Params = append(r.Params, strings.TrimSpace(p))
		}
	}
	return r, nil
}

func (r MemberRef) String() string {
	s := r.Owner + "::" + r.Name
	if r.HasSig {
		s += "(" + strings.Join(r.Params, ",") + ")"
	}
	return s
}

// FindMethod resolves a textual method reference. Without a signature the
// name must be unique on the owner.
func FindMethod(r Reflector, ref string) (*Method, error) {
	mr, err := ParseMemberRef(ref)
	if err != nil {
		return nil, err
	}
	owner, ok := r.LookupType(mr.Owner)
	if !ok {
		return nil, errors.New("unknown type %v in %v", mr.Owner, ref)
	}

	if !mr.HasSig {
		cands := owner.MethodsNamed(mr.Name)
		switch len(cands) {
		case 1:
			return cands[0], nil
		case 0:
			return nil, errors.New("no method %v", ref)
		default:
			return nil, errors.New("ambiguous method %v: %d overloads", ref, len(cands))
		}
	}

	params := make([]*Type, len(mr.Params))
	for i, p := range mr.Params {
		t, ok := r.LookupType(p)
		if !ok {
			return nil, errors.New("unknown parameter type %v in %v", p, ref)
		}
		params[i] = t
	}

	m := owner.FindMethod(mr.Name, params...)
	if m == nil {
		return nil, errors.New("no method %v", ref)
	}
	return m, nil
}

// FindField resolves a textual field reference "Owner::Name". Inherited
// fields are found through the base chain.
func FindField(r Reflector, ref string) (*Field, error) {
	mr, err := ParseMemberRef(ref)
	if err != nil {
		return nil, err
	}
	if mr.HasSig {
		return nil, errors.New("field reference %v has a signature", ref)
	}
	owner, ok := r.LookupType(mr.Owner)
	if !ok {
		return nil, errors.New("unknown type %v in %v", mr.Owner, ref)
	}
	f := owner.Field(mr.Name)
	if f == nil {
		return nil, errors.New("no field %v", ref)
	}
	return f, nil
}
