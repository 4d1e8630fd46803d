package shaderrt

import (
	"encoding/binary"
	"math"

	"github.com/nikandfor/errors"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"

	"github.com/gogpu/xshader"
	"github.com/gogpu/xshader/ir"
)

// Slot is the place of one uniform in the payload.
type Slot struct {
	// Name is the name in the generated source.
	Name string

	// Field is the host field backing the uniform. Pack is keyed by it.
	Field string

	Type   ir.Type
	Offset int
	Size   int
}

// Uniforms is the payload layout of a compiled shader. Data uniforms follow
// the std140 rules: scalars align to 4 bytes, two-component vectors to 8,
// and everything wider is padded to 16. Textures are bound by name and take
// no payload space.
type Uniforms struct {
	Slots    []Slot
	Textures []string

	// Size is the payload size, a multiple of 16.
	Size int

	byField map[string]int
}

// NewUniforms lays out us in declaration order.
func NewUniforms(us []xshader.Uniform) (*Uniforms, error) {
	u := &Uniforms{
		byField: make(map[string]int, len(us)),
	}

	off := 0

	for _, x := range us {
		if p, ok := x.Type.(ir.Primitive); ok && p.IsOpaque() {
			u.Textures = append(u.Textures, x.Name)
			continue
		}

		size, align, err := layoutOf(x.Type)
		if err != nil {
			return nil, errors.Wrap(err, "uniform %v", x.Field)
		}

		off = alignUp(off, align)

		u.byField[x.Field] = len(u.Slots)
		u.Slots = append(u.Slots, Slot{
			Name:   x.Name,
			Field:  x.Field,
			Type:   x.Type,
			Offset: off,
			Size:   size,
		})

		off += size
	}

	u.Size = alignUp(off, 16)

	return u, nil
}

// Slot returns the slot of the uniform backed by field.
func (u *Uniforms) Slot(field string) (Slot, bool) {
	i, ok := u.byField[field]
	if !ok {
		return Slot{}, false
	}
	return u.Slots[i], true
}

// Pack encodes values, keyed by host field name, into a little-endian
// payload. Missing uniforms are left zero.
//
// Accepted values are float32, int32, uint32 and bool scalars, ms2.Vec and
// ms3.Vec vectors, [4]float32 for four-component vectors and colors,
// [6]float32 (column-major) for Matrix3x2 and ms3.Mat4 for Matrix4x4.
func (u *Uniforms) Pack(values map[string]any) ([]byte, error) {
	buf := make([]byte, u.Size)

	for field, v := range values {
		s, ok := u.Slot(field)
		if !ok {
			return nil, errors.New("no uniform for field %v", field)
		}

		if err := put(buf[s.Offset:s.Offset+s.Size], s.Type, v); err != nil {
			return nil, errors.Wrap(err, "uniform %v", field)
		}
	}

	return buf, nil
}

func put(b []byte, t ir.Type, v any) error {
	p, _ := t.(ir.Primitive)

	switch v := v.(type) {
	case float32:
		if p == ir.Float {
			putFloats(b, v)
			return nil
		}
	case int32:
		if p == ir.Int {
			binary.LittleEndian.PutUint32(b, uint32(v)) //nolint:gosec // two's complement bits
			return nil
		}
	case uint32:
		if p == ir.UInt {
			binary.LittleEndian.PutUint32(b, v)
			return nil
		}
	case bool:
		if p == ir.Bool {
			if v {
				binary.LittleEndian.PutUint32(b, 1)
			}
			return nil
		}
	case ms2.Vec:
		if p == ir.Float2 {
			putFloats(b, v.X, v.Y)
			return nil
		}
	case ms3.Vec:
		if p == ir.Float3 {
			putFloats(b, v.X, v.Y, v.Z)
			return nil
		}
	case [4]float32:
		if p == ir.Float4 {
			putFloats(b, v[:]...)
			return nil
		}
	case [6]float32:
		if p == ir.Matrix3x2 {
			for c := 0; c < 3; c++ {
				putFloats(b[c*16:], v[c*2], v[c*2+1])
			}
			return nil
		}
	case ms3.Mat4:
		if p == ir.Matrix4x4 {
			arr := v.Array()
			for c := 0; c < 4; c++ {
				for r := 0; r < 4; r++ {
					putFloats(b[(c*4+r)*4:], arr[r*4+c]) // column major
				}
			}
			return nil
		}
	default:
		return errors.New("unsupported value %T", v)
	}

	return errors.New("%T does not fit %v", v, t)
}

func putFloats(b []byte, fs ...float32) {
	for i, f := range fs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
}

// layoutOf returns the std140 size and alignment of t.
func layoutOf(t ir.Type) (size, align int, err error) {
	switch t := t.(type) {
	case ir.Primitive:
		switch {
		case t == ir.Matrix3x2:
			return 3 * 16, 16, nil
		case t == ir.Matrix4x4:
			return 4 * 16, 16, nil
		case t.Components() == 1:
			return 4, 4, nil
		case t.Components() == 2:
			return 8, 8, nil
		case t.Components() > 2:
			return 16, 16, nil
		}
	case ir.ArrayType:
		if t.Len <= 0 || t.Rank > 1 {
			break
		}
		size, _, err := layoutOf(t.Elem)
		if err != nil {
			return 0, 0, err
		}
		return t.Len * alignUp(size, 16), 16, nil
	case ir.StructType:
		off := 0
		for _, f := range t.Struct.Fields {
			size, align, err := layoutOf(f.Type)
			if err != nil {
				return 0, 0, errors.Wrap(err, "field %v", f.Name)
			}
			off = alignUp(off, align) + size
		}
		return alignUp(off, 16), 16, nil
	}

	return 0, 0, ir.NewError(ir.ErrUnsupportedType, "%v in a uniform payload", t)
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
