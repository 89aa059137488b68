// Gather implements the columnar projection shared by the document and
// table layers (spec §4.5/§4.7): pull a fixed list of (field, type)
// header entries out of many rows into one tape per field, with the
// compaction invariant that each column's entries are packed back-to-back
// with no gaps — offset[i+1] always equals offset[i]+length[i] for
// present values, and absent values get length LengthMissing with their
// offset at the column's current end, so they leave no hole. Numeric cells are fixed-width; string/binary cells use
// offset+length; JSON cells store the raw token substring.
//
// Grounded on the teacher's encflat.go (flat encoding of a tuple of
// values into one contiguous buffer with a side offsets table),
// generalized from one row's fields to one column across many rows, and
// from one JSON-everything encoding to the spec's per-type cell layout.
package docs

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/example/multikv/arena"
)

// LengthMissing marks an absent value in a gathered column; duplicated
// from the top package's sentinel (see blob's lengthMissing) to avoid an
// import cycle back through the top package.
const LengthMissing = 0xFFFFFFFF

// Type is a gather column's field encoding, drawn from spec §4.5's field
// encoding list.
type Type uint8

const (
	TypeJSON Type = iota // raw JSON token substring
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeF16
	TypeF32
	TypeF64
	TypeStr // raw UTF-8 bytes, no JSON quoting
	TypeBin // raw bytes, decoded from a base64 JSON string
)

// fixedWidth reports the cell width of a fixed-width numeric type, or
// ok=false for the variable-length types (json, str, bin).
func (ty Type) fixedWidth() (n int, ok bool) {
	switch ty {
	case TypeBool, TypeI8, TypeU8:
		return 1, true
	case TypeI16, TypeU16, TypeF16:
		return 2, true
	case TypeI32, TypeU32, TypeF32:
		return 4, true
	case TypeI64, TypeU64, TypeF64:
		return 8, true
	default:
		return 0, false
	}
}

// FieldSpec is one entry of a gather table header: a field name paired
// with the type its column should be encoded as.
type FieldSpec struct {
	Name string
	Type Type
}

// Column is one field's gathered values across a batch of rows, packed
// into a single tape.
type Column struct {
	Type    Type
	Offsets []uint32
	Lengths []uint32 // LengthMissing where the field was absent
	Data    []byte
}

// Gather projects header's fields out of rows, encoding each present
// value per its declared type, in row order, one Column per header
// entry.
func Gather(a *arena.Arena, rows []Doc, header []FieldSpec) (map[string]Column, error) {
	out := make(map[string]Column, len(header))
	for _, spec := range header {
		tape := a.NewTape()
		offsets := make([]uint32, len(rows))
		lengths := make([]uint32, len(rows))

		for i, row := range rows {
			v, ok := Field(row, spec.Name)
			if !ok || v == nil {
				offsets[i] = uint32(tape.Len())
				lengths[i] = LengthMissing
				continue
			}
			raw, err := encodeCell(v, spec.Type)
			if err != nil {
				return nil, fmt.Errorf("docs: gathering field %q: %w", spec.Name, err)
			}
			off, n := tape.Append(raw)
			offsets[i] = uint32(off)
			lengths[i] = uint32(n)
		}

		out[spec.Name] = Column{Type: spec.Type, Offsets: offsets, Lengths: lengths, Data: tape.Bytes()}
	}
	return out, nil
}

// encodeCell encodes one field value per spec's field-encoding rule:
// fixed-width bytes for numeric/bool types, raw bytes for str/bin, and
// the raw JSON token substring otherwise.
func encodeCell(v any, ty Type) ([]byte, error) {
	if width, fixed := ty.fixedWidth(); fixed {
		return encodeNumeric(v, ty, width)
	}
	switch ty {
	case TypeStr:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string value, got %T", v)
		}
		return []byte(s), nil
	case TypeBin:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string value for a binary field, got %T", v)
		}
		return decodeBase64(s)
	default: // TypeJSON
		return json.Marshal(v)
	}
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func encodeNumeric(v any, ty Type, width int) ([]byte, error) {
	if ty == TypeBool {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool value, got %T", v)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("expected numeric value, got %T", v)
	}
	buf := make([]byte, width)
	switch ty {
	case TypeI8:
		buf[0] = byte(int8(f))
	case TypeU8:
		buf[0] = byte(uint8(f))
	case TypeI16:
		binary.LittleEndian.PutUint16(buf, uint16(int16(f)))
	case TypeU16:
		binary.LittleEndian.PutUint16(buf, uint16(f))
	case TypeI32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(f)))
	case TypeU32:
		binary.LittleEndian.PutUint32(buf, uint32(f))
	case TypeI64:
		binary.LittleEndian.PutUint64(buf, uint64(int64(f)))
	case TypeU64:
		binary.LittleEndian.PutUint64(buf, uint64(f))
	case TypeF16:
		binary.LittleEndian.PutUint16(buf, float32To16(float32(f)))
	case TypeF32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
	case TypeF64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	}
	return buf, nil
}

// Value decodes column's i'th entry back into a Go value per its
// declared type, or returns ok=false if it was absent.
func (c Column) Value(i int) (val any, ok bool, err error) {
	if c.Lengths[i] == LengthMissing {
		return nil, false, nil
	}
	off, n := c.Offsets[i], c.Lengths[i]
	raw := c.Data[off : off+n]
	switch c.Type {
	case TypeStr:
		return string(raw), true, nil
	case TypeBin:
		return append([]byte(nil), raw...), true, nil
	case TypeBool:
		return raw[0] != 0, true, nil
	case TypeI8:
		return int8(raw[0]), true, nil
	case TypeU8:
		return raw[0], true, nil
	case TypeI16:
		return int16(binary.LittleEndian.Uint16(raw)), true, nil
	case TypeU16:
		return binary.LittleEndian.Uint16(raw), true, nil
	case TypeI32:
		return int32(binary.LittleEndian.Uint32(raw)), true, nil
	case TypeU32:
		return binary.LittleEndian.Uint32(raw), true, nil
	case TypeI64:
		return int64(binary.LittleEndian.Uint64(raw)), true, nil
	case TypeU64:
		return binary.LittleEndian.Uint64(raw), true, nil
	case TypeF16:
		return float16To32(binary.LittleEndian.Uint16(raw)), true, nil
	case TypeF32:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), true, nil
	case TypeF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), true, nil
	default: // TypeJSON
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

// Verify checks the compaction invariant: the spans of present entries,
// taken in row order, must be contiguous and non-overlapping, each one
// starting where the previous one ends. Intended for tests.
func (c Column) Verify() error {
	type span struct{ off, end uint32 }
	spans := make([]span, 0, len(c.Offsets))
	for i, off := range c.Offsets {
		if c.Lengths[i] == LengthMissing {
			continue
		}
		spans = append(spans, span{off, off + c.Lengths[i]})
	}
	for i := 1; i < len(spans); i++ {
		if spans[i].off != spans[i-1].end {
			return fmt.Errorf("docs: gather column has a gap or overlap at entry %d", i)
		}
	}
	return nil
}

// float32To16 truncates an IEEE-754 binary32 value to binary16,
// clamping overflow to infinity; it does not round to nearest.
func float32To16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff
	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp)<<10 | uint16(mant>>13)
	}
}

func float16To32(bits uint16) float32 {
	sign := uint32(bits&0x8000) << 16
	exp := uint32(bits>>10) & 0x1f
	mant := uint32(bits & 0x3ff)
	switch exp {
	case 0:
		return math.Float32frombits(sign)
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}
