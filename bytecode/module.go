package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"asc.im/mania"
)

// Module format ("bam"): little-endian, byte-exact.
//
//	magic            : 3 bytes = "bam"
//	flags            : 1 byte
//	version          : 4 bytes
//	name_index       : 4 bytes (index into constants for the module name symbol)
//	entry_point      : 4 bytes
//	constant_count   : 4 bytes
//	code_size_bytes  : 4 bytes
//	constants[constant_count]  : each = (tag:1 byte)(body)
//	code[code_size_bytes]      : sequence of instructions

const (
	magic        = "bam"
	formatVersion = 1
)

// Constant tags.
const (
	tagEllipsis  = 0x00
	tagUndefined = 0x01
	tagNil       = 0x02
	tagBoolean   = 0x03
	tagInteger   = 0x04
	tagFloat     = 0x05
	tagSymbol    = 0x06
	tagString    = 0x07
)

// DumpModule serializes m into the "bam" binary format.
func DumpModule(m *mania.Module) ([]byte, error) {
	var constBody []byte
	for _, c := range m.Constants {
		enc, err := encodeConstant(c)
		if err != nil {
			return nil, err
		}
		constBody = append(constBody, enc...)
	}

	header := make([]byte, 0, 3+1+4+4+4+4+4)
	header = append(header, magic...)
	header = append(header, 0) // flags
	header = appendUint32(header, formatVersion)
	header = appendUint32(header, 0) // name_index: module name is always constants[0]
	header = appendUint32(header, uint32(m.EntryPoint))
	header = appendUint32(header, uint32(len(m.Constants)))
	header = appendUint32(header, uint32(len(m.Instructions)))

	out := make([]byte, 0, len(header)+len(constBody)+len(m.Instructions))
	out = append(out, header...)
	out = append(out, constBody...)
	out = append(out, m.Instructions...)
	return out, nil
}

// LoadModule deserializes a "bam" binary blob into a Module.
func LoadModule(data []byte) (*mania.Module, error) {
	if len(data) < 3+1+4+4+4+4+4 {
		return nil, fmt.Errorf("bam: truncated header")
	}
	if string(data[0:3]) != magic {
		return nil, fmt.Errorf("bam: bad magic %q", data[0:3])
	}
	pos := 3
	_ = data[pos] // flags
	pos++
	_ = readUint32(data, pos) // version
	pos += 4
	nameIndex := int(readUint32(data, pos))
	pos += 4
	entryPoint := int(readUint32(data, pos))
	pos += 4
	constantCount := int(readUint32(data, pos))
	pos += 4
	codeSize := int(readUint32(data, pos))
	pos += 4

	constants := make([]mania.Object, constantCount)
	for i := 0; i < constantCount; i++ {
		c, next, err := decodeConstant(data, pos)
		if err != nil {
			return nil, err
		}
		constants[i] = c
		pos = next
	}
	if nameIndex != 0 {
		return nil, fmt.Errorf("bam: name_index must be 0 (constants[0] holds the module name), got %d", nameIndex)
	}
	if pos+codeSize > len(data) {
		return nil, fmt.Errorf("bam: truncated code section")
	}
	code := make([]byte, codeSize)
	copy(code, data[pos:pos+codeSize])

	name, ok := mania.GetSymbol(constants[0])
	if !ok {
		return nil, fmt.Errorf("bam: constants[0] is not a symbol")
	}
	return mania.NewModule(name, entryPoint, constants[1:], code), nil
}

// PeekModuleName reads just enough of a "bam" blob's header to recover its
// module name (constants[0]), without decoding the rest of the constant
// pool or the instruction stream. Used by Node.LoadPaths to key a
// registered-but-undecoded module by name.
func PeekModuleName(data []byte) (string, error) {
	if len(data) < 3+1+4+4+4+4+4 {
		return "", fmt.Errorf("bam: truncated header")
	}
	if string(data[0:3]) != magic {
		return "", fmt.Errorf("bam: bad magic %q", data[0:3])
	}
	pos := 3 + 1 + 4 + 4 + 4 + 4 + 4 // skip flags, version, name_index, entry_point, constant_count, code_size_bytes
	name, _, err := decodeConstant(data, pos)
	if err != nil {
		return "", err
	}
	sym, ok := mania.GetSymbol(name)
	if !ok {
		return "", fmt.Errorf("bam: constants[0] is not a symbol")
	}
	return sym.Name(), nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint32(data []byte, pos int) uint32 {
	return binary.LittleEndian.Uint32(data[pos : pos+4])
}

func encodeConstant(obj mania.Object) ([]byte, error) {
	switch v := obj.(type) {
	case mania.Ellipsis:
		return []byte{tagEllipsis}, nil
	case mania.Undefined:
		return []byte{tagUndefined}, nil
	case *mania.Pair:
		if v == nil {
			return []byte{tagNil}, nil
		}
		return nil, fmt.Errorf("bam: pair is not a valid constant")
	case mania.Bool:
		b := byte(0)
		if v {
			b = 1
		}
		return []byte{tagBoolean, b}, nil
	case *mania.Integer:
		out := []byte{tagInteger}
		out = append(out, v.String()...)
		out = append(out, 0)
		return out, nil
	case mania.Float:
		out := make([]byte, 9)
		out[0] = tagFloat
		binary.LittleEndian.PutUint64(out[1:], math.Float64bits(float64(v)))
		return out, nil
	case *mania.Symbol:
		out := []byte{tagSymbol}
		out = append(out, v.Name()...)
		out = append(out, 0)
		return out, nil
	case mania.String:
		s := string(v)
		out := make([]byte, 0, 1+4+len(s))
		out = append(out, tagString)
		out = appendUint32(out, uint32(len(s)))
		out = append(out, s...)
		return out, nil
	default:
		return nil, fmt.Errorf("bam: %T is not a valid module constant", obj)
	}
}

func decodeConstant(data []byte, pos int) (mania.Object, int, error) {
	if pos >= len(data) {
		return nil, pos, fmt.Errorf("bam: truncated constant tag")
	}
	tag := data[pos]
	pos++
	switch tag {
	case tagEllipsis:
		return mania.TheEllipsis, pos, nil
	case tagUndefined:
		return mania.MakeUndefined(), pos, nil
	case tagNil:
		return mania.Nil(), pos, nil
	case tagBoolean:
		if pos >= len(data) {
			return nil, pos, fmt.Errorf("bam: truncated boolean")
		}
		return mania.MakeBoolean(data[pos] != 0), pos + 1, nil
	case tagInteger:
		end := indexNUL(data, pos)
		if end < 0 {
			return nil, pos, fmt.Errorf("bam: unterminated integer constant")
		}
		i, ok := mania.ParseInteger(string(data[pos:end]))
		if !ok {
			return nil, pos, fmt.Errorf("bam: malformed integer constant %q", data[pos:end])
		}
		return i, end + 1, nil
	case tagFloat:
		if pos+8 > len(data) {
			return nil, pos, fmt.Errorf("bam: truncated float")
		}
		bits := binary.LittleEndian.Uint64(data[pos : pos+8])
		return mania.Float(math.Float64frombits(bits)), pos + 8, nil
	case tagSymbol:
		end := indexNUL(data, pos)
		if end < 0 {
			return nil, pos, fmt.Errorf("bam: unterminated symbol constant")
		}
		return mania.MakeSymbol(string(data[pos:end])), end + 1, nil
	case tagString:
		if pos+4 > len(data) {
			return nil, pos, fmt.Errorf("bam: truncated string length")
		}
		n := int(readUint32(data, pos))
		pos += 4
		if pos+n > len(data) {
			return nil, pos, fmt.Errorf("bam: truncated string body")
		}
		return mania.MakeString(string(data[pos : pos+n])), pos + n, nil
	default:
		return nil, pos, fmt.Errorf("bam: unknown constant tag 0x%02x", tag)
	}
}

func indexNUL(data []byte, from int) int {
	for i := from; i < len(data); i++ {
		if data[i] == 0 {
			return i
		}
	}
	return -1
}
