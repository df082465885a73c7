package bytecode

import (
	"encoding/hex"
	"fmt"
)

// Metadata is one entry of the solc CBOR metadata trailer appended after
// the instruction stream. It is purely informational: nothing in the
// decompilation pipeline reads it, it exists only to be surfaced to a
// caller that wants to know which compiler produced a contract.
type Metadata struct {
	Key   string
	Bytes []byte // raw value bytes (byte-string entries)
	UInt  uint64 // populated when the CBOR value was a small unsigned int
	IsInt bool
}

// SplitMetadata separates the trailing CBOR metadata blob (if any) from
// the instruction-stream bytes that precede it. The original
// implementation computed the trailer length as
// source[len-1] + source[len-2], which is wrong; the correct encoding
// (per solc's own documentation) is a big-endian uint16 occupying the
// final two bytes -- see DESIGN.md, Open Question 3.
func SplitMetadata(raw []byte) (code []byte, metadataBytes []byte) {
	n := len(raw)
	if n < 2 {
		return raw, nil
	}
	length := int(raw[n-2])<<8 | int(raw[n-1])
	end := n - 2
	if length <= 0 || length > end {
		return raw, nil
	}
	start := end - length
	return raw[:start], raw[start:end]
}

// DecodeMetadata best-effort decodes the CBOR map in metadataBytes. It
// understands exactly the subset solc emits: a single definite-length
// map (major type 5) whose keys are text strings (major type 3) and
// whose values are byte strings (major type 2), unsigned ints (major
// type 0), or booleans (major type 7) -- no third-party CBOR library
// appears anywhere in the retrieval pack, and pulling one in for this
// small, fixed subset would be disproportionate (see DESIGN.md).
func DecodeMetadata(metadataBytes []byte) ([]Metadata, error) {
	if len(metadataBytes) == 0 {
		return nil, nil
	}
	d := &cborReader{buf: metadataBytes}
	major, count, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	if major != 5 {
		return nil, fmt.Errorf("bytecode: metadata: expected a CBOR map, got major type %d", major)
	}

	out := make([]Metadata, 0, count)
	for i := uint64(0); i < count; i++ {
		keyMajor, keyLen, err := d.readHeader()
		if err != nil {
			return nil, err
		}
		if keyMajor != 3 {
			return nil, fmt.Errorf("bytecode: metadata: expected a text key, got major type %d", keyMajor)
		}
		key, err := d.readBytes(int(keyLen))
		if err != nil {
			return nil, err
		}

		valMajor, valLen, err := d.readHeader()
		if err != nil {
			return nil, err
		}
		entry := Metadata{Key: string(key)}
		switch valMajor {
		case 0: // unsigned int, length already decoded into valLen
			entry.UInt = valLen
			entry.IsInt = true
		case 2: // byte string
			b, err := d.readBytes(int(valLen))
			if err != nil {
				return nil, err
			}
			entry.Bytes = b
		case 7: // simple value (e.g. true/false) -- no payload beyond the header
		default:
			return nil, fmt.Errorf("bytecode: metadata: unsupported value major type %d for key %q", valMajor, key)
		}
		out = append(out, entry)
	}
	return out, nil
}

// String renders a Metadata entry for diagnostics.
func (m Metadata) String() string {
	if m.IsInt {
		return fmt.Sprintf("%s: %d", m.Key, m.UInt)
	}
	if m.Key == "solc" && len(m.Bytes) == 3 {
		return fmt.Sprintf("Solc %d.%d.%d", m.Bytes[0], m.Bytes[1], m.Bytes[2])
	}
	return fmt.Sprintf("%s: %s", m.Key, hex.EncodeToString(m.Bytes))
}

// cborReader is a tiny cursor over a CBOR byte slice, only supporting
// the definite-length major types DecodeMetadata needs.
type cborReader struct {
	buf []byte
	pos int
}

// readHeader reads one CBOR initial byte (and any following length
// bytes) and returns the major type (0-7) and the argument value: the
// literal integer for major type 0, or the item count/length for major
// types 2/3/5.
func (d *cborReader) readHeader() (major int, arg uint64, err error) {
	if d.pos >= len(d.buf) {
		return 0, 0, fmt.Errorf("bytecode: metadata: unexpected end of input")
	}
	b := d.buf[d.pos]
	d.pos++
	major = int(b >> 5)
	info := b & 0x1f

	switch {
	case info < 24:
		return major, uint64(info), nil
	case info == 24:
		v, err := d.readBytes(1)
		if err != nil {
			return 0, 0, err
		}
		return major, uint64(v[0]), nil
	case info == 25:
		v, err := d.readBytes(2)
		if err != nil {
			return 0, 0, err
		}
		return major, uint64(v[0])<<8 | uint64(v[1]), nil
	case info == 26:
		v, err := d.readBytes(4)
		if err != nil {
			return 0, 0, err
		}
		n := uint64(0)
		for _, x := range v {
			n = n<<8 | uint64(x)
		}
		return major, n, nil
	default:
		return 0, 0, fmt.Errorf("bytecode: metadata: unsupported CBOR length encoding (info=%d)", info)
	}
}

func (d *cborReader) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("bytecode: metadata: unexpected end of input")
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}
