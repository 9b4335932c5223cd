// Package modem implements the wire protocol, transports and worker loop
// used to talk to a lora_controller companion process, plus the typed
// facade operations built on top of it.
package modem

import (
	"bytes"
	"fmt"
	"math"

	lorawan "github.com/chirpotle-go/wormhole"
)

// Value markers from the UBJSON draft-12 spec. Only the subset the
// companion firmware actually emits/accepts is implemented; see DESIGN.md
// for why this is hand-written instead of imported.
const (
	markerNull       = 'Z'
	markerTrue       = 'T'
	markerFalse      = 'F'
	markerInt8       = 'i'
	markerUint8      = 'U'
	markerInt16      = 'I'
	markerInt32      = 'l'
	markerInt64      = 'L'
	markerFloat32    = 'd'
	markerFloat64    = 'D'
	markerString     = 'S'
	markerArrayOpen  = '['
	markerArrayClose = ']'
	markerObjOpen    = '{'
	markerObjClose   = '}'
	markerOptType    = '$'
	markerOptCount   = '#'
)

// Marshal encodes v (expected to be a map[string]interface{} at the top
// level, per the wire protocol's single-top-level-object rule) into its
// UBJSON-compatible binary form.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single UBJSON value from data, returning the
// remaining unconsumed bytes alongside it.
func Unmarshal(data []byte) (interface{}, []byte, error) {
	if len(data) == 0 {
		return nil, nil, lorawan.ErrInvalidEncoding("empty UBJSON payload")
	}
	return decodeValue(data)
}

func encodeValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteByte(markerNull)
	case bool:
		if val {
			buf.WriteByte(markerTrue)
		} else {
			buf.WriteByte(markerFalse)
		}
	case int:
		return encodeInt(buf, int64(val))
	case int8:
		return encodeInt(buf, int64(val))
	case int16:
		return encodeInt(buf, int64(val))
	case int32:
		return encodeInt(buf, int64(val))
	case int64:
		return encodeInt(buf, val)
	case uint8:
		return encodeInt(buf, int64(val))
	case uint16:
		return encodeInt(buf, int64(val))
	case uint32:
		return encodeInt(buf, int64(val))
	case uint64:
		return encodeInt(buf, int64(val))
	case float32:
		buf.WriteByte(markerFloat32)
		writeUint32(buf, math.Float32bits(val))
	case float64:
		buf.WriteByte(markerFloat64)
		writeUint64(buf, math.Float64bits(val))
	case string:
		buf.WriteByte(markerString)
		if err := encodeInt(buf, int64(len(val))); err != nil {
			return err
		}
		buf.WriteString(val)
	case []byte:
		encodeByteArray(buf, val)
	case []int:
		ints := make([]int64, len(val))
		for i, e := range val {
			ints[i] = int64(e)
		}
		return encodeIntArray(buf, ints)
	case []interface{}:
		buf.WriteByte(markerArrayOpen)
		for _, e := range val {
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(markerArrayClose)
	case map[string]interface{}:
		buf.WriteByte(markerObjOpen)
		for k, e := range val {
			if err := encodeInt(buf, int64(len(k))); err != nil {
				return err
			}
			buf.WriteString(k)
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(markerObjClose)
	default:
		return fmt.Errorf("modem: ubjson: unsupported value type %T", v)
	}
	return nil
}

// encodeInt picks the smallest marker that can hold n, matching the
// companion's own encoder behaviour of using the tightest integer type.
func encodeInt(buf *bytes.Buffer, n int64) error {
	switch {
	case n >= 0 && n <= 0xff:
		buf.WriteByte(markerUint8)
		buf.WriteByte(byte(n))
	case n >= -128 && n <= 127:
		buf.WriteByte(markerInt8)
		buf.WriteByte(byte(int8(n)))
	case n >= -32768 && n <= 32767:
		buf.WriteByte(markerInt16)
		writeUint16(buf, uint16(int16(n)))
	case n >= -(1<<31) && n <= (1<<31)-1:
		buf.WriteByte(markerInt32)
		writeUint32(buf, uint32(int32(n)))
	default:
		buf.WriteByte(markerInt64)
		writeUint64(buf, uint64(n))
	}
	return nil
}

// encodeByteArray writes a UBJSON optimized array ($U#<count><bytes>), the
// form used for payload/mask/pattern fields on the wire.
func encodeByteArray(buf *bytes.Buffer, b []byte) {
	buf.WriteByte(markerArrayOpen)
	buf.WriteByte(markerOptType)
	buf.WriteByte(markerUint8)
	buf.WriteByte(markerOptCount)
	encodeInt(buf, int64(len(b)))
	buf.Write(b)
}

func encodeIntArray(buf *bytes.Buffer, vals []int64) error {
	buf.WriteByte(markerArrayOpen)
	for _, v := range vals {
		if err := encodeInt(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(markerArrayClose)
	return nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	for i := 7; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

func decodeValue(data []byte) (interface{}, []byte, error) {
	if len(data) == 0 {
		return nil, nil, lorawan.ErrInvalidEncoding("truncated UBJSON value")
	}
	marker := data[0]
	rest := data[1:]
	switch marker {
	case markerNull:
		return nil, rest, nil
	case markerTrue:
		return true, rest, nil
	case markerFalse:
		return false, rest, nil
	case markerUint8:
		if len(rest) < 1 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated uint8")
		}
		return int64(rest[0]), rest[1:], nil
	case markerInt8:
		if len(rest) < 1 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated int8")
		}
		return int64(int8(rest[0])), rest[1:], nil
	case markerInt16:
		if len(rest) < 2 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated int16")
		}
		return int64(int16(uint16(rest[0])<<8 | uint16(rest[1]))), rest[2:], nil
	case markerInt32:
		if len(rest) < 4 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated int32")
		}
		v := uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
		return int64(int32(v)), rest[4:], nil
	case markerInt64:
		if len(rest) < 8 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated int64")
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(rest[i])
		}
		return int64(v), rest[8:], nil
	case markerFloat32:
		if len(rest) < 4 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated float32")
		}
		bits := uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
		return float64(math.Float32frombits(bits)), rest[4:], nil
	case markerFloat64:
		if len(rest) < 8 {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated float64")
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits = bits<<8 | uint64(rest[i])
		}
		return math.Float64frombits(bits), rest[8:], nil
	case markerString:
		n, rest2, err := decodeLength(rest)
		if err != nil {
			return nil, nil, err
		}
		if len(rest2) < n {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated string")
		}
		return string(rest2[:n]), rest2[n:], nil
	case markerArrayOpen:
		return decodeArray(rest)
	case markerObjOpen:
		return decodeObject(rest)
	default:
		return nil, nil, lorawan.ErrInvalidEncoding(fmt.Sprintf("unknown UBJSON marker %q", marker))
	}
}

// decodeLength reads a length-prefixed integer (any of the int markers).
func decodeLength(data []byte) (int, []byte, error) {
	v, rest, err := decodeValue(data)
	if err != nil {
		return 0, nil, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, nil, lorawan.ErrInvalidEncoding("expected integer length")
	}
	return int(n), rest, nil
}

func decodeArray(data []byte) (interface{}, []byte, error) {
	if len(data) >= 2 && data[0] == markerOptType {
		typ := data[1]
		rest := data[2:]
		if len(rest) == 0 || rest[0] != markerOptCount {
			return nil, nil, lorawan.ErrInvalidEncoding("optimized array missing count")
		}
		n, rest2, err := decodeLength(rest[1:])
		if err != nil {
			return nil, nil, err
		}
		if typ == markerUint8 {
			if len(rest2) < n {
				return nil, nil, lorawan.ErrInvalidEncoding("truncated byte array")
			}
			out := make([]byte, n)
			copy(out, rest2[:n])
			return out, rest2[n:], nil
		}
		out := make([]interface{}, 0, n)
		cur := rest2
		for i := 0; i < n; i++ {
			v, next, err := decodeValue(append([]byte{typ}, cur...))
			if err != nil {
				return nil, nil, err
			}
			out = append(out, v)
			cur = next
		}
		return out, cur, nil
	}

	out := []interface{}{}
	cur := data
	for {
		if len(cur) == 0 {
			return nil, nil, lorawan.ErrInvalidEncoding("unterminated array")
		}
		if cur[0] == markerArrayClose {
			return out, cur[1:], nil
		}
		v, next, err := decodeValue(cur)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
		cur = next
	}
}

func decodeObject(data []byte) (interface{}, []byte, error) {
	out := map[string]interface{}{}
	cur := data
	for {
		if len(cur) == 0 {
			return nil, nil, lorawan.ErrInvalidEncoding("unterminated object")
		}
		if cur[0] == markerObjClose {
			return out, cur[1:], nil
		}
		n, rest, err := decodeLength(cur)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) < n {
			return nil, nil, lorawan.ErrInvalidEncoding("truncated object key")
		}
		key := string(rest[:n])
		v, next, err := decodeValue(rest[n:])
		if err != nil {
			return nil, nil, err
		}
		out[key] = v
		cur = next
	}
}
