package modem

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	lorawan "github.com/chirpotle-go/wormhole"
)

// Framing byte sequences, see spec §6.1 and the companion's own escaping
// convention (every literal 0x00 in the payload is doubled).
var (
	seqObjStart = []byte{0x00, 0x01}
	seqObjEnd   = []byte{0x00, 0x02}
	seqPing     = []byte{0x00, 0x03}
	seqPong     = []byte{0x00, 0x04}
	seqZero     = []byte{0x00, 0x00}
)

// frame escapes a raw UBJSON payload into its wire form: OBJ_START, the
// payload with every 0x00 doubled, then OBJ_END.
func frame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+4)
	out = append(out, seqObjStart...)
	for _, b := range payload {
		out = append(out, b)
		if b == 0x00 {
			out = append(out, 0x00)
		}
	}
	out = append(out, seqObjEnd...)
	return out
}

// byteReader is the minimal blocking read primitive every transport must
// support; framing is transport-agnostic on top of it.
type byteReader interface {
	ReadByte() (byte, error)
}

// readFrame blocks until it has read OBJ_START, then unescapes bytes up
// to OBJ_END, returning the raw UBJSON payload. PING is handled
// transparently by the worker, not here; unexpected 0x00 XX sequences are
// a protocol violation.
func readFrame(r byteReader) ([]byte, error) {
	var prefix [2]byte
	have := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, lorawan.ErrTransportFailed(err)
		}
		if have < 2 {
			prefix[have] = b
			have++
		} else {
			prefix[0], prefix[1] = prefix[1], b
		}
		if have >= 2 && prefix[0] == seqObjStart[0] && prefix[1] == seqObjStart[1] {
			break
		}
	}

	var payload []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, lorawan.ErrTransportFailed(err)
		}
		if b != 0x00 {
			payload = append(payload, b)
			continue
		}
		next, err := r.ReadByte()
		if err != nil {
			return nil, lorawan.ErrTransportFailed(err)
		}
		switch next {
		case seqObjEnd[1]:
			return payload, nil
		case seqZero[1]:
			payload = append(payload, 0x00)
		default:
			return nil, lorawan.ErrInvalidEncoding(fmt.Sprintf("unexpected escape sequence 00 %02x", next))
		}
	}
}

// logHexDump writes data in the same 16-byte hex-dump layout the
// companion's own debug helper uses.
func logHexDump(log *logrus.Entry, header string, data []byte) {
	log.Debug(header)
	for n := 0; n < len(data); n += 16 {
		end := n + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[n:end]
		hexParts := make([]string, len(row))
		ascii := make([]byte, len(row))
		for i, b := range row {
			hexParts[i] = fmt.Sprintf("%02x", b)
			if b >= 0x20 && b < 0x7f {
				ascii[i] = b
			} else {
				ascii[i] = '.'
			}
		}
		log.Debugf("%-50s%s", strings.Join(hexParts, " "), ascii)
	}
}
