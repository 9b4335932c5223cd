package lorawan

import "github.com/chirpotle-go/wormhole/band"

// InfoDesc identifies which antenna's GPS coordinates are encoded in a
// beacon's gateway-specific part.
type InfoDesc uint8

// Recognised InfoDesc values (other values are defined but out of scope).
const (
	InfoDescGPSAntenna0 InfoDesc = 0
	InfoDescGPSAntenna1 InfoDesc = 1
	InfoDescGPSAntenna2 InfoDesc = 2
)

// Beacon is a mutable view over a Class-B beacon frame, laid out per its
// region's BeaconLayout. Unlike Message, a beacon carries no MHDR — the
// whole frame is region-specific bytes plus two independent CRCs.
type Beacon struct {
	buf    []byte
	layout band.BeaconLayout
}

// NewBeacon allocates a zero-filled beacon buffer sized for layout.
func NewBeacon(layout band.BeaconLayout) *Beacon {
	size := layout.GwSpecificOffset + layout.GwSpecificLen + 2
	return &Beacon{buf: make([]byte, size), layout: layout}
}

// NewBeaconFromBytes wraps an existing raw beacon frame.
func NewBeaconFromBytes(data []byte, layout band.BeaconLayout) *Beacon {
	return &Beacon{buf: append([]byte(nil), data...), layout: layout}
}

// Raw returns a copy of the beacon's wire bytes.
func (b *Beacon) Raw() []byte { return append([]byte(nil), b.buf...) }

// Time returns the 4-byte GPS epoch time carried in the network-common
// part, little-endian on the wire.
func (b *Beacon) Time() uint32 {
	n, _ := GetNumber(b.buf, b.layout.TimeOffset, 4, true)
	return uint32(n)
}

// SetTime writes the epoch time and recomputes the network-common CRC.
func (b *Beacon) SetTime(t uint32) {
	_ = PutNumber(b.buf, b.layout.TimeOffset, 4, uint64(t), true)
	b.updateNetCommonCRC()
}

func (b *Beacon) netCommonCRCOffset() int { return b.layout.NetCommonLen - 2 }

// NetCommonCRC returns the stored network-common CRC.
func (b *Beacon) NetCommonCRC() uint16 {
	n, _ := GetNumber(b.buf, b.netCommonCRCOffset(), 2, true)
	return uint16(n)
}

func (b *Beacon) updateNetCommonCRC() {
	crc := CRC16XModem(b.buf[0:b.netCommonCRCOffset()])
	_ = PutNumber(b.buf, b.netCommonCRCOffset(), 2, uint64(crc), true)
}

// VerifyNetCommonCRC reports whether the stored CRC matches the
// network-common bytes.
func (b *Beacon) VerifyNetCommonCRC() bool {
	return b.NetCommonCRC() == CRC16XModem(b.buf[0:b.netCommonCRCOffset()])
}

func (b *Beacon) gwSpecific() []byte {
	off := b.layout.GwSpecificOffset
	return b.buf[off : off+b.layout.GwSpecificLen]
}

func (b *Beacon) gwSpecificCRCOffset() int {
	return b.layout.GwSpecificOffset + b.layout.GwSpecificLen
}

// InfoDesc returns the antenna descriptor byte.
func (b *Beacon) InfoDesc() InfoDesc { return InfoDesc(b.gwSpecific()[0]) }

// SetInfoDesc writes the antenna descriptor byte and recomputes the
// gateway-specific CRC.
func (b *Beacon) SetInfoDesc(d InfoDesc) {
	b.gwSpecific()[0] = byte(d)
	b.updateGwSpecificCRC()
}

// gpsToDeg converts a signed 24-bit fixed-point coordinate to degrees over
// the given +/-range.
func gpsToDeg(raw int32, rangeDeg float64) float64 {
	return float64(raw) / (1 << 23) * rangeDeg
}

func degToGPS(deg float64, rangeDeg float64) int32 {
	return int32(deg / rangeDeg * (1 << 23))
}

func signExtend24(b []byte) int32 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if v&0x800000 != 0 {
		v |= ^int32(0xFFFFFF)
	}
	return v
}

func put24(v int32) [3]byte {
	return [3]byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

// LatDeg returns the GPS latitude in degrees, encoded over +/-90 degrees in
// the beacon's 3-byte latitude field.
func (b *Beacon) LatDeg() float64 {
	return gpsToDeg(signExtend24(b.gwSpecific()[1:4]), 90)
}

// SetLatDeg writes the GPS latitude.
func (b *Beacon) SetLatDeg(deg float64) {
	v := put24(degToGPS(deg, 90))
	copy(b.gwSpecific()[1:4], v[:])
	b.updateGwSpecificCRC()
}

// LngDeg returns the GPS longitude in degrees, encoded over +/-180 degrees
// in the beacon's 3-byte longitude field. This reads the lng field, not
// the lat field, for both coordinates.
func (b *Beacon) LngDeg() float64 {
	return gpsToDeg(signExtend24(b.gwSpecific()[4:7]), 180)
}

// SetLngDeg writes the GPS longitude.
func (b *Beacon) SetLngDeg(deg float64) {
	v := put24(degToGPS(deg, 180))
	copy(b.gwSpecific()[4:7], v[:])
	b.updateGwSpecificCRC()
}

// GwSpecificCRC returns the stored gateway-specific CRC.
func (b *Beacon) GwSpecificCRC() uint16 {
	n, _ := GetNumber(b.buf, b.gwSpecificCRCOffset(), 2, true)
	return uint16(n)
}

func (b *Beacon) updateGwSpecificCRC() {
	crc := CRC16XModem(b.gwSpecific())
	_ = PutNumber(b.buf, b.gwSpecificCRCOffset(), 2, uint64(crc), true)
}

// VerifyGwSpecificCRC reports whether the stored CRC matches the
// gateway-specific bytes.
func (b *Beacon) VerifyGwSpecificCRC() bool {
	return b.GwSpecificCRC() == CRC16XModem(b.gwSpecific())
}
