package lorawan

import "github.com/chirpotle-go/wormhole/band"

// Message is a mutable, tagged view over a single LoRaWAN PHY payload
// buffer. Byte 0 is always the MHDR; the remaining bytes are interpreted
// according to the current MType, and are replaced wholesale whenever a
// write to byte 0 crosses into a different conf/unconf×up/down pair.
type Message struct {
	buf     []byte
	region  band.Region
	root    *RootKeys
	session *Session
	version MACVersion
}

// NewMessage builds a Message over data. An empty slice is treated as a
// single zero byte (MType JoinRequest, major LoRaWANR1), with the payload
// reset to JoinRequest's default shape. region, root and session may be nil
// when only framing (not MIC/crypto) operations are needed; operations that
// require them fail with MissingKey if they are absent when invoked.
func NewMessage(data []byte, version MACVersion, region band.Region, root *RootKeys, session *Session) *Message {
	m := &Message{region: region, root: root, session: session, version: version}
	if len(data) == 0 {
		m.buf = []byte{0}
		m.resetPayloadFor(m.MHDR().MType())
	} else {
		m.buf = append([]byte(nil), data...)
	}
	return m
}

// Raw returns a copy of the current byte buffer.
func (m *Message) Raw() []byte {
	out := make([]byte, len(m.buf))
	copy(out, m.buf)
	return out
}

// Len returns the current buffer length.
func (m *Message) Len() int {
	return len(m.buf)
}

// Version reports the protocol version this message was constructed with.
func (m *Message) Version() MACVersion {
	return m.version
}

// MHDR returns a view over byte 0.
func (m *Message) MHDR() MHDR {
	return MHDR{msg: m}
}

// SetByte0 writes the MHDR byte, triggering a payload reset when the new
// MType crosses into a different direction/confirmation pair than the old
// one (spec invariant: same-pair changes preserve payload bytes exactly).
func (m *Message) SetByte0(v byte) {
	oldType := m.MHDR().MType()
	newType := MType(GetMasked(v, mtypeMask) << 5)
	m.buf[0] = v
	if !oldType.samePair(newType) {
		m.resetPayloadFor(newType)
		m.buf[0] = v
	}
}

// isUplink reports the direction implied by the current MType. JoinRequest
// and RejoinRequest are always uplink.
func (m *Message) isUplink() bool {
	t := m.MHDR().MType()
	return t.IsDataUp() || t == MTypeJoinRequest || t == MTypeRejoinRequest
}

// defaultTrailer returns the zero-filled default payload bytes (everything
// after the MHDR) for the given MType.
func defaultTrailer(mtype MType) []byte {
	switch {
	case mtype == MTypeJoinRequest:
		return make([]byte, 8+8+2+4) // AppEUI/JoinEUI + DevEUI + DevNonce + MIC
	case mtype == MTypeJoinAccept:
		return make([]byte, 3+3+4+1+1+4) // AppNonce + NetID + DevAddr + DLSettings + RxDelay + MIC
	case mtype.IsDataUp() || mtype.IsDataDown():
		return make([]byte, 4+1+2+4) // DevAddr + FCtrl + FCnt + MIC, no FOpts/port/FRMPayload
	case mtype == MTypeRejoinRequest:
		return make([]byte, 1+3+8+2) // RejoinType + NetID + DevEUI + RJcount
	default:
		return []byte{}
	}
}

func (m *Message) resetPayloadFor(mtype MType) {
	mhdrByte := m.buf[0]
	trailer := defaultTrailer(mtype)
	buf := make([]byte, 1+len(trailer))
	buf[0] = mhdrByte
	copy(buf[1:], trailer)
	m.buf = buf
}

// Payload is implemented by every payload view (MacPayloadView,
// JoinRequestView, JoinAcceptView, RejoinRequestView, ProprietaryView).
type Payload interface {
	isPayload()
}

// Payload dispatches to the concrete payload view for the current MType.
func (m *Message) Payload() Payload {
	t := m.MHDR().MType()
	switch {
	case t.IsDataUp() || t.IsDataDown():
		return MacPayloadView{msg: m}
	case t == MTypeJoinRequest:
		return JoinRequestView{msg: m}
	case t == MTypeJoinAccept:
		return JoinAcceptView{msg: m}
	case t == MTypeRejoinRequest:
		return RejoinRequestView{msg: m}
	default:
		return ProprietaryView{msg: m}
	}
}
