package lorawan

// ProprietaryView is the payload view for vendor-specific MType frames: the
// wire format beyond the MHDR is not defined by the LoRaWAN specification,
// so this view exposes the trailer as opaque bytes.
type ProprietaryView struct {
	msg *Message
}

func (ProprietaryView) isPayload() {}

// Bytes returns everything after the MHDR byte.
func (p ProprietaryView) Bytes() []byte {
	return append([]byte(nil), p.msg.buf[1:]...)
}

// SetBytes replaces everything after the MHDR byte.
func (p ProprietaryView) SetBytes(data []byte) {
	buf := make([]byte, 1+len(data))
	buf[0] = p.msg.buf[0]
	copy(buf[1:], data)
	p.msg.buf = buf
}
