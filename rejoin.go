package lorawan

// RejoinRequestView is the payload view for MTypeRejoinRequest: RejoinType,
// NetID, DevEUI and RJcount. The same layout is used for every RejoinType;
// the type-1 layout (8-byte JoinEUI in place of NetID) is not decoded.
type RejoinRequestView struct {
	msg *Message
}

func (RejoinRequestView) isPayload() {}

const (
	rejoinTypeOffset    = 1
	rejoinNetIDOffset   = 2
	rejoinDevEUIOffset  = 5
	rejoinRJCountOffset = 13
)

// RejoinType returns the rejoin-request type (0, 1 or 2).
func (v RejoinRequestView) RejoinType() uint8 { return v.msg.buf[rejoinTypeOffset] }

// SetRejoinType sets the rejoin-request type.
func (v RejoinRequestView) SetRejoinType(t uint8) { v.msg.buf[rejoinTypeOffset] = t }

// NetID returns the network identifier (big-endian presentation),
// meaningful for RejoinType 0 and 2.
func (v RejoinRequestView) NetID() NetID {
	b := v.msg.buf[rejoinNetIDOffset : rejoinNetIDOffset+3]
	return NetID{b[2], b[1], b[0]}
}

// SetNetID writes the network identifier.
func (v RejoinRequestView) SetNetID(n NetID) {
	b := v.msg.buf[rejoinNetIDOffset : rejoinNetIDOffset+3]
	b[0], b[1], b[2] = n[2], n[1], n[0]
}

// DevEUI returns the device EUI (big-endian presentation).
func (v RejoinRequestView) DevEUI() [8]byte {
	return reverseEUI(v.msg.buf[rejoinDevEUIOffset : rejoinDevEUIOffset+8])
}

// SetDevEUI writes the device EUI.
func (v RejoinRequestView) SetDevEUI(eui [8]byte) {
	b := reverseEUI(eui[:])
	copy(v.msg.buf[rejoinDevEUIOffset:rejoinDevEUIOffset+8], b[:])
}

// RJcount returns the rejoin counter, little-endian on the wire.
func (v RejoinRequestView) RJcount() uint16 {
	n, _ := GetNumber(v.msg.buf, rejoinRJCountOffset, 2, true)
	return uint16(n)
}

// SetRJcount writes the rejoin counter. The value is a plain 16-bit
// little-endian field; there is no sign or offset encoding despite the
// similarity to other counter fields.
func (v RejoinRequestView) SetRJcount(n uint16) {
	_ = PutNumber(v.msg.buf, rejoinRJCountOffset, 2, uint64(n), true)
}
