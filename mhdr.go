package lorawan

// MType is the 3-bit message-type field in bits 7..5 of the MHDR byte.
type MType byte

// Supported message types.
const (
	MTypeJoinRequest         MType = 0
	MTypeJoinAccept          MType = 1 << 5
	MTypeUnconfirmedDataUp   MType = 2 << 5
	MTypeUnconfirmedDataDown MType = 3 << 5
	MTypeConfirmedDataUp     MType = 4 << 5
	MTypeConfirmedDataDown   MType = 5 << 5
	MTypeRejoinRequest       MType = 6 << 5
	MTypeProprietary         MType = 7 << 5
)

func (t MType) String() string {
	switch t {
	case MTypeJoinRequest:
		return "JoinRequest"
	case MTypeJoinAccept:
		return "JoinAccept"
	case MTypeUnconfirmedDataUp:
		return "UnconfirmedDataUp"
	case MTypeUnconfirmedDataDown:
		return "UnconfirmedDataDown"
	case MTypeConfirmedDataUp:
		return "ConfirmedDataUp"
	case MTypeConfirmedDataDown:
		return "ConfirmedDataDown"
	case MTypeRejoinRequest:
		return "RejoinRequest"
	case MTypeProprietary:
		return "Proprietary"
	default:
		return "Unknown"
	}
}

// IsDataUp reports whether t is an uplink data frame (confirmed or not).
func (t MType) IsDataUp() bool {
	return t == MTypeUnconfirmedDataUp || t == MTypeConfirmedDataUp
}

// IsDataDown reports whether t is a downlink data frame (confirmed or not).
func (t MType) IsDataDown() bool {
	return t == MTypeUnconfirmedDataDown || t == MTypeConfirmedDataDown
}

// IsConfirmed reports whether t requires an ACK.
func (t MType) IsConfirmed() bool {
	return t == MTypeConfirmedDataUp || t == MTypeConfirmedDataDown
}

// samePair reports whether a and b are the confirmed/unconfirmed variants of
// the same direction (used to decide whether flipping MType resets the
// payload).
func (t MType) samePair(other MType) bool {
	if t == other {
		return true
	}
	switch {
	case t.IsDataUp() && other.IsDataUp():
		return true
	case t.IsDataDown() && other.IsDataDown():
		return true
	default:
		return false
	}
}

// Major is the 2-bit protocol-major field in bits 1..0 of the MHDR byte.
type Major byte

// Supported major versions.
const (
	LoRaWANR1 Major = 0
)

const (
	mtypeMask = 0xE0
	rfuMask   = 0x1C
	majorMask = 0x03
)

// MHDR is a view over byte 0 of a message.
type MHDR struct {
	msg *Message
}

// MType returns the message type.
func (h MHDR) MType() MType {
	return MType(GetMasked(h.msg.buf[0], mtypeMask) << 5)
}

// Major returns the major version.
func (h MHDR) Major() Major {
	return Major(GetMasked(h.msg.buf[0], majorMask))
}

// RFU returns the 3 reserved bits.
func (h MHDR) RFU() int {
	return GetMasked(h.msg.buf[0], rfuMask)
}

// IsDataUp reports whether the current MType is an uplink data frame.
func (h MHDR) IsDataUp() bool { return h.MType().IsDataUp() }

// IsDataDown reports whether the current MType is a downlink data frame.
func (h MHDR) IsDataDown() bool { return h.MType().IsDataDown() }

// IsJoinRequest reports whether the current MType is JoinRequest.
func (h MHDR) IsJoinRequest() bool { return h.MType() == MTypeJoinRequest }

// IsJoinAccept reports whether the current MType is JoinAccept.
func (h MHDR) IsJoinAccept() bool { return h.MType() == MTypeJoinAccept }

// IsRejoinRequest reports whether the current MType is RejoinRequest.
func (h MHDR) IsRejoinRequest() bool { return h.MType() == MTypeRejoinRequest }

// IsProprietary reports whether the current MType is Proprietary.
func (h MHDR) IsProprietary() bool { return h.MType() == MTypeProprietary }
