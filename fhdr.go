package lorawan

const (
	fctrlADRMask              = 0x80
	fctrlADRACKReqMask        = 0x40 // uplink only; RFU on downlink
	fctrlACKMask              = 0x20
	fctrlClassBOrFPendingMask = 0x10 // ClassB on uplink, FPending on downlink
	fctrlFOptsLenMask         = 0x0F
)

// fhdrOffset is the byte offset of the FHDR within the full message buffer
// (byte 0 is MHDR).
const fhdrOffset = 1

// FHDRView is a mutable view over the frame header of a data-frame message.
type FHDRView struct {
	msg *Message
}

// FHDR returns the FHDR view of a MacPayloadView.
func (p MacPayloadView) FHDR() FHDRView {
	return FHDRView{msg: p.msg}
}

// DevAddr returns the device address, presented big-endian, as read from
// the 4 little-endian wire bytes at FHDR offset 0.
func (f FHDRView) DevAddr() [4]byte {
	b := f.msg.buf[fhdrOffset : fhdrOffset+4]
	return [4]byte{b[3], b[2], b[1], b[0]}
}

// SetDevAddr writes a big-endian-presented address into its little-endian
// wire position.
func (f FHDRView) SetDevAddr(addr [4]byte) {
	b := f.msg.buf[fhdrOffset : fhdrOffset+4]
	b[0], b[1], b[2], b[3] = addr[3], addr[2], addr[1], addr[0]
}

func (f FHDRView) fctrl() byte {
	return f.msg.buf[fhdrOffset+4]
}

func (f FHDRView) setFctrl(v byte) {
	f.msg.buf[fhdrOffset+4] = v
}

// ADR reports the ADR bit.
func (f FHDRView) ADR() bool { return GetMasked(f.fctrl(), fctrlADRMask) != 0 }

// SetADR sets the ADR bit.
func (f FHDRView) SetADR(v bool) { f.setFctrl(SetMaskedBool(f.fctrl(), v, fctrlADRMask)) }

// ADRACKReq reports the ADRACKReq bit (uplink only; meaningless downlink).
func (f FHDRView) ADRACKReq() bool { return GetMasked(f.fctrl(), fctrlADRACKReqMask) != 0 }

// SetADRACKReq sets the ADRACKReq bit.
func (f FHDRView) SetADRACKReq(v bool) {
	f.setFctrl(SetMaskedBool(f.fctrl(), v, fctrlADRACKReqMask))
}

// ACK reports the ACK bit.
func (f FHDRView) ACK() bool { return GetMasked(f.fctrl(), fctrlACKMask) != 0 }

// SetACK sets the ACK bit.
func (f FHDRView) SetACK(v bool) { f.setFctrl(SetMaskedBool(f.fctrl(), v, fctrlACKMask)) }

// ClassB reports the ClassB bit (uplink only).
func (f FHDRView) ClassB() bool { return GetMasked(f.fctrl(), fctrlClassBOrFPendingMask) != 0 }

// SetClassB sets the ClassB bit.
func (f FHDRView) SetClassB(v bool) {
	f.setFctrl(SetMaskedBool(f.fctrl(), v, fctrlClassBOrFPendingMask))
}

// FPending reports the FPending bit (downlink only).
func (f FHDRView) FPending() bool { return GetMasked(f.fctrl(), fctrlClassBOrFPendingMask) != 0 }

// SetFPending sets the FPending bit.
func (f FHDRView) SetFPending(v bool) {
	f.setFctrl(SetMaskedBool(f.fctrl(), v, fctrlClassBOrFPendingMask))
}

// FOptsLen returns the length of the FOpts field, as encoded in FCtrl.
func (f FHDRView) FOptsLen() int {
	return GetMasked(f.fctrl(), fctrlFOptsLenMask)
}

// FCnt returns the low 16 bits of the frame counter, little-endian on the
// wire.
func (f FHDRView) FCnt() uint16 {
	n, _ := GetNumber(f.msg.buf, fhdrOffset+5, 2, true)
	return uint16(n)
}

// SetFCnt writes the low 16 bits of the frame counter.
func (f FHDRView) SetFCnt(v uint16) {
	_ = PutNumber(f.msg.buf, fhdrOffset+5, 2, uint64(v), true)
}

// FOpts returns the raw MAC-command bytes carried in the FHDR.
func (f FHDRView) FOpts() []byte {
	n := f.FOptsLen()
	start := fhdrOffset + 7
	return append([]byte(nil), f.msg.buf[start:start+n]...)
}

// FOptsCommands parses FOpts into a list of MAC commands, per the (CID,
// direction) registry. Parsing stops silently at the first unknown CID or
// truncated trailing command.
func (f FHDRView) FOptsCommands() []MACCommand {
	return parseMACCommands(f.FOpts(), f.msg.isUplink())
}

// size returns the total byte length of the FHDR (DevAddr+FCtrl+FCnt+FOpts).
func (f FHDRView) size() int {
	return 7 + f.FOptsLen()
}
