package lorawan

// JoinRequestView is the payload view for MTypeJoinRequest: AppEUI/JoinEUI,
// DevEUI, DevNonce and the trailing MIC.
type JoinRequestView struct {
	msg *Message
}

func (JoinRequestView) isPayload() {}

const (
	joinReqAppEUIOffset  = 1
	joinReqDevEUIOffset  = 9
	joinReqNonceOffset   = 17
	joinReqMICOffset     = 19
)

func reverseEUI(b []byte) [8]byte {
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = b[7-i]
	}
	return out
}

// AppEUI returns the 1.0.2 AppEUI (big-endian), read from its little-endian
// wire position.
func (v JoinRequestView) AppEUI() [8]byte {
	return reverseEUI(v.msg.buf[joinReqAppEUIOffset : joinReqAppEUIOffset+8])
}

// SetAppEUI writes a big-endian-presented AppEUI into its wire position.
func (v JoinRequestView) SetAppEUI(eui [8]byte) {
	b := reverseEUI(eui[:])
	copy(v.msg.buf[joinReqAppEUIOffset:joinReqAppEUIOffset+8], b[:])
}

// JoinEUI is the 1.1 name for the same field as AppEUI.
func (v JoinRequestView) JoinEUI() [8]byte     { return v.AppEUI() }
func (v JoinRequestView) SetJoinEUI(e [8]byte) { v.SetAppEUI(e) }

// DevEUI returns the device EUI (big-endian).
func (v JoinRequestView) DevEUI() [8]byte {
	return reverseEUI(v.msg.buf[joinReqDevEUIOffset : joinReqDevEUIOffset+8])
}

// SetDevEUI writes the device EUI.
func (v JoinRequestView) SetDevEUI(eui [8]byte) {
	b := reverseEUI(eui[:])
	copy(v.msg.buf[joinReqDevEUIOffset:joinReqDevEUIOffset+8], b[:])
}

// DevNonce returns the 2-byte device nonce, little-endian on the wire.
func (v JoinRequestView) DevNonce() uint16 {
	n, _ := GetNumber(v.msg.buf, joinReqNonceOffset, 2, true)
	return uint16(n)
}

// SetDevNonce writes the device nonce.
func (v JoinRequestView) SetDevNonce(n uint16) {
	_ = PutNumber(v.msg.buf, joinReqNonceOffset, 2, uint64(n), true)
}

// MIC returns the trailing 4-byte MIC.
func (v JoinRequestView) MIC() [4]byte {
	var mic [4]byte
	copy(mic[:], v.msg.buf[joinReqMICOffset:joinReqMICOffset+4])
	return mic
}

// SetMIC overwrites the trailing 4-byte MIC.
func (v JoinRequestView) SetMIC(mic [4]byte) {
	copy(v.msg.buf[joinReqMICOffset:joinReqMICOffset+4], mic[:])
}

// ComputeMIC computes the join-request MIC: CMAC(key, mhdr ∥ macPayload)[0:4].
// key is AppKey on 1.0.2, NwkKey on 1.1.
func (v JoinRequestView) ComputeMIC() ([4]byte, error) {
	if v.msg.root == nil {
		return [4]byte{}, ErrMissingKey("root keys")
	}
	var key AES128Key
	var err error
	if v.msg.version == MACVersion102 {
		key, err = v.msg.root.AppKey()
	} else {
		key, err = v.msg.root.NwkKey()
	}
	if err != nil {
		return [4]byte{}, err
	}
	macPayload := v.msg.buf[1:joinReqMICOffset]
	return joinMIC(key, v.msg.buf[0], macPayload)
}

// VerifyMIC reports whether the stored MIC matches ComputeMIC's result.
func (v JoinRequestView) VerifyMIC() (bool, error) {
	mic, err := v.ComputeMIC()
	if err != nil {
		return false, err
	}
	return mic == v.MIC(), nil
}

// JoinAcceptView is the payload view for MTypeJoinAccept. The underlying
// buffer is expected to hold the DECRYPTED payload; a frame captured off
// the air is ciphertext and must be passed through Decrypt first, and must
// be passed through Encrypt before it is replayed.
type JoinAcceptView struct {
	msg *Message
}

func (JoinAcceptView) isPayload() {}

const (
	joinAccAppNonceOffset   = 1
	joinAccNetIDOffset      = 4
	joinAccDevAddrOffset    = 7
	joinAccDLSettingsOffset = 11
	joinAccRxDelayOffset    = 12
	joinAccCFListOffset     = 13
)

// cfListLen returns the length of the optional CFList: 16 bytes if present,
// 0 otherwise. A join-accept without CFList is 1(mhdr)+16 bytes; with
// CFList it is 1+32.
func (v JoinAcceptView) cfListLen() int {
	return len(v.msg.buf) - 1 - 16
}

// AppNonce returns the 3-byte join/app nonce (big-endian presentation).
func (v JoinAcceptView) AppNonce() [3]byte {
	b := v.msg.buf[joinAccAppNonceOffset : joinAccAppNonceOffset+3]
	return [3]byte{b[2], b[1], b[0]}
}

// SetAppNonce writes the app/join nonce.
func (v JoinAcceptView) SetAppNonce(n [3]byte) {
	b := v.msg.buf[joinAccAppNonceOffset : joinAccAppNonceOffset+3]
	b[0], b[1], b[2] = n[2], n[1], n[0]
}

// NetID returns the network identifier (big-endian presentation).
func (v JoinAcceptView) NetID() NetID {
	b := v.msg.buf[joinAccNetIDOffset : joinAccNetIDOffset+3]
	return NetID{b[2], b[1], b[0]}
}

// SetNetID writes the network identifier.
func (v JoinAcceptView) SetNetID(n NetID) {
	b := v.msg.buf[joinAccNetIDOffset : joinAccNetIDOffset+3]
	b[0], b[1], b[2] = n[2], n[1], n[0]
}

// DevAddr returns the assigned device address (big-endian presentation).
func (v JoinAcceptView) DevAddr() [4]byte {
	b := v.msg.buf[joinAccDevAddrOffset : joinAccDevAddrOffset+4]
	return [4]byte{b[3], b[2], b[1], b[0]}
}

// SetDevAddr writes the assigned device address.
func (v JoinAcceptView) SetDevAddr(a [4]byte) {
	b := v.msg.buf[joinAccDevAddrOffset : joinAccDevAddrOffset+4]
	b[0], b[1], b[2], b[3] = a[3], a[2], a[1], a[0]
}

func (v JoinAcceptView) dlSettings() byte { return v.msg.buf[joinAccDLSettingsOffset] }
func (v JoinAcceptView) setDLSettings(b byte) {
	v.msg.buf[joinAccDLSettingsOffset] = b
}

// OptNeg reports the 1.1 "optional negotiation" bit: set whenever the
// device and network agreed on LoRaWAN 1.1 semantics during this join.
func (v JoinAcceptView) OptNeg() bool { return GetMasked(v.dlSettings(), 0x80) != 0 }

// SetOptNeg sets the OptNeg bit.
func (v JoinAcceptView) SetOptNeg(b bool) {
	v.setDLSettings(SetMaskedBool(v.dlSettings(), b, 0x80))
}

// RX1DROffset returns the RX1 data-rate offset (bits 6..4 of DLSettings).
func (v JoinAcceptView) RX1DROffset() int { return GetMasked(v.dlSettings(), 0x70) }

// SetRX1DROffset sets the RX1 data-rate offset.
func (v JoinAcceptView) SetRX1DROffset(offset int) {
	v.setDLSettings(SetMasked(v.dlSettings(), offset, 0x70))
}

// RX2DataRate returns the RX2 data rate (bits 3..0 of DLSettings).
func (v JoinAcceptView) RX2DataRate() int { return GetMasked(v.dlSettings(), 0x0F) }

// SetRX2DataRate sets the RX2 data rate.
func (v JoinAcceptView) SetRX2DataRate(dr int) {
	v.setDLSettings(SetMasked(v.dlSettings(), dr, 0x0F))
}

// RxDelay returns the RX1 delay in seconds (0 means 1s, same as elsewhere).
func (v JoinAcceptView) RxDelay() uint8 { return v.msg.buf[joinAccRxDelayOffset] }

// SetRxDelay sets the RX1 delay.
func (v JoinAcceptView) SetRxDelay(d uint8) { v.msg.buf[joinAccRxDelayOffset] = d }

// CFList returns the optional 16-byte channel-frequency list, or nil if
// absent.
func (v JoinAcceptView) CFList() []byte {
	if v.cfListLen() == 0 {
		return nil
	}
	return append([]byte(nil), v.msg.buf[joinAccCFListOffset:joinAccCFListOffset+16]...)
}

// SetCFList inserts or replaces the optional CFList. Passing nil removes it.
func (v JoinAcceptView) SetCFList(cf []byte) error {
	if cf != nil && len(cf) != 16 {
		return ErrLengthMismatch("CFList must be 16 bytes")
	}
	micOffset := joinAccCFListOffset + v.cfListLen()
	mic := append([]byte(nil), v.msg.buf[micOffset:micOffset+4]...)
	buf := make([]byte, 0, joinAccCFListOffset+len(cf)+4)
	buf = append(buf, v.msg.buf[:joinAccCFListOffset]...)
	buf = append(buf, cf...)
	buf = append(buf, mic...)
	v.msg.buf = buf
	return nil
}

// MIC returns the trailing 4-byte MIC.
func (v JoinAcceptView) MIC() [4]byte {
	var mic [4]byte
	off := len(v.msg.buf) - 4
	copy(mic[:], v.msg.buf[off:off+4])
	return mic
}

// SetMIC overwrites the trailing 4-byte MIC.
func (v JoinAcceptView) SetMIC(mic [4]byte) {
	off := len(v.msg.buf) - 4
	copy(v.msg.buf[off:off+4], mic[:])
}

// ComputeMIC computes the join-accept MIC. joinReqType/joinEUI/devNonce are
// only consulted when OptNeg is set (1.1 semantics); callers answering a
// 1.0.2 join-request may pass zero values.
func (v JoinAcceptView) ComputeMIC(joinReqType byte, joinEUI [8]byte, devNonce uint16) ([4]byte, error) {
	if v.msg.root == nil {
		return [4]byte{}, ErrMissingKey("root keys")
	}
	var key AES128Key
	var err error
	if v.msg.version == MACVersion102 {
		key, err = v.msg.root.AppKey()
	} else {
		key, err = v.msg.root.NwkKey()
	}
	if err != nil {
		return [4]byte{}, err
	}
	micOffset := len(v.msg.buf) - 4
	macPayload := v.msg.buf[1:micOffset]
	var nonceBytes [2]byte
	nonceBytes[0] = byte(devNonce)
	nonceBytes[1] = byte(devNonce >> 8)
	return downlinkJoinMIC(key, v.OptNeg(), joinReqType, joinEUI, nonceBytes, v.msg.buf[0], macPayload)
}

// Decrypt decrypts the ciphertext currently stored in the buffer's trailer
// (payload ∥ MIC) in place, so that field accessors see plaintext.
func (v JoinAcceptView) Decrypt(key AES128Key) error {
	pt, err := DecryptJoinAcceptPayload(key, v.msg.buf[1:])
	if err != nil {
		return err
	}
	copy(v.msg.buf[1:], pt)
	return nil
}

// Encrypt encrypts the plaintext currently stored in the buffer's trailer in
// place, turning it back into the wire representation.
func (v JoinAcceptView) Encrypt(key AES128Key) error {
	ct, err := EncryptJoinAcceptPayload(key, v.msg.buf[1:])
	if err != nil {
		return err
	}
	copy(v.msg.buf[1:], ct)
	return nil
}
