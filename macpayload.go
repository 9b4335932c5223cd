package lorawan

// MacPayloadView is the payload view for data frames (confirmed/unconfirmed,
// up/down): FHDR, optional FPort, FRMPayload and the trailing MIC, all
// computed on demand from the current FHDR size and buffer length so that
// edits to FOptsLen or FRMPayload stay internally consistent.
type MacPayloadView struct {
	msg *Message
}

func (MacPayloadView) isPayload() {}

// fOptsEnd is the buffer offset of the first byte after FHDR/FOpts.
func (p MacPayloadView) fOptsEnd() int {
	return fhdrOffset + p.FHDR().size()
}

// hasPort reports whether a port byte is present: any bytes remain between
// the end of FOpts and the trailing 4-byte MIC.
func (p MacPayloadView) hasPort() bool {
	return len(p.msg.buf)-4-p.fOptsEnd() > 0
}

// Port returns the FPort byte and true, or 0 and false if the frame carries
// no application payload.
func (p MacPayloadView) Port() (uint8, bool) {
	if !p.hasPort() {
		return 0, false
	}
	return p.msg.buf[p.fOptsEnd()], true
}

// SetPort writes the FPort byte, inserting it if the frame previously had
// none. Existing FRMPayload bytes, if any, are preserved.
func (p MacPayloadView) SetPort(port uint8) {
	off := p.fOptsEnd()
	if p.hasPort() {
		p.msg.buf[off] = port
		return
	}
	buf := make([]byte, 0, len(p.msg.buf)+1)
	buf = append(buf, p.msg.buf[:off]...)
	buf = append(buf, port)
	buf = append(buf, p.msg.buf[off:]...)
	p.msg.buf = buf
}

// frmPayloadRange returns the buffer offsets of the (still encrypted)
// FRMPayload, which sits between FPort and the trailing MIC.
func (p MacPayloadView) frmPayloadRange() (start, end int) {
	start = p.fOptsEnd()
	if p.hasPort() {
		start++
	}
	end = len(p.msg.buf) - 4
	if end < start {
		end = start
	}
	return start, end
}

// FRMPayloadEncrypted returns the raw, still-encrypted application payload
// bytes.
func (p MacPayloadView) FRMPayloadEncrypted() []byte {
	s, e := p.frmPayloadRange()
	return append([]byte(nil), p.msg.buf[s:e]...)
}

// SetFRMPayloadEncrypted replaces the raw FRMPayload bytes, adjusting the
// buffer length. The trailing MIC is left untouched and becomes stale; call
// SetMIC (or ComputeMIC+SetMIC) afterwards.
func (p MacPayloadView) SetFRMPayloadEncrypted(data []byte) {
	s, e := p.frmPayloadRange()
	buf := make([]byte, 0, len(p.msg.buf)-(e-s)+len(data))
	buf = append(buf, p.msg.buf[:s]...)
	buf = append(buf, data...)
	buf = append(buf, p.msg.buf[e:]...)
	p.msg.buf = buf
}

// frmPayloadKey picks the key used to (en/de)crypt FRMPayload: NwkSEncKey
// (1.1) or NwkSKey (1.0.2) when FPort is 0, AppSKey otherwise.
func (p MacPayloadView) frmPayloadKey() (AES128Key, error) {
	if p.msg.session == nil {
		return AES128Key{}, ErrMissingKey("session")
	}
	sess := p.msg.session
	port, _ := p.Port()
	if port == 0 {
		if p.msg.version == MACVersion102 {
			if !sess.nwkSKeySet {
				return AES128Key{}, ErrMissingKey("NwkSKey")
			}
			return sess.nwkSKey, nil
		}
		if !sess.nwkSEncKeySet {
			return AES128Key{}, ErrMissingKey("NwkSEncKey")
		}
		return sess.nwkSEncKey, nil
	}
	if !sess.appSKeySet {
		return AES128Key{}, ErrMissingKey("AppSKey")
	}
	return sess.appSKey, nil
}

func (p MacPayloadView) devAddrLE() [4]byte {
	be := p.FHDR().DevAddr()
	return [4]byte{be[3], be[2], be[1], be[0]}
}

// fullFCnt returns the 32-bit frame counter used in MIC/crypto computation:
// the high 16 bits of the session's FCntUp (uplink) or FCntDown (downlink)
// combined with the low 16 bits carried on the wire. Without a session only
// the wire value is used.
func (p MacPayloadView) fullFCnt() uint32 {
	wire := uint32(p.FHDR().FCnt())
	sess := p.msg.session
	if sess == nil {
		return wire
	}
	counter := sess.FCntDown
	if p.msg.isUplink() {
		counter = sess.FCntUp
	}
	return counter&0xFFFF0000 | wire
}

// FRMPayload returns the decrypted application payload (or decrypted MAC
// commands, when FPort is 0).
func (p MacPayloadView) FRMPayload() ([]byte, error) {
	key, err := p.frmPayloadKey()
	if err != nil {
		return nil, err
	}
	return CryptFRMPayload(key, p.msg.isUplink(), p.devAddrLE(), p.fullFCnt(), p.FRMPayloadEncrypted())
}

// SetFRMPayload encrypts plaintext and stores it as the frame's FRMPayload.
func (p MacPayloadView) SetFRMPayload(plaintext []byte) error {
	key, err := p.frmPayloadKey()
	if err != nil {
		return err
	}
	ct, err := CryptFRMPayload(key, p.msg.isUplink(), p.devAddrLE(), p.fullFCnt(), plaintext)
	if err != nil {
		return err
	}
	p.SetFRMPayloadEncrypted(ct)
	return nil
}

// MIC returns the trailing 4-byte message integrity code.
func (p MacPayloadView) MIC() [4]byte {
	var mic [4]byte
	copy(mic[:], p.msg.buf[len(p.msg.buf)-4:])
	return mic
}

// SetMIC overwrites the trailing 4-byte MIC.
func (p MacPayloadView) SetMIC(mic [4]byte) {
	copy(p.msg.buf[len(p.msg.buf)-4:], mic[:])
}

// macPayloadBytes returns mhdr ∥ FHDR ∥ FPort ∥ FRMPayload(encrypted), i.e.
// everything the MIC is computed over, excluding the MIC itself.
func (p MacPayloadView) macPayloadBytes() []byte {
	return p.msg.buf[:len(p.msg.buf)-4]
}

// ComputeMIC computes (without writing) the MIC for the current frame,
// dispatching to the uplink or downlink construction based on MType.
// confFCnt and txDR/txCh are only consulted for LoRaWAN 1.1; callers on
// 1.0.2 may pass zero values.
func (p MacPayloadView) ComputeMIC(confFCnt uint16, txDR, txCh byte) ([4]byte, error) {
	if p.msg.session == nil {
		return [4]byte{}, ErrMissingKey("session")
	}
	sess := p.msg.session
	if !p.FHDR().ACK() || p.msg.version == MACVersion102 {
		confFCnt = 0
	}
	msg := p.macPayloadBytes()
	devAddrLE := p.devAddrLE()
	fcnt := p.fullFCnt()

	if p.msg.isUplink() {
		var fKey, sKey AES128Key
		if p.msg.version == MACVersion11 {
			if !sess.fNwkSIntKeySet {
				return [4]byte{}, ErrMissingKey("FNwkSIntKey")
			}
			if !sess.sNwkSIntKeySet {
				return [4]byte{}, ErrMissingKey("SNwkSIntKey")
			}
			fKey = sess.fNwkSIntKey
			sKey = sess.sNwkSIntKey
		} else {
			if !sess.nwkSKeySet {
				return [4]byte{}, ErrMissingKey("NwkSKey")
			}
			fKey = sess.nwkSKey
			sKey = sess.nwkSKey
		}
		return uplinkDataMIC(p.msg.version, fKey, sKey, devAddrLE, fcnt, confFCnt, txDR, txCh, msg)
	}

	key := sess.nwkSKey
	if p.msg.version == MACVersion11 {
		if !sess.sNwkSIntKeySet {
			return [4]byte{}, ErrMissingKey("SNwkSIntKey")
		}
		key = sess.sNwkSIntKey
	} else if !sess.nwkSKeySet {
		return [4]byte{}, ErrMissingKey("NwkSKey")
	}
	return downlinkDataMIC(key, devAddrLE, fcnt, confFCnt, msg)
}

// VerifyMIC reports whether the frame's stored MIC matches ComputeMIC's
// result.
func (p MacPayloadView) VerifyMIC(confFCnt uint16, txDR, txCh byte) (bool, error) {
	mic, err := p.ComputeMIC(confFCnt, txDR, txCh)
	if err != nil {
		return false, err
	}
	return mic == p.MIC(), nil
}
