package lorawan

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/jacobsa/crypto/cmac"
)

// AES128CMAC computes the full 16-byte AES-CMAC of data under key.
func AES128CMAC(key AES128Key, data []byte) ([16]byte, error) {
	var out [16]byte
	hash, err := cmac.New(key[:])
	if err != nil {
		return out, err
	}
	if _, err := hash.Write(data); err != nil {
		return out, err
	}
	sum := hash.Sum(nil)
	copy(out[:], sum)
	return out, nil
}

// direction byte used throughout the B0/B1/A_i block constructions: 0 for
// uplink, 1 for downlink.
func dirByte(uplink bool) byte {
	if uplink {
		return 0
	}
	return 1
}

// joinMIC computes the 4-byte CMAC truncation used by join-request and
// rejoin-request: CMAC(key, mhdr ∥ macPayload)[0:4].
func joinMIC(key AES128Key, mhdrByte byte, macPayload []byte) ([4]byte, error) {
	var mic [4]byte
	data := make([]byte, 0, 1+len(macPayload))
	data = append(data, mhdrByte)
	data = append(data, macPayload...)
	full, err := AES128CMAC(key, data)
	if err != nil {
		return mic, err
	}
	copy(mic[:], full[0:4])
	return mic, nil
}

// downlinkJoinMIC computes the join-accept MIC. When optNeg is set (1.1
// join-accept answering an OTAA join or a rejoin of type 0/2), the MIC
// additionally covers joinReqType ∥ joinEUI(LE) ∥ devNonce(LE) ahead of the
// MHDR.
func downlinkJoinMIC(key AES128Key, optNeg bool, joinReqType byte, joinEUI [8]byte, devNonce [2]byte, mhdrByte byte, macPayload []byte) ([4]byte, error) {
	var mic [4]byte
	var data []byte
	if optNeg {
		data = append(data, joinReqType)
		data = append(data, reversed(joinEUI[:])...)
		data = append(data, reversed(devNonce[:])...)
	}
	data = append(data, mhdrByte)
	data = append(data, macPayload...)
	full, err := AES128CMAC(key, data)
	if err != nil {
		return mic, err
	}
	copy(mic[:], full[0:4])
	return mic, nil
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// uplinkDataMIC computes the data-frame uplink MIC for both protocol
// versions, per the LoRaWAN 1.1 B0/B1 construction.
//
// msg is mhdr ∥ macPayloadWithoutMIC. devAddr is presented little-endian
// (as transmitted). confFCnt is the FCnt of the most recently confirmed
// downlink, zeroed by the caller when the frame carries no ACK.
func uplinkDataMIC(version MACVersion, fNwkSIntKey, sNwkSIntKey AES128Key, devAddrLE [4]byte, fcnt32 uint32, confFCnt uint16, txDR, txCh byte, msg []byte) ([4]byte, error) {
	var mic [4]byte

	b0 := make([]byte, 16)
	b1 := make([]byte, 16)
	b0[0] = 0x49
	b1[0] = 0x49

	copy(b0[6:10], devAddrLE[:])
	copy(b1[6:10], devAddrLE[:])
	binary.LittleEndian.PutUint32(b0[10:14], fcnt32)
	binary.LittleEndian.PutUint32(b1[10:14], fcnt32)
	b0[15] = byte(len(msg))
	b1[15] = byte(len(msg))

	binary.LittleEndian.PutUint16(b1[1:3], confFCnt)
	b1[3] = txDR
	b1[4] = txCh

	cmacS, err := AES128CMAC(sNwkSIntKey, append(b1, msg...))
	if err != nil {
		return mic, err
	}
	cmacF, err := AES128CMAC(fNwkSIntKey, append(b0, msg...))
	if err != nil {
		return mic, err
	}

	if version == MACVersion102 {
		copy(mic[:], cmacF[0:4])
	} else {
		copy(mic[0:2], cmacS[0:2])
		copy(mic[2:4], cmacF[0:2])
	}
	return mic, nil
}

// downlinkDataMIC computes the data-frame downlink MIC.
func downlinkDataMIC(sNwkSIntKey AES128Key, devAddrLE [4]byte, fcnt32 uint32, confFCnt uint16, msg []byte) ([4]byte, error) {
	var mic [4]byte

	b0 := make([]byte, 16)
	b0[0] = 0x49
	binary.LittleEndian.PutUint16(b0[1:3], confFCnt)
	b0[5] = 0x01
	copy(b0[6:10], devAddrLE[:])
	binary.LittleEndian.PutUint32(b0[10:14], fcnt32)
	b0[15] = byte(len(msg))

	full, err := AES128CMAC(sNwkSIntKey, append(b0, msg...))
	if err != nil {
		return mic, err
	}
	copy(mic[:], full[0:4])
	return mic, nil
}

// aBlock derives the AES-CTR-style keystream block A_i used to
// (en/de)crypt FRMPayload or FOpts.
func aBlock(uplink bool, devAddrLE [4]byte, fcnt32 uint32, counterByte byte, aFCntDown bool, forFOpts bool) []byte {
	a := make([]byte, 16)
	a[0] = 0x01
	if forFOpts {
		if aFCntDown {
			a[4] = 0x02
		} else {
			a[4] = 0x01
		}
	}
	a[5] = dirByte(uplink)
	copy(a[6:10], devAddrLE[:])
	binary.LittleEndian.PutUint32(a[10:14], fcnt32)
	a[15] = counterByte
	return a
}

// CryptFRMPayload encrypts or decrypts data (the operation is its own
// inverse) using the per-16-byte-block keystream and returns the result in
// a new slice; data itself is not modified. data is padded to a multiple of
// 16 bytes internally; the returned slice has the original length.
func CryptFRMPayload(key AES128Key, uplink bool, devAddrLE [4]byte, fcnt32 uint32, data []byte) ([]byte, error) {
	cipher, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	n := len(data)
	padded := make([]byte, n)
	copy(padded, data)
	if n%16 != 0 {
		padded = append(padded, make([]byte, 16-n%16)...)
	}

	out := make([]byte, len(padded))
	s := make([]byte, 16)
	for i := 0; i < len(padded)/16; i++ {
		a := aBlock(uplink, devAddrLE, fcnt32, byte(i+1), false, false)
		cipher.Encrypt(s, a)
		for j := 0; j < 16; j++ {
			out[i*16+j] = padded[i*16+j] ^ s[j]
		}
	}
	return out[0:n], nil
}

// CryptFOpts encrypts or decrypts the FOpts mac-command bytes and returns
// the result in a new slice, using a single keystream block (FOpts never
// exceeds 15 bytes).
func CryptFOpts(nwkSEncKey AES128Key, aFCntDown, uplink bool, devAddrLE [4]byte, fcnt32 uint32, data []byte) ([]byte, error) {
	if len(data) > 15 {
		return nil, ErrLengthMismatch("FOpts exceeds 15 bytes")
	}
	cipher, err := aes.NewCipher(nwkSEncKey[:])
	if err != nil {
		return nil, err
	}
	a := aBlock(uplink, devAddrLE, fcnt32, 0x01, aFCntDown, true)
	s := make([]byte, 16)
	cipher.Encrypt(s, a)

	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ s[i]
	}
	return out, nil
}

// EncryptJoinAcceptPayload ECB-encrypts a join-accept plaintext (payload ∥
// MIC, already a multiple of 16 bytes) the way the network server does: with
// the block cipher's Decrypt direction, so that a compliant device can
// recover it with a plain Encrypt.
func EncryptJoinAcceptPayload(key AES128Key, plaintext []byte) ([]byte, error) {
	if len(plaintext)%16 != 0 {
		return nil, ErrLengthMismatch("join-accept plaintext must be a multiple of 16 bytes")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext)/16; i++ {
		o := i * 16
		block.Decrypt(out[o:o+16], plaintext[o:o+16])
	}
	return out, nil
}

// DecryptJoinAcceptPayload is the inverse of EncryptJoinAcceptPayload, as
// performed by the device: a plain block Encrypt over the wire bytes.
func DecryptJoinAcceptPayload(key AES128Key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%16 != 0 {
		return nil, ErrLengthMismatch("join-accept ciphertext must be a multiple of 16 bytes")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext)/16; i++ {
		o := i * 16
		block.Encrypt(out[o:o+16], ciphertext[o:o+16])
	}
	return out, nil
}

// CRC16XModem computes the CRC-16/XMODEM checksum (poly 0x1021, init 0,
// no reflection) used by Class-B beacons.
func CRC16XModem(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
