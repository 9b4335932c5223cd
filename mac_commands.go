package lorawan

import (
	"sync"
)

// CID identifies a MAC command. Req and Ans share the same numeric value;
// which one applies is determined by the direction of the carrying frame.
type CID byte

// MAC commands in scope: LinkCheck, LinkADR, DutyCycle, RXParamSetup,
// DevStatus, NewChannel, RXTimingSetup, TXParamSetup, DLChannel.
const (
	CIDLinkCheck     CID = 0x02
	CIDLinkADR       CID = 0x03
	CIDDutyCycle     CID = 0x04
	CIDRXParamSetup  CID = 0x05
	CIDDevStatus     CID = 0x06
	CIDNewChannel    CID = 0x07
	CIDRXTimingSetup CID = 0x08
	CIDTXParamSetup  CID = 0x09
	CIDDLChannel     CID = 0x0A
)

func (c CID) String() string {
	switch c {
	case CIDLinkCheck:
		return "LinkCheck"
	case CIDLinkADR:
		return "LinkADR"
	case CIDDutyCycle:
		return "DutyCycle"
	case CIDRXParamSetup:
		return "RXParamSetup"
	case CIDDevStatus:
		return "DevStatus"
	case CIDNewChannel:
		return "NewChannel"
	case CIDRXTimingSetup:
		return "RXTimingSetup"
	case CIDTXParamSetup:
		return "TXParamSetup"
	case CIDDLChannel:
		return "DLChannel"
	default:
		if c >= 0x80 {
			return "Proprietary"
		}
		return "Unknown"
	}
}

// macCommandInfo describes one (CID, direction) registry entry: the fixed
// payload length (excluding the CID byte) and a constructor for its typed
// accessor.
type macCommandInfo struct {
	size    int
	payload func() MACCommandPayload
}

var macCommandMutex sync.RWMutex

// registry maps uplink (true) or downlink (false) to CID to its info. Parsing
// walks the FOpts/port-0 payload one command at a time; a CID absent from
// the registry for the frame's direction stops parsing silently.
var macCommandRegistry = map[bool]map[CID]macCommandInfo{
	// uplink: *Ans payloads (device -> network), plus LinkCheckReq (empty)
	true: {
		CIDLinkCheck:     {0, func() MACCommandPayload { return &emptyPayload{} }},
		CIDLinkADR:       {1, func() MACCommandPayload { return &LinkADRAnsPayload{} }},
		CIDDutyCycle:     {0, func() MACCommandPayload { return &emptyPayload{} }},
		CIDRXParamSetup:  {1, func() MACCommandPayload { return &RXParamSetupAnsPayload{} }},
		CIDDevStatus:     {2, func() MACCommandPayload { return &DevStatusAnsPayload{} }},
		CIDNewChannel:    {1, func() MACCommandPayload { return &NewChannelAnsPayload{} }},
		CIDRXTimingSetup: {0, func() MACCommandPayload { return &emptyPayload{} }},
		CIDTXParamSetup:  {0, func() MACCommandPayload { return &emptyPayload{} }},
		CIDDLChannel:     {1, func() MACCommandPayload { return &DLChannelAnsPayload{} }},
	},
	// downlink: *Req payloads (network -> device), plus LinkCheckAns (2 B)
	false: {
		CIDLinkCheck:     {2, func() MACCommandPayload { return &LinkCheckAnsPayload{} }},
		CIDLinkADR:       {4, func() MACCommandPayload { return &LinkADRReqPayload{} }},
		CIDDutyCycle:     {1, func() MACCommandPayload { return &DutyCycleReqPayload{} }},
		CIDRXParamSetup:  {4, func() MACCommandPayload { return &RXParamSetupReqPayload{} }},
		CIDDevStatus:     {0, func() MACCommandPayload { return &emptyPayload{} }},
		CIDNewChannel:    {5, func() MACCommandPayload { return &NewChannelReqPayload{} }},
		CIDRXTimingSetup: {1, func() MACCommandPayload { return &RXTimingSetupReqPayload{} }},
		CIDTXParamSetup:  {1, func() MACCommandPayload { return &TXParamSetupReqPayload{} }},
		CIDDLChannel:     {4, func() MACCommandPayload { return &DLChannelReqPayload{} }},
	},
}

// RegisterProprietaryMACCommand adds a proprietary (CID 0x80-0xFF) command
// to the registry, for the given direction only.
func RegisterProprietaryMACCommand(uplink bool, cid CID, payloadSize int) error {
	if cid < 0x80 {
		return ErrOutOfRange("proprietary CID must be in 0x80..0xFF")
	}
	macCommandMutex.Lock()
	defer macCommandMutex.Unlock()
	macCommandRegistry[uplink][cid] = macCommandInfo{
		size:    payloadSize,
		payload: func() MACCommandPayload { return &ProprietaryMACCommandPayload{} },
	}
	return nil
}

// MACCommandPayload is implemented by every MAC command's typed accessor.
type MACCommandPayload interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// MACCommand pairs a CID with its parsed payload.
type MACCommand struct {
	CID     CID
	Payload MACCommandPayload
}

// parseMACCommands walks data (FOpts bytes, or a port-0 FRMPayload) one
// command at a time. It stops silently — returning what it parsed so far —
// at the first unknown CID or the first command whose declared length
// exceeds the remaining bytes, matching device behaviour on a malformed
// trailing command.
func parseMACCommands(data []byte, uplink bool) []MACCommand {
	macCommandMutex.RLock()
	defer macCommandMutex.RUnlock()

	var out []MACCommand
	registry := macCommandRegistry[uplink]
	for len(data) > 0 {
		cid := CID(data[0])
		info, ok := registry[cid]
		if !ok {
			return out
		}
		if len(data)-1 < info.size {
			return out
		}
		p := info.payload()
		if err := p.UnmarshalBinary(data[1 : 1+info.size]); err != nil {
			return out
		}
		out = append(out, MACCommand{CID: cid, Payload: p})
		data = data[1+info.size:]
	}
	return out
}

type emptyPayload struct{}

func (emptyPayload) MarshalBinary() ([]byte, error)  { return nil, nil }
func (*emptyPayload) UnmarshalBinary(_ []byte) error { return nil }

// ProprietaryMACCommandPayload carries opaque bytes for a registered
// proprietary CID.
type ProprietaryMACCommandPayload struct {
	Bytes []byte
}

func (p ProprietaryMACCommandPayload) MarshalBinary() ([]byte, error) { return p.Bytes, nil }
func (p *ProprietaryMACCommandPayload) UnmarshalBinary(data []byte) error {
	p.Bytes = append([]byte(nil), data...)
	return nil
}

// LinkCheckAnsPayload reports link margin and gateway count.
type LinkCheckAnsPayload struct {
	Margin uint8
	GwCnt  uint8
}

func (p LinkCheckAnsPayload) MarshalBinary() ([]byte, error) { return []byte{p.Margin, p.GwCnt}, nil }
func (p *LinkCheckAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return ErrLengthMismatch("LinkCheckAns expects 2 bytes")
	}
	p.Margin, p.GwCnt = data[0], data[1]
	return nil
}

// ChMask is a 16-channel usability bitmask, channel 1 at bit 0.
type ChMask [16]bool

func (m ChMask) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2)
	for i := 0; i < 16; i++ {
		if m[i] {
			b[i/8] |= 1 << uint(i%8)
		}
	}
	return b, nil
}

func (m *ChMask) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return ErrLengthMismatch("ChMask expects 2 bytes")
	}
	for i, b := range data {
		for j := 0; j < 8; j++ {
			if b&(1<<uint(j)) != 0 {
				m[i*8+j] = true
			}
		}
	}
	return nil
}

// LinkADRReqPayload requests a new data rate, TX power and channel mask.
type LinkADRReqPayload struct {
	DataRate   int
	TXPower    int
	ChMask     ChMask
	ChMaskCntl int
	NbTrans    int
}

func (p LinkADRReqPayload) MarshalBinary() ([]byte, error) {
	if p.DataRate < 0 || p.DataRate > 15 {
		return nil, ErrOutOfRange("LinkADRReq.DataRate must be 0..15")
	}
	if p.TXPower < 0 || p.TXPower > 15 {
		return nil, ErrOutOfRange("LinkADRReq.TXPower must be 0..15")
	}
	if p.NbTrans < 0 || p.NbTrans > 15 {
		return nil, ErrOutOfRange("LinkADRReq.NbTrans must be 0..15")
	}
	if p.ChMaskCntl < 0 || p.ChMaskCntl > 7 {
		return nil, ErrOutOfRange("LinkADRReq.ChMaskCntl must be 0..7")
	}
	b := make([]byte, 4)
	b[0] = SetMasked(byte(p.TXPower), p.DataRate, 0xF0)
	cm, _ := p.ChMask.MarshalBinary()
	copy(b[1:3], cm)
	b[3] = SetMasked(byte(p.NbTrans), p.ChMaskCntl, 0x70)
	return b, nil
}

func (p *LinkADRReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return ErrLengthMismatch("LinkADRReq expects 4 bytes")
	}
	p.DataRate = GetMasked(data[0], 0xF0)
	p.TXPower = GetMasked(data[0], 0x0F)
	if err := p.ChMask.UnmarshalBinary(data[1:3]); err != nil {
		return err
	}
	p.ChMaskCntl = GetMasked(data[3], 0x70)
	p.NbTrans = GetMasked(data[3], 0x0F)
	return nil
}

// LinkADRAnsPayload acknowledges a LinkADRReq.
type LinkADRAnsPayload struct {
	ChannelMaskACK bool
	DataRateACK    bool
	PowerACK       bool
}

func (p LinkADRAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	b = SetMaskedBool(b, p.ChannelMaskACK, 0x01)
	b = SetMaskedBool(b, p.DataRateACK, 0x02)
	b = SetMaskedBool(b, p.PowerACK, 0x04)
	return []byte{b}, nil
}

func (p *LinkADRAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("LinkADRAns expects 1 byte")
	}
	p.ChannelMaskACK = GetMasked(data[0], 0x01) != 0
	p.DataRateACK = GetMasked(data[0], 0x02) != 0
	p.PowerACK = GetMasked(data[0], 0x04) != 0
	return nil
}

// DutyCycleReqPayload restricts the maximum aggregated duty cycle;
// MaxDCycle in 0..15 (2^-MaxDCycle), or 255 for no limit.
type DutyCycleReqPayload struct {
	MaxDCycle uint8
}

func (p DutyCycleReqPayload) MarshalBinary() ([]byte, error) {
	if p.MaxDCycle > 15 && p.MaxDCycle != 255 {
		return nil, ErrOutOfRange("DutyCycleReq.MaxDCycle must be 0..15 or 255")
	}
	return []byte{p.MaxDCycle}, nil
}

func (p *DutyCycleReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("DutyCycleReq expects 1 byte")
	}
	p.MaxDCycle = data[0]
	return nil
}

// RXParamSetupReqPayload reconfigures RX1 offset, RX2 data rate and
// frequency.
type RXParamSetupReqPayload struct {
	RX1DROffset int
	RX2DataRate int
	Frequency   uint32
}

func (p RXParamSetupReqPayload) MarshalBinary() ([]byte, error) {
	if p.RX1DROffset < 0 || p.RX1DROffset > 7 {
		return nil, ErrOutOfRange("RXParamSetupReq.RX1DROffset must be 0..7")
	}
	if p.RX2DataRate < 0 || p.RX2DataRate > 15 {
		return nil, ErrOutOfRange("RXParamSetupReq.RX2DataRate must be 0..15")
	}
	freq, err := FreqToBytes(p.Frequency)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4)
	b[0] = SetMasked(byte(p.RX2DataRate), p.RX1DROffset, 0x70)
	copy(b[1:4], freq[:])
	return b, nil
}

func (p *RXParamSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return ErrLengthMismatch("RXParamSetupReq expects 4 bytes")
	}
	p.RX1DROffset = GetMasked(data[0], 0x70)
	p.RX2DataRate = GetMasked(data[0], 0x0F)
	var freq [3]byte
	copy(freq[:], data[1:4])
	p.Frequency = BytesToFreq(freq)
	return nil
}

// RXParamSetupAnsPayload acknowledges an RXParamSetupReq.
type RXParamSetupAnsPayload struct {
	ChannelACK     bool
	RX2DataRateACK bool
	RX1DROffsetACK bool
}

func (p RXParamSetupAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	b = SetMaskedBool(b, p.ChannelACK, 0x01)
	b = SetMaskedBool(b, p.RX2DataRateACK, 0x02)
	b = SetMaskedBool(b, p.RX1DROffsetACK, 0x04)
	return []byte{b}, nil
}

func (p *RXParamSetupAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("RXParamSetupAns expects 1 byte")
	}
	p.ChannelACK = GetMasked(data[0], 0x01) != 0
	p.RX2DataRateACK = GetMasked(data[0], 0x02) != 0
	p.RX1DROffsetACK = GetMasked(data[0], 0x04) != 0
	return nil
}

// DevStatusAnsPayload reports device battery level and downlink SNR margin.
type DevStatusAnsPayload struct {
	Battery uint8
	Margin  int8 // -32..31
}

func (p DevStatusAnsPayload) MarshalBinary() ([]byte, error) {
	if p.Margin < -32 || p.Margin > 31 {
		return nil, ErrOutOfRange("DevStatusAns.Margin must be -32..31")
	}
	m := p.Margin
	if m < 0 {
		return []byte{p.Battery, uint8(64 + m)}, nil
	}
	return []byte{p.Battery, uint8(m)}, nil
}

func (p *DevStatusAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 2 {
		return ErrLengthMismatch("DevStatusAns expects 2 bytes")
	}
	p.Battery = data[0]
	if data[1] > 31 {
		p.Margin = int8(data[1]) - 64
	} else {
		p.Margin = int8(data[1])
	}
	return nil
}

// NewChannelReqPayload adds or modifies an uplink channel.
type NewChannelReqPayload struct {
	ChIndex uint8
	Freq    uint32
	MaxDR   int
	MinDR   int
}

func (p NewChannelReqPayload) MarshalBinary() ([]byte, error) {
	if p.MaxDR < 0 || p.MaxDR > 15 || p.MinDR < 0 || p.MinDR > 15 {
		return nil, ErrOutOfRange("NewChannelReq.MinDR/MaxDR must be 0..15")
	}
	freq, err := FreqToBytes(p.Freq)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 5)
	b[0] = p.ChIndex
	copy(b[1:4], freq[:])
	b[4] = SetMasked(byte(p.MinDR), p.MaxDR, 0xF0)
	return b, nil
}

func (p *NewChannelReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 5 {
		return ErrLengthMismatch("NewChannelReq expects 5 bytes")
	}
	p.ChIndex = data[0]
	var freq [3]byte
	copy(freq[:], data[1:4])
	p.Freq = BytesToFreq(freq)
	p.MinDR = GetMasked(data[4], 0x0F)
	p.MaxDR = GetMasked(data[4], 0xF0)
	return nil
}

// NewChannelAnsPayload acknowledges a NewChannelReq.
type NewChannelAnsPayload struct {
	ChannelFrequencyOK bool
	DataRateRangeOK    bool
}

func (p NewChannelAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	b = SetMaskedBool(b, p.ChannelFrequencyOK, 0x01)
	b = SetMaskedBool(b, p.DataRateRangeOK, 0x02)
	return []byte{b}, nil
}

func (p *NewChannelAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("NewChannelAns expects 1 byte")
	}
	p.ChannelFrequencyOK = GetMasked(data[0], 0x01) != 0
	p.DataRateRangeOK = GetMasked(data[0], 0x02) != 0
	return nil
}

// RXTimingSetupReqPayload sets the RX1 delay, in seconds (0 means 1s).
type RXTimingSetupReqPayload struct {
	Delay uint8
}

func (p RXTimingSetupReqPayload) MarshalBinary() ([]byte, error) {
	if p.Delay > 15 {
		return nil, ErrOutOfRange("RXTimingSetupReq.Delay must be 0..15")
	}
	return []byte{p.Delay}, nil
}

func (p *RXTimingSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("RXTimingSetupReq expects 1 byte")
	}
	p.Delay = data[0]
	return nil
}

// TXParamSetupReqPayload sets dwell-time limits and maximum EIRP (used by
// regions with duty-cycle/dwell-time restrictions).
type TXParamSetupReqPayload struct {
	DownlinkDwellTime400ms bool
	UplinkDwellTime400ms   bool
	MaxEIRP                uint8
}

// MarshalBinary encodes MaxEIRP as the coded table index closest to it
// without exceeding it, via GetTXParamSetupEIRPIndex.
func (p TXParamSetupReqPayload) MarshalBinary() ([]byte, error) {
	b := GetTXParamSetupEIRPIndex(float32(p.MaxEIRP))
	b = SetMaskedBool(b, p.UplinkDwellTime400ms, 0x10)
	b = SetMaskedBool(b, p.DownlinkDwellTime400ms, 0x20)
	return []byte{b}, nil
}

func (p *TXParamSetupReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("TXParamSetupReq expects 1 byte")
	}
	p.UplinkDwellTime400ms = GetMasked(data[0], 0x10) != 0
	p.DownlinkDwellTime400ms = GetMasked(data[0], 0x20) != 0
	eirp, err := GetTXParamSetupEIRP(uint8(GetMasked(data[0], 0x0F)))
	if err != nil {
		return err
	}
	p.MaxEIRP = uint8(eirp)
	return nil
}

// DLChannelReqPayload moves a downlink channel's frequency.
type DLChannelReqPayload struct {
	ChIndex uint8
	Freq    uint32
}

func (p DLChannelReqPayload) MarshalBinary() ([]byte, error) {
	freq, err := FreqToBytes(p.Freq)
	if err != nil {
		return nil, err
	}
	return []byte{p.ChIndex, freq[0], freq[1], freq[2]}, nil
}

func (p *DLChannelReqPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 4 {
		return ErrLengthMismatch("DLChannelReq expects 4 bytes")
	}
	p.ChIndex = data[0]
	var freq [3]byte
	copy(freq[:], data[1:4])
	p.Freq = BytesToFreq(freq)
	return nil
}

// DLChannelAnsPayload acknowledges a DLChannelReq.
type DLChannelAnsPayload struct {
	UplinkFrequencyExists bool
	ChannelFrequencyOK    bool
}

func (p DLChannelAnsPayload) MarshalBinary() ([]byte, error) {
	var b byte
	b = SetMaskedBool(b, p.ChannelFrequencyOK, 0x01)
	b = SetMaskedBool(b, p.UplinkFrequencyExists, 0x02)
	return []byte{b}, nil
}

func (p *DLChannelAnsPayload) UnmarshalBinary(data []byte) error {
	if len(data) != 1 {
		return ErrLengthMismatch("DLChannelAns expects 1 byte")
	}
	p.ChannelFrequencyOK = GetMasked(data[0], 0x01) != 0
	p.UplinkFrequencyExists = GetMasked(data[0], 0x02) != 0
	return nil
}
