package modem

import (
	"fmt"

	"github.com/pkg/errors"

	lorawan "github.com/chirpotle-go/wormhole"
)

// SnifferAction selects what the companion does with a sniffer match.
type SnifferAction int

// Supported sniffer actions, see spec §6.1.
const (
	SnifferActionNone SnifferAction = iota
	SnifferActionInternal
	SnifferActionGpio
	SnifferActionUdp
)

// JammerTrigger selects how the remote-controlled jammer is armed.
type JammerTrigger int

// Supported jammer triggers.
const (
	JammerTriggerGpio JammerTrigger = 2
	JammerTriggerUdp  JammerTrigger = 3
)

// Channel mirrors the companion's lora_channel struct.
type Channel struct {
	Frequency       uint32
	Bandwidth       int
	SpreadingFactor int
	SyncWord        uint8
	CodingRate      int
	InvertIQTX      bool
	InvertIQRX      bool
	ExplicitHeader  bool
}

// ChannelUpdate carries the optional fields accepted by SetLoRaChannel;
// a nil pointer means "leave unchanged".
type ChannelUpdate struct {
	Frequency       *uint32
	Bandwidth       *int
	SpreadingFactor *int
	SyncWord        *uint8
	CodingRate      *int
	InvertIQTX      *bool
	InvertIQRX      *bool
	ExplicitHeader  *bool
}

// Frame is a captured frame as returned by FetchFrame.
type Frame struct {
	Payload         []byte
	TimeValidHeader uint64
	TimeRXDone      uint64
	RSSI            int
	SNR             float64
	HasMore         bool
}

// Client is the typed facade over a single modem's connection worker.
// Grounded on the @Pyro4.expose methods of the LoRa class in the
// companion driver.
type Client struct {
	name   string
	worker *worker
}

// NewClient builds a facade over cfg, starting its connection worker.
func NewClient(name string, cfg Config) (*Client, error) {
	t, err := cfg.BuildTransport()
	if err != nil {
		return nil, errors.Wrap(err, "modem: build transport")
	}
	w := newWorker(name, t, cfg.Debug)
	w.start()
	return &Client{name: name, worker: w}, nil
}

// Close stops the client's connection worker.
func (c *Client) Close() { c.worker.stop() }

func (c *Client) call(op string, fields map[string]interface{}) (map[string]interface{}, error) {
	req := map[string]interface{}{op: fields}
	payload, err := Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "modem: %s: encode request", op)
	}

	raw, err := c.worker.call(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "modem: %s", op)
	}

	decoded, _, err := Unmarshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "modem: %s: decode response", op)
	}
	res, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, lorawan.ErrInvalidEncoding(fmt.Sprintf("%s: response is not an object", op))
	}
	if errObj, ok := res["error"].(map[string]interface{}); ok {
		msg, _ := errObj["message"].(string)
		return nil, errors.Wrapf(lorawan.ErrRemoteError(-1, msg), "modem: %s", op)
	}
	if status, ok := res["status"].(map[string]interface{}); ok {
		code, _ := status["code"].(int64)
		if code != 0 {
			msg, _ := status["message"].(string)
			return nil, errors.Wrapf(lorawan.ErrRemoteError(int(code), msg), "modem: %s", op)
		}
	}
	return res, nil
}

func channelToFields(ch Channel) map[string]interface{} {
	return map[string]interface{}{
		"frequency":       int64(ch.Frequency),
		"bandwidth":       int64(ch.Bandwidth),
		"spreadingfactor": int64(ch.SpreadingFactor),
		"syncword":        int64(ch.SyncWord),
		"codingrate":      int64(ch.CodingRate),
		"invertiqtx":      ch.InvertIQTX,
		"invertiqrx":      ch.InvertIQRX,
		"explicitheader":  ch.ExplicitHeader,
	}
}

func fieldsToChannel(f map[string]interface{}) Channel {
	get := func(k string) (int64, bool) { v, ok := f[k].(int64); return v, ok }
	getBool := func(k string) bool { v, _ := f[k].(bool); return v }
	freq, _ := get("frequency")
	bw, _ := get("bandwidth")
	sf, _ := get("spreadingfactor")
	sync, _ := get("syncword")
	cr, _ := get("codingrate")
	return Channel{
		Frequency:       uint32(freq),
		Bandwidth:       int(bw),
		SpreadingFactor: int(sf),
		SyncWord:        uint8(sync),
		CodingRate:      int(cr),
		InvertIQTX:      getBool("invertiqtx"),
		InvertIQRX:      getBool("invertiqrx"),
		ExplicitHeader:  getBool("explicitheader"),
	}
}

// GetLoRaChannel returns the modem's current channel configuration.
func (c *Client) GetLoRaChannel() (Channel, error) {
	res, err := c.call("get_lora_channel", map[string]interface{}{})
	if err != nil {
		return Channel{}, err
	}
	f, _ := res["lora_channel"].(map[string]interface{})
	return fieldsToChannel(f), nil
}

// SetLoRaChannel applies u's non-nil fields, validating each against its
// declared domain (spec §4.F), and returns the resulting channel.
func (c *Client) SetLoRaChannel(u ChannelUpdate) (Channel, error) {
	fields := map[string]interface{}{}
	if u.Frequency != nil {
		if *u.Frequency < 860000000 || *u.Frequency >= 920000000 {
			return Channel{}, lorawan.ErrOutOfRange("frequency must be between 860000000 and 920000000 Hz")
		}
		fields["frequency"] = int64(*u.Frequency)
	}
	if u.Bandwidth != nil {
		switch *u.Bandwidth {
		case 125, 250, 500:
			fields["bandwidth"] = int64(*u.Bandwidth)
		default:
			return Channel{}, lorawan.ErrOutOfRange("bandwidth must be 125, 250 or 500 kHz")
		}
	}
	if u.SpreadingFactor != nil {
		if *u.SpreadingFactor < 6 || *u.SpreadingFactor > 12 {
			return Channel{}, lorawan.ErrOutOfRange("spreading factor must be between 6 and 12")
		}
		fields["spreadingfactor"] = int64(*u.SpreadingFactor)
	}
	if u.SyncWord != nil {
		fields["syncword"] = int64(*u.SyncWord)
	}
	if u.CodingRate != nil {
		if *u.CodingRate < 5 || *u.CodingRate > 8 {
			return Channel{}, lorawan.ErrOutOfRange("coding rate must be between 5 and 8")
		}
		fields["codingrate"] = int64(*u.CodingRate)
	}
	if u.InvertIQRX != nil {
		fields["invertiqrx"] = *u.InvertIQRX
	}
	if u.InvertIQTX != nil {
		fields["invertiqtx"] = *u.InvertIQTX
	}
	if u.ExplicitHeader != nil {
		fields["explicitheader"] = *u.ExplicitHeader
	}

	res, err := c.call("set_lora_channel", fields)
	if err != nil {
		return Channel{}, err
	}
	f, _ := res["lora_channel"].(map[string]interface{})
	return fieldsToChannel(f), nil
}

// SetPreambleLength configures the preamble length in symbols; the 4.25
// symbols the hardware adds internally are not included.
func (c *Client) SetPreambleLength(length uint16) (uint16, error) {
	res, err := c.call("set_preamble_length", map[string]interface{}{"len": int64(length)})
	if err != nil {
		return 0, err
	}
	v, _ := fieldValue(res, "preamble_length", "len")
	return uint16(v), nil
}

// GetPreambleLength retrieves the configured preamble length.
func (c *Client) GetPreambleLength() (uint16, error) {
	res, err := c.call("get_preamble_length", map[string]interface{}{})
	if err != nil {
		return 0, err
	}
	v, _ := fieldValue(res, "preamble_length", "len")
	return uint16(v), nil
}

// SetTXCRC configures whether transmitted frames carry a physical-layer
// payload CRC.
func (c *Client) SetTXCRC(enabled bool) (bool, error) {
	res, err := c.call("set_txcrc", map[string]interface{}{"txcrc": enabled})
	if err != nil {
		return false, err
	}
	v, _ := res["txcrc"].(map[string]interface{})
	b, _ := v["txcrc"].(bool)
	return b, nil
}

// GetTXCRC returns whether transmitted frames carry a PHY-layer CRC.
func (c *Client) GetTXCRC() (bool, error) {
	res, err := c.call("get_txcrc", map[string]interface{}{})
	if err != nil {
		return false, err
	}
	v, _ := res["txcrc"].(map[string]interface{})
	b, _ := v["txcrc"].(bool)
	return b, nil
}

// GetTime returns the modem's monotonic clock in microseconds since boot.
func (c *Client) GetTime() (uint64, error) {
	res, err := c.call("get_time", map[string]interface{}{})
	if err != nil {
		return 0, err
	}
	v, _ := fieldValue(res, "time", "time")
	return uint64(v), nil
}

// Receive puts the transceiver into receive mode.
func (c *Client) Receive() error {
	_, err := c.call("receive", map[string]interface{}{})
	return err
}

// Standby puts the transceiver into standby, disabling reception and
// jamming.
func (c *Client) Standby() error {
	_, err := c.call("standby", map[string]interface{}{})
	return err
}

// TransmitFrame transmits payload. schedTime and blocking are mutually
// exclusive per spec §4.F; pass schedTime == nil and blocking == false
// for an immediate, non-blocking send.
func (c *Client) TransmitFrame(payload []byte, schedTime *uint64, blocking bool) error {
	if len(payload) > 255 {
		return lorawan.ErrOutOfRange("payload must not exceed 255 bytes")
	}
	if schedTime != nil && blocking {
		return lorawan.ErrOutOfRange("sched_time and blocking=true cannot be used together")
	}
	fields := map[string]interface{}{"payload": payload}
	if schedTime != nil {
		fields["time"] = int64(*schedTime)
	} else {
		fields["blocking"] = blocking
	}
	_, err := c.call("transmit_frame", fields)
	return err
}

// FetchFrame returns the oldest buffered frame, or nil if none is
// available.
func (c *Client) FetchFrame() (*Frame, error) {
	res, err := c.call("fetch_frame", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	fd, ok := res["frame_data"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	payload, _ := fd["payload"].([]byte)
	validHdr, _ := fd["time_valid_header"].(int64)
	rxdone, _ := fd["time_rxdone"].(int64)
	rssi, _ := fd["rssi"].(int64)
	snr, _ := fd["snr"].(float64)
	hasMore, _ := fd["has_more"].(bool)
	return &Frame{
		Payload:         payload,
		TimeValidHeader: uint64(validHdr),
		TimeRXDone:      uint64(rxdone),
		RSSI:            int(rssi),
		SNR:             snr,
		HasMore:         hasMore,
	}, nil
}

// EnableSniffer arms the receive-time sniffer. mask and pattern must be
// the same length; action Internal forces rxbuf=false.
func (c *Client) EnableSniffer(rxbuf bool, mask, pattern []byte, action SnifferAction, udpAddr string) error {
	if len(mask) != len(pattern) {
		return lorawan.ErrLengthMismatch("mask and pattern must have the same length")
	}
	if action == SnifferActionInternal {
		rxbuf = false
	}
	fields := map[string]interface{}{
		"rxbuf":   rxbuf,
		"mask":    mask,
		"pattern": pattern,
		"action":  int64(action),
	}
	if action == SnifferActionUdp {
		fields["addr"] = udpAddr
	}
	_, err := c.call("enable_sniffer", fields)
	return err
}

// EnableRCJammer arms the remote-controlled jammer with the given
// trigger source.
func (c *Client) EnableRCJammer(trigger JammerTrigger) error {
	_, err := c.call("enable_rc_jammer", map[string]interface{}{"trigger": int64(trigger)})
	return err
}

// SetJammerPayloadLength configures the jammer's transmitted payload
// length in bytes, 1..255.
func (c *Client) SetJammerPayloadLength(length int) error {
	if length < 1 || length > 255 {
		return lorawan.ErrOutOfRange("jammer payload length must be between 1 and 255")
	}
	_, err := c.call("set_jammer_plen", map[string]interface{}{"len": int64(length)})
	return err
}

// ConfigureGain sets receiver gain and transmit power.
func (c *Client) ConfigureGain(lnaGain int, lnaBoost bool, pwrOutDBm int) error {
	if lnaGain < 1 || lnaGain > 6 {
		return lorawan.ErrOutOfRange("lna_gain must be between 1 and 6")
	}
	fields := map[string]interface{}{
		"lna_gain":  int64(lnaGain),
		"lna_boost": lnaBoost,
		"pwr_out":   int64(pwrOutDBm),
	}
	_, err := c.call("configure_gain", fields)
	return err
}

// fieldValue reads res[outer][inner] as an int64.
func fieldValue(res map[string]interface{}, outer, inner string) (int64, bool) {
	o, ok := res[outer].(map[string]interface{})
	if !ok {
		return 0, false
	}
	v, ok := o[inner].(int64)
	return v, ok
}
