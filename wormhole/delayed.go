package wormhole

import (
	"sync"
	"time"

	lorawan "github.com/chirpotle-go/wormhole"
	"github.com/chirpotle-go/wormhole/airtime"
	"github.com/chirpotle-go/wormhole/modem"
)

// ackFrameTime estimates the airtime of a small acknowledgement payload
// at the given spreading factor/bandwidth/coding rate, used to size the
// exit node's RX1 listen window. Grounded on calc_lora_airtime in the
// original tool implementation, computed with the airtime package's
// Semtech-formula implementation.
func ackFrameTime(sf, bw, codingRate int) time.Duration {
	const ackPayloadSize = 30
	const preambleSymbols = 8
	cr := airtime.CodingRate(codingRate - 4)
	if cr < airtime.CodingRate45 || cr > airtime.CodingRate48 {
		cr = airtime.CodingRate45
	}
	d, err := airtime.CalculateLoRaAirtime(ackPayloadSize, sf, bw, preambleSymbols, cr, true, false)
	if err != nil {
		return time.Second
	}
	return d
}

// pendingDownlink is a downlink the exit node captured but could not
// relay before its own RX2 window closed; it is replayed instead during
// the RX1 window of the device's next uplink.
type pendingDownlink struct {
	payload    []byte
	capturedAt time.Time
}

// DownlinkDelayedWormhole is used when the round-trip through the
// wormhole is too slow to make the device's own RX2 deadline: the
// captured downlink is held and replayed during the RX1 window that
// follows the device's *next* uplink instead. Grounded on
// DownlinkDelayedWormhole in the original tool implementation.
//
// A downlink replayed this way carries a MIC computed by the network
// server against the FCntUp of the original uplink it answered, not the
// later uplink whose RX1 window is used to deliver it; 1.1 downlinks will
// fail MIC validation at the device. This is a known limitation of the
// strategy, not a bug in this port.
type DownlinkDelayedWormhole struct {
	*Rx2Wormhole

	mu         sync.Mutex
	pendingDL  map[[4]byte]*pendingDownlink
	lastFCntUp map[[4]byte]uint16
}

// NewDownlinkDelayedWormhole builds a downlink-delayed wormhole.
func NewDownlinkDelayedWormhole(entryNodes, exitNodes []*Node, rx1Delay time.Duration) *DownlinkDelayedWormhole {
	r2 := NewRx2Wormhole(entryNodes, exitNodes, rx1Delay)
	d := &DownlinkDelayedWormhole{
		Rx2Wormhole: r2,
		pendingDL:   map[[4]byte]*pendingDownlink{},
		lastFCntUp:  map[[4]byte]uint16{},
	}
	r2.Wormhole.entryLoop = func(w *Wormhole, n *Node) { d.entryLoopDelayed(n) }
	r2.Wormhole.exitLoop = func(w *Wormhole, n *Node) { d.exitLoopDelayed(n) }
	return d
}

// entryLoopDelayed mirrors entryLoopRx2's uplink capture/forward, but
// also recognizes duplicate FCnt retransmissions (the same uplink resent
// while a pending downlink is scheduled for it) and requires a strict
// DevAddr match before forwarding.
func (d *DownlinkDelayedWormhole) entryLoopDelayed(n *Node) {
	n.setState(StateStarting)
	ch := d.GetLoRaChannel()
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("entry node channel setup failed")
		d.down(n)
		return
	}
	if err := n.Client.Receive(); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("entry node receive failed")
		d.down(n)
		return
	}
	n.setState(StateRunning)

	for {
		select {
		case ev := <-n.queue:
			switch ev.Kind {
			case EventStop:
				_ = n.Client.Standby()
				n.setState(StateStopped)
				return
			case EventPrepareRx2:
				if !d.prepareRx2(n) {
					return
				}
				continue
			}
		case <-time.After(50 * time.Millisecond):
		}

		frame, err := n.Client.FetchFrame()
		if err != nil || frame == nil {
			continue
		}
		if d.dedup.Seen(frame.Payload) {
			continue
		}
		if len(frame.Payload) < 12 {
			continue
		}
		if !d.forwardUplinkDelayed(n, frame) {
			continue
		}
		n.Enqueue(Event{Kind: EventPrepareRx2})
	}
}

// forwardUplinkDelayed validates the uplink, replays any pending downlink
// for this device during its RX1 window, then forwards it to every exit
// node. Returns false if the frame was not a recognizable uplink from the
// configured DevAddr.
func (d *DownlinkDelayedWormhole) forwardUplinkDelayed(n *Node, frame *modem.Frame) bool {
	msg := lorawan.NewMessage(frame.Payload, lorawan.MACVersion102, nil, nil, nil)
	if !msg.MHDR().IsDataUp() {
		return false
	}
	if !d.matchesDevAddr(frame.Payload) {
		return false
	}
	mp, ok := msg.Payload().(lorawan.MacPayloadView)
	if !ok {
		return false
	}
	if !d.allowForward(frame.Payload) {
		return false
	}
	// Wire byte order, the key storePendingDownlink and forwardDownlink use.
	var addr [4]byte
	copy(addr[:], frame.Payload[1:5])
	fcnt := mp.FHDR().FCnt()

	d.mu.Lock()
	last, seen := d.lastFCntUp[addr]
	isNew := !seen || fcnt != last
	pending, hasPending := d.pendingDL[addr]
	hasPending = hasPending && isNew
	if isNew {
		d.lastFCntUp[addr] = fcnt
	}
	if hasPending {
		delete(d.pendingDL, addr)
	}
	d.mu.Unlock()

	if hasPending {
		d.scheduleDownlink(n, pending, frame.TimeRXDone)
	}

	for _, exit := range d.ExitNodes() {
		exit.Enqueue(Event{Kind: EventTransmit, Payload: frame.Payload})
	}
	d.addPending(&PendingFrame{
		Entry:      n,
		DevAddr:    addr,
		TimeRXDone: frame.TimeRXDone,
		CapturedAt: time.Now(),
	})
	d.notifyListeners(frame.Payload)
	return true
}

// scheduleDownlink waits until rx1Delay has passed since the held downlink
// was captured, then asks n to transmit it at uplinkRXDone+rx1Delay on the
// modem's clock.
func (d *DownlinkDelayedWormhole) scheduleDownlink(n *Node, pending *pendingDownlink, uplinkRXDone uint64) {
	target := pending.capturedAt.Add(d.rx1Delay)
	if wait := time.Until(target); wait > 0 {
		time.Sleep(wait)
	}
	ts := uplinkRXDone + uint64(d.rx1Delay.Microseconds())
	if err := n.Client.TransmitFrame(pending.payload, &ts, false); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("delayed downlink transmit failed")
	}
}

// exitLoopDelayed mirrors exitLoopRx2 but arms the jammer for both
// uplink and downlink polarity (it must suppress the gateway's downlink
// too, not just the device's uplink) and stores an unmatched RX1
// downlink as pendingDL instead of discarding it.
func (d *DownlinkDelayedWormhole) exitLoopDelayed(n *Node) {
	n.setState(StateStarting)
	ch := d.GetLoRaChannel()
	ch.InvertIQTX = true
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("exit node channel setup failed")
		d.down(n)
		return
	}
	if _, err := n.Client.SetTXCRC(true); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("exit node txcrc setup failed")
	}
	sf := ch.SpreadingFactor
	_ = n.Client.SetJammerPayloadLength(20 - sf)
	if addr, ok := d.getDevAddr(); ok {
		_ = d.armJammerBoth(n, addr)
	}
	n.setState(StateRunning)

	for ev := range n.queue {
		switch ev.Kind {
		case EventTransmit:
			d.handleExitTransmit(n, ev.Payload, ch)
		case EventUpdateDevAddr:
			var addr [4]byte
			copy(addr[:], ev.DevAddr)
			if err := d.armJammerBoth(n, addr); err != nil {
				d.log.WithError(err).WithField("node", n.Name).Error("jammer re-arm failed")
			}
		case EventStop:
			_ = n.Client.Standby()
			n.setState(StateStopped)
			return
		}
	}
}

// armJammerBoth arms the same single sniffer pattern as armJammer; since
// the MHDR byte is masked out it matches both uplinks and downlinks for
// the address. The strategy's jammer payload length is sized to cover
// either frame shape.
func (d *DownlinkDelayedWormhole) armJammerBoth(n *Node, addr [4]byte) error {
	mask, pattern := jammerPattern(addr)
	return n.Client.EnableSniffer(false, mask, pattern, modem.SnifferActionInternal, "")
}

func (d *DownlinkDelayedWormhole) handleExitTransmit(n *Node, payload []byte, uplinkCh Channel) {
	time.Sleep(500 * time.Millisecond) // workaround: transceiver wedges if the jammer is disabled too soon after a transmit
	_ = n.Client.Standby()
	if err := n.Client.TransmitFrame(payload, nil, true); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("exit node transmit failed")
		return
	}

	rxCh := uplinkCh
	rxCh.InvertIQRX = true
	rxCh.InvertIQTX = true
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(rxCh)); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("downlink listen channel setup failed")
		return
	}
	if err := n.Client.Receive(); err != nil {
		d.log.WithError(err).WithField("node", n.Name).Error("downlink listen receive failed")
		return
	}

	frameTime := ackFrameTime(uplinkCh.SpreadingFactor, uplinkCh.Bandwidth, uplinkCh.CodingRate)
	deadline := time.Now().Add(d.rx1Delay + frameTime + time.Second)
	for time.Now().Before(deadline) {
		frame, err := n.Client.FetchFrame()
		if err != nil {
			break
		}
		if frame != nil && len(frame.Payload) >= 12 && d.matchesDevAddr(frame.Payload) {
			d.storePendingDownlink(frame.Payload)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if addr, ok := d.getDevAddr(); ok {
		_ = d.armJammerBoth(n, addr)
	}
}

func (d *DownlinkDelayedWormhole) matchesDevAddr(payload []byte) bool {
	addr, ok := d.getDevAddr()
	if !ok || len(payload) < 5 {
		return false
	}
	var got [4]byte
	copy(got[:], payload[1:5])
	return got == addr
}

func (d *DownlinkDelayedWormhole) storePendingDownlink(payload []byte) {
	addr, ok := d.getDevAddr()
	if !ok {
		return
	}
	d.mu.Lock()
	d.pendingDL[addr] = &pendingDownlink{
		payload:    append([]byte(nil), payload...),
		capturedAt: time.Now(),
	}
	d.mu.Unlock()
	d.notifyDownlink(payload)
}
